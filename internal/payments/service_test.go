package payments

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/offerhubhq/offerhub-backend/internal/claims"
	"github.com/offerhubhq/offerhub-backend/internal/events"
	"github.com/offerhubhq/offerhub-backend/internal/offers"
	"github.com/offerhubhq/offerhub-backend/pkg/db/models"
	"github.com/offerhubhq/offerhub-backend/pkg/enums"
	pkgerrors "github.com/offerhubhq/offerhub-backend/pkg/errors"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type gormTx struct {
	db *gorm.DB
}

func (g *gormTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return g.db.WithContext(ctx).Transaction(fn)
}

type fakeSessionGetter struct {
	session *stripe.CheckoutSession
	err     error
}

func (f *fakeSessionGetter) GetCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error) {
	return f.session, f.err
}

func newPaymentService(t *testing.T, sessions sessionGetter) (Service, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	svc, err := NewService(
		&gormTx{db: db},
		NewRepository(db),
		claims.NewRepository(db),
		offers.NewRepository(db),
		events.NewRepository(db),
		sessions,
		nil,
		nil,
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, db
}

func seedClaim(t *testing.T, db *gorm.DB, mode enums.PaymentMode) (*models.Offer, *models.Claim) {
	t.Helper()
	offer := models.Offer{
		CreatorID:    100,
		Title:        "Pottery class",
		PriceCents:   4000,
		DepositCents: 1500,
		PaymentMode:  mode,
		Capacity:     4,
		LocationText: "Studio B",
	}
	if err := db.Create(&offer).Error; err != nil {
		t.Fatalf("seed offer: %v", err)
	}
	claim := models.Claim{
		OfferID:      offer.ID,
		UserID:       200,
		DepositCents: offer.DepositCents,
		Status:       enums.ClaimStatusPending,
	}
	if err := db.Create(&claim).Error; err != nil {
		t.Fatalf("seed claim: %v", err)
	}
	return &offer, &claim
}

func TestRecordCheckoutCompletedIdempotent(t *testing.T) {
	t.Parallel()

	svc, db := newPaymentService(t, nil)
	ctx := context.Background()
	offer, claim := seedClaim(t, db, enums.PaymentModeDeposit)

	intentID := "pi_123"
	input := RecordSessionInput{
		SessionID:       "cs_abc",
		PaymentIntentID: &intentID,
		ClaimID:         claim.ID,
		AmountCents:     1500,
	}

	outcome, err := svc.RecordCheckoutCompleted(ctx, input)
	if err != nil {
		t.Fatalf("first record: %v", err)
	}
	if outcome != OutcomeInserted {
		t.Fatalf("expected inserted, got %s", outcome)
	}

	outcome, err = svc.RecordCheckoutCompleted(ctx, input)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if outcome != OutcomeAlreadyRecorded {
		t.Fatalf("expected already_recorded on replay, got %s", outcome)
	}

	var payments []models.Payment
	if err := db.Where("provider_ref = ?", "cs_abc").Find(&payments).Error; err != nil {
		t.Fatalf("load payments: %v", err)
	}
	if len(payments) != 1 {
		t.Fatalf("replay must not create a second payment, got %d", len(payments))
	}
	if payments[0].Status != enums.PaymentStatusPaid || payments[0].AmountCents != 1500 {
		t.Fatalf("unexpected payment: %+v", payments[0])
	}

	var stored models.Claim
	if err := db.First(&stored, claim.ID).Error; err != nil {
		t.Fatalf("load claim: %v", err)
	}
	if stored.Status != enums.ClaimStatusDepositPaid {
		t.Fatalf("expected deposit_paid, got %s", stored.Status)
	}
	if stored.DepositPaymentIntentID == nil || *stored.DepositPaymentIntentID != intentID {
		t.Fatalf("intent id not recorded: %+v", stored)
	}

	var eventCount int64
	if err := db.Model(&models.Event{}).
		Where("user_id = ? AND type = ?", offer.CreatorID, enums.EventTypeDepositPaid).
		Count(&eventCount).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	if eventCount != 1 {
		t.Fatalf("replay must not duplicate the feed event, got %d", eventCount)
	}
}

func TestRecordCheckoutCompletedSettlesPendingRow(t *testing.T) {
	t.Parallel()

	svc, db := newPaymentService(t, nil)
	ctx := context.Background()
	_, claim := seedClaim(t, db, enums.PaymentModeDeposit)

	pending := models.Payment{
		ClaimID:     claim.ID,
		AmountCents: 1500,
		Status:      enums.PaymentStatusPending,
		Provider:    enums.PaymentProviderStripe,
		ProviderRef: "cs_pending",
	}
	if err := db.Create(&pending).Error; err != nil {
		t.Fatalf("seed pending payment: %v", err)
	}

	outcome, err := svc.RecordCheckoutCompleted(ctx, RecordSessionInput{
		SessionID:   "cs_pending",
		ClaimID:     claim.ID,
		AmountCents: 1500,
	})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if outcome != OutcomeInserted {
		t.Fatalf("expected inserted, got %s", outcome)
	}

	var payments []models.Payment
	if err := db.Where("claim_id = ?", claim.ID).Find(&payments).Error; err != nil {
		t.Fatalf("load payments: %v", err)
	}
	if len(payments) != 1 {
		t.Fatalf("pending row must settle in place, got %d rows", len(payments))
	}
	if payments[0].Status != enums.PaymentStatusPaid {
		t.Fatalf("expected paid, got %s", payments[0].Status)
	}
}

func TestRecordCheckoutCompletedUnknownClaim(t *testing.T) {
	t.Parallel()

	svc, _ := newPaymentService(t, nil)
	_, err := svc.RecordCheckoutCompleted(context.Background(), RecordSessionInput{
		SessionID: "cs_orphan",
		ClaimID:   777,
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRecordBalanceSucceeded(t *testing.T) {
	t.Parallel()

	svc, db := newPaymentService(t, nil)
	ctx := context.Background()
	offer, claim := seedClaim(t, db, enums.PaymentModeDeposit)

	input := RecordBalanceInput{IntentID: "pi_balance", ClaimID: claim.ID, AmountCents: 2500}
	outcome, err := svc.RecordBalanceSucceeded(ctx, input)
	if err != nil {
		t.Fatalf("record balance: %v", err)
	}
	if outcome != OutcomeInserted {
		t.Fatalf("expected inserted, got %s", outcome)
	}

	outcome, err = svc.RecordBalanceSucceeded(ctx, input)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if outcome != OutcomeAlreadyRecorded {
		t.Fatalf("expected already_recorded, got %s", outcome)
	}

	var stored models.Claim
	if err := db.First(&stored, claim.ID).Error; err != nil {
		t.Fatalf("load claim: %v", err)
	}
	if stored.Status != enums.ClaimStatusRedeemed {
		t.Fatalf("expected redeemed, got %s", stored.Status)
	}
	if stored.RedeemedAt == nil {
		t.Fatalf("redeemed_at must be set")
	}
	if stored.BalancePaymentIntentID == nil || *stored.BalancePaymentIntentID != "pi_balance" {
		t.Fatalf("balance intent not recorded: %+v", stored)
	}

	var eventCount int64
	if err := db.Model(&models.Event{}).
		Where("user_id = ? AND type = ?", offer.CreatorID, enums.EventTypeRedeemedIRL).
		Count(&eventCount).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	if eventCount != 1 {
		t.Fatalf("expected one REDEEMED_IRL event, got %d", eventCount)
	}
}

func TestConfirmSessionNotPaid(t *testing.T) {
	t.Parallel()

	getter := &fakeSessionGetter{session: &stripe.CheckoutSession{
		ID:            "cs_unpaid",
		PaymentStatus: stripe.CheckoutSessionPaymentStatusUnpaid,
	}}
	svc, db := newPaymentService(t, getter)

	result, err := svc.ConfirmSession(context.Background(), "cs_unpaid")
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if result.Status != OutcomeNotPaid {
		t.Fatalf("expected not_paid, got %s", result.Status)
	}

	var count int64
	if err := db.Model(&models.Payment{}).Count(&count).Error; err != nil {
		t.Fatalf("count payments: %v", err)
	}
	if count != 0 {
		t.Fatalf("not_paid must have no side effects, got %d payments", count)
	}
}

func TestConfirmSessionConvergesWithWebhook(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	_, claim := seedClaim(t, db, enums.PaymentModeDeposit)

	getter := &fakeSessionGetter{session: &stripe.CheckoutSession{
		ID:            "cs_race",
		PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid,
		AmountTotal:   1500,
		Metadata:      map[string]string{"claim_id": strconv.FormatInt(claim.ID, 10)},
	}}
	svc, err := NewService(&gormTx{db: db}, NewRepository(db), claims.NewRepository(db),
		offers.NewRepository(db), events.NewRepository(db), getter, nil, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	ctx := context.Background()

	// Webhook lands first.
	if _, err := svc.RecordCheckoutCompleted(ctx, RecordSessionInput{
		SessionID:   "cs_race",
		ClaimID:     claim.ID,
		AmountCents: 1500,
	}); err != nil {
		t.Fatalf("webhook path: %v", err)
	}

	result, err := svc.ConfirmSession(ctx, "cs_race")
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if result.Status != OutcomeAlreadyRecorded {
		t.Fatalf("expected already_recorded, got %s", result.Status)
	}

	var payments []models.Payment
	if err := db.Where("provider_ref = ?", "cs_race").Find(&payments).Error; err != nil {
		t.Fatalf("load payments: %v", err)
	}
	if len(payments) != 1 {
		t.Fatalf("both paths must converge on one payment, got %d", len(payments))
	}
}

func TestConfirmSessionBalanceConvergesWithWebhook(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	_, claim := seedClaim(t, db, enums.PaymentModeDeposit)

	// Checkout left a pending row keyed by the session id.
	pending := models.Payment{
		ClaimID:     claim.ID,
		AmountCents: 2500,
		Status:      enums.PaymentStatusPending,
		Provider:    enums.PaymentProviderStripe,
		ProviderRef: "cs_balance",
	}
	if err := db.Create(&pending).Error; err != nil {
		t.Fatalf("seed pending payment: %v", err)
	}

	getter := &fakeSessionGetter{session: &stripe.CheckoutSession{
		ID:            "cs_balance",
		PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid,
		AmountTotal:   2500,
		Metadata: map[string]string{
			"claim_id": strconv.FormatInt(claim.ID, 10),
			"purpose":  "balance",
		},
		PaymentIntent: &stripe.PaymentIntent{ID: "pi_balance"},
	}}
	svc, err := NewService(&gormTx{db: db}, NewRepository(db), claims.NewRepository(db),
		offers.NewRepository(db), events.NewRepository(db), getter, nil, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	ctx := context.Background()

	// Webhook lands first under the intent id.
	if _, err := svc.RecordBalanceSucceeded(ctx, RecordBalanceInput{
		IntentID:    "pi_balance",
		ClaimID:     claim.ID,
		AmountCents: 2500,
	}); err != nil {
		t.Fatalf("webhook path: %v", err)
	}

	result, err := svc.ConfirmSession(ctx, "cs_balance")
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if result.Status != OutcomeAlreadyRecorded {
		t.Fatalf("expected already_recorded, got %s", result.Status)
	}

	var stored models.Claim
	if err := db.First(&stored, claim.ID).Error; err != nil {
		t.Fatalf("load claim: %v", err)
	}
	if stored.Status != enums.ClaimStatusRedeemed {
		t.Fatalf("confirm must not regress a redeemed claim, got %s", stored.Status)
	}

	var rows []models.Payment
	if err := db.Where("claim_id = ?", claim.ID).Find(&rows).Error; err != nil {
		t.Fatalf("load payments: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("both paths must converge on one payment row, got %d", len(rows))
	}
	if rows[0].ProviderRef != "pi_balance" || rows[0].Status != enums.PaymentStatusSucceeded {
		t.Fatalf("pending session row must settle under the intent ref: %+v", rows[0])
	}
}

func TestConfirmSessionBalancePull(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	_, claim := seedClaim(t, db, enums.PaymentModeDeposit)

	getter := &fakeSessionGetter{session: &stripe.CheckoutSession{
		ID:            "cs_bal_pull",
		PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid,
		AmountTotal:   2500,
		Metadata: map[string]string{
			"claim_id": strconv.FormatInt(claim.ID, 10),
			"purpose":  "balance",
		},
		PaymentIntent: &stripe.PaymentIntent{ID: "pi_bal_pull"},
	}}
	svc, err := NewService(&gormTx{db: db}, NewRepository(db), claims.NewRepository(db),
		offers.NewRepository(db), events.NewRepository(db), getter, nil, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	result, err := svc.ConfirmSession(context.Background(), "cs_bal_pull")
	if err != nil {
		t.Fatalf("confirm: %v", err)
	}
	if result.Status != OutcomeInserted {
		t.Fatalf("expected inserted, got %s", result.Status)
	}

	var stored models.Claim
	if err := db.First(&stored, claim.ID).Error; err != nil {
		t.Fatalf("load claim: %v", err)
	}
	if stored.Status != enums.ClaimStatusRedeemed {
		t.Fatalf("balance confirm must redeem the claim, got %s", stored.Status)
	}
	if stored.BalancePaymentIntentID == nil || *stored.BalancePaymentIntentID != "pi_bal_pull" {
		t.Fatalf("balance intent not recorded: %+v", stored)
	}
}

func TestRecordCheckoutCompletedDoesNotRegressRedeemedClaim(t *testing.T) {
	t.Parallel()

	svc, db := newPaymentService(t, nil)
	ctx := context.Background()
	_, claim := seedClaim(t, db, enums.PaymentModeDeposit)

	now := time.Now().UTC()
	claim.Status = enums.ClaimStatusRedeemed
	claim.RedeemedAt = &now
	if err := db.Save(claim).Error; err != nil {
		t.Fatalf("redeem claim: %v", err)
	}

	if _, err := svc.RecordCheckoutCompleted(ctx, RecordSessionInput{
		SessionID:   "cs_late",
		ClaimID:     claim.ID,
		AmountCents: 1500,
	}); err != nil {
		t.Fatalf("late session: %v", err)
	}

	var stored models.Claim
	if err := db.First(&stored, claim.ID).Error; err != nil {
		t.Fatalf("load claim: %v", err)
	}
	if stored.Status != enums.ClaimStatusRedeemed {
		t.Fatalf("late session must not regress a redeemed claim, got %s", stored.Status)
	}
}

func TestReconciliationEventsNotDuplicatedAcrossRefs(t *testing.T) {
	t.Parallel()

	svc, db := newPaymentService(t, nil)
	ctx := context.Background()
	offer, claim := seedClaim(t, db, enums.PaymentModeDeposit)

	// Two distinct session refs for one claim (e.g. an abandoned session paid
	// again) must still produce a single feed entry.
	for _, ref := range []string{"cs_one", "cs_two"} {
		if _, err := svc.RecordCheckoutCompleted(ctx, RecordSessionInput{
			SessionID:   ref,
			ClaimID:     claim.ID,
			AmountCents: 1500,
		}); err != nil {
			t.Fatalf("record %s: %v", ref, err)
		}
	}

	var depositEvents int64
	if err := db.Model(&models.Event{}).
		Where("user_id = ? AND type = ?", offer.CreatorID, enums.EventTypeDepositPaid).
		Count(&depositEvents).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	if depositEvents != 1 {
		t.Fatalf("expected one DEPOSIT_PAID event across refs, got %d", depositEvents)
	}

	for _, ref := range []string{"pi_one", "pi_two"} {
		if _, err := svc.RecordBalanceSucceeded(ctx, RecordBalanceInput{
			IntentID:    ref,
			ClaimID:     claim.ID,
			AmountCents: 2500,
		}); err != nil {
			t.Fatalf("record %s: %v", ref, err)
		}
	}

	var redeemEvents int64
	if err := db.Model(&models.Event{}).
		Where("user_id = ? AND type = ?", offer.CreatorID, enums.EventTypeRedeemedIRL).
		Count(&redeemEvents).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	if redeemEvents != 1 {
		t.Fatalf("expected one REDEEMED_IRL event across refs, got %d", redeemEvents)
	}
}

func TestConfirmSessionMissingMetadata(t *testing.T) {
	t.Parallel()

	getter := &fakeSessionGetter{session: &stripe.CheckoutSession{
		ID:            "cs_nometa",
		PaymentStatus: stripe.CheckoutSessionPaymentStatusPaid,
	}}
	svc, _ := newPaymentService(t, getter)

	_, err := svc.ConfirmSession(context.Background(), "cs_nometa")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:payments_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Offer{},
		&models.Claim{},
		&models.Payment{},
		&models.Event{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}
