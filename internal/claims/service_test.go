package claims

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/offerhubhq/offerhub-backend/internal/capacity"
	"github.com/offerhubhq/offerhub-backend/internal/events"
	"github.com/offerhubhq/offerhub-backend/internal/offers"
	"github.com/offerhubhq/offerhub-backend/internal/referrals"
	"github.com/offerhubhq/offerhub-backend/pkg/db/models"
	"github.com/offerhubhq/offerhub-backend/pkg/enums"
	pkgerrors "github.com/offerhubhq/offerhub-backend/pkg/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

type gormTx struct {
	db *gorm.DB
}

func (g *gormTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return g.db.WithContext(ctx).Transaction(fn)
}

func newClaimService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	svc, err := NewService(
		&gormTx{db: db},
		NewRepository(db),
		offers.NewRepository(db),
		referrals.NewRepository(db),
		events.NewRepository(db),
		nil,
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, db
}

func TestCreateClaim(t *testing.T) {
	t.Parallel()

	svc, db := newClaimService(t)
	ctx := context.Background()

	offer := models.Offer{
		CreatorID:    10,
		Title:        "Dinner for two",
		PriceCents:   5000,
		DepositCents: 1000,
		PaymentMode:  enums.PaymentModeDeposit,
		Capacity:     5,
		LocationText: "Main St",
		Slots: []models.OfferSlot{
			{StartAt: time.Now(), EndAt: time.Now().Add(time.Hour), RemainingCapacity: 2},
		},
	}
	if err := db.Create(&offer).Error; err != nil {
		t.Fatalf("seed offer: %v", err)
	}

	slotID := offer.Slots[0].ID
	result, err := svc.Create(ctx, CreateClaimInput{
		OfferID: offer.ID,
		UserID:  20,
		SlotID:  &slotID,
	})
	if err != nil {
		t.Fatalf("create claim: %v", err)
	}
	if result.Claim.Status != enums.ClaimStatusPending {
		t.Fatalf("expected pending claim, got %s", result.Claim.Status)
	}
	if result.Claim.DepositCents != 1000 {
		t.Fatalf("deposit snapshot mismatch: %d", result.Claim.DepositCents)
	}
	if result.PaymentMode != enums.PaymentModeDeposit {
		t.Fatalf("payment mode mismatch: %s", result.PaymentMode)
	}

	var slot models.OfferSlot
	if err := db.First(&slot, slotID).Error; err != nil {
		t.Fatalf("load slot: %v", err)
	}
	if slot.RemainingCapacity != 1 {
		t.Fatalf("expected capacity 1 after claim, got %d", slot.RemainingCapacity)
	}

	var feed []models.Event
	if err := db.Where("user_id = ?", offer.CreatorID).Find(&feed).Error; err != nil {
		t.Fatalf("load events: %v", err)
	}
	if len(feed) != 1 || feed[0].Type != enums.EventTypeOfferClaimed {
		t.Fatalf("expected one OFFER_CLAIMED event, got %+v", feed)
	}
	if feed[0].RefID == nil || *feed[0].RefID != result.Claim.ID {
		t.Fatalf("claim event must reference the claim")
	}
}

func TestCreateClaimDepositSnapshotSurvivesOfferEdit(t *testing.T) {
	t.Parallel()

	svc, db := newClaimService(t)
	ctx := context.Background()

	offer := models.Offer{
		CreatorID:    1,
		Title:        "Workshop",
		PriceCents:   8000,
		DepositCents: 2000,
		PaymentMode:  enums.PaymentModeDeposit,
		Capacity:     3,
		LocationText: "Studio",
	}
	if err := db.Create(&offer).Error; err != nil {
		t.Fatalf("seed offer: %v", err)
	}

	result, err := svc.Create(ctx, CreateClaimInput{OfferID: offer.ID, UserID: 2})
	if err != nil {
		t.Fatalf("create claim: %v", err)
	}

	if err := db.Model(&models.Offer{}).Where("id = ?", offer.ID).
		Update("deposit_cents", 9999).Error; err != nil {
		t.Fatalf("edit offer: %v", err)
	}

	var stored models.Claim
	if err := db.First(&stored, result.Claim.ID).Error; err != nil {
		t.Fatalf("load claim: %v", err)
	}
	if stored.DepositCents != 2000 {
		t.Fatalf("offer edit must not rewrite the claim snapshot, got %d", stored.DepositCents)
	}
}

func TestCreateClaimSlotExhausted(t *testing.T) {
	t.Parallel()

	svc, db := newClaimService(t)
	ctx := context.Background()

	offer := models.Offer{
		CreatorID:    3,
		Title:        "One seat only",
		Capacity:     1,
		LocationText: "Bar",
		PaymentMode:  enums.PaymentModeFull,
		Slots: []models.OfferSlot{
			{StartAt: time.Now(), EndAt: time.Now().Add(time.Hour), RemainingCapacity: 1},
		},
	}
	if err := db.Create(&offer).Error; err != nil {
		t.Fatalf("seed offer: %v", err)
	}

	slotID := offer.Slots[0].ID
	if _, err := svc.Create(ctx, CreateClaimInput{OfferID: offer.ID, UserID: 5, SlotID: &slotID}); err != nil {
		t.Fatalf("first claim: %v", err)
	}

	_, err := svc.Create(ctx, CreateClaimInput{OfferID: offer.ID, UserID: 6, SlotID: &slotID})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict for exhausted slot, got %v", err)
	}

	var count int64
	if err := db.Model(&models.Claim{}).Count(&count).Error; err != nil {
		t.Fatalf("count claims: %v", err)
	}
	if count != 1 {
		t.Fatalf("losing claimant must not persist a claim, got %d", count)
	}
}

func TestCreateClaimConcurrentSlotContention(t *testing.T) {
	t.Parallel()

	svc, db := newClaimService(t)
	ctx := context.Background()

	// One connection serializes the two transactions on the slot row instead
	// of tripping sqlite's shared-cache locking.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	offer := models.Offer{
		CreatorID:    15,
		Title:        "Last seat",
		Capacity:     1,
		LocationText: "Counter",
		PaymentMode:  enums.PaymentModeFull,
		Slots: []models.OfferSlot{
			{StartAt: time.Now(), EndAt: time.Now().Add(time.Hour), RemainingCapacity: 1},
		},
	}
	if err := db.Create(&offer).Error; err != nil {
		t.Fatalf("seed offer: %v", err)
	}
	slotID := offer.Slots[0].ID

	start := make(chan struct{})
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = svc.Create(ctx, CreateClaimInput{
				OfferID: offer.ID,
				UserID:  int64(30 + i),
				SlotID:  &slotID,
			})
		}(i)
	}
	close(start)
	wg.Wait()

	var wins, conflicts int
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeConflict {
			conflicts++
		}
	}
	if wins != 1 || conflicts != 1 {
		t.Fatalf("expected exactly one winner and one conflict, got %v", errs)
	}

	var count int64
	if err := db.Model(&models.Claim{}).Count(&count).Error; err != nil {
		t.Fatalf("count claims: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected one claim row, got %d", count)
	}

	var slot models.OfferSlot
	if err := db.First(&slot, slotID).Error; err != nil {
		t.Fatalf("load slot: %v", err)
	}
	if slot.RemainingCapacity != 0 {
		t.Fatalf("expected slot drained to zero, got %d", slot.RemainingCapacity)
	}
}

func TestCreateClaimOfferNotFound(t *testing.T) {
	t.Parallel()

	svc, _ := newClaimService(t)
	_, err := svc.Create(context.Background(), CreateClaimInput{OfferID: 999, UserID: 1})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestCreateClaimReferralConversion(t *testing.T) {
	t.Parallel()

	svc, db := newClaimService(t)
	ctx := context.Background()

	offer := models.Offer{CreatorID: 7, Title: "Tour", Capacity: 2, LocationText: "Pier", PaymentMode: enums.PaymentModeFull}
	if err := db.Create(&offer).Error; err != nil {
		t.Fatalf("seed offer: %v", err)
	}
	link := models.ReferralLink{Code: "invite1234", InviterID: 42, OfferID: offer.ID}
	if err := db.Create(&link).Error; err != nil {
		t.Fatalf("seed link: %v", err)
	}

	code := link.Code
	result, err := svc.Create(ctx, CreateClaimInput{OfferID: offer.ID, UserID: 8, ReferralCode: &code})
	if err != nil {
		t.Fatalf("create claim: %v", err)
	}

	var converted []models.Event
	if err := db.Where("user_id = ? AND type = ?", link.InviterID, enums.EventTypeReferralConverted).
		Find(&converted).Error; err != nil {
		t.Fatalf("load events: %v", err)
	}
	if len(converted) != 1 {
		t.Fatalf("expected one conversion event, got %d", len(converted))
	}
	if converted[0].RefID == nil || *converted[0].RefID != result.Claim.ID {
		t.Fatalf("conversion event must reference the claim")
	}
}

func TestCreateClaimUnknownReferralCodeIgnored(t *testing.T) {
	t.Parallel()

	svc, db := newClaimService(t)
	ctx := context.Background()

	offer := models.Offer{CreatorID: 9, Title: "Tasting", Capacity: 2, LocationText: "Cellar", PaymentMode: enums.PaymentModeFull}
	if err := db.Create(&offer).Error; err != nil {
		t.Fatalf("seed offer: %v", err)
	}

	code := "doesnotexist"
	if _, err := svc.Create(ctx, CreateClaimInput{OfferID: offer.ID, UserID: 11, ReferralCode: &code}); err != nil {
		t.Fatalf("stale code must not block the claim: %v", err)
	}

	var count int64
	if err := db.Model(&models.Event{}).Where("type = ?", enums.EventTypeReferralConverted).
		Count(&count).Error; err != nil {
		t.Fatalf("count events: %v", err)
	}
	if count != 0 {
		t.Fatalf("unknown code must not convert, got %d events", count)
	}
}

func TestCreateClaimRollbackRestoresCapacity(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()

	offer := models.Offer{CreatorID: 13, Title: "Class", Capacity: 1, LocationText: "Gym", PaymentMode: enums.PaymentModeFull,
		Slots: []models.OfferSlot{
			{StartAt: time.Now(), EndAt: time.Now().Add(time.Hour), RemainingCapacity: 1},
		},
	}
	if err := db.Create(&offer).Error; err != nil {
		t.Fatalf("seed offer: %v", err)
	}

	svc := &service{
		tx:           &gormTx{db: db},
		repo:         failingClaimRepo{},
		offerRepo:    offers.NewRepository(db),
		referralRepo: referrals.NewRepository(db),
		eventRepo:    events.NewRepository(db),
		reserve:      capacity.ReserveSlotUnit,
	}

	slotID := offer.Slots[0].ID
	if _, err := svc.Create(ctx, CreateClaimInput{OfferID: offer.ID, UserID: 14, SlotID: &slotID}); err == nil {
		t.Fatalf("expected claim insert failure")
	}

	var slot models.OfferSlot
	if err := db.First(&slot, slotID).Error; err != nil {
		t.Fatalf("load slot: %v", err)
	}
	if slot.RemainingCapacity != 1 {
		t.Fatalf("rollback must restore capacity, got %d", slot.RemainingCapacity)
	}
}

type failingClaimRepo struct{}

func (failingClaimRepo) WithTx(tx *gorm.DB) Repository { return failingClaimRepo{} }
func (failingClaimRepo) Create(ctx context.Context, claim *models.Claim) error {
	return pkgerrors.New(pkgerrors.CodeDependency, "claim insert failed")
}
func (failingClaimRepo) FindByID(ctx context.Context, id int64) (*models.Claim, error) {
	return nil, nil
}
func (failingClaimRepo) Update(ctx context.Context, claim *models.Claim) error { return nil }
func (failingClaimRepo) ListByUser(ctx context.Context, userID int64) ([]models.Claim, error) {
	return nil, nil
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:claims_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Offer{},
		&models.OfferSlot{},
		&models.Claim{},
		&models.Event{},
		&models.ReferralLink{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}
