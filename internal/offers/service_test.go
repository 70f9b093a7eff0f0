package offers

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/offerhubhq/offerhub-backend/internal/events"
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

func newOfferService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	svc, err := NewService(&gormTx{db: db}, NewRepository(db), events.NewRepository(db))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, db
}

func TestCreateOffer(t *testing.T) {
	t.Parallel()

	svc, db := newOfferService(t)
	ctx := context.Background()

	offer, err := svc.Create(ctx, CreateOfferInput{
		CreatorID:    1,
		Title:        "Sourdough workshop",
		PriceCents:   3000,
		DepositCents: 500,
		PaymentMode:  enums.PaymentModeDeposit,
		Capacity:     6,
		LocationText: "Bakery",
		Slots: []SlotInput{
			{StartAt: time.Now(), EndAt: time.Now().Add(2 * time.Hour), Capacity: 3},
			{StartAt: time.Now().Add(24 * time.Hour), EndAt: time.Now().Add(26 * time.Hour), Capacity: 3},
		},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if offer.ID == 0 {
		t.Fatalf("offer id must be assigned")
	}
	if len(offer.Slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(offer.Slots))
	}
	for _, slot := range offer.Slots {
		if slot.RemainingCapacity != 3 {
			t.Fatalf("slot capacity mismatch: %+v", slot)
		}
	}

	var feed []models.Event
	if err := db.Where("user_id = ? AND type = ?", int64(1), enums.EventTypeOfferCreated).
		Find(&feed).Error; err != nil {
		t.Fatalf("load events: %v", err)
	}
	if len(feed) != 1 || feed[0].RefID == nil || *feed[0].RefID != offer.ID {
		t.Fatalf("expected OFFER_CREATED referencing the offer, got %+v", feed)
	}
}

func TestCreateOfferDefaultsPaymentMode(t *testing.T) {
	t.Parallel()

	svc, _ := newOfferService(t)
	offer, err := svc.Create(context.Background(), CreateOfferInput{
		CreatorID:    2,
		Title:        "Free meetup",
		Capacity:     10,
		LocationText: "Park",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if offer.PaymentMode != enums.PaymentModeFull {
		t.Fatalf("expected full default, got %s", offer.PaymentMode)
	}
}

func TestCreateOfferValidation(t *testing.T) {
	t.Parallel()

	svc, _ := newOfferService(t)
	_, err := svc.Create(context.Background(), CreateOfferInput{
		PriceCents:   -1,
		DepositCents: -1,
	})
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok {
		t.Fatalf("expected field details, got %T", typed.Details())
	}
	for _, field := range []string{"creator_id", "title", "price_cents", "deposit_cents", "capacity", "location_text"} {
		if _, present := details[field]; !present {
			t.Fatalf("missing detail for %s: %v", field, details)
		}
	}
}

func TestGetOfferDetail(t *testing.T) {
	t.Parallel()

	svc, db := newOfferService(t)
	ctx := context.Background()

	offer, err := svc.Create(ctx, CreateOfferInput{
		CreatorID:    3,
		Title:        "Kayak tour",
		Capacity:     4,
		LocationText: "Dock",
		Slots:        []SlotInput{{StartAt: time.Now(), EndAt: time.Now().Add(time.Hour), Capacity: 4}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	claim := models.Claim{OfferID: offer.ID, UserID: 9, Status: enums.ClaimStatusPending}
	if err := db.Create(&claim).Error; err != nil {
		t.Fatalf("seed claim: %v", err)
	}
	claimed := models.Event{UserID: 3, Type: enums.EventTypeOfferClaimed, RefID: &claim.ID}
	if err := db.Create(&claimed).Error; err != nil {
		t.Fatalf("seed event: %v", err)
	}

	detail, err := svc.Get(ctx, offer.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(detail.Offer.Slots) != 1 {
		t.Fatalf("slots must be preloaded, got %d", len(detail.Offer.Slots))
	}
	if len(detail.Activity) != 2 {
		t.Fatalf("expected creation + claim activity, got %d", len(detail.Activity))
	}
}

func TestGetOfferNotFound(t *testing.T) {
	t.Parallel()

	svc, _ := newOfferService(t)
	_, err := svc.Get(context.Background(), 12345)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:offers_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.Offer{},
		&models.OfferSlot{},
		&models.Claim{},
		&models.Event{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}
