package capacity

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/offerhubhq/offerhub-backend/pkg/db/models"
	pkgerrors "github.com/offerhubhq/offerhub-backend/pkg/errors"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func TestReserveSlotUnit(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()

	slot := models.OfferSlot{
		OfferID:           41,
		StartAt:           time.Now(),
		EndAt:             time.Now().Add(time.Hour),
		RemainingCapacity: 2,
	}
	if err := db.Create(&slot).Error; err != nil {
		t.Fatalf("seed slot: %v", err)
	}

	for i := 0; i < 2; i++ {
		err := db.Transaction(func(tx *gorm.DB) error {
			return ReserveSlotUnit(ctx, tx, slot.ID, 41)
		})
		if err != nil {
			t.Fatalf("reserve %d: %v", i, err)
		}
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		return ReserveSlotUnit(ctx, tx, slot.ID, 41)
	})
	if err != ErrSlotExhausted {
		t.Fatalf("expected ErrSlotExhausted, got %v", err)
	}

	var stored models.OfferSlot
	if err := db.First(&stored, slot.ID).Error; err != nil {
		t.Fatalf("load slot: %v", err)
	}
	if stored.RemainingCapacity != 0 {
		t.Fatalf("expected remaining capacity 0, got %d", stored.RemainingCapacity)
	}
}

func TestReserveSlotUnitWrongOffer(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()

	slot := models.OfferSlot{
		OfferID:           7,
		StartAt:           time.Now(),
		EndAt:             time.Now().Add(time.Hour),
		RemainingCapacity: 1,
	}
	if err := db.Create(&slot).Error; err != nil {
		t.Fatalf("seed slot: %v", err)
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		return ReserveSlotUnit(ctx, tx, slot.ID, 8)
	})
	if err != ErrSlotNotFound {
		t.Fatalf("expected ErrSlotNotFound, got %v", err)
	}

	var stored models.OfferSlot
	if err := db.First(&stored, slot.ID).Error; err != nil {
		t.Fatalf("load slot: %v", err)
	}
	if stored.RemainingCapacity != 1 {
		t.Fatalf("capacity must be untouched, got %d", stored.RemainingCapacity)
	}
}

func TestReserveSlotUnitRollback(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	ctx := context.Background()

	slot := models.OfferSlot{
		OfferID:           12,
		StartAt:           time.Now(),
		EndAt:             time.Now().Add(time.Hour),
		RemainingCapacity: 3,
	}
	if err := db.Create(&slot).Error; err != nil {
		t.Fatalf("seed slot: %v", err)
	}

	failure := pkgerrors.New(pkgerrors.CodeInternal, "claim insert failed")
	err := db.Transaction(func(tx *gorm.DB) error {
		if rerr := ReserveSlotUnit(ctx, tx, slot.ID, 12); rerr != nil {
			t.Fatalf("reserve: %v", rerr)
		}
		return failure
	})
	if err != failure {
		t.Fatalf("expected injected failure, got %v", err)
	}

	var stored models.OfferSlot
	if err := db.First(&stored, slot.ID).Error; err != nil {
		t.Fatalf("load slot: %v", err)
	}
	if stored.RemainingCapacity != 3 {
		t.Fatalf("rollback must restore capacity, got %d", stored.RemainingCapacity)
	}
}

func TestReserveSlotUnitInvalidIDs(t *testing.T) {
	t.Parallel()

	db := newTestDB(t)
	err := db.Transaction(func(tx *gorm.DB) error {
		return ReserveSlotUnit(context.Background(), tx, 0, 1)
	})
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("unexpected error: %v", err)
	}
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:capacity_" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.OfferSlot{}); err != nil {
		t.Fatalf("migrate offer slots: %v", err)
	}
	return db
}
