package capacity

import (
	"context"
	"errors"

	"github.com/offerhubhq/offerhub-backend/pkg/db/models"
	pkgerrors "github.com/offerhubhq/offerhub-backend/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrSlotExhausted is returned when a slot has no remaining capacity at lock
// time. Callers surface it as a conflict rather than retrying.
var ErrSlotExhausted = pkgerrors.New(pkgerrors.CodeConflict, "slot is full")

// ErrSlotNotFound is returned when the slot does not exist under the offer.
var ErrSlotNotFound = pkgerrors.New(pkgerrors.CodeNotFound, "slot not found")

// ReserveSlotUnit locks the slot row for the duration of tx, verifies it
// belongs to the offer and still has capacity, and decrements by one. The
// read-then-write under lock serializes concurrent claims on the same slot;
// the loser observes ErrSlotExhausted instead of a negative counter.
//
// Must be called inside the claim transaction: the decrement commits or rolls
// back together with the claim insert.
func ReserveSlotUnit(ctx context.Context, tx *gorm.DB, slotID, offerID int64) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "transaction handle required")
	}
	if slotID <= 0 || offerID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "slot id and offer id are required")
	}

	q := tx.WithContext(ctx)
	// SQLite (tests) serializes writers at the database level and rejects
	// FOR UPDATE syntax; the lock clause only applies on Postgres.
	if tx.Dialector.Name() == "postgres" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var slot models.OfferSlot
	err := q.Where("id = ? AND offer_id = ?", slotID, offerID).First(&slot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSlotNotFound
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock slot")
	}

	if slot.RemainingCapacity <= 0 {
		return ErrSlotExhausted
	}

	err = tx.WithContext(ctx).
		Model(&models.OfferSlot{}).
		Where("id = ?", slot.ID).
		Update("remaining_capacity", slot.RemainingCapacity-1).Error
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement slot capacity")
	}
	return nil
}
