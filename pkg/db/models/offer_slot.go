package models

import "time"

// OfferSlot is a time-bounded capacity bucket under an offer.
// RemainingCapacity is decremented exactly once per successful claim, under a
// row lock held for the duration of the claim transaction.
type OfferSlot struct {
	ID                int64     `gorm:"column:id;primaryKey;autoIncrement"`
	OfferID           int64     `gorm:"column:offer_id;not null;index"`
	StartAt           time.Time `gorm:"column:start_at;not null"`
	EndAt             time.Time `gorm:"column:end_at;not null"`
	RemainingCapacity int       `gorm:"column:remaining_capacity;not null"`
}
