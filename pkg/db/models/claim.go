package models

import (
	"time"

	"github.com/offerhubhq/offerhub-backend/pkg/enums"
)

// Claim is a user's reservation against an offer, optionally pinned to a slot.
// DepositCents is copied from the offer at claim time.
type Claim struct {
	ID                     int64             `gorm:"column:id;primaryKey;autoIncrement"`
	OfferID                int64             `gorm:"column:offer_id;not null;index"`
	UserID                 int64             `gorm:"column:user_id;not null;index"`
	SlotID                 *int64            `gorm:"column:slot_id"`
	Address                *string           `gorm:"column:address"`
	DepositCents           int64             `gorm:"column:deposit_cents;not null"`
	Status                 enums.ClaimStatus `gorm:"column:status;type:claim_status;not null;default:'pending'"`
	DepositPaymentIntentID *string           `gorm:"column:deposit_payment_intent_id"`
	BalancePaymentIntentID *string           `gorm:"column:balance_payment_intent_id"`
	RedeemedAt             *time.Time        `gorm:"column:redeemed_at"`
	CreatedAt              time.Time         `gorm:"column:created_at;autoCreateTime"`
}
