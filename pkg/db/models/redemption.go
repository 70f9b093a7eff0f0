package models

import "time"

// Redemption is the terminal confirmation that a claim was fulfilled in
// person. The unique claim_id index makes re-redemption a no-op.
type Redemption struct {
	ID         int64     `gorm:"column:id;primaryKey;autoIncrement"`
	ClaimID    int64     `gorm:"column:claim_id;not null;uniqueIndex:ux_redemptions_claim_id"`
	RedeemedAt time.Time `gorm:"column:redeemed_at;not null"`
}
