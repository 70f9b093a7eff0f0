package models

import "time"

// ReferralLink maps an invite code to the inviter and offer it promotes.
// Codes are matched at claim time to attribute conversions.
type ReferralLink struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Code      string    `gorm:"column:code;not null;uniqueIndex:ux_referral_links_code"`
	InviterID int64     `gorm:"column:inviter_id;not null;index"`
	OfferID   int64     `gorm:"column:offer_id;not null;index"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
