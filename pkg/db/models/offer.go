package models

import (
	"time"

	"github.com/offerhubhq/offerhub-backend/pkg/enums"
)

// Offer is a publishable deal owned by its creator. Price and deposit are
// snapshotted onto claims at claim time, so later edits never rewrite history.
type Offer struct {
	ID           int64             `gorm:"column:id;primaryKey;autoIncrement"`
	CreatorID    int64             `gorm:"column:creator_id;not null;index"`
	Title        string            `gorm:"column:title;not null"`
	PriceCents   int64             `gorm:"column:price_cents;not null"`
	DepositCents int64             `gorm:"column:deposit_cents;not null"`
	PaymentMode  enums.PaymentMode `gorm:"column:payment_mode;type:payment_mode;not null;default:'full'"`
	Capacity     int               `gorm:"column:capacity;not null"`
	LocationText string            `gorm:"column:location_text"`
	Description  *string           `gorm:"column:description"`
	ImageURL     *string           `gorm:"column:image_url"`
	CreatedAt    time.Time         `gorm:"column:created_at;autoCreateTime"`

	Slots []OfferSlot `gorm:"foreignKey:OfferID"`
}
