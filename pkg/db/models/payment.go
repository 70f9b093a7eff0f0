package models

import (
	"time"

	"github.com/offerhubhq/offerhub-backend/pkg/enums"
)

// Payment records one settled or pending payment leg for a claim. ProviderRef
// holds the provider-issued session/intent id and is the idempotency key for
// webhook and pull-based reconciliation.
type Payment struct {
	ID          int64                 `gorm:"column:id;primaryKey;autoIncrement"`
	ClaimID     int64                 `gorm:"column:claim_id;not null;index"`
	AmountCents int64                 `gorm:"column:amount_cents;not null"`
	Status      enums.PaymentStatus   `gorm:"column:status;type:payment_status;not null;default:'pending'"`
	Provider    enums.PaymentProvider `gorm:"column:provider;type:payment_provider;not null;default:'stripe'"`
	ProviderRef string                `gorm:"column:provider_ref;not null;uniqueIndex:ux_payments_provider_ref"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
}
