package payments

import (
	"context"
	"errors"

	"github.com/offerhubhq/offerhub-backend/pkg/db/models"
	"github.com/offerhubhq/offerhub-backend/pkg/enums"
	"gorm.io/gorm"
)

// Repository manages persistence for payment legs.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payment *models.Payment) error
	Update(ctx context.Context, payment *models.Payment) error
	FindByProviderRef(ctx context.Context, providerRef string) (*models.Payment, error)
	LatestForClaim(ctx context.Context, claimID int64) (*models.Payment, error)
	LastSettledAmountForCreator(ctx context.Context, creatorID int64) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payment repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repository) Update(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Save(payment).Error
}

func (r *repository) FindByProviderRef(ctx context.Context, providerRef string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).Where("provider_ref = ?", providerRef).First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

func (r *repository) LatestForClaim(ctx context.Context, claimID int64) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Where("claim_id = ?", claimID).
		Order("created_at DESC, id DESC").
		First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

func (r *repository) LastSettledAmountForCreator(ctx context.Context, creatorID int64) (int64, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Joins("JOIN claims ON claims.id = payments.claim_id").
		Joins("JOIN offers ON offers.id = claims.offer_id").
		Where("offers.creator_id = ? AND payments.status IN ?", creatorID, []enums.PaymentStatus{
			enums.PaymentStatusPaid,
			enums.PaymentStatusSucceeded,
			enums.PaymentStatusZero,
		}).
		Order("payments.created_at DESC, payments.id DESC").
		First(&payment).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return payment.AmountCents, nil
}
