package referrals

import (
	"context"
	"errors"

	"github.com/offerhubhq/offerhub-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository manages persistence for referral links.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, link *models.ReferralLink) error
	FindByCode(ctx context.Context, code string) (*models.ReferralLink, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a referral repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, link *models.ReferralLink) error {
	return r.db.WithContext(ctx).Create(link).Error
}

func (r *repository) FindByCode(ctx context.Context, code string) (*models.ReferralLink, error) {
	var link models.ReferralLink
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&link).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &link, nil
}
