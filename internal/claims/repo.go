package claims

import (
	"context"
	"errors"

	"github.com/offerhubhq/offerhub-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository manages persistence for claims.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, claim *models.Claim) error
	FindByID(ctx context.Context, id int64) (*models.Claim, error)
	Update(ctx context.Context, claim *models.Claim) error
	ListByUser(ctx context.Context, userID int64) ([]models.Claim, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a claim repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, claim *models.Claim) error {
	return r.db.WithContext(ctx).Create(claim).Error
}

func (r *repository) FindByID(ctx context.Context, id int64) (*models.Claim, error) {
	var claim models.Claim
	err := r.db.WithContext(ctx).First(&claim, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &claim, nil
}

func (r *repository) Update(ctx context.Context, claim *models.Claim) error {
	return r.db.WithContext(ctx).Save(claim).Error
}

func (r *repository) ListByUser(ctx context.Context, userID int64) ([]models.Claim, error) {
	var list []models.Claim
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}
