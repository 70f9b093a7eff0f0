package offers

import (
	"context"
	"errors"

	"github.com/offerhubhq/offerhub-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository manages persistence for offers and their slots.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, offer *models.Offer) error
	FindByID(ctx context.Context, id int64) (*models.Offer, error)
	FindByIDWithSlots(ctx context.Context, id int64) (*models.Offer, error)
	List(ctx context.Context, limit int) ([]models.Offer, error)
	ListByCreator(ctx context.Context, creatorID int64) ([]models.Offer, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an offer repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, offer *models.Offer) error {
	return r.db.WithContext(ctx).Create(offer).Error
}

func (r *repository) FindByID(ctx context.Context, id int64) (*models.Offer, error) {
	var offer models.Offer
	err := r.db.WithContext(ctx).First(&offer, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &offer, nil
}

func (r *repository) FindByIDWithSlots(ctx context.Context, id int64) (*models.Offer, error) {
	var offer models.Offer
	err := r.db.WithContext(ctx).Preload("Slots").First(&offer, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &offer, nil
}

func (r *repository) List(ctx context.Context, limit int) ([]models.Offer, error) {
	var offers []models.Offer
	q := r.db.WithContext(ctx).Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&offers).Error; err != nil {
		return nil, err
	}
	return offers, nil
}

func (r *repository) ListByCreator(ctx context.Context, creatorID int64) ([]models.Offer, error) {
	var offers []models.Offer
	err := r.db.WithContext(ctx).
		Where("creator_id = ?", creatorID).
		Order("created_at DESC, id DESC").
		Find(&offers).Error
	if err != nil {
		return nil, err
	}
	return offers, nil
}
