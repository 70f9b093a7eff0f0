package events

import (
	"context"

	"github.com/offerhubhq/offerhub-backend/pkg/db/models"
	"github.com/offerhubhq/offerhub-backend/pkg/enums"
	"gorm.io/gorm"
)

// Repository manages persistence for activity feed events.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, event *models.Event) error
	ListForUser(ctx context.Context, userID int64, limit int) ([]models.Event, error)
	ListForOffer(ctx context.Context, offerID int64, limit int) ([]models.Event, error)
	HasForRef(ctx context.Context, eventType enums.EventType, refID int64) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns an event repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, event *models.Event) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) ListForUser(ctx context.Context, userID int64, limit int) ([]models.Event, error) {
	var events []models.Event
	q := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *repository) ListForOffer(ctx context.Context, offerID int64, limit int) ([]models.Event, error) {
	claimIDs := r.db.Model(&models.Claim{}).Select("id").Where("offer_id = ?", offerID)

	var events []models.Event
	q := r.db.WithContext(ctx).
		Where("(type = ? AND ref_id = ?) OR ref_id IN (?)", enums.EventTypeOfferCreated, offerID, claimIDs).
		Order("created_at DESC, id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}

func (r *repository) HasForRef(ctx context.Context, eventType enums.EventType, refID int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Event{}).
		Where("type = ? AND ref_id = ?", eventType, refID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
