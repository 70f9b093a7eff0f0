package redemptions

import (
	"context"
	"errors"

	"github.com/offerhubhq/offerhub-backend/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository manages persistence for redemption records.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	InsertIfAbsent(ctx context.Context, redemption *models.Redemption) (bool, error)
	FindByClaim(ctx context.Context, claimID int64) (*models.Redemption, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a redemption repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// InsertIfAbsent inserts the redemption unless one already exists for the
// claim. It reports whether a row was written.
func (r *repository) InsertIfAbsent(ctx context.Context, redemption *models.Redemption) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "claim_id"}},
			DoNothing: true,
		}).
		Create(redemption)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *repository) FindByClaim(ctx context.Context, claimID int64) (*models.Redemption, error) {
	var redemption models.Redemption
	err := r.db.WithContext(ctx).Where("claim_id = ?", claimID).First(&redemption).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &redemption, nil
}
