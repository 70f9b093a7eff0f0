package offers

import (
	"context"
	"time"

	"github.com/offerhubhq/offerhub-backend/internal/events"
	"github.com/offerhubhq/offerhub-backend/pkg/db/models"
	"github.com/offerhubhq/offerhub-backend/pkg/enums"
	pkgerrors "github.com/offerhubhq/offerhub-backend/pkg/errors"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service publishes offers and serves offer detail aggregations.
type Service interface {
	Create(ctx context.Context, input CreateOfferInput) (*models.Offer, error)
	Get(ctx context.Context, offerID int64) (*OfferDetail, error)
	List(ctx context.Context, limit int) ([]models.Offer, error)
}

// CreateOfferInput carries a validated offer payload.
type CreateOfferInput struct {
	CreatorID    int64
	Title        string
	PriceCents   int64
	DepositCents int64
	PaymentMode  enums.PaymentMode
	Capacity     int
	LocationText string
	Description  *string
	ImageURL     *string
	Slots        []SlotInput
}

// SlotInput describes one time-bounded capacity bucket created with the offer.
type SlotInput struct {
	StartAt  time.Time
	EndAt    time.Time
	Capacity int
}

// OfferDetail is the offer page aggregation: offer, slots, recent activity.
type OfferDetail struct {
	Offer    *models.Offer
	Activity []models.Event
}

type service struct {
	tx        txRunner
	repo      Repository
	eventRepo events.Repository
}

// NewService wires the offer service.
func NewService(tx txRunner, repo Repository, eventRepo events.Repository) (Service, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "tx runner required")
	}
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "offer repository required")
	}
	if eventRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "event repository required")
	}
	return &service{tx: tx, repo: repo, eventRepo: eventRepo}, nil
}

func (s *service) Create(ctx context.Context, input CreateOfferInput) (*models.Offer, error) {
	if err := validateCreate(input); err != nil {
		return nil, err
	}

	mode := input.PaymentMode
	if mode == "" {
		mode = enums.PaymentModeFull
	}

	offer := &models.Offer{
		CreatorID:    input.CreatorID,
		Title:        input.Title,
		PriceCents:   input.PriceCents,
		DepositCents: input.DepositCents,
		PaymentMode:  mode,
		Capacity:     input.Capacity,
		LocationText: input.LocationText,
		Description:  input.Description,
		ImageURL:     input.ImageURL,
	}
	for _, slot := range input.Slots {
		offer.Slots = append(offer.Slots, models.OfferSlot{
			StartAt:           slot.StartAt,
			EndAt:             slot.EndAt,
			RemainingCapacity: slot.Capacity,
		})
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, offer); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create offer")
		}
		event := &models.Event{
			UserID: offer.CreatorID,
			Type:   enums.EventTypeOfferCreated,
			RefID:  &offer.ID,
		}
		if err := s.eventRepo.WithTx(tx).Create(ctx, event); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record offer event")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return offer, nil
}

func (s *service) Get(ctx context.Context, offerID int64) (*OfferDetail, error) {
	if offerID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "offer id is required")
	}
	offer, err := s.repo.FindByIDWithSlots(ctx, offerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load offer")
	}
	if offer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "offer not found")
	}
	activity, err := s.eventRepo.ListForOffer(ctx, offerID, 20)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load offer activity")
	}
	return &OfferDetail{Offer: offer, Activity: activity}, nil
}

func (s *service) List(ctx context.Context, limit int) ([]models.Offer, error) {
	return s.repo.List(ctx, limit)
}

func validateCreate(input CreateOfferInput) error {
	details := map[string]string{}
	if input.CreatorID <= 0 {
		details["creator_id"] = "is required"
	}
	if input.Title == "" {
		details["title"] = "is required"
	}
	if input.PriceCents < 0 {
		details["price_cents"] = "must be at least 0"
	}
	if input.DepositCents < 0 {
		details["deposit_cents"] = "must be at least 0"
	}
	if input.Capacity <= 0 {
		details["capacity"] = "must be at least 1"
	}
	if input.LocationText == "" {
		details["location_text"] = "is required"
	}
	if input.PaymentMode != "" && !input.PaymentMode.IsValid() {
		details["payment_mode"] = "is invalid"
	}
	for _, slot := range input.Slots {
		if slot.Capacity <= 0 {
			details["slots"] = "slot capacity must be at least 1"
		}
		if !slot.EndAt.After(slot.StartAt) {
			details["slots"] = "slot end must be after start"
		}
	}
	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "validation failed").WithDetails(details)
	}
	return nil
}
