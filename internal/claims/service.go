package claims

import (
	"context"
	"time"

	"github.com/offerhubhq/offerhub-backend/internal/capacity"
	"github.com/offerhubhq/offerhub-backend/internal/events"
	"github.com/offerhubhq/offerhub-backend/internal/offers"
	"github.com/offerhubhq/offerhub-backend/internal/referrals"
	"github.com/offerhubhq/offerhub-backend/pkg/db/models"
	"github.com/offerhubhq/offerhub-backend/pkg/enums"
	pkgerrors "github.com/offerhubhq/offerhub-backend/pkg/errors"
	"github.com/offerhubhq/offerhub-backend/pkg/metrics"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type slotReserver func(ctx context.Context, tx *gorm.DB, slotID, offerID int64) error

// Service runs the claim workflow: offer lookup, slot reservation, claim
// insert, referral attribution, and event emission as one transaction.
type Service interface {
	Create(ctx context.Context, input CreateClaimInput) (*CreateClaimResult, error)
	Get(ctx context.Context, claimID int64) (*models.Claim, error)
}

// CreateClaimInput carries the validated claim request.
type CreateClaimInput struct {
	OfferID      int64
	UserID       int64
	SlotID       *int64
	Address      *string
	ReferralCode *string
}

// CreateClaimResult returns the committed claim plus the offer's payment mode,
// which the caller needs to decide whether to redirect into checkout.
type CreateClaimResult struct {
	Claim       *models.Claim
	PaymentMode enums.PaymentMode
}

type service struct {
	tx           txRunner
	repo         Repository
	offerRepo    offers.Repository
	referralRepo referrals.Repository
	eventRepo    events.Repository
	reserve      slotReserver
	metrics      *metrics.WorkflowMetrics
}

// NewService wires the claim workflow service.
func NewService(
	tx txRunner,
	repo Repository,
	offerRepo offers.Repository,
	referralRepo referrals.Repository,
	eventRepo events.Repository,
	workflowMetrics *metrics.WorkflowMetrics,
) (Service, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "tx runner required")
	}
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "claim repository required")
	}
	if offerRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "offer repository required")
	}
	if referralRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "referral repository required")
	}
	if eventRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "event repository required")
	}
	return &service{
		tx:           tx,
		repo:         repo,
		offerRepo:    offerRepo,
		referralRepo: referralRepo,
		eventRepo:    eventRepo,
		reserve:      capacity.ReserveSlotUnit,
		metrics:      workflowMetrics,
	}, nil
}

func (s *service) Create(ctx context.Context, input CreateClaimInput) (*CreateClaimResult, error) {
	start := time.Now()
	result, err := s.create(ctx, input)
	s.metrics.ObserveClaim(outcomeLabel(err), time.Since(start))
	return result, err
}

func (s *service) create(ctx context.Context, input CreateClaimInput) (*CreateClaimResult, error) {
	if input.OfferID <= 0 || input.UserID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "offer id and user id are required")
	}
	if input.SlotID != nil && *input.SlotID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "slot id must be positive")
	}

	var result *CreateClaimResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		offer, err := s.offerRepo.WithTx(tx).FindByID(ctx, input.OfferID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load offer")
		}
		if offer == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "offer not found")
		}

		if input.SlotID != nil {
			if err := s.reserve(ctx, tx, *input.SlotID, offer.ID); err != nil {
				return err
			}
		}

		claim := &models.Claim{
			OfferID: offer.ID,
			UserID:  input.UserID,
			SlotID:  input.SlotID,
			Address: input.Address,
			// Snapshot: later offer edits must not rewrite this claim.
			DepositCents: offer.DepositCents,
			Status:       enums.ClaimStatusPending,
		}
		if err := s.repo.WithTx(tx).Create(ctx, claim); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create claim")
		}

		eventRepo := s.eventRepo.WithTx(tx)
		claimed := &models.Event{
			UserID: offer.CreatorID,
			Type:   enums.EventTypeOfferClaimed,
			RefID:  &claim.ID,
		}
		if err := eventRepo.Create(ctx, claimed); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record claim event")
		}

		if input.ReferralCode != nil && *input.ReferralCode != "" {
			link, err := s.referralRepo.WithTx(tx).FindByCode(ctx, *input.ReferralCode)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve referral code")
			}
			// Unknown codes are ignored: a stale invite must not block the claim.
			if link != nil {
				converted := &models.Event{
					UserID: link.InviterID,
					Type:   enums.EventTypeReferralConverted,
					RefID:  &claim.ID,
				}
				if err := eventRepo.Create(ctx, converted); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record conversion event")
				}
			}
		}

		result = &CreateClaimResult{Claim: claim, PaymentMode: offer.PaymentMode}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *service) Get(ctx context.Context, claimID int64) (*models.Claim, error) {
	if claimID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "claim id is required")
	}
	claim, err := s.repo.FindByID(ctx, claimID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load claim")
	}
	if claim == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "claim not found")
	}
	return claim, nil
}

func outcomeLabel(err error) string {
	if err == nil {
		return "created"
	}
	if typed := pkgerrors.As(err); typed != nil {
		switch typed.Code() {
		case pkgerrors.CodeConflict:
			return "slot_full"
		case pkgerrors.CodeNotFound:
			return "not_found"
		case pkgerrors.CodeValidation:
			return "invalid"
		}
	}
	return "error"
}
