package redemptions

import (
	"context"
	"time"

	"github.com/offerhubhq/offerhub-backend/internal/claims"
	"github.com/offerhubhq/offerhub-backend/internal/events"
	"github.com/offerhubhq/offerhub-backend/internal/offers"
	"github.com/offerhubhq/offerhub-backend/internal/payments"
	"github.com/offerhubhq/offerhub-backend/pkg/db/models"
	"github.com/offerhubhq/offerhub-backend/pkg/enums"
	pkgerrors "github.com/offerhubhq/offerhub-backend/pkg/errors"
	"gorm.io/gorm"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service completes claims in person. Only the offer's creator may redeem,
// and priced claims must be settled first.
type Service interface {
	Redeem(ctx context.Context, claimID, actingUserID int64) (*RedeemResult, error)
}

// RedeemResult carries the redemption record plus the creator's most recent
// settled amount, shown to the creator as a sanity check at handoff.
type RedeemResult struct {
	Redemption      *models.Redemption
	Claim           *models.Claim
	AlreadyRedeemed bool
	LastPaidCents   int64
}

type service struct {
	tx          txRunner
	repo        Repository
	claimRepo   claims.Repository
	offerRepo   offers.Repository
	paymentRepo payments.Repository
	eventRepo   events.Repository
}

// NewService wires the redemption service.
func NewService(
	tx txRunner,
	repo Repository,
	claimRepo claims.Repository,
	offerRepo offers.Repository,
	paymentRepo payments.Repository,
	eventRepo events.Repository,
) (Service, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "tx runner required")
	}
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "redemption repository required")
	}
	if claimRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "claim repository required")
	}
	if offerRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "offer repository required")
	}
	if paymentRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment repository required")
	}
	if eventRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "event repository required")
	}
	return &service{
		tx:          tx,
		repo:        repo,
		claimRepo:   claimRepo,
		offerRepo:   offerRepo,
		paymentRepo: paymentRepo,
		eventRepo:   eventRepo,
	}, nil
}

func (s *service) Redeem(ctx context.Context, claimID, actingUserID int64) (*RedeemResult, error) {
	if claimID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "claim id is required")
	}
	if actingUserID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}

	var result *RedeemResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		claimRepo := s.claimRepo.WithTx(tx)
		claim, err := claimRepo.FindByID(ctx, claimID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load claim")
		}
		if claim == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "claim not found")
		}

		offer, err := s.offerRepo.WithTx(tx).FindByID(ctx, claim.OfferID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load offer")
		}
		if offer == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "offer not found")
		}
		if offer.CreatorID != actingUserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "only the offer creator can redeem a claim")
		}

		paymentRepo := s.paymentRepo.WithTx(tx)
		if err := s.checkSettled(ctx, paymentRepo, claim, offer); err != nil {
			return err
		}

		now := time.Now().UTC()
		inserted, err := s.repo.WithTx(tx).InsertIfAbsent(ctx, &models.Redemption{
			ClaimID:    claim.ID,
			RedeemedAt: now,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record redemption")
		}

		if inserted {
			claim.Status = enums.ClaimStatusRedeemed
			if claim.RedeemedAt == nil {
				claim.RedeemedAt = &now
			}
			if err := claimRepo.Update(ctx, claim); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update claim")
			}
			event := &models.Event{
				UserID: offer.CreatorID,
				Type:   enums.EventTypeRedemptionCompleted,
				RefID:  &claim.ID,
			}
			if err := s.eventRepo.WithTx(tx).Create(ctx, event); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record redemption event")
			}
		}

		redemption, err := s.repo.WithTx(tx).FindByClaim(ctx, claim.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load redemption")
		}

		lastPaid, err := paymentRepo.LastSettledAmountForCreator(ctx, offer.CreatorID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load last paid amount")
		}

		result = &RedeemResult{
			Redemption:      redemption,
			Claim:           claim,
			AlreadyRedeemed: !inserted,
			LastPaidCents:   lastPaid,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// checkSettled enforces the payment gate. Free offers and pay-in-person
// offers redeem without an online payment; anything priced needs a settled
// leg first. Deposit mode settles on the deposit alone.
func (s *service) checkSettled(ctx context.Context, paymentRepo payments.Repository, claim *models.Claim, offer *models.Offer) error {
	if offer.PriceCents == 0 || offer.PaymentMode == enums.PaymentModePayInPerson {
		return nil
	}
	latest, err := paymentRepo.LatestForClaim(ctx, claim.ID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	if latest == nil {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "claim has no settled payment")
	}
	if !latest.Status.Settled() {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "claim payment is still pending")
	}
	return nil
}
