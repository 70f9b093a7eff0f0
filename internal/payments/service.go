package payments

import (
	"context"
	"strconv"
	"time"

	"github.com/offerhubhq/offerhub-backend/internal/claims"
	"github.com/offerhubhq/offerhub-backend/internal/events"
	"github.com/offerhubhq/offerhub-backend/internal/offers"
	"github.com/offerhubhq/offerhub-backend/pkg/db/models"
	"github.com/offerhubhq/offerhub-backend/pkg/enums"
	pkgerrors "github.com/offerhubhq/offerhub-backend/pkg/errors"
	"github.com/offerhubhq/offerhub-backend/pkg/logger"
	"github.com/offerhubhq/offerhub-backend/pkg/metrics"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"
)

// Outcome describes what a reconciliation attempt did.
type Outcome string

const (
	OutcomeInserted        Outcome = "inserted"
	OutcomeAlreadyRecorded Outcome = "already_recorded"
	OutcomeNotPaid         Outcome = "not_paid"
)

const (
	pathPush = "push"
	pathPull = "pull"

	metadataClaimID = "claim_id"
	metadataPurpose = "purpose"

	purposeDeposit = "deposit"
	purposeBalance = "balance"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type sessionGetter interface {
	GetCheckoutSession(ctx context.Context, id string) (*stripe.CheckoutSession, error)
}

// Service reconciles provider payment outcomes into claims, payment rows, and
// feed events. The webhook path and the pull-based confirm path share one
// transactional core keyed on the provider ref, so either side can land first
// and the other converges to already_recorded.
type Service interface {
	RecordCheckoutCompleted(ctx context.Context, input RecordSessionInput) (Outcome, error)
	RecordBalanceSucceeded(ctx context.Context, input RecordBalanceInput) (Outcome, error)
	ConfirmSession(ctx context.Context, sessionID string) (*ConfirmResult, error)
}

// RecordSessionInput carries a completed checkout session's settlement facts.
type RecordSessionInput struct {
	SessionID       string
	PaymentIntentID *string
	ClaimID         int64
	AmountCents     int64
}

// RecordBalanceInput carries a succeeded balance payment intent.
type RecordBalanceInput struct {
	IntentID    string
	ClaimID     int64
	AmountCents int64
}

// ConfirmResult reports the pull-based confirmation outcome to the client.
type ConfirmResult struct {
	Status  Outcome `json:"status"`
	ClaimID int64   `json:"claim_id,omitempty"`
}

type service struct {
	tx        txRunner
	repo      Repository
	claimRepo claims.Repository
	offerRepo offers.Repository
	eventRepo events.Repository
	sessions  sessionGetter
	logger    *logger.Logger
	metrics   *metrics.WorkflowMetrics
}

// NewService wires the payment reconciliation service.
func NewService(
	tx txRunner,
	repo Repository,
	claimRepo claims.Repository,
	offerRepo offers.Repository,
	eventRepo events.Repository,
	sessions sessionGetter,
	logg *logger.Logger,
	workflowMetrics *metrics.WorkflowMetrics,
) (Service, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "tx runner required")
	}
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment repository required")
	}
	if claimRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "claim repository required")
	}
	if offerRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "offer repository required")
	}
	if eventRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "event repository required")
	}
	return &service{
		tx:        tx,
		repo:      repo,
		claimRepo: claimRepo,
		offerRepo: offerRepo,
		eventRepo: eventRepo,
		sessions:  sessions,
		logger:    logg,
		metrics:   workflowMetrics,
	}, nil
}

// RecordCheckoutCompleted applies a paid checkout session: claim moves to
// deposit_paid, the payment row keyed by the session id flips to paid, and
// DEPOSIT_PAID lands in the creator's feed. Replays short-circuit on the
// already-settled payment row and touch nothing else.
func (s *service) RecordCheckoutCompleted(ctx context.Context, input RecordSessionInput) (Outcome, error) {
	outcome, err := s.recordCheckoutCompleted(ctx, input)
	s.metrics.IncReconciliation(pathPush, reconcileLabel(outcome, err))
	return outcome, err
}

func (s *service) recordCheckoutCompleted(ctx context.Context, input RecordSessionInput) (Outcome, error) {
	if input.SessionID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	if input.ClaimID <= 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "claim id is required")
	}

	if s.logger != nil {
		ctx = s.logger.WithClaimID(ctx, input.ClaimID)
	}
	outcome := OutcomeInserted
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		paymentRepo := s.repo.WithTx(tx)
		existing, err := paymentRepo.FindByProviderRef(ctx, input.SessionID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up payment")
		}
		if existing != nil && existing.Status.Settled() {
			outcome = OutcomeAlreadyRecorded
			return nil
		}

		claim, offer, err := s.loadClaimAndOffer(ctx, tx, input.ClaimID)
		if err != nil {
			return err
		}

		// A redeemed claim never moves backwards; a late session event only
		// fills in the payment row.
		if claim.Status != enums.ClaimStatusRedeemed {
			claim.Status = enums.ClaimStatusDepositPaid
		}
		if input.PaymentIntentID != nil && *input.PaymentIntentID != "" {
			claim.DepositPaymentIntentID = input.PaymentIntentID
		}
		if err := s.claimRepo.WithTx(tx).Update(ctx, claim); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update claim")
		}

		if existing != nil {
			existing.Status = enums.PaymentStatusPaid
			existing.AmountCents = input.AmountCents
			if err := paymentRepo.Update(ctx, existing); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "settle payment")
			}
		} else {
			payment := &models.Payment{
				ClaimID:     claim.ID,
				AmountCents: input.AmountCents,
				Status:      enums.PaymentStatusPaid,
				Provider:    enums.PaymentProviderStripe,
				ProviderRef: input.SessionID,
			}
			if err := paymentRepo.Create(ctx, payment); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment")
			}
		}

		eventRepo := s.eventRepo.WithTx(tx)
		seen, err := eventRepo.HasForRef(ctx, enums.EventTypeDepositPaid, claim.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check deposit event")
		}
		if !seen {
			event := &models.Event{
				UserID: offer.CreatorID,
				Type:   enums.EventTypeDepositPaid,
				RefID:  &claim.ID,
			}
			if err := eventRepo.Create(ctx, event); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record deposit event")
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if s.logger != nil {
		s.logger.Info(ctx, "checkout session reconciled: "+string(outcome))
	}
	return outcome, nil
}

// RecordBalanceSucceeded applies a succeeded balance intent: claim moves to
// redeemed with a redemption timestamp and REDEEMED_IRL lands in the
// creator's feed. A pending session-keyed row left by checkout settles in
// place under the intent id. Idempotent on the intent id.
func (s *service) RecordBalanceSucceeded(ctx context.Context, input RecordBalanceInput) (Outcome, error) {
	outcome, err := s.recordBalanceSucceeded(ctx, input)
	s.metrics.IncReconciliation(pathPush, reconcileLabel(outcome, err))
	return outcome, err
}

func (s *service) recordBalanceSucceeded(ctx context.Context, input RecordBalanceInput) (Outcome, error) {
	if input.IntentID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "payment intent id is required")
	}
	if input.ClaimID <= 0 {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "claim id is required")
	}

	if s.logger != nil {
		ctx = s.logger.WithClaimID(ctx, input.ClaimID)
	}
	outcome := OutcomeInserted
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		paymentRepo := s.repo.WithTx(tx)
		existing, err := paymentRepo.FindByProviderRef(ctx, input.IntentID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up payment")
		}
		if existing != nil && existing.Status.Settled() {
			outcome = OutcomeAlreadyRecorded
			return nil
		}

		claim, offer, err := s.loadClaimAndOffer(ctx, tx, input.ClaimID)
		if err != nil {
			return err
		}

		now := time.Now().UTC()
		claim.Status = enums.ClaimStatusRedeemed
		claim.BalancePaymentIntentID = &input.IntentID
		if claim.RedeemedAt == nil {
			claim.RedeemedAt = &now
		}
		if err := s.claimRepo.WithTx(tx).Update(ctx, claim); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update claim")
		}

		// The checkout session left a pending row keyed by the session id;
		// settle it in place under the intent id so both reconciliation paths
		// converge on one ref and no pending row lingers.
		pending, err := paymentRepo.LatestForClaim(ctx, claim.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pending payment")
		}
		if pending != nil && !pending.Status.Settled() {
			pending.Status = enums.PaymentStatusSucceeded
			pending.AmountCents = input.AmountCents
			pending.ProviderRef = input.IntentID
			if err := paymentRepo.Update(ctx, pending); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "settle payment")
			}
		} else {
			payment := &models.Payment{
				ClaimID:     claim.ID,
				AmountCents: input.AmountCents,
				Status:      enums.PaymentStatusSucceeded,
				Provider:    enums.PaymentProviderStripe,
				ProviderRef: input.IntentID,
			}
			if err := paymentRepo.Create(ctx, payment); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payment")
			}
		}

		eventRepo := s.eventRepo.WithTx(tx)
		seen, err := eventRepo.HasForRef(ctx, enums.EventTypeRedeemedIRL, claim.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check redemption event")
		}
		if !seen {
			event := &models.Event{
				UserID: offer.CreatorID,
				Type:   enums.EventTypeRedeemedIRL,
				RefID:  &claim.ID,
			}
			if err := eventRepo.Create(ctx, event); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record redemption event")
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if s.logger != nil {
		s.logger.Info(ctx, "balance intent reconciled: "+string(outcome))
	}
	return outcome, nil
}

// ConfirmSession is the pull path: the client returns from hosted checkout and
// asks us to verify the session directly with the provider instead of waiting
// for the webhook. Not-yet-paid sessions report not_paid without side effects.
func (s *service) ConfirmSession(ctx context.Context, sessionID string) (*ConfirmResult, error) {
	result, err := s.confirmSession(ctx, sessionID)
	if err != nil {
		s.metrics.IncReconciliation(pathPull, "error")
		return nil, err
	}
	s.metrics.IncReconciliation(pathPull, string(result.Status))
	return result, nil
}

func (s *service) confirmSession(ctx context.Context, sessionID string) (*ConfirmResult, error) {
	if sessionID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	if s.sessions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment provider not configured")
	}

	session, err := s.sessions.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "retrieve checkout session")
	}
	if session.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid &&
		session.PaymentStatus != stripe.CheckoutSessionPaymentStatusNoPaymentRequired {
		return &ConfirmResult{Status: OutcomeNotPaid}, nil
	}

	claimID, err := ClaimIDFromMetadata(session.Metadata)
	if err != nil {
		return nil, err
	}

	// A balance-purpose session must land through the same path and ref the
	// webhook uses, or the two sides stop converging.
	if IsBalancePurpose(session.Metadata) {
		ref := session.ID
		if session.PaymentIntent != nil && session.PaymentIntent.ID != "" {
			ref = session.PaymentIntent.ID
		}
		outcome, err := s.recordBalanceSucceeded(ctx, RecordBalanceInput{
			IntentID:    ref,
			ClaimID:     claimID,
			AmountCents: session.AmountTotal,
		})
		if err != nil {
			return nil, err
		}
		return &ConfirmResult{Status: outcome, ClaimID: claimID}, nil
	}

	input := RecordSessionInput{
		SessionID:   session.ID,
		ClaimID:     claimID,
		AmountCents: session.AmountTotal,
	}
	if session.PaymentIntent != nil && session.PaymentIntent.ID != "" {
		intentID := session.PaymentIntent.ID
		input.PaymentIntentID = &intentID
	}

	outcome, err := s.recordCheckoutCompleted(ctx, input)
	if err != nil {
		return nil, err
	}
	return &ConfirmResult{Status: outcome, ClaimID: claimID}, nil
}

func (s *service) loadClaimAndOffer(ctx context.Context, tx *gorm.DB, claimID int64) (*models.Claim, *models.Offer, error) {
	claim, err := s.claimRepo.WithTx(tx).FindByID(ctx, claimID)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load claim")
	}
	if claim == nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "claim not found")
	}
	offer, err := s.offerRepo.WithTx(tx).FindByID(ctx, claim.OfferID)
	if err != nil {
		return nil, nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load offer")
	}
	if offer == nil {
		return nil, nil, pkgerrors.New(pkgerrors.CodeNotFound, "offer not found")
	}
	return claim, offer, nil
}

// ClaimIDFromMetadata extracts the claim id we stamp on provider objects when
// creating checkout sessions and payment intents.
func ClaimIDFromMetadata(metadata map[string]string) (int64, error) {
	raw, ok := metadata[metadataClaimID]
	if !ok || raw == "" {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "provider object is missing claim metadata")
	}
	claimID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || claimID <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "provider claim metadata is not a valid id")
	}
	return claimID, nil
}

// PurposeFromMetadata reads the payment leg purpose stamped on provider
// objects. Missing purpose defaults to deposit for backward compatibility
// with sessions created before the balance flow existed.
func PurposeFromMetadata(metadata map[string]string) string {
	purpose := metadata[metadataPurpose]
	if purpose == "" {
		return purposeDeposit
	}
	return purpose
}

// IsBalancePurpose reports whether a provider object belongs to the balance
// settlement leg.
func IsBalancePurpose(metadata map[string]string) bool {
	return PurposeFromMetadata(metadata) == purposeBalance
}

func reconcileLabel(outcome Outcome, err error) string {
	if err == nil {
		return string(outcome)
	}
	if typed := pkgerrors.As(err); typed != nil {
		switch typed.Code() {
		case pkgerrors.CodeNotFound:
			return "not_found"
		case pkgerrors.CodeValidation:
			return "invalid"
		}
	}
	return "error"
}
