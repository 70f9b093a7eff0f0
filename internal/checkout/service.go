package checkout

import (
	"context"
	"fmt"
	"strconv"

	"github.com/offerhubhq/offerhub-backend/internal/claims"
	"github.com/offerhubhq/offerhub-backend/internal/events"
	"github.com/offerhubhq/offerhub-backend/internal/offers"
	"github.com/offerhubhq/offerhub-backend/internal/payments"
	"github.com/offerhubhq/offerhub-backend/internal/users"
	"github.com/offerhubhq/offerhub-backend/pkg/config"
	"github.com/offerhubhq/offerhub-backend/pkg/db/models"
	"github.com/offerhubhq/offerhub-backend/pkg/enums"
	pkgerrors "github.com/offerhubhq/offerhub-backend/pkg/errors"
	"github.com/stripe/stripe-go/v84"
	"gorm.io/gorm"
)

// Purpose names the payment leg a checkout session settles.
type Purpose string

const (
	PurposeDeposit Purpose = "deposit"
	PurposeBalance Purpose = "balance"
)

const defaultCurrency = "usd"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type sessionCreator interface {
	CreateCheckoutSession(ctx context.Context, params *stripe.CheckoutSessionCreateParams) (*stripe.CheckoutSession, error)
}

// Service starts hosted checkout for a claim's deposit or balance leg.
type Service interface {
	CreateSession(ctx context.Context, input CreateSessionInput) (*SessionResult, error)
}

// CreateSessionInput identifies the claim and the leg being paid.
type CreateSessionInput struct {
	ClaimID int64
	Purpose Purpose
}

// SessionResult points the client at the provider's hosted payment page.
// Zero-amount legs settle inline and return no URL.
type SessionResult struct {
	SessionID   string  `json:"session_id,omitempty"`
	URL         string  `json:"url,omitempty"`
	AmountCents int64   `json:"amount_cents"`
	Purpose     Purpose `json:"purpose"`
	Settled     bool    `json:"settled"`
}

type service struct {
	tx          txRunner
	provider    sessionCreator
	claimRepo   claims.Repository
	offerRepo   offers.Repository
	userRepo    users.Repository
	paymentRepo payments.Repository
	eventRepo   events.Repository
	cfg         config.CheckoutConfig
}

// NewService wires the checkout service.
func NewService(
	tx txRunner,
	provider sessionCreator,
	claimRepo claims.Repository,
	offerRepo offers.Repository,
	userRepo users.Repository,
	paymentRepo payments.Repository,
	eventRepo events.Repository,
	cfg config.CheckoutConfig,
) (Service, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "tx runner required")
	}
	if provider == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment provider required")
	}
	if claimRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "claim repository required")
	}
	if offerRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "offer repository required")
	}
	if userRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "user repository required")
	}
	if paymentRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment repository required")
	}
	if eventRepo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "event repository required")
	}
	return &service{
		tx:          tx,
		provider:    provider,
		claimRepo:   claimRepo,
		offerRepo:   offerRepo,
		userRepo:    userRepo,
		paymentRepo: paymentRepo,
		eventRepo:   eventRepo,
		cfg:         cfg,
	}, nil
}

func (s *service) CreateSession(ctx context.Context, input CreateSessionInput) (*SessionResult, error) {
	if input.ClaimID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "claim id is required")
	}
	purpose := input.Purpose
	if purpose == "" {
		purpose = PurposeDeposit
	}
	if purpose != PurposeDeposit && purpose != PurposeBalance {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "purpose must be deposit or balance")
	}

	claim, err := s.claimRepo.FindByID(ctx, input.ClaimID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load claim")
	}
	if claim == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "claim not found")
	}
	offer, err := s.offerRepo.FindByID(ctx, claim.OfferID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load offer")
	}
	if offer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "offer not found")
	}
	creator, err := s.userRepo.FindByID(ctx, offer.CreatorID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load creator")
	}
	if creator == nil || creator.PaymentAccountID == nil || *creator.PaymentAccountID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "offer creator has not connected a payment account")
	}

	amount := legAmount(claim, offer, purpose)
	if amount < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "nothing left to pay on this claim")
	}
	if amount == 0 {
		return s.settleZeroLeg(ctx, claim, offer, purpose)
	}

	metadata := map[string]string{
		"claim_id": strconv.FormatInt(claim.ID, 10),
		"purpose":  string(purpose),
	}
	params := &stripe.CheckoutSessionCreateParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(s.cfg.SuccessURL),
		CancelURL:  stripe.String(s.cfg.CancelURL),
		LineItems: []*stripe.CheckoutSessionCreateLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionCreateLineItemPriceDataParams{
					Currency:   stripe.String(defaultCurrency),
					UnitAmount: stripe.Int64(amount),
					ProductData: &stripe.CheckoutSessionCreateLineItemPriceDataProductDataParams{
						Name: stripe.String(lineItemName(offer.Title, purpose)),
					},
				},
			},
		},
		Metadata: metadata,
		PaymentIntentData: &stripe.CheckoutSessionCreatePaymentIntentDataParams{
			Metadata: metadata,
		},
	}

	session, err := s.provider.CreateCheckoutSession(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create checkout session")
	}

	pending := &models.Payment{
		ClaimID:     claim.ID,
		AmountCents: amount,
		Status:      enums.PaymentStatusPending,
		Provider:    enums.PaymentProviderStripe,
		ProviderRef: session.ID,
	}
	if err := s.paymentRepo.Create(ctx, pending); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record pending payment")
	}

	return &SessionResult{
		SessionID:   session.ID,
		URL:         session.URL,
		AmountCents: amount,
		Purpose:     purpose,
	}, nil
}

// settleZeroLeg records a zero-amount settlement without a provider round
// trip so the redemption gate sees a settled payment.
func (s *service) settleZeroLeg(ctx context.Context, claim *models.Claim, offer *models.Offer, purpose Purpose) (*SessionResult, error) {
	providerRef := fmt.Sprintf("zero:%d:%s", claim.ID, purpose)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		paymentRepo := s.paymentRepo.WithTx(tx)
		existing, err := paymentRepo.FindByProviderRef(ctx, providerRef)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "look up payment")
		}
		if existing != nil {
			return nil
		}
		payment := &models.Payment{
			ClaimID:     claim.ID,
			AmountCents: 0,
			Status:      enums.PaymentStatusZero,
			Provider:    enums.PaymentProviderStripe,
			ProviderRef: providerRef,
		}
		if err := paymentRepo.Create(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record zero payment")
		}

		if claim.Status == enums.ClaimStatusPending {
			claim.Status = enums.ClaimStatusDepositPaid
			if err := s.claimRepo.WithTx(tx).Update(ctx, claim); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update claim")
			}
			event := &models.Event{
				UserID: offer.CreatorID,
				Type:   enums.EventTypeDepositPaid,
				RefID:  &claim.ID,
			}
			if err := s.eventRepo.WithTx(tx).Create(ctx, event); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record deposit event")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &SessionResult{AmountCents: 0, Purpose: purpose, Settled: true}, nil
}

func legAmount(claim *models.Claim, offer *models.Offer, purpose Purpose) int64 {
	switch purpose {
	case PurposeDeposit:
		if offer.PaymentMode == enums.PaymentModeDeposit {
			return claim.DepositCents
		}
		return offer.PriceCents
	case PurposeBalance:
		if offer.PaymentMode == enums.PaymentModeDeposit {
			return offer.PriceCents - claim.DepositCents
		}
		return 0
	default:
		return 0
	}
}

func lineItemName(title string, purpose Purpose) string {
	if purpose == PurposeBalance {
		return title + " (balance)"
	}
	return title
}
