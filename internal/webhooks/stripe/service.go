package stripe

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/offerhubhq/offerhub-backend/internal/payments"
	pkgerrors "github.com/offerhubhq/offerhub-backend/pkg/errors"
	"github.com/offerhubhq/offerhub-backend/pkg/logger"
	"github.com/stripe/stripe-go/v84"
)

// Service routes verified Stripe events into the payment reconciliation core.
// Event types we do not subscribe to are acknowledged and dropped.
type Service interface {
	HandleEvent(ctx context.Context, event stripe.Event) error
}

type reconciler interface {
	RecordCheckoutCompleted(ctx context.Context, input payments.RecordSessionInput) (payments.Outcome, error)
	RecordBalanceSucceeded(ctx context.Context, input payments.RecordBalanceInput) (payments.Outcome, error)
}

type service struct {
	payments reconciler
	logger   *logger.Logger
}

// NewService wires the webhook dispatch service.
func NewService(paymentSvc reconciler, logg *logger.Logger) (Service, error) {
	if paymentSvc == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payment service required")
	}
	return &service{payments: paymentSvc, logger: logg}, nil
}

func (s *service) HandleEvent(ctx context.Context, event stripe.Event) error {
	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		return s.handleCheckoutCompleted(ctx, event)
	case stripe.EventTypePaymentIntentSucceeded:
		return s.handlePaymentIntentSucceeded(ctx, event)
	default:
		if s.logger != nil {
			s.logger.Info(ctx, fmt.Sprintf("ignoring stripe event type %s", event.Type))
		}
		return nil
	}
}

func (s *service) handleCheckoutCompleted(ctx context.Context, event stripe.Event) error {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode checkout session")
	}
	// Sessions can complete unpaid (async payment methods); those settle
	// later via payment_intent events.
	if session.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid &&
		session.PaymentStatus != stripe.CheckoutSessionPaymentStatusNoPaymentRequired {
		return nil
	}

	claimID, err := payments.ClaimIDFromMetadata(session.Metadata)
	if err != nil {
		return err
	}

	if payments.IsBalancePurpose(session.Metadata) {
		providerRef := session.ID
		if session.PaymentIntent != nil && session.PaymentIntent.ID != "" {
			providerRef = session.PaymentIntent.ID
		}
		_, err := s.payments.RecordBalanceSucceeded(ctx, payments.RecordBalanceInput{
			IntentID:    providerRef,
			ClaimID:     claimID,
			AmountCents: session.AmountTotal,
		})
		return err
	}

	input := payments.RecordSessionInput{
		SessionID:   session.ID,
		ClaimID:     claimID,
		AmountCents: session.AmountTotal,
	}
	if session.PaymentIntent != nil && session.PaymentIntent.ID != "" {
		intentID := session.PaymentIntent.ID
		input.PaymentIntentID = &intentID
	}
	_, err = s.payments.RecordCheckoutCompleted(ctx, input)
	return err
}

func (s *service) handlePaymentIntentSucceeded(ctx context.Context, event stripe.Event) error {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "decode payment intent")
	}
	// Deposit intents already settle through their checkout session event.
	if !payments.IsBalancePurpose(intent.Metadata) {
		return nil
	}

	claimID, err := payments.ClaimIDFromMetadata(intent.Metadata)
	if err != nil {
		return err
	}

	amount := intent.AmountReceived
	if amount == 0 {
		amount = intent.Amount
	}
	_, err = s.payments.RecordBalanceSucceeded(ctx, payments.RecordBalanceInput{
		IntentID:    intent.ID,
		ClaimID:     claimID,
		AmountCents: amount,
	})
	return err
}
