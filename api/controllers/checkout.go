package controllers

import (
	"net/http"
	"strings"

	"github.com/offerhubhq/offerhub-backend/api/responses"
	"github.com/offerhubhq/offerhub-backend/api/validators"
	"github.com/offerhubhq/offerhub-backend/internal/checkout"
	"github.com/offerhubhq/offerhub-backend/internal/payments"
	pkgerrors "github.com/offerhubhq/offerhub-backend/pkg/errors"
	"github.com/offerhubhq/offerhub-backend/pkg/logger"
)

type createSessionRequest struct {
	ClaimID int64  `json:"claim_id" validate:"required,min=1"`
	Purpose string `json:"purpose" validate:"omitempty,oneof=deposit balance"`
}

func CreateCheckoutSession(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req createSessionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.CreateSession(ctx, checkout.CreateSessionInput{
			ClaimID: req.ClaimID,
			Purpose: checkout.Purpose(req.Purpose),
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// ConfirmCheckout is the pull path: the browser lands back from hosted
// checkout with a session_id and asks the backend to reconcile it now.
func ConfirmCheckout(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		sessionID := strings.TrimSpace(r.URL.Query().Get("session_id"))
		if sessionID == "" {
			responses.WriteError(ctx, logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "session_id query parameter is required"))
			return
		}

		result, err := svc.ConfirmSession(ctx, sessionID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"ok":     result.Status != payments.OutcomeNotPaid,
			"status": result.Status,
		})
	}
}
