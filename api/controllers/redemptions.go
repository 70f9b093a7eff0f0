package controllers

import (
	"net/http"

	"github.com/offerhubhq/offerhub-backend/api/middleware"
	"github.com/offerhubhq/offerhub-backend/api/responses"
	"github.com/offerhubhq/offerhub-backend/api/validators"
	"github.com/offerhubhq/offerhub-backend/internal/redemptions"
	pkgerrors "github.com/offerhubhq/offerhub-backend/pkg/errors"
	"github.com/offerhubhq/offerhub-backend/pkg/logger"
)

// RedeemClaim completes a claim in person. The acting user must be the offer
// creator and arrives via the identity middleware.
func RedeemClaim(svc redemptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		claimID, err := validators.ParsePathID(r, "claim_id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		actingUserID := middleware.UserIDFromContext(ctx)
		if actingUserID <= 0 {
			responses.WriteError(ctx, logg, w,
				pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		result, err := svc.Redeem(ctx, claimID, actingUserID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"session":                result.Claim,
			"redemption":             result.Redemption,
			"already_redeemed":       result.AlreadyRedeemed,
			"last_paid_amount_cents": result.LastPaidCents,
		})
	}
}

type createRedemptionRequest struct {
	ClaimID int64 `json:"claim_id" validate:"required,min=1"`
}

// CreateRedemption is the body-based variant of redeem for clients that do
// not address claims by path.
func CreateRedemption(svc redemptions.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req createRedemptionRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		actingUserID := middleware.UserIDFromContext(ctx)
		if actingUserID <= 0 {
			responses.WriteError(ctx, logg, w,
				pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}

		result, err := svc.Redeem(ctx, req.ClaimID, actingUserID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"redemption": result.Redemption,
		})
	}
}
