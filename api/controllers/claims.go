package controllers

import (
	"net/http"

	"github.com/offerhubhq/offerhub-backend/api/responses"
	"github.com/offerhubhq/offerhub-backend/api/validators"
	"github.com/offerhubhq/offerhub-backend/internal/claims"
	"github.com/offerhubhq/offerhub-backend/pkg/logger"
)

type createClaimRequest struct {
	OfferID      int64   `json:"offer_id" validate:"required,min=1"`
	UserID       int64   `json:"user_id" validate:"required,min=1"`
	SlotID       *int64  `json:"slot_id" validate:"omitempty,min=1"`
	Address      *string `json:"address"`
	ReferralCode *string `json:"referral_code"`
}

func CreateClaim(svc claims.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req createClaimRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		result, err := svc.Create(ctx, claims.CreateClaimInput{
			OfferID:      req.OfferID,
			UserID:       req.UserID,
			SlotID:       req.SlotID,
			Address:      req.Address,
			ReferralCode: req.ReferralCode,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{
			"claim":        result.Claim,
			"payment_mode": result.PaymentMode,
		})
	}
}

func GetClaim(svc claims.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		claimID, err := validators.ParsePathID(r, "claim_id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		claim, err := svc.Get(ctx, claimID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"claim": claim})
	}
}
