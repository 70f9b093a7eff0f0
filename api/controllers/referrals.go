package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/offerhubhq/offerhub-backend/api/responses"
	"github.com/offerhubhq/offerhub-backend/api/validators"
	"github.com/offerhubhq/offerhub-backend/internal/referrals"
	pkgerrors "github.com/offerhubhq/offerhub-backend/pkg/errors"
	"github.com/offerhubhq/offerhub-backend/pkg/logger"
)

type createReferralRequest struct {
	InviterID int64 `json:"inviter_id" validate:"required,min=1"`
	OfferID   int64 `json:"offer_id" validate:"required,min=1"`
}

func CreateReferralLink(svc referrals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req createReferralRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		link, err := svc.CreateLink(ctx, req.InviterID, req.OfferID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{"referral_link": link})
	}
}

func ResolveReferralCode(svc referrals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		code := chi.URLParam(r, "code")
		link, err := svc.ResolveCode(ctx, code)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		if link == nil {
			responses.WriteError(ctx, logg, w,
				pkgerrors.New(pkgerrors.CodeNotFound, "referral code not found"))
			return
		}
		responses.WriteSuccess(w, map[string]any{"referral_link": link})
	}
}
