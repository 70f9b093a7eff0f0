package controllers

import (
	"net/http"

	"github.com/offerhubhq/offerhub-backend/api/responses"
	"github.com/offerhubhq/offerhub-backend/api/validators"
	"github.com/offerhubhq/offerhub-backend/internal/users"
	"github.com/offerhubhq/offerhub-backend/pkg/enums"
	"github.com/offerhubhq/offerhub-backend/pkg/logger"
)

type registerUserRequest struct {
	Name     string  `json:"name" validate:"required,max=200"`
	Role     string  `json:"role" validate:"omitempty,oneof=creator customer"`
	Username *string `json:"username" validate:"omitempty,max=60"`
}

func RegisterUser(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req registerUserRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		user, err := svc.Register(ctx, users.RegisterInput{
			Name:     req.Name,
			Role:     enums.UserRole(req.Role),
			Username: req.Username,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{"user": user})
	}
}

// CreateGuest provisions an anonymous account so a visitor can claim without
// registering first.
func CreateGuest(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		user, err := svc.CreateGuest(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{"user": user})
	}
}

type updateProfileRequest struct {
	Name             *string `json:"name" validate:"omitempty,max=200"`
	Bio              *string `json:"bio" validate:"omitempty,max=2000"`
	Phone            *string `json:"phone" validate:"omitempty,max=30"`
	ImageURL         *string `json:"image_url"`
	Username         *string `json:"username" validate:"omitempty,max=60"`
	PaymentAccountID *string `json:"payment_account_id"`
}

func UpdateProfile(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		userID, err := validators.ParsePathID(r, "user_id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		var req updateProfileRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		user, err := svc.UpdateProfile(ctx, userID, users.UpdateProfileInput{
			Name:             req.Name,
			Bio:              req.Bio,
			Phone:            req.Phone,
			ImageURL:         req.ImageURL,
			Username:         req.Username,
			PaymentAccountID: req.PaymentAccountID,
		})
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"user": user})
	}
}

func GetProfile(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		userID, err := validators.ParsePathID(r, "user_id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		profile, err := svc.GetProfile(ctx, userID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"user":     profile.User,
			"offers":   profile.Offers,
			"claims":   profile.Claims,
			"activity": profile.Activity,
		})
	}
}

// Inbox serves the user's activity feed, newest first.
func Inbox(svc users.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		userID, err := validators.ParsePathID(r, "user_id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		events, err := svc.Inbox(ctx, userID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"events": events})
	}
}
