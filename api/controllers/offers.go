package controllers

import (
	"net/http"
	"time"

	"github.com/offerhubhq/offerhub-backend/api/responses"
	"github.com/offerhubhq/offerhub-backend/api/validators"
	"github.com/offerhubhq/offerhub-backend/internal/offers"
	"github.com/offerhubhq/offerhub-backend/pkg/enums"
	"github.com/offerhubhq/offerhub-backend/pkg/logger"
)

type createOfferRequest struct {
	CreatorID    int64             `json:"creator_id" validate:"required,min=1"`
	Title        string            `json:"title" validate:"required,max=200"`
	PriceCents   int64             `json:"price_cents" validate:"min=0"`
	DepositCents int64             `json:"deposit_cents" validate:"min=0"`
	PaymentMode  string            `json:"payment_mode" validate:"omitempty,oneof=deposit full pay_in_person"`
	Capacity     int               `json:"capacity" validate:"required,min=1"`
	LocationText string            `json:"location_text" validate:"required,max=500"`
	Description  *string           `json:"description"`
	ImageURL     *string           `json:"image_url"`
	Slots        []offerSlotInput  `json:"slots" validate:"dive"`
}

type offerSlotInput struct {
	StartAt  time.Time `json:"start_at" validate:"required"`
	EndAt    time.Time `json:"end_at" validate:"required"`
	Capacity int       `json:"capacity" validate:"required,min=1"`
}

func CreateOffer(svc offers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req createOfferRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		input := offers.CreateOfferInput{
			CreatorID:    req.CreatorID,
			Title:        req.Title,
			PriceCents:   req.PriceCents,
			DepositCents: req.DepositCents,
			PaymentMode:  enums.PaymentMode(req.PaymentMode),
			Capacity:     req.Capacity,
			LocationText: req.LocationText,
			Description:  req.Description,
			ImageURL:     req.ImageURL,
		}
		for _, slot := range req.Slots {
			input.Slots = append(input.Slots, offers.SlotInput{
				StartAt:  slot.StartAt,
				EndAt:    slot.EndAt,
				Capacity: slot.Capacity,
			})
		}

		offer, err := svc.Create(ctx, input)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{"offer": offer})
	}
}

func GetOffer(svc offers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		offerID, err := validators.ParsePathID(r, "offer_id")
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		detail, err := svc.Get(ctx, offerID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"offer":    detail.Offer,
			"slots":    detail.Offer.Slots,
			"activity": detail.Activity,
		})
	}
}

func ListOffers(svc offers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		limit, err := validators.ParseQueryInt(r, "limit", 50, 1, 200)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		list, err := svc.List(ctx, limit)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"offers": list})
	}
}
