package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/offerhubhq/offerhub-backend/api/controllers"
	webhookcontrollers "github.com/offerhubhq/offerhub-backend/api/controllers/webhooks"
	"github.com/offerhubhq/offerhub-backend/api/middleware"
	checkoutsvc "github.com/offerhubhq/offerhub-backend/internal/checkout"
	"github.com/offerhubhq/offerhub-backend/internal/claims"
	"github.com/offerhubhq/offerhub-backend/internal/offers"
	"github.com/offerhubhq/offerhub-backend/internal/payments"
	"github.com/offerhubhq/offerhub-backend/internal/redemptions"
	"github.com/offerhubhq/offerhub-backend/internal/referrals"
	"github.com/offerhubhq/offerhub-backend/internal/users"
	stripewebhook "github.com/offerhubhq/offerhub-backend/internal/webhooks/stripe"
	"github.com/offerhubhq/offerhub-backend/pkg/config"
	"github.com/offerhubhq/offerhub-backend/pkg/logger"
	"github.com/offerhubhq/offerhub-backend/pkg/metrics"
	"github.com/offerhubhq/offerhub-backend/pkg/stripe"
)

// Deps carries everything the router mounts.
type Deps struct {
	Config          *config.Config
	Logger          *logger.Logger
	DBPinger        controllers.Pinger
	RedisPinger     controllers.Pinger
	OfferService    offers.Service
	ClaimService    claims.Service
	CheckoutService checkoutsvc.Service
	PaymentService  payments.Service
	RedeemService   redemptions.Service
	ReferralService referrals.Service
	UserService     users.Service
	StripeClient    *stripe.Client
	WebhookService  stripewebhook.Service
	WebhookGuard    *stripewebhook.IdempotencyGuard
	WorkflowMetrics *metrics.WorkflowMetrics
	MetricsGatherer prometheus.Gatherer
}

func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	logg := d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.Identity(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, map[string]controllers.Pinger{
			"database": d.DBPinger,
			"redis":    d.RedisPinger,
		}))
	})

	if d.MetricsGatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.MetricsGatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(d.WebhookService, d.StripeClient, d.WebhookGuard, logg, d.WorkflowMetrics))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/offers", func(r chi.Router) {
			r.Post("/", controllers.CreateOffer(d.OfferService, logg))
			r.Get("/", controllers.ListOffers(d.OfferService, logg))
			r.Get("/{offer_id}", controllers.GetOffer(d.OfferService, logg))
		})

		r.Route("/claims", func(r chi.Router) {
			r.Post("/", controllers.CreateClaim(d.ClaimService, logg))
			r.Get("/{claim_id}", controllers.GetClaim(d.ClaimService, logg))
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Post("/session", controllers.CreateCheckoutSession(d.CheckoutService, logg))
			r.Get("/confirm", controllers.ConfirmCheckout(d.PaymentService, logg))
		})

		r.Post("/sessions/{claim_id}/redeem", controllers.RedeemClaim(d.RedeemService, logg))
		r.Post("/redemptions", controllers.CreateRedemption(d.RedeemService, logg))

		r.Route("/referrals", func(r chi.Router) {
			r.Post("/", controllers.CreateReferralLink(d.ReferralService, logg))
			r.Get("/{code}", controllers.ResolveReferralCode(d.ReferralService, logg))
		})

		r.Route("/users", func(r chi.Router) {
			r.Post("/", controllers.RegisterUser(d.UserService, logg))
			r.Patch("/{user_id}", controllers.UpdateProfile(d.UserService, logg))
		})

		r.Post("/sessions/guest", controllers.CreateGuest(d.UserService, logg))
		r.Get("/profile/{user_id}", controllers.GetProfile(d.UserService, logg))
		r.Get("/inbox/{user_id}", controllers.Inbox(d.UserService, logg))
	})

	return r
}
