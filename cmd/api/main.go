package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/offerhubhq/offerhub-backend/api/routes"
	checkoutsvc "github.com/offerhubhq/offerhub-backend/internal/checkout"
	"github.com/offerhubhq/offerhub-backend/internal/claims"
	"github.com/offerhubhq/offerhub-backend/internal/events"
	"github.com/offerhubhq/offerhub-backend/internal/offers"
	"github.com/offerhubhq/offerhub-backend/internal/payments"
	"github.com/offerhubhq/offerhub-backend/internal/redemptions"
	"github.com/offerhubhq/offerhub-backend/internal/referrals"
	"github.com/offerhubhq/offerhub-backend/internal/users"
	stripewebhook "github.com/offerhubhq/offerhub-backend/internal/webhooks/stripe"
	"github.com/offerhubhq/offerhub-backend/pkg/config"
	"github.com/offerhubhq/offerhub-backend/pkg/db"
	"github.com/offerhubhq/offerhub-backend/pkg/logger"
	"github.com/offerhubhq/offerhub-backend/pkg/metrics"
	"github.com/offerhubhq/offerhub-backend/pkg/migrate"
	"github.com/offerhubhq/offerhub-backend/pkg/redis"
	"github.com/offerhubhq/offerhub-backend/pkg/stripe"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	stripeClient, err := stripe.NewClient(context.Background(), cfg.Stripe, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap stripe", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	workflowMetrics := metrics.NewWorkflowMetrics(registry)

	gormDB := dbClient.DB()
	eventRepo := events.NewRepository(gormDB)
	offerRepo := offers.NewRepository(gormDB)
	claimRepo := claims.NewRepository(gormDB)
	referralRepo := referrals.NewRepository(gormDB)
	paymentRepo := payments.NewRepository(gormDB)
	redemptionRepo := redemptions.NewRepository(gormDB)
	userRepo := users.NewRepository(gormDB)

	offerService, err := offers.NewService(dbClient, offerRepo, eventRepo)
	exitOnWiringError(logg, "offer service", err)

	claimService, err := claims.NewService(dbClient, claimRepo, offerRepo, referralRepo, eventRepo, workflowMetrics)
	exitOnWiringError(logg, "claim service", err)

	referralService, err := referrals.NewService(dbClient, referralRepo, eventRepo)
	exitOnWiringError(logg, "referral service", err)

	paymentService, err := payments.NewService(dbClient, paymentRepo, claimRepo, offerRepo, eventRepo, stripeClient, logg, workflowMetrics)
	exitOnWiringError(logg, "payment service", err)

	webhookService, err := stripewebhook.NewService(paymentService, logg)
	exitOnWiringError(logg, "webhook service", err)

	redeemService, err := redemptions.NewService(dbClient, redemptionRepo, claimRepo, offerRepo, paymentRepo, eventRepo)
	exitOnWiringError(logg, "redemption service", err)

	userService, err := users.NewService(userRepo, offerRepo, claimRepo, eventRepo)
	exitOnWiringError(logg, "user service", err)

	checkoutService, err := checkoutsvc.NewService(dbClient, stripeClient, claimRepo, offerRepo, userRepo, paymentRepo, eventRepo, cfg.Checkout)
	exitOnWiringError(logg, "checkout service", err)

	webhookGuard := stripewebhook.NewIdempotencyGuard(redisClient, cfg.Eventing.WebhookIdempotencyTTL)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:          cfg,
			Logger:          logg,
			DBPinger:        dbClient,
			RedisPinger:     redisClient,
			OfferService:    offerService,
			ClaimService:    claimService,
			CheckoutService: checkoutService,
			PaymentService:  paymentService,
			RedeemService:   redeemService,
			ReferralService: referralService,
			UserService:     userService,
			StripeClient:    stripeClient,
			WebhookService:  webhookService,
			WebhookGuard:    webhookGuard,
			WorkflowMetrics: workflowMetrics,
			MetricsGatherer: registry,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func exitOnWiringError(logg *logger.Logger, name string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), "failed to create "+name, err)
	os.Exit(1)
}
