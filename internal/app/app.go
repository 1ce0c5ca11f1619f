// Package app wires the application together: configuration, integrations,
// domain services, HTTP server, and graceful shutdown.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/bridgebuilders/storefront/internal/client/mailchannels"
	"github.com/bridgebuilders/storefront/internal/client/mailchimp"
	"github.com/bridgebuilders/storefront/internal/client/shipstation"
	"github.com/bridgebuilders/storefront/internal/client/stripe"
	"github.com/bridgebuilders/storefront/internal/domain/catalog"
	"github.com/bridgebuilders/storefront/internal/domain/fulfillment"
	"github.com/bridgebuilders/storefront/internal/domain/marketing"
	"github.com/bridgebuilders/storefront/internal/domain/shipping"
	"github.com/bridgebuilders/storefront/internal/handler"
	"github.com/bridgebuilders/storefront/internal/storage/postgres"
	"github.com/bridgebuilders/storefront/internal/webhook"
	"github.com/bridgebuilders/storefront/pkg/health"
	"github.com/bridgebuilders/storefront/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// Optional reconciliation log. Absent configuration is a logged skip,
	// not an error.
	var events webhook.Recorder
	var healthPool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return errors.Wrap(err, "create db pool")
		}
		defer pool.Close()

		if err := postgres.RunMigrations(ctx, pool); err != nil {
			return errors.Wrap(err, "run migrations")
		}
		events = postgres.NewEventStore(pool)

		healthPool = pool
	} else {
		lg.Info("Database URL not set, reconciliation log disabled")
	}

	// Integrations. Each is wired only when configured; the domain layer
	// treats a missing integration as a logged skip.
	var rateClient shipping.RateClient
	var warehouse fulfillment.Warehouse
	if ssCfg := (shipstation.Config{
		APIKey:    cfg.ShipStation.APIKey,
		APISecret: cfg.ShipStation.APISecret,
		Timeout:   cfg.Outbound.Timeout,
	}); ssCfg.Configured() {
		ss := shipstation.New(ssCfg)
		rateClient = ss
		warehouse = ss
	} else {
		lg.Info("Carrier provider not configured, rate quotes and fulfillment disabled")
	}

	var listClient marketing.ListClient
	var leads handler.LeadClient
	if mcCfg := (mailchimp.Config{
		APIKey:       cfg.Mailchimp.APIKey,
		ServerPrefix: cfg.Mailchimp.ServerPrefix,
		ListID:       cfg.Mailchimp.ListID,
		Timeout:      cfg.Outbound.Timeout,
	}); mcCfg.Configured() {
		mc := mailchimp.New(mcCfg)
		listClient = mc
		leads = mc
	} else {
		lg.Info("Marketing list not configured, sync disabled")
	}

	var gateway handler.PaymentGateway
	if stCfg := (stripe.Config{
		SecretKey: cfg.Stripe.SecretKey,
		Timeout:   cfg.Outbound.Timeout,
	}); stCfg.Configured() {
		gateway = stripe.New(stCfg)
	} else {
		lg.Info("Payment gateway not configured, checkout disabled")
	}
	if cfg.Stripe.WebhookSecret == "" {
		lg.Warn("Webhook signing secret not set, event signatures will not be verified")
	}

	var email handler.EmailSender
	if emCfg := (mailchannels.Config{
		FromAddress: cfg.Email.FromAddress,
		FromName:    cfg.Email.FromName,
		ToAddress:   cfg.Email.ToAddress,
		Timeout:     cfg.Outbound.Timeout,
	}); emCfg.Configured() {
		email = mailchannels.New(emCfg)
	} else {
		lg.Info("Email relay not configured, form relays disabled")
	}

	// Domain services.
	cat := catalog.New(catalog.DefaultPriceIDs())
	aggregator := shipping.NewAggregator(shipping.Config{
		FreeShippingThreshold: decimal.NewFromFloat(cfg.Shipping.FreeShippingThreshold),
		FedExCarrierCode:      cfg.Shipping.FedExCarrierCode,
		OriginPostalCode:      cfg.Shipping.OriginZip,
		LengthIn:              cfg.Shipping.LengthIn,
		WidthIn:               cfg.Shipping.WidthIn,
		HeightIn:              cfg.Shipping.HeightIn,
	}, rateClient)
	dispatcher := webhook.NewDispatcher(
		fulfillment.NewService(warehouse),
		marketing.NewEngine(listClient),
		events,
	)

	// Health check service.
	healthSvc := health.New()
	if healthPool != nil {
		pool := healthPool
		healthSvc.AddReadinessCheck("postgres", 5*time.Second, func(ctx context.Context) error {
			return pool.Ping(ctx)
		})
	}
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// HTTP handlers.
	h := handler.New(handler.Config{
		SuccessURL:       cfg.Checkout.SuccessURL,
		CancelURL:        cfg.Checkout.CancelURL,
		CouponID:         cfg.Checkout.CouponID,
		CouponPercentOff: cfg.Checkout.CouponPercentOff,
		WebhookSecret:    cfg.Stripe.WebhookSecret,
	}, cat, aggregator, gateway, dispatcher, email, leads)

	mux := http.NewServeMux()
	mux.HandleFunc("/livez", healthSvc.LiveEndpoint)
	mux.HandleFunc("/readyz", healthSvc.ReadyEndpoint)
	h.Register(mux)

	instrumented := otelhttp.NewHandler(mux, "storefront",
		otelhttp.WithTracerProvider(m.TracerProvider()),
		otelhttp.WithMeterProvider(m.MeterProvider()),
	)

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(instrumented,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Stripe-Signature"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.LogRequests(),
		),
	}

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
