package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"

	"github.com/acp-commerce/api/internal/domain"
	"github.com/acp-commerce/api/internal/events"
	"github.com/acp-commerce/api/internal/handlers"
	"github.com/acp-commerce/api/internal/payments"
	"github.com/acp-commerce/api/internal/platform/auth"
	"github.com/acp-commerce/api/internal/platform/config"
	pfirestore "github.com/acp-commerce/api/internal/platform/firestore"
	"github.com/acp-commerce/api/internal/platform/idempotency"
	"github.com/acp-commerce/api/internal/platform/observability"
	"github.com/acp-commerce/api/internal/repositories"
	firestoreRepo "github.com/acp-commerce/api/internal/repositories/firestore"
	"github.com/acp-commerce/api/internal/repositories/memory"
	"github.com/acp-commerce/api/internal/services"
)

func main() {
	ctx := context.Background()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")
	ctx = observability.WithLogger(ctx, logger)

	cfg, err := config.Load(ctx)
	if err != nil {
		var invalid *config.ValidationError
		if errors.As(err, &invalid) {
			logger.Fatal("invalid configuration", zap.Strings("fields", invalid.Fields()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	var (
		sessions    repositories.CheckoutRepository
		catalog     repositories.CatalogRepository
		pinger      repositories.Pinger
		ledgerStore idempotency.Store
	)

	switch cfg.Store.Backend {
	case "firestore":
		provider := pfirestore.NewProvider(cfg.Store)
		firestoreClient, err := provider.Client(ctx)
		if err != nil {
			logger.Fatal("failed to initialise firestore client", zap.Error(err))
		}
		defer func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := provider.Close(closeCtx); err != nil {
				logger.Warn("firestore close error", zap.Error(err))
			}
		}()

		store, err := firestoreRepo.NewStore(provider)
		if err != nil {
			logger.Fatal("failed to initialise checkout store", zap.Error(err))
		}
		productCatalog, err := firestoreRepo.NewCatalog(provider, "products")
		if err != nil {
			logger.Fatal("failed to initialise product catalog", zap.Error(err))
		}
		sessions = store
		catalog = productCatalog
		pinger = store
		ledgerStore = idempotency.NewFirestoreStore(firestoreClient)
	default:
		store := memory.NewStore()
		sessions = store
		catalog = memory.NewCatalog(demoProducts(cfg.Checkout.Currency)...)
		pinger = store
		ledgerStore = idempotency.NewMemoryStore()
		logger.Info("using in-memory store; data will not survive restarts")
	}

	idempotencyMiddleware := idempotency.Middleware(
		ledgerStore,
		idempotency.WithHeader(cfg.Idempotency.Header),
		idempotency.WithTTL(cfg.Idempotency.TTL),
		idempotency.WithLogger(observability.NewPrintfAdapter(logger.Named("idempotency"))),
	)

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	var cleanupWG sync.WaitGroup
	var cleanupTicker *time.Ticker
	if cfg.Idempotency.CleanupInterval > 0 {
		cleanupTicker = time.NewTicker(cfg.Idempotency.CleanupInterval)
		cleanupWG.Add(1)
		go func() {
			defer cleanupWG.Done()
			cleanupLogger := logger.Named("idempotency")
			for {
				select {
				case <-cleanupTicker.C:
					runCtx, cancel := context.WithTimeout(cleanupCtx, time.Minute)
					removed, err := ledgerStore.CleanupExpired(runCtx, time.Now().UTC(), cfg.Idempotency.CleanupBatchSize)
					cancel()
					if err != nil {
						cleanupLogger.Error("idempotency cleanup error", zap.Error(err))
						continue
					}
					if removed > 0 {
						cleanupLogger.Info("idempotency cleanup removed records", zap.Int("count", removed))
					}
				case <-cleanupCtx.Done():
					return
				}
			}
		}()
	}

	providers := make(map[string]payments.Provider, 1)
	if cfg.Stripe.APIKey != "" {
		stripeProvider, err := payments.NewStripeProvider(payments.StripeProviderConfig{
			APIKey: cfg.Stripe.APIKey,
			Logger: structuredLogger(logger.Named("payments")),
			Clock:  time.Now,
		})
		if err != nil {
			logger.Fatal("failed to initialise stripe payment provider", zap.Error(err))
		}
		providers["stripe"] = stripeProvider
	} else {
		providers["stripe"] = payments.NewMockProvider(time.Now)
		logger.Warn("stripe api key not configured; using mock payment provider")
	}
	paymentManager, err := payments.NewManager(providers)
	if err != nil {
		logger.Fatal("failed to initialise payment manager", zap.Error(err))
	}

	var emitters events.Multi
	var webhookEmitter *events.WebhookEmitter
	if cfg.Webhooks.URL != "" {
		webhookEmitter, err = events.NewWebhookEmitter(events.WebhookEmitterConfig{
			URL:           cfg.Webhooks.URL,
			SigningSecret: cfg.Webhooks.SigningSecret,
			Timeout:       cfg.Webhooks.Timeout,
			Logger:        structuredLogger(logger.Named("webhooks")),
		})
		if err != nil {
			logger.Fatal("failed to initialise webhook emitter", zap.Error(err))
		}
		emitters = append(emitters, webhookEmitter)
	}
	if cfg.Events.Enabled {
		pubsubClient, err := pubsub.NewClient(ctx, cfg.Events.ProjectID)
		if err != nil {
			logger.Fatal("failed to initialise pubsub client", zap.Error(err))
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logger.Warn("pubsub close error", zap.Error(err))
			}
		}()
		pubsubEmitter, err := events.NewPubSubEmitter(pubsubClient.Topic(cfg.Events.Topic), structuredLogger(logger.Named("events")))
		if err != nil {
			logger.Fatal("failed to initialise pubsub emitter", zap.Error(err))
		}
		emitters = append(emitters, pubsubEmitter)
	}
	var orderEvents services.OrderEventEmitter
	if len(emitters) > 0 {
		orderEvents = emitters
	}

	checkoutService, err := services.NewCheckoutService(services.CheckoutServiceDeps{
		Sessions:       sessions,
		Catalog:        catalog,
		Payments:       paymentManager,
		Events:         orderEvents,
		Clock:          time.Now,
		Logger:         structuredLogger(logger.Named("checkout")),
		Currency:       cfg.Checkout.Currency,
		TaxRate:        cfg.Checkout.TaxRate,
		BaseURL:        cfg.Checkout.BaseURL,
		TermsOfUseURL:  cfg.Checkout.TermsOfUseURL,
		PaymentMethods: cfg.Checkout.PaymentMethods,
	})
	if err != nil {
		logger.Fatal("failed to initialise checkout service", zap.Error(err))
	}
	checkoutHandlers := handlers.NewCheckoutHandlers(checkoutService)

	middlewares := []func(http.Handler) http.Handler{
		observability.RequestIDMiddleware(),
		observability.InjectLoggerMiddleware(logger.Named("http")),
		observability.TraceMiddleware(),
		observability.RecoveryMiddleware(logger.Named("http")),
		observability.RequestLoggerMiddleware(),
	}
	if cfg.Server.RateLimit > 0 {
		middlewares = append(middlewares, handlers.RateLimitMiddleware(cfg.Server.RateLimit, cfg.Server.RateLimitWindow, time.Now))
	}

	checkoutMiddlewares := []func(http.Handler) http.Handler{
		handlers.APIVersionMiddleware(cfg.Checkout.APIVersions),
	}
	if bearer := auth.NewBearerValidator(cfg.Auth.APIKeys); bearer.Enabled() {
		checkoutMiddlewares = append(checkoutMiddlewares, bearer.Middleware())
	}
	if signature := auth.NewSignatureValidator(cfg.Auth.SignatureSecret); signature.Enabled() {
		checkoutMiddlewares = append(checkoutMiddlewares, signature.Middleware())
	}
	checkoutMiddlewares = append(checkoutMiddlewares, idempotencyMiddleware)

	router := handlers.NewRouter(
		handlers.WithMiddlewares(middlewares...),
		handlers.WithHealthHandlers(handlers.NewHealthHandlers(handlers.WithReadinessPinger(pinger))),
		handlers.WithCheckoutRoutes(checkoutHandlers.Routes),
		handlers.WithCheckoutMiddlewares(checkoutMiddlewares...),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("checkout api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	if cleanupTicker != nil {
		cleanupTicker.Stop()
	}
	cleanupCancel()
	cleanupWG.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}

	if webhookEmitter != nil {
		webhookEmitter.Close()
	}
}

// structuredLogger adapts a zap logger to the event/fields callback shape used
// across the service layer.
func structuredLogger(logger *zap.Logger) func(ctx context.Context, event string, fields map[string]any) {
	return func(_ context.Context, event string, fields map[string]any) {
		zFields := make([]zap.Field, 0, len(fields)+1)
		zFields = append(zFields, zap.String("event", event))
		for k, v := range fields {
			zFields = append(zFields, zap.Any(k, v))
		}
		logger.Debug("service log", zFields...)
	}
}

// demoProducts seeds the in-memory catalog for local development.
func demoProducts(currency string) []domain.Product {
	return []domain.Product{
		{ID: "item_123", Title: "Canvas Tote Bag", BasePrice: 500, Currency: currency, Stock: 10},
		{ID: "item_456", Title: "Enamel Mug", BasePrice: 1200, Currency: currency, Stock: 25},
		{ID: "item_789", Title: "Linen Notebook", BasePrice: 900, Currency: currency, Stock: 0},
	}
}
