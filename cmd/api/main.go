package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"shopify-ingestion-service/internal/application"
	"shopify-ingestion-service/internal/application/webhook_handlers"
	"shopify-ingestion-service/internal/config"
	apiinfra "shopify-ingestion-service/internal/infrastructure/api"
	"shopify-ingestion-service/internal/infrastructure/cache"
	"shopify-ingestion-service/internal/infrastructure/encryption"
	"shopify-ingestion-service/internal/infrastructure/metrics"
	"shopify-ingestion-service/internal/infrastructure/pubsub"
	"shopify-ingestion-service/internal/infrastructure/repository"
	"shopify-ingestion-service/internal/infrastructure/scheduler"
	shopifyinfra "shopify-ingestion-service/internal/infrastructure/shopify"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	// Initialize logger
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load(logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Invalid configuration")
	}
	logger = logger.Level(cfg.LogLevel)

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to MongoDB
	connectCtx, cancel := context.WithTimeout(rootCtx, 10*time.Second)
	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	db := client.Database(cfg.MongoDatabase)

	indexCtx, cancel := context.WithTimeout(rootCtx, 30*time.Second)
	if err := repository.EnsureIndexes(indexCtx, db); err != nil {
		logger.Fatal().Err(err).Msg("Failed to create indexes")
	}
	cancel()

	// Initialize infrastructure (implementations)
	encryptionService, err := encryption.NewService(cfg.EncryptionKey)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize encryption service")
	}

	stores, err := cache.NewStoreFactory(cfg.RedisURL, logger).CreateStores(rootCtx)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize state stores")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	promMetrics := metrics.New(registry)
	ingestPubSub := pubsub.NewIngestPubSub(logger)

	repo := repository.NewMongoRepository(db)
	entityRepo := repository.NewMongoEntityRepository(db)
	metricsRepo := repository.NewMongoMetricsRepository(db)

	shopifyClient := shopifyinfra.NewClient(shopifyinfra.Config{
		APIKey:     cfg.ShopifyAPIKey,
		APISecret:  cfg.ShopifyAPISecret,
		APIVersion: cfg.ShopifyAPIVersion,
		Retry:      shopifyinfra.DefaultRetryConfig(),
	}, logger)

	// Initialize application services
	credentials := application.NewCredentialStore(repo, encryptionService, logger)
	reconciler := application.NewReconciler(entityRepo, ingestPubSub, promMetrics, logger)
	fetcher := application.NewFetcher(shopifyClient, promMetrics, logger)
	syncService := application.NewSyncService(credentials, fetcher, reconciler, logger)
	installService := application.NewInstallService(
		shopifyClient,
		credentials,
		stores.States,
		syncService,
		logger,
		application.InstallConfig{
			AppURL: cfg.AppURL,
			Scopes: cfg.ShopifyScopes,
		},
	)
	metricsService := application.NewMetricsService(metricsRepo, logger)

	// Initialize webhook dispatcher and register handlers
	webhookDispatcher := application.NewWebhookDispatcher(logger)
	webhookDispatcher.RegisterHandler(webhook_handlers.NewProductHandler(reconciler, logger))
	webhookDispatcher.RegisterHandler(webhook_handlers.NewCustomerHandler(reconciler, logger))
	webhookDispatcher.RegisterHandler(webhook_handlers.NewOrderHandler(reconciler, logger))
	webhookDispatcher.RegisterHandler(webhook_handlers.NewCheckoutHandler(reconciler, logger))
	webhookDispatcher.RegisterHandler(webhook_handlers.NewAppUninstalledHandler(credentials, logger))

	webhookService := application.NewWebhookService(
		credentials,
		webhookDispatcher,
		repo,
		stores.Idempotency,
		promMetrics,
		logger,
	)

	checkoutTrigger := scheduler.NewCheckoutTrigger(
		scheduler.DefaultConfig(),
		credentials,
		syncService,
		promMetrics,
		logger,
	)
	if err := checkoutTrigger.Start(rootCtx); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start scheduler")
	}

	router := apiinfra.NewRouter(apiinfra.RouterDeps{
		Installer: installService,
		OAuth: apiinfra.OAuthConfig{
			FrontendURL:   cfg.FrontendURL,
			SecureCookies: strings.HasPrefix(cfg.AppURL, "https://"),
		},
		Verifier:    shopifyinfra.NewWebhookVerifier(cfg.ShopifyAPISecret),
		Webhooks:    webhookService,
		Syncer:      syncService,
		Tenants:     credentials,
		Metrics:     metricsService,
		Events:      ingestPubSub,
		Prometheus:  promMetrics,
		SwaggerFile: "./docs/swagger.json",
		Logger:      logger,
	})

	// WriteTimeout stays zero: manual syncs and the event stream hold the response open
	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Msg("Starting API server")
		logger.Info().Msg("Swagger documentation available at http://localhost:" + cfg.Port + "/swagger/index.html")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("HTTP server failed")
			stop()
		}
	}()

	<-rootCtx.Done()
	logger.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Failed to shut down HTTP server")
	}
	if err := checkoutTrigger.Stop(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Failed to stop scheduler")
	}
	if err := stores.Close(); err != nil {
		logger.Error().Err(err).Msg("Failed to close state stores")
	}
	if err := client.Disconnect(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Failed to disconnect from MongoDB")
	}
	logger.Info().Msg("Shutdown complete")
}
