package api

import (
	"net/http"
	"time"

	"shopify-ingestion-service/internal/infrastructure/metrics"
	"shopify-ingestion-service/internal/infrastructure/pubsub"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	httpSwagger "github.com/swaggo/http-swagger"
)

// RouterDeps are the collaborators the HTTP surface is built from
type RouterDeps struct {
	Installer  Installer
	OAuth      OAuthConfig
	Verifier   SignatureVerifier
	Webhooks   WebhookReceiver
	Syncer     TenantSyncer
	Tenants    TenantLister
	Metrics    MetricsReader
	Events     *pubsub.IngestPubSub
	Prometheus *metrics.Prometheus
	// SwaggerFile is served at /swagger/doc.json
	SwaggerFile string
	Logger      zerolog.Logger
}

// NewRouter builds the chi router
func NewRouter(d RouterDeps) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if d.Prometheus != nil {
		r.Use(d.Prometheus.Middleware)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{d.OAuth.FrontendURL},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	})
	if d.Prometheus != nil {
		r.Method(http.MethodGet, "/metrics", d.Prometheus.Handler())
	}

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
	if d.SwaggerFile != "" {
		r.Get("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			http.ServeFile(w, r, d.SwaggerFile)
		})
	}

	// OAuth install
	r.Get("/auth/install", OAuthInstallHandler(d.Installer, d.OAuth, d.Logger))
	r.Get("/auth/callback", OAuthCallbackHandler(d.Installer, d.OAuth, d.Logger))

	r.Post("/webhooks/receive", WebhookHandler(d.Verifier, d.Webhooks, d.Logger))

	mh := NewMetricsHandlers(d.Metrics, d.Logger)
	r.Route("/api", func(r chi.Router) {
		r.Get("/tenants", ListTenantsHandler(d.Tenants, d.Logger))
		fullSync := FullSyncHandler(d.Syncer, d.Logger)
		r.Post("/admin/full-sync/{tenantId}", fullSync)
		r.Post("/admin/sync/{tenantId}", fullSync)

		r.Get("/metrics/summary/{tenantId}", mh.Summary)
		r.Get("/metrics/orders-by-date/{tenantId}", mh.OrdersByDate)
		r.Get("/metrics/top-customers/{tenantId}", mh.TopCustomers)
		r.Get("/metrics/products/{tenantId}", mh.Products)

		if d.Events != nil {
			r.Get("/events/{tenantId}", EventsHandler(d.Events, d.Logger))
		}
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})

	return r
}
