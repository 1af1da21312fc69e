package metrics

import (
	"net/http"
	"strconv"
	"time"

	"shopify-ingestion-service/internal/domain"
	"shopify-ingestion-service/internal/ports"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "ingest"

// Prometheus implements ports.IngestMetrics and tracks HTTP requests
type Prometheus struct {
	WebhooksReceived  *prometheus.CounterVec
	RecordsReconciled *prometheus.CounterVec
	PagesFetched      *prometheus.CounterVec
	SchedulerRuns     *prometheus.CounterVec
	SyncDurations     *prometheus.HistogramVec
	RequestDurations  *prometheus.HistogramVec

	gatherer prometheus.Gatherer
}

var _ ports.IngestMetrics = (*Prometheus)(nil)

// New registers the ingestion collectors with reg and serves reg from Handler
func New(reg *prometheus.Registry) *Prometheus {
	factory := promauto.With(reg)
	return &Prometheus{
		WebhooksReceived: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "webhooks_received_total",
				Help:      "Total number of webhook deliveries by topic family and outcome",
			},
			[]string{"topic_family", "outcome"},
		),
		RecordsReconciled: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "records_reconciled_total",
				Help:      "Total number of records reconciled by kind, source and outcome",
			},
			[]string{"kind", "source", "outcome"},
		),
		PagesFetched: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pages_fetched_total",
				Help:      "Total number of listing pages fetched by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
		SchedulerRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "scheduler_runs_total",
				Help:      "Total number of scheduled poll runs by outcome",
			},
			[]string{"outcome"},
		),
		SyncDurations: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "sync_duration_seconds",
				Help:      "Duration of one paginated walk in seconds",
				Buckets:   []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600},
			},
			[]string{"kind"},
		),
		RequestDurations: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route", "status"},
		),
		gatherer: reg,
	}
}

func (p *Prometheus) WebhookReceived(topic string, outcome string) {
	p.WebhooksReceived.WithLabelValues(domain.TopicFamily(topic), outcome).Inc()
}

func (p *Prometheus) RecordReconciled(kind domain.EntityKind, source domain.Source, outcome string) {
	p.RecordsReconciled.WithLabelValues(string(kind), string(source), outcome).Inc()
}

func (p *Prometheus) PageFetched(kind domain.EntityKind, outcome string) {
	p.PagesFetched.WithLabelValues(string(kind), outcome).Inc()
}

func (p *Prometheus) SchedulerRun(outcome string) {
	p.SchedulerRuns.WithLabelValues(outcome).Inc()
}

func (p *Prometheus) SyncDuration(kind domain.EntityKind, d time.Duration) {
	p.SyncDurations.WithLabelValues(string(kind)).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.gatherer, promhttp.HandlerOpts{})
}

// Middleware tracks request durations labelled by chi route pattern
func (p *Prometheus) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		p.RequestDurations.
			WithLabelValues(r.Method, route, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
	})
}
