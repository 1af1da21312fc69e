package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"shopify-ingestion-service/internal/domain"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheus_Counters(t *testing.T) {
	p := New(prometheus.NewRegistry())

	p.WebhookReceived(domain.TopicOrdersCreate, "processed")
	p.WebhookReceived(domain.TopicOrdersUpdated, "processed")
	p.WebhookReceived(domain.TopicAppUninstalled, "duplicate")
	p.RecordReconciled(domain.KindOrder, domain.SourceWebhook, "ok")
	p.PageFetched(domain.KindCustomer, "error")
	p.SchedulerRun("partial")
	p.SyncDuration(domain.KindProduct, 2*time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(p.WebhooksReceived.WithLabelValues("orders", "processed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.WebhooksReceived.WithLabelValues("app", "duplicate")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.RecordsReconciled.WithLabelValues("order", "webhook", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.PagesFetched.WithLabelValues("customer", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.SchedulerRuns.WithLabelValues("partial")))
	assert.Equal(t, 1, testutil.CollectAndCount(p.SyncDurations))
}

func TestPrometheus_Middleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := New(reg)

	r := chi.NewRouter()
	r.Use(p.Middleware)
	r.Get("/api/metrics/summary/{tenantId}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/metrics/summary/aaaaaaaaaaaaaaaaaaaaaaaa", nil))
	require.Equal(t, http.StatusTeapot, rec.Code)

	families, err := reg.Gather()
	require.NoError(t, err)

	var labels map[string]string
	for _, mf := range families {
		if mf.GetName() != "ingest_http_request_duration_seconds" {
			continue
		}
		require.Len(t, mf.GetMetric(), 1)
		labels = map[string]string{}
		for _, lp := range mf.GetMetric()[0].GetLabel() {
			labels[lp.GetName()] = lp.GetValue()
		}
	}
	assert.Equal(t, map[string]string{
		"method": "GET",
		"route":  "/api/metrics/summary/{tenantId}",
		"status": "418",
	}, labels)
}

func TestPrometheus_Handler(t *testing.T) {
	p := New(prometheus.NewRegistry())
	p.SchedulerRun("ok")

	rec := httptest.NewRecorder()
	p.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `ingest_scheduler_runs_total{outcome="ok"} 1`)
}
