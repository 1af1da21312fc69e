package application

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"shopify-ingestion-service/internal/domain"
	"shopify-ingestion-service/internal/ports"

	"github.com/rs/zerolog"
)

// PageSize is the largest page the platform serves
const PageSize = 250

// RecordHandler is invoked once per record, in page order
type RecordHandler func(ctx context.Context, record domain.RawDocument) error

// FetchOptions bounds one paginated walk
type FetchOptions struct {
	// MaxPages stops after this many pages without marking the walk as stopped early. 0 means unbounded.
	MaxPages int
}

type listing struct {
	resource string
	rootKey  string
	query    url.Values
}

var listings = map[domain.EntityKind]listing{
	domain.KindCustomer:          {resource: "customers", rootKey: "customers"},
	domain.KindProduct:           {resource: "products", rootKey: "products"},
	domain.KindOrder:             {resource: "orders", rootKey: "orders", query: url.Values{"status": {"any"}}},
	domain.KindAbandonedCheckout: {resource: "checkouts", rootKey: "checkouts"},
}

func (l listing) values() url.Values {
	q := url.Values{}
	for k, v := range l.query {
		q[k] = append([]string(nil), v...)
	}
	q.Set("limit", fmt.Sprintf("%d", PageSize))
	return q
}

// Fetcher walks a platform listing by following next-page links
type Fetcher struct {
	client  ports.ShopifyClient
	metrics ports.IngestMetrics
	logger  zerolog.Logger
}

// NewFetcher creates a new paginated fetcher
func NewFetcher(client ports.ShopifyClient, metrics ports.IngestMetrics, logger zerolog.Logger) *Fetcher {
	if metrics == nil {
		metrics = ports.NopMetrics{}
	}
	return &Fetcher{
		client:  client,
		metrics: metrics,
		logger:  logger,
	}
}

// FetchAll hands every record of kind to handler, page by page. Upstream failures stop this
// walk only and are reported in the summary; handler errors are counted and skipped.
func (f *Fetcher) FetchAll(ctx context.Context, tenant *domain.Tenant, kind domain.EntityKind, handler RecordHandler, opts FetchOptions) domain.FetchSummary {
	summary := domain.FetchSummary{Kind: kind}
	started := time.Now()
	defer func() { f.metrics.SyncDuration(kind, time.Since(started)) }()

	l, ok := listings[kind]
	if !ok {
		summary.StoppedEarly = true
		summary.Error = fmt.Sprintf("no listing for kind %q", kind)
		return summary
	}

	log := f.logger.With().
		Str("tenantId", tenant.ID).
		Str("shop", tenant.ShopDomain).
		Str("kind", string(kind)).
		Logger()

	next := f.client.ListingURL(tenant.ShopDomain, l.resource, l.values())
	for next != "" {
		if opts.MaxPages > 0 && summary.Pages >= opts.MaxPages {
			break
		}
		if err := ctx.Err(); err != nil {
			return f.stop(log, summary, err)
		}

		resp, err := f.client.GetPage(ctx, tenant.AccessToken, next)
		if err == nil && (resp.StatusCode < 200 || resp.StatusCode >= 300) {
			err = fmt.Errorf("%w: status %d", domain.ErrUpstreamRequestFailed, resp.StatusCode)
		}
		if err != nil {
			if !errors.Is(err, domain.ErrUpstreamRequestFailed) {
				err = fmt.Errorf("%w: %v", domain.ErrUpstreamRequestFailed, err)
			}
			f.metrics.PageFetched(kind, outcomeError)
			return f.stop(log, summary, err)
		}
		summary.Pages++

		records, found, err := extractRecords(resp.Body, l.rootKey)
		if err != nil || !found {
			f.metrics.PageFetched(kind, "no_records")
			if err == nil {
				err = errors.New("page carries no record array")
			}
			return f.stop(log, summary, err)
		}
		f.metrics.PageFetched(kind, outcomeOK)

		for _, raw := range records {
			summary.ProcessedCount++
			record, err := DecodeRecord(raw)
			if err == nil {
				err = handler(ctx, record)
			} else {
				log.Warn().Err(err).Msg("Skipping malformed record")
			}
			if err != nil {
				summary.FailedCount++
			}
		}

		next = ParseNextLink(resp.Link)
	}

	log.Info().
		Int("processed", summary.ProcessedCount).
		Int("failed", summary.FailedCount).
		Int("pages", summary.Pages).
		Msg("Listing fetched")
	return summary
}

func (f *Fetcher) stop(log zerolog.Logger, summary domain.FetchSummary, err error) domain.FetchSummary {
	summary.StoppedEarly = true
	summary.Error = err.Error()
	log.Error().
		Err(err).
		Int("processed", summary.ProcessedCount).
		Int("pages", summary.Pages).
		Msg("Listing fetch stopped early")
	return summary
}
