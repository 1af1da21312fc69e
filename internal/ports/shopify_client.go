package ports

import (
	"context"
	"net/url"
)

// PageResponse is one raw listing page as returned by the platform
type PageResponse struct {
	StatusCode int
	Body       []byte
	// Link is the raw pagination header, empty when absent
	Link string
}

// ShopifyClient defines the platform operations the ingestion pipeline needs
type ShopifyClient interface {
	// Authentication
	AuthorizeURL(shop string, scopes []string, redirectURI string, state string) string
	VerifyCallback(query url.Values) (bool, error)
	ExchangeToken(ctx context.Context, shop string, code string) (string, error)

	// Webhook subscriptions
	CreateWebhook(ctx context.Context, shop string, accessToken string, topic string, address string) error

	// Listings
	ListingURL(shop string, resource string, query url.Values) string
	GetPage(ctx context.Context, accessToken string, pageURL string) (*PageResponse, error)
}
