package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"shopify-ingestion-service/internal/domain"
	"shopify-ingestion-service/internal/ports"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
)

// DefaultAPIVersion is the Admin REST API version the listings are pinned to
const DefaultAPIVersion = "2025-01"

// maxPageBytes caps a single listing page read into memory
const maxPageBytes = 32 << 20

// Config configures the Shopify client adapter
type Config struct {
	APIKey     string
	APISecret  string
	APIVersion string
	// BaseURL replaces https://<shop> for listing and token calls. Used by tests.
	BaseURL    string
	HTTPClient *http.Client
	Retry      RetryConfig
}

type client struct {
	apiKey      string
	apiSecret   string
	apiVersion  string
	baseURL     string
	app         goshopify.App
	httpClient  *http.Client
	retryConfig RetryConfig
	logger      zerolog.Logger
}

var _ ports.ShopifyClient = (*client)(nil)

// NewClient creates a new Shopify client adapter
func NewClient(cfg Config, logger zerolog.Logger) ports.ShopifyClient {
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if cfg.Retry.MaxRetries == 0 && cfg.Retry.BaseDelay == 0 {
		cfg.Retry = DefaultRetryConfig()
	}
	return &client{
		apiKey:     cfg.APIKey,
		apiSecret:  cfg.APISecret,
		apiVersion: cfg.APIVersion,
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		app: goshopify.App{
			ApiKey:    cfg.APIKey,
			ApiSecret: cfg.APISecret,
		},
		httpClient:  cfg.HTTPClient,
		retryConfig: cfg.Retry,
		logger:      logger,
	}
}

func (c *client) shopURL(shop string) string {
	if c.baseURL != "" {
		return c.baseURL
	}
	return "https://" + shop
}

// Authentication methods

func (c *client) AuthorizeURL(shop string, scopes []string, redirectURI string, state string) string {
	// Shopify expects scopes to be comma-separated (no spaces)
	q := url.Values{}
	q.Set("client_id", c.apiKey)
	q.Set("scope", strings.Join(scopes, ","))
	q.Set("redirect_uri", redirectURI)
	q.Set("state", state)
	return fmt.Sprintf("%s/admin/oauth/authorize?%s", c.shopURL(shop), q.Encode())
}

// VerifyCallback checks the hmac parameter the platform appends to the OAuth callback
func (c *client) VerifyCallback(query url.Values) (bool, error) {
	return c.app.VerifyAuthorizationURL(&url.URL{RawQuery: query.Encode()})
}

func (c *client) ExchangeToken(ctx context.Context, shop string, code string) (string, error) {
	tokenURL := c.shopURL(shop) + "/admin/oauth/access_token"

	values := url.Values{}
	values.Set("client_id", c.apiKey)
	values.Set("client_secret", c.apiSecret)
	values.Set("code", code)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(values.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrCredentialExchangeFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("%w: status %d, body: %s", domain.ErrCredentialExchangeFailed, resp.StatusCode, string(bodyBytes))
	}

	var tokenResponse struct {
		AccessToken string `json:"access_token"`
		Scope       string `json:"scope"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResponse); err != nil {
		return "", fmt.Errorf("%w: failed to decode token response: %v", domain.ErrCredentialExchangeFailed, err)
	}
	if tokenResponse.AccessToken == "" {
		return "", fmt.Errorf("%w: response carried no access token", domain.ErrCredentialExchangeFailed)
	}

	c.logger.Debug().Str("shop", shop).Str("scope", tokenResponse.Scope).Msg("Exchanged authorization code")
	return tokenResponse.AccessToken, nil
}

// Webhook API

func (c *client) CreateWebhook(ctx context.Context, shopDomain string, accessToken string, topic string, address string) error {
	api, err := goshopify.NewClient(c.app, shopDomain, accessToken, goshopify.WithVersion(c.apiVersion))
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	webhook := goshopify.Webhook{
		Topic:   topic,
		Address: address,
		Format:  "json",
	}
	if _, err := api.Webhook.Create(ctx, webhook); err != nil {
		// re-installs hit the existing subscription
		if strings.Contains(err.Error(), "already been taken") {
			c.logger.Debug().Str("shop", shopDomain).Str("topic", topic).Msg("Webhook already registered")
			return nil
		}
		return fmt.Errorf("%w: failed to create webhook %s: %v", domain.ErrUpstreamRequestFailed, topic, err)
	}
	return nil
}

// Listings

func (c *client) ListingURL(shop string, resource string, query url.Values) string {
	u := fmt.Sprintf("%s/admin/api/%s/%s.json", c.shopURL(shop), c.apiVersion, resource)
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// GetPage fetches one listing page, retrying throttled and server error responses.
// A non-2xx final status is returned together with an ErrUpstreamRequestFailed error.
func (c *client) GetPage(ctx context.Context, accessToken string, pageURL string) (*ports.PageResponse, error) {
	var lastErr error
	for attempt := 0; ; attempt++ {
		page, retryAfter, err := c.getPageOnce(ctx, accessToken, pageURL)
		if err == nil {
			return page, nil
		}
		lastErr = err

		if page != nil && !retryable(page.StatusCode) {
			return page, err
		}
		if attempt >= c.retryConfig.MaxRetries || ctx.Err() != nil {
			return page, lastErr
		}

		delay := c.retryConfig.Delay(attempt, retryAfter)
		c.logger.Warn().
			Err(err).
			Int("attempt", attempt+1).
			Dur("delay", delay).
			Msg("Retrying listing page")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamRequestFailed, ctx.Err())
		case <-timer.C:
		}
	}
}

func (c *client) getPageOnce(ctx context.Context, accessToken string, pageURL string) (*ports.PageResponse, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create page request: %w", err)
	}
	req.Header.Set("X-Shopify-Access-Token", accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", domain.ErrUpstreamRequestFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, 0, fmt.Errorf("%w: failed to read page: %v", domain.ErrUpstreamRequestFailed, err)
	}

	page := &ports.PageResponse{
		StatusCode: resp.StatusCode,
		Body:       body,
		Link:       resp.Header.Get("Link"),
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return page, parseRetryAfter(resp.Header.Get("Retry-After")), fmt.Errorf("%w: status %d", domain.ErrUpstreamRequestFailed, resp.StatusCode)
	}
	return page, 0, nil
}
