package application

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"shopify-ingestion-service/internal/domain"
	"shopify-ingestion-service/internal/ports"

	"github.com/rs/zerolog"
)

// DefaultStateTTL bounds how long an issued OAuth state may be redeemed
const DefaultStateTTL = 10 * time.Minute

var shopDomainPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*\.myshopify\.com$`)

// NormalizeShopDomain lowercases the shop domain and checks it belongs to the platform
func NormalizeShopDomain(shop string) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(shop))
	if !shopDomainPattern.MatchString(normalized) {
		return "", fmt.Errorf("%w: %q", domain.ErrInvalidShopDomain, shop)
	}
	return normalized, nil
}

// InstallConfig holds the settings for the OAuth install flow
type InstallConfig struct {
	AppURL   string
	Scopes   []string
	StateTTL time.Duration
	// InitialSyncTimeout bounds the background full sync started after an install
	InitialSyncTimeout time.Duration
}

// CallbackURL is where the platform redirects after the merchant approves the install
func (c InstallConfig) CallbackURL() string {
	return strings.TrimSuffix(c.AppURL, "/") + "/auth/callback"
}

// WebhookAddress is the endpoint every webhook subscription delivers to
func (c InstallConfig) WebhookAddress() string {
	return strings.TrimSuffix(c.AppURL, "/") + "/webhooks/receive"
}

// InstallStart is returned when an install begins
type InstallStart struct {
	AuthURL string
	State   string
	Shop    string
}

// CompleteInstallRequest carries the OAuth callback parameters
type CompleteInstallRequest struct {
	Shop  string
	Code  string
	State string
	// ExpectedState is the state bound to the caller's browser session
	ExpectedState string
	// Query is the full callback query, used to verify the hmac parameter
	Query url.Values
}

// FullSyncer runs a full sync for one tenant
type FullSyncer interface {
	FullSync(ctx context.Context, tenant *domain.Tenant, source domain.Source) *domain.SyncReport
}

// InstallService orchestrates the OAuth install: state issuance, code exchange,
// credential persistence, webhook registration and the initial sync.
type InstallService struct {
	client      ports.ShopifyClient
	credentials *CredentialStore
	states      ports.StateStore
	syncer      FullSyncer
	logger      zerolog.Logger
	cfg         InstallConfig
	now         func() time.Time
	// background runs the initial sync; tests replace it to run inline
	background func(func())
}

// NewInstallService creates a new installation orchestrator
func NewInstallService(
	client ports.ShopifyClient,
	credentials *CredentialStore,
	states ports.StateStore,
	syncer FullSyncer,
	logger zerolog.Logger,
	cfg InstallConfig,
) *InstallService {
	if cfg.StateTTL <= 0 {
		cfg.StateTTL = DefaultStateTTL
	}
	if cfg.InitialSyncTimeout <= 0 {
		cfg.InitialSyncTimeout = 30 * time.Minute
	}
	return &InstallService{
		client:      client,
		credentials: credentials,
		states:      states,
		syncer:      syncer,
		logger:      logger,
		cfg:         cfg,
		now:         time.Now,
		background:  func(fn func()) { go fn() },
	}
}

// BeginInstall issues a state bound to shop and returns the authorization URL to redirect to
func (s *InstallService) BeginInstall(ctx context.Context, shop string) (*InstallStart, error) {
	normalized, err := NormalizeShopDomain(shop)
	if err != nil {
		return nil, err
	}

	state, err := generateState()
	if err != nil {
		return nil, fmt.Errorf("failed to generate state: %w", err)
	}

	now := s.now().UTC()
	if err := s.states.Save(ctx, &domain.InstallState{
		State:     state,
		Shop:      normalized,
		CreatedAt: now,
		ExpiresAt: now.Add(s.cfg.StateTTL),
	}, s.cfg.StateTTL); err != nil {
		return nil, fmt.Errorf("failed to save state: %w", err)
	}

	authURL := s.client.AuthorizeURL(normalized, s.cfg.Scopes, s.cfg.CallbackURL(), state)
	s.logger.Info().
		Str("shop", normalized).
		Strs("scopes", s.cfg.Scopes).
		Msg("Starting OAuth install")

	return &InstallStart{AuthURL: authURL, State: state, Shop: normalized}, nil
}

// CompleteInstall redeems the callback. The state is single-use: a second callback with the
// same state fails with ErrAuthStateMismatch. Webhook registration failures are logged only.
func (s *InstallService) CompleteInstall(ctx context.Context, req CompleteInstallRequest) (*domain.TenantRef, error) {
	shop, err := NormalizeShopDomain(req.Shop)
	if err != nil {
		return nil, err
	}
	log := s.logger.With().Str("shop", shop).Logger()

	if req.State == "" || req.ExpectedState == "" ||
		subtle.ConstantTimeCompare([]byte(req.State), []byte(req.ExpectedState)) != 1 {
		log.Warn().Msg("OAuth state does not match session")
		return nil, fmt.Errorf("%w: state not bound to session", domain.ErrAuthStateMismatch)
	}

	issued, err := s.states.Consume(ctx, req.State)
	if err != nil {
		return nil, fmt.Errorf("failed to consume state: %w", err)
	}
	if issued == nil || issued.Expired(s.now()) || issued.Shop != shop {
		log.Warn().Msg("OAuth state unknown, expired or issued for another shop")
		return nil, fmt.Errorf("%w: state not issued for this shop", domain.ErrAuthStateMismatch)
	}

	if req.Query.Get("hmac") != "" {
		ok, err := s.client.VerifyCallback(req.Query)
		if err != nil || !ok {
			log.Warn().Err(err).Msg("OAuth callback signature rejected")
			return nil, fmt.Errorf("%w: callback hmac", domain.ErrSignatureInvalid)
		}
	}

	if req.Code == "" {
		return nil, fmt.Errorf("%w: missing authorization code", domain.ErrCredentialExchangeFailed)
	}
	accessToken, err := s.client.ExchangeToken(ctx, shop, req.Code)
	if err != nil {
		log.Error().Err(err).Msg("Failed to exchange authorization code")
		if errors.Is(err, domain.ErrCredentialExchangeFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrCredentialExchangeFailed, err)
	}
	if accessToken == "" {
		return nil, fmt.Errorf("%w: empty access token", domain.ErrCredentialExchangeFailed)
	}

	tenant, err := s.credentials.SaveInstallation(ctx, shop, accessToken, s.cfg.Scopes)
	if err != nil {
		return nil, err
	}

	registered := s.RegisterWebhooks(ctx, tenant)
	log.Info().
		Str("tenantId", tenant.ID).
		Int("webhooks", registered).
		Msg("Installation completed")

	s.startInitialSync(tenant)

	ref := tenant.Ref()
	return &ref, nil
}

// RegisterWebhooks subscribes the tenant to every ingestion topic and returns how many succeeded
func (s *InstallService) RegisterWebhooks(ctx context.Context, tenant *domain.Tenant) int {
	address := s.cfg.WebhookAddress()
	registered := 0
	for _, topic := range domain.SubscriptionTopics {
		if err := s.client.CreateWebhook(ctx, tenant.ShopDomain, tenant.AccessToken, topic, address); err != nil {
			s.logger.Warn().
				Err(err).
				Str("shop", tenant.ShopDomain).
				Str("topic", topic).
				Msg("Failed to register webhook")
			continue
		}
		registered++
	}
	return registered
}

func (s *InstallService) startInitialSync(tenant *domain.Tenant) {
	if s.syncer == nil {
		return
	}
	s.background(func() {
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error().
					Interface("panic", r).
					Str("tenantId", tenant.ID).
					Msg("Initial sync panicked")
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), s.cfg.InitialSyncTimeout)
		defer cancel()
		s.syncer.FullSync(ctx, tenant, domain.SourceSync)
	})
}

func generateState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
