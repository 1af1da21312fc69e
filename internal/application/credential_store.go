package application

import (
	"context"
	"fmt"
	"time"

	"shopify-ingestion-service/internal/domain"
	"shopify-ingestion-service/internal/ports"

	"github.com/rs/zerolog"
)

// CredentialStore is the only component that reads or writes access credentials.
// Tokens are encrypted before they reach the repository and decrypted on the way out.
type CredentialStore struct {
	tenants       ports.TenantRepository
	encryptionSvc ports.EncryptionService
	logger        zerolog.Logger
	now           func() time.Time
}

// NewCredentialStore creates a new credential store
func NewCredentialStore(tenants ports.TenantRepository, encryptionSvc ports.EncryptionService, logger zerolog.Logger) *CredentialStore {
	return &CredentialStore{
		tenants:       tenants,
		encryptionSvc: encryptionSvc,
		logger:        logger,
		now:           time.Now,
	}
}

// SaveInstallation upserts the tenant keyed on shop domain.
// A re-install replaces the credential and install timestamp and reactivates the tenant.
func (s *CredentialStore) SaveInstallation(ctx context.Context, shop string, accessToken string, scopes []string) (*domain.Tenant, error) {
	encryptedToken, err := s.encryptionSvc.Encrypt(accessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt access token: %w", err)
	}

	now := s.now().UTC()
	saved, err := s.tenants.UpsertByShop(ctx, &domain.Tenant{
		ShopDomain:  shop,
		AccessToken: encryptedToken,
		Scopes:      scopes,
		InstalledAt: now,
		Active:      true,
		UpdatedAt:   now,
	})
	if err != nil {
		s.logger.Error().Err(err).Str("shop", shop).Msg("Failed to save installation")
		return nil, fmt.Errorf("failed to save installation: %w", err)
	}

	saved.AccessToken = accessToken
	return saved, nil
}

// GetByID returns the tenant with a decrypted credential
func (s *CredentialStore) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	tenant, err := s.tenants.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}
	if tenant == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrTenantNotFound, id)
	}
	return s.decrypt(tenant)
}

// GetByShop returns the tenant for a shop domain with a decrypted credential
func (s *CredentialStore) GetByShop(ctx context.Context, shop string) (*domain.Tenant, error) {
	if shop == "" {
		return nil, fmt.Errorf("%w: empty shop domain", domain.ErrTenantNotFound)
	}
	tenant, err := s.tenants.GetByShop(ctx, shop)
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant: %w", err)
	}
	if tenant == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrTenantNotFound, shop)
	}
	return s.decrypt(tenant)
}

// ListActive returns every active tenant. Tenants whose credential cannot be decrypted are skipped.
func (s *CredentialStore) ListActive(ctx context.Context) ([]*domain.Tenant, error) {
	tenants, err := s.tenants.List(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}

	out := make([]*domain.Tenant, 0, len(tenants))
	for _, t := range tenants {
		decrypted, err := s.decrypt(t)
		if err != nil {
			s.logger.Warn().Err(err).Str("tenantId", t.ID).Str("shop", t.ShopDomain).Msg("Skipping tenant with unreadable credential")
			continue
		}
		out = append(out, decrypted)
	}
	return out, nil
}

// ListTenants returns all tenants without credentials, for read-only listing
func (s *CredentialStore) ListTenants(ctx context.Context) ([]*domain.Tenant, error) {
	tenants, err := s.tenants.List(ctx, false)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	for _, t := range tenants {
		t.AccessToken = ""
	}
	return tenants, nil
}

// Deactivate marks a tenant as uninstalled. The credential is retained.
func (s *CredentialStore) Deactivate(ctx context.Context, id string) error {
	if err := s.tenants.SetActive(ctx, id, false); err != nil {
		return fmt.Errorf("failed to deactivate tenant: %w", err)
	}
	s.logger.Info().Str("tenantId", id).Msg("Tenant deactivated")
	return nil
}

// DeactivateUninstalled deactivates the tenant unless it was installed after uninstalledAt.
// It reports whether the tenant was deactivated.
func (s *CredentialStore) DeactivateUninstalled(ctx context.Context, id string, uninstalledAt time.Time) (bool, error) {
	tenant, err := s.tenants.GetByID(ctx, id)
	if err != nil {
		return false, fmt.Errorf("failed to get tenant: %w", err)
	}
	if tenant == nil {
		return false, fmt.Errorf("%w: %s", domain.ErrTenantNotFound, id)
	}
	if !uninstalledAt.IsZero() && tenant.InstalledAt.After(uninstalledAt) {
		return false, nil
	}
	if err := s.Deactivate(ctx, id); err != nil {
		return false, err
	}
	return true, nil
}

func (s *CredentialStore) decrypt(tenant *domain.Tenant) (*domain.Tenant, error) {
	if tenant.AccessToken == "" {
		return tenant, nil
	}
	token, err := s.encryptionSvc.Decrypt(tenant.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt access token: %w", err)
	}
	out := *tenant
	out.AccessToken = token
	return &out, nil
}
