package domain

import "time"

// Tenant represents one installed shop and its platform credential.
// AccessToken is plaintext only while in memory; the credential store encrypts it before persisting.
type Tenant struct {
	ID          string    `json:"id"`
	ShopDomain  string    `json:"shopDomain"`
	AccessToken string    `json:"-"`
	Scopes      []string  `json:"scopes,omitempty"`
	InstalledAt time.Time `json:"installedAt"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// TenantRef is the lightweight handle returned once an installation completes
type TenantRef struct {
	ID         string `json:"id"`
	ShopDomain string `json:"shopDomain"`
}

// Ref returns the tenant's reference
func (t *Tenant) Ref() TenantRef {
	return TenantRef{ID: t.ID, ShopDomain: t.ShopDomain}
}
