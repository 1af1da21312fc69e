package domain

import "errors"

// Ingestion error taxonomy. Callers classify with errors.Is.
var (
	// ErrAuthStateMismatch means the OAuth state was missing, forged, expired or already used
	ErrAuthStateMismatch = errors.New("oauth state mismatch")

	// ErrCredentialExchangeFailed means the platform did not hand back an access credential
	ErrCredentialExchangeFailed = errors.New("credential exchange failed")

	// ErrSignatureInvalid means an HMAC signature was missing or did not match
	ErrSignatureInvalid = errors.New("signature invalid")

	// ErrTenantNotFound means no installation exists for the given id or shop domain
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrTenantInactive means the tenant exists but has uninstalled the app
	ErrTenantInactive = errors.New("tenant inactive")

	// ErrMalformedPayload is scoped to a single record and never aborts a batch
	ErrMalformedPayload = errors.New("malformed payload")

	// ErrUpstreamRequestFailed aborts one page sequence or one subscription call
	ErrUpstreamRequestFailed = errors.New("upstream request failed")

	// ErrStorageConstraintViolation is scoped to a single record and never aborts a batch
	ErrStorageConstraintViolation = errors.New("storage constraint violation")

	// ErrInvalidShopDomain rejects install requests for domains outside the platform
	ErrInvalidShopDomain = errors.New("invalid shop domain")
)

// IsRecordScoped reports whether err only invalidates the record it was raised for
func IsRecordScoped(err error) bool {
	return errors.Is(err, ErrMalformedPayload) || errors.Is(err, ErrStorageConstraintViolation)
}
