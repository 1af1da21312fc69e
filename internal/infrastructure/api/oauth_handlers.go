package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"shopify-ingestion-service/internal/application"
	"shopify-ingestion-service/internal/domain"

	"github.com/rs/zerolog"
)

// NonceCookie carries the OAuth state between the install redirect and the callback
const NonceCookie = "shopify_nonce"

// Callback failure reasons passed to the frontend error page
const (
	ReasonInvalidState        = "invalid_state"
	ReasonInvalidSignature    = "invalid_signature"
	ReasonTokenExchangeFailed = "token_exchange_failed"
	ReasonServerError         = "server_error"
)

// Installer runs the OAuth install flow
type Installer interface {
	BeginInstall(ctx context.Context, shop string) (*application.InstallStart, error)
	CompleteInstall(ctx context.Context, req application.CompleteInstallRequest) (*domain.TenantRef, error)
}

// OAuthConfig controls the install redirects and the nonce cookie
type OAuthConfig struct {
	FrontendURL   string
	SecureCookies bool
}

// OAuthInstallHandler issues a state, binds it to the browser with a cookie and redirects to the platform
func OAuthInstallHandler(installer Installer, cfg OAuthConfig, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		shop := r.URL.Query().Get("shop")
		if shop == "" {
			writeError(w, http.StatusBadRequest, "shop parameter is required")
			return
		}

		start, err := installer.BeginInstall(r.Context(), shop)
		if errors.Is(err, domain.ErrInvalidShopDomain) {
			writeError(w, http.StatusBadRequest, "invalid shop domain")
			return
		}
		if err != nil {
			logger.Error().Err(err).Str("shop", shop).Msg("Failed to begin install")
			writeError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     NonceCookie,
			Value:    start.State,
			Path:     "/",
			MaxAge:   int(application.DefaultStateTTL.Seconds()),
			HttpOnly: true,
			Secure:   cfg.SecureCookies,
			SameSite: http.SameSiteLaxMode,
		})
		http.Redirect(w, r, start.AuthURL, http.StatusFound)
	}
}

// OAuthCallbackHandler completes the install and redirects to the dashboard or the error page
func OAuthCallbackHandler(installer Installer, cfg OAuthConfig, logger zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		expected := ""
		if c, err := r.Cookie(NonceCookie); err == nil {
			expected = c.Value
		}
		http.SetCookie(w, &http.Cookie{
			Name:     NonceCookie,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   cfg.SecureCookies,
			SameSite: http.SameSiteLaxMode,
		})

		ref, err := installer.CompleteInstall(r.Context(), application.CompleteInstallRequest{
			Shop:          q.Get("shop"),
			Code:          q.Get("code"),
			State:         q.Get("state"),
			ExpectedState: expected,
			Query:         q,
		})
		if err != nil {
			reason := callbackFailureReason(err)
			logger.Warn().Err(err).Str("shop", q.Get("shop")).Str("reason", reason).Msg("OAuth callback failed")
			http.Redirect(w, r, cfg.FrontendURL+"/install/error?reason="+url.QueryEscape(reason), http.StatusFound)
			return
		}

		redirect := cfg.FrontendURL + "/dashboard?" + url.Values{
			"tenant": {ref.ID},
			"shop":   {ref.ShopDomain},
		}.Encode()
		http.Redirect(w, r, redirect, http.StatusFound)
	}
}

func callbackFailureReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrAuthStateMismatch), errors.Is(err, domain.ErrInvalidShopDomain):
		return ReasonInvalidState
	case errors.Is(err, domain.ErrSignatureInvalid):
		return ReasonInvalidSignature
	case errors.Is(err, domain.ErrCredentialExchangeFailed):
		return ReasonTokenExchangeFailed
	default:
		return ReasonServerError
	}
}
