package shopify

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

// WebhookVerifier checks the X-Shopify-Hmac-Sha256 header against the raw request body
type WebhookVerifier struct {
	secret []byte
}

// NewWebhookVerifier creates a verifier for the app's shared secret
func NewWebhookVerifier(secret string) *WebhookVerifier {
	return &WebhookVerifier{secret: []byte(secret)}
}

// Verify reports whether signature is the base64 HMAC-SHA256 of payload
func (v *WebhookVerifier) Verify(payload []byte, signature string) bool {
	return VerifySignature(v.secret, payload, signature)
}

// VerifySignature compares in constant time. A missing or undecodable header never matches.
func VerifySignature(secret []byte, payload []byte, signature string) bool {
	signature = strings.TrimSpace(signature)
	if len(secret) == 0 || signature == "" {
		return false
	}
	given, err := base64.StdEncoding.DecodeString(signature)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	expected := mac.Sum(nil)

	if len(given) != len(expected) {
		return false
	}
	return hmac.Equal(given, expected)
}

// Sign returns the header value the platform would send for payload
func Sign(secret []byte, payload []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
