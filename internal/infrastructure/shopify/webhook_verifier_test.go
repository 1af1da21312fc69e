package shopify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWebhookVerifier_Verify(t *testing.T) {
	secret := []byte("shpss_secret")
	payload := []byte(`{"id": 820982911946154508, "email": "jon@example.com"}`)
	valid := Sign(secret, payload)
	v := NewWebhookVerifier(string(secret))

	tests := []struct {
		name      string
		payload   []byte
		signature string
		want      bool
	}{
		{name: "valid", payload: payload, signature: valid, want: true},
		{name: "surrounding whitespace", payload: payload, signature: " " + valid + " ", want: true},
		{name: "tampered body", payload: []byte(`{"id": 820982911946154509, "email": "jon@example.com"}`), signature: valid},
		{name: "missing header", payload: payload, signature: ""},
		{name: "not base64", payload: payload, signature: "%%%"},
		{name: "wrong secret", payload: payload, signature: Sign([]byte("other"), payload)},
		{name: "truncated", payload: payload, signature: valid[:10]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, v.Verify(tt.payload, tt.signature))
		})
	}
}

func TestVerifySignature_EmptySecretNeverMatches(t *testing.T) {
	payload := []byte(`{}`)
	assert.False(t, VerifySignature(nil, payload, Sign(nil, payload)))
}
