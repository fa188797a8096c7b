package identity

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	// ErrEmptySigningKey is returned when a signer is built without a key.
	ErrEmptySigningKey = errors.New("webhook signing key cannot be empty")

	// ErrInvalidBaseURL is returned when the webhook base URL is not an absolute URL.
	ErrInvalidBaseURL = errors.New("invalid webhook base URL")
)

// DeriveWebhookSecret returns the hex encoded HMAC-SHA256 of id under signingKey.
func DeriveWebhookSecret(id string, signingKey []byte) string {
	mac := hmac.New(sha256.New, signingKey)
	mac.Write([]byte(id))

	return hex.EncodeToString(mac.Sum(nil))
}

// DeriveWebhookURL returns "{baseURL}/webhook/{id}/{secret}".
func DeriveWebhookURL(id, secret, baseURL string) (string, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidBaseURL, err)
	}

	if parsed.Scheme == "" || parsed.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidBaseURL, baseURL)
	}

	return strings.TrimRight(baseURL, "/") + "/webhook/" + id + "/" + secret, nil
}

// WebhookSigner carries the process-wide signing key and runner base URL so that
// callers never read them from globals.
type WebhookSigner struct {
	key     []byte
	baseURL string
}

// NewWebhookSigner validates and builds a signer.
func NewWebhookSigner(signingKey []byte, baseURL string) (*WebhookSigner, error) {
	if len(signingKey) == 0 {
		return nil, ErrEmptySigningKey
	}

	if _, err := DeriveWebhookURL("probe", "probe", baseURL); err != nil {
		return nil, err
	}

	key := make([]byte, len(signingKey))
	copy(key, signingKey)

	return &WebhookSigner{key: key, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Secret derives the secret of webhook id.
func (s *WebhookSigner) Secret(id string) string {
	return DeriveWebhookSecret(id, s.key)
}

// URL derives the public URL of webhook id.
func (s *WebhookSigner) URL(id string) string {
	return s.baseURL + "/webhook/" + id + "/" + s.Secret(id)
}

// Verify reports whether secret is the secret of webhook id, in constant time.
func (s *WebhookSigner) Verify(id, secret string) bool {
	return subtle.ConstantTimeCompare([]byte(s.Secret(id)), []byte(secret)) == 1
}
