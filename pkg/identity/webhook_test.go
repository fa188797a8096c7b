package identity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveWebhookSecret(t *testing.T) {
	t.Parallel()

	key := []byte("signing-key")

	first := DeriveWebhookSecret("webhook-1", key)
	assert.Equal(t, first, DeriveWebhookSecret("webhook-1", key))
	assert.Len(t, first, 64)
	assert.NotContains(t, first, "webhook-1")

	assert.NotEqual(t, first, DeriveWebhookSecret("webhook-1", []byte("other-key")))

	secrets := make(map[string]string)

	for range 500 {
		id := NewID()
		secret := DeriveWebhookSecret(id, key)

		other, exists := secrets[secret]
		require.False(t, exists, "secret collision between %s and %s", id, other)

		secrets[secret] = id
	}
}

func TestDeriveWebhookURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		baseURL string
		want    string
		wantErr bool
	}{
		{name: "plain", baseURL: "https://runner.example.com", want: "https://runner.example.com/webhook/w1/s1"},
		{name: "trailing slash", baseURL: "http://localhost:8001/", want: "http://localhost:8001/webhook/w1/s1"},
		{name: "relative", baseURL: "/runner", wantErr: true},
		{name: "empty", baseURL: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := DeriveWebhookURL("w1", "s1", tt.baseURL)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidBaseURL)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWebhookSigner(t *testing.T) {
	t.Parallel()

	_, err := NewWebhookSigner(nil, "http://localhost:8001")
	require.ErrorIs(t, err, ErrEmptySigningKey)

	_, err = NewWebhookSigner([]byte("k"), "not a url")
	require.ErrorIs(t, err, ErrInvalidBaseURL)

	signer, err := NewWebhookSigner([]byte("k"), "http://localhost:8001/")
	require.NoError(t, err)

	secret := signer.Secret("abc")
	assert.Equal(t, DeriveWebhookSecret("abc", []byte("k")), secret)
	assert.Equal(t, "http://localhost:8001/webhook/abc/"+secret, signer.URL("abc"))
	assert.True(t, signer.Verify("abc", secret))
	assert.False(t, signer.Verify("abc", "wrong"))
	assert.False(t, signer.Verify("abd", secret))
}
