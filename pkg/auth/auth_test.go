package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRole_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		role    Role
		wantErr bool
	}{
		{"user", UserRole("u1"), false},
		{"service", ServiceRole("u1", "runner"), false},
		{"user without id", UserRole(""), true},
		{"service without service id", ServiceRole("u1", ""), true},
		{"zero value", Role{}, true},
		{"unknown kind", Role{Kind: "admin", UserID: "u1"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := tt.role.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidRole)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRequireOwner(t *testing.T) {
	t.Parallel()

	assert.NoError(t, RequireOwner(UserRole("u1"), "u1"))
	assert.NoError(t, RequireOwner(ServiceRole("u1", "runner"), "u1"))
	assert.ErrorIs(t, RequireOwner(UserRole("u1"), "u2"), ErrForbidden)
	assert.ErrorIs(t, RequireOwner(UserRole(""), ""), ErrForbidden)
}

func TestRequireService(t *testing.T) {
	t.Parallel()

	assert.NoError(t, RequireService(ServiceRole("u1", "runner")))
	assert.ErrorIs(t, RequireService(UserRole("u1")), ErrForbidden)
	assert.ErrorIs(t, RequireService(ServiceRole("u1", "")), ErrForbidden)
}

func TestGate_CanClone(t *testing.T) {
	t.Parallel()

	gate := NewGate("")
	require.Equal(t, DefaultLibraryOwner, gate.LibraryOwner())

	tests := []struct {
		name        string
		role        Role
		sourceOwner string
		targetOwner string
		allowed     bool
	}{
		{"user clones from library", UserRole("U1"), "tracecat", "U1", true},
		{"another user clones from library", UserRole("U7"), "tracecat", "U7", true},
		{"user clones own workflow", UserRole("U1"), "U1", "U1", true},
		{"service clones own workflow", ServiceRole("U1", "runner"), "U1", "U1", true},
		{"user clones other user", UserRole("U1"), "U2", "U1", false},
		{"service clones other user", ServiceRole("U1", "runner"), "U2", "U1", false},
		{"clone into someone else", UserRole("U1"), "tracecat", "U2", false},
		{"invalid role", Role{}, "tracecat", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := gate.CanClone(tt.role, tt.sourceOwner, tt.targetOwner)
			if tt.allowed {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrForbidden)
			}
		})
	}
}

func TestGate_CloneSource(t *testing.T) {
	t.Parallel()

	gate := NewGate("library")

	owner, err := gate.CloneSource(UserRole("u1"), "")
	require.NoError(t, err)
	assert.Equal(t, "library", owner)

	_, err = gate.CloneSource(UserRole("u1"), "u2")
	require.ErrorIs(t, err, ErrForbidden)

	owner, err = gate.CloneSource(ServiceRole("u1", "runner"), "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", owner)
}

func TestTokenResolver(t *testing.T) {
	t.Parallel()

	_, err := NewTokenResolver(nil)
	require.ErrorIs(t, err, ErrEmptyTokenSecret)

	resolver, err := NewTokenResolver([]byte("test-secret"))
	require.NoError(t, err)

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()

		for _, role := range []Role{UserRole("u1"), ServiceRole("u1", "runner")} {
			token, err := resolver.Issue(role, time.Minute)
			require.NoError(t, err)

			got, err := resolver.Resolve(token)
			require.NoError(t, err)
			assert.Equal(t, role, got)
		}
	})

	t.Run("expired", func(t *testing.T) {
		t.Parallel()

		token, err := resolver.Issue(UserRole("u1"), -time.Minute)
		require.NoError(t, err)

		_, err = resolver.Resolve(token)
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("wrong key", func(t *testing.T) {
		t.Parallel()

		other, err := NewTokenResolver([]byte("other-secret"))
		require.NoError(t, err)

		token, err := other.Issue(UserRole("u1"), time.Minute)
		require.NoError(t, err)

		_, err = resolver.Resolve(token)
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("unsigned", func(t *testing.T) {
		t.Parallel()

		token := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
			Kind:             KindUser,
			RegisteredClaims: jwt.RegisteredClaims{Subject: "u1", Issuer: tokenIssuer},
		})
		raw, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = resolver.Resolve(raw)
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("issue rejects invalid role", func(t *testing.T) {
		t.Parallel()

		_, err := resolver.Issue(Role{Kind: KindService, UserID: "u1"}, time.Minute)
		assert.ErrorIs(t, err, ErrInvalidRole)
	})

	t.Run("garbage", func(t *testing.T) {
		t.Parallel()

		_, err := resolver.Resolve("not-a-token")
		assert.ErrorIs(t, err, ErrUnauthenticated)
	})
}
