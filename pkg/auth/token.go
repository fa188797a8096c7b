package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "wirecat"

var (
	// ErrUnauthenticated indicates a missing or invalid bearer token.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrEmptyTokenSecret indicates a resolver built without a key.
	ErrEmptyTokenSecret = errors.New("token secret must not be empty")
)

// Claims are the JWT claims carrying a role. Subject holds the user id.
type Claims struct {
	jwt.RegisteredClaims
	Kind      Kind   `json:"role"`
	ServiceID string `json:"service_id,omitempty"`
}

// TokenResolver turns HMAC-signed bearer tokens into roles.
type TokenResolver struct {
	secret []byte
}

// NewTokenResolver creates a resolver verifying tokens with secret.
func NewTokenResolver(secret []byte) (*TokenResolver, error) {
	if len(secret) == 0 {
		return nil, ErrEmptyTokenSecret
	}

	return &TokenResolver{secret: secret}, nil
}

// Issue signs a token for role valid for ttl.
func (r *TokenResolver) Issue(role Role, ttl time.Duration) (string, error) {
	err := role.Validate()
	if err != nil {
		return "", err
	}

	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Kind:      role.Kind,
		ServiceID: role.ServiceID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   role.UserID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	})

	signed, err := token.SignedString(r.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

// Resolve verifies tokenString and returns the role it carries.
func (r *TokenResolver) Resolve(tokenString string) (Role, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		return r.secret, nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithExpirationRequired())
	if err != nil {
		return Role{}, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return Role{}, fmt.Errorf("%w: invalid token", ErrUnauthenticated)
	}

	role := Role{Kind: claims.Kind, UserID: claims.Subject, ServiceID: claims.ServiceID}

	err = role.Validate()
	if err != nil {
		return Role{}, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}

	return role, nil
}
