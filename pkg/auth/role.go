// Package auth resolves callers into roles and holds the ownership predicates every
// operation checks before touching the store.
package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrForbidden indicates the role may not perform the requested operation.
	ErrForbidden = errors.New("forbidden")

	// ErrInvalidRole indicates a role without the identifiers its kind requires.
	ErrInvalidRole = errors.New("invalid role")
)

// Kind tags the variant of a Role.
type Kind string

const (
	KindUser    Kind = "user"
	KindService Kind = "service"
)

// Role is the resolved identity an operation runs under. A user role acts for UserID.
// A service role is a machine caller acting on behalf of UserID and is never derived
// from a browser session.
type Role struct {
	Kind      Kind   `json:"type"`
	UserID    string `json:"user_id"`
	ServiceID string `json:"service_id,omitempty"`
}

// UserRole builds a user role.
func UserRole(userID string) Role {
	return Role{Kind: KindUser, UserID: userID}
}

// ServiceRole builds a service role acting for userID.
func ServiceRole(userID, serviceID string) Role {
	return Role{Kind: KindService, UserID: userID, ServiceID: serviceID}
}

// IsService reports whether r is a service role.
func (r Role) IsService() bool {
	return r.Kind == KindService
}

// Validate checks r carries the identifiers its kind needs.
func (r Role) Validate() error {
	switch r.Kind {
	case KindUser:
		if r.UserID == "" {
			return fmt.Errorf("%w: user role without user id", ErrInvalidRole)
		}
	case KindService:
		if r.UserID == "" || r.ServiceID == "" {
			return fmt.Errorf("%w: service role needs user id and service id", ErrInvalidRole)
		}
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidRole, r.Kind)
	}

	return nil
}

// Owns reports whether r may act on entities owned by ownerID.
func (r Role) Owns(ownerID string) bool {
	return r.Validate() == nil && r.UserID == ownerID
}

// RequireOwner fails with ErrForbidden unless r owns ownerID.
func RequireOwner(r Role, ownerID string) error {
	if !r.Owns(ownerID) {
		return fmt.Errorf("%w: %s %q may not act for owner %q", ErrForbidden, r.Kind, r.UserID, ownerID)
	}

	return nil
}

// RequireService fails with ErrForbidden unless r is a valid service role.
func RequireService(r Role) error {
	if r.Validate() != nil || !r.IsService() {
		return fmt.Errorf("%w: service role required", ErrForbidden)
	}

	return nil
}
