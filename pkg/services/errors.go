// Package services implements the workflow store operations: the graph clone engine and
// the CRUD services around it. Every operation takes the caller's auth.Role explicitly.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dukex/wirecat/pkg/auth"
	"github.com/dukex/wirecat/pkg/graph"
	"github.com/dukex/wirecat/pkg/persistence"
)

// Caller errors. They are surfaced immediately and never retried.
var (
	// ErrNotFound indicates the entity is absent or not owned by the caller.
	ErrNotFound = errors.New("not found")

	// ErrForbidden indicates the role may not perform the operation.
	ErrForbidden = auth.ErrForbidden

	// ErrInvalidRequest indicates a request that fails validation (400 Bad Request).
	ErrInvalidRequest = errors.New("invalid request")

	// ErrInvalidStatus indicates an unknown workflow or run status.
	ErrInvalidStatus = errors.New("invalid status")

	// ErrInvalidActionType indicates an unsupported action type.
	ErrInvalidActionType = errors.New("invalid action type")

	// ErrGraphNotClosed indicates a graph document naming actions the workflow does not have.
	ErrGraphNotClosed = errors.New("graph references actions outside the workflow")
)

// ErrStoreFailure wraps persistence failures. The transaction was rolled back and the
// caller may retry.
var ErrStoreFailure = errors.New("store failure")

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// GraphInconsistency records a graph reference with no matching action row. It is
// reported alongside a successful clone and never returned as an error.
type GraphInconsistency struct {
	WorkflowID string `json:"workflow_id"`
	Reference  string `json:"reference"`
}

func (g GraphInconsistency) String() string {
	return fmt.Sprintf("workflow %s graph references unknown id %q", g.WorkflowID, g.Reference)
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, ErrInvalidActionType) ||
		errors.Is(err, ErrGraphNotClosed)
}

// IsNotFound reports whether err means the entity is absent for the caller.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || persistence.IsNotFound(err)
}

// IsRetryable reports whether the caller may retry the failed operation.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreFailure)
}

// classify maps an error leaving a transaction onto the service taxonomy. Errors
// already in the taxonomy pass through; everything else is a store failure.
func classify(op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound),
		errors.Is(err, ErrForbidden),
		errors.Is(err, graph.ErrMalformedGraph),
		errors.Is(err, ErrStoreFailure),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded),
		IsValidationError(err):
		return fmt.Errorf("%s: %w", op, err)
	case persistence.IsNotFound(err):
		return fmt.Errorf("%s: %w: %w", op, ErrNotFound, err)
	default:
		return fmt.Errorf("%s: %w: %w", op, ErrStoreFailure, err)
	}
}

// requireRole rejects roles missing their identifiers. Ownership itself is enforced by
// scoping every read to role.UserID, so foreign entities surface as ErrNotFound.
func requireRole(role auth.Role) error {
	err := role.Validate()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrForbidden, err)
	}

	return nil
}
