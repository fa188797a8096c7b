package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrWorkflowNotFound indicates a workflow was not found for the given owner.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrActionNotFound indicates an action was not found for the given owner.
	ErrActionNotFound = errors.New("action not found")

	// ErrWebhookNotFound indicates a webhook was not found for the given owner.
	ErrWebhookNotFound = errors.New("webhook not found")

	// ErrRunNotFound indicates a workflow or action run was not found.
	ErrRunNotFound = errors.New("run not found")

	// ErrAlreadyExists indicates an entity with the same id already exists.
	ErrAlreadyExists = errors.New("entity already exists")

	// ErrParentNotFound indicates an insert referenced a parent that does not exist
	// or belongs to another owner.
	ErrParentNotFound = errors.New("parent entity not found")
)

// EntityError wraps storage errors with the operation and entity they concern.
type EntityError struct {
	Op     string // Operation being performed (e.g., "GetByID", "Insert", "Delete")
	Entity string // "workflow", "action", "webhook", "run"
	ID     string
	Err    error
}

func (e *EntityError) Error() string {
	return fmt.Sprintf("%s operation failed for %s %s: %v", e.Op, e.Entity, e.ID, e.Err)
}

func (e *EntityError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for entity errors.
func (e *EntityError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewWorkflowError creates a new workflow error with context.
func NewWorkflowError(op, workflowID string, err error) *EntityError {
	return &EntityError{Op: op, Entity: "workflow", ID: workflowID, Err: err}
}

// NewActionError creates a new action error with context.
func NewActionError(op, actionID string, err error) *EntityError {
	return &EntityError{Op: op, Entity: "action", ID: actionID, Err: err}
}

// NewWebhookError creates a new webhook error with context.
func NewWebhookError(op, webhookID string, err error) *EntityError {
	return &EntityError{Op: op, Entity: "webhook", ID: webhookID, Err: err}
}

// NewRunError creates a new run error with context.
func NewRunError(op, runID string, err error) *EntityError {
	return &EntityError{Op: op, Entity: "run", ID: runID, Err: err}
}

// IsNotFound checks if an error indicates any entity was not found.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound) ||
		errors.Is(err, ErrActionNotFound) ||
		errors.Is(err, ErrWebhookNotFound) ||
		errors.Is(err, ErrRunNotFound)
}

// IsWorkflowNotFound checks if an error indicates a workflow was not found.
func IsWorkflowNotFound(err error) bool {
	return errors.Is(err, ErrWorkflowNotFound)
}

// IsConstraintViolation checks if an error came from a broken uniqueness or parent constraint.
func IsConstraintViolation(err error) bool {
	return errors.Is(err, ErrAlreadyExists) || errors.Is(err, ErrParentNotFound)
}
