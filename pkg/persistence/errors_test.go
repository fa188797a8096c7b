package persistence_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/dukex/wirecat/pkg/persistence"
	"github.com/stretchr/testify/assert"
)

func TestStandardizedErrors(t *testing.T) {
	t.Parallel()

	t.Run("error checking functions work correctly", func(t *testing.T) {
		workflowErr := persistence.NewWorkflowError("GetByID", "workflow-123", persistence.ErrWorkflowNotFound)
		actionErr := persistence.NewActionError("Delete", "action-1", persistence.ErrActionNotFound)

		assert.True(t, persistence.IsWorkflowNotFound(workflowErr))
		assert.False(t, persistence.IsWorkflowNotFound(actionErr))
		assert.True(t, persistence.IsNotFound(actionErr))
		assert.True(t, errors.Is(workflowErr, persistence.ErrWorkflowNotFound))
	})

	t.Run("wrapped errors keep their identity", func(t *testing.T) {
		err := fmt.Errorf("clone failed: %w", persistence.NewWebhookError("Insert", "w1", persistence.ErrParentNotFound))

		assert.True(t, persistence.IsConstraintViolation(err))
		assert.False(t, persistence.IsNotFound(err))
	})

	t.Run("entity error contains context", func(t *testing.T) {
		err := persistence.NewRunError("UpdateWorkflowRunStatus", "run-123", persistence.ErrRunNotFound)

		assert.Contains(t, err.Error(), "UpdateWorkflowRunStatus")
		assert.Contains(t, err.Error(), "run run-123")
		assert.Contains(t, err.Error(), "run not found")
	})
}
