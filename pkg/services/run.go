package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/wirecat/pkg/auth"
	"github.com/dukex/wirecat/pkg/events"
	"github.com/dukex/wirecat/pkg/models"
	"github.com/dukex/wirecat/pkg/persistence"
)

// DefaultRunListLimit bounds run listings when the caller gives no limit.
const DefaultRunListLimit = 100

// Run records workflow and action runs. Runs are written by service roles only and are
// never cloned.
type Run struct {
	options

	persistence persistence.Persistence
	logger      *slog.Logger
}

// NewRun creates a new run service.
func NewRun(persistence persistence.Persistence, logger *slog.Logger, opts ...Option) *Run {
	return &Run{
		options:     buildOptions(opts),
		persistence: persistence,
		logger:      logger.With("module", "run_service"),
	}
}

// CreateWorkflowRun starts a pending run of a workflow of the service role's user.
func (r *Run) CreateWorkflowRun(ctx context.Context, role auth.Role, workflowID string) (*models.WorkflowRun, error) {
	err := auth.RequireService(role)
	if err != nil {
		return nil, classify("create workflow run", err)
	}

	run := &models.WorkflowRun{
		ID:         r.newID(),
		OwnerID:    role.UserID,
		WorkflowID: workflowID,
		Status:     models.RunStatusPending,
	}

	err = r.persistence.WithTransaction(ctx, func(ctx context.Context, tx persistence.Tx) error {
		_, err := tx.Workflows().GetByID(ctx, role.UserID, workflowID)
		if err != nil {
			return err
		}

		return tx.Runs().InsertWorkflowRun(ctx, run)
	})
	if err != nil {
		return nil, classify("create workflow run", err)
	}

	return run, nil
}

// UpdateWorkflowRunStatus moves a workflow run to status.
func (r *Run) UpdateWorkflowRunStatus(
	ctx context.Context,
	role auth.Role,
	runID string,
	status models.RunStatus,
) (*models.WorkflowRun, error) {
	err := r.checkStatusUpdate(role, status)
	if err != nil {
		return nil, classify("update workflow run", err)
	}

	var run *models.WorkflowRun

	err = r.persistence.WithTransaction(ctx, func(ctx context.Context, tx persistence.Tx) error {
		run, err = tx.Runs().UpdateWorkflowRunStatus(ctx, role.UserID, runID, status)

		return err
	})
	if err != nil {
		return nil, classify("update workflow run", err)
	}

	r.publish(ctx, r.logger, run.WorkflowID,
		events.NewRunStatusChanged(run.WorkflowID, run.OwnerID, run.ID, "", string(run.Status)))

	return run, nil
}

// GetWorkflowRun returns a workflow run of role's user.
func (r *Run) GetWorkflowRun(ctx context.Context, role auth.Role, runID string) (*models.WorkflowRun, error) {
	err := requireRole(role)
	if err != nil {
		return nil, classify("get workflow run", err)
	}

	var run *models.WorkflowRun

	err = r.persistence.WithTransaction(ctx, func(ctx context.Context, tx persistence.Tx) error {
		run, err = tx.Runs().GetWorkflowRun(ctx, role.UserID, runID)

		return err
	})
	if err != nil {
		return nil, classify("get workflow run", err)
	}

	return run, nil
}

// ListWorkflowRuns returns up to limit runs of a workflow of role's user, oldest first.
func (r *Run) ListWorkflowRuns(
	ctx context.Context,
	role auth.Role,
	workflowID string,
	limit int,
) ([]*models.WorkflowRun, error) {
	err := requireRole(role)
	if err != nil {
		return nil, classify("list workflow runs", err)
	}

	var runs []*models.WorkflowRun

	err = r.persistence.WithTransaction(ctx, func(ctx context.Context, tx persistence.Tx) error {
		_, err := tx.Workflows().GetByID(ctx, role.UserID, workflowID)
		if err != nil {
			return err
		}

		runs, err = tx.Runs().ListWorkflowRuns(ctx, role.UserID, workflowID, listLimit(limit))

		return err
	})
	if err != nil {
		return nil, classify("list workflow runs", err)
	}

	return runs, nil
}

// CreateActionRun starts a pending run of an action within a workflow run.
func (r *Run) CreateActionRun(
	ctx context.Context,
	role auth.Role,
	actionID, workflowRunID string,
) (*models.ActionRun, error) {
	err := auth.RequireService(role)
	if err != nil {
		return nil, classify("create action run", err)
	}

	run := &models.ActionRun{
		ID:            r.newID(),
		OwnerID:       role.UserID,
		ActionID:      actionID,
		WorkflowRunID: workflowRunID,
		Status:        models.RunStatusPending,
	}

	err = r.persistence.WithTransaction(ctx, func(ctx context.Context, tx persistence.Tx) error {
		action, err := tx.Actions().GetByID(ctx, role.UserID, actionID)
		if err != nil {
			return err
		}

		workflowRun, err := tx.Runs().GetWorkflowRun(ctx, role.UserID, workflowRunID)
		if err != nil {
			return err
		}

		if workflowRun.WorkflowID != action.WorkflowID {
			return NewValidationError("CreateActionRun", "run_mismatch",
				fmt.Sprintf("action %s is not part of workflow run %s", actionID, workflowRunID), ErrInvalidRequest)
		}

		return tx.Runs().InsertActionRun(ctx, run)
	})
	if err != nil {
		return nil, classify("create action run", err)
	}

	return run, nil
}

// UpdateActionRunStatus moves an action run to status.
func (r *Run) UpdateActionRunStatus(
	ctx context.Context,
	role auth.Role,
	runID string,
	status models.RunStatus,
) (*models.ActionRun, error) {
	err := r.checkStatusUpdate(role, status)
	if err != nil {
		return nil, classify("update action run", err)
	}

	var run *models.ActionRun

	err = r.persistence.WithTransaction(ctx, func(ctx context.Context, tx persistence.Tx) error {
		run, err = tx.Runs().UpdateActionRunStatus(ctx, role.UserID, runID, status)

		return err
	})
	if err != nil {
		return nil, classify("update action run", err)
	}

	r.publish(ctx, r.logger, run.WorkflowRunID,
		events.NewRunStatusChanged("", run.OwnerID, run.ID, run.ActionID, string(run.Status)))

	return run, nil
}

// GetActionRun returns an action run of role's user.
func (r *Run) GetActionRun(ctx context.Context, role auth.Role, runID string) (*models.ActionRun, error) {
	err := requireRole(role)
	if err != nil {
		return nil, classify("get action run", err)
	}

	var run *models.ActionRun

	err = r.persistence.WithTransaction(ctx, func(ctx context.Context, tx persistence.Tx) error {
		run, err = tx.Runs().GetActionRun(ctx, role.UserID, runID)

		return err
	})
	if err != nil {
		return nil, classify("get action run", err)
	}

	return run, nil
}

// ListActionRuns returns up to limit runs of an action of role's user, oldest first.
func (r *Run) ListActionRuns(
	ctx context.Context,
	role auth.Role,
	actionID string,
	limit int,
) ([]*models.ActionRun, error) {
	err := requireRole(role)
	if err != nil {
		return nil, classify("list action runs", err)
	}

	var runs []*models.ActionRun

	err = r.persistence.WithTransaction(ctx, func(ctx context.Context, tx persistence.Tx) error {
		_, err := tx.Actions().GetByID(ctx, role.UserID, actionID)
		if err != nil {
			return err
		}

		runs, err = tx.Runs().ListActionRuns(ctx, role.UserID, actionID, listLimit(limit))

		return err
	})
	if err != nil {
		return nil, classify("list action runs", err)
	}

	return runs, nil
}

func (r *Run) checkStatusUpdate(role auth.Role, status models.RunStatus) error {
	err := auth.RequireService(role)
	if err != nil {
		return err
	}

	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	return nil
}

func listLimit(limit int) int {
	if limit <= 0 || limit > DefaultRunListLimit {
		return DefaultRunListLimit
	}

	return limit
}
