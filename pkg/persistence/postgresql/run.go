package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/wirecat/pkg/models"
	"github.com/dukex/wirecat/pkg/persistence"
)

const (
	workflowRunColumns = `id, owner_id, workflow_id, status, created_at, updated_at`
	actionRunColumns   = `id, owner_id, action_id, workflow_run_id, status, created_at, updated_at`
)

// RunRepository handles workflow and action run bookkeeping.
type RunRepository struct {
	tx     *sql.Tx
	logger *slog.Logger
}

func (r *RunRepository) InsertWorkflowRun(ctx context.Context, run *models.WorkflowRun) error {
	stamp(&run.CreatedAt, &run.UpdatedAt)

	query := `
		INSERT INTO workflow_runs (id, owner_id, workflow_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.tx.ExecContext(ctx, query, run.ID, run.OwnerID, run.WorkflowID, run.Status, run.CreatedAt, run.UpdatedAt)
	if err != nil {
		return persistence.NewRunError("InsertWorkflowRun", run.ID, insertError(err))
	}

	return nil
}

func (r *RunRepository) GetWorkflowRun(ctx context.Context, ownerID, runID string) (*models.WorkflowRun, error) {
	query := `SELECT ` + workflowRunColumns + ` FROM workflow_runs WHERE id = $1 AND owner_id = $2`

	run, err := scanWorkflowRun(r.tx.QueryRowContext(ctx, query, runID, ownerID))
	if err != nil {
		return nil, runError("GetWorkflowRun", runID, err)
	}

	return run, nil
}

func (r *RunRepository) ListWorkflowRuns(
	ctx context.Context,
	ownerID, workflowID string,
	limit int,
) ([]*models.WorkflowRun, error) {
	query := `SELECT ` + workflowRunColumns + `
		FROM workflow_runs WHERE workflow_id = $1 AND owner_id = $2 ORDER BY seq LIMIT $3`

	rows, err := r.tx.QueryContext(ctx, query, workflowID, ownerID, limitClause(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query workflow runs: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	runs := make([]*models.WorkflowRun, 0)

	for rows.Next() {
		run, err := scanWorkflowRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow run: %w", err)
		}

		runs = append(runs, run)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating workflow runs: %w", err)
	}

	return runs, nil
}

func (r *RunRepository) UpdateWorkflowRunStatus(
	ctx context.Context,
	ownerID, runID string,
	status models.RunStatus,
) (*models.WorkflowRun, error) {
	query := `
		UPDATE workflow_runs SET status = $3, updated_at = NOW()
		WHERE id = $1 AND owner_id = $2
		RETURNING ` + workflowRunColumns

	run, err := scanWorkflowRun(r.tx.QueryRowContext(ctx, query, runID, ownerID, status))
	if err != nil {
		return nil, runError("UpdateWorkflowRunStatus", runID, err)
	}

	return run, nil
}

func (r *RunRepository) InsertActionRun(ctx context.Context, run *models.ActionRun) error {
	stamp(&run.CreatedAt, &run.UpdatedAt)

	query := `
		INSERT INTO action_runs (id, owner_id, action_id, workflow_run_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.tx.ExecContext(ctx, query,
		run.ID, run.OwnerID, run.ActionID, run.WorkflowRunID, run.Status, run.CreatedAt, run.UpdatedAt)
	if err != nil {
		return persistence.NewRunError("InsertActionRun", run.ID, insertError(err))
	}

	return nil
}

func (r *RunRepository) GetActionRun(ctx context.Context, ownerID, runID string) (*models.ActionRun, error) {
	query := `SELECT ` + actionRunColumns + ` FROM action_runs WHERE id = $1 AND owner_id = $2`

	run, err := scanActionRun(r.tx.QueryRowContext(ctx, query, runID, ownerID))
	if err != nil {
		return nil, runError("GetActionRun", runID, err)
	}

	return run, nil
}

func (r *RunRepository) ListActionRuns(
	ctx context.Context,
	ownerID, actionID string,
	limit int,
) ([]*models.ActionRun, error) {
	query := `SELECT ` + actionRunColumns + `
		FROM action_runs WHERE action_id = $1 AND owner_id = $2 ORDER BY seq LIMIT $3`

	rows, err := r.tx.QueryContext(ctx, query, actionID, ownerID, limitClause(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to query action runs: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	runs := make([]*models.ActionRun, 0)

	for rows.Next() {
		run, err := scanActionRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan action run: %w", err)
		}

		runs = append(runs, run)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating action runs: %w", err)
	}

	return runs, nil
}

func (r *RunRepository) UpdateActionRunStatus(
	ctx context.Context,
	ownerID, runID string,
	status models.RunStatus,
) (*models.ActionRun, error) {
	query := `
		UPDATE action_runs SET status = $3, updated_at = NOW()
		WHERE id = $1 AND owner_id = $2
		RETURNING ` + actionRunColumns

	run, err := scanActionRun(r.tx.QueryRowContext(ctx, query, runID, ownerID, status))
	if err != nil {
		return nil, runError("UpdateActionRunStatus", runID, err)
	}

	return run, nil
}

func runError(op, runID string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.NewRunError(op, runID, persistence.ErrRunNotFound)
	}

	return persistence.NewRunError(op, runID, err)
}

func scanWorkflowRun(row scanner) (*models.WorkflowRun, error) {
	var run models.WorkflowRun

	err := row.Scan(&run.ID, &run.OwnerID, &run.WorkflowID, &run.Status, &run.CreatedAt, &run.UpdatedAt)
	if err != nil {
		return nil, err
	}

	return &run, nil
}

func scanActionRun(row scanner) (*models.ActionRun, error) {
	var run models.ActionRun

	err := row.Scan(&run.ID, &run.OwnerID, &run.ActionID, &run.WorkflowRunID, &run.Status, &run.CreatedAt, &run.UpdatedAt)
	if err != nil {
		return nil, err
	}

	return &run, nil
}
