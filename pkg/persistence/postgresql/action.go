package postgresql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/wirecat/pkg/models"
	"github.com/dukex/wirecat/pkg/persistence"
)

const actionColumns = `
	id
  , owner_id
  , workflow_id
  , type
  , title
  , description
  , status
  , inputs
  , created_at
  , updated_at
`

// ActionRepository handles action-related database operations.
type ActionRepository struct {
	tx     *sql.Tx
	logger *slog.Logger
}

func (r *ActionRepository) GetByID(ctx context.Context, ownerID, actionID string) (*models.Action, error) {
	query := `SELECT ` + actionColumns + ` FROM actions WHERE id = $1 AND owner_id = $2`

	return r.get(ctx, "GetByID", actionID, query, actionID, ownerID)
}

func (r *ActionRepository) Lookup(ctx context.Context, actionID string) (*models.Action, error) {
	query := `SELECT ` + actionColumns + ` FROM actions WHERE id = $1`

	return r.get(ctx, "Lookup", actionID, query, actionID)
}

func (r *ActionRepository) get(ctx context.Context, op, actionID, query string, args ...any) (*models.Action, error) {
	action, err := scanAction(r.tx.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewActionError(op, actionID, persistence.ErrActionNotFound)
		}

		return nil, persistence.NewActionError(op, actionID, err)
	}

	return action, nil
}

func (r *ActionRepository) ListByWorkflow(ctx context.Context, ownerID, workflowID string) ([]*models.Action, error) {
	query := `SELECT ` + actionColumns + ` FROM actions WHERE workflow_id = $1 AND owner_id = $2 ORDER BY seq`

	rows, err := r.tx.QueryContext(ctx, query, workflowID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query actions: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	actions := make([]*models.Action, 0)

	for rows.Next() {
		action, err := scanAction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan action: %w", err)
		}

		actions = append(actions, action)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating actions: %w", err)
	}

	return actions, nil
}

func (r *ActionRepository) Insert(ctx context.Context, action *models.Action) error {
	inputs, err := marshalInputs(action.Inputs)
	if err != nil {
		return persistence.NewActionError("Insert", action.ID, err)
	}

	stamp(&action.CreatedAt, &action.UpdatedAt)

	query := `
		INSERT INTO actions (id, owner_id, workflow_id, type, title, description, status, inputs, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err = r.tx.ExecContext(ctx, query,
		action.ID,
		action.OwnerID,
		action.WorkflowID,
		action.Type,
		action.Title,
		action.Description,
		statusOrOffline(action.Status),
		inputs,
		action.CreatedAt,
		action.UpdatedAt,
	)
	if err != nil {
		return persistence.NewActionError("Insert", action.ID, insertError(err))
	}

	return nil
}

func (r *ActionRepository) Update(ctx context.Context, action *models.Action) error {
	inputs, err := marshalInputs(action.Inputs)
	if err != nil {
		return persistence.NewActionError("Update", action.ID, err)
	}

	query := `
		UPDATE actions
		SET title = $3, description = $4, status = $5, inputs = $6, updated_at = NOW()
		WHERE id = $1 AND owner_id = $2
		RETURNING workflow_id, created_at, updated_at
	`

	err = r.tx.QueryRowContext(ctx, query,
		action.ID,
		action.OwnerID,
		action.Title,
		action.Description,
		statusOrOffline(action.Status),
		inputs,
	).Scan(&action.WorkflowID, &action.CreatedAt, &action.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.NewActionError("Update", action.ID, persistence.ErrActionNotFound)
		}

		return persistence.NewActionError("Update", action.ID, err)
	}

	return nil
}

func (r *ActionRepository) Delete(ctx context.Context, ownerID, actionID string) error {
	result, err := r.tx.ExecContext(ctx, "DELETE FROM actions WHERE id = $1 AND owner_id = $2", actionID, ownerID)
	if err != nil {
		return persistence.NewActionError("Delete", actionID, err)
	}

	return requireAffected(result, persistence.NewActionError("Delete", actionID, persistence.ErrActionNotFound))
}

func scanAction(row scanner) (*models.Action, error) {
	var (
		action models.Action
		inputs []byte
	)

	err := row.Scan(
		&action.ID,
		&action.OwnerID,
		&action.WorkflowID,
		&action.Type,
		&action.Title,
		&action.Description,
		&action.Status,
		&inputs,
		&action.CreatedAt,
		&action.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	err = json.Unmarshal(inputs, &action.Inputs)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal inputs of action %s: %w", action.ID, err)
	}

	return &action, nil
}

func marshalInputs(inputs map[string]any) ([]byte, error) {
	if inputs == nil {
		return []byte("{}"), nil
	}

	raw, err := json.Marshal(inputs)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal inputs: %w", err)
	}

	return raw, nil
}

func statusOrOffline(status models.WorkflowStatus) models.WorkflowStatus {
	if status == "" {
		return models.WorkflowStatusOffline
	}

	return status
}
