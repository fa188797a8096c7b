package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dukex/wirecat/pkg/graph"
	"github.com/dukex/wirecat/pkg/models"
	"github.com/dukex/wirecat/pkg/persistence"
)

const workflowColumns = `
	id
  , owner_id
  , title
  , description
  , status
  , object
  , icon_url
  , created_at
  , updated_at
`

// WorkflowRepository handles workflow-related database operations.
type WorkflowRepository struct {
	tx     *sql.Tx
	logger *slog.Logger
}

// WorkflowWithActions loads a workflow with its actions and webhooks in one transaction.
func (r *WorkflowRepository) WorkflowWithActions(
	ctx context.Context,
	ownerID, workflowID string,
) (*models.Workflow, []*models.Action, []*models.Webhook, error) {
	workflow, err := r.GetByID(ctx, ownerID, workflowID)
	if err != nil {
		return nil, nil, nil, err
	}

	actions, err := (&ActionRepository{tx: r.tx, logger: r.logger}).ListByWorkflow(ctx, ownerID, workflowID)
	if err != nil {
		return nil, nil, nil, err
	}

	webhooks, err := (&WebhookRepository{tx: r.tx, logger: r.logger}).ListByWorkflow(ctx, ownerID, workflowID)
	if err != nil {
		return nil, nil, nil, err
	}

	return workflow, actions, webhooks, nil
}

func (r *WorkflowRepository) GetByID(ctx context.Context, ownerID, workflowID string) (*models.Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows WHERE id = $1 AND owner_id = $2`

	workflow, err := scanWorkflow(r.tx.QueryRowContext(ctx, query, workflowID, ownerID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewWorkflowError("GetByID", workflowID, persistence.ErrWorkflowNotFound)
		}

		return nil, persistence.NewWorkflowError("GetByID", workflowID, err)
	}

	return workflow, nil
}

func (r *WorkflowRepository) ListByOwner(ctx context.Context, ownerID string) ([]*models.Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows WHERE owner_id = $1 ORDER BY seq`

	rows, err := r.tx.QueryContext(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflows: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	workflows := make([]*models.Workflow, 0)

	for rows.Next() {
		workflow, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow: %w", err)
		}

		workflows = append(workflows, workflow)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating workflows: %w", err)
	}

	return workflows, nil
}

func (r *WorkflowRepository) Insert(ctx context.Context, workflow *models.Workflow) error {
	object, err := graph.Serialize(workflow.Graph)
	if err != nil {
		return persistence.NewWorkflowError("Insert", workflow.ID, err)
	}

	stamp(&workflow.CreatedAt, &workflow.UpdatedAt)

	query := `
		INSERT INTO workflows (id, owner_id, title, description, status, object, icon_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = r.tx.ExecContext(ctx, query,
		workflow.ID,
		workflow.OwnerID,
		workflow.Title,
		workflow.Description,
		workflow.Status,
		object,
		workflow.IconURL,
		workflow.CreatedAt,
		workflow.UpdatedAt,
	)
	if err != nil {
		return persistence.NewWorkflowError("Insert", workflow.ID, insertError(err))
	}

	return nil
}

func (r *WorkflowRepository) Update(ctx context.Context, workflow *models.Workflow) error {
	object, err := graph.Serialize(workflow.Graph)
	if err != nil {
		return persistence.NewWorkflowError("Update", workflow.ID, err)
	}

	query := `
		UPDATE workflows
		SET title = $3, description = $4, status = $5, object = $6, icon_url = $7, updated_at = NOW()
		WHERE id = $1 AND owner_id = $2
		RETURNING created_at, updated_at
	`

	err = r.tx.QueryRowContext(ctx, query,
		workflow.ID,
		workflow.OwnerID,
		workflow.Title,
		workflow.Description,
		workflow.Status,
		object,
		workflow.IconURL,
	).Scan(&workflow.CreatedAt, &workflow.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.NewWorkflowError("Update", workflow.ID, persistence.ErrWorkflowNotFound)
		}

		return persistence.NewWorkflowError("Update", workflow.ID, err)
	}

	return nil
}

// Delete removes a workflow; actions, webhooks and runs go with it through ON DELETE CASCADE.
func (r *WorkflowRepository) Delete(ctx context.Context, ownerID, workflowID string) error {
	result, err := r.tx.ExecContext(ctx, "DELETE FROM workflows WHERE id = $1 AND owner_id = $2", workflowID, ownerID)
	if err != nil {
		return persistence.NewWorkflowError("Delete", workflowID, err)
	}

	return requireAffected(result, persistence.NewWorkflowError("Delete", workflowID, persistence.ErrWorkflowNotFound))
}

func scanWorkflow(row scanner) (*models.Workflow, error) {
	var (
		workflow models.Workflow
		object   []byte
		iconURL  sql.NullString
	)

	err := row.Scan(
		&workflow.ID,
		&workflow.OwnerID,
		&workflow.Title,
		&workflow.Description,
		&workflow.Status,
		&object,
		&iconURL,
		&workflow.CreatedAt,
		&workflow.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	workflow.Graph, err = graph.ParseOptional(object)
	if err != nil {
		return nil, fmt.Errorf("failed to parse stored graph of workflow %s: %w", workflow.ID, err)
	}

	if iconURL.Valid {
		workflow.IconURL = &iconURL.String
	}

	return &workflow, nil
}

func requireAffected(result sql.Result, notFound error) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}

	if affected == 0 {
		return notFound
	}

	return nil
}
