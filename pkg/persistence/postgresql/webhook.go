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

const webhookColumns = `id, owner_id, action_id, workflow_id, created_at, updated_at`

// WebhookRepository handles webhook-related database operations.
type WebhookRepository struct {
	tx     *sql.Tx
	logger *slog.Logger
}

func (r *WebhookRepository) GetByID(ctx context.Context, ownerID, webhookID string) (*models.Webhook, error) {
	query := `SELECT ` + webhookColumns + ` FROM webhooks WHERE id = $1 AND owner_id = $2`

	return r.get(ctx, "GetByID", webhookID, query, webhookID, ownerID)
}

func (r *WebhookRepository) Lookup(ctx context.Context, webhookID string) (*models.Webhook, error) {
	query := `SELECT ` + webhookColumns + ` FROM webhooks WHERE id = $1`

	return r.get(ctx, "Lookup", webhookID, query, webhookID)
}

func (r *WebhookRepository) GetByAction(ctx context.Context, ownerID, actionID string) (*models.Webhook, error) {
	query := `SELECT ` + webhookColumns + ` FROM webhooks WHERE action_id = $1 AND owner_id = $2 ORDER BY seq LIMIT 1`

	return r.get(ctx, "GetByAction", actionID, query, actionID, ownerID)
}

func (r *WebhookRepository) get(ctx context.Context, op, id, query string, args ...any) (*models.Webhook, error) {
	webhook, err := scanWebhook(r.tx.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, persistence.NewWebhookError(op, id, persistence.ErrWebhookNotFound)
		}

		return nil, persistence.NewWebhookError(op, id, err)
	}

	return webhook, nil
}

func (r *WebhookRepository) ListByWorkflow(ctx context.Context, ownerID, workflowID string) ([]*models.Webhook, error) {
	query := `SELECT ` + webhookColumns + ` FROM webhooks WHERE workflow_id = $1 AND owner_id = $2 ORDER BY seq`

	rows, err := r.tx.QueryContext(ctx, query, workflowID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query webhooks: %w", err)
	}

	defer closeRows(ctx, r.logger, rows)

	webhooks := make([]*models.Webhook, 0)

	for rows.Next() {
		webhook, err := scanWebhook(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan webhook: %w", err)
		}

		webhooks = append(webhooks, webhook)
	}

	err = rows.Err()
	if err != nil {
		return nil, fmt.Errorf("error iterating webhooks: %w", err)
	}

	return webhooks, nil
}

func (r *WebhookRepository) Insert(ctx context.Context, webhook *models.Webhook) error {
	stamp(&webhook.CreatedAt, &webhook.UpdatedAt)

	query := `
		INSERT INTO webhooks (id, owner_id, action_id, workflow_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.tx.ExecContext(ctx, query,
		webhook.ID,
		webhook.OwnerID,
		webhook.ActionID,
		webhook.WorkflowID,
		webhook.CreatedAt,
		webhook.UpdatedAt,
	)
	if err != nil {
		return persistence.NewWebhookError("Insert", webhook.ID, insertError(err))
	}

	return nil
}

func (r *WebhookRepository) Delete(ctx context.Context, ownerID, webhookID string) error {
	result, err := r.tx.ExecContext(ctx, "DELETE FROM webhooks WHERE id = $1 AND owner_id = $2", webhookID, ownerID)
	if err != nil {
		return persistence.NewWebhookError("Delete", webhookID, err)
	}

	return requireAffected(result, persistence.NewWebhookError("Delete", webhookID, persistence.ErrWebhookNotFound))
}

func scanWebhook(row scanner) (*models.Webhook, error) {
	var webhook models.Webhook

	err := row.Scan(
		&webhook.ID,
		&webhook.OwnerID,
		&webhook.ActionID,
		&webhook.WorkflowID,
		&webhook.CreatedAt,
		&webhook.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &webhook, nil
}
