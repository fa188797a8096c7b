package memory

import (
	"context"

	"github.com/dukex/wirecat/pkg/models"
	"github.com/dukex/wirecat/pkg/persistence"
)

type webhookRepository struct {
	tx *transaction
}

func (r *webhookRepository) GetByID(_ context.Context, ownerID, webhookID string) (*models.Webhook, error) {
	stored, ok := r.tx.state.webhooks[webhookID]
	if !ok || stored.value.OwnerID != ownerID {
		return nil, persistence.NewWebhookError("GetByID", webhookID, persistence.ErrWebhookNotFound)
	}

	return stored.value.Copy(), nil
}

func (r *webhookRepository) Lookup(_ context.Context, webhookID string) (*models.Webhook, error) {
	stored, ok := r.tx.state.webhooks[webhookID]
	if !ok {
		return nil, persistence.NewWebhookError("Lookup", webhookID, persistence.ErrWebhookNotFound)
	}

	return stored.value.Copy(), nil
}

func (r *webhookRepository) GetByAction(_ context.Context, ownerID, actionID string) (*models.Webhook, error) {
	matches := r.tx.state.webhooks.values(func(h *models.Webhook) bool {
		return h.OwnerID == ownerID && h.ActionID == actionID
	})
	if len(matches) == 0 {
		return nil, persistence.NewWebhookError("GetByAction", actionID, persistence.ErrWebhookNotFound)
	}

	return matches[0].Copy(), nil
}

func (r *webhookRepository) ListByWorkflow(_ context.Context, ownerID, workflowID string) ([]*models.Webhook, error) {
	webhooks := r.tx.state.webhooks.values(func(h *models.Webhook) bool {
		return h.OwnerID == ownerID && h.WorkflowID == workflowID
	})

	out := make([]*models.Webhook, len(webhooks))
	for i, h := range webhooks {
		out[i] = h.Copy()
	}

	return out, nil
}

func (r *webhookRepository) Insert(_ context.Context, webhook *models.Webhook) error {
	if _, exists := r.tx.state.webhooks[webhook.ID]; exists {
		return persistence.NewWebhookError("Insert", webhook.ID, persistence.ErrAlreadyExists)
	}

	action, ok := r.tx.state.actions[webhook.ActionID]
	if !ok || action.value.OwnerID != webhook.OwnerID || action.value.WorkflowID != webhook.WorkflowID {
		return persistence.NewWebhookError("Insert", webhook.ID, persistence.ErrParentNotFound)
	}

	stamp(&webhook.CreatedAt, &webhook.UpdatedAt, r.tx.now())

	r.tx.state.webhooks[webhook.ID] = row[*models.Webhook]{seq: r.tx.state.next(), value: webhook.Copy()}

	return nil
}

func (r *webhookRepository) Delete(_ context.Context, ownerID, webhookID string) error {
	stored, ok := r.tx.state.webhooks[webhookID]
	if !ok || stored.value.OwnerID != ownerID {
		return persistence.NewWebhookError("Delete", webhookID, persistence.ErrWebhookNotFound)
	}

	delete(r.tx.state.webhooks, webhookID)

	return nil
}
