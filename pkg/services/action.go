package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/wirecat/pkg/auth"
	"github.com/dukex/wirecat/pkg/events"
	"github.com/dukex/wirecat/pkg/graph"
	"github.com/dukex/wirecat/pkg/identity"
	"github.com/dukex/wirecat/pkg/models"
	"github.com/dukex/wirecat/pkg/persistence"
)

// CreateActionRequest describes a new action attached to a workflow.
type CreateActionRequest struct {
	WorkflowID  string            `json:"workflow_id" validate:"required"`
	Type        models.ActionType `json:"type"        validate:"required"`
	Title       string            `json:"title"       validate:"required,min=1,max=255"`
	Description string            `json:"description"`
	Inputs      map[string]any    `json:"inputs"`
}

// UpdateActionRequest changes the fields that are set. Inputs replaces the whole object.
type UpdateActionRequest struct {
	Title       *string                `json:"title"       validate:"omitempty,min=1,max=255"`
	Description *string                `json:"description"`
	Status      *models.WorkflowStatus `json:"status"      validate:"omitempty,oneof=online offline"`
	Inputs      map[string]any         `json:"inputs"`
}

// Action handles action-related business operations.
type Action struct {
	options

	persistence persistence.Persistence
	signer      *identity.WebhookSigner
	logger      *slog.Logger
}

// NewAction creates a new action service.
func NewAction(
	persistence persistence.Persistence,
	signer *identity.WebhookSigner,
	logger *slog.Logger,
	opts ...Option,
) *Action {
	return &Action{
		options:     buildOptions(opts),
		persistence: persistence,
		signer:      signer,
		logger:      logger.With("module", "action_service"),
	}
}

// Create attaches a new action to a workflow of role's owner. Webhook actions get their
// webhook in the same transaction.
func (a *Action) Create(ctx context.Context, role auth.Role, req CreateActionRequest) (*models.Action, error) {
	err := requireRole(role)
	if err != nil {
		return nil, classify("create action", err)
	}

	if !req.Type.Valid() {
		return nil, classify("create action", fmt.Errorf("%w: %q", ErrInvalidActionType, req.Type))
	}

	action := &models.Action{
		ID:          a.newID(),
		Type:        req.Type,
		Title:       req.Title,
		Description: req.Description,
		Status:      models.WorkflowStatusOffline,
		Inputs:      graph.CloneMap(req.Inputs),
		OwnerID:     role.UserID,
		WorkflowID:  req.WorkflowID,
	}

	if action.Inputs == nil {
		action.Inputs = make(map[string]any)
	}

	var webhook *models.Webhook

	if action.Type.HasWebhook() {
		webhook = &models.Webhook{
			ID:         a.newID(),
			OwnerID:    role.UserID,
			ActionID:   action.ID,
			WorkflowID: req.WorkflowID,
		}
		action.Inputs[models.InputWebhookPath] = webhook.Path()
		action.Inputs[models.InputWebhookSecret] = a.signer.Secret(webhook.ID)
	}

	err = a.persistence.WithTransaction(ctx, func(ctx context.Context, tx persistence.Tx) error {
		_, err := tx.Workflows().GetByID(ctx, role.UserID, req.WorkflowID)
		if err != nil {
			return err
		}

		err = tx.Actions().Insert(ctx, action)
		if err != nil {
			return err
		}

		if webhook != nil {
			return tx.Webhooks().Insert(ctx, webhook)
		}

		return nil
	})
	if err != nil {
		return nil, classify("create action", err)
	}

	webhookID := ""
	if webhook != nil {
		webhookID = webhook.ID
	}

	a.publish(ctx, a.logger, action.WorkflowID,
		events.NewActionCreated(action.WorkflowID, action.OwnerID, action.ID, string(action.Type), webhookID))

	return a.inline(action, webhook), nil
}

// Get returns an action of role's owner. Webhook actions carry their webhook's path,
// secret and url in their inputs.
func (a *Action) Get(ctx context.Context, role auth.Role, actionID string) (*models.Action, error) {
	err := requireRole(role)
	if err != nil {
		return nil, classify("get action", err)
	}

	var (
		action  *models.Action
		webhook *models.Webhook
	)

	err = a.persistence.WithTransaction(ctx, func(ctx context.Context, tx persistence.Tx) error {
		action, err = tx.Actions().GetByID(ctx, role.UserID, actionID)
		if err != nil {
			return err
		}

		webhook, err = a.webhookOf(ctx, tx, action)

		return err
	})
	if err != nil {
		return nil, classify("get action", err)
	}

	return a.inline(action, webhook), nil
}

// List returns the actions of a workflow of role's owner.
func (a *Action) List(ctx context.Context, role auth.Role, workflowID string) ([]*models.Action, error) {
	err := requireRole(role)
	if err != nil {
		return nil, classify("list actions", err)
	}

	var actions []*models.Action

	err = a.persistence.WithTransaction(ctx, func(ctx context.Context, tx persistence.Tx) error {
		_, err := tx.Workflows().GetByID(ctx, role.UserID, workflowID)
		if err != nil {
			return err
		}

		actions, err = tx.Actions().ListByWorkflow(ctx, role.UserID, workflowID)

		return err
	})
	if err != nil {
		return nil, classify("list actions", err)
	}

	return actions, nil
}

// Update modifies an action of role's owner. A webhook action keeps pointing at its webhook
// whatever inputs are sent.
func (a *Action) Update(
	ctx context.Context,
	role auth.Role,
	actionID string,
	req UpdateActionRequest,
) (*models.Action, error) {
	err := requireRole(role)
	if err != nil {
		return nil, classify("update action", err)
	}

	if req.Status != nil && !req.Status.Valid() {
		return nil, classify("update action", fmt.Errorf("%w: %q", ErrInvalidStatus, *req.Status))
	}

	var (
		action  *models.Action
		webhook *models.Webhook
	)

	err = a.persistence.WithTransaction(ctx, func(ctx context.Context, tx persistence.Tx) error {
		action, err = tx.Actions().GetByID(ctx, role.UserID, actionID)
		if err != nil {
			return err
		}

		webhook, err = a.webhookOf(ctx, tx, action)
		if err != nil {
			return err
		}

		applyActionUpdate(action, req)

		if webhook != nil {
			action.Inputs[models.InputWebhookPath] = webhook.Path()
			action.Inputs[models.InputWebhookSecret] = a.signer.Secret(webhook.ID)
			delete(action.Inputs, models.InputWebhookURL)
		}

		return tx.Actions().Update(ctx, action)
	})
	if err != nil {
		return nil, classify("update action", err)
	}

	// cached identities carry the action key, which follows the title
	if webhook != nil {
		a.forget(ctx, a.logger, webhook.ID)
	}

	return a.inline(action, webhook), nil
}

func applyActionUpdate(action *models.Action, req UpdateActionRequest) {
	if req.Title != nil {
		action.Title = *req.Title
	}

	if req.Description != nil {
		action.Description = *req.Description
	}

	if req.Status != nil {
		action.Status = *req.Status
	}

	if req.Inputs != nil {
		action.Inputs = graph.CloneMap(req.Inputs)
	}

	if action.Inputs == nil {
		action.Inputs = make(map[string]any)
	}
}

// Delete removes an action of role's owner together with its webhook.
func (a *Action) Delete(ctx context.Context, role auth.Role, actionID string) error {
	err := requireRole(role)
	if err != nil {
		return classify("delete action", err)
	}

	var (
		action  *models.Action
		webhook *models.Webhook
	)

	err = a.persistence.WithTransaction(ctx, func(ctx context.Context, tx persistence.Tx) error {
		action, err = tx.Actions().GetByID(ctx, role.UserID, actionID)
		if err != nil {
			return err
		}

		webhook, err = a.webhookOf(ctx, tx, action)
		if err != nil {
			return err
		}

		return tx.Actions().Delete(ctx, role.UserID, actionID)
	})
	if err != nil {
		return classify("delete action", err)
	}

	if webhook != nil {
		a.forget(ctx, a.logger, webhook.ID)
	}

	a.publish(ctx, a.logger, action.WorkflowID, events.NewActionDeleted(action.WorkflowID, action.OwnerID, action.ID))

	return nil
}

// webhookOf loads the webhook of a webhook action, or nil for other types.
func (a *Action) webhookOf(ctx context.Context, tx persistence.Tx, action *models.Action) (*models.Webhook, error) {
	if !action.Type.HasWebhook() {
		return nil, nil
	}

	webhook, err := tx.Webhooks().GetByAction(ctx, action.OwnerID, action.ID)
	if err != nil {
		if persistence.IsNotFound(err) {
			a.logger.WarnContext(ctx, "webhook action has no webhook", "action_id", action.ID)

			return nil, nil
		}

		return nil, err
	}

	return webhook, nil
}

// inline returns a copy of action whose inputs carry the webhook's derived fields.
func (a *Action) inline(action *models.Action, webhook *models.Webhook) *models.Action {
	out := action.Copy()
	if webhook == nil {
		return out
	}

	if out.Inputs == nil {
		out.Inputs = make(map[string]any)
	}

	out.Inputs[models.InputWebhookPath] = webhook.Path()
	out.Inputs[models.InputWebhookSecret] = a.signer.Secret(webhook.ID)
	out.Inputs[models.InputWebhookURL] = a.signer.URL(webhook.ID)

	return out
}
