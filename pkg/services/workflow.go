package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/dukex/wirecat/pkg/auth"
	"github.com/dukex/wirecat/pkg/events"
	"github.com/dukex/wirecat/pkg/graph"
	"github.com/dukex/wirecat/pkg/models"
	"github.com/dukex/wirecat/pkg/persistence"
)

// CreateWorkflowRequest describes a new, empty workflow.
type CreateWorkflowRequest struct {
	Title       string  `json:"title"       validate:"required,min=1,max=255"`
	Description string  `json:"description"`
	IconURL     *string `json:"icon_url"    validate:"omitempty,url"`
}

// UpdateWorkflowRequest changes the fields that are set. Graph replaces the whole
// document; a JSON null clears it.
type UpdateWorkflowRequest struct {
	Title       *string                `json:"title"       validate:"omitempty,min=1,max=255"`
	Description *string                `json:"description"`
	Status      *models.WorkflowStatus `json:"status"      validate:"omitempty,oneof=online offline"`
	IconURL     *string                `json:"icon_url"    validate:"omitempty,url"`
	Graph       json.RawMessage        `json:"object"`
}

// WorkflowDetails is a workflow with its actions.
type WorkflowDetails struct {
	*models.Workflow

	Actions []*models.Action `json:"actions"`
}

// Workflow handles workflow-related business operations.
type Workflow struct {
	options

	persistence persistence.Persistence
	gate        *auth.Gate
	logger      *slog.Logger
}

// NewWorkflow creates a new workflow service.
func NewWorkflow(persistence persistence.Persistence, gate *auth.Gate, logger *slog.Logger, opts ...Option) *Workflow {
	return &Workflow{
		options:     buildOptions(opts),
		persistence: persistence,
		gate:        gate,
		logger:      logger.With("module", "workflow_service"),
	}
}

// HealthCheck checks the health of the persistence layer.
func (w *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := w.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// Create adds an empty, offline workflow owned by role.
func (w *Workflow) Create(ctx context.Context, role auth.Role, req CreateWorkflowRequest) (*models.Workflow, error) {
	err := requireRole(role)
	if err != nil {
		return nil, classify("create workflow", err)
	}

	workflow := &models.Workflow{
		ID:          w.newID(),
		Title:       req.Title,
		Description: req.Description,
		Status:      models.WorkflowStatusOffline,
		IconURL:     req.IconURL,
		OwnerID:     role.UserID,
	}

	err = w.persistence.WithTransaction(ctx, func(ctx context.Context, tx persistence.Tx) error {
		return tx.Workflows().Insert(ctx, workflow)
	})
	if err != nil {
		return nil, classify("create workflow", err)
	}

	w.publish(ctx, w.logger, workflow.ID, events.NewWorkflowCreated(workflow.ID, workflow.OwnerID, workflow.Title))

	return workflow, nil
}

// Get returns a workflow of role's owner with its actions.
func (w *Workflow) Get(ctx context.Context, role auth.Role, workflowID string) (*WorkflowDetails, error) {
	err := requireRole(role)
	if err != nil {
		return nil, classify("get workflow", err)
	}

	var details *WorkflowDetails

	err = w.persistence.WithTransaction(ctx, func(ctx context.Context, tx persistence.Tx) error {
		workflow, actions, _, err := tx.Workflows().WorkflowWithActions(ctx, role.UserID, workflowID)
		if err != nil {
			return err
		}

		details = &WorkflowDetails{Workflow: workflow, Actions: actions}

		return nil
	})
	if err != nil {
		return nil, classify("get workflow", err)
	}

	return details, nil
}

// List returns role's workflows, or the shared library when library is set.
func (w *Workflow) List(ctx context.Context, role auth.Role, library bool) ([]*models.Workflow, error) {
	err := requireRole(role)
	if err != nil {
		return nil, classify("list workflows", err)
	}

	ownerID := role.UserID
	if library {
		ownerID = w.gate.LibraryOwner()
	}

	var workflows []*models.Workflow

	err = w.persistence.WithTransaction(ctx, func(ctx context.Context, tx persistence.Tx) error {
		workflows, err = tx.Workflows().ListByOwner(ctx, ownerID)

		return err
	})
	if err != nil {
		return nil, classify("list workflows", err)
	}

	return workflows, nil
}

// Update modifies a workflow of role's owner. A new graph must parse, carry canonical
// edge ids and reference only the workflow's own actions.
func (w *Workflow) Update(
	ctx context.Context,
	role auth.Role,
	workflowID string,
	req UpdateWorkflowRequest,
) (*models.Workflow, error) {
	err := requireRole(role)
	if err != nil {
		return nil, classify("update workflow", err)
	}

	if req.Status != nil && !req.Status.Valid() {
		return nil, classify("update workflow", fmt.Errorf("%w: %q", ErrInvalidStatus, *req.Status))
	}

	graphChanged := req.Graph != nil

	var document *graph.Document

	if graphChanged {
		document, err = graph.ParseOptional(req.Graph)
		if err != nil {
			return nil, classify("update workflow", err)
		}

		if document != nil {
			err = document.Validate()
			if err != nil {
				return nil, classify("update workflow", err)
			}
		}
	}

	var updated *models.Workflow

	err = w.persistence.WithTransaction(ctx, func(ctx context.Context, tx persistence.Tx) error {
		workflow, actions, _, err := tx.Workflows().WorkflowWithActions(ctx, role.UserID, workflowID)
		if err != nil {
			return err
		}

		applyWorkflowUpdate(workflow, req)

		if graphChanged {
			err = requireClosed(document, actions)
			if err != nil {
				return err
			}

			workflow.Graph = document
		}

		err = tx.Workflows().Update(ctx, workflow)
		if err != nil {
			return err
		}

		updated = workflow

		return nil
	})
	if err != nil {
		return nil, classify("update workflow", err)
	}

	w.publish(ctx, w.logger, updated.ID, events.NewWorkflowUpdated(updated.ID, updated.OwnerID, graphChanged))

	return updated, nil
}

func applyWorkflowUpdate(workflow *models.Workflow, req UpdateWorkflowRequest) {
	if req.Title != nil {
		workflow.Title = *req.Title
	}

	if req.Description != nil {
		workflow.Description = *req.Description
	}

	if req.Status != nil {
		workflow.Status = *req.Status
	}

	if req.IconURL != nil {
		workflow.IconURL = req.IconURL
	}
}

func requireClosed(document *graph.Document, actions []*models.Action) error {
	if document == nil {
		return nil
	}

	known := make(map[string]struct{}, len(actions))
	for _, action := range actions {
		known[action.ID] = struct{}{}
	}

	unresolved := document.Unresolved(known)
	if len(unresolved) > 0 {
		return NewValidationError("requireClosed", "graph_not_closed",
			fmt.Sprintf("graph references unknown actions %v", unresolved), ErrGraphNotClosed)
	}

	return nil
}

// Delete removes a workflow of role's owner with its actions, webhooks and runs.
func (w *Workflow) Delete(ctx context.Context, role auth.Role, workflowID string) error {
	err := requireRole(role)
	if err != nil {
		return classify("delete workflow", err)
	}

	var webhooks []*models.Webhook

	err = w.persistence.WithTransaction(ctx, func(ctx context.Context, tx persistence.Tx) error {
		_, _, webhooks, err = tx.Workflows().WorkflowWithActions(ctx, role.UserID, workflowID)
		if err != nil {
			return err
		}

		return tx.Workflows().Delete(ctx, role.UserID, workflowID)
	})
	if err != nil {
		return classify("delete workflow", err)
	}

	for _, webhook := range webhooks {
		w.forget(ctx, w.logger, webhook.ID)
	}

	w.publish(ctx, w.logger, workflowID, events.NewWorkflowDeleted(workflowID, role.UserID))

	return nil
}
