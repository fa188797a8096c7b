// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"context"

	"github.com/dukex/wirecat/pkg/graph"
	"github.com/dukex/wirecat/pkg/identity"
	"github.com/dukex/wirecat/pkg/models"
	"github.com/dukex/wirecat/pkg/persistence"
)

// CreateTestWorkflow creates a test Workflow with default values that can be overridden.
func CreateTestWorkflow(ownerID string, overrides ...func(*models.Workflow)) *models.Workflow {
	workflow := &models.Workflow{
		ID:          identity.NewID(),
		Title:       "Test Workflow",
		Description: "Workflow created by tests",
		Status:      models.WorkflowStatusOffline,
		OwnerID:     ownerID,
	}

	for _, override := range overrides {
		override(workflow)
	}

	return workflow
}

// CreateTestAction creates a test Action belonging to workflow.
func CreateTestAction(workflow *models.Workflow, overrides ...func(*models.Action)) *models.Action {
	action := &models.Action{
		ID:          identity.NewID(),
		Type:        models.ActionTypeHTTPRequest,
		Title:       "Test Action",
		Description: "Action created by tests",
		Status:      models.WorkflowStatusOffline,
		Inputs:      map[string]any{"url": "https://example.com", "method": "GET"},
		OwnerID:     workflow.OwnerID,
		WorkflowID:  workflow.ID,
	}

	for _, override := range overrides {
		override(action)
	}

	return action
}

// CreateTestWebhook creates a Webhook bound to action.
func CreateTestWebhook(action *models.Action) *models.Webhook {
	return &models.Webhook{
		ID:         identity.NewID(),
		OwnerID:    action.OwnerID,
		ActionID:   action.ID,
		WorkflowID: action.WorkflowID,
	}
}

// WithTitle sets the workflow title.
func WithTitle(title string) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Title = title
	}
}

// WithGraph sets the workflow graph.
func WithGraph(document *graph.Document) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Graph = document
	}
}

// WithStatus sets the workflow status.
func WithStatus(status models.WorkflowStatus) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Status = status
	}
}

// WithActionTitle sets the action title.
func WithActionTitle(title string) func(*models.Action) {
	return func(a *models.Action) {
		a.Title = title
	}
}

// WithActionID sets the action id.
func WithActionID(id string) func(*models.Action) {
	return func(a *models.Action) {
		a.ID = id
	}
}

// WithWebhookType turns the action into a webhook action carrying the given path and secret.
func WithWebhookType(path, secret string) func(*models.Action) {
	return func(a *models.Action) {
		a.Type = models.ActionTypeWebhook
		a.Inputs = map[string]any{
			models.InputWebhookPath:   path,
			models.InputWebhookSecret: secret,
		}
	}
}

// WithInputs sets the action inputs.
func WithInputs(inputs map[string]any) func(*models.Action) {
	return func(a *models.Action) {
		a.Inputs = inputs
	}
}

// GraphOf builds a graph with one node per action, chained in order.
func GraphOf(actions ...*models.Action) *graph.Document {
	document := &graph.Document{Nodes: []graph.Node{}, Edges: []graph.Edge{}}

	for i, action := range actions {
		document.Nodes = append(document.Nodes, graph.Node{
			ID: action.ID,
			Data: map[string]any{
				"id":     action.ID,
				"type":   string(action.Type),
				"title":  action.Title,
				"inputs": graph.CloneMap(action.Inputs),
			},
		})

		if i > 0 {
			source := actions[i-1].ID
			document.Edges = append(document.Edges, graph.Edge{
				ID:     graph.EdgeID(source, action.ID),
				Source: source,
				Target: action.ID,
			})
		}
	}

	return document
}

// Seed inserts a workflow with its actions and webhooks in one transaction.
func Seed(
	ctx context.Context,
	store persistence.Persistence,
	workflow *models.Workflow,
	actions []*models.Action,
	webhooks []*models.Webhook,
) error {
	return store.WithTransaction(ctx, func(ctx context.Context, tx persistence.Tx) error {
		err := tx.Workflows().Insert(ctx, workflow)
		if err != nil {
			return err
		}

		for _, action := range actions {
			err = tx.Actions().Insert(ctx, action)
			if err != nil {
				return err
			}
		}

		for _, webhook := range webhooks {
			err = tx.Webhooks().Insert(ctx, webhook)
			if err != nil {
				return err
			}
		}

		return nil
	})
}
