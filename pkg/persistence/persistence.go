// Package persistence defines the storage contract of the workflow store. Every read and
// write happens inside a transaction opened with Persistence.WithTransaction.
package persistence

import (
	"context"

	"github.com/dukex/wirecat/pkg/models"
)

// TxFunc runs inside a transaction. Returning an error, panicking or cancelling ctx
// rolls the transaction back; returning nil commits it.
type TxFunc func(ctx context.Context, tx Tx) error

type Persistence interface {
	// WithTransaction runs fn in a transaction and guarantees commit-or-rollback on
	// every exit path, including panics, which are re-raised after rollback.
	WithTransaction(ctx context.Context, fn TxFunc) error
	HealthCheck(ctx context.Context) error

	Close(ctx context.Context) error
}

// Tx is a transactional session.
type Tx interface {
	Workflows() WorkflowRepository
	Actions() ActionRepository
	Webhooks() WebhookRepository
	Runs() RunRepository
}

// WorkflowRepository reads and writes workflows. Reads are always scoped to an owner.
type WorkflowRepository interface {
	// WorkflowWithActions returns a workflow with its actions and webhooks, or
	// ErrWorkflowNotFound when it does not exist or is owned by someone else.
	WorkflowWithActions(ctx context.Context, ownerID, workflowID string) (*models.Workflow, []*models.Action, []*models.Webhook, error)
	GetByID(ctx context.Context, ownerID, workflowID string) (*models.Workflow, error)
	ListByOwner(ctx context.Context, ownerID string) ([]*models.Workflow, error)
	Insert(ctx context.Context, workflow *models.Workflow) error
	Update(ctx context.Context, workflow *models.Workflow) error
	// Delete removes the workflow and cascades to its actions, webhooks and runs.
	Delete(ctx context.Context, ownerID, workflowID string) error
}

// ActionRepository reads and writes actions.
type ActionRepository interface {
	GetByID(ctx context.Context, ownerID, actionID string) (*models.Action, error)
	// Lookup finds an action regardless of owner. It serves webhook authentication only.
	Lookup(ctx context.Context, actionID string) (*models.Action, error)
	ListByWorkflow(ctx context.Context, ownerID, workflowID string) ([]*models.Action, error)
	// Insert fails with ErrParentNotFound unless the parent workflow exists with the same owner.
	Insert(ctx context.Context, action *models.Action) error
	Update(ctx context.Context, action *models.Action) error
	// Delete removes the action and cascades to its webhook.
	Delete(ctx context.Context, ownerID, actionID string) error
}

// WebhookRepository reads and writes webhooks.
type WebhookRepository interface {
	GetByID(ctx context.Context, ownerID, webhookID string) (*models.Webhook, error)
	// Lookup finds a webhook regardless of owner. It serves webhook authentication only.
	Lookup(ctx context.Context, webhookID string) (*models.Webhook, error)
	GetByAction(ctx context.Context, ownerID, actionID string) (*models.Webhook, error)
	ListByWorkflow(ctx context.Context, ownerID, workflowID string) ([]*models.Webhook, error)
	// Insert fails with ErrParentNotFound unless the parent action and workflow exist with the same owner.
	Insert(ctx context.Context, webhook *models.Webhook) error
	Delete(ctx context.Context, ownerID, webhookID string) error
}

// RunRepository records workflow and action runs.
type RunRepository interface {
	InsertWorkflowRun(ctx context.Context, run *models.WorkflowRun) error
	GetWorkflowRun(ctx context.Context, ownerID, runID string) (*models.WorkflowRun, error)
	ListWorkflowRuns(ctx context.Context, ownerID, workflowID string, limit int) ([]*models.WorkflowRun, error)
	UpdateWorkflowRunStatus(ctx context.Context, ownerID, runID string, status models.RunStatus) (*models.WorkflowRun, error)

	InsertActionRun(ctx context.Context, run *models.ActionRun) error
	GetActionRun(ctx context.Context, ownerID, runID string) (*models.ActionRun, error)
	ListActionRuns(ctx context.Context, ownerID, actionID string, limit int) ([]*models.ActionRun, error)
	UpdateActionRunStatus(ctx context.Context, ownerID, runID string, status models.RunStatus) (*models.ActionRun, error)
}
