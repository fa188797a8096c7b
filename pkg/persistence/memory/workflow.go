package memory

import (
	"context"

	"github.com/dukex/wirecat/pkg/models"
	"github.com/dukex/wirecat/pkg/persistence"
)

type workflowRepository struct {
	tx *transaction
}

func (r *workflowRepository) find(ownerID, workflowID string) (*models.Workflow, bool) {
	stored, ok := r.tx.state.workflows[workflowID]
	if !ok || stored.value.OwnerID != ownerID {
		return nil, false
	}

	return stored.value, true
}

func (r *workflowRepository) WorkflowWithActions(
	ctx context.Context,
	ownerID, workflowID string,
) (*models.Workflow, []*models.Action, []*models.Webhook, error) {
	workflow, err := r.GetByID(ctx, ownerID, workflowID)
	if err != nil {
		return nil, nil, nil, err
	}

	actions, err := r.tx.Actions().ListByWorkflow(ctx, ownerID, workflowID)
	if err != nil {
		return nil, nil, nil, err
	}

	webhooks, err := r.tx.Webhooks().ListByWorkflow(ctx, ownerID, workflowID)
	if err != nil {
		return nil, nil, nil, err
	}

	return workflow, actions, webhooks, nil
}

func (r *workflowRepository) GetByID(_ context.Context, ownerID, workflowID string) (*models.Workflow, error) {
	workflow, ok := r.find(ownerID, workflowID)
	if !ok {
		return nil, persistence.NewWorkflowError("GetByID", workflowID, persistence.ErrWorkflowNotFound)
	}

	return workflow.Copy(), nil
}

func (r *workflowRepository) ListByOwner(_ context.Context, ownerID string) ([]*models.Workflow, error) {
	workflows := r.tx.state.workflows.values(func(w *models.Workflow) bool { return w.OwnerID == ownerID })

	out := make([]*models.Workflow, len(workflows))
	for i, w := range workflows {
		out[i] = w.Copy()
	}

	return out, nil
}

func (r *workflowRepository) Insert(_ context.Context, workflow *models.Workflow) error {
	if _, exists := r.tx.state.workflows[workflow.ID]; exists {
		return persistence.NewWorkflowError("Insert", workflow.ID, persistence.ErrAlreadyExists)
	}

	stamp(&workflow.CreatedAt, &workflow.UpdatedAt, r.tx.now())

	r.tx.state.workflows[workflow.ID] = row[*models.Workflow]{seq: r.tx.state.next(), value: workflow.Copy()}

	return nil
}

func (r *workflowRepository) Update(_ context.Context, workflow *models.Workflow) error {
	stored, ok := r.tx.state.workflows[workflow.ID]
	if !ok || stored.value.OwnerID != workflow.OwnerID {
		return persistence.NewWorkflowError("Update", workflow.ID, persistence.ErrWorkflowNotFound)
	}

	workflow.CreatedAt = stored.value.CreatedAt
	workflow.UpdatedAt = r.tx.now()

	r.tx.state.workflows[workflow.ID] = row[*models.Workflow]{seq: stored.seq, value: workflow.Copy()}

	return nil
}

func (r *workflowRepository) Delete(_ context.Context, ownerID, workflowID string) error {
	if _, ok := r.find(ownerID, workflowID); !ok {
		return persistence.NewWorkflowError("Delete", workflowID, persistence.ErrWorkflowNotFound)
	}

	delete(r.tx.state.workflows, workflowID)

	for id, a := range r.tx.state.actions {
		if a.value.WorkflowID == workflowID {
			r.tx.deleteAction(id)
		}
	}

	for id, h := range r.tx.state.webhooks {
		if h.value.WorkflowID == workflowID {
			delete(r.tx.state.webhooks, id)
		}
	}

	for id, run := range r.tx.state.workflowRuns {
		if run.value.WorkflowID == workflowID {
			r.tx.deleteWorkflowRun(id)
		}
	}

	return nil
}
