package memory

import (
	"context"

	"github.com/dukex/wirecat/pkg/models"
	"github.com/dukex/wirecat/pkg/persistence"
)

type actionRepository struct {
	tx *transaction
}

func (r *actionRepository) GetByID(_ context.Context, ownerID, actionID string) (*models.Action, error) {
	stored, ok := r.tx.state.actions[actionID]
	if !ok || stored.value.OwnerID != ownerID {
		return nil, persistence.NewActionError("GetByID", actionID, persistence.ErrActionNotFound)
	}

	return stored.value.Copy(), nil
}

func (r *actionRepository) Lookup(_ context.Context, actionID string) (*models.Action, error) {
	stored, ok := r.tx.state.actions[actionID]
	if !ok {
		return nil, persistence.NewActionError("Lookup", actionID, persistence.ErrActionNotFound)
	}

	return stored.value.Copy(), nil
}

func (r *actionRepository) ListByWorkflow(_ context.Context, ownerID, workflowID string) ([]*models.Action, error) {
	actions := r.tx.state.actions.values(func(a *models.Action) bool {
		return a.OwnerID == ownerID && a.WorkflowID == workflowID
	})

	out := make([]*models.Action, len(actions))
	for i, a := range actions {
		out[i] = a.Copy()
	}

	return out, nil
}

func (r *actionRepository) Insert(_ context.Context, action *models.Action) error {
	if _, exists := r.tx.state.actions[action.ID]; exists {
		return persistence.NewActionError("Insert", action.ID, persistence.ErrAlreadyExists)
	}

	parent, ok := r.tx.state.workflows[action.WorkflowID]
	if !ok || parent.value.OwnerID != action.OwnerID {
		return persistence.NewActionError("Insert", action.ID, persistence.ErrParentNotFound)
	}

	stamp(&action.CreatedAt, &action.UpdatedAt, r.tx.now())

	r.tx.state.actions[action.ID] = row[*models.Action]{seq: r.tx.state.next(), value: action.Copy()}

	return nil
}

func (r *actionRepository) Update(_ context.Context, action *models.Action) error {
	stored, ok := r.tx.state.actions[action.ID]
	if !ok || stored.value.OwnerID != action.OwnerID {
		return persistence.NewActionError("Update", action.ID, persistence.ErrActionNotFound)
	}

	action.CreatedAt = stored.value.CreatedAt
	action.WorkflowID = stored.value.WorkflowID
	action.UpdatedAt = r.tx.now()

	r.tx.state.actions[action.ID] = row[*models.Action]{seq: stored.seq, value: action.Copy()}

	return nil
}

func (r *actionRepository) Delete(_ context.Context, ownerID, actionID string) error {
	stored, ok := r.tx.state.actions[actionID]
	if !ok || stored.value.OwnerID != ownerID {
		return persistence.NewActionError("Delete", actionID, persistence.ErrActionNotFound)
	}

	r.tx.deleteAction(actionID)

	return nil
}

// deleteAction removes an action with its webhooks and action runs.
func (t *transaction) deleteAction(actionID string) {
	delete(t.state.actions, actionID)

	for id, h := range t.state.webhooks {
		if h.value.ActionID == actionID {
			delete(t.state.webhooks, id)
		}
	}

	for id, run := range t.state.actionRuns {
		if run.value.ActionID == actionID {
			delete(t.state.actionRuns, id)
		}
	}
}
