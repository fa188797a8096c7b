package memory

import (
	"context"

	"github.com/dukex/wirecat/pkg/models"
	"github.com/dukex/wirecat/pkg/persistence"
)

type runRepository struct {
	tx *transaction
}

func (r *runRepository) InsertWorkflowRun(_ context.Context, run *models.WorkflowRun) error {
	if _, exists := r.tx.state.workflowRuns[run.ID]; exists {
		return persistence.NewRunError("InsertWorkflowRun", run.ID, persistence.ErrAlreadyExists)
	}

	parent, ok := r.tx.state.workflows[run.WorkflowID]
	if !ok || parent.value.OwnerID != run.OwnerID {
		return persistence.NewRunError("InsertWorkflowRun", run.ID, persistence.ErrParentNotFound)
	}

	stamp(&run.CreatedAt, &run.UpdatedAt, r.tx.now())

	stored := *run
	r.tx.state.workflowRuns[run.ID] = row[*models.WorkflowRun]{seq: r.tx.state.next(), value: &stored}

	return nil
}

func (r *runRepository) GetWorkflowRun(_ context.Context, ownerID, runID string) (*models.WorkflowRun, error) {
	stored, ok := r.tx.state.workflowRuns[runID]
	if !ok || stored.value.OwnerID != ownerID {
		return nil, persistence.NewRunError("GetWorkflowRun", runID, persistence.ErrRunNotFound)
	}

	out := *stored.value

	return &out, nil
}

func (r *runRepository) ListWorkflowRuns(_ context.Context, ownerID, workflowID string, limit int) ([]*models.WorkflowRun, error) {
	runs := r.tx.state.workflowRuns.values(func(run *models.WorkflowRun) bool {
		return run.OwnerID == ownerID && run.WorkflowID == workflowID
	})

	out := make([]*models.WorkflowRun, 0, len(runs))
	for _, run := range limitOf(runs, limit) {
		copied := *run
		out = append(out, &copied)
	}

	return out, nil
}

func (r *runRepository) UpdateWorkflowRunStatus(
	_ context.Context,
	ownerID, runID string,
	status models.RunStatus,
) (*models.WorkflowRun, error) {
	stored, ok := r.tx.state.workflowRuns[runID]
	if !ok || stored.value.OwnerID != ownerID {
		return nil, persistence.NewRunError("UpdateWorkflowRunStatus", runID, persistence.ErrRunNotFound)
	}

	updated := *stored.value
	updated.Status = status
	updated.UpdatedAt = r.tx.now()
	r.tx.state.workflowRuns[runID] = row[*models.WorkflowRun]{seq: stored.seq, value: &updated}

	out := updated

	return &out, nil
}

func (r *runRepository) InsertActionRun(_ context.Context, run *models.ActionRun) error {
	if _, exists := r.tx.state.actionRuns[run.ID]; exists {
		return persistence.NewRunError("InsertActionRun", run.ID, persistence.ErrAlreadyExists)
	}

	action, ok := r.tx.state.actions[run.ActionID]
	if !ok || action.value.OwnerID != run.OwnerID {
		return persistence.NewRunError("InsertActionRun", run.ID, persistence.ErrParentNotFound)
	}

	parent, ok := r.tx.state.workflowRuns[run.WorkflowRunID]
	if !ok || parent.value.OwnerID != run.OwnerID {
		return persistence.NewRunError("InsertActionRun", run.ID, persistence.ErrParentNotFound)
	}

	stamp(&run.CreatedAt, &run.UpdatedAt, r.tx.now())

	stored := *run
	r.tx.state.actionRuns[run.ID] = row[*models.ActionRun]{seq: r.tx.state.next(), value: &stored}

	return nil
}

func (r *runRepository) GetActionRun(_ context.Context, ownerID, runID string) (*models.ActionRun, error) {
	stored, ok := r.tx.state.actionRuns[runID]
	if !ok || stored.value.OwnerID != ownerID {
		return nil, persistence.NewRunError("GetActionRun", runID, persistence.ErrRunNotFound)
	}

	out := *stored.value

	return &out, nil
}

func (r *runRepository) ListActionRuns(_ context.Context, ownerID, actionID string, limit int) ([]*models.ActionRun, error) {
	runs := r.tx.state.actionRuns.values(func(run *models.ActionRun) bool {
		return run.OwnerID == ownerID && run.ActionID == actionID
	})

	out := make([]*models.ActionRun, 0, len(runs))
	for _, run := range limitOf(runs, limit) {
		copied := *run
		out = append(out, &copied)
	}

	return out, nil
}

func (r *runRepository) UpdateActionRunStatus(
	_ context.Context,
	ownerID, runID string,
	status models.RunStatus,
) (*models.ActionRun, error) {
	stored, ok := r.tx.state.actionRuns[runID]
	if !ok || stored.value.OwnerID != ownerID {
		return nil, persistence.NewRunError("UpdateActionRunStatus", runID, persistence.ErrRunNotFound)
	}

	updated := *stored.value
	updated.Status = status
	updated.UpdatedAt = r.tx.now()
	r.tx.state.actionRuns[runID] = row[*models.ActionRun]{seq: stored.seq, value: &updated}

	out := updated

	return &out, nil
}

// deleteWorkflowRun removes a workflow run with its action runs.
func (t *transaction) deleteWorkflowRun(runID string) {
	delete(t.state.workflowRuns, runID)

	for id, run := range t.state.actionRuns {
		if run.value.WorkflowRunID == runID {
			delete(t.state.actionRuns, id)
		}
	}
}
