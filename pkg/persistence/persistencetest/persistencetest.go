// Package persistencetest holds the behaviour every persistence.Persistence
// implementation must share. Implementations call Run from their own tests.
package persistencetest

import (
	"context"
	"errors"
	"testing"

	"github.com/dukex/wirecat/pkg/models"
	"github.com/dukex/wirecat/pkg/persistence"
	"github.com/dukex/wirecat/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns a fresh, empty store for one test.
type Factory func(t *testing.T) persistence.Persistence

var errBoom = errors.New("boom")

// Run executes the shared store behaviour against stores produced by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Helper()

	tests := []struct {
		name string
		fn   func(t *testing.T, store persistence.Persistence)
	}{
		{"workflow round trip", testWorkflowRoundTrip},
		{"reads are owner scoped", testOwnerScoping},
		{"insert rejects missing or foreign parent", testParentChecks},
		{"insert rejects duplicate id", testDuplicateID},
		{"workflow with actions", testWorkflowWithActions},
		{"rollback on error", testRollbackOnError},
		{"rollback on panic", testRollbackOnPanic},
		{"delete cascades", testDeleteCascades},
		{"update", testUpdate},
		{"lookup ignores owner", testLookup},
		{"runs", testRuns},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.fn(t, newStore(t))
		})
	}
}

func read(t *testing.T, store persistence.Persistence, fn persistence.TxFunc) {
	t.Helper()

	require.NoError(t, store.WithTransaction(context.Background(), fn))
}

func seedWorkflow(t *testing.T, store persistence.Persistence, ownerID string) (*models.Workflow, *models.Action, *models.Action, *models.Webhook) {
	t.Helper()

	workflow := testutil.CreateTestWorkflow(ownerID, testutil.WithTitle("Phishing Triage"))
	trigger := testutil.CreateTestAction(workflow, testutil.WithActionTitle("Receive Alert"))
	webhook := testutil.CreateTestWebhook(trigger)
	testutil.WithWebhookType(webhook.ID, "s1")(trigger)
	step := testutil.CreateTestAction(workflow, testutil.WithActionTitle("Enrich"))
	workflow.Graph = testutil.GraphOf(trigger, step)

	err := testutil.Seed(context.Background(), store, workflow, []*models.Action{trigger, step}, []*models.Webhook{webhook})
	require.NoError(t, err)

	return workflow, trigger, step, webhook
}

func testWorkflowRoundTrip(t *testing.T, store persistence.Persistence) {
	workflow, trigger, _, _ := seedWorkflow(t, store, "alice")

	read(t, store, func(ctx context.Context, tx persistence.Tx) error {
		got, err := tx.Workflows().GetByID(ctx, "alice", workflow.ID)
		require.NoError(t, err)

		assert.Equal(t, workflow.Title, got.Title)
		assert.Equal(t, workflow.Description, got.Description)
		assert.Equal(t, models.WorkflowStatusOffline, got.Status)
		assert.False(t, got.CreatedAt.IsZero())
		require.NotNil(t, got.Graph)
		assert.Equal(t, []string{trigger.ID, workflow.Graph.Nodes[1].ID}, got.Graph.NodeIDs())
		assert.Equal(t, workflow.Graph.Edges[0].ID, got.Graph.Edges[0].ID)

		listed, err := tx.Workflows().ListByOwner(ctx, "alice")
		require.NoError(t, err)
		assert.Len(t, listed, 1)

		return nil
	})
}

func testOwnerScoping(t *testing.T, store persistence.Persistence) {
	workflow, trigger, _, webhook := seedWorkflow(t, store, "alice")

	read(t, store, func(ctx context.Context, tx persistence.Tx) error {
		_, err := tx.Workflows().GetByID(ctx, "mallory", workflow.ID)
		assert.True(t, persistence.IsWorkflowNotFound(err))

		_, _, _, err = tx.Workflows().WorkflowWithActions(ctx, "mallory", workflow.ID)
		assert.True(t, persistence.IsWorkflowNotFound(err))

		_, err = tx.Actions().GetByID(ctx, "mallory", trigger.ID)
		assert.ErrorIs(t, err, persistence.ErrActionNotFound)

		_, err = tx.Webhooks().GetByID(ctx, "mallory", webhook.ID)
		assert.ErrorIs(t, err, persistence.ErrWebhookNotFound)

		listed, err := tx.Workflows().ListByOwner(ctx, "mallory")
		require.NoError(t, err)
		assert.Empty(t, listed)

		return nil
	})
}

func testParentChecks(t *testing.T, store persistence.Persistence) {
	workflow, trigger, _, _ := seedWorkflow(t, store, "alice")
	ctx := context.Background()

	orphan := testutil.CreateTestAction(&models.Workflow{ID: "missing", OwnerID: "alice"})
	err := store.WithTransaction(ctx, func(ctx context.Context, tx persistence.Tx) error {
		return tx.Actions().Insert(ctx, orphan)
	})
	require.ErrorIs(t, err, persistence.ErrParentNotFound)
	assert.True(t, persistence.IsConstraintViolation(err))

	foreign := testutil.CreateTestAction(&models.Workflow{ID: workflow.ID, OwnerID: "mallory"})
	err = store.WithTransaction(ctx, func(ctx context.Context, tx persistence.Tx) error {
		return tx.Actions().Insert(ctx, foreign)
	})
	require.ErrorIs(t, err, persistence.ErrParentNotFound)

	webhook := testutil.CreateTestWebhook(trigger)
	webhook.OwnerID = "mallory"
	err = store.WithTransaction(ctx, func(ctx context.Context, tx persistence.Tx) error {
		return tx.Webhooks().Insert(ctx, webhook)
	})
	require.ErrorIs(t, err, persistence.ErrParentNotFound)
}

func testDuplicateID(t *testing.T, store persistence.Persistence) {
	workflow, _, _, _ := seedWorkflow(t, store, "alice")

	duplicate := testutil.CreateTestWorkflow("alice")
	duplicate.ID = workflow.ID

	err := store.WithTransaction(context.Background(), func(ctx context.Context, tx persistence.Tx) error {
		return tx.Workflows().Insert(ctx, duplicate)
	})
	require.ErrorIs(t, err, persistence.ErrAlreadyExists)
}

func testWorkflowWithActions(t *testing.T, store persistence.Persistence) {
	workflow, trigger, step, webhook := seedWorkflow(t, store, "alice")

	read(t, store, func(ctx context.Context, tx persistence.Tx) error {
		got, actions, webhooks, err := tx.Workflows().WorkflowWithActions(ctx, "alice", workflow.ID)
		require.NoError(t, err)

		assert.Equal(t, workflow.ID, got.ID)
		require.Len(t, actions, 2)
		assert.Equal(t, trigger.ID, actions[0].ID)
		assert.Equal(t, step.ID, actions[1].ID)
		assert.Equal(t, webhook.ID, actions[0].Inputs[models.InputWebhookPath])
		require.Len(t, webhooks, 1)
		assert.Equal(t, webhook.ID, webhooks[0].ID)
		assert.Equal(t, trigger.ID, webhooks[0].ActionID)

		byAction, err := tx.Webhooks().GetByAction(ctx, "alice", trigger.ID)
		require.NoError(t, err)
		assert.Equal(t, webhook.ID, byAction.ID)

		return nil
	})
}

func testRollbackOnError(t *testing.T, store persistence.Persistence) {
	workflow := testutil.CreateTestWorkflow("alice")
	action := testutil.CreateTestAction(workflow)

	err := store.WithTransaction(context.Background(), func(ctx context.Context, tx persistence.Tx) error {
		require.NoError(t, tx.Workflows().Insert(ctx, workflow))
		require.NoError(t, tx.Actions().Insert(ctx, action))

		return errBoom
	})
	require.ErrorIs(t, err, errBoom)

	read(t, store, func(ctx context.Context, tx persistence.Tx) error {
		_, err := tx.Workflows().GetByID(ctx, "alice", workflow.ID)
		assert.True(t, persistence.IsWorkflowNotFound(err))

		_, err = tx.Actions().Lookup(ctx, action.ID)
		assert.ErrorIs(t, err, persistence.ErrActionNotFound)

		return nil
	})
}

func testRollbackOnPanic(t *testing.T, store persistence.Persistence) {
	workflow := testutil.CreateTestWorkflow("alice")

	assert.PanicsWithValue(t, "kaboom", func() {
		_ = store.WithTransaction(context.Background(), func(ctx context.Context, tx persistence.Tx) error {
			require.NoError(t, tx.Workflows().Insert(ctx, workflow))
			panic("kaboom")
		})
	})

	read(t, store, func(ctx context.Context, tx persistence.Tx) error {
		_, err := tx.Workflows().GetByID(ctx, "alice", workflow.ID)
		assert.True(t, persistence.IsWorkflowNotFound(err))

		return nil
	})
}

func testDeleteCascades(t *testing.T, store persistence.Persistence) {
	workflow, trigger, step, webhook := seedWorkflow(t, store, "alice")

	read(t, store, func(ctx context.Context, tx persistence.Tx) error {
		run := &models.WorkflowRun{ID: "run-1", OwnerID: "alice", WorkflowID: workflow.ID, Status: models.RunStatusPending}
		require.NoError(t, tx.Runs().InsertWorkflowRun(ctx, run))

		return tx.Workflows().Delete(ctx, "alice", workflow.ID)
	})

	read(t, store, func(ctx context.Context, tx persistence.Tx) error {
		for _, id := range []string{trigger.ID, step.ID} {
			_, err := tx.Actions().Lookup(ctx, id)
			assert.ErrorIs(t, err, persistence.ErrActionNotFound)
		}

		_, err := tx.Webhooks().Lookup(ctx, webhook.ID)
		assert.ErrorIs(t, err, persistence.ErrWebhookNotFound)

		_, err = tx.Runs().GetWorkflowRun(ctx, "alice", "run-1")
		assert.ErrorIs(t, err, persistence.ErrRunNotFound)

		err = tx.Workflows().Delete(ctx, "alice", workflow.ID)
		assert.True(t, persistence.IsWorkflowNotFound(err))

		return nil
	})
}

func testUpdate(t *testing.T, store persistence.Persistence) {
	workflow, trigger, _, webhook := seedWorkflow(t, store, "alice")

	read(t, store, func(ctx context.Context, tx persistence.Tx) error {
		workflow.Title = "Renamed"
		workflow.Status = models.WorkflowStatusOnline
		workflow.Graph = nil
		require.NoError(t, tx.Workflows().Update(ctx, workflow))

		trigger.Title = "Renamed Trigger"
		require.NoError(t, tx.Actions().Update(ctx, trigger))

		require.NoError(t, tx.Actions().Delete(ctx, "alice", trigger.ID))

		foreign := workflow.Copy()
		foreign.OwnerID = "mallory"
		assert.True(t, persistence.IsWorkflowNotFound(tx.Workflows().Update(ctx, foreign)))

		return nil
	})

	read(t, store, func(ctx context.Context, tx persistence.Tx) error {
		got, err := tx.Workflows().GetByID(ctx, "alice", workflow.ID)
		require.NoError(t, err)
		assert.Equal(t, "Renamed", got.Title)
		assert.Equal(t, models.WorkflowStatusOnline, got.Status)
		assert.Nil(t, got.Graph)

		_, err = tx.Webhooks().Lookup(ctx, webhook.ID)
		assert.ErrorIs(t, err, persistence.ErrWebhookNotFound)

		return nil
	})
}

func testLookup(t *testing.T, store persistence.Persistence) {
	_, trigger, _, webhook := seedWorkflow(t, store, "alice")

	read(t, store, func(ctx context.Context, tx persistence.Tx) error {
		action, err := tx.Actions().Lookup(ctx, trigger.ID)
		require.NoError(t, err)
		assert.Equal(t, "alice", action.OwnerID)

		hook, err := tx.Webhooks().Lookup(ctx, webhook.ID)
		require.NoError(t, err)
		assert.Equal(t, trigger.ID, hook.ActionID)

		return nil
	})
}

func testRuns(t *testing.T, store persistence.Persistence) {
	workflow, trigger, _, _ := seedWorkflow(t, store, "alice")

	read(t, store, func(ctx context.Context, tx persistence.Tx) error {
		for _, id := range []string{"run-1", "run-2", "run-3"} {
			run := &models.WorkflowRun{ID: id, OwnerID: "alice", WorkflowID: workflow.ID, Status: models.RunStatusPending}
			require.NoError(t, tx.Runs().InsertWorkflowRun(ctx, run))
		}

		actionRun := &models.ActionRun{
			ID:            "action-run-1",
			OwnerID:       "alice",
			ActionID:      trigger.ID,
			WorkflowRunID: "run-1",
			Status:        models.RunStatusRunning,
		}
		require.NoError(t, tx.Runs().InsertActionRun(ctx, actionRun))

		return nil
	})

	orphan := &models.WorkflowRun{ID: "run-x", OwnerID: "mallory", WorkflowID: workflow.ID, Status: models.RunStatusPending}
	err := store.WithTransaction(context.Background(), func(ctx context.Context, tx persistence.Tx) error {
		return tx.Runs().InsertWorkflowRun(ctx, orphan)
	})
	require.ErrorIs(t, err, persistence.ErrParentNotFound)

	read(t, store, func(ctx context.Context, tx persistence.Tx) error {
		runs, err := tx.Runs().ListWorkflowRuns(ctx, "alice", workflow.ID, 2)
		require.NoError(t, err)
		require.Len(t, runs, 2)
		assert.Equal(t, "run-1", runs[0].ID)

		all, err := tx.Runs().ListWorkflowRuns(ctx, "alice", workflow.ID, 0)
		require.NoError(t, err)
		assert.Len(t, all, 3)

		updated, err := tx.Runs().UpdateWorkflowRunStatus(ctx, "alice", "run-2", models.RunStatusSuccess)
		require.NoError(t, err)
		assert.Equal(t, models.RunStatusSuccess, updated.Status)

		_, err = tx.Runs().UpdateWorkflowRunStatus(ctx, "mallory", "run-2", models.RunStatusFailure)
		assert.ErrorIs(t, err, persistence.ErrRunNotFound)

		actionRuns, err := tx.Runs().ListActionRuns(ctx, "alice", trigger.ID, 0)
		require.NoError(t, err)
		require.Len(t, actionRuns, 1)
		assert.Equal(t, "run-1", actionRuns[0].WorkflowRunID)

		canceled, err := tx.Runs().UpdateActionRunStatus(ctx, "alice", "action-run-1", models.RunStatusCanceled)
		require.NoError(t, err)
		assert.Equal(t, models.RunStatusCanceled, canceled.Status)

		got, err := tx.Runs().GetActionRun(ctx, "alice", "action-run-1")
		require.NoError(t, err)
		assert.Equal(t, models.RunStatusCanceled, got.Status)

		return nil
	})
}
