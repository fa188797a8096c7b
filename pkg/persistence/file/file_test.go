package file_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/dukex/wirecat/pkg/persistence"
	"github.com/dukex/wirecat/pkg/persistence/file"
	"github.com/dukex/wirecat/pkg/persistence/persistencetest"
	"github.com/dukex/wirecat/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPersistence(t *testing.T) {
	persistencetest.Run(t, func(t *testing.T) persistence.Persistence {
		store, err := file.NewPersistence(context.Background(), discardLogger(), "file://"+t.TempDir())
		require.NoError(t, err)

		return store
	})
}

func TestPersistence_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	store, err := file.NewPersistence(ctx, discardLogger(), root)
	require.NoError(t, err)

	workflow := testutil.CreateTestWorkflow("alice", testutil.WithTitle("Kept"))
	action := testutil.CreateTestAction(workflow)

	err = store.WithTransaction(ctx, func(ctx context.Context, tx persistence.Tx) error {
		if err := tx.Workflows().Insert(ctx, workflow); err != nil {
			return err
		}

		return tx.Actions().Insert(ctx, action)
	})
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(root, file.StoreFile))

	reopened, err := file.NewPersistence(ctx, discardLogger(), root)
	require.NoError(t, err)

	err = reopened.WithTransaction(ctx, func(ctx context.Context, tx persistence.Tx) error {
		got, actions, _, err := tx.Workflows().WorkflowWithActions(ctx, "alice", workflow.ID)
		if err != nil {
			return err
		}

		assert.Equal(t, "Kept", got.Title)
		require.Len(t, actions, 1)
		assert.Equal(t, action.ID, actions[0].ID)

		return nil
	})
	require.NoError(t, err)
}

func TestPersistence_FailedWriteAbortsCommit(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	store, err := file.NewPersistence(ctx, discardLogger(), root)
	require.NoError(t, err)

	require.NoError(t, os.RemoveAll(root))

	workflow := testutil.CreateTestWorkflow("alice")

	err = store.WithTransaction(ctx, func(ctx context.Context, tx persistence.Tx) error {
		return tx.Workflows().Insert(ctx, workflow)
	})
	require.Error(t, err)

	err = store.WithTransaction(ctx, func(ctx context.Context, tx persistence.Tx) error {
		_, err := tx.Workflows().GetByID(ctx, "alice", workflow.ID)

		return err
	})
	assert.True(t, persistence.IsWorkflowNotFound(err))

	assert.Error(t, store.HealthCheck(ctx))
}

func TestNewPersistence_CorruptFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, file.StoreFile), []byte("{not json"), 0o600))

	_, err := file.NewPersistence(context.Background(), discardLogger(), root)
	assert.Error(t, err)
}
