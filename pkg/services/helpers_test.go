package services_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"

	"github.com/dukex/wirecat/pkg/auth"
	"github.com/dukex/wirecat/pkg/graph"
	"github.com/dukex/wirecat/pkg/identity"
	"github.com/dukex/wirecat/pkg/models"
	"github.com/dukex/wirecat/pkg/persistence"
	"github.com/dukex/wirecat/pkg/persistence/memory"
	"github.com/stretchr/testify/require"
)

const (
	testSigningKey = "test-signing-key"
	testRunnerURL  = "http://runner.local"
)

var errInjected = errors.New("injected store fault")

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testSigner(t *testing.T) *identity.WebhookSigner {
	t.Helper()

	signer, err := identity.NewWebhookSigner([]byte(testSigningKey), testRunnerURL)
	require.NoError(t, err)

	return signer
}

// sequentialIDs returns a generator yielding prefix-1, prefix-2, ...
func sequentialIDs(prefix string) identity.IDGenerator {
	var n atomic.Int64

	return func() string {
		return fmt.Sprintf("%s-%d", prefix, n.Add(1))
	}
}

func userRole(userID string) auth.Role {
	return auth.UserRole(userID)
}

func serviceRole(userID string) auth.Role {
	return auth.ServiceRole(userID, "runner")
}

// faultyStore fails the failAt-th action insert of every transaction.
type faultyStore struct {
	persistence.Persistence

	failAt int
}

func (s *faultyStore) WithTransaction(ctx context.Context, fn persistence.TxFunc) error {
	return s.Persistence.WithTransaction(ctx, func(ctx context.Context, tx persistence.Tx) error {
		return fn(ctx, &faultyTx{Tx: tx, failAt: s.failAt})
	})
}

type faultyTx struct {
	persistence.Tx

	failAt  int
	inserts int
}

func (t *faultyTx) Actions() persistence.ActionRepository {
	return &faultyActions{ActionRepository: t.Tx.Actions(), tx: t}
}

type faultyActions struct {
	persistence.ActionRepository

	tx *faultyTx
}

func (a *faultyActions) Insert(ctx context.Context, action *models.Action) error {
	a.tx.inserts++
	if a.tx.inserts == a.tx.failAt {
		return errInjected
	}

	return a.ActionRepository.Insert(ctx, action)
}

// unreadableGraphStore fails every workflow read the way a store does when the stored
// graph document does not parse.
type unreadableGraphStore struct {
	persistence.Persistence
}

func (s *unreadableGraphStore) WithTransaction(ctx context.Context, fn persistence.TxFunc) error {
	return s.Persistence.WithTransaction(ctx, func(ctx context.Context, tx persistence.Tx) error {
		return fn(ctx, &unreadableGraphTx{Tx: tx})
	})
}

type unreadableGraphTx struct {
	persistence.Tx
}

func (t *unreadableGraphTx) Workflows() persistence.WorkflowRepository {
	return &unreadableGraphWorkflows{WorkflowRepository: t.Tx.Workflows()}
}

type unreadableGraphWorkflows struct {
	persistence.WorkflowRepository
}

func (w *unreadableGraphWorkflows) WorkflowWithActions(
	_ context.Context,
	_, workflowID string,
) (*models.Workflow, []*models.Action, []*models.Webhook, error) {
	_, err := graph.Parse([]byte(`{"nodes": 5}`))

	return nil, nil, nil, fmt.Errorf("failed to parse stored graph of workflow %s: %w", workflowID, err)
}

func countWorkflows(t *testing.T, store persistence.Persistence, ownerID string) int {
	t.Helper()

	var count int

	err := store.WithTransaction(context.Background(), func(ctx context.Context, tx persistence.Tx) error {
		workflows, err := tx.Workflows().ListByOwner(ctx, ownerID)
		count = len(workflows)

		return err
	})
	require.NoError(t, err)

	return count
}

func newMemoryStore() *memory.Persistence {
	return memory.NewPersistence()
}
