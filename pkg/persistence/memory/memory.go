// Package memory provides an in-process persistence implementation. Transactions are
// serialized and work on a copy of the store state that replaces it only on commit,
// so a failed, cancelled or panicking transaction leaves nothing behind.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/dukex/wirecat/pkg/models"
	"github.com/dukex/wirecat/pkg/persistence"
)

type row[T any] struct {
	seq   uint64
	value T
}

type table[T any] map[string]row[T]

// values returns the rows matching keep in insertion order.
func (t table[T]) values(keep func(T) bool) []T {
	rows := make([]row[T], 0, len(t))

	for _, r := range t {
		if keep(r.value) {
			rows = append(rows, r)
		}
	}

	slices.SortFunc(rows, func(a, b row[T]) int { return cmp.Compare(a.seq, b.seq) })

	out := make([]T, len(rows))
	for i, r := range rows {
		out[i] = r.value
	}

	return out
}

type state struct {
	seq          uint64
	workflows    table[*models.Workflow]
	actions      table[*models.Action]
	webhooks     table[*models.Webhook]
	workflowRuns table[*models.WorkflowRun]
	actionRuns   table[*models.ActionRun]
}

func newState() *state {
	return &state{
		workflows:    make(table[*models.Workflow]),
		actions:      make(table[*models.Action]),
		webhooks:     make(table[*models.Webhook]),
		workflowRuns: make(table[*models.WorkflowRun]),
		actionRuns:   make(table[*models.ActionRun]),
	}
}

// clone copies the tables. Stored values are never mutated in place, so sharing them is safe.
func (s *state) clone() *state {
	return &state{
		seq:          s.seq,
		workflows:    maps.Clone(s.workflows),
		actions:      maps.Clone(s.actions),
		webhooks:     maps.Clone(s.webhooks),
		workflowRuns: maps.Clone(s.workflowRuns),
		actionRuns:   maps.Clone(s.actionRuns),
	}
}

func (s *state) next() uint64 {
	s.seq++

	return s.seq
}

func put[T any](t table[T], s *state, id string, value T) {
	t[id] = row[T]{seq: s.next(), value: value}
}

// Snapshot is the full content of a store, each table in insertion order.
type Snapshot struct {
	Workflows    []*models.Workflow    `json:"workflows"`
	Actions      []*models.Action      `json:"actions"`
	Webhooks     []*models.Webhook     `json:"webhooks"`
	WorkflowRuns []*models.WorkflowRun `json:"workflow_runs"`
	ActionRuns   []*models.ActionRun   `json:"action_runs"`
}

func all[T any](T) bool { return true }

func (s *state) snapshot() Snapshot {
	return Snapshot{
		Workflows:    s.workflows.values(all[*models.Workflow]),
		Actions:      s.actions.values(all[*models.Action]),
		Webhooks:     s.webhooks.values(all[*models.Webhook]),
		WorkflowRuns: s.workflowRuns.values(all[*models.WorkflowRun]),
		ActionRuns:   s.actionRuns.values(all[*models.ActionRun]),
	}
}

func stateFrom(snapshot Snapshot) *state {
	s := newState()

	for _, w := range snapshot.Workflows {
		put(s.workflows, s, w.ID, w.Copy())
	}

	for _, a := range snapshot.Actions {
		put(s.actions, s, a.ID, a.Copy())
	}

	for _, w := range snapshot.Webhooks {
		put(s.webhooks, s, w.ID, w.Copy())
	}

	for _, r := range snapshot.WorkflowRuns {
		run := *r
		put(s.workflowRuns, s, r.ID, &run)
	}

	for _, r := range snapshot.ActionRuns {
		run := *r
		put(s.actionRuns, s, r.ID, &run)
	}

	return s
}

// CommitHook receives the content a transaction is about to publish. Values are shared
// with the store and must not be modified. An error aborts the commit.
type CommitHook func(ctx context.Context, snapshot Snapshot) error

// Option customizes a store.
type Option func(*Persistence)

// WithCommitHook calls hook before every commit.
func WithCommitHook(hook CommitHook) Option {
	return func(p *Persistence) {
		p.onCommit = hook
	}
}

// WithSnapshot starts the store with the content of snapshot.
func WithSnapshot(snapshot Snapshot) Option {
	return func(p *Persistence) {
		p.state = stateFrom(snapshot)
	}
}

// Persistence implements persistence.Persistence in memory.
type Persistence struct {
	mu       sync.Mutex
	state    *state
	now      func() time.Time
	onCommit CommitHook
}

// NewPersistence creates an in-memory store, empty unless WithSnapshot is given.
func NewPersistence(opts ...Option) *Persistence {
	p := &Persistence{
		state: newState(),
		now:   func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Snapshot returns the committed content of the store.
func (p *Persistence) Snapshot() Snapshot {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.state.snapshot()
}

// WithTransaction runs fn against a private copy of the store and publishes the copy
// only when fn returns nil and ctx is still live.
func (p *Persistence) WithTransaction(ctx context.Context, fn persistence.TxFunc) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	tx := &transaction{state: p.state.clone(), now: p.now}

	if err := fn(ctx, tx); err != nil {
		return err
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	if p.onCommit != nil {
		if err := p.onCommit(ctx, tx.state.snapshot()); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
	}

	p.state = tx.state

	return nil
}

// HealthCheck always succeeds.
func (p *Persistence) HealthCheck(_ context.Context) error {
	return nil
}

// Close performs any necessary cleanup. For memory persistence, there is nothing to clean up.
func (p *Persistence) Close(_ context.Context) error {
	return nil
}

type transaction struct {
	state *state
	now   func() time.Time
}

func (t *transaction) Workflows() persistence.WorkflowRepository {
	return &workflowRepository{tx: t}
}

func (t *transaction) Actions() persistence.ActionRepository {
	return &actionRepository{tx: t}
}

func (t *transaction) Webhooks() persistence.WebhookRepository {
	return &webhookRepository{tx: t}
}

func (t *transaction) Runs() persistence.RunRepository {
	return &runRepository{tx: t}
}

func stamp(created, updated *time.Time, now time.Time) {
	if created.IsZero() {
		*created = now
	}

	*updated = now
}

func limitOf[T any](items []T, limit int) []T {
	if limit > 0 && len(items) > limit {
		return items[:limit]
	}

	return items
}
