// Package postgresql provides the PostgreSQL persistence implementation of the workflow store.
package postgresql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dukex/wirecat/pkg/persistence"
	"github.com/dukex/wirecat/pkg/persistence/sqlbase"
	"github.com/lib/pq"
)

// PostgreSQL error codes mapped onto persistence errors.
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPersistence connects to databaseURL and brings the schema up to date.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Persistence{db: database, logger: logger}, nil
}

// WithTransaction runs fn in a READ COMMITTED transaction. A panic inside fn rolls the
// transaction back before it is re-raised.
func (p *Persistence) WithTransaction(ctx context.Context, fn persistence.TxFunc) (err error) {
	sqlTx, err := p.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if r := recover(); r != nil {
			p.rollback(ctx, sqlTx)
			panic(r)
		}
	}()

	err = fn(ctx, &transaction{tx: sqlTx, logger: p.logger})
	if err != nil {
		p.rollback(ctx, sqlTx)

		return err
	}

	err = sqlTx.Commit()
	if err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (p *Persistence) rollback(ctx context.Context, sqlTx *sql.Tx) {
	err := sqlTx.Rollback()
	if err != nil && !errors.Is(err, sql.ErrTxDone) {
		p.logger.ErrorContext(ctx, "failed to rollback transaction", "error", err)
	}
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

type transaction struct {
	tx     *sql.Tx
	logger *slog.Logger
}

func (t *transaction) Workflows() persistence.WorkflowRepository {
	return &WorkflowRepository{tx: t.tx, logger: t.logger}
}

func (t *transaction) Actions() persistence.ActionRepository {
	return &ActionRepository{tx: t.tx, logger: t.logger}
}

func (t *transaction) Webhooks() persistence.WebhookRepository {
	return &WebhookRepository{tx: t.tx, logger: t.logger}
}

func (t *transaction) Runs() persistence.RunRepository {
	return &RunRepository{tx: t.tx, logger: t.logger}
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// insertError translates constraint violations into persistence errors.
func insertError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case codeUniqueViolation:
			return persistence.ErrAlreadyExists
		case codeForeignKeyViolation:
			return persistence.ErrParentNotFound
		}
	}

	return err
}

func closeRows(ctx context.Context, logger *slog.Logger, rows *sql.Rows) {
	err := rows.Close()
	if err != nil {
		logger.ErrorContext(ctx, "failed to close rows", "error", err)
	}
}

func stamp(created, updated *time.Time) {
	now := time.Now().UTC()

	if created.IsZero() {
		*created = now
	}

	*updated = now
}

func limitClause(limit int) any {
	if limit <= 0 {
		return nil
	}

	return limit
}
