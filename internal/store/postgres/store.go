// Package postgres records sampling runs in Postgres.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ministryofjustice/probation-case-sampler/internal/sampler"
)

const (
	runsTable = "sample_runs"
	rowsTable = "sample_rows"
)

const schema = `
CREATE TABLE IF NOT EXISTS sample_runs (
	id            UUID PRIMARY KEY,
	created_at    TIMESTAMPTZ NOT NULL,
	requested     INTEGER NOT NULL,
	buffer        DOUBLE PRECISION NOT NULL,
	max_per_agent INTEGER NOT NULL,
	target        INTEGER NOT NULL,
	selected      INTEGER NOT NULL,
	shortfall     INTEGER NOT NULL,
	report        JSONB NOT NULL
);
CREATE TABLE IF NOT EXISTS sample_rows (
	run_id     UUID NOT NULL REFERENCES sample_runs(id) ON DELETE CASCADE,
	row_number TEXT NOT NULL,
	stratum    TEXT NOT NULL,
	crn        TEXT NOT NULL,
	cluster    TEXT NOT NULL,
	ldu        TEXT NOT NULL,
	agent      TEXT NOT NULL,
	PRIMARY KEY (run_id, row_number)
);`

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// DB is the part of a pgx pool the store uses.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

var _ DB = (*pgxpool.Pool)(nil)

// ReportStore saves finished reports.
type ReportStore struct {
	db DB
}

func NewReportStore(db DB) *ReportStore {
	return &ReportStore{db: db}
}

// Open connects to url and ensures the tables exist. Close the returned pool
// when done.
func Open(ctx context.Context, url string) (*ReportStore, *pgxpool.Pool, error) {
	if url == "" {
		return nil, nil, errors.New("database url is empty")
	}
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping postgres: %w", err)
	}
	store := NewReportStore(pool)
	if err := store.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return store, pool, nil
}

// Migrate creates the tables if they are missing.
func (s *ReportStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Save writes the run and its selected rows in one transaction.
func (s *ReportStore) Save(ctx context.Context, r *sampler.Report) (err error) {
	run, err := insertRun(r)
	if err != nil {
		return err
	}
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	if err := execBuilder(ctx, tx, run); err != nil {
		return fmt.Errorf("insert run %s: %w", r.ID, err)
	}
	if rows, ok := insertRows(r); ok {
		if err := execBuilder(ctx, tx, rows); err != nil {
			return fmt.Errorf("insert rows for run %s: %w", r.ID, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit run %s: %w", r.ID, err)
	}
	return nil
}

func execBuilder(ctx context.Context, tx pgx.Tx, b sq.Sqlizer) error {
	query, args, err := b.ToSql()
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, query, args...)
	return err
}

func insertRun(r *sampler.Report) (sq.InsertBuilder, error) {
	body, err := json.Marshal(sampler.Analyse(r))
	if err != nil {
		return sq.InsertBuilder{}, fmt.Errorf("encode report %s: %w", r.ID, err)
	}
	return psql.Insert(runsTable).
		Columns("id", "created_at", "requested", "buffer", "max_per_agent", "target", "selected", "shortfall", "report").
		Values(r.ID, r.Timestamp, r.Requested, r.Buffer, r.MaxPerAgent, r.Target, r.Selected(), r.Shortfall(), body), nil
}

// insertRows reports false when nothing was selected.
func insertRows(r *sampler.Report) (sq.InsertBuilder, bool) {
	b := psql.Insert(rowsTable).Columns("run_id", "row_number", "stratum", "crn", "cluster", "ldu", "agent")
	n := 0
	for _, res := range r.Results {
		for _, row := range res.Rows {
			b = b.Values(r.ID, row.Number, string(res.Category), row.CRN, row.Cluster, row.Unit, row.Agent)
			n++
		}
	}
	return b, n > 0
}
