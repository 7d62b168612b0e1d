// Package store persists annotated service events to PostgreSQL.
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/okian/sibrol/internal/domain/model"
	"github.com/okian/sibrol/pkg/logger"
)

const (
	defaultTable    = "coverage_events"
	defaultMaxConns = 4
)

// columns are the COPY target columns, in row order.
var columns = []string{
	"run_id", "row_index", "beneficiary_id", "service_start_date", "procedure_code",
	"coverage_status", "coverage_note", "waiting_flag", "rule",
	"mapping_status", "standard_code", "equivalence_grade", "mandatory_coverage",
	"created_at",
}

// Store writes annotated events with COPY.
type Store struct {
	pool     *pgxpool.Pool
	table    string
	maxConns int32
	logger   logger.Logger
}

// Option applies a configuration option to the Store.
type Option func(*Store)

// WithTable sets the target table name.
func WithTable(name string) Option {
	return func(s *Store) {
		s.table = strings.TrimSpace(name)
	}
}

// WithMaxConns caps the connection pool size.
func WithMaxConns(n int32) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxConns = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// Open connects to dsn and checks the connection.
func Open(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	s := &Store{
		table:    defaultTable,
		maxConns: defaultMaxConns,
		logger:   logger.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.table == "" {
		return nil, ErrInvalidTable
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: parse connection: %w", ErrConnect, err)
	}
	cfg.MaxConns = s.maxConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnect, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ping: %w", ErrConnect, err)
	}
	s.pool = pool
	return s, nil
}

// Close releases the pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the events table when it does not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	run_id             TEXT        NOT NULL,
	row_index          INTEGER     NOT NULL,
	beneficiary_id     TEXT        NOT NULL,
	service_start_date DATE,
	procedure_code     TEXT        NOT NULL,
	coverage_status    TEXT        NOT NULL,
	coverage_note      TEXT        NOT NULL,
	waiting_flag       TEXT        NOT NULL,
	rule               TEXT        NOT NULL,
	mapping_status     TEXT        NOT NULL,
	standard_code      TEXT        NOT NULL,
	equivalence_grade  TEXT        NOT NULL,
	mandatory_coverage TEXT        NOT NULL,
	created_at         TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (run_id, row_index)
)`, s.ident())
	if _, err := s.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", s.table, err)
	}
	return nil
}

// SaveRun copies every event of a run in one transaction and returns the
// number of rows written.
func (s *Store) SaveRun(ctx context.Context, runID string, events []model.ServiceEvent) (int64, error) {
	start := time.Now()
	now := start.UTC()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	copied, err := tx.CopyFrom(ctx,
		pgx.Identifier{s.table},
		columns,
		pgx.CopyFromSlice(len(events), func(i int) ([]any, error) {
			ev := &events[i]
			return []any{
				runID,
				int32(ev.Index),
				ev.BeneficiaryID,
				dateValue(ev.ServiceStartDate),
				ev.ProcedureCode,
				string(ev.Coverage.Status),
				ev.Coverage.Note,
				string(ev.Coverage.WaitingFlag),
				ev.Coverage.Rule,
				string(ev.Mapping.Status),
				ev.Mapping.StandardCode,
				ev.Mapping.EquivalenceGrade,
				string(ev.Mapping.MandatoryCoverage),
				now,
			}, nil
		}),
	)
	if err != nil {
		return 0, fmt.Errorf("copy %s: %w", s.table, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}

	s.logger.Info(ctx, "events stored",
		logger.String("run_id", runID),
		logger.String("table", s.table),
		logger.Int("rows", int(copied)),
		logger.Duration("took", time.Since(start)),
	)
	return copied, nil
}

// StatusCounts returns the number of stored events of a run per coverage status.
func (s *Store) StatusCounts(ctx context.Context, runID string) (map[string]int64, error) {
	q := fmt.Sprintf(`SELECT coverage_status, count(*) FROM %s WHERE run_id = $1 GROUP BY coverage_status`, s.ident())
	rows, err := s.pool.Query(ctx, q, runID)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.table, err)
	}
	defer rows.Close()

	out := make(map[string]int64)
	for rows.Next() {
		var (
			status string
			n      int64
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out[status] = n
	}
	return out, rows.Err()
}

func (s *Store) ident() string {
	return pgx.Identifier{s.table}.Sanitize()
}

// dateValue maps an absent date to NULL.
func dateValue(d model.Date) any {
	if d.IsZero() {
		return nil
	}
	return d.Time()
}
