// Package store persists canonical entities and relation edges into
// Postgres.
package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const (
	tableDoctors        = "practo_doctors"
	tableEstablishments = "practo_establishments"
	tableRelations      = "practo_doctor_establishment"
)

// Pool is the subset of pgxpool.Pool the store needs. pgxmock satisfies
// it in tests.
type Pool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Config controls the connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// NewPool opens a pgx connection pool. The pool is owned by the caller
// and handed to the store; the store never dials on its own.
func NewPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return pool, nil
}

// Store implements the persistence operations of the pipeline.
type Store struct {
	pool   Pool
	logger *zap.Logger
}

// New builds a Store around an existing pool.
func New(pool Pool, logger *zap.Logger) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{pool: pool, logger: logger}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// RecordFailure identifies one record that was skipped inside a batch.
type RecordFailure struct {
	ID  string
	Err error
}

// BatchResult reports the per-record outcome of a batch operation, so
// callers can see exactly what failed without relying on logs.
type BatchResult struct {
	Applied  int
	Failures []RecordFailure
}

func builder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(sq.Dollar)
}

// buildUpdateClause renders the DO UPDATE SET list for an upsert,
// excluding the identity column and the aggregate-count columns that only
// the relation pass writes.
func buildUpdateClause(columns []string) string {
	skip := map[string]struct{}{
		"practo_uuid":         {},
		"state":               {},
		"establishment_count": {},
		"doctor_count":        {},
	}
	parts := make([]string, 0, len(columns))
	for _, col := range columns {
		if _, ok := skip[col]; ok {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s = EXCLUDED.%s", col, col))
	}
	return strings.Join(parts, ", ")
}

// upsertBatch runs n record statements inside one transaction, wrapping
// each in a savepoint so one bad record rolls back alone while the rest
// still commit.
func (s *Store) upsertBatch(
	ctx context.Context,
	n int,
	recordID func(i int) string,
	exec func(ctx context.Context, tx pgx.Tx, i int) error,
) (BatchResult, error) {
	var res BatchResult
	if n == 0 {
		return res, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return res, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	for i := 0; i < n; i++ {
		sp := fmt.Sprintf("record_%d", i)
		if _, err := tx.Exec(ctx, "SAVEPOINT "+sp); err != nil {
			return res, fmt.Errorf("savepoint %s: %w", sp, err)
		}
		if err := exec(ctx, tx, i); err != nil {
			s.logger.Warn("record skipped",
				zap.String("id", recordID(i)),
				zap.Error(err))
			if _, rbErr := tx.Exec(ctx, "ROLLBACK TO SAVEPOINT "+sp); rbErr != nil {
				return res, fmt.Errorf("rollback to %s: %w", sp, rbErr)
			}
			res.Failures = append(res.Failures, RecordFailure{ID: recordID(i), Err: err})
			continue
		}
		if _, err := tx.Exec(ctx, "RELEASE SAVEPOINT "+sp); err != nil {
			return res, fmt.Errorf("release %s: %w", sp, err)
		}
		res.Applied++
	}

	if err := tx.Commit(ctx); err != nil {
		return res, fmt.Errorf("commit: %w", err)
	}
	return res, nil
}
