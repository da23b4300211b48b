// Package repository provides database access layer.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dialectPostgres = "postgres"

// PostgreSQL error codes the repository maps onto domain errors.
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// Table names.
const (
	tableUsers          = "users"
	tableResources      = "resources"
	tableBorrowRequests = "borrow_requests"
)

// PoolConfig sizes the connection pool.
type PoolConfig struct {
	MaxConns int32
	MinConns int32
}

// DefaultPoolConfig matches the service defaults.
var DefaultPoolConfig = PoolConfig{MaxConns: 10, MinConns: 2}

// Repository provides database access methods.
type Repository struct {
	pool    *pgxpool.Pool
	builder goqu.DialectWrapper
}

// New creates a new Repository with a connection pool.
func New(ctx context.Context, databaseURL string, poolCfg PoolConfig) (*Repository, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	if poolCfg.MaxConns > 0 {
		config.MaxConns = poolCfg.MaxConns
	}
	if poolCfg.MinConns >= 0 && poolCfg.MinConns <= config.MaxConns {
		config.MinConns = poolCfg.MinConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return NewWithPool(pool), nil
}

// NewWithPool wraps an existing pool. The caller keeps ownership of pool
// unless Close is called.
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool, builder: goqu.Dialect(dialectPostgres)}
}

// Ping checks database connectivity.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool.
func (r *Repository) Close() {
	r.pool.Close()
}

// Pool returns the underlying connection pool.
// Use sparingly - prefer adding methods to Repository.
func (r *Repository) Pool() *pgxpool.Pool {
	return r.pool
}

// Counts holds per-table record totals.
type Counts struct {
	Users          int64 `json:"users"`
	Resources      int64 `json:"resources"`
	BorrowRequests int64 `json:"borrowRequests"`
}

// Counts returns the number of rows in each domain table.
func (r *Repository) Counts(ctx context.Context) (*Counts, error) {
	var c Counts
	targets := []struct {
		table string
		dest  *int64
	}{
		{tableUsers, &c.Users},
		{tableResources, &c.Resources},
		{tableBorrowRequests, &c.BorrowRequests},
	}

	for _, tgt := range targets {
		query, _, err := r.builder.From(tgt.table).Select(goqu.COUNT(goqu.Star())).ToSQL()
		if err != nil {
			return nil, fmt.Errorf("build count query for %s: %w", tgt.table, err)
		}
		if err := r.pool.QueryRow(ctx, query).Scan(tgt.dest); err != nil {
			return nil, fmt.Errorf("count %s: %w", tgt.table, err)
		}
	}

	return &c, nil
}

// pgError extracts a PostgreSQL error with the given code.
func pgError(err error, code string) (*pgconn.PgError, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == code {
		return pgErr, true
	}
	return nil, false
}

// isUniqueViolation checks if the error is a PostgreSQL unique constraint violation.
func isUniqueViolation(err error) bool {
	_, ok := pgError(err, pgUniqueViolation)
	return ok
}

// isForeignKeyViolation checks if the error is a PostgreSQL foreign key violation.
func isForeignKeyViolation(err error) bool {
	_, ok := pgError(err, pgForeignKeyViolation)
	return ok
}
