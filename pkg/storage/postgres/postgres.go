// Package postgres implements storage.Store on PostgreSQL.
//
// Filters built by the visibility layer are compiled into WHERE clauses, so
// list queries never load more than one page of rows. Every read that
// resolves or applies a visibility filter goes to the primary so membership
// changes take effect on the next request; only the aggregate Count queries
// behind the admin dashboard may be served by a read replica.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/platinummonkey/taskboard/pkg/query"
	"github.com/platinummonkey/taskboard/pkg/storage"
)

// PostgreSQL error codes the store maps onto storage sentinels
const (
	codeUniqueViolation     = "23505"
	codeForeignKeyViolation = "23503"
)

// Store is a storage.Store backed by PostgreSQL
type Store struct {
	conn *ConnectionManager
}

var _ storage.Store = (*Store)(nil)

// New creates a store on top of a connection manager
func New(conn *ConnectionManager) *Store {
	return &Store{conn: conn}
}

// NewFromDB creates a store using a single database handle
func NewFromDB(db *sql.DB) *Store {
	return New(NewConnectionManagerFromDB(db))
}

// Open connects to PostgreSQL using the storage config, applying migrations
// when AutoMigrate is set
func Open(ctx context.Context, cfg storage.Config) (*Store, error) {
	conn, err := NewConnectionManager(ctx, ConnectionConfig{
		PrimaryURL:  cfg.PostgresURL,
		ReplicaURLs: cfg.PostgresReplicaURLs,
		MaxConns:    cfg.PostgresMaxConns,
		MinConns:    cfg.PostgresMinConns,
		Timeout:     cfg.PostgresTimeout,
		MaxLifetime: cfg.PostgresMaxLifetime,
		MaxIdleTime: cfg.PostgresMaxIdleTime,
	})
	if err != nil {
		return nil, err
	}

	if cfg.AutoMigrate {
		if err := Migrate(conn.Primary()); err != nil {
			conn.Close()
			return nil, err
		}
	}

	return New(conn), nil
}

// DB returns the primary handle
func (s *Store) DB() *sql.DB {
	return s.conn.Primary()
}

// HealthCheck pings the primary and replicas
func (s *Store) HealthCheck(ctx context.Context) error {
	return s.conn.HealthCheck(ctx)
}

// Close closes all connections
func (s *Store) Close() error {
	return s.conn.Close()
}

// mapError translates driver errors into storage sentinels
func mapError(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, storage.ErrNotFound)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case codeUniqueViolation:
			return fmt.Errorf("%s: %w", what, storage.ErrConflict)
		case codeForeignKeyViolation:
			return fmt.Errorf("%s: %w: %s", what, storage.ErrNotFound, pqErr.Constraint)
		}
	}
	return fmt.Errorf("failed to access %s: %w", what, err)
}

// expectRows returns ErrNotFound when an update or delete touched nothing
func expectRows(result sql.Result, what string) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows for %s: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, storage.ErrNotFound)
	}
	return nil
}

// listQuery builds the page query and its matching count query
func listQuery(table tableSpec, columns string, cond query.Cond, page query.Page) (string, string, []interface{}, error) {
	clause, args, err := where(table, cond)
	if err != nil {
		return "", "", nil, err
	}
	page = query.NewPage(page.Page, page.Limit)

	countSQL := fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", table.name, clause)
	pageArgs := append(append([]interface{}{}, args...), page.Limit, page.Offset())
	pageSQL := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY created_at DESC, id ASC LIMIT $%d OFFSET $%d",
		columns, table.name, clause, len(args)+1, len(args)+2)

	return pageSQL, countSQL, pageArgs, nil
}

func (s *Store) count(ctx context.Context, table tableSpec, cond query.Cond) (int, error) {
	if cond.IsNone() {
		return 0, nil
	}
	clause, args, err := where(table, cond)
	if err != nil {
		return 0, err
	}
	var n int
	err = s.conn.Replica().QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE %s", table.name, clause), args...).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table.name, err)
	}
	return n, nil
}
