// Package sqlite implements the CMDB graph store on SQLite. Entities and
// relationships live in two tables joined by foreign keys; the type
// catalogs are read-only tables seeded out of band.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/T-6891/Dementor-API/internal/idgen"
	"github.com/T-6891/Dementor-API/internal/metric"
)

// Store implements the repository interfaces over a pooled SQLite handle.
// Every operation scopes its connection or transaction to the call and
// releases it on all exit paths.
type Store struct {
	db           *sql.DB
	queryTimeout time.Duration
	metrics      *metric.Metrics

	// ID generators sit behind function fields so the collision retry
	// path stays exercisable.
	entityID       func(prefix string) string
	relationshipID func() string
}

// Option customizes a Store.
type Option func(*Store)

// WithQueryTimeout bounds every store operation. Zero disables the bound.
func WithQueryTimeout(d time.Duration) Option {
	return func(s *Store) { s.queryTimeout = d }
}

// WithMetrics wires Prometheus observation of store operations.
func WithMetrics(m *metric.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// New opens (or creates) the database at path and runs migrations.
func New(path string, opts ...Option) (*Store, error) {
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// An in-memory database exists per connection; restrict the pool so
	// every operation sees the same database.
	if strings.Contains(path, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	s := &Store{
		db:             db,
		queryTimeout:   5 * time.Second,
		entityID:       idgen.EntityID,
		relationshipID: idgen.RelationshipID,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS entities (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		name TEXT NOT NULL,
		status TEXT NOT NULL,
		description TEXT,
		properties TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME
	);

	CREATE TABLE IF NOT EXISTS relationships (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		source_id TEXT NOT NULL,
		target_id TEXT NOT NULL,
		properties TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME,
		FOREIGN KEY (source_id) REFERENCES entities(id) ON DELETE CASCADE,
		FOREIGN KEY (target_id) REFERENCES entities(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS entity_types (
		name TEXT PRIMARY KEY,
		description TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		id_prefix TEXT,
		schema TEXT
	);

	CREATE TABLE IF NOT EXISTS relationship_types (
		name TEXT PRIMARY KEY,
		description TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		schema TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_entities_type ON entities(type);
	CREATE INDEX IF NOT EXISTS idx_entities_name ON entities(name);
	CREATE INDEX IF NOT EXISTS idx_relationships_source ON relationships(source_id);
	CREATE INDEX IF NOT EXISTS idx_relationships_target ON relationships(target_id);
	CREATE INDEX IF NOT EXISTS idx_relationships_type ON relationships(type);
	`

	_, err := s.db.Exec(schema)
	return err
}

// opContext applies the per-query timeout.
func (s *Store) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.queryTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.queryTimeout)
}

// observe records the outcome of one store operation. It takes the error
// by pointer so a deferred call sees the final value.
func (s *Store) observe(operation string, start time.Time, err *error) {
	s.metrics.ObserveQuery(operation, start, *err)
}

// isUniqueViolation reports whether err is a storage uniqueness-constraint
// failure, the signal for the bounded ID regeneration loop.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Ping checks store connectivity.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := s.opContext(ctx)
	defer cancel()
	return s.db.PingContext(ctx)
}

// CountEntities returns the number of stored entities.
func (s *Store) CountEntities(ctx context.Context) (int, error) {
	return s.countTable(ctx, "entities")
}

// CountRelationships returns the number of stored relationships.
func (s *Store) CountRelationships(ctx context.Context) (int, error) {
	return s.countTable(ctx, "relationships")
}

func (s *Store) countTable(ctx context.Context, table string) (int, error) {
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var n int
	// table is one of two compile-time constants, never user input.
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM `+table).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return n, nil
}

// Close closes the database connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}
