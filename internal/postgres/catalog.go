package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/lib/pq"

	apperrors "postgres-backup-rotate/internal/errors"
	"postgres-backup-rotate/internal/logging"
)

// Catalog queries used for target enumeration. Patterns are POSIX
// regexes evaluated by the server, so selection semantics stay identical
// whether the list is checked here or in psql by hand.
const (
	schemaOnlyQuery = `SELECT datname FROM pg_database WHERE datname ~ ANY($1::text[]) ORDER BY datname`

	fullFilteredQuery = `SELECT datname FROM pg_database WHERE NOT datistemplate AND datallowconn AND datname !~ ALL($1::text[]) ORDER BY datname`

	fullUnfilteredQuery = `SELECT datname FROM pg_database WHERE NOT datistemplate AND datallowconn ORDER BY datname`
)

// Catalog resolves backup targets from pg_database on the maintenance
// connection. It implements backup.Catalog.
type Catalog struct {
	db     *sql.DB
	logger *logging.Logger
}

// NewCatalog opens a connection to the cluster and verifies it with a
// ping. The DSN never carries a password; authentication comes from
// PGPASSWORD or the usual libpq mechanisms.
func NewCatalog(ctx context.Context, dsn string, logger *logging.Logger) (*Catalog, error) {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, apperrors.WrapError(err, "failed to open catalog connection")
	}

	// The tool is single-threaded; one idle connection is all it needs
	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, apperrors.WrapError(err, "failed to reach the cluster catalog")
	}

	logger.Debug("Catalog connection established")
	return &Catalog{db: db, logger: logger}, nil
}

// NewCatalogWithDB wraps an existing connection, used by tests
func NewCatalogWithDB(db *sql.DB, logger *logging.Logger) *Catalog {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &Catalog{db: db, logger: logger}
}

// Close releases the catalog connection
func (c *Catalog) Close() error {
	return apperrors.WrapError(c.db.Close(), "failed to close catalog connection")
}

// SchemaOnlyDatabases returns names matching any of the patterns,
// catalog-sorted. An empty pattern list never touches the catalog.
func (c *Catalog) SchemaOnlyDatabases(ctx context.Context, patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		return nil, nil
	}
	return c.queryNames(ctx, schemaOnlyQuery, pq.Array(patterns))
}

// FullBackupDatabases returns non-template, connectable names matching
// none of the patterns, catalog-sorted
func (c *Catalog) FullBackupDatabases(ctx context.Context, patterns []string) ([]string, error) {
	if len(patterns) == 0 {
		return c.queryNames(ctx, fullUnfilteredQuery)
	}
	return c.queryNames(ctx, fullFilteredQuery, pq.Array(patterns))
}

func (c *Catalog) queryNames(ctx context.Context, query string, args ...interface{}) ([]string, error) {
	start := time.Now()

	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.WrapError(err, "failed to query pg_database")
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, apperrors.WrapError(err, "failed to scan catalog row")
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.WrapError(err, "failed to read catalog rows")
	}

	c.logger.WithFields(map[string]interface{}{
		"rows":     len(names),
		"duration": time.Since(start).String(),
	}).Debug("Catalog query completed")

	return names, nil
}
