package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Supported SQL dialects.
const (
	DialectSQLite   = "sqlite3"
	DialectPostgres = "postgres"
)

// SQLStore implements Store on a single key/value table. SQLite gives a
// local file that survives restarts; Postgres suits shared deployments.
type SQLStore struct {
	db      *sql.DB
	dialect string
	get     string
	upsert  string
	del     string
}

// OpenSQLStore opens dsn with the given dialect and creates the table if needed.
func OpenSQLStore(ctx context.Context, dialect, dsn string) (*SQLStore, error) {
	db, err := sql.Open(dialect, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", dialect, err)
	}
	s, err := NewSQLStore(ctx, db, dialect)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLStore wraps an open db. The caller keeps ownership of db unless Close is called.
func NewSQLStore(ctx context.Context, db *sql.DB, dialect string) (*SQLStore, error) {
	s := &SQLStore{db: db, dialect: dialect}
	switch dialect {
	case DialectSQLite:
		s.get = `SELECT value FROM weather_cache WHERE key = ?`
		s.upsert = `INSERT INTO weather_cache (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value`
		s.del = `DELETE FROM weather_cache WHERE key = ?`
	case DialectPostgres:
		s.get = `SELECT value FROM weather_cache WHERE key = $1`
		s.upsert = `INSERT INTO weather_cache (key, value) VALUES ($1, $2)
			ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`
		s.del = `DELETE FROM weather_cache WHERE key = $1`
	default:
		return nil, fmt.Errorf("unsupported sql dialect %q", dialect)
	}
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS weather_cache (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`); err != nil {
		return nil, fmt.Errorf("create weather_cache: %w", err)
	}
	return s, nil
}

// Get implements Store.
func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, error) {
	var value string
	err := s.db.QueryRowContext(ctx, s.get, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(value), nil
}

// Set implements Store.
func (s *SQLStore) Set(ctx context.Context, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx, s.upsert, key, string(value))
	return err
}

// Delete implements Store.
func (s *SQLStore) Delete(ctx context.Context, key string) error {
	_, err := s.db.ExecContext(ctx, s.del, key)
	return err
}

// Ping checks the database connection. Used for health checks.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the underlying database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
