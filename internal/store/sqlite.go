package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/ashureev/chatwidget/internal/shared"
	_ "modernc.org/sqlite"
)

const (
	writeRetries    = 3
	writeRetryDelay = 50 * time.Millisecond
)

// SQLiteStore implements SessionStorage using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// NewSQLite creates a new SQLite-backed session storage.
func NewSQLite(dbPath string, ttl time.Duration) (*SQLiteStore, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("session ttl must be > 0")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteStore{db: db, ttl: ttl, now: time.Now}
	if err := s.initSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS session_storage (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_session_storage_updated ON session_storage(updated_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) cutoff() int64 {
	return s.now().Add(-s.ttl).UnixNano()
}

// GetItem returns the value for key if it exists and has not expired.
func (s *SQLiteStore) GetItem(ctx context.Context, key string) (string, bool, error) {
	query := `SELECT value FROM session_storage WHERE key = ? AND updated_at > ?`

	var value string
	err := s.db.QueryRowContext(ctx, query, key, s.cutoff()).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get session item %q: %w", key, err)
	}
	return value, true, nil
}

// SetItem creates or replaces the value for key.
func (s *SQLiteStore) SetItem(ctx context.Context, key, value string) error {
	query := `
	INSERT INTO session_storage (key, value, updated_at)
	VALUES (?, ?, ?)
	ON CONFLICT(key) DO UPDATE SET
		value = excluded.value,
		updated_at = excluded.updated_at`

	return s.withRetry(ctx, func() error {
		if _, err := s.db.ExecContext(ctx, query, key, value, s.now().UnixNano()); err != nil {
			return fmt.Errorf("set session item %q: %w", key, err)
		}
		return nil
	})
}

// RemoveItem deletes key.
func (s *SQLiteStore) RemoveItem(ctx context.Context, key string) error {
	return s.withRetry(ctx, func() error {
		if _, err := s.db.ExecContext(ctx, `DELETE FROM session_storage WHERE key = ?`, key); err != nil {
			return fmt.Errorf("remove session item %q: %w", key, err)
		}
		return nil
	})
}

// CleanupExpired deletes entries older than the TTL.
func (s *SQLiteStore) CleanupExpired(ctx context.Context) (int64, error) {
	var removed int64
	err := s.withRetry(ctx, func() error {
		result, err := s.db.ExecContext(ctx, `DELETE FROM session_storage WHERE updated_at <= ?`, s.cutoff())
		if err != nil {
			return fmt.Errorf("cleanup expired session items: %w", err)
		}
		removed, err = result.RowsAffected()
		if err != nil {
			return fmt.Errorf("get rows affected: %w", err)
		}
		return nil
	})
	return removed, err
}

// withRetry retries fn while SQLite reports a busy or locked database.
func (s *SQLiteStore) withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < writeRetries; attempt++ {
		err = fn()
		if err == nil || !shared.IsSQLiteConflictError(err) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(writeRetryDelay * time.Duration(attempt+1)):
		}
	}
	return err
}

var _ SessionStorage = (*SQLiteStore)(nil)
