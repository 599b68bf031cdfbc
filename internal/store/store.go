// Package store provides data persistence interfaces and implementations.
package store

import "context"

// SessionStorage is an ephemeral key/value store scoped to a client session.
// Entries older than the configured TTL behave as if they were never written.
type SessionStorage interface {
	// GetItem returns the value for key, or ok=false when it is absent or expired.
	GetItem(ctx context.Context, key string) (value string, ok bool, err error)

	// SetItem creates or replaces the value for key and refreshes its timestamp.
	SetItem(ctx context.Context, key, value string) error

	// RemoveItem deletes key. Removing an absent key is not an error.
	RemoveItem(ctx context.Context, key string) error

	// CleanupExpired deletes entries older than the TTL and returns how many were removed.
	CleanupExpired(ctx context.Context) (int64, error)

	// Ping verifies database connectivity and returns an error if the database is unreachable.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
