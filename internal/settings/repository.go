package settings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Well-known blob keys.
const (
	KeySubscriptions = "subscriptions"
	KeyBroker        = "broker"
)

// Repository defines opaque get/set of serialized blobs keyed by name.
// This abstraction allows different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// Get returns the blob stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores the blob under key, replacing any previous value.
	Set(ctx context.Context, key string, value []byte) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The settings table is created by the embedded migrations.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Get returns the blob stored under key.
func (r *SQLiteRepository) Get(ctx context.Context, key string) ([]byte, error) {
	query := `SELECT value FROM settings WHERE key = ?`

	var value []byte
	err := r.db.QueryRowContext(ctx, query, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
		}
		return nil, fmt.Errorf("querying setting %q: %w", key, err)
	}
	return value, nil
}

// Set stores the blob under key, replacing any previous value.
func (r *SQLiteRepository) Set(ctx context.Context, key string, value []byte) error {
	query := `INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

	if _, err := r.db.ExecContext(ctx, query, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("storing setting %q: %w", key, err)
	}
	return nil
}
