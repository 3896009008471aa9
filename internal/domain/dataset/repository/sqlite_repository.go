package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/FACorreiaa/smart-sales-tracker/internal/domain/dataset"
)

const sqliteSchema = `
	CREATE TABLE IF NOT EXISTS dataset_snapshots (
		key        TEXT PRIMARY KEY,
		payload    TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`

// SQLiteRepository stores snapshots in an embedded SQLite database.
type SQLiteRepository struct {
	db  *sql.DB
	key string
}

// OpenSQLiteRepository opens (or creates) the database at path and ensures the schema exists.
func OpenSQLiteRepository(ctx context.Context, path, key string) (*SQLiteRepository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// SQLite allows a single writer.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	if key == "" {
		key = DefaultKey
	}
	return &SQLiteRepository{db: db, key: key}, nil
}

func (r *SQLiteRepository) Load(ctx context.Context) (dataset.Snapshot, error) {
	var payload string
	err := r.db.QueryRowContext(ctx, `SELECT payload FROM dataset_snapshots WHERE key = ?`, r.key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return dataset.Snapshot{}, ErrSnapshotNotFound
	}
	if err != nil {
		return dataset.Snapshot{}, fmt.Errorf("query snapshot: %w", err)
	}
	return decodeSnapshot([]byte(payload))
}

func (r *SQLiteRepository) Save(ctx context.Context, snap dataset.Snapshot) error {
	data, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO dataset_snapshots (key, payload, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		r.key, string(data),
	)
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) Delete(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM dataset_snapshots WHERE key = ?`, r.key); err != nil {
		return fmt.Errorf("delete snapshot: %w", err)
	}
	return nil
}

// Close releases the database handle.
func (r *SQLiteRepository) Close() error {
	return r.db.Close()
}
