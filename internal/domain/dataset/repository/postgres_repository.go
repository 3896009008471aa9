package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/smart-sales-tracker/internal/domain/dataset"
)

// PgxPool abstracts the subset of pgxpool.Pool used by the repository to allow mocking in tests.
type PgxPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var _ PgxPool = (*pgxpool.Pool)(nil)

const (
	loadSnapshotQuery = `
		SELECT payload
		FROM dataset_snapshots
		WHERE key = $1
	`

	saveSnapshotQuery = `
		INSERT INTO dataset_snapshots (key, payload, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET payload = EXCLUDED.payload, updated_at = NOW()
	`

	deleteSnapshotQuery = `
		DELETE FROM dataset_snapshots
		WHERE key = $1
	`
)

// PostgresRepository stores snapshots as JSONB rows.
type PostgresRepository struct {
	pgpool PgxPool
	key    string
}

// NewPostgresRepository creates a new PostgreSQL-backed snapshot repository
func NewPostgresRepository(pgpool PgxPool, key string) *PostgresRepository {
	if key == "" {
		key = DefaultKey
	}
	return &PostgresRepository{pgpool: pgpool, key: key}
}

func (r *PostgresRepository) Load(ctx context.Context) (dataset.Snapshot, error) {
	ctx, span := startSpan(ctx, "Load", "SELECT", r.key)
	defer span.End()

	var payload []byte
	err := r.pgpool.QueryRow(ctx, loadSnapshotQuery, r.key).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return dataset.Snapshot{}, ErrSnapshotNotFound
	}
	if err != nil {
		return dataset.Snapshot{}, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return decodeSnapshot(payload)
}

func (r *PostgresRepository) Save(ctx context.Context, snap dataset.Snapshot) error {
	ctx, span := startSpan(ctx, "Save", "UPSERT", r.key)
	defer span.End()

	data, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}
	span.SetAttributes(attribute.Int("snapshot.bytes", len(data)))
	if _, err := r.pgpool.Exec(ctx, saveSnapshotQuery, r.key, data); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context) error {
	ctx, span := startSpan(ctx, "Delete", "DELETE", r.key)
	defer span.End()

	if _, err := r.pgpool.Exec(ctx, deleteSnapshotQuery, r.key); err != nil {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}

func startSpan(ctx context.Context, name, operation, key string) (context.Context, trace.Span) {
	return otel.Tracer("SnapshotRepo").Start(ctx, name, trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", operation),
		attribute.String("db.sql.table", "dataset_snapshots"),
		attribute.String("snapshot.key", key),
	))
}
