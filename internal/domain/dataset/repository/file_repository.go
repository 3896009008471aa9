package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/FACorreiaa/smart-sales-tracker/internal/domain/dataset"
)

// FileRepository keeps the snapshot in a single JSON file. A non-zero
// MaxBytes rejects snapshots larger than the quota.
type FileRepository struct {
	path     string
	maxBytes int64
}

// NewFileRepository creates a file-backed repository
func NewFileRepository(path string, maxBytes int64) *FileRepository {
	return &FileRepository{path: path, maxBytes: maxBytes}
}

func (r *FileRepository) Load(_ context.Context) (dataset.Snapshot, error) {
	data, err := os.ReadFile(r.path)
	if errors.Is(err, fs.ErrNotExist) {
		return dataset.Snapshot{}, ErrSnapshotNotFound
	}
	if err != nil {
		return dataset.Snapshot{}, fmt.Errorf("failed to read snapshot file: %w", err)
	}
	return decodeSnapshot(data)
}

// Save writes to a temp file in the same directory and renames it over the
// previous snapshot so readers never observe a partial file.
func (r *FileRepository) Save(_ context.Context, snap dataset.Snapshot) error {
	data, err := encodeSnapshot(snap)
	if err != nil {
		return err
	}
	if r.maxBytes > 0 && int64(len(data)) > r.maxBytes {
		return fmt.Errorf("%w: %d > %d bytes", ErrQuotaExceeded, len(data), r.maxBytes)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot: %w", err)
	}

	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

func (r *FileRepository) Delete(_ context.Context) error {
	if err := os.Remove(r.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete snapshot: %w", err)
	}
	return nil
}
