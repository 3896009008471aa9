// Package repository persists dataset snapshots. Every backend stores the whole
// snapshot as one JSON document under a key.
package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/FACorreiaa/smart-sales-tracker/internal/domain/dataset"
)

// DefaultKey names the snapshot when the caller does not choose one.
const DefaultKey = "default"

var (
	ErrSnapshotNotFound = errors.New("snapshot not found")
	ErrQuotaExceeded    = errors.New("snapshot exceeds storage quota")
)

// SnapshotRepository loads and saves the full dataset snapshot.
type SnapshotRepository interface {
	Load(ctx context.Context) (dataset.Snapshot, error)
	Save(ctx context.Context, snap dataset.Snapshot) error
	Delete(ctx context.Context) error
}

func encodeSnapshot(snap dataset.Snapshot) ([]byte, error) {
	data, err := json.Marshal(snap.Normalize())
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return data, nil
}

func decodeSnapshot(data []byte) (dataset.Snapshot, error) {
	var snap dataset.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return dataset.Snapshot{}, fmt.Errorf("failed to decode snapshot: %w", err)
	}
	return snap.Normalize(), nil
}
