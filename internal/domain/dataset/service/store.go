// Package service holds the in-memory dataset store and keeps it mirrored to a snapshot repository.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/FACorreiaa/smart-sales-tracker/internal/domain/dataset"
	"github.com/FACorreiaa/smart-sales-tracker/internal/domain/dataset/repository"
	"github.com/FACorreiaa/smart-sales-tracker/pkg/observability"
)

// Scope selects which collections Clear empties.
type Scope string

const (
	ScopeSales     Scope = "sales"
	ScopeSuppliers Scope = "suppliers"
	ScopeAll       Scope = "all"
)

var ErrUnknownScope = errors.New("unknown clear scope")

// ParseScope accepts "sales", "suppliers" or "all".
func ParseScope(raw string) (Scope, error) {
	switch s := Scope(raw); s {
	case ScopeSales, ScopeSuppliers, ScopeAll:
		return s, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownScope, raw)
}

// Batch is the normalized output of one imported document.
type Batch struct {
	Type     dataset.Type
	FileName string
	Records  []dataset.Record
}

// Status summarizes what the store holds and how persistence is doing.
type Status struct {
	SalesRecords       int       `json:"salesRecords"`
	SupplierRecords    int       `json:"supplierRecords"`
	SalesFileNames     []string  `json:"salesFileNames"`
	SuppliersFileNames []string  `json:"suppliersFileNames"`
	PersistWarning     string    `json:"persistWarning,omitempty"`
	LastPersistedAt    time.Time `json:"lastPersistedAt,omitempty"`
}

// Store holds the two collections. Every mutation is followed by a snapshot
// save; a failed save is recorded as a warning and never undoes the mutation.
type Store struct {
	mu   sync.RWMutex
	snap dataset.Snapshot

	// persistMu orders saves the same way as the mutations that produced them.
	persistMu     sync.Mutex
	repo          repository.SnapshotRepository
	warning       string
	lastPersisted time.Time

	logger *slog.Logger
}

// NewStore creates an empty store. repo may be nil for a memory-only store.
func NewStore(repo repository.SnapshotRepository, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		snap:   dataset.EmptySnapshot(),
		repo:   repo,
		logger: logger,
	}
}

// Restore replaces the store contents with the persisted snapshot. A missing
// snapshot leaves the store empty without error; any other failure also
// leaves it empty and is returned so the caller can report it.
func (s *Store) Restore(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}

	snap, err := s.repo.Load(ctx)
	if errors.Is(err, repository.ErrSnapshotNotFound) {
		s.logger.Info("No snapshot found, starting empty")
		return nil
	}
	if err != nil {
		observability.SnapshotFailures.WithLabelValues("load").Inc()
		s.logger.Warn("Failed to restore snapshot, starting empty", "error", err)
		s.mu.Lock()
		s.snap = dataset.EmptySnapshot()
		s.mu.Unlock()
		return fmt.Errorf("restore snapshot: %w", err)
	}

	s.mu.Lock()
	s.snap = snap.Normalize()
	s.updateGaugesLocked()
	s.mu.Unlock()

	s.logger.Info("Snapshot restored",
		"sales", len(snap.Sales),
		"suppliers", len(snap.Suppliers),
	)
	return nil
}

// Import appends every batch to its collection in order and records file
// names once per collection.
func (s *Store) Import(ctx context.Context, batches ...Batch) error {
	for _, b := range batches {
		if !b.Type.Valid() {
			return fmt.Errorf("%w: %q", dataset.ErrUnknownType, b.Type)
		}
	}
	if len(batches) == 0 {
		return nil
	}

	s.mu.Lock()
	for _, b := range batches {
		switch b.Type {
		case dataset.Sales:
			s.snap.Sales = append(s.snap.Sales, b.Records...)
			s.snap.SalesFileNames = appendUnique(s.snap.SalesFileNames, b.FileName)
		case dataset.Suppliers:
			s.snap.Suppliers = append(s.snap.Suppliers, b.Records...)
			s.snap.SuppliersFileNames = appendUnique(s.snap.SuppliersFileNames, b.FileName)
		}
	}
	s.persistLocked(ctx)
	return nil
}

// Clear empties the collections named by scope together with their file names.
// Clearing everything removes the persisted snapshot instead of saving an
// empty one.
func (s *Store) Clear(ctx context.Context, scope Scope) error {
	if _, err := ParseScope(string(scope)); err != nil {
		return err
	}

	s.mu.Lock()
	if scope == ScopeSales || scope == ScopeAll {
		s.snap.Sales = []dataset.Record{}
		s.snap.SalesFileNames = []string{}
	}
	if scope == ScopeSuppliers || scope == ScopeAll {
		s.snap.Suppliers = []dataset.Record{}
		s.snap.SuppliersFileNames = []string{}
	}
	if scope == ScopeAll {
		s.removeLocked(ctx)
		return nil
	}
	s.persistLocked(ctx)
	return nil
}

// Snapshot returns a copy of both collections.
func (s *Store) Snapshot() dataset.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.copyLocked()
}

// Records returns a copy of one collection.
func (s *Store) Records(t dataset.Type) []dataset.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.snap.Records(t))
}

func (s *Store) Status() Status {
	s.mu.RLock()
	st := Status{
		SalesRecords:       len(s.snap.Sales),
		SupplierRecords:    len(s.snap.Suppliers),
		SalesFileNames:     slices.Clone(s.snap.SalesFileNames),
		SuppliersFileNames: slices.Clone(s.snap.SuppliersFileNames),
	}
	s.mu.RUnlock()

	s.persistMu.Lock()
	st.PersistWarning = s.warning
	st.LastPersistedAt = s.lastPersisted
	s.persistMu.Unlock()

	return st
}

// persistLocked must be called with mu held for writing; it releases mu.
func (s *Store) persistLocked(ctx context.Context) {
	snap := s.copyLocked()
	s.writeLocked(ctx, "save", func(ctx context.Context) error {
		return s.repo.Save(ctx, snap)
	})
}

// removeLocked must be called with mu held for writing; it releases mu.
func (s *Store) removeLocked(ctx context.Context) {
	s.writeLocked(ctx, "delete", func(ctx context.Context) error {
		return s.repo.Delete(ctx)
	})
}

func (s *Store) writeLocked(ctx context.Context, op string, write func(context.Context) error) {
	s.updateGaugesLocked()
	if s.repo == nil {
		s.mu.Unlock()
		return
	}

	s.persistMu.Lock()
	s.mu.Unlock()
	defer s.persistMu.Unlock()

	if err := write(ctx); err != nil {
		observability.SnapshotFailures.WithLabelValues(op).Inc()
		s.warning = err.Error()
		s.logger.Warn("Failed to persist snapshot, data kept in memory only", "op", op, "error", err)
		return
	}
	s.warning = ""
	s.lastPersisted = time.Now()
}

func (s *Store) copyLocked() dataset.Snapshot {
	return dataset.Snapshot{
		Sales:              slices.Clone(s.snap.Sales),
		Suppliers:          slices.Clone(s.snap.Suppliers),
		SalesFileNames:     slices.Clone(s.snap.SalesFileNames),
		SuppliersFileNames: slices.Clone(s.snap.SuppliersFileNames),
	}.Normalize()
}

func (s *Store) updateGaugesLocked() {
	observability.StoredRecords.WithLabelValues(string(dataset.Sales)).Set(float64(len(s.snap.Sales)))
	observability.StoredRecords.WithLabelValues(string(dataset.Suppliers)).Set(float64(len(s.snap.Suppliers)))
}

func appendUnique(names []string, name string) []string {
	if name == "" || slices.Contains(names, name) {
		return names
	}
	return append(names, name)
}
