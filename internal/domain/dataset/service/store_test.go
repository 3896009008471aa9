package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/smart-sales-tracker/internal/domain/dataset"
	"github.com/FACorreiaa/smart-sales-tracker/internal/domain/dataset/repository"
)

// MockSnapshotRepo is a mock implementation of repository.SnapshotRepository
type MockSnapshotRepo struct {
	mock.Mock
}

func (m *MockSnapshotRepo) Load(ctx context.Context) (dataset.Snapshot, error) {
	args := m.Called(ctx)
	return args.Get(0).(dataset.Snapshot), args.Error(1)
}

func (m *MockSnapshotRepo) Save(ctx context.Context, snap dataset.Snapshot) error {
	args := m.Called(ctx, snap)
	return args.Error(0)
}

func (m *MockSnapshotRepo) Delete(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func salesBatch(file string, descriptions ...string) Batch {
	b := Batch{Type: dataset.Sales, FileName: file}
	for _, d := range descriptions {
		b.Records = append(b.Records, dataset.Record{ID: d, Date: "Jul-25", Description: d, Total: 10})
	}
	return b
}

func TestStore_ImportAppendsAndDedupsFileNames(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil, testLogger())

	require.NoError(t, store.Import(ctx, salesBatch("a.csv", "x", "y")))
	require.NoError(t, store.Import(ctx,
		salesBatch("a.csv", "z"),
		Batch{Type: dataset.Suppliers, FileName: "s.csv", Records: []dataset.Record{{ID: "s", Supplier: "General", Total: 5}}},
	))

	snap := store.Snapshot()
	require.Len(t, snap.Sales, 3)
	assert.Equal(t, "z", snap.Sales[2].Description)
	assert.Equal(t, []string{"a.csv"}, snap.SalesFileNames)
	assert.Equal(t, []string{"s.csv"}, snap.SuppliersFileNames)
	assert.Len(t, snap.Suppliers, 1)
}

func TestStore_ImportRejectsUnknownType(t *testing.T) {
	store := NewStore(nil, testLogger())

	err := store.Import(context.Background(), Batch{Type: "refunds"})
	assert.ErrorIs(t, err, dataset.ErrUnknownType)
	assert.Empty(t, store.Snapshot().Sales)
}

func TestStore_Clear(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil, testLogger())
	require.NoError(t, store.Import(ctx,
		salesBatch("a.csv", "x"),
		Batch{Type: dataset.Suppliers, FileName: "s.csv", Records: []dataset.Record{{ID: "s", Total: 5}}},
	))

	require.NoError(t, store.Clear(ctx, ScopeSales))
	snap := store.Snapshot()
	assert.Empty(t, snap.Sales)
	assert.Empty(t, snap.SalesFileNames)
	assert.Len(t, snap.Suppliers, 1)

	require.NoError(t, store.Clear(ctx, ScopeAll))
	assert.Equal(t, dataset.EmptySnapshot(), store.Snapshot())

	assert.ErrorIs(t, store.Clear(ctx, Scope("everything")), ErrUnknownScope)
}

func TestStore_SnapshotIsACopy(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil, testLogger())
	require.NoError(t, store.Import(ctx, salesBatch("a.csv", "x")))

	snap := store.Snapshot()
	snap.Sales[0].Description = "mutated"

	assert.Equal(t, "x", store.Records(dataset.Sales)[0].Description)
}

func TestStore_PersistsAfterEveryMutation(t *testing.T) {
	ctx := context.Background()
	repo := new(MockSnapshotRepo)
	repo.On("Save", ctx, mock.MatchedBy(func(s dataset.Snapshot) bool { return len(s.Sales) == 1 })).Return(nil).Once()
	repo.On("Save", ctx, mock.MatchedBy(func(s dataset.Snapshot) bool { return len(s.Sales) == 0 })).Return(nil).Once()

	store := NewStore(repo, testLogger())
	require.NoError(t, store.Import(ctx, salesBatch("a.csv", "x")))
	require.NoError(t, store.Clear(ctx, ScopeSales))

	repo.AssertExpectations(t)
	st := store.Status()
	assert.Empty(t, st.PersistWarning)
	assert.False(t, st.LastPersistedAt.IsZero())
}

func TestStore_ClearAllDeletesSnapshot(t *testing.T) {
	ctx := context.Background()
	repo := new(MockSnapshotRepo)
	repo.On("Save", ctx, mock.Anything).Return(nil).Once()
	repo.On("Delete", ctx).Return(nil).Once()

	store := NewStore(repo, testLogger())
	require.NoError(t, store.Import(ctx, salesBatch("a.csv", "x")))
	require.NoError(t, store.Clear(ctx, ScopeAll))

	repo.AssertExpectations(t)
	repo.AssertNumberOfCalls(t, "Save", 1)
	assert.Empty(t, store.Records(dataset.Sales))
	assert.Empty(t, store.Status().PersistWarning)
}

func TestStore_ClearAllDeleteFailureIsNonFatal(t *testing.T) {
	ctx := context.Background()
	repo := new(MockSnapshotRepo)
	repo.On("Save", ctx, mock.Anything).Return(nil).Once()
	repo.On("Delete", ctx).Return(errors.New("permission denied")).Once()

	store := NewStore(repo, testLogger())
	require.NoError(t, store.Import(ctx, salesBatch("a.csv", "x")))
	require.NoError(t, store.Clear(ctx, ScopeAll))

	assert.Empty(t, store.Records(dataset.Sales))
	assert.Contains(t, store.Status().PersistWarning, "permission denied")
}

func TestStore_ClearAllRemovesSnapshotFile(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "snap.json")
	repo := repository.NewFileRepository(path, 0)

	store := NewStore(repo, testLogger())
	require.NoError(t, store.Import(ctx, salesBatch("a.csv", "x")))
	require.FileExists(t, path)

	require.NoError(t, store.Clear(ctx, ScopeAll))
	assert.NoFileExists(t, path)

	restored := NewStore(repo, testLogger())
	require.NoError(t, restored.Restore(ctx))
	assert.Equal(t, dataset.EmptySnapshot(), restored.Snapshot())
}

func TestStore_PersistFailureIsNonFatal(t *testing.T) {
	ctx := context.Background()
	repo := new(MockSnapshotRepo)
	repo.On("Save", ctx, mock.Anything).Return(repository.ErrQuotaExceeded).Once()
	repo.On("Save", ctx, mock.Anything).Return(nil).Once()

	store := NewStore(repo, testLogger())

	require.NoError(t, store.Import(ctx, salesBatch("a.csv", "x")))
	assert.Len(t, store.Records(dataset.Sales), 1, "mutation survives a failed save")
	assert.Contains(t, store.Status().PersistWarning, "quota")

	require.NoError(t, store.Import(ctx, salesBatch("b.csv", "y")))
	assert.Empty(t, store.Status().PersistWarning, "warning clears after a successful save")

	repo.AssertExpectations(t)
}

func TestStore_Restore(t *testing.T) {
	ctx := context.Background()
	saved := dataset.Snapshot{
		Sales:          []dataset.Record{{ID: "1", Date: "Jul-25", Description: "x", Total: 1}},
		SalesFileNames: []string{"a.csv"},
	}

	repo := new(MockSnapshotRepo)
	repo.On("Load", ctx).Return(saved, nil).Once()

	store := NewStore(repo, testLogger())
	require.NoError(t, store.Restore(ctx))

	assert.Equal(t, saved.Normalize(), store.Snapshot())
	repo.AssertExpectations(t)
}

func TestStore_RestoreFailuresStartEmpty(t *testing.T) {
	ctx := context.Background()

	missing := new(MockSnapshotRepo)
	missing.On("Load", ctx).Return(dataset.Snapshot{}, repository.ErrSnapshotNotFound)
	store := NewStore(missing, testLogger())
	assert.NoError(t, store.Restore(ctx))
	assert.Equal(t, dataset.EmptySnapshot(), store.Snapshot())

	corrupt := new(MockSnapshotRepo)
	corrupt.On("Load", ctx).Return(dataset.Snapshot{}, errors.New("failed to decode snapshot"))
	store = NewStore(corrupt, testLogger())
	assert.Error(t, store.Restore(ctx))
	assert.Equal(t, dataset.EmptySnapshot(), store.Snapshot())
}

func TestStore_RoundTripThroughFileRepository(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewFileRepository(filepath.Join(t.TempDir(), "snap.json"), 0)

	first := NewStore(repo, testLogger())
	require.NoError(t, first.Import(ctx, salesBatch("a.csv", "x", "y")))

	second := NewStore(repo, testLogger())
	require.NoError(t, second.Restore(ctx))

	assert.Equal(t, first.Snapshot(), second.Snapshot())
}
