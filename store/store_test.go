package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/msmcount/counter"
	"github.com/katalvlaran/msmcount/sparse"
	"github.com/katalvlaran/msmcount/store"
)

func openMem(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.Open(store.InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func sampleMatrix(t *testing.T) *sparse.CSC {
	t.Helper()
	m, err := counter.Count([]int{0, 1, 1, 2, 0}, 3)
	require.NoError(t, err)

	return m
}

func TestSaveLoadRoundTrip(t *testing.T) {
	s := openMem(t)
	ctx := context.Background()
	m := sampleMatrix(t)

	rec, err := store.NewRecord(m, 4, 1)
	require.NoError(t, err)
	id, err := s.Save(ctx, rec)
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	require.NoError(t, err, "generated run ids are UUIDs")

	got, err := s.Load(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.RunID)
	assert.Equal(t, 4, got.Ranks)
	assert.Equal(t, 1, got.Lag)
	assert.False(t, got.CreatedAt.IsZero())

	back, err := got.Matrix()
	require.NoError(t, err)
	assert.True(t, back.Equal(m))
}

func TestLoadMissing(t *testing.T) {
	s := openMem(t)
	_, err := s.Load(context.Background(), "nope")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestSaveRejectsMalformedRecord(t *testing.T) {
	s := openMem(t)
	_, err := s.Save(context.Background(), store.Record{
		NumStates: 2,
		ColPtr:    []int{0, 2, 1},
		RowIdx:    []int{0},
		Values:    []float64{1},
	})
	require.ErrorIs(t, err, sparse.ErrMalformed)

	_, err = store.NewRecord(nil, 1, 1)
	require.ErrorIs(t, err, sparse.ErrNilMatrix)
}

func TestListNewestFirstAndDelete(t *testing.T) {
	s := openMem(t)
	ctx := context.Background()
	m := sampleMatrix(t)
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		rec, err := store.NewRecord(m, 2, 1)
		require.NoError(t, err)
		rec.RunID = id
		rec.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		_, err = s.Save(ctx, rec)
		require.NoError(t, err)
	}

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "c", list[0].RunID)
	assert.Equal(t, "a", list[2].RunID)
	assert.Equal(t, m.NNZ(), list[0].NNZ)
	assert.Equal(t, 3, list[0].NumStates)

	require.NoError(t, s.Delete(ctx, "b"))
	require.NoError(t, s.Delete(ctx, "b"))
	list, err = s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestPersistentReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	m := sampleMatrix(t)

	s, err := store.Open(store.DefaultConfig(dir))
	require.NoError(t, err)
	rec, err := store.NewRecord(m, 1, 1)
	require.NoError(t, err)
	rec.RunID = "persisted"
	_, err = s.Save(ctx, rec)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = store.Open(store.DefaultConfig(dir))
	require.NoError(t, err)
	defer s.Close()
	got, err := s.Load(ctx, "persisted")
	require.NoError(t, err)
	assert.Equal(t, m.NNZ(), got.ColPtr[len(got.ColPtr)-1])
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := store.Open(store.Config{})
	require.ErrorIs(t, err, store.ErrInvalidConfig)
}

func TestCanceledContext(t *testing.T) {
	s := openMem(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Load(ctx, "x")
	require.ErrorIs(t, err, context.Canceled)
}
