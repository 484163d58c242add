package trace

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStoreTraceRoundTrip(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "traces.db")

	store := NewSQLiteStore(dbPath)
	require.NoError(t, store.Init(ctx))
	t.Cleanup(func() {
		_ = store.Close()
	})

	tr := New(testVars())
	for id := 0; id < 2; id++ {
		require.NoError(t, tr.AddChain(sampleChain(id)))
	}

	id, err := store.SaveTrace(ctx, "model-a", tr)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	loaded, ok, err := store.LoadTrace(ctx, id)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, tr.Varnames(), loaded.Varnames())
	assert.Equal(t, []int{2, 3}, loaded.Vars[1].Shape)
	assert.Equal(t, 2, loaded.NChains())
	assert.Equal(t, 3, loaded.Len())

	want, err := tr.Values("theta")
	require.NoError(t, err)
	got, err := loaded.Values("theta")
	require.NoError(t, err)
	assert.Equal(t, want.RawMatrix().Data, got.RawMatrix().Data)

	energy, err := loaded.Stat("energy")
	require.NoError(t, err)
	assert.Equal(t, []float64{3, 2, 1, 3, 2, 1}, energy)

	infos, err := store.ListTraces(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "model-a", infos[0].Name)
	assert.Equal(t, 2, infos[0].Chains)
	assert.Equal(t, 3, infos[0].Draws)
}

func TestSQLiteStoreUnknownTrace(t *testing.T) {
	ctx := context.Background()
	store := NewSQLiteStore(filepath.Join(t.TempDir(), "traces.db"))
	require.NoError(t, store.Init(ctx))
	t.Cleanup(func() {
		_ = store.Close()
	})

	_, ok, err := store.LoadTrace(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSQLiteStoreNotInitialized(t *testing.T) {
	store := NewSQLiteStore(filepath.Join(t.TempDir(), "traces.db"))
	_, err := store.SaveTrace(context.Background(), "x", New(testVars()))
	assert.Error(t, err)

	assert.Error(t, NewSQLiteStore("").Init(context.Background()))
}
