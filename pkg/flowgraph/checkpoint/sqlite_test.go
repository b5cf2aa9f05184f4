package checkpoint_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/randalmurphal/interviewflow/pkg/flowgraph/checkpoint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStore_Persistence(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "interviews.db")

	store1, err := checkpoint.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, store1.Save(ctx, "thread-1", []byte("persistent")))
	require.NoError(t, store1.Close())

	// Reopen: state must survive a process restart.
	store2, err := checkpoint.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer store2.Close()

	data, err := store2.Load(ctx, "thread-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("persistent"), data)
}

func TestSQLiteStore_InvalidPath(t *testing.T) {
	_, err := checkpoint.NewSQLiteStore("/nonexistent/path/db.sqlite")
	assert.Error(t, err)
}

func TestSQLiteStore_CloseIdempotent(t *testing.T) {
	store, err := checkpoint.NewSQLiteStore(":memory:")
	require.NoError(t, err)

	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}

func TestSQLiteStore_SavesCounter(t *testing.T) {
	ctx := context.Background()
	store, err := checkpoint.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Save(ctx, "thread-1", []byte("first")))
	require.NoError(t, store.Save(ctx, "thread-1", []byte("second")))
	require.NoError(t, store.Save(ctx, "thread-1", []byte("third")))
	require.NoError(t, store.Save(ctx, "thread-2", []byte("x")))

	infos, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 2)

	byID := map[string]checkpoint.Info{}
	for _, info := range infos {
		byID[info.RunID] = info
	}
	assert.Equal(t, 3, byID["thread-1"].Saves)
	assert.Equal(t, int64(5), byID["thread-1"].Size)
	assert.Equal(t, 1, byID["thread-2"].Saves)
}

func TestSQLiteStore_LargeData(t *testing.T) {
	ctx := context.Background()
	store, err := checkpoint.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer store.Close()

	large := make([]byte, 1024*1024)
	for i := range large {
		large[i] = byte(i % 256)
	}

	require.NoError(t, store.Save(ctx, "thread-1", large))

	loaded, err := store.Load(ctx, "thread-1")
	require.NoError(t, err)
	assert.Equal(t, large, loaded)
}
