package checkpoint_test

import (
	"context"
	"testing"
	"time"

	"github.com/randalmurphal/interviewflow/pkg/flowgraph/checkpoint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Len(t *testing.T) {
	ctx := context.Background()
	store := checkpoint.NewMemoryStore()
	defer store.Close()

	assert.Equal(t, 0, store.Len())

	require.NoError(t, store.Save(ctx, "thread-1", []byte("a")))
	require.NoError(t, store.Save(ctx, "thread-1", []byte("b")))
	require.NoError(t, store.Save(ctx, "thread-2", []byte("c")))
	assert.Equal(t, 2, store.Len())

	require.NoError(t, store.Delete(ctx, "thread-1"))
	assert.Equal(t, 1, store.Len())
}

func TestMemoryStore_CopiesInput(t *testing.T) {
	ctx := context.Background()
	store := checkpoint.NewMemoryStore()
	defer store.Close()

	buf := []byte("original")
	require.NoError(t, store.Save(ctx, "thread-1", buf))
	buf[0] = 'X'

	loaded, err := store.Load(ctx, "thread-1")
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), loaded)
}

func TestMemoryStore_List(t *testing.T) {
	ctx := context.Background()
	store := checkpoint.NewMemoryStore()
	defer store.Close()

	require.NoError(t, store.Save(ctx, "thread-old", []byte("short")))
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, store.Save(ctx, "thread-new", []byte("longer data")))
	require.NoError(t, store.Save(ctx, "thread-new", []byte("longer data!")))

	infos, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 2)

	assert.Equal(t, "thread-new", infos[0].RunID)
	assert.Equal(t, 2, infos[0].Saves)
	assert.Equal(t, int64(12), infos[0].Size)
	assert.Equal(t, "thread-old", infos[1].RunID)
	assert.Equal(t, 1, infos[1].Saves)
	assert.False(t, infos[1].UpdatedAt.IsZero())
}
