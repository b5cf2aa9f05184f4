package flowgraph

import (
	"context"
	"errors"
	"testing"

	"github.com/randalmurphal/interviewflow/pkg/flowgraph/checkpoint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingStore rejects every save.
type failingStore struct {
	*checkpoint.MemoryStore
}

func (failingStore) Save(context.Context, string, []byte) error {
	return errors.New("disk full")
}

func linearGraph(t *testing.T) *CompiledGraph[State] {
	t.Helper()
	compiled, err := NewGraph[State]().
		AddNode("a", makeTrackingNode("a")).
		AddNode("b", makeTrackingNode("b")).
		AddEdge("a", "b").
		AddEdge("b", END).
		SetEntry("a").
		Compile()
	require.NoError(t, err)
	return compiled
}

func TestCheckpoint_RunIDRequired(t *testing.T) {
	store := checkpoint.NewMemoryStore()
	_, err := linearGraph(t).Run(testCtx(), State{}, WithCheckpointing(store, 0))
	assert.ErrorIs(t, err, ErrRunIDRequired)
}

func TestCheckpoint_SavedAtEnd(t *testing.T) {
	ctx := context.Background()
	store := checkpoint.NewMemoryStore()

	_, err := linearGraph(t).Run(testCtx(), State{},
		WithRunID("thread-1"),
		WithCheckpointing(store, 0))
	require.NoError(t, err)

	state, cp, err := LoadState[State](ctx, store, "thread-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, state.Progress)
	assert.Equal(t, "b", cp.NodeID)
	assert.Equal(t, 1, cp.Sequence)

	infos, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, 1, infos[0].Saves, "only the final state is written")
}

func TestCheckpoint_SequenceContinues(t *testing.T) {
	ctx := context.Background()
	store := checkpoint.NewMemoryStore()
	compiled := linearGraph(t)

	_, err := compiled.Run(testCtx(), State{}, WithRunID("thread-1"), WithCheckpointing(store, 0))
	require.NoError(t, err)

	state, cp, err := LoadState[State](ctx, store, "thread-1")
	require.NoError(t, err)

	_, err = compiled.Run(testCtx(), state, WithRunID("thread-1"), WithCheckpointing(store, Sequence(cp)))
	require.NoError(t, err)

	state, cp, err = LoadState[State](ctx, store, "thread-1")
	require.NoError(t, err)
	assert.Equal(t, 2, cp.Sequence)
	assert.Equal(t, []string{"a", "b", "a", "b"}, state.Progress)
}

func TestCheckpoint_FailedRunPersistsNothing(t *testing.T) {
	ctx := context.Background()
	store := checkpoint.NewMemoryStore()

	// Seed a prior state.
	_, err := linearGraph(t).Run(testCtx(), State{Output: "before"},
		WithRunID("thread-1"), WithCheckpointing(store, 0))
	require.NoError(t, err)

	failing, err := NewGraph[State]().
		AddNode("mutate", func(_ Context, s State) (State, error) {
			s.Output = "after"
			return s, nil
		}).
		AddNode("fail", makeFailingNode(errors.New("model unavailable"))).
		AddEdge("mutate", "fail").
		AddEdge("fail", END).
		SetEntry("mutate").
		Compile()
	require.NoError(t, err)

	_, err = failing.Run(testCtx(), State{}, WithRunID("thread-1"), WithCheckpointing(store, 1))
	require.Error(t, err)

	state, cp, err := LoadState[State](ctx, store, "thread-1")
	require.NoError(t, err)
	assert.Equal(t, "before", state.Output)
	assert.Equal(t, 1, cp.Sequence)
}

func TestCheckpoint_SaveFailure(t *testing.T) {
	store := failingStore{checkpoint.NewMemoryStore()}

	t.Run("fatal by default", func(t *testing.T) {
		_, err := linearGraph(t).Run(testCtx(), State{}, WithRunID("thread-1"), WithCheckpointing(store, 0))
		var cpErr *CheckpointError
		require.ErrorAs(t, err, &cpErr)
		assert.Equal(t, "save", cpErr.Op)
		assert.Equal(t, "thread-1", cpErr.RunID)
	})

	t.Run("non-fatal when configured", func(t *testing.T) {
		result, err := linearGraph(t).Run(testCtx(), State{},
			WithRunID("thread-1"),
			WithCheckpointing(store, 0),
			WithCheckpointFailureFatal(false))
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, result.Progress)
	})
}

func TestLoadState_NotFound(t *testing.T) {
	_, cp, err := LoadState[State](context.Background(), checkpoint.NewMemoryStore(), "missing")
	assert.Nil(t, cp)
	assert.True(t, IsNotFound(err))
	assert.Equal(t, 0, Sequence(cp))
}

func TestLoadState_VersionMismatch(t *testing.T) {
	ctx := context.Background()
	store := checkpoint.NewMemoryStore()

	cp := checkpoint.New("thread-1", "b", 1, []byte(`{}`))
	cp.Version = checkpoint.Version + 1
	data, err := cp.Marshal()
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, "thread-1", data))

	_, _, err = LoadState[State](ctx, store, "thread-1")
	assert.ErrorIs(t, err, ErrCheckpointVersionMismatch)
}

func TestLoadState_CorruptState(t *testing.T) {
	ctx := context.Background()
	store := checkpoint.NewMemoryStore()
	require.NoError(t, store.Save(ctx, "thread-1", []byte("not json")))

	_, _, err := LoadState[State](ctx, store, "thread-1")
	assert.ErrorIs(t, err, ErrDeserializeState)
}
