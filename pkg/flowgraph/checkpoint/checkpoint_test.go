package checkpoint_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/randalmurphal/interviewflow/pkg/flowgraph/checkpoint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckpoint_New(t *testing.T) {
	state := []byte(`{"interview_active":true}`)
	cp := checkpoint.New("thread-1", "convert", 4, state)

	assert.Equal(t, checkpoint.Version, cp.Version)
	assert.Equal(t, "thread-1", cp.RunID)
	assert.Equal(t, "convert", cp.NodeID)
	assert.Equal(t, 4, cp.Sequence)
	assert.Equal(t, json.RawMessage(state), cp.State)
	assert.False(t, cp.Timestamp.IsZero())
}

func TestCheckpoint_MarshalUnmarshal(t *testing.T) {
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	original := checkpoint.New("thread-1", "analyze", 2, []byte(`{"messages":[]}`)).
		WithTimestamp(at)

	data, err := original.Marshal()
	require.NoError(t, err)

	loaded, err := checkpoint.Unmarshal(data)
	require.NoError(t, err)

	assert.Equal(t, original.Version, loaded.Version)
	assert.Equal(t, original.RunID, loaded.RunID)
	assert.Equal(t, original.NodeID, loaded.NodeID)
	assert.Equal(t, original.Sequence, loaded.Sequence)
	assert.True(t, at.Equal(loaded.Timestamp))
	assert.JSONEq(t, string(original.State), string(loaded.State))
}

func TestCheckpoint_UnmarshalInvalidJSON(t *testing.T) {
	_, err := checkpoint.Unmarshal([]byte("not json"))
	assert.Error(t, err)
}

func TestCheckpoint_StateNested(t *testing.T) {
	cp := checkpoint.New("thread-1", "generate", 1, []byte(`{"conversion_attempts":3}`))
	data, err := cp.Marshal()
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))

	state, ok := raw["state"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(3), state["conversion_attempts"])
}
