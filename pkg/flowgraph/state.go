package flowgraph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/randalmurphal/interviewflow/pkg/flowgraph/checkpoint"
)

// LoadState restores the state last persisted under runID by a run with
// WithCheckpointing. The returned checkpoint carries the sequence to pass
// to the next run.
//
// A missing run yields an error matching checkpoint.ErrNotFound.
//
//	state, cp, err := flowgraph.LoadState[Thread](ctx, store, threadID)
//	if errors.Is(err, checkpoint.ErrNotFound) {
//	    state, cp = newThread(), nil
//	}
func LoadState[S any](ctx context.Context, store checkpoint.Store, runID string) (S, *checkpoint.Checkpoint, error) {
	var zero S

	data, err := store.Load(ctx, runID)
	if err != nil {
		return zero, nil, &CheckpointError{RunID: runID, Op: "load", Err: err}
	}

	cp, err := checkpoint.Unmarshal(data)
	if err != nil {
		return zero, nil, &CheckpointError{RunID: runID, Op: "load", Err: fmt.Errorf("%w: %v", ErrDeserializeState, err)}
	}

	if cp.Version != checkpoint.Version {
		return zero, nil, &CheckpointError{
			RunID: runID,
			Op:    "load",
			Err:   fmt.Errorf("%w: got %d, expected %d", ErrCheckpointVersionMismatch, cp.Version, checkpoint.Version),
		}
	}

	var state S
	if err := json.Unmarshal(cp.State, &state); err != nil {
		return zero, nil, &CheckpointError{RunID: runID, Op: "load", Err: fmt.Errorf("%w: %v", ErrDeserializeState, err)}
	}

	return state, cp, nil
}

// Sequence returns the sequence to continue from for a loaded checkpoint,
// or 0 when cp is nil.
func Sequence(cp *checkpoint.Checkpoint) int {
	if cp == nil {
		return 0
	}
	return cp.Sequence
}

// IsNotFound reports whether err means no state has been persisted yet.
func IsNotFound(err error) bool {
	return errors.Is(err, checkpoint.ErrNotFound)
}
