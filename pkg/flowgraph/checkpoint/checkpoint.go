package checkpoint

import (
	"encoding/json"
	"time"
)

// Version is the current checkpoint format version.
// Increment when making breaking changes to the envelope.
const Version = 1

// Checkpoint is the persisted snapshot of a run's final state.
type Checkpoint struct {
	Version   int       `json:"version"`
	RunID     string    `json:"run_id"`
	NodeID    string    `json:"node_id"`
	Sequence  int       `json:"sequence"`
	Timestamp time.Time `json:"timestamp"`

	State json.RawMessage `json:"state"`
}

// New creates a checkpoint for state, which must already be JSON-encoded.
// nodeID is the last node executed before END.
func New(runID, nodeID string, sequence int, state []byte) *Checkpoint {
	return &Checkpoint{
		Version:   Version,
		RunID:     runID,
		NodeID:    nodeID,
		Sequence:  sequence,
		Timestamp: time.Now().UTC(),
		State:     state,
	}
}

// WithTimestamp overrides the creation time.
func (c *Checkpoint) WithTimestamp(t time.Time) *Checkpoint {
	c.Timestamp = t.UTC()
	return c
}

// Marshal serializes a checkpoint to JSON.
func (c *Checkpoint) Marshal() ([]byte, error) {
	return json.Marshal(c)
}

// Unmarshal deserializes a checkpoint from JSON.
func Unmarshal(data []byte) (*Checkpoint, error) {
	var c Checkpoint
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	return &c, nil
}
