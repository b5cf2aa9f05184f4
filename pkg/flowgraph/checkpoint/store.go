// Package checkpoint provides durable storage for the latest state of a run.
//
// A run is keyed by its run ID (for interviews, the thread ID). Every
// successful run overwrites the previous checkpoint, so a store always holds
// the most recent snapshot per run.
package checkpoint

import (
	"context"
	"errors"
	"time"
)

// Store persists checkpoints keyed by run ID.
// Implementations must be safe for concurrent use across distinct keys.
type Store interface {
	// Save stores data as the latest checkpoint for runID, replacing any
	// previous one.
	Save(ctx context.Context, runID string, data []byte) error

	// Load returns the latest checkpoint for runID.
	// Returns ErrNotFound if the run has never been saved.
	Load(ctx context.Context, runID string) ([]byte, error)

	// Delete removes the checkpoint for runID. Deleting a missing run is not an error.
	Delete(ctx context.Context, runID string) error

	// Close releases any resources (connections, files).
	Close() error
}

// Lister is implemented by stores that can enumerate their runs.
type Lister interface {
	// List returns metadata for every stored run, most recently saved first.
	List(ctx context.Context) ([]Info, error)
}

// Info describes a stored checkpoint without loading it.
type Info struct {
	RunID     string
	Saves     int
	UpdatedAt time.Time
	Size      int64
}

// Sentinel errors for checkpoint operations.
var (
	ErrNotFound    = errors.New("checkpoint not found")
	ErrStoreClosed = errors.New("checkpoint store closed")
)
