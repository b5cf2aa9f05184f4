package interview

import (
	"errors"
	"fmt"
)

var (
	// ErrThreadIDRequired is returned when an operation is called without a
	// thread ID.
	ErrThreadIDRequired = errors.New("thread ID required")

	// ErrThreadNotFound is returned by operations that need an existing
	// thread.
	ErrThreadNotFound = errors.New("thread not found")

	// ErrStoreRequired is returned by New without a session store.
	ErrStoreRequired = errors.New("session store required")

	// ErrInputRequired is returned by SendMessage when a thread with no
	// candidate message is given empty input.
	ErrInputRequired = errors.New("candidate input required to start a thread")

	// ErrToolNotFound matches a call to a tool missing from the table.
	ErrToolNotFound = errors.New("tool not found")
)

// ToolError reports a failed tool call. It is recorded as the tool's result
// message and never aborts the turn.
type ToolError struct {
	Tool   string
	CallID string
	Err    error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool %s (call %s): %v", e.Tool, e.CallID, e.Err)
}

func (e *ToolError) Unwrap() error {
	return e.Err
}
