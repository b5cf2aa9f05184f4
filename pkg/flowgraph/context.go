package flowgraph

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Context provides execution context to nodes.
// It extends context.Context with a logger, a clock and run metadata.
//
// Context is immutable after creation. The executor derives a context per
// node with NodeID set and the logger enriched.
type Context interface {
	context.Context

	// Logger returns the configured logger, enriched with run and node context.
	// Never returns nil; defaults to slog.Default().
	Logger() *slog.Logger

	// Now returns the current time from the configured clock.
	Now() time.Time

	// RunID returns the identifier of this run. For checkpointed runs it is
	// the key the final state is stored under.
	RunID() string

	// NodeID returns the node currently executing, or "" outside a node.
	NodeID() string

	// Attempt returns the attempt number of the run (1 = first attempt).
	Attempt() int
}

type executionContext struct {
	context.Context

	logger  *slog.Logger
	clock   func() time.Time
	runID   string
	nodeID  string
	attempt int
}

func (c *executionContext) Logger() *slog.Logger { return c.logger }

func (c *executionContext) Now() time.Time { return c.clock() }

func (c *executionContext) RunID() string { return c.runID }

func (c *executionContext) NodeID() string { return c.nodeID }

func (c *executionContext) Attempt() int { return c.attempt }

// ContextOption configures a Context.
type ContextOption func(*executionContext)

// WithLogger sets the logger for the context.
// It is enriched with run_id, node_id and attempt during execution.
func WithLogger(logger *slog.Logger) ContextOption {
	return func(c *executionContext) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock overrides the clock nodes read through Now.
func WithClock(now func() time.Time) ContextOption {
	return func(c *executionContext) {
		if now != nil {
			c.clock = now
		}
	}
}

// WithContextRunID sets the run identifier. A UUID is generated otherwise.
func WithContextRunID(id string) ContextOption {
	return func(c *executionContext) {
		c.runID = id
	}
}

// WithAttempt records which attempt of a logical run this is.
func WithAttempt(n int) ContextOption {
	return func(c *executionContext) {
		if n > 0 {
			c.attempt = n
		}
	}
}

// NewContext creates an execution context from a standard context.
//
//	ctx := flowgraph.NewContext(context.Background(),
//	    flowgraph.WithLogger(logger),
//	    flowgraph.WithContextRunID(threadID))
func NewContext(ctx context.Context, opts ...ContextOption) Context {
	ec := &executionContext{
		Context: ctx,
		logger:  slog.Default(),
		clock:   time.Now,
		runID:   uuid.NewString(),
		attempt: 1,
	}

	for _, opt := range opts {
		opt(ec)
	}

	return ec
}

// withNodeID returns a derived context for one node execution.
func (c *executionContext) withNodeID(nodeID string) *executionContext {
	return &executionContext{
		Context: c.Context,
		logger:  c.logger.With("run_id", c.runID, "node_id", nodeID, "attempt", c.attempt),
		clock:   c.clock,
		runID:   c.runID,
		nodeID:  nodeID,
		attempt: c.attempt,
	}
}

// withContext swaps the underlying context.Context, keeping metadata.
// Used to carry tracing spans into nodes.
func (c *executionContext) withContext(ctx context.Context) *executionContext {
	cp := *c
	cp.Context = ctx
	return &cp
}
