package flowgraph

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/randalmurphal/interviewflow/pkg/flowgraph/checkpoint"
	"github.com/randalmurphal/interviewflow/pkg/flowgraph/observability"
	"go.opentelemetry.io/otel/trace"
)

// Run executes the graph with the given initial state.
// Returns the final state and any error encountered.
//
// On success, returns the state after the last node executed before END.
// On error, returns the state at the point of failure (useful for debugging).
//
// With WithCheckpointing the final state is persisted once END is reached.
// Intermediate states are never written, so a failed run leaves the stored
// state exactly as it was before the run started.
//
//	ctx := flowgraph.NewContext(context.Background())
//	result, err := compiled.Run(ctx, initialState)
func (cg *CompiledGraph[S]) Run(ctx Context, state S, opts ...RunOption) (result S, runErr error) {
	if ctx == nil {
		return state, ErrNilContext
	}

	cfg := defaultRunConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	if cfg.checkpointStore != nil && cfg.runID == "" {
		return state, ErrRunIDRequired
	}

	runID := cfg.runID
	if runID == "" {
		runID = ctx.RunID()
	}

	startTime := time.Now()
	observability.LogRunStart(cfg.logger, runID)

	var tracingCtx context.Context = ctx
	if cfg.tracingEnabled {
		var runSpan trace.Span
		tracingCtx, runSpan = cfg.spans.StartRunSpan(ctx, "interviewflow", runID)
		defer func() {
			cfg.spans.EndSpanWithError(runSpan, runErr)
		}()
	}

	var (
		nodeCount int
		lastNode  string
	)
	result, nodeCount, lastNode, runErr = cg.runLoop(tracingCtx, ctx, state, &cfg)
	if runErr == nil && cfg.checkpointStore != nil {
		runErr = cg.saveCheckpoint(ctx, &cfg, lastNode, result)
	}

	duration := time.Since(startTime)
	cfg.metrics.RecordGraphRun(tracingCtx, runErr == nil, duration)

	durationMs := float64(duration.Milliseconds())
	if runErr != nil {
		observability.LogRunError(cfg.logger, runID, runErr, durationMs, failedNode(runErr, lastNode))
	} else {
		observability.LogRunComplete(cfg.logger, runID, durationMs, nodeCount)
	}

	return result, runErr
}

// failedNode extracts the node a run stopped at, falling back to the last
// node that completed.
func failedNode(err error, lastNode string) string {
	var (
		nodeErr   *NodeError
		panicErr  *PanicError
		maxErr    *MaxIterationsError
		cancelErr *CancellationError
		routerErr *RouterError
	)
	switch {
	case errors.As(err, &panicErr):
		return panicErr.NodeID
	case errors.As(err, &nodeErr):
		return nodeErr.NodeID
	case errors.As(err, &maxErr):
		return maxErr.LastNodeID
	case errors.As(err, &cancelErr):
		return cancelErr.NodeID
	case errors.As(err, &routerErr):
		return routerErr.FromNode
	}
	return lastNode
}

// runLoop executes nodes from the entry point until END.
// tracingCtx carries span context; fgCtx is the flowgraph Context.
// Returns the final state, node count and the last node executed.
func (cg *CompiledGraph[S]) runLoop(tracingCtx context.Context, fgCtx Context, state S, cfg *runConfig) (S, int, string, error) {
	current := cg.entryPoint
	iterations := 0
	nodeCount := 0
	lastNode := ""

	for current != END {
		iterations++
		if iterations > cfg.maxIterations {
			return state, nodeCount, lastNode, &MaxIterationsError{
				Max:        cfg.maxIterations,
				LastNodeID: current,
				State:      state,
			}
		}

		select {
		case <-fgCtx.Done():
			return state, nodeCount, lastNode, &CancellationError{
				NodeID: current,
				State:  state,
				Cause:  fgCtx.Err(),
			}
		default:
		}

		observability.LogNodeStart(cfg.logger, current)

		nodeTracingCtx := tracingCtx
		var nodeSpan trace.Span
		if cfg.tracingEnabled {
			nodeTracingCtx, nodeSpan = cfg.spans.StartNodeSpan(tracingCtx, current)
		}

		nodeStart := time.Now()
		var nodeErr error
		state, nodeErr = cg.executeNode(cg.nodeContext(fgCtx, nodeTracingCtx, current, cfg.tracingEnabled), current, state)
		nodeDuration := time.Since(nodeStart)

		cfg.metrics.RecordNodeExecution(nodeTracingCtx, current, nodeDuration, nodeErr)
		if cfg.tracingEnabled {
			cfg.spans.EndSpanWithError(nodeSpan, nodeErr)
		}

		if nodeErr != nil {
			observability.LogNodeError(cfg.logger, current, nodeErr)
			return state, nodeCount, lastNode, nodeErr
		}
		observability.LogNodeComplete(cfg.logger, current, float64(nodeDuration.Milliseconds()))
		nodeCount++
		lastNode = current

		next, err := cg.nextNode(fgCtx, state, current)
		if err != nil {
			return state, nodeCount, lastNode, err
		}
		current = next
	}

	return state, nodeCount, lastNode, nil
}

// nodeContext derives the Context handed to a node: node-scoped logger and,
// when tracing, the node span as parent for spans the node starts.
func (cg *CompiledGraph[S]) nodeContext(ctx Context, tracingCtx context.Context, nodeID string, tracing bool) Context {
	ec, ok := ctx.(*executionContext)
	if !ok {
		return ctx
	}
	nodeCtx := ec.withNodeID(nodeID)
	if tracing {
		nodeCtx = nodeCtx.withContext(tracingCtx)
	}
	return nodeCtx
}

// saveCheckpoint persists the final state of a run.
func (cg *CompiledGraph[S]) saveCheckpoint(ctx Context, cfg *runConfig, lastNode string, state S) error {
	fail := func(op string, err error) error {
		if cfg.checkpointFailureFatal {
			return &CheckpointError{RunID: cfg.runID, Op: op, Err: err}
		}
		observability.LogCheckpointError(cfg.logger, cfg.runID, op, err)
		return nil
	}

	stateBytes, err := json.Marshal(state)
	if err != nil {
		return fail("serialize", fmt.Errorf("%w: %v", ErrSerializeState, err))
	}

	cp := checkpoint.New(cfg.runID, lastNode, cfg.sequence+1, stateBytes)
	data, err := cp.Marshal()
	if err != nil {
		return fail("marshal", err)
	}

	if err := cfg.checkpointStore.Save(ctx, cfg.runID, data); err != nil {
		return fail("save", err)
	}

	observability.LogCheckpoint(cfg.logger, cfg.runID, cp.Sequence, len(data))
	cfg.metrics.RecordCheckpoint(ctx, cfg.runID, int64(len(data)))
	return nil
}

// executeNode executes a single node with panic recovery.
// Returns the new state and any error (including wrapped panics).
func (cg *CompiledGraph[S]) executeNode(ctx Context, nodeID string, state S) (result S, err error) {
	fn, exists := cg.getNode(nodeID)
	if !exists {
		return state, &NodeError{
			NodeID: nodeID,
			Op:     "lookup",
			Err:    fmt.Errorf("%w: %s", ErrNodeNotFound, nodeID),
		}
	}

	defer func() {
		if r := recover(); r != nil {
			result = state
			err = &PanicError{
				NodeID: nodeID,
				Value:  r,
				Stack:  string(debug.Stack()),
			}
		}
	}()

	result, err = fn(ctx, state)
	if err != nil {
		return result, &NodeError{
			NodeID: nodeID,
			Op:     "execute",
			Err:    err,
		}
	}

	return result, nil
}

// nextNode determines the next node to execute.
// Conditional edges take precedence over simple edges.
func (cg *CompiledGraph[S]) nextNode(ctx Context, state S, current string) (string, error) {
	if router, exists := cg.getRouter(current); exists {
		routerCtx := ctx
		if ec, ok := ctx.(*executionContext); ok {
			routerCtx = ec.withNodeID(current)
		}

		next := router(routerCtx, state)
		if next == "" {
			return "", &RouterError{
				FromNode: current,
				Returned: next,
				Err:      ErrInvalidRouterResult,
			}
		}

		if next != END {
			if _, exists := cg.getNode(next); !exists {
				return "", &RouterError{
					FromNode: current,
					Returned: next,
					Err:      ErrRouterTargetNotFound,
				}
			}
		}

		return next, nil
	}

	edges := cg.getEdges(current)
	if len(edges) == 0 {
		return "", &NodeError{
			NodeID: current,
			Op:     "routing",
			Err:    fmt.Errorf("no outgoing edge from node %s", current),
		}
	}

	return edges[0], nil
}
