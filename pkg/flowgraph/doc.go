/*
Package flowgraph provides graph-based orchestration for LLM workflows.

# Overview

A graph is a set of named nodes, each a function from state to state, joined
by edges. Simple edges always go to the same successor; conditional edges
call a router that picks the successor from the current state. Execution
starts at the entry point and stops when a node routes to END.

	type State struct {
	    Input  string
	    Output string
	}

	func process(ctx flowgraph.Context, s State) (State, error) {
	    s.Output = "Processed: " + s.Input
	    return s, nil
	}

	graph := flowgraph.NewGraph[State]().
	    AddNode("process", process).
	    AddEdge("process", flowgraph.END).
	    SetEntry("process")

	compiled, err := graph.Compile()
	if err != nil {
	    log.Fatal(err)
	}

	result, err := compiled.Run(flowgraph.NewContext(ctx), State{Input: "hello"})

# Loops

Conditional edges may route back to an earlier node. Loops are bounded by
WithMaxIterations (default 1000); exceeding it fails the run with
MaxIterationsError.

# Persistence

WithCheckpointing stores the final state when the run reaches END. Nothing
is written while nodes run, so a failed run leaves the previously stored
state untouched and the caller can retry the same input.

	store, _ := checkpoint.NewSQLiteStore("./threads.db")
	state, cp, err := flowgraph.LoadState[State](ctx, store, threadID)

	result, err := compiled.Run(fctx, state,
	    flowgraph.WithRunID(threadID),
	    flowgraph.WithCheckpointing(store, flowgraph.Sequence(cp)))

# Errors

Node failures are wrapped in NodeError, panics in PanicError, invalid router
results in RouterError. CancellationError reports a context that ended
between nodes. All of them support errors.Is and errors.As.

# Observability

WithObservabilityLogger, WithMetrics and WithTracing enable slog logging,
OpenTelemetry metrics and spans (flowgraph.run > flowgraph.node.{id}).
Nodes receive the node span in their Context, so spans they start nest
under it.
*/
package flowgraph
