package flowgraph

// END is the terminal node identifier.
// Routing to END finishes the run; when checkpointing is enabled the
// accumulated state is persisted at that point.
const END = "__end__"

// NodeFunc is the signature for all node functions.
// A node receives the run context and the current state by value and
// returns the state the next node should see.
//
// Nodes must not rely on pointer mutation of the incoming state; anything
// they want to keep goes into the returned value.
//
//	func countTurn(ctx flowgraph.Context, s Thread) (Thread, error) {
//	    s.Turns++
//	    return s, nil
//	}
type NodeFunc[S any] func(ctx Context, state S) (S, error)

// RouterFunc picks the next node once a node with a conditional edge has
// finished. It returns a node ID or END.
//
// An empty result or an unknown node ID fails the run with a RouterError.
type RouterFunc[S any] func(ctx Context, state S) string
