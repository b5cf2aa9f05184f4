package flowgraph

import (
	"fmt"
	"strings"
	"sync"
)

// Graph is a mutable builder for execution graphs.
// Chain AddNode, AddEdge, AddConditionalEdge and SetEntry, then call
// Compile to obtain an immutable CompiledGraph.
//
// Graph is NOT safe for concurrent use while building. Build it on one
// goroutine and share only the compiled result.
//
//	graph := flowgraph.NewGraph[Thread]().
//	    AddNode("generate", generate).
//	    AddNode("tools", runTools).
//	    AddConditionalEdge("generate", routeGenerate).
//	    AddEdge("tools", "generate").
//	    SetEntry("generate")
type Graph[S any] struct {
	mu               sync.RWMutex
	nodes            map[string]NodeFunc[S]
	edges            map[string][]string
	conditionalEdges map[string]RouterFunc[S]
	entryPoint       string
}

// NewGraph creates a new graph builder for state type S.
func NewGraph[S any]() *Graph[S] {
	return &Graph[S]{
		nodes:            make(map[string]NodeFunc[S]),
		edges:            make(map[string][]string),
		conditionalEdges: make(map[string]RouterFunc[S]),
	}
}

// AddNode adds a named node to the graph.
//
// Panics if the id is empty, is the reserved word END (case-insensitive),
// contains whitespace, is already registered, or if fn is nil. These are
// programming errors in the graph definition, not runtime conditions.
func (g *Graph[S]) AddNode(id string, fn NodeFunc[S]) *Graph[S] {
	if id == "" {
		panic("flowgraph: node ID cannot be empty")
	}

	idLower := strings.ToLower(id)
	if idLower == "end" || idLower == END {
		panic("flowgraph: node ID cannot be reserved word 'END'")
	}

	if strings.ContainsAny(id, " \t\n\r") {
		panic("flowgraph: node ID cannot contain whitespace")
	}

	if fn == nil {
		panic("flowgraph: node function cannot be nil")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if _, exists := g.nodes[id]; exists {
		panic(fmt.Sprintf("flowgraph: duplicate node ID: %s", id))
	}

	g.nodes[id] = fn
	return g
}

// AddEdge adds an unconditional edge. The target can be a node ID or END.
// References are validated by Compile, so edges may be added in any order.
func (g *Graph[S]) AddEdge(from, to string) *Graph[S] {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.edges[from] = append(g.edges[from], to)
	return g
}

// AddConditionalEdge routes out of from using router at runtime.
// A conditional edge takes precedence over simple edges on the same node.
func (g *Graph[S]) AddConditionalEdge(from string, router RouterFunc[S]) *Graph[S] {
	if router == nil {
		panic("flowgraph: router function cannot be nil")
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	g.conditionalEdges[from] = router
	return g
}

// SetEntry designates the node every run starts from.
func (g *Graph[S]) SetEntry(id string) *Graph[S] {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.entryPoint = id
	return g
}
