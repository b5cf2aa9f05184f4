package flowgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAddNode_Validation(t *testing.T) {
	tests := []struct {
		name    string
		id      string
		fn      NodeFunc[Counter]
		wantMsg string
	}{
		{"empty id", "", increment, "flowgraph: node ID cannot be empty"},
		{"reserved END", END, increment, "flowgraph: node ID cannot be reserved word 'END'"},
		{"whitespace", "has space", increment, "flowgraph: node ID cannot contain whitespace"},
		{"nil function", "node", nil, "flowgraph: node function cannot be nil"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.PanicsWithValue(t, tt.wantMsg, func() {
				NewGraph[Counter]().AddNode(tt.id, tt.fn)
			})
		})
	}
}

func TestAddNode_Duplicate(t *testing.T) {
	g := NewGraph[Counter]().AddNode("inc", increment)
	assert.PanicsWithValue(t, "flowgraph: duplicate node ID: inc", func() {
		g.AddNode("inc", increment)
	})
}

func TestAddConditionalEdge_NilRouter(t *testing.T) {
	assert.Panics(t, func() {
		NewGraph[Counter]().AddNode("inc", increment).AddConditionalEdge("inc", nil)
	})
}

func TestGraph_FluentBuild(t *testing.T) {
	compiled, err := NewGraph[Counter]().
		AddNode("a", increment).
		AddNode("b", increment).
		AddEdge("a", "b").
		AddEdge("b", END).
		SetEntry("a").
		Compile()

	assert.NoError(t, err)
	assert.Equal(t, "a", compiled.EntryPoint())
	assert.Equal(t, []string{"a", "b"}, compiled.NodeIDs())
	assert.True(t, compiled.HasNode("b"))
	assert.False(t, compiled.HasNode("c"))
	assert.Equal(t, []string{"b"}, compiled.Successors("a"))
	assert.Equal(t, []string{"a"}, compiled.Predecessors("b"))
	assert.Nil(t, compiled.Successors(END))
}
