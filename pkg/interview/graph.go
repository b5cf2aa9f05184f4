package interview

import (
	"fmt"

	"github.com/randalmurphal/interviewflow/pkg/flowgraph"
)

// buildGraph wires the turn graph:
//
//	generate -> (tools -> generate)* -> validate -> analyze -> convert -> (convert)* -> END
//
// generate routes to END once the interview is inactive.
func buildGraph(n *nodes) (*flowgraph.CompiledGraph[ThreadState], error) {
	compiled, err := flowgraph.NewGraph[ThreadState]().
		AddNode(NodeGenerate, n.generate).
		AddNode(NodeTools, n.runTools).
		AddNode(NodeValidate, n.validate).
		AddNode(NodeAnalyze, n.analyze).
		AddNode(NodeConvert, n.convert).
		AddConditionalEdge(NodeGenerate, routeGenerate).
		AddEdge(NodeTools, NodeGenerate).
		AddEdge(NodeValidate, NodeAnalyze).
		AddEdge(NodeAnalyze, NodeConvert).
		AddConditionalEdge(NodeConvert, routeConvert).
		SetEntry(NodeGenerate).
		Compile()
	if err != nil {
		return nil, fmt.Errorf("compile interview graph: %w", err)
	}
	return compiled, nil
}
