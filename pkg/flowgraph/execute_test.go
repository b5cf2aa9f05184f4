package flowgraph

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_Linear(t *testing.T) {
	compiled, err := NewGraph[State]().
		AddNode("a", makeTrackingNode("a")).
		AddNode("b", makeTrackingNode("b")).
		AddNode("c", makeTrackingNode("c")).
		AddEdge("a", "b").
		AddEdge("b", "c").
		AddEdge("c", END).
		SetEntry("a").
		Compile()
	require.NoError(t, err)

	result, err := compiled.Run(testCtx(), State{})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, result.Progress)
}

func TestRun_NilContext(t *testing.T) {
	compiled, err := NewGraph[Counter]().
		AddNode("inc", increment).
		AddEdge("inc", END).
		SetEntry("inc").
		Compile()
	require.NoError(t, err)

	//nolint:staticcheck // nil context is the case under test
	_, err = compiled.Run(nil, Counter{})
	assert.ErrorIs(t, err, ErrNilContext)
}

func TestRun_ConditionalLoop(t *testing.T) {
	compiled, err := NewGraph[State]().
		AddNode("attempt", func(_ Context, s State) (State, error) {
			s.Attempts++
			return s, nil
		}).
		AddConditionalEdge("attempt", func(_ Context, s State) string {
			if s.Attempts >= 3 {
				return END
			}
			return "attempt"
		}).
		SetEntry("attempt").
		Compile()
	require.NoError(t, err)

	result, err := compiled.Run(testCtx(), State{})
	require.NoError(t, err)
	assert.Equal(t, 3, result.Attempts)
}

func TestRun_MaxIterations(t *testing.T) {
	compiled, err := NewGraph[Counter]().
		AddNode("inc", increment).
		AddConditionalEdge("inc", func(Context, Counter) string { return "inc" }).
		SetEntry("inc").
		Compile()
	require.NoError(t, err)

	result, err := compiled.Run(testCtx(), Counter{}, WithMaxIterations(5))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMaxIterations)

	var maxErr *MaxIterationsError
	require.ErrorAs(t, err, &maxErr)
	assert.Equal(t, 5, maxErr.Max)
	assert.Equal(t, "inc", maxErr.LastNodeID)
	assert.Equal(t, 5, result.Value)
}

func TestRun_NodeError(t *testing.T) {
	boom := errors.New("boom")
	compiled, err := NewGraph[State]().
		AddNode("a", makeTrackingNode("a")).
		AddNode("fail", makeFailingNode(boom)).
		AddEdge("a", "fail").
		AddEdge("fail", END).
		SetEntry("a").
		Compile()
	require.NoError(t, err)

	result, err := compiled.Run(testCtx(), State{})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	var nodeErr *NodeError
	require.ErrorAs(t, err, &nodeErr)
	assert.Equal(t, "fail", nodeErr.NodeID)
	assert.Equal(t, "execute", nodeErr.Op)
	assert.Equal(t, []string{"a"}, result.Progress)
}

func TestRun_PanicRecovered(t *testing.T) {
	compiled, err := NewGraph[State]().
		AddNode("panic", makePanicNode("kaboom")).
		AddEdge("panic", END).
		SetEntry("panic").
		Compile()
	require.NoError(t, err)

	_, err = compiled.Run(testCtx(), State{})
	var panicErr *PanicError
	require.ErrorAs(t, err, &panicErr)
	assert.Equal(t, "panic", panicErr.NodeID)
	assert.Equal(t, "kaboom", panicErr.Value)
	assert.NotEmpty(t, panicErr.Stack)
}

func TestRun_RouterErrors(t *testing.T) {
	tests := []struct {
		name    string
		returns string
		want    error
	}{
		{"empty result", "", ErrInvalidRouterResult},
		{"unknown node", "nowhere", ErrRouterTargetNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			compiled, err := NewGraph[Counter]().
				AddNode("inc", increment).
				AddConditionalEdge("inc", func(Context, Counter) string { return tt.returns }).
				SetEntry("inc").
				Compile()
			require.NoError(t, err)

			_, err = compiled.Run(testCtx(), Counter{})
			assert.ErrorIs(t, err, tt.want)

			var routerErr *RouterError
			require.ErrorAs(t, err, &routerErr)
			assert.Equal(t, "inc", routerErr.FromNode)
			assert.Equal(t, tt.returns, routerErr.Returned)
		})
	}
}

func TestRun_CancelledBeforeNode(t *testing.T) {
	compiled, err := NewGraph[State]().
		AddNode("a", makeTrackingNode("a")).
		AddEdge("a", END).
		SetEntry("a").
		Compile()
	require.NoError(t, err)

	base, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := compiled.Run(NewContext(base), State{})
	assert.ErrorIs(t, err, context.Canceled)

	var cancelErr *CancellationError
	require.ErrorAs(t, err, &cancelErr)
	assert.Equal(t, "a", cancelErr.NodeID)
	assert.Empty(t, result.Progress)
}

func TestRun_CancelledBetweenNodes(t *testing.T) {
	base, cancel := context.WithCancel(context.Background())
	defer cancel()

	compiled, err := NewGraph[State]().
		AddNode("a", func(_ Context, s State) (State, error) {
			s.Progress = append(s.Progress, "a")
			cancel()
			return s, nil
		}).
		AddNode("b", makeTrackingNode("b")).
		AddEdge("a", "b").
		AddEdge("b", END).
		SetEntry("a").
		Compile()
	require.NoError(t, err)

	result, err := compiled.Run(NewContext(base), State{})
	var cancelErr *CancellationError
	require.ErrorAs(t, err, &cancelErr)
	assert.Equal(t, "b", cancelErr.NodeID)
	assert.Equal(t, []string{"a"}, result.Progress)
}

func TestRun_NodeContext(t *testing.T) {
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	var gotNode, gotRun string
	var gotNow time.Time
	compiled, err := NewGraph[State]().
		AddNode("inspect", func(ctx Context, s State) (State, error) {
			gotNode = ctx.NodeID()
			gotRun = ctx.RunID()
			gotNow = ctx.Now()
			assert.NotNil(t, ctx.Logger())
			return s, nil
		}).
		AddEdge("inspect", END).
		SetEntry("inspect").
		Compile()
	require.NoError(t, err)

	ctx := NewContext(context.Background(),
		WithContextRunID("thread-7"),
		WithClock(func() time.Time { return fixed }))

	_, err = compiled.Run(ctx, State{})
	require.NoError(t, err)
	assert.Equal(t, "inspect", gotNode)
	assert.Equal(t, "thread-7", gotRun)
	assert.Equal(t, fixed, gotNow)
}

func TestFailedNode(t *testing.T) {
	assert.Equal(t, "a", failedNode(&NodeError{NodeID: "a", Err: errors.New("x")}, "z"))
	assert.Equal(t, "b", failedNode(&PanicError{NodeID: "b"}, "z"))
	assert.Equal(t, "c", failedNode(&MaxIterationsError{LastNodeID: "c"}, "z"))
	assert.Equal(t, "d", failedNode(&RouterError{FromNode: "d", Err: ErrInvalidRouterResult}, "z"))
	assert.Equal(t, "z", failedNode(errors.New("other"), "z"))
}
