package flowgraph

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

func TestRun_ObservabilityLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	_, err := linearGraph(t).Run(testCtx(), State{},
		WithObservabilityLogger(logger),
		WithRunID("thread-42"))
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, `"msg":"graph run starting"`)
	assert.Contains(t, out, `"msg":"graph run completed"`)
	assert.Contains(t, out, `"run_id":"thread-42"`)
	assert.Contains(t, out, `"nodes_executed":2`)
}

func TestRun_ObservabilityLogger_Error(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	compiled, err := NewGraph[State]().
		AddNode("fail", makeFailingNode(errors.New("boom"))).
		AddEdge("fail", END).
		SetEntry("fail").
		Compile()
	require.NoError(t, err)

	_, err = compiled.Run(testCtx(), State{}, WithObservabilityLogger(logger))
	require.Error(t, err)
	assert.Contains(t, buf.String(), `"last_node":"fail"`)
}

func TestRun_TracingNestsNodeSpans(t *testing.T) {
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	defer func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	}()

	var nodeSpan trace.SpanContext
	compiled, err := NewGraph[State]().
		AddNode("inspect", func(ctx Context, s State) (State, error) {
			nodeSpan = trace.SpanContextFromContext(ctx)
			return s, nil
		}).
		AddEdge("inspect", END).
		SetEntry("inspect").
		Compile()
	require.NoError(t, err)

	_, err = compiled.Run(testCtx(), State{}, WithTracing(true))
	require.NoError(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)

	names := []string{spans[0].Name, spans[1].Name}
	assert.Contains(t, names, "flowgraph.run")
	assert.Contains(t, names, "flowgraph.node.inspect")

	require.True(t, nodeSpan.IsValid(), "node receives its span in context")
	for _, s := range spans {
		if s.Name == "flowgraph.node.inspect" {
			assert.Equal(t, s.SpanContext.SpanID(), nodeSpan.SpanID())
		}
	}
}
