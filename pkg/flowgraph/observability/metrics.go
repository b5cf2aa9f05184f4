package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records graph, model and tool metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordNodeExecution records a node execution with its duration and error status.
	RecordNodeExecution(ctx context.Context, nodeID string, duration time.Duration, err error)

	// RecordGraphRun records a graph run completion.
	RecordGraphRun(ctx context.Context, success bool, duration time.Duration)

	// RecordCheckpoint records a checkpoint save.
	RecordCheckpoint(ctx context.Context, runID string, sizeBytes int64)

	// RecordModelAttempt records one model invocation attempt.
	RecordModelAttempt(ctx context.Context, model string, attempt int, err error)

	// RecordToolCall records one tool invocation.
	RecordToolCall(ctx context.Context, tool string, duration time.Duration, err error)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	nodeExecutions metric.Int64Counter
	nodeLatency    metric.Float64Histogram
	nodeErrors     metric.Int64Counter
	graphRuns      metric.Int64Counter
	graphLatency   metric.Float64Histogram
	checkpointSize metric.Int64Histogram
	modelAttempts  metric.Int64Counter
	modelErrors    metric.Int64Counter
	toolCalls      metric.Int64Counter
	toolLatency    metric.Float64Histogram
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics returns the default OTel metrics instance.
// Lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

// newOtelMetrics creates a new OTel metrics instance.
func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("interviewflow")
	m := &otelMetrics{}

	var err error
	if m.nodeExecutions, err = meter.Int64Counter("flowgraph.node.executions",
		metric.WithDescription("Number of node executions"),
	); err != nil {
		return nil, err
	}
	if m.nodeLatency, err = meter.Float64Histogram("flowgraph.node.latency_ms",
		metric.WithDescription("Node execution latency in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	if m.nodeErrors, err = meter.Int64Counter("flowgraph.node.errors",
		metric.WithDescription("Number of node execution errors"),
	); err != nil {
		return nil, err
	}
	if m.graphRuns, err = meter.Int64Counter("flowgraph.graph.runs",
		metric.WithDescription("Number of graph runs"),
	); err != nil {
		return nil, err
	}
	if m.graphLatency, err = meter.Float64Histogram("flowgraph.graph.latency_ms",
		metric.WithDescription("Graph run latency in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}
	if m.checkpointSize, err = meter.Int64Histogram("flowgraph.checkpoint.size_bytes",
		metric.WithDescription("Checkpoint size in bytes"),
		metric.WithUnit("By"),
	); err != nil {
		return nil, err
	}
	if m.modelAttempts, err = meter.Int64Counter("interviewflow.model.attempts",
		metric.WithDescription("Number of model invocation attempts"),
	); err != nil {
		return nil, err
	}
	if m.modelErrors, err = meter.Int64Counter("interviewflow.model.errors",
		metric.WithDescription("Number of failed model invocation attempts"),
	); err != nil {
		return nil, err
	}
	if m.toolCalls, err = meter.Int64Counter("interviewflow.tool.calls",
		metric.WithDescription("Number of tool invocations"),
	); err != nil {
		return nil, err
	}
	if m.toolLatency, err = meter.Float64Histogram("interviewflow.tool.latency_ms",
		metric.WithDescription("Tool invocation latency in milliseconds"),
		metric.WithUnit("ms"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// RecordNodeExecution records a node execution.
func (m *otelMetrics) RecordNodeExecution(ctx context.Context, nodeID string, duration time.Duration, err error) {
	attrs := metric.WithAttributes(attribute.String("node_id", nodeID))

	m.nodeExecutions.Add(ctx, 1, attrs)
	m.nodeLatency.Record(ctx, float64(duration.Milliseconds()), attrs)

	if err != nil {
		m.nodeErrors.Add(ctx, 1, attrs)
	}
}

// RecordGraphRun records a graph run.
func (m *otelMetrics) RecordGraphRun(ctx context.Context, success bool, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.Bool("success", success))
	m.graphRuns.Add(ctx, 1, attrs)
	m.graphLatency.Record(ctx, float64(duration.Milliseconds()), attrs)
}

// RecordCheckpoint records a checkpoint save. The run ID is not used as an
// attribute to keep cardinality bounded.
func (m *otelMetrics) RecordCheckpoint(ctx context.Context, _ string, sizeBytes int64) {
	m.checkpointSize.Record(ctx, sizeBytes)
}

// RecordModelAttempt records one model invocation attempt.
func (m *otelMetrics) RecordModelAttempt(ctx context.Context, model string, attempt int, err error) {
	attrs := metric.WithAttributes(
		attribute.String("model", model),
		attribute.Bool("retry", attempt > 1),
	)
	m.modelAttempts.Add(ctx, 1, attrs)
	if err != nil {
		m.modelErrors.Add(ctx, 1, attrs)
	}
}

// RecordToolCall records one tool invocation.
func (m *otelMetrics) RecordToolCall(ctx context.Context, tool string, duration time.Duration, err error) {
	attrs := metric.WithAttributes(
		attribute.String("tool", tool),
		attribute.Bool("success", err == nil),
	)
	m.toolCalls.Add(ctx, 1, attrs)
	m.toolLatency.Record(ctx, float64(duration.Milliseconds()), attrs)
}
