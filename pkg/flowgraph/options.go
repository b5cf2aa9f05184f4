package flowgraph

import (
	"log/slog"

	"github.com/randalmurphal/interviewflow/pkg/flowgraph/checkpoint"
	"github.com/randalmurphal/interviewflow/pkg/flowgraph/observability"
)

// runConfig holds configuration for one graph execution.
type runConfig struct {
	maxIterations int

	logger         *slog.Logger
	metrics        observability.MetricsRecorder
	spans          observability.SpanManager
	tracingEnabled bool

	checkpointStore        checkpoint.Store
	runID                  string
	sequence               int
	checkpointFailureFatal bool
}

func defaultRunConfig() runConfig {
	return runConfig{
		maxIterations:          1000,
		metrics:                observability.NoopMetrics{},
		spans:                  observability.NoopSpanManager{},
		checkpointFailureFatal: true,
	}
}

// RunOption configures execution behavior.
type RunOption func(*runConfig)

// WithMaxIterations caps the number of node executions in a run.
// Default: 1000. Loops past the cap fail with MaxIterationsError.
func WithMaxIterations(n int) RunOption {
	return func(c *runConfig) {
		if n > 0 {
			c.maxIterations = n
		}
	}
}

// WithObservabilityLogger enables run and node lifecycle logging.
func WithObservabilityLogger(logger *slog.Logger) RunOption {
	return func(c *runConfig) {
		c.logger = logger
	}
}

// WithMetricsRecorder records node and run metrics through m.
func WithMetricsRecorder(m observability.MetricsRecorder) RunOption {
	return func(c *runConfig) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithMetrics toggles OpenTelemetry metrics using the global meter provider.
func WithMetrics(enabled bool) RunOption {
	return func(c *runConfig) {
		if enabled {
			c.metrics = observability.NewMetricsRecorder()
		} else {
			c.metrics = observability.NoopMetrics{}
		}
	}
}

// WithTracing toggles OpenTelemetry spans (flowgraph.run > flowgraph.node.{id}).
func WithTracing(enabled bool) RunOption {
	return func(c *runConfig) {
		c.tracingEnabled = enabled
		if enabled {
			c.spans = observability.NewSpanManager()
		} else {
			c.spans = observability.NoopSpanManager{}
		}
	}
}

// WithCheckpointing persists the final state to store when the run reaches
// END. Requires WithRunID. A run that fails persists nothing.
//
// sequence is the number of completed runs already stored under the run ID;
// the saved checkpoint records sequence+1.
func WithCheckpointing(store checkpoint.Store, sequence int) RunOption {
	return func(c *runConfig) {
		c.checkpointStore = store
		c.sequence = sequence
	}
}

// WithRunID sets the key checkpoints are stored under.
func WithRunID(id string) RunOption {
	return func(c *runConfig) {
		c.runID = id
	}
}

// WithCheckpointFailureFatal controls whether a failed save fails the run.
// Default: true. When false the failure is logged and the result returned.
func WithCheckpointFailureFatal(fatal bool) RunOption {
	return func(c *runConfig) {
		c.checkpointFailureFatal = fatal
	}
}
