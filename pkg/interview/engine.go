package interview

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/randalmurphal/interviewflow/pkg/flowgraph"
	"github.com/randalmurphal/interviewflow/pkg/flowgraph/checkpoint"
	"github.com/randalmurphal/interviewflow/pkg/flowgraph/llm"
	"github.com/randalmurphal/interviewflow/pkg/flowgraph/observability"
	"github.com/randalmurphal/interviewflow/pkg/interview/digest"
)

// DefaultMaxIterations caps node executions per turn.
const DefaultMaxIterations = 64

// Engine runs interview turns against a session store.
//
// Turns on the same thread are serialized; turns on distinct threads run
// concurrently. A turn that fails leaves the stored thread untouched.
type Engine struct {
	store         checkpoint.Store
	graph         *flowgraph.CompiledGraph[ThreadState]
	nodes         *nodes
	logger        *slog.Logger
	clock         func() time.Time
	locks         *threadLocks
	maxIterations int
	metrics       observability.MetricsRecorder
	tracing       bool
}

type engineOptions struct {
	logger        *slog.Logger
	clock         func() time.Time
	digester      *digest.Digester
	tools         *ToolSet
	schema        *llm.Schema
	modelID       string
	maxTokens     int
	metrics       observability.MetricsRecorder
	tracing       bool
	maxIterations int
	invokerOpts   []llm.InvokerOption
}

// Option configures an Engine.
type Option func(*engineOptions)

// WithLogger sets the engine logger. Default: slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *engineOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock overrides the clock used for timestamps and elapsed time.
func WithClock(now func() time.Time) Option {
	return func(o *engineOptions) {
		if now != nil {
			o.clock = now
		}
	}
}

// WithDigester supplies the question digest source. Default: a digester
// over an in-memory cache.
func WithDigester(d *digest.Digester) Option {
	return func(o *engineOptions) {
		o.digester = d
	}
}

// WithToolSet replaces the default tools.
func WithToolSet(ts *ToolSet) Option {
	return func(o *engineOptions) {
		o.tools = ts
	}
}

// WithSchema sets the schema replies are converted into. The schema should
// declare the confidence and interview_concluded properties. Default:
// ConvertedResponseSchema.
func WithSchema(s *llm.Schema) Option {
	return func(o *engineOptions) {
		o.schema = s
	}
}

// WithModel sets the model ID and output token limit of every request.
func WithModel(id string, maxTokens int) Option {
	return func(o *engineOptions) {
		o.modelID = id
		o.maxTokens = maxTokens
	}
}

// WithMetrics records graph, node, model and tool metrics through m.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(o *engineOptions) {
		if m != nil {
			o.metrics = m
		}
	}
}

// WithTracing enables OpenTelemetry spans for turns and model attempts.
func WithTracing(enabled bool) Option {
	return func(o *engineOptions) {
		o.tracing = enabled
	}
}

// WithMaxIterations caps node executions per turn. Default: 64.
func WithMaxIterations(n int) Option {
	return func(o *engineOptions) {
		if n > 0 {
			o.maxIterations = n
		}
	}
}

// WithInvokerOptions configures the retrying invoker wrapped around the
// model client.
func WithInvokerOptions(opts ...llm.InvokerOption) Option {
	return func(o *engineOptions) {
		o.invokerOpts = append(o.invokerOpts, opts...)
	}
}

// New builds an engine over store and model. Every model call goes through
// a retrying invoker.
func New(store checkpoint.Store, model llm.Client, opts ...Option) (*Engine, error) {
	if model == nil {
		return nil, &llm.ConfigurationError{Reason: "model client is not configured"}
	}
	if store == nil {
		return nil, ErrStoreRequired
	}

	o := engineOptions{
		logger:        slog.Default(),
		clock:         time.Now,
		metrics:       observability.NoopMetrics{},
		maxIterations: DefaultMaxIterations,
	}
	for _, opt := range opts {
		opt(&o)
	}

	if o.tools == nil {
		ts, err := DefaultToolSet(o.clock)
		if err != nil {
			return nil, err
		}
		o.tools = ts
	}
	if o.digester == nil {
		o.digester = digest.New(nil, digest.WithLogger(o.logger))
	}
	if o.schema == nil {
		o.schema = ConvertedResponseSchema
	}

	invokerOpts := []llm.InvokerOption{
		llm.WithInvokerLogger(o.logger),
		llm.WithInvokerMetrics(o.metrics),
	}
	if o.tracing {
		invokerOpts = append(invokerOpts, llm.WithInvokerTracing(observability.NewSpanManager()))
	}
	invokerOpts = append(invokerOpts, o.invokerOpts...)

	n := &nodes{
		model:     llm.NewInvoker(model, invokerOpts...),
		tools:     o.tools,
		digester:  o.digester,
		schema:    o.schema,
		modelID:   o.modelID,
		maxTokens: o.maxTokens,
		metrics:   o.metrics,
	}
	graph, err := buildGraph(n)
	if err != nil {
		return nil, err
	}

	return &Engine{
		store:         store,
		graph:         graph,
		nodes:         n,
		logger:        o.logger,
		clock:         o.clock,
		locks:         newThreadLocks(),
		maxIterations: o.maxIterations,
		metrics:       o.metrics,
		tracing:       o.tracing,
	}, nil
}

// SendMessage runs one turn of threadID with the candidate's input and
// returns the persisted state. An unknown thread is started; starting one
// needs non-empty input.
func (e *Engine) SendMessage(ctx context.Context, threadID string, turn Turn, in Input) (ThreadState, error) {
	if threadID == "" {
		return ThreadState{}, ErrThreadIDRequired
	}
	unlock, err := e.locks.Lock(ctx, threadID)
	if err != nil {
		return ThreadState{}, err
	}
	defer unlock()

	state, cp, err := e.load(ctx, threadID)
	if err != nil {
		return ThreadState{}, err
	}
	if in.IsEmpty() && state.lastIndex(RoleHuman) < 0 {
		return ThreadState{}, fmt.Errorf("%w: %s", ErrInputRequired, threadID)
	}
	return e.runTurn(ctx, threadID, state, cp, turn, in)
}

// RecreateLastMessage discards the replies after the candidate's last
// message and generates a new one.
func (e *Engine) RecreateLastMessage(ctx context.Context, threadID string, turn Turn) (ThreadState, error) {
	if threadID == "" {
		return ThreadState{}, ErrThreadIDRequired
	}
	unlock, err := e.locks.Lock(ctx, threadID)
	if err != nil {
		return ThreadState{}, err
	}
	defer unlock()

	state, cp, err := e.load(ctx, threadID)
	if err != nil {
		return ThreadState{}, err
	}
	if cp == nil {
		return ThreadState{}, fmt.Errorf("%w: %s", ErrThreadNotFound, threadID)
	}
	state.CorrectionRequired = true
	return e.runTurn(ctx, threadID, state, cp, turn, Input{})
}

// State returns the stored state of threadID.
func (e *Engine) State(ctx context.Context, threadID string) (ThreadState, error) {
	if threadID == "" {
		return ThreadState{}, ErrThreadIDRequired
	}
	state, cp, err := e.load(ctx, threadID)
	if err != nil {
		return ThreadState{}, err
	}
	if cp == nil {
		return ThreadState{}, fmt.Errorf("%w: %s", ErrThreadNotFound, threadID)
	}
	return state, nil
}

// Threads lists stored threads, most recently updated first. It requires
// a store that implements checkpoint.Lister.
func (e *Engine) Threads(ctx context.Context) ([]checkpoint.Info, error) {
	lister, ok := e.store.(checkpoint.Lister)
	if !ok {
		return nil, fmt.Errorf("session store %T cannot list threads", e.store)
	}
	return lister.List(ctx)
}

// load returns the stored state of threadID, or a new thread with a nil
// checkpoint when nothing is stored.
func (e *Engine) load(ctx context.Context, threadID string) (ThreadState, *checkpoint.Checkpoint, error) {
	state, cp, err := flowgraph.LoadState[ThreadState](ctx, e.store, threadID)
	if flowgraph.IsNotFound(err) {
		return NewThreadState(), nil, nil
	}
	if err != nil {
		return ThreadState{}, nil, err
	}
	if state.Messages == nil {
		state.Messages = []Message{}
	}
	return state, cp, nil
}

func (e *Engine) runTurn(ctx context.Context, threadID string, state ThreadState, cp *checkpoint.Checkpoint, turn Turn, in Input) (ThreadState, error) {
	state.ConversionAttempts = 0
	if !in.IsEmpty() {
		state.Messages = Reconcile(state.Messages, []Message{{
			ID:         uuid.NewString(),
			CreatedAt:  e.clock(),
			Role:       RoleHuman,
			Content:    in.Text,
			Attachment: in.Attachment,
		}})
	}
	state.Turn = turn

	logger := e.logger.With("thread_id", threadID)
	fctx := flowgraph.NewContext(ctx,
		flowgraph.WithLogger(logger),
		flowgraph.WithClock(e.clock),
		flowgraph.WithContextRunID(threadID))

	result, err := e.graph.Run(fctx, state,
		flowgraph.WithRunID(threadID),
		flowgraph.WithCheckpointing(e.store, flowgraph.Sequence(cp)),
		flowgraph.WithMaxIterations(e.maxIterations),
		flowgraph.WithObservabilityLogger(logger),
		flowgraph.WithMetricsRecorder(e.metrics),
		flowgraph.WithTracing(e.tracing))
	if err != nil {
		return ThreadState{}, fmt.Errorf("thread %s: %w", threadID, err)
	}
	return result, nil
}
