package llm

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	fgerrors "github.com/randalmurphal/interviewflow/pkg/flowgraph/errors"
	"github.com/randalmurphal/interviewflow/pkg/flowgraph/observability"
)

// Invoker wraps a Client with bounded retries and exponential backoff.
//
// Every retry carries a fresh nonce: it is stored in the request's Nonce
// field and appended to a copy of the last message, so a caching upstream
// cannot hand back the completion that just failed. The caller's request is
// never modified.
type Invoker struct {
	client   Client
	policy   fgerrors.RetryConfig
	logger   *slog.Logger
	metrics  observability.MetricsRecorder
	spans    observability.SpanManager
	newNonce func() string
}

// InvokerOption configures an Invoker.
type InvokerOption func(*Invoker)

// WithRetryPolicy replaces the default policy (errors.ModelRetry).
func WithRetryPolicy(cfg fgerrors.RetryConfig) InvokerOption {
	return func(i *Invoker) {
		i.policy = cfg
	}
}

// WithSleeper replaces the backoff sleeper.
func WithSleeper(sleep func(ctx context.Context, d time.Duration) error) InvokerOption {
	return func(i *Invoker) {
		i.policy.Sleep = sleep
	}
}

// WithInvokerLogger logs retries and exhaustion.
func WithInvokerLogger(logger *slog.Logger) InvokerOption {
	return func(i *Invoker) {
		i.logger = logger
	}
}

// WithInvokerMetrics records every attempt.
func WithInvokerMetrics(m observability.MetricsRecorder) InvokerOption {
	return func(i *Invoker) {
		if m != nil {
			i.metrics = m
		}
	}
}

// WithInvokerTracing starts a span per attempt.
func WithInvokerTracing(spans observability.SpanManager) InvokerOption {
	return func(i *Invoker) {
		if spans != nil {
			i.spans = spans
		}
	}
}

// WithNonceFunc overrides nonce generation.
func WithNonceFunc(fn func() string) InvokerOption {
	return func(i *Invoker) {
		if fn != nil {
			i.newNonce = fn
		}
	}
}

// NewInvoker wraps client.
func NewInvoker(client Client, opts ...InvokerOption) *Invoker {
	i := &Invoker{
		client:   client,
		policy:   fgerrors.ModelRetry,
		metrics:  observability.NoopMetrics{},
		spans:    observability.NoopSpanManager{},
		newNonce: uuid.NewString,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Complete implements Client.
//
// A *ConfigurationError or context error is returned unchanged. Any other
// failure that survives the whole policy is returned as *ModelUnavailableError.
func (i *Invoker) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if i == nil || i.client == nil {
		return nil, &ConfigurationError{Reason: "model client is not configured"}
	}

	policy := i.policy
	userOnRetry := policy.OnRetry
	policy.OnRetry = func(attempt int, delay time.Duration, err error) {
		observability.LogModelRetry(i.logger, attempt, delay, err)
		if userOnRetry != nil {
			userOnRetry(attempt, delay, err)
		}
	}

	result := fgerrors.Do(ctx, policy, func(ctx context.Context, n int) fgerrors.Attempt[*CompletionResponse] {
		attemptReq := req
		if n > 1 {
			attemptReq = bustCache(req, i.newNonce())
		}

		spanCtx, span := i.spans.StartModelSpan(ctx, attemptReq.Model, n)
		start := time.Now()
		resp, err := i.client.Complete(spanCtx, attemptReq)
		if err == nil && resp == nil {
			err = errors.New("model returned no response")
		}
		i.spans.EndSpanWithError(span, err)
		i.metrics.RecordModelAttempt(ctx, attemptReq.Model, n, err)

		if err != nil {
			return fgerrors.Failed[*CompletionResponse](n, err)
		}
		resp.Duration = time.Since(start)
		return fgerrors.Succeeded(n, resp)
	})

	if result.Err == nil {
		return result.Value, nil
	}

	var cfgErr *ConfigurationError
	if errors.As(result.Err, &cfgErr) {
		return nil, cfgErr
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}

	observability.LogModelExhausted(i.logger, result.Attempts, result.Err)
	return nil, &ModelUnavailableError{Attempts: result.Attempts, Err: result.Err}
}

// bustCache returns a copy of req with nonce applied.
func bustCache(req CompletionRequest, nonce string) CompletionRequest {
	out := req.Clone()
	out.Nonce = nonce
	if n := len(out.Messages); n > 0 {
		out.Messages[n-1].Content += " [nonce:" + nonce + "]"
	}
	return out
}
