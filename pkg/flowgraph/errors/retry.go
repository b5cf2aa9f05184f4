package errors

import (
	"context"
	"math/rand/v2"
	"time"
)

// RetryConfig configures retry behavior.
type RetryConfig struct {
	// MaxAttempts is the maximum number of attempts (including initial).
	MaxAttempts int

	// InitialBackoff is the delay before the second attempt.
	InitialBackoff time.Duration

	// MaxBackoff caps the delay between attempts.
	MaxBackoff time.Duration

	// BackoffFactor is the multiplier applied to backoff after each attempt.
	BackoffFactor float64

	// Jitter is the random jitter factor (0.0-1.0). Zero gives exact delays.
	Jitter float64

	// RetryableFunc optionally overrides the default retryability check.
	RetryableFunc func(error) bool

	// Sleep waits between attempts. Defaults to a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error

	// OnRetry is called after a failed attempt that will be retried.
	OnRetry func(attempt int, delay time.Duration, err error)
}

// DefaultRetry is the standard retry configuration.
var DefaultRetry = RetryConfig{
	MaxAttempts:    3,
	InitialBackoff: 1 * time.Second,
	MaxBackoff:     30 * time.Second,
	BackoffFactor:  2.0,
	Jitter:         0.1,
}

// ModelRetry is the policy for language-model calls: 6 attempts, delays of
// exactly 1s, 2s, 4s, 8s, 16s, every non-permanent failure retried.
var ModelRetry = RetryConfig{
	MaxAttempts:    6,
	InitialBackoff: 1 * time.Second,
	MaxBackoff:     16 * time.Second,
	BackoffFactor:  2.0,
	RetryableFunc:  RetryUnlessPermanent,
}

// NoRetry disables retries.
var NoRetry = RetryConfig{
	MaxAttempts: 1,
}

// Attempt is the outcome of one try of a retried operation.
type Attempt[T any] struct {
	OK     bool
	Value  T
	Err    error
	Number int
}

// Succeeded returns a successful attempt.
func Succeeded[T any](number int, value T) Attempt[T] {
	return Attempt[T]{OK: true, Value: value, Number: number}
}

// Failed returns a failed attempt.
func Failed[T any](number int, err error) Attempt[T] {
	return Attempt[T]{Err: err, Number: number}
}

// RetryResult contains the result of a retry operation.
type RetryResult[T any] struct {
	// Value is the result if successful.
	Value T

	// Err is the final error if all attempts failed.
	Err error

	// Attempts is the number of attempts made.
	Attempts int

	// Delays holds the backoff waited before each retry, in order.
	Delays []time.Duration

	// Duration is the total time spent retrying.
	Duration time.Duration
}

// WithRetry executes a function with retries based on the configuration.
func WithRetry[T any](cfg RetryConfig, fn func() (T, error)) RetryResult[T] {
	return WithRetryContext(context.Background(), cfg, func(context.Context, int) (T, error) {
		return fn()
	})
}

// WithRetryContext executes fn with retries. fn receives the 1-based attempt number.
func WithRetryContext[T any](
	ctx context.Context,
	cfg RetryConfig,
	fn func(ctx context.Context, attempt int) (T, error),
) RetryResult[T] {
	return Do(ctx, cfg, func(ctx context.Context, n int) Attempt[T] {
		v, err := fn(ctx, n)
		if err != nil {
			return Failed[T](n, err)
		}
		return Succeeded(n, v)
	})
}

// Do runs attempts until one succeeds, a failure is not retryable, the
// context ends, or MaxAttempts is reached.
func Do[T any](
	ctx context.Context,
	cfg RetryConfig,
	try func(ctx context.Context, attempt int) Attempt[T],
) RetryResult[T] {
	start := time.Now()
	backoff := cfg.InitialBackoff
	var (
		last   Attempt[T]
		delays []time.Duration
	)

	isRetryable := cfg.RetryableFunc
	if isRetryable == nil {
		isRetryable = IsRetryable
	}
	sleep := cfg.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	for n := 1; n <= maxAttempts; n++ {
		if err := ctx.Err(); err != nil {
			return RetryResult[T]{
				Err:      &CategorizedError{Err: err, Category: CategoryPermanent, Retries: n - 1, Context: "context cancelled"},
				Attempts: n - 1,
				Delays:   delays,
				Duration: time.Since(start),
			}
		}

		last = try(ctx, n)
		if last.OK {
			return RetryResult[T]{
				Value:    last.Value,
				Attempts: n,
				Delays:   delays,
				Duration: time.Since(start),
			}
		}

		if !isRetryable(last.Err) {
			return RetryResult[T]{
				Err: &CategorizedError{
					Err:      last.Err,
					Category: Categorize(last.Err),
					Retries:  n,
				},
				Attempts: n,
				Delays:   delays,
				Duration: time.Since(start),
			}
		}

		if n == maxAttempts {
			break
		}

		delay := calculateBackoff(backoff, cfg.Jitter)
		if cfg.OnRetry != nil {
			cfg.OnRetry(n, delay, last.Err)
		}
		if err := sleep(ctx, delay); err != nil {
			return RetryResult[T]{
				Err:      &CategorizedError{Err: err, Category: CategoryPermanent, Retries: n, Context: "context cancelled during backoff"},
				Attempts: n,
				Delays:   delays,
				Duration: time.Since(start),
			}
		}
		delays = append(delays, delay)

		backoff = time.Duration(float64(backoff) * cfg.BackoffFactor)
		if cfg.MaxBackoff > 0 && backoff > cfg.MaxBackoff {
			backoff = cfg.MaxBackoff
		}
	}

	return RetryResult[T]{
		Err: &CategorizedError{
			Err:      last.Err,
			Category: Categorize(last.Err),
			Retries:  maxAttempts,
			Context:  "max retries exceeded",
		},
		Attempts: maxAttempts,
		Delays:   delays,
		Duration: time.Since(start),
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// calculateBackoff returns the backoff duration with jitter applied.
func calculateBackoff(base time.Duration, jitter float64) time.Duration {
	if jitter <= 0 {
		return base
	}

	jitterAmount := float64(base) * jitter * (rand.Float64()*2 - 1)
	return time.Duration(float64(base) + jitterAmount)
}

// RetryOption configures retry behavior.
type RetryOption func(*RetryConfig)

// WithMaxAttempts sets the maximum number of attempts.
func WithMaxAttempts(n int) RetryOption {
	return func(cfg *RetryConfig) {
		cfg.MaxAttempts = n
	}
}

// WithInitialBackoff sets the initial backoff duration.
func WithInitialBackoff(d time.Duration) RetryOption {
	return func(cfg *RetryConfig) {
		cfg.InitialBackoff = d
	}
}

// WithMaxBackoff sets the maximum backoff duration.
func WithMaxBackoff(d time.Duration) RetryOption {
	return func(cfg *RetryConfig) {
		cfg.MaxBackoff = d
	}
}

// WithBackoffFactor sets the backoff multiplier.
func WithBackoffFactor(f float64) RetryOption {
	return func(cfg *RetryConfig) {
		cfg.BackoffFactor = f
	}
}

// WithJitter sets the jitter factor.
func WithJitter(j float64) RetryOption {
	return func(cfg *RetryConfig) {
		cfg.Jitter = j
	}
}

// WithRetryableFunc sets a custom retryability check.
func WithRetryableFunc(fn func(error) bool) RetryOption {
	return func(cfg *RetryConfig) {
		cfg.RetryableFunc = fn
	}
}

// WithSleep replaces the backoff sleeper. Tests pass one that returns immediately.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) RetryOption {
	return func(cfg *RetryConfig) {
		cfg.Sleep = fn
	}
}

// WithOnRetry registers a hook run before each backoff.
func WithOnRetry(fn func(attempt int, delay time.Duration, err error)) RetryOption {
	return func(cfg *RetryConfig) {
		cfg.OnRetry = fn
	}
}

// NewRetryConfig creates a retry configuration from base with the given options.
func NewRetryConfig(base RetryConfig, opts ...RetryOption) RetryConfig {
	cfg := base
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
