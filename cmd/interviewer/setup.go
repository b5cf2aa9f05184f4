package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/randalmurphal/interviewflow/pkg/flowgraph/checkpoint"
	"github.com/randalmurphal/interviewflow/pkg/flowgraph/config"
	fgerrors "github.com/randalmurphal/interviewflow/pkg/flowgraph/errors"
	"github.com/randalmurphal/interviewflow/pkg/flowgraph/llm"
	"github.com/randalmurphal/interviewflow/pkg/flowgraph/observability"
	"github.com/randalmurphal/interviewflow/pkg/interview"
	"github.com/randalmurphal/interviewflow/pkg/interview/digest"
)

// newLogger builds the slog handler described by s.
func newLogger(w io.Writer, s config.LogSettings) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s.Level))); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", s.Level, err)
	}
	opts := &slog.HandlerOptions{Level: level}

	switch s.Format {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", s.Format)
	}
}

// openStore opens the session store selected by s.
func openStore(ctx context.Context, s config.StoreSettings) (checkpoint.Store, error) {
	switch s.Backend {
	case config.BackendMemory:
		return checkpoint.NewMemoryStore(), nil
	case config.BackendSQLite:
		return checkpoint.NewSQLiteStore(s.SQLitePath)
	case config.BackendRedis:
		return checkpoint.DialRedis(ctx, s.RedisAddr,
			checkpoint.WithKeyPrefix(s.RedisPrefix),
			checkpoint.WithTTL(s.RedisTTL),
		)
	default:
		return nil, fmt.Errorf("unknown store backend %q", s.Backend)
	}
}

// newDigester builds the question digester. The returned close func
// releases the redis connection when one was opened.
func newDigester(ctx context.Context, s config.Settings, logger *slog.Logger) (*digest.Digester, func() error, error) {
	opts := []digest.Option{
		digest.WithMaxChars(s.Digest.MaxChars),
		digest.WithLogger(logger),
	}

	if s.Digest.Backend != config.BackendRedis {
		return digest.New(digest.NewMemoryCache(s.Digest.TTL), opts...), func() error { return nil }, nil
	}

	client := redis.NewClient(&redis.Options{Addr: s.Store.RedisAddr})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("connect digest cache %s: %w", s.Store.RedisAddr, err)
	}
	return digest.New(digest.NewRedisCache(client, "", s.Digest.TTL), opts...), client.Close, nil
}

// newModel builds the Anthropic client, rate limited when configured.
func newModel(s config.ModelSettings, apiKey string) (llm.Client, error) {
	client, err := llm.NewAnthropicFromAPIKey(apiKey,
		llm.WithAnthropicModel(s.ID),
		llm.WithAnthropicMaxTokens(s.MaxTokens),
		llm.WithAnthropicTemperature(s.Temperature),
	)
	if err != nil {
		return nil, err
	}
	return llm.RateLimited(client, llm.NewLimiter(s.RequestsPerSecond, s.Burst)), nil
}

// retryPolicy adapts the model retry policy to the configured attempts and
// initial backoff. The maximum delay keeps the doubling schedule intact.
func retryPolicy(s config.RetrySettings) fgerrors.RetryConfig {
	maxBackoff := s.InitialBackoff
	for i := 2; i < s.Attempts; i++ {
		maxBackoff *= 2
	}
	return fgerrors.NewRetryConfig(fgerrors.ModelRetry,
		fgerrors.WithMaxAttempts(s.Attempts),
		fgerrors.WithInitialBackoff(s.InitialBackoff),
		fgerrors.WithMaxBackoff(maxBackoff),
	)
}

// app bundles the engine with the resources it holds open.
type app struct {
	engine  *interview.Engine
	logger  *slog.Logger
	closers []func() error
}

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

// newApp wires settings into a ready engine.
func newApp(ctx context.Context, cli *CLI, logOut io.Writer) (*app, error) {
	s, err := cli.settings()
	if err != nil {
		return nil, err
	}
	logger, err := newLogger(logOut, s.Log)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logger)

	model, err := newModel(s.Model, s.APIKey())
	if err != nil {
		return nil, err
	}

	a := &app{logger: logger}

	store, err := openStore(ctx, s.Store)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", s.Store.Backend, err)
	}
	a.closers = append(a.closers, store.Close)

	digester, closeDigest, err := newDigester(ctx, s, logger)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.closers = append(a.closers, closeDigest)

	opts := []interview.Option{
		interview.WithLogger(logger),
		interview.WithModel(s.Model.ID, s.Model.MaxTokens),
		interview.WithDigester(digester),
		interview.WithMaxIterations(s.Engine.MaxIterations),
		interview.WithInvokerOptions(llm.WithRetryPolicy(retryPolicy(s.Retry))),
	}
	if cli.Telemetry {
		opts = append(opts,
			interview.WithMetrics(observability.NewMetricsRecorder()),
			interview.WithTracing(true),
		)
	}

	a.engine, err = interview.New(store, model, opts...)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	logger.Debug("interviewer ready",
		"model", s.Model.ID,
		"store", s.Store.Backend,
		"digest", s.Digest.Backend,
	)
	return a, nil
}
