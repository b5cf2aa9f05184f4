package llm

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimited returns a client that waits on limiter before each request.
// A nil limiter disables limiting.
func RateLimited(c Client, limiter *rate.Limiter) Client {
	if limiter == nil {
		return c
	}
	return ClientFunc(func(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}
		return c.Complete(ctx, req)
	})
}

// NewLimiter builds a token bucket allowing rps requests per second with the
// given burst. rps <= 0 returns nil.
func NewLimiter(rps float64, burst int) *rate.Limiter {
	if rps <= 0 {
		return nil
	}
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}
