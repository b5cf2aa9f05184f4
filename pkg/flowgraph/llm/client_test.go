package llm_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	fgerrors "github.com/randalmurphal/interviewflow/pkg/flowgraph/errors"
	"github.com/randalmurphal/interviewflow/pkg/flowgraph/llm"
)

func TestBindTools(t *testing.T) {
	mock := llm.NewMockClient("ok")
	timeTool := llm.Tool{Name: "get_server_time", Description: "Current time"}
	bound := llm.BindTools(mock, timeTool)

	req := userRequest("what time is it")
	req.Tools = []llm.Tool{{Name: "existing"}}

	_, err := bound.Complete(context.Background(), req)
	require.NoError(t, err)

	call := mock.LastCall()
	require.Len(t, call.Tools, 2)
	assert.Equal(t, "existing", call.Tools[0].Name)
	assert.Equal(t, "get_server_time", call.Tools[1].Name)

	// The caller's tool slice is not extended.
	assert.Len(t, req.Tools, 1)
}

func TestBindTools_NilClient(t *testing.T) {
	_, err := llm.BindTools(nil).Complete(context.Background(), userRequest("x"))
	assert.ErrorIs(t, err, llm.ErrConfiguration)
}

func TestClientFunc(t *testing.T) {
	c := llm.ClientFunc(func(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
		return &llm.CompletionResponse{Content: req.Messages[0].Content}, nil
	})
	resp, err := c.Complete(context.Background(), userRequest("echo"))
	require.NoError(t, err)
	assert.Equal(t, "echo", resp.Content)
}

func TestRateLimited(t *testing.T) {
	mock := llm.NewMockClient("ok")
	limited := llm.RateLimited(mock, llm.NewLimiter(1000, 1))

	for i := 0; i < 3; i++ {
		_, err := limited.Complete(context.Background(), userRequest("q"))
		require.NoError(t, err)
	}
	assert.Equal(t, 3, mock.CallCount())
}

func TestRateLimited_ContextEndsWhileWaiting(t *testing.T) {
	mock := llm.NewMockClient("ok")
	limiter := rate.NewLimiter(rate.Every(time.Hour), 1)
	limited := llm.RateLimited(mock, limiter)

	_, err := limited.Complete(context.Background(), userRequest("first"))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = limited.Complete(ctx, userRequest("second"))
	require.Error(t, err)
	assert.Equal(t, 1, mock.CallCount())
}

func TestNewLimiter(t *testing.T) {
	assert.Nil(t, llm.NewLimiter(0, 5))

	l := llm.NewLimiter(2, 0)
	require.NotNil(t, l)
	assert.Equal(t, 1, l.Burst())

	mock := llm.NewMockClient("ok")
	assert.Same(t, mock, llm.RateLimited(mock, nil))
}

func TestErrorCategories(t *testing.T) {
	assert.Equal(t, fgerrors.CategoryPermanent, fgerrors.Categorize(&llm.ConfigurationError{Reason: "x"}))
	assert.Equal(t, fgerrors.CategoryMalformed, fgerrors.Categorize(&llm.ParseError{Err: assert.AnError}))

	unavailable := &llm.ModelUnavailableError{Attempts: 6, Err: assert.AnError}
	assert.ErrorIs(t, unavailable, llm.ErrModelUnavailable)
	assert.ErrorIs(t, unavailable, assert.AnError)
	assert.Contains(t, unavailable.Error(), "6 attempts")
}
