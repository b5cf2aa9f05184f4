// Package llm defines the model client contract used by workflow nodes and
// the pieces layered on top of it: tool binding, structured output, retries
// with cache busting, rate limiting, and an Anthropic Messages adapter.
package llm

import "context"

// Client sends one completion request to a language model.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}

// ClientFunc adapts a function to Client.
type ClientFunc func(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

// Complete implements Client.
func (f ClientFunc) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	return f(ctx, req)
}

// BindTools returns a client that offers tools on every request, in addition
// to any tools the request already carries.
func BindTools(c Client, tools ...Tool) Client {
	bound := append([]Tool(nil), tools...)
	return ClientFunc(func(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
		if c == nil {
			return nil, &ConfigurationError{Reason: "model client is not configured"}
		}
		req = req.Clone()
		req.Tools = append(req.Tools, bound...)
		return c.Complete(ctx, req)
	})
}
