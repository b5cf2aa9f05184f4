package llm

import (
	"context"
	"sync"
)

// MockResult is one scripted outcome of MockClient.Complete.
type MockResult struct {
	Response *CompletionResponse
	Err      error
}

// MockClient is a Client for tests.
//
// Outcomes are chosen in this order: scripted results (consumed once each),
// the custom complete function, the configured error, then the fixed or
// cycling text responses.
type MockClient struct {
	mu           sync.Mutex
	response     string
	responses    []string
	index        int
	err          error
	completeFunc func(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	script       []MockResult
	scriptPos    int

	// Calls records every request received, in order.
	Calls []CompletionRequest
}

// NewMockClient returns a mock that answers every call with response.
func NewMockClient(response string) *MockClient {
	return &MockClient{response: response}
}

// WithResponses cycles through responses on successive calls.
func (m *MockClient) WithResponses(responses ...string) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses = responses
	m.index = 0
	return m
}

// WithError makes every call fail with err.
func (m *MockClient) WithError(err error) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
	return m
}

// WithCompleteFunc delegates calls to fn.
func (m *MockClient) WithCompleteFunc(fn func(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.completeFunc = fn
	return m
}

// WithScript queues results returned before any other behavior applies.
func (m *MockClient) WithScript(results ...MockResult) *MockClient {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, results...)
	return m
}

// Complete implements Client.
func (m *MockClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.Calls = append(m.Calls, req.Clone())

	if m.scriptPos < len(m.script) {
		r := m.script[m.scriptPos]
		m.scriptPos++
		m.mu.Unlock()
		return r.Response, r.Err
	}

	fn := m.completeFunc
	if fn != nil {
		m.mu.Unlock()
		return fn(ctx, req)
	}

	if m.err != nil {
		err := m.err
		m.mu.Unlock()
		return nil, err
	}

	content := m.response
	if len(m.responses) > 0 {
		content = m.responses[m.index%len(m.responses)]
		m.index++
	}
	m.mu.Unlock()

	input := approxTokens(req.SystemPrompt)
	for _, msg := range req.Messages {
		input += approxTokens(msg.Content)
	}
	if input == 0 {
		input = 1
	}
	output := approxTokens(content)
	if output == 0 {
		output = 1
	}

	return &CompletionResponse{
		Content:      content,
		Model:        req.Model,
		FinishReason: "stop",
		Usage: TokenUsage{
			InputTokens:  input,
			OutputTokens: output,
			TotalTokens:  input + output,
		},
	}, nil
}

// CallCount returns the number of calls received.
func (m *MockClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}

// LastCall returns the most recent request, or nil.
func (m *MockClient) LastCall() *CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Calls) == 0 {
		return nil
	}
	last := m.Calls[len(m.Calls)-1]
	return &last
}

// Reset clears recorded calls and rewinds responses and script.
func (m *MockClient) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = nil
	m.index = 0
	m.scriptPos = 0
}

// roughly four characters per token
func approxTokens(s string) int {
	return (len(s) + 3) / 4
}
