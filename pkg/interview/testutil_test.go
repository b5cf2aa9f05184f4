package interview

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/randalmurphal/interviewflow/pkg/flowgraph/checkpoint"
	"github.com/randalmurphal/interviewflow/pkg/flowgraph/llm"
	"github.com/stretchr/testify/require"
)

// testClock is a settable clock.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// fakeModel answers generation requests from a queue and structured
// requests by schema name.
type fakeModel struct {
	mu sync.Mutex

	replies      []*llm.CompletionResponse
	defaultReply string

	verdicts    []bool
	verdictText string

	confidences []float64
	concluded   bool
	convertText string

	behaviorErr error

	requests []llm.CompletionRequest
	calls    map[string]int
}

const kindGenerate = "generate"

func newFakeModel(replies ...*llm.CompletionResponse) *fakeModel {
	return &fakeModel{
		replies:      replies,
		defaultReply: "Could you walk me through a recent project?",
		calls:        map[string]int{},
	}
}

func (f *fakeModel) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, req.Clone())
	kind := req.ToolChoice
	if kind == "" {
		kind = kindGenerate
	}
	f.calls[kind]++

	switch kind {
	case kindGenerate:
		if len(f.replies) > 0 {
			resp := f.replies[0]
			f.replies = f.replies[1:]
			return resp, nil
		}
		return textReply(f.defaultReply), nil

	case verdictSchema.Name:
		if f.verdictText != "" {
			return textReply(f.verdictText), nil
		}
		valid := true
		if len(f.verdicts) > 0 {
			valid = f.verdicts[0]
			f.verdicts = f.verdicts[1:]
		}
		return structuredReply(kind, map[string]any{"valid": valid, "reason": "checked"}), nil

	case behaviorSchema.Name:
		if f.behaviorErr != nil {
			return nil, f.behaviorErr
		}
		return structuredReply(kind, map[string]any{
			"skill_level":           "advanced",
			"confidence":            0.8,
			"communication_clarity": 0.7,
			"technical_depth":       0.9,
			"difficulty_adjustment": 1,
			"trend":                 "improving",
		}), nil

	case reportSchema.Name:
		return structuredReply(kind, map[string]any{
			"summary":           "Strong systems knowledge.",
			"overall_score":     8,
			"recommendation":    "hire",
			"strengths":         []string{"concurrency"},
			"weaknesses":        []string{"testing"},
			"skill_assessments": []map[string]any{
				{"skill": "go", "score": 8.5, "evidence": "explained channels"},
			},
		}), nil

	default:
		if f.convertText != "" {
			return textReply(f.convertText), nil
		}
		confidence := 0.9
		if len(f.confidences) > 0 {
			confidence = f.confidences[0]
			f.confidences = f.confidences[1:]
		}
		return structuredReply(kind, map[string]any{
			"kind":                "question",
			"question":            "Tell me more.",
			"confidence":          confidence,
			"interview_concluded": f.concluded,
		}), nil
	}
}

func (f *fakeModel) count(kind string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[kind]
}

// requestsOf returns the recorded requests of one kind.
func (f *fakeModel) requestsOf(kind string) []llm.CompletionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []llm.CompletionRequest
	for _, r := range f.requests {
		k := r.ToolChoice
		if k == "" {
			k = kindGenerate
		}
		if k == kind {
			out = append(out, r)
		}
	}
	return out
}

func textReply(content string) *llm.CompletionResponse {
	return &llm.CompletionResponse{Content: content, FinishReason: "end_turn"}
}

func toolReply(content string, calls ...llm.ToolCall) *llm.CompletionResponse {
	return &llm.CompletionResponse{Content: content, ToolCalls: calls, FinishReason: "tool_use"}
}

func structuredReply(name string, v any) *llm.CompletionResponse {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return toolReply("", llm.ToolCall{ID: "call-" + name, Name: name, Arguments: raw})
}

// recordingSleeper records backoff delays without sleeping.
type recordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *recordingSleeper) Sleep(_ context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return nil
}

type testEngine struct {
	*Engine
	store   *checkpoint.MemoryStore
	clock   *testClock
	sleeper *recordingSleeper
}

func newTestEngine(t *testing.T, model llm.Client, opts ...Option) *testEngine {
	t.Helper()
	store := checkpoint.NewMemoryStore()
	clock := newTestClock()
	sleeper := &recordingSleeper{}

	base := []Option{
		WithClock(clock.Now),
		WithModel("test-model", 1024),
		WithInvokerOptions(llm.WithSleeper(sleeper.Sleep)),
	}
	e, err := New(store, model, append(base, opts...)...)
	require.NoError(t, err)
	return &testEngine{Engine: e, store: store, clock: clock, sleeper: sleeper}
}

func countRole(messages []Message, role Role) int {
	n := 0
	for _, m := range messages {
		if m.Role == role {
			n++
		}
	}
	return n
}

var testTurn = Turn{
	Interview: Interview{
		ID:        "iv-1",
		Title:     "Backend Engineer",
		Duration:  45 * time.Minute,
		Skills:    []string{"Go", "SQL"},
		Questions: []string{"Explain goroutines."},
	},
	Candidate:   Candidate{Name: "Sam"},
	Interviewer: Interviewer{Name: "Alex", Company: "Acme"},
}
