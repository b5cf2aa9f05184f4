package interview

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/randalmurphal/interviewflow/pkg/flowgraph/llm"
	"github.com/randalmurphal/interviewflow/pkg/flowgraph/registry"
)

// Tool names known to the engine.
const (
	ServerTimeTool   = "get_server_time"
	EndInterviewTool = "end_interview"
)

// Tool is a function the model may call.
type Tool interface {
	Definition() llm.Tool
	Execute(ctx context.Context, args json.RawMessage) (string, error)
}

type funcTool[A any] struct {
	def llm.Tool
	fn  func(ctx context.Context, args A) (string, error)
}

// NewTool builds a Tool whose parameter schema is reflected from A.
func NewTool[A any](name, description string, fn func(ctx context.Context, args A) (string, error)) (Tool, error) {
	schema, err := llm.SchemaFor[A](name, description)
	if err != nil {
		return nil, fmt.Errorf("tool %s: %w", name, err)
	}
	return &funcTool[A]{def: schema.Tool(), fn: fn}, nil
}

func (t *funcTool[A]) Definition() llm.Tool { return t.def }

func (t *funcTool[A]) Execute(ctx context.Context, raw json.RawMessage) (string, error) {
	var args A
	if len(raw) > 0 && strings.TrimSpace(string(raw)) != "null" {
		if err := json.Unmarshal(raw, &args); err != nil {
			return "", fmt.Errorf("decode arguments: %w", err)
		}
	}
	return t.fn(ctx, args)
}

// ServerTimeArgs takes no parameters.
type ServerTimeArgs struct{}

// EndInterviewArgs are the arguments of end_interview.
type EndInterviewArgs struct {
	Reason string `json:"reason" jsonschema:"description=Why the interview is ending"`
}

// ToolSet is the dispatch table of the Execute Tools node.
type ToolSet struct {
	tools *registry.Registry[string, Tool]
}

// NewToolSet builds a table from tools. Duplicate names are an error.
func NewToolSet(tools ...Tool) (*ToolSet, error) {
	ts := &ToolSet{tools: registry.New[string, Tool]()}
	for _, t := range tools {
		name := t.Definition().Name
		if !ts.tools.Add(name, t) {
			return nil, fmt.Errorf("duplicate tool %q", name)
		}
	}
	return ts, nil
}

// DefaultToolSet returns get_server_time and end_interview. now supplies
// the server clock.
func DefaultToolSet(now func() time.Time) (*ToolSet, error) {
	if now == nil {
		now = time.Now
	}
	timeTool, err := NewTool(ServerTimeTool,
		"Returns the current server time in RFC 3339 format, in UTC.",
		func(context.Context, ServerTimeArgs) (string, error) {
			return now().UTC().Format(time.RFC3339), nil
		})
	if err != nil {
		return nil, err
	}

	endTool, err := NewTool(EndInterviewTool,
		"Ends the interview. Call this once the interview is complete or cannot continue.",
		func(_ context.Context, args EndInterviewArgs) (string, error) {
			if strings.TrimSpace(args.Reason) == "" {
				return "Interview ended.", nil
			}
			return "Interview ended: " + args.Reason, nil
		})
	if err != nil {
		return nil, err
	}

	return NewToolSet(timeTool, endTool)
}

// Definitions returns the tool definitions ordered by name.
func (ts *ToolSet) Definitions() []llm.Tool {
	tools := registry.Sorted(ts.tools)
	defs := make([]llm.Tool, len(tools))
	for i, t := range tools {
		defs[i] = t.Definition()
	}
	return defs
}

// Call runs the named tool. Panics inside the tool are returned as errors.
func (ts *ToolSet) Call(ctx context.Context, name string, args json.RawMessage) (result string, err error) {
	t, ok := ts.tools.Get(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrToolNotFound, name)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool panicked: %v", r)
		}
	}()
	return t.Execute(ctx, args)
}
