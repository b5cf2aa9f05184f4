package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
)

// CompleteStructured asks the model for output matching schema and decodes
// it into T.
//
// The schema is offered as a forced tool, so a compliant model answers with a
// tool call whose arguments are the payload. A plain JSON text answer is
// accepted as a fallback. Output that is missing, not JSON, or fails schema
// validation yields a *ParseError; transport failures are returned as-is.
func CompleteStructured[T any](ctx context.Context, c Client, req CompletionRequest, schema *Schema) (T, *CompletionResponse, error) {
	var zero T
	if c == nil {
		return zero, nil, &ConfigurationError{Reason: "model client is not configured"}
	}
	if schema == nil {
		return zero, nil, &ConfigurationError{Reason: "structured output requires a schema"}
	}

	req = req.Clone()
	req.Tools = append(req.Tools, schema.Tool())
	req.ToolChoice = schema.Name

	resp, err := c.Complete(ctx, req)
	if err != nil {
		return zero, nil, err
	}

	raw := structuredPayload(resp, schema.Name)
	if raw == "" {
		return zero, resp, &ParseError{Raw: resp.Content, Err: errors.New("model returned no structured output")}
	}

	if err := schema.Validate([]byte(raw)); err != nil {
		return zero, resp, &ParseError{Raw: raw, Err: err}
	}

	var out T
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return zero, resp, &ParseError{Raw: raw, Err: err}
	}
	return out, resp, nil
}

// structuredPayload returns the arguments of the schema tool call, or the
// text content stripped of a markdown code fence.
func structuredPayload(resp *CompletionResponse, toolName string) string {
	for _, call := range resp.ToolCalls {
		if call.Name == toolName && len(call.Arguments) > 0 {
			return string(call.Arguments)
		}
	}

	text := strings.TrimSpace(resp.Content)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
		text = strings.TrimSpace(text)
	}
	if strings.HasPrefix(text, "{") {
		return text
	}
	return ""
}
