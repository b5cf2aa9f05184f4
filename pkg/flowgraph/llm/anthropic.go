package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	fgerrors "github.com/randalmurphal/interviewflow/pkg/flowgraph/errors"
)

// MessagesClient is the subset of the Anthropic SDK used by AnthropicClient.
// *sdk.MessageService satisfies it.
type MessagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// AnthropicClient implements Client over the Anthropic Messages API.
type AnthropicClient struct {
	msg         MessagesClient
	model       string
	maxTokens   int
	temperature float64
}

// AnthropicOption configures AnthropicClient.
type AnthropicOption func(*AnthropicClient)

// WithAnthropicModel sets the default model identifier.
func WithAnthropicModel(model string) AnthropicOption {
	return func(c *AnthropicClient) { c.model = model }
}

// WithAnthropicMaxTokens sets the default completion budget.
func WithAnthropicMaxTokens(n int) AnthropicOption {
	return func(c *AnthropicClient) { c.maxTokens = n }
}

// WithAnthropicTemperature sets the default sampling temperature.
func WithAnthropicTemperature(t float64) AnthropicOption {
	return func(c *AnthropicClient) { c.temperature = t }
}

// NewAnthropicClient wraps msg.
func NewAnthropicClient(msg MessagesClient, opts ...AnthropicOption) (*AnthropicClient, error) {
	if msg == nil {
		return nil, &ConfigurationError{Reason: "anthropic messages client is required"}
	}
	c := &AnthropicClient{
		msg:       msg,
		maxTokens: 4096,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewAnthropicFromAPIKey builds a client on the default SDK HTTP transport.
func NewAnthropicFromAPIKey(apiKey string, opts ...AnthropicOption) (*AnthropicClient, error) {
	if apiKey == "" {
		return nil, &ConfigurationError{Reason: "anthropic api key is required"}
	}
	ac := sdk.NewClient(option.WithAPIKey(apiKey))
	return NewAnthropicClient(&ac.Messages, opts...)
}

// Complete implements Client.
func (c *AnthropicClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	params, err := c.buildParams(req)
	if err != nil {
		return nil, err
	}

	msg, err := c.msg.New(ctx, *params)
	if err != nil {
		var apiErr *sdk.Error
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("anthropic messages.new: %w", &fgerrors.HTTPError{
				StatusCode: apiErr.StatusCode,
				Message:    apiErrorMessage(apiErr),
				Endpoint:   "messages",
			})
		}
		return nil, fmt.Errorf("anthropic messages.new: %w", err)
	}

	return translateMessage(msg)
}

func (c *AnthropicClient) buildParams(req CompletionRequest) (*sdk.MessageNewParams, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}
	if model == "" {
		return nil, &ConfigurationError{Reason: "anthropic model identifier is required"}
	}
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}

	msgs, system, err := encodeMessages(req.SystemPrompt, req.Messages)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, invalidRequest("at least one non-system message is required")
	}

	params := sdk.MessageNewParams{
		MaxTokens: int64(maxTokens),
		Messages:  msgs,
		Model:     sdk.Model(model),
	}
	if len(system) > 0 {
		params.System = system
	}

	temperature := req.Temperature
	if temperature <= 0 {
		temperature = c.temperature
	}
	if temperature > 0 {
		params.Temperature = sdk.Float(temperature)
	}

	if len(req.Tools) > 0 {
		tools, err := encodeTools(req.Tools)
		if err != nil {
			return nil, err
		}
		params.Tools = tools
	}
	if req.ToolChoice != "" {
		params.ToolChoice = sdk.ToolChoiceParamOfTool(req.ToolChoice)
	}

	return &params, nil
}

// encodeMessages converts the conversation. System messages are lifted into
// the system prompt; consecutive messages that map to the same Anthropic role
// are merged, since tool results must share one user turn.
func encodeMessages(systemPrompt string, msgs []Message) ([]sdk.MessageParam, []sdk.TextBlockParam, error) {
	var system []sdk.TextBlockParam
	if systemPrompt != "" {
		system = append(system, sdk.TextBlockParam{Text: systemPrompt})
	}

	var (
		out     []sdk.MessageParam
		blocks  []sdk.ContentBlockParamUnion
		curRole Role
	)
	flush := func() {
		if len(blocks) == 0 {
			return
		}
		if curRole == RoleAssistant {
			out = append(out, sdk.NewAssistantMessage(blocks...))
		} else {
			out = append(out, sdk.NewUserMessage(blocks...))
		}
		blocks = nil
	}

	for _, m := range msgs {
		role := m.Role
		if role == RoleTool {
			role = RoleUser
		}

		switch m.Role {
		case RoleSystem:
			if m.Content != "" {
				system = append(system, sdk.TextBlockParam{Text: m.Content})
			}
			continue
		case RoleUser, RoleAssistant, RoleTool:
		default:
			return nil, nil, invalidRequest("unsupported message role %q", m.Role)
		}

		if role != curRole {
			flush()
			curRole = role
		}

		switch m.Role {
		case RoleTool:
			blocks = append(blocks, sdk.NewToolResultBlock(m.ToolCallID, m.Content, false))
		case RoleAssistant:
			if strings.TrimSpace(m.Content) != "" {
				blocks = append(blocks, sdk.NewTextBlock(m.Content))
			}
			for _, call := range m.ToolCalls {
				input, err := decodeArguments(call.Arguments)
				if err != nil {
					return nil, nil, invalidRequest("tool call %s arguments: %v", call.ID, err)
				}
				blocks = append(blocks, sdk.NewToolUseBlock(call.ID, input, call.Name))
			}
		default:
			if strings.TrimSpace(m.Content) != "" {
				blocks = append(blocks, sdk.NewTextBlock(m.Content))
			}
		}
	}
	flush()

	return out, system, nil
}

// apiErrorMessage keeps the API's error text. sdk.Error.Error needs the
// request and response, which are missing on errors built without a round trip.
func apiErrorMessage(e *sdk.Error) string {
	if e.Request != nil && e.Response != nil {
		return e.Error()
	}
	msg := http.StatusText(e.StatusCode)
	if raw := e.RawJSON(); raw != "" {
		msg = strings.TrimSpace(msg + " " + raw)
	}
	if e.RequestID != "" {
		msg += " (Request-ID: " + e.RequestID + ")"
	}
	return msg
}

// invalidRequest reports a request rejected before it reaches the API.
// Sending it again cannot succeed.
func invalidRequest(format string, args ...any) error {
	return &ConfigurationError{Reason: "anthropic: " + fmt.Sprintf(format, args...)}
}

func decodeArguments(raw json.RawMessage) (map[string]any, error) {
	args := map[string]any{}
	if len(raw) == 0 {
		return args, nil
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, err
	}
	return args, nil
}

func encodeTools(tools []Tool) ([]sdk.ToolUnionParam, error) {
	out := make([]sdk.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		if t.Name == "" {
			return nil, invalidRequest("tool name is required")
		}
		schema := sdk.ToolInputSchemaParam{}
		if len(t.Parameters) > 0 {
			var m map[string]any
			if err := json.Unmarshal(t.Parameters, &m); err != nil {
				return nil, invalidRequest("tool %q schema: %v", t.Name, err)
			}
			// The SDK sets type itself.
			delete(m, "type")
			schema.ExtraFields = m
		}
		u := sdk.ToolUnionParamOfTool(schema, t.Name)
		if u.OfTool != nil && t.Description != "" {
			u.OfTool.Description = sdk.String(t.Description)
		}
		out = append(out, u)
	}
	return out, nil
}

func translateMessage(msg *sdk.Message) (*CompletionResponse, error) {
	if msg == nil {
		return nil, errors.New("anthropic: response message is nil")
	}

	resp := &CompletionResponse{
		Model:        string(msg.Model),
		FinishReason: string(msg.StopReason),
		Usage: TokenUsage{
			InputTokens:  int(msg.Usage.InputTokens),
			OutputTokens: int(msg.Usage.OutputTokens),
			TotalTokens:  int(msg.Usage.InputTokens + msg.Usage.OutputTokens),
		},
	}

	var text []string
	for _, block := range msg.Content {
		switch block.Type {
		case "text":
			if block.Text != "" {
				text = append(text, block.Text)
			}
		case "tool_use":
			resp.ToolCalls = append(resp.ToolCalls, ToolCall{
				ID:        block.ID,
				Name:      block.Name,
				Arguments: append(json.RawMessage(nil), block.Input...),
			})
		}
	}
	resp.Content = strings.Join(text, "\n")

	return resp, nil
}
