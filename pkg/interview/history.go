package interview

import (
	"context"
	"time"
)

// DisplayMessage is a message as shown to a reader of the conversation.
type DisplayMessage struct {
	ID         string             `json:"id"`
	Role       Role               `json:"role"`
	Content    string             `json:"content"`
	CreatedAt  time.Time          `json:"created_at"`
	Structured *StructuredPayload `json:"structured,omitempty"`
	ToolName   string             `json:"tool_name,omitempty"`
	Attachment *Attachment        `json:"attachment,omitempty"`
}

// HistoryOptions controls GetHistory.
type HistoryOptions struct {
	// IncludeToolCalls keeps tool results and replies that only call tools.
	IncludeToolCalls bool
}

// GetHistory returns the conversation of threadID for presentation. An
// unknown thread has an empty history.
func (e *Engine) GetHistory(ctx context.Context, threadID string, opts HistoryOptions) ([]DisplayMessage, error) {
	if threadID == "" {
		return nil, ErrThreadIDRequired
	}
	state, _, err := e.load(ctx, threadID)
	if err != nil {
		return nil, err
	}
	return displayMessages(state.Messages, opts), nil
}

func displayMessages(messages []Message, opts HistoryOptions) []DisplayMessage {
	out := make([]DisplayMessage, 0, len(messages))
	for _, m := range messages {
		if !opts.IncludeToolCalls {
			if m.Role == RoleTool {
				continue
			}
			if m.Role == RoleModel && len(m.ToolCalls) > 0 && !m.HasText() {
				continue
			}
		}
		out = append(out, DisplayMessage{
			ID:         m.ID,
			Role:       m.Role,
			Content:    m.Content,
			CreatedAt:  m.CreatedAt,
			Structured: m.Structured,
			ToolName:   m.ToolName,
			Attachment: m.Attachment,
		})
	}
	return out
}
