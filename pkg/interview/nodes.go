package interview

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/randalmurphal/interviewflow/pkg/flowgraph"
	"github.com/randalmurphal/interviewflow/pkg/flowgraph/llm"
	"github.com/randalmurphal/interviewflow/pkg/flowgraph/observability"
	"github.com/randalmurphal/interviewflow/pkg/interview/digest"
)

// Node IDs of the turn graph.
const (
	NodeGenerate = "generate"
	NodeTools    = "tools"
	NodeValidate = "validate"
	NodeAnalyze  = "analyze"
	NodeConvert  = "convert"
)

const (
	// maxConversionRetries is the number of conversion attempts allowed
	// after the first one.
	maxConversionRetries = 3

	// confidenceThreshold ends the conversion loop once exceeded.
	confidenceThreshold = 0.7

	// minAnalyzableRunes is the shortest answer worth a behavior assessment.
	minAnalyzableRunes = 15

	// validationContext is the number of prior messages shown to the
	// validator.
	validationContext = 6
)

var controlPhrases = map[string]bool{
	"start":         true,
	"continue":      true,
	"next":          true,
	"next question": true,
	"skip":          true,
	"yes":           true,
	"no":            true,
	"ok":            true,
	"okay":          true,
	"ready":         true,
	"begin":         true,
}

// validationVerdict is the answer of the reply validator.
type validationVerdict struct {
	Valid  bool   `json:"valid" jsonschema:"description=Whether the reply can be shown to the candidate"`
	Reason string `json:"reason,omitempty"`
}

var (
	verdictSchema = llm.MustSchemaFor[validationVerdict]("validate_reply",
		"Report whether the interviewer's reply is valid.")
	behaviorSchema = llm.MustSchemaFor[BehaviorAssessment]("assess_candidate",
		"Record the assessment of the candidate's latest answer.")
)

// conversionEnvelope holds the fields the engine reads from any converted
// payload, whatever the target schema.
type conversionEnvelope struct {
	Confidence         *float64 `json:"confidence"`
	InterviewConcluded bool     `json:"interview_concluded"`
}

// nodes holds the collaborators shared by the node handlers.
type nodes struct {
	model     llm.Client
	tools     *ToolSet
	digester  *digest.Digester
	schema    *llm.Schema
	modelID   string
	maxTokens int
	metrics   observability.MetricsRecorder
}

// generate produces the next interviewer reply.
func (n *nodes) generate(ctx flowgraph.Context, s ThreadState) (ThreadState, error) {
	logger := ctx.Logger()

	if !s.InterviewActive {
		s.CorrectionRequired = false
		last := s.LastMessage(RoleModel)
		if last != nil && last.HasText() {
			return s, nil
		}
		closing := Message{
			ID:        uuid.NewString(),
			CreatedAt: ctx.Now(),
			Role:      RoleModel,
			Content:   ClosingMessage,
		}
		s.Messages = Reconcile(s.Messages, []Message{closing})
		s.LatestResponse = &closing
		logger.Info("interview inactive, emitted closing message")
		return s, nil
	}

	if s.CorrectionRequired {
		delta := pruneDelta(s.Messages)
		s.Messages = Reconcile(s.Messages, delta)
		s.LatestResponse = s.LastMessage(RoleModel)
		s.CorrectionRequired = false
		logger.Info("pruned rejected reply", "removed", len(delta))
	}

	system := systemPrompt(s.Turn, n.digest(ctx, s.Turn))
	if s.InterviewStartTime != nil {
		system += "\n\n" + elapsedNote(*s.InterviewStartTime, ctx.Now(), s.Turn.Interview.Duration)
	}

	client := llm.BindTools(n.model, n.tools.Definitions()...)
	resp, err := client.Complete(ctx, llm.CompletionRequest{
		SystemPrompt: system,
		Messages:     modelMessages(s.Messages),
		Model:        n.modelID,
		MaxTokens:    n.maxTokens,
	})
	if err != nil {
		return s, fmt.Errorf("generate reply: %w", err)
	}

	reply := Message{
		ID:        uuid.NewString(),
		CreatedAt: ctx.Now(),
		Role:      RoleModel,
		Content:   resp.Content,
	}
	for _, call := range resp.ToolCalls {
		reply.ToolCalls = append(reply.ToolCalls, ToolCall{ID: call.ID, Name: call.Name, Arguments: call.Arguments})
	}
	s.Messages = Reconcile(s.Messages, []Message{reply})
	s.LatestResponse = &reply

	if s.InterviewStartTime == nil && len(reply.ToolCalls) == 0 {
		start := turnStartTime(s.Messages, ctx.Now())
		s.InterviewStartTime = &start
	}
	return s, nil
}

// digest returns the question digest of the turn's interview, or "" when
// it cannot be computed.
func (n *nodes) digest(ctx flowgraph.Context, turn Turn) string {
	if n.digester == nil {
		return ""
	}
	text, err := n.digester.Get(ctx, digest.Source{
		InterviewID: turn.Interview.ID,
		Skills:      turn.Interview.Skills,
		Questions:   turn.Interview.Questions,
	})
	if err != nil {
		ctx.Logger().Warn("question digest unavailable", "interview_id", turn.Interview.ID, "error", err)
		return ""
	}
	return text
}

// turnStartTime reads the server time reported by a get_server_time call
// made after the last human message, falling back to now.
func turnStartTime(messages []Message, now time.Time) time.Time {
	for i := len(messages) - 1; i >= 0; i-- {
		m := messages[i]
		if m.Role == RoleHuman {
			break
		}
		if m.Role != RoleTool || m.ToolName != ServerTimeTool {
			continue
		}
		if t, err := time.Parse(time.RFC3339, strings.TrimSpace(m.Content)); err == nil {
			return t
		}
	}
	return now
}

// modelMessages converts the thread into the model client's message form.
func modelMessages(messages []Message) []llm.Message {
	out := make([]llm.Message, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleHuman:
			out = append(out, llm.Message{Role: llm.RoleUser, Content: humanContent(m)})
		case RoleModel:
			if !m.HasText() && len(m.ToolCalls) == 0 {
				continue
			}
			msg := llm.Message{Role: llm.RoleAssistant, Content: m.Content}
			for _, call := range m.ToolCalls {
				msg.ToolCalls = append(msg.ToolCalls, llm.ToolCall{ID: call.ID, Name: call.Name, Arguments: call.Arguments})
			}
			out = append(out, msg)
		case RoleTool:
			out = append(out, llm.Message{
				Role:       llm.RoleTool,
				Content:    m.Content,
				ToolCallID: m.ToolCallID,
				Name:       m.ToolName,
			})
		}
	}
	return out
}

// routeGenerate sends pending tool calls to the tools node.
func routeGenerate(_ flowgraph.Context, s ThreadState) string {
	if !s.InterviewActive {
		return flowgraph.END
	}
	if s.LatestResponse != nil && len(s.LatestResponse.ToolCalls) > 0 {
		return NodeTools
	}
	return NodeValidate
}

// runTools executes every call of the latest reply. Failures become the
// call's result text.
func (n *nodes) runTools(ctx flowgraph.Context, s ThreadState) (ThreadState, error) {
	if s.LatestResponse == nil {
		return s, nil
	}
	logger := ctx.Logger()

	var delta []Message
	for _, call := range s.LatestResponse.ToolCalls {
		start := time.Now()
		result, err := n.tools.Call(ctx, call.Name, call.Arguments)
		duration := time.Since(start)

		switch {
		case errors.Is(err, ErrToolNotFound):
			result = fmt.Sprintf("Tool %s not found.", call.Name)
		case err != nil:
			err = &ToolError{Tool: call.Name, CallID: call.ID, Err: err}
			result = "Error executing tool: " + err.Error()
		case call.Name == EndInterviewTool:
			s.InterviewActive = false
		}

		observability.LogToolCall(logger, call.Name, call.ID, float64(duration.Milliseconds()), err)
		n.metrics.RecordToolCall(ctx, call.Name, duration, err)

		delta = append(delta, Message{
			ID:         uuid.NewString(),
			CreatedAt:  ctx.Now(),
			Role:       RoleTool,
			Content:    result,
			ToolCallID: call.ID,
			ToolName:   call.Name,
		})
	}
	s.Messages = Reconcile(s.Messages, delta)
	return s, nil
}

// validate asks a second model whether the latest reply can stand.
func (n *nodes) validate(ctx flowgraph.Context, s ThreadState) (ThreadState, error) {
	idx := s.lastIndex(RoleModel)
	if idx < 0 || !s.Messages[idx].HasText() {
		s.CorrectionRequired = true
		ctx.Logger().Warn("reply has no text, correction required")
		return s, nil
	}
	reply := s.Messages[idx]

	prior := s.Messages[max(0, idx-validationContext):idx]
	req := llm.CompletionRequest{
		SystemPrompt: validationPrompt,
		Messages: []llm.Message{{
			Role:    llm.RoleUser,
			Content: "Conversation so far:\n" + transcript(prior) + "\n\nReply to review:\n" + reply.Content,
		}},
		Model:     n.modelID,
		MaxTokens: n.maxTokens,
	}

	verdict, _, err := llm.CompleteStructured[validationVerdict](ctx, n.model, req, verdictSchema)
	if err != nil {
		if errors.Is(err, llm.ErrParse) {
			ctx.Logger().Warn("validator output unreadable, accepting reply", "error", err)
			s.CorrectionRequired = false
			return s, nil
		}
		return s, fmt.Errorf("validate reply: %w", err)
	}

	s.CorrectionRequired = !verdict.Valid
	if !verdict.Valid {
		ctx.Logger().Info("reply rejected", "reason", verdict.Reason)
	}
	return s, nil
}

// analyze refreshes the behavior profile from the latest human answer.
// It never fails the turn.
func (n *nodes) analyze(ctx flowgraph.Context, s ThreadState) (ThreadState, error) {
	logger := ctx.Logger()

	human := s.LastMessage(RoleHuman)
	if human == nil || isBoilerplate(human.Content) {
		return s, nil
	}
	if s.BehaviorProfile != nil && s.BehaviorProfile.SourceMessageID == human.ID {
		return s, nil
	}

	content := "Latest answer:\n" + human.Content
	if s.BehaviorProfile != nil {
		prev, err := json.Marshal(s.BehaviorProfile.BehaviorAssessment)
		if err == nil {
			content = "Previous assessment:\n" + string(prev) + "\n\n" + content
		}
	}

	assessment, _, err := llm.CompleteStructured[BehaviorAssessment](ctx, n.model, llm.CompletionRequest{
		SystemPrompt: behaviorPrompt,
		Messages:     []llm.Message{{Role: llm.RoleUser, Content: content}},
		Model:        n.modelID,
		MaxTokens:    n.maxTokens,
	}, behaviorSchema)
	if err != nil {
		logger.Warn("behavior analysis failed", "error", err)
		return s, nil
	}

	s.BehaviorProfile = &BehaviorProfile{
		BehaviorAssessment: assessment,
		AssessedAt:         ctx.Now(),
		SourceMessageID:    human.ID,
	}
	return s, nil
}

// isBoilerplate reports whether content is a control phrase or too short
// to assess.
func isBoilerplate(content string) bool {
	text := strings.TrimSpace(content)
	if controlPhrases[strings.ToLower(text)] {
		return true
	}
	return utf8.RuneCountInString(text) < minAnalyzableRunes
}

// convert parses the latest reply into the target schema. Parse failures
// are recorded on the message.
func (n *nodes) convert(ctx flowgraph.Context, s ThreadState) (ThreadState, error) {
	attempts := s.ConversionAttempts
	s.ConversionAttempts++

	idx := s.lastIndex(RoleModel)
	if idx < 0 {
		return s, nil
	}
	target := s.Messages[idx]

	window := conversionWindow(attempts, len(s.Messages))
	prior := s.Messages[max(0, idx-window):idx]
	content := "Reply to convert:\n" + target.Content
	if len(prior) > 0 {
		content = "Conversation:\n" + transcript(prior) + "\n\n" + content
	}

	raw, _, err := llm.CompleteStructured[json.RawMessage](ctx, n.model, llm.CompletionRequest{
		SystemPrompt: conversionPrompt,
		Messages:     []llm.Message{{Role: llm.RoleUser, Content: content}},
		Model:        n.modelID,
		MaxTokens:    n.maxTokens,
	}, n.schema)

	var payload StructuredPayload
	switch {
	case errors.Is(err, llm.ErrParse):
		ctx.Logger().Warn("structured conversion failed", "attempt", attempts+1, "error", err)
		payload.Error = err.Error()
	case err != nil:
		return s, fmt.Errorf("convert reply: %w", err)
	default:
		var env conversionEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			payload.Error = err.Error()
			break
		}
		payload.Data = raw
		payload.Confidence = env.Confidence
		payload.Concluded = env.InterviewConcluded
	}

	target.Structured = &payload
	if payload.Concluded {
		target.Content = ClosingMessage
	}

	// Updated in place so the reply keeps its position.
	s.Messages = Reconcile(s.Messages, nil)
	s.Messages[idx] = target
	if s.LatestResponse != nil && s.LatestResponse.ID == target.ID {
		s.LatestResponse = &target
	}
	return s, nil
}

// conversionWindow is the number of prior messages shown on a conversion
// attempt: ceil(attempts * 25 * messageCount / 100).
func conversionWindow(attempts, messageCount int) int {
	return int(math.Ceil(float64(attempts*25*messageCount) / 100))
}

// routeConvert ends the turn once the payload is confident enough or the
// attempt ceiling is passed.
func routeConvert(_ flowgraph.Context, s ThreadState) string {
	if s.ConversionAttempts > maxConversionRetries {
		return flowgraph.END
	}
	if m := s.LastMessage(RoleModel); m != nil && m.Structured != nil {
		if c := m.Structured.Confidence; c != nil && *c > confidenceThreshold {
			return flowgraph.END
		}
	}
	return NodeConvert
}
