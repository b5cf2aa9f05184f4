package interview

import (
	"encoding/json"
	"strings"
	"time"
)

// Role identifies who authored a message.
type Role string

// Message roles.
const (
	RoleHuman Role = "human"
	RoleModel Role = "model"
	RoleTool  Role = "tool"
)

// AttachmentKind classifies an uploaded attachment.
type AttachmentKind string

// Attachment kinds.
const (
	AttachmentAudio AttachmentKind = "audio"
	AttachmentFile  AttachmentKind = "file"
	AttachmentImage AttachmentKind = "image"
)

// Attachment references an upload handled outside the engine.
type Attachment struct {
	Ref  string         `json:"ref"`
	Kind AttachmentKind `json:"kind"`
}

// ToolCall is a model request to run a named tool.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// StructuredPayload is the schema-validated form of a model response.
//
// Exactly one of Data and Error is set. Confidence is nil when the parsed
// payload did not report one.
type StructuredPayload struct {
	Data       json.RawMessage `json:"data,omitempty"`
	Confidence *float64        `json:"confidence,omitempty"`
	Concluded  bool            `json:"concluded,omitempty"`
	Error      string          `json:"error,omitempty"`
}

// Message is one entry of a thread's conversation.
type Message struct {
	ID         string             `json:"id"`
	CreatedAt  time.Time          `json:"created_at"`
	Role       Role               `json:"role"`
	Content    string             `json:"content"`
	ToolCalls  []ToolCall         `json:"tool_calls,omitempty"`
	ToolCallID string             `json:"tool_call_id,omitempty"`
	ToolName   string             `json:"tool_name,omitempty"`
	Attachment *Attachment        `json:"attachment,omitempty"`
	Structured *StructuredPayload `json:"structured,omitempty"`

	// Deleted marks a delta entry for removal. It is never persisted.
	Deleted bool `json:"-"`
}

// HasText reports whether the message carries human-readable text.
func (m Message) HasText() bool {
	return strings.TrimSpace(m.Content) != ""
}

// BehaviorAssessment is a structured judgement of how the candidate is doing.
type BehaviorAssessment struct {
	SkillLevel           string   `json:"skill_level" jsonschema:"enum=beginner,enum=intermediate,enum=advanced,enum=expert"`
	Confidence           float64  `json:"confidence" jsonschema:"minimum=0,maximum=1,description=How confident the candidate appears"`
	CommunicationClarity float64  `json:"communication_clarity" jsonschema:"minimum=0,maximum=1"`
	TechnicalDepth       float64  `json:"technical_depth" jsonschema:"minimum=0,maximum=1"`
	DifficultyAdjustment int      `json:"difficulty_adjustment" jsonschema:"minimum=-2,maximum=2,description=Recommended change in question difficulty"`
	Trend                string   `json:"trend" jsonschema:"enum=improving,enum=steady,enum=declining"`
	Observations         []string `json:"observations,omitempty"`
}

// BehaviorProfile is the latest assessment carried from turn to turn.
type BehaviorProfile struct {
	BehaviorAssessment
	AssessedAt time.Time `json:"assessed_at"`
	// SourceMessageID is the human message the assessment was made from.
	SourceMessageID string `json:"source_message_id"`
}

// ThreadState is the persisted state of one interview attempt.
type ThreadState struct {
	Messages           []Message        `json:"messages"`
	LatestResponse     *Message         `json:"latest_response,omitempty"`
	ConversionAttempts int              `json:"conversion_attempts"`
	CorrectionRequired bool             `json:"correction_required"`
	InterviewStartTime *time.Time       `json:"interview_start_time,omitempty"`
	BehaviorProfile    *BehaviorProfile `json:"behavior_profile,omitempty"`
	InterviewActive    bool             `json:"interview_active"`

	// Turn is the caller context of the running turn. It is never persisted.
	Turn Turn `json:"-"`
}

// NewThreadState returns the state of a thread that has no turns yet.
func NewThreadState() ThreadState {
	return ThreadState{
		Messages:        []Message{},
		InterviewActive: true,
	}
}

// LastMessage returns the most recent message with role, or nil.
func (s ThreadState) LastMessage(role Role) *Message {
	i := s.lastIndex(role)
	if i < 0 {
		return nil
	}
	m := s.Messages[i]
	return &m
}

func (s ThreadState) lastIndex(role Role) int {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Role == role {
			return i
		}
	}
	return -1
}

// Interview describes the position being interviewed for.
type Interview struct {
	ID          string
	Title       string
	Description string
	// Duration is the planned length; zero means open-ended.
	Duration  time.Duration
	Skills    []string
	Questions []string
}

// Candidate describes the person being interviewed.
type Candidate struct {
	Name       string
	Background string
}

// Interviewer describes who the model conducts the interview on behalf of.
type Interviewer struct {
	Name    string
	Company string
}

// Turn is the caller-supplied context of one turn.
type Turn struct {
	Interview   Interview
	Candidate   Candidate
	Interviewer Interviewer
}

// Input is the candidate's contribution to a turn. Both fields may be empty.
type Input struct {
	Text       string
	Attachment *Attachment
}

// IsEmpty reports whether the input adds nothing to the thread.
func (in Input) IsEmpty() bool {
	return strings.TrimSpace(in.Text) == "" && in.Attachment == nil
}
