package interview

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/randalmurphal/interviewflow/pkg/flowgraph/llm"
)

// SkillAssessment scores one skill.
type SkillAssessment struct {
	Skill    string  `json:"skill"`
	Score    float64 `json:"score" jsonschema:"minimum=0,maximum=10"`
	Evidence string  `json:"evidence,omitempty"`
}

// ReportContent is the model-authored part of a Report.
type ReportContent struct {
	Summary          string            `json:"summary"`
	OverallScore     float64           `json:"overall_score" jsonschema:"minimum=0,maximum=10"`
	Recommendation   string            `json:"recommendation" jsonschema:"enum=strong_hire,enum=hire,enum=no_hire,enum=strong_no_hire"`
	Strengths        []string          `json:"strengths"`
	Weaknesses       []string          `json:"weaknesses"`
	SkillAssessments []SkillAssessment `json:"skill_assessments"`
}

// Report is the final evaluation of a thread.
type Report struct {
	ReportContent
	BehaviorProfile *BehaviorProfile `json:"behavior_profile,omitempty"`
	GeneratedAt     time.Time        `json:"generated_at"`
}

var reportSchema = llm.MustSchemaFor[ReportContent]("interview_report",
	"Record the final evaluation of the interview.")

// GenerateReport summarizes the conversation of threadID in one structured
// model call. It does not run the turn graph or modify the thread.
func (e *Engine) GenerateReport(ctx context.Context, threadID string, turn Turn) (*Report, error) {
	state, err := e.State(ctx, threadID)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Position: %s\n", orDefault(turn.Interview.Title, "unspecified"))
	if len(turn.Interview.Skills) > 0 {
		fmt.Fprintf(&b, "Skills assessed: %s\n", strings.Join(turn.Interview.Skills, ", "))
	}
	if state.BehaviorProfile != nil {
		if prof, err := json.Marshal(state.BehaviorProfile.BehaviorAssessment); err == nil {
			fmt.Fprintf(&b, "Latest behavior assessment: %s\n", prof)
		}
	}
	b.WriteString("\nTranscript:\n")
	b.WriteString(transcript(state.Messages))

	content, _, err := llm.CompleteStructured[ReportContent](ctx, e.nodes.model, llm.CompletionRequest{
		SystemPrompt: reportPrompt,
		Messages:     []llm.Message{{Role: llm.RoleUser, Content: b.String()}},
		Model:        e.nodes.modelID,
		MaxTokens:    e.nodes.maxTokens,
	}, reportSchema)
	if err != nil {
		return nil, fmt.Errorf("thread %s: generate report: %w", threadID, err)
	}

	return &Report{
		ReportContent:   content,
		BehaviorProfile: state.BehaviorProfile,
		GeneratedAt:     e.clock(),
	}, nil
}
