package interview

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSystemPrompt(t *testing.T) {
	turn := Turn{
		Interview:   Interview{Title: "Backend Engineer", Description: "Build payment APIs."},
		Candidate:   Candidate{Name: "Sam", Background: "Five years of Go."},
		Interviewer: Interviewer{Name: "Alex", Company: "Acme"},
	}

	out := systemPrompt(turn, "Skills: go, sql")

	assert.Contains(t, out, "You are Alex, conducting a job interview on behalf of Acme for the position of Backend Engineer.")
	assert.Contains(t, out, "Build payment APIs.")
	assert.Contains(t, out, "Candidate: Sam")
	assert.Contains(t, out, "Background: Five years of Go.")
	assert.Contains(t, out, "Skills: go, sql")
	assert.NotContains(t, out, "\n\n\n")
}

func TestSystemPrompt_Defaults(t *testing.T) {
	out := systemPrompt(Turn{}, "")

	assert.Contains(t, out, "You are an interviewer")
	assert.Contains(t, out, "the hiring team")
	assert.Contains(t, out, "No description provided.")
	assert.Contains(t, out, "Candidate: the candidate")
	assert.NotContains(t, out, "Background:")
	assert.NotContains(t, out, "${")
}

func TestElapsedNote(t *testing.T) {
	start := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		now      time.Time
		duration time.Duration
		want     string
	}{
		{"with duration", start.Add(12*time.Minute + 30*time.Second), 45 * time.Minute, "Elapsed interview time: 12 minutes (33 remaining of 45)."},
		{"overrun", start.Add(50 * time.Minute), 45 * time.Minute, "Elapsed interview time: 50 minutes (0 remaining of 45)."},
		{"open ended", start.Add(7 * time.Minute), 0, "Elapsed interview time: 7 minutes."},
		{"clock behind start", start.Add(-time.Minute), 0, "Elapsed interview time: 0 minutes."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, elapsedNote(start, tt.now, tt.duration))
		})
	}
}

func TestTranscript(t *testing.T) {
	messages := []Message{
		{ID: "h1", Role: RoleHuman, Content: "Hello"},
		{ID: "m1", Role: RoleModel, ToolCalls: []ToolCall{{ID: "c1", Name: ServerTimeTool}}},
		{ID: "t1", Role: RoleTool, Content: "2026-01-01T10:00:00Z"},
		{ID: "m2", Role: RoleModel, Content: "Tell me about yourself."},
		{ID: "h2", Role: RoleHuman, Attachment: &Attachment{Ref: "up/1.wav", Kind: AttachmentAudio}},
	}

	want := strings.Join([]string{
		"Candidate: Hello",
		"Interviewer: Tell me about yourself.",
		"Candidate: [attachment:audio up/1.wav]",
	}, "\n")
	assert.Equal(t, want, transcript(messages))
}

func TestHumanContent(t *testing.T) {
	m := Message{Role: RoleHuman, Content: "See my resume", Attachment: &Attachment{Ref: "r.pdf", Kind: AttachmentFile}}
	assert.Equal(t, "See my resume\n[attachment:file r.pdf]", humanContent(m))

	assert.Equal(t, "plain", humanContent(Message{Role: RoleHuman, Content: "plain"}))
}
