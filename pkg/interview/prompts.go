package interview

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/randalmurphal/interviewflow/pkg/flowgraph/template"
)

// ClosingMessage is emitted when an interview ends without a final word
// from the model, and replaces responses whose structured form reports the
// interview as concluded.
const ClosingMessage = "Thank you for your time today. This concludes the interview. " +
	"We will be in touch about next steps."

var promptExpander = template.NewExpander(
	template.WithDollarStyle(false),
	template.WithMissingAction(template.MissingEmpty),
)

const systemPromptTemplate = `You are ${interviewer}, conducting a job interview on behalf of ${company} for the position of ${title}.

Position description:
${description:-No description provided.}

Candidate: ${candidate}
${background}

${digest}

Ask one question at a time. Adapt the difficulty to the candidate's answers.
Call get_server_time when you need the current time. Call end_interview when the interview is complete.`

// systemPrompt renders the interview system prompt.
func systemPrompt(turn Turn, digest string) string {
	background := ""
	if b := strings.TrimSpace(turn.Candidate.Background); b != "" {
		background = "Background: " + b
	}
	vars := map[string]any{
		"interviewer": orDefault(turn.Interviewer.Name, "an interviewer"),
		"company":     orDefault(turn.Interviewer.Company, "the hiring team"),
		"title":       orDefault(turn.Interview.Title, "the open role"),
		"candidate":   orDefault(turn.Candidate.Name, "the candidate"),
		"background":  background,
		"digest":      digest,
	}
	if d := strings.TrimSpace(turn.Interview.Description); d != "" {
		vars["description"] = d
	}
	out := promptExpander.MustExpand(systemPromptTemplate, vars)
	return collapseBlankLines(out)
}

// elapsedNote describes how far into the interview the conversation is.
func elapsedNote(start, now time.Time, duration time.Duration) string {
	elapsed := int(math.Max(0, now.Sub(start).Minutes()))
	if duration <= 0 {
		return fmt.Sprintf("Elapsed interview time: %d minutes.", elapsed)
	}
	total := int(duration.Minutes())
	remaining := total - elapsed
	if remaining < 0 {
		remaining = 0
	}
	return fmt.Sprintf("Elapsed interview time: %d minutes (%d remaining of %d).", elapsed, remaining, total)
}

const validationPrompt = `You review an interviewer's reply before the candidate sees it.
A reply is valid when it is coherent, stays in the interviewer role, asks at most one question, and does not reveal answers or grading.
Report whether the reply is valid and, if not, why.`

const conversionPrompt = `You convert an interviewer's reply into structured data.
Use the preceding conversation only as context; describe the final reply.
Report a confidence between 0 and 1 for how well the structure captures the reply.
Set interview_concluded only when the reply ends the interview.`

const behaviorPrompt = `You assess a candidate during a live interview from their latest answer.
If a previous assessment is given, use it to judge whether the candidate is improving, steady or declining.`

const reportPrompt = `You write the final evaluation of a completed interview from its transcript.
Be specific and cite evidence from the candidate's answers.`

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	blank := false
	for _, l := range lines {
		isBlank := strings.TrimSpace(l) == ""
		if isBlank && blank {
			continue
		}
		blank = isBlank
		out = append(out, l)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

// transcript renders messages for the secondary model calls.
func transcript(messages []Message) string {
	var b strings.Builder
	for _, m := range messages {
		switch m.Role {
		case RoleHuman:
			b.WriteString("Candidate: ")
			b.WriteString(humanContent(m))
		case RoleModel:
			if !m.HasText() {
				continue
			}
			b.WriteString("Interviewer: ")
			b.WriteString(m.Content)
		default:
			continue
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// humanContent is the model-facing text of a human message.
func humanContent(m Message) string {
	if m.Attachment == nil {
		return m.Content
	}
	note := fmt.Sprintf("[attachment:%s %s]", m.Attachment.Kind, m.Attachment.Ref)
	if strings.TrimSpace(m.Content) == "" {
		return note
	}
	return m.Content + "\n" + note
}
