package main

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/interviewflow/pkg/flowgraph/checkpoint"
	"github.com/randalmurphal/interviewflow/pkg/flowgraph/config"
	"github.com/randalmurphal/interviewflow/pkg/flowgraph/llm"
	"github.com/randalmurphal/interviewflow/pkg/interview"
)

func TestParseTurn(t *testing.T) {
	data := []byte(`
interview:
  id: iv-1
  title: Backend Engineer
  description: Build payment APIs.
  duration: 45m
  skills: [go, sql]
  questions:
    - Explain goroutines.
candidate:
  name: Sam
  background: Five years of Go.
interviewer:
  name: Alex
  company: Acme
`)

	turn, err := parseTurn(data)
	require.NoError(t, err)

	assert.Equal(t, "iv-1", turn.Interview.ID)
	assert.Equal(t, "Backend Engineer", turn.Interview.Title)
	assert.Equal(t, 45*time.Minute, turn.Interview.Duration)
	assert.Equal(t, []string{"go", "sql"}, turn.Interview.Skills)
	assert.Equal(t, []string{"Explain goroutines."}, turn.Interview.Questions)
	assert.Equal(t, "Sam", turn.Candidate.Name)
	assert.Equal(t, "Acme", turn.Interviewer.Company)
}

func TestParseTurn_Errors(t *testing.T) {
	_, err := parseTurn([]byte("interview: [unclosed"))
	assert.Error(t, err)

	_, err = parseTurn([]byte("interview:\n  duration: forever\n"))
	assert.ErrorContains(t, err, "duration")
}

func TestTurnFlags_CandidateOverride(t *testing.T) {
	turn, err := TurnFlags{Candidate: "Robin"}.turn()
	require.NoError(t, err)
	assert.Equal(t, "Robin", turn.Candidate.Name)
	assert.Zero(t, turn.Interview.Duration)
}

func TestParseAttach(t *testing.T) {
	in, err := parseAttach("audio up/1.wav my answer")
	require.NoError(t, err)
	require.NotNil(t, in.Attachment)
	assert.Equal(t, interview.AttachmentAudio, in.Attachment.Kind)
	assert.Equal(t, "up/1.wav", in.Attachment.Ref)
	assert.Equal(t, "my answer", in.Text)

	in, err = parseAttach("file resume.pdf")
	require.NoError(t, err)
	assert.Empty(t, in.Text)

	_, err = parseAttach("video clip.mp4")
	assert.Error(t, err)

	_, err = parseAttach("audio")
	assert.Error(t, err)
}

func TestRetryPolicy(t *testing.T) {
	policy := retryPolicy(config.RetrySettings{Attempts: 6, InitialBackoff: time.Second})
	assert.Equal(t, 6, policy.MaxAttempts)
	assert.Equal(t, time.Second, policy.InitialBackoff)
	assert.Equal(t, 16*time.Second, policy.MaxBackoff)
	assert.NotNil(t, policy.RetryableFunc)

	single := retryPolicy(config.RetrySettings{Attempts: 1, InitialBackoff: 500 * time.Millisecond})
	assert.Equal(t, 1, single.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, single.MaxBackoff)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	logger, err := newLogger(&buf, config.LogSettings{Level: "warn", Format: "json"})
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	_, err = newLogger(&buf, config.LogSettings{Level: "loud", Format: "text"})
	assert.Error(t, err)

	_, err = newLogger(&buf, config.LogSettings{Level: "info", Format: "xml"})
	assert.Error(t, err)
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	mem, err := openStore(ctx, config.StoreSettings{Backend: config.BackendMemory})
	require.NoError(t, err)
	assert.IsType(t, &checkpoint.MemoryStore{}, mem)
	require.NoError(t, mem.Close())

	path := filepath.Join(t.TempDir(), "threads.db")
	sqlite, err := openStore(ctx, config.StoreSettings{Backend: config.BackendSQLite, SQLitePath: path})
	require.NoError(t, err)
	assert.IsType(t, &checkpoint.SQLiteStore{}, sqlite)
	require.NoError(t, sqlite.Close())

	_, err = openStore(ctx, config.StoreSettings{Backend: "etcd"})
	assert.Error(t, err)
}

func TestNewModel_RequiresAPIKey(t *testing.T) {
	_, err := newModel(config.DefaultSettings().Model, "")
	var cfgErr *llm.ConfigurationError
	assert.ErrorAs(t, err, &cfgErr)
}

func newChatEngine(t *testing.T) *interview.Engine {
	t.Helper()
	eng, err := interview.New(checkpoint.NewMemoryStore(), llm.NewMockClient("Hello there."),
		interview.WithInvokerOptions(llm.WithSleeper(func(context.Context, time.Duration) error { return nil })),
	)
	require.NoError(t, err)
	return eng
}

func TestRunChat(t *testing.T) {
	ctx := context.Background()
	eng := newChatEngine(t)
	turn := interview.Turn{Interview: interview.Interview{ID: "iv-1", Title: "Backend Engineer"}}

	var out bytes.Buffer
	err := runChat(ctx, eng, "t1", turn, strings.NewReader("\nTell me\n/quit\nnever sent\n"), &out)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out.String(), "Interviewer: Hello there."))

	history, err := eng.GetHistory(ctx, "t1", interview.HistoryOptions{})
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, openingMessage, history[0].Content)
	assert.Equal(t, "Tell me", history[2].Content)

	t.Run("resumed thread replays history", func(t *testing.T) {
		var out bytes.Buffer
		err := runChat(ctx, eng, "t1", turn, strings.NewReader(""), &out)
		require.NoError(t, err)
		assert.Contains(t, out.String(), "Candidate: start\n")
		assert.Contains(t, out.String(), "Candidate: Tell me\n")

		history, err := eng.GetHistory(ctx, "t1", interview.HistoryOptions{})
		require.NoError(t, err)
		assert.Len(t, history, 4)
	})
}

func TestPrintReply(t *testing.T) {
	var out bytes.Buffer
	state := interview.ThreadState{
		LatestResponse:  &interview.Message{Role: interview.RoleModel, Content: interview.ClosingMessage},
		InterviewActive: false,
	}
	assert.False(t, printReply(&out, state))
	assert.Contains(t, out.String(), "(interview ended)")
}
