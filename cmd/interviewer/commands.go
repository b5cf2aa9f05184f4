package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/randalmurphal/interviewflow/pkg/interview"
)

// openingMessage starts a thread that has no history.
const openingMessage = "start"

// ChatCmd runs turns from stdin until EOF, /quit or the interview ends.
type ChatCmd struct {
	TurnFlags `embed:""`
}

func (c *ChatCmd) Run(cli *CLI) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx, cli, os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	turn, err := c.turn()
	if err != nil {
		return err
	}
	return runChat(ctx, a.engine, c.Thread, turn, os.Stdin, os.Stdout)
}

func runChat(ctx context.Context, eng *interview.Engine, threadID string, turn interview.Turn, in io.Reader, out io.Writer) error {
	history, err := eng.GetHistory(ctx, threadID, interview.HistoryOptions{})
	if err != nil {
		return err
	}

	if len(history) == 0 {
		state, err := eng.SendMessage(ctx, threadID, turn, interview.Input{Text: openingMessage})
		if err != nil {
			return err
		}
		if !printReply(out, state) {
			return nil
		}
	} else {
		for _, m := range history {
			printMessage(out, m)
		}
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		var state interview.ThreadState
		switch {
		case line == "":
			continue
		case line == "/quit":
			return nil
		case line == "/recreate":
			state, err = eng.RecreateLastMessage(ctx, threadID, turn)
		case strings.HasPrefix(line, "/attach "):
			input, perr := parseAttach(strings.TrimPrefix(line, "/attach "))
			if perr != nil {
				fmt.Fprintln(out, perr)
				continue
			}
			state, err = eng.SendMessage(ctx, threadID, turn, input)
		default:
			state, err = eng.SendMessage(ctx, threadID, turn, interview.Input{Text: line})
		}
		if err != nil {
			return err
		}
		if !printReply(out, state) {
			return nil
		}
	}
}

// parseAttach reads "<kind> <ref> [text]".
func parseAttach(args string) (interview.Input, error) {
	fields := strings.SplitN(strings.TrimSpace(args), " ", 3)
	if len(fields) < 2 {
		return interview.Input{}, fmt.Errorf("usage: /attach <audio|file|image> <ref> [text]")
	}

	kind := interview.AttachmentKind(fields[0])
	switch kind {
	case interview.AttachmentAudio, interview.AttachmentFile, interview.AttachmentImage:
	default:
		return interview.Input{}, fmt.Errorf("unknown attachment kind %q", fields[0])
	}

	in := interview.Input{Attachment: &interview.Attachment{Kind: kind, Ref: fields[1]}}
	if len(fields) == 3 {
		in.Text = fields[2]
	}
	return in, nil
}

// printReply prints the latest interviewer message and reports whether the
// interview is still running.
func printReply(out io.Writer, state interview.ThreadState) bool {
	if state.LatestResponse != nil && state.LatestResponse.HasText() {
		fmt.Fprintf(out, "Interviewer: %s\n", state.LatestResponse.Content)
	}
	if !state.InterviewActive {
		fmt.Fprintln(out, "(interview ended)")
		return false
	}
	return true
}

func printMessage(out io.Writer, m interview.DisplayMessage) {
	switch m.Role {
	case interview.RoleHuman:
		content := m.Content
		if m.Attachment != nil {
			content = strings.TrimSpace(fmt.Sprintf("%s [attachment:%s %s]", content, m.Attachment.Kind, m.Attachment.Ref))
		}
		fmt.Fprintf(out, "Candidate: %s\n", content)
	case interview.RoleModel:
		fmt.Fprintf(out, "Interviewer: %s\n", m.Content)
	default:
		fmt.Fprintf(out, "[%s] %s\n", m.ToolName, m.Content)
	}
}

// HistoryCmd prints a thread's history.
type HistoryCmd struct {
	Thread string `short:"t" required:"" help:"Thread identifier." env:"INTERVIEWFLOW_THREAD"`
	Tools  bool   `help:"Include tool calls and results."`
	JSON   bool   `name:"json" help:"Print messages as JSON."`
}

func (c *HistoryCmd) Run(cli *CLI) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx, cli, os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	history, err := a.engine.GetHistory(ctx, c.Thread, interview.HistoryOptions{IncludeToolCalls: c.Tools})
	if err != nil {
		return err
	}
	if c.JSON {
		return writeJSON(os.Stdout, history)
	}
	for _, m := range history {
		printMessage(os.Stdout, m)
	}
	return nil
}

// ReportCmd generates a report for a thread.
type ReportCmd struct {
	TurnFlags `embed:""`
}

func (c *ReportCmd) Run(cli *CLI) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx, cli, os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	turn, err := c.turn()
	if err != nil {
		return err
	}
	report, err := a.engine.GenerateReport(ctx, c.Thread, turn)
	if err != nil {
		return err
	}
	return writeJSON(os.Stdout, report)
}

// RecreateCmd regenerates the last interviewer message of a thread.
type RecreateCmd struct {
	TurnFlags `embed:""`
}

func (c *RecreateCmd) Run(cli *CLI) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx, cli, os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	turn, err := c.turn()
	if err != nil {
		return err
	}
	state, err := a.engine.RecreateLastMessage(ctx, c.Thread, turn)
	if err != nil {
		return err
	}
	printReply(os.Stdout, state)
	return nil
}

// ThreadsCmd lists stored threads.
type ThreadsCmd struct{}

func (c *ThreadsCmd) Run(cli *CLI) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx, cli, os.Stderr)
	if err != nil {
		return err
	}
	defer a.Close()

	threads, err := a.engine.Threads(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "THREAD\tTURNS\tUPDATED\tBYTES")
	for _, t := range threads {
		fmt.Fprintf(w, "%s\t%d\t%s\t%d\n", t.RunID, t.Saves, t.UpdatedAt.Format(time.RFC3339), t.Size)
	}
	return w.Flush()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
