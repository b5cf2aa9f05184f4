// Command interviewer drives interview threads from the terminal.
//
// Usage:
//
//	interviewer chat --thread t1 --interview interview.yaml
//	interviewer history --thread t1 --tools
//	interviewer report --thread t1 --interview interview.yaml
//	interviewer recreate --thread t1 --interview interview.yaml
//	interviewer threads
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/randalmurphal/interviewflow/pkg/flowgraph/config"
)

// CLI defines the command-line interface.
type CLI struct {
	Chat     ChatCmd     `cmd:"" help:"Conduct an interview interactively on stdin."`
	History  HistoryCmd  `cmd:"" help:"Print the display history of a thread."`
	Report   ReportCmd   `cmd:"" help:"Generate an end-of-interview report as JSON."`
	Recreate RecreateCmd `cmd:"" help:"Regenerate the last interviewer message."`
	Threads  ThreadsCmd  `cmd:"" help:"List stored threads."`

	Config    string `short:"c" help:"Path to config file." type:"path"`
	LogLevel  string `help:"Log level (debug, info, warn, error). Overrides the config file."`
	LogFormat string `help:"Log format (text, json). Overrides the config file."`
	Telemetry bool   `help:"Record OpenTelemetry metrics and spans for each turn."`
}

// settings loads the config file and applies flag overrides.
func (cli *CLI) settings() (config.Settings, error) {
	s, err := config.LoadSettings(cli.Config)
	if err != nil {
		return config.Settings{}, err
	}
	if cli.LogLevel != "" {
		s.Log.Level = cli.LogLevel
	}
	if cli.LogFormat != "" {
		s.Log.Format = cli.LogFormat
	}
	return s, nil
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			slog.Info("Shutting down...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()
	return ctx, cancel
}

func main() {
	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load .env: %v\n", err)
	}

	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("interviewer"),
		kong.Description("Conversation workflow engine for AI-conducted interviews"),
		kong.UsageOnError(),
	)

	err := kctx.Run(&cli)
	kctx.FatalIfErrorf(err)
}
