// Package terminal is the interactive stdin/stdout host for an assistant.
package terminal

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/parleyhq/parley/assistant"
	"github.com/parleyhq/parley/thread"
)

// Verbosity controls how much of the tool traffic is shown to the user.
type Verbosity string

const (
	VerbosityNone  Verbosity = "none"
	VerbosityCalls Verbosity = "calls"
	VerbosityFull  Verbosity = "full"
)

// ParseVerbosity maps a flag value to a Verbosity. An empty value means
// none.
func ParseVerbosity(s string) (Verbosity, error) {
	switch Verbosity(s) {
	case "", VerbosityNone:
		return VerbosityNone, nil
	case VerbosityCalls:
		return VerbosityCalls, nil
	case VerbosityFull:
		return VerbosityFull, nil
	}
	return "", fmt.Errorf("unknown verbosity '%s' (expected none, calls or full)", s)
}

// Terminal handles the terminal/CLI interaction mode for an assistant.
type Terminal struct {
	assistant *assistant.Assistant
	auto      bool
	verbosity Verbosity

	in  io.Reader
	out io.Writer
}

// New creates a terminal host on stdin/stdout.
func New(a *assistant.Assistant, auto bool, verbosity Verbosity) *Terminal {
	return &Terminal{
		assistant: a,
		auto:      auto,
		verbosity: verbosity,
		in:        os.Stdin,
		out:       os.Stdout,
	}
}

// Run starts the interactive session. An initial prompt from the command
// line is processed first; the loop then reads turns until /quit, /exit or
// EOF.
func (t *Terminal) Run(ctx context.Context, initialPrompt string) error {
	if initialPrompt != "" {
		if err := t.processTurn(ctx, initialPrompt); err != nil {
			return err
		}
	}

	scanner := bufio.NewScanner(t.in)
	for {
		fmt.Fprint(t.out, "You: ")
		if !scanner.Scan() {
			// EOF or read error ends the session
			break
		}

		userInput := strings.TrimSpace(scanner.Text())
		if userInput == "" {
			continue
		}

		if userInput == "/quit" || userInput == "/exit" {
			break
		}
		if userInput == "/clear" {
			t.assistant.ClearThread()
			fmt.Fprintln(t.out, "Conversation cleared.")
			continue
		}

		if err := t.processTurn(ctx, userInput); err != nil {
			slog.Error("turn failed", "error", err)
			fmt.Fprintf(t.out, "Error: %v\n", err)
		}
	}

	return scanner.Err()
}

// processTurn handles a single user input turn and prints every message the
// run appended.
func (t *Terminal) processTurn(ctx context.Context, userInput string) error {
	before := len(t.assistant.Messages())
	messages, err := t.assistant.AddMessageAndRun(ctx, userInput, t.auto)
	if err != nil {
		return err
	}

	// Skip the user message that opened the turn.
	for _, msg := range messages[before+1:] {
		t.display(msg)
	}
	return nil
}

func (t *Terminal) display(msg thread.Message) {
	if toolName, ok := strings.CutSuffix(msg.Role, "_output"); ok {
		switch t.verbosity {
		case VerbosityFull:
			fmt.Fprintf(t.out, "Tool `%s` output: %s\n", toolName, msg.Text)
		case VerbosityCalls:
			fmt.Fprintf(t.out, "Tool `%s` was called\n", toolName)
		}
		return
	}
	fmt.Fprintf(t.out, "%s: %s\n", t.displayName(), msg.Text)
}

func (t *Terminal) displayName() string {
	name := t.assistant.Name()
	if name == "" || name == "default" {
		return "Parley"
	}
	return name
}
