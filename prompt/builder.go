package prompt

import (
	"errors"
	"fmt"
	"strings"

	"github.com/parleyhq/parley/llm"
	"github.com/parleyhq/parley/thread"
	"github.com/parleyhq/parley/tools"
)

// TooLargeError reports a prompt that still exceeds the model's token
// budget after every message has been trimmed from the thread. At that
// point the instructions and tool descriptions alone are too big, and no
// amount of history trimming can help.
type TooLargeError struct {
	Model string
	Err   error
}

func (e *TooLargeError) Error() string {
	return fmt.Sprintf("prompt exceeds the token budget of model %s with no history left to trim: %v", e.Model, e.Err)
}

func (e *TooLargeError) Unwrap() error { return e.Err }

// Builder assembles prompts for one target model. The validator is the
// budget authority; the builder only reacts to its verdicts.
type Builder struct {
	templates Provider
	validator llm.LengthValidator
	model     string
}

// NewBuilder creates a builder for the given model. A nil templates
// provider falls back to the default templates; a nil validator disables
// budget enforcement, which is only sensible in tests.
func NewBuilder(templates Provider, validator llm.LengthValidator, model string) *Builder {
	if templates == nil {
		templates = NewMemoryProvider(nil)
	}
	return &Builder{
		templates: templates,
		validator: validator,
		model:     model,
	}
}

// Build assembles the prompt for the current thread and enforces the token
// budget. Sections appear in fixed order: instructions (omitted when
// empty), tools (omitted when none are configured), then history (always
// present). When the assembled prompt exceeds the budget, the oldest
// message is removed from the thread and the prompt rebuilt, until it fits
// or the history is exhausted. History removal is destructive on purpose:
// a message that no longer fits the model's window is gone for every later
// turn too.
func (b *Builder) Build(instructions string, active []tools.Tool, th *thread.Thread) (string, error) {
	for {
		built, err := b.assemble(instructions, active, th)
		if err != nil {
			return "", fmt.Errorf("prompt assembly failed: %w", err)
		}
		if b.validator == nil {
			return built, nil
		}

		err = b.validator.ValidateMaxTokens(built, b.model)
		if err == nil {
			return built, nil
		}
		var limitErr *llm.TokenLimitError
		if !errors.As(err, &limitErr) {
			return "", fmt.Errorf("prompt length validation failed: %w", err)
		}
		if _, removed := th.RemoveOldest(); !removed {
			return "", &TooLargeError{Model: b.model, Err: err}
		}
	}
}

// assemble renders the sections for the thread's current state and joins
// the non-empty ones with a blank line.
func (b *Builder) assemble(instructions string, active []tools.Tool, th *thread.Thread) (string, error) {
	var sections []string

	if instructions != "" {
		rendered, err := b.templates.Render(InstructionsTemplate, map[string]string{
			"instructions": instructions,
		})
		if err != nil {
			return "", err
		}
		sections = append(sections, rendered)
	}

	if len(active) > 0 {
		rendered, err := b.templates.Render(ToolsTemplate, map[string]string{
			"tools": renderTools(active),
		})
		if err != nil {
			return "", err
		}
		sections = append(sections, rendered)
	}

	rendered, err := b.templates.Render(HistoryTemplate, map[string]string{
		"history": renderHistory(th),
	})
	if err != nil {
		return "", err
	}
	sections = append(sections, rendered)

	return strings.Join(sections, "\n\n"), nil
}

// renderTools lists each tool as "name: description", one per line, in
// configured order. The order is load-bearing: it is the order invocations
// are executed in.
func renderTools(active []tools.Tool) string {
	lines := make([]string, 0, len(active))
	for _, t := range active {
		lines = append(lines, tools.NameAndDescription(t))
	}
	return strings.Join(lines, "\n")
}

// renderHistory lists each message as "role: text", one per line, oldest
// first.
func renderHistory(th *thread.Thread) string {
	messages := th.Messages()
	lines := make([]string, 0, len(messages))
	for _, msg := range messages {
		lines = append(lines, fmt.Sprintf("%s: %s", msg.Role, msg.Text))
	}
	return strings.Join(lines, "\n")
}
