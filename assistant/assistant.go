// Package assistant wires the conversation thread, prompt assembly,
// invocation parsing, and a model client into one run loop. An Assistant
// is single-threaded: one logical caller drives Run at a time, and hosts
// that want concurrency must serialize around it.
package assistant

import (
	"context"
	"fmt"

	"github.com/parleyhq/parley/invocation"
	"github.com/parleyhq/parley/llm"
	"github.com/parleyhq/parley/prompt"
	"github.com/parleyhq/parley/thread"
	"github.com/parleyhq/parley/tools"
)

// UnknownToolError reports a parsed invocation that resolves to no
// configured tool. Skipping it silently would desynchronize the
// conversation: the model expects an output message that would never
// arrive.
type UnknownToolError struct {
	ToolName string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("model invoked unknown tool '%s'", e.ToolName)
}

// Assistant owns one conversation: its instructions, active tools, the
// message thread, and the model client answering for the other side.
type Assistant struct {
	name         string
	instructions string
	description  string
	tools        []tools.Tool
	thread       *thread.Thread
	client       llm.Client
	model        string
	builder      *prompt.Builder
}

// Option configures an Assistant at construction.
type Option func(*Assistant)

// WithInstructions sets the system instructions. Empty instructions are
// valid and simply omit the section from prompts.
func WithInstructions(instructions string) Option {
	return func(a *Assistant) { a.instructions = instructions }
}

// WithDescription sets a human-facing summary of what the assistant is for.
// It never enters the prompt.
func WithDescription(description string) Option {
	return func(a *Assistant) { a.description = description }
}

// WithTools sets the active tools. Order matters twice over: it is the
// order tools are listed in the prompt and the order their invocations
// execute.
func WithTools(active ...tools.Tool) Option {
	return func(a *Assistant) { a.tools = active }
}

// WithModel overrides the client's default model.
func WithModel(model string) Option {
	return func(a *Assistant) { a.model = model }
}

// WithThread starts the assistant on an existing thread instead of an
// empty one.
func WithThread(th *thread.Thread) Option {
	return func(a *Assistant) { a.thread = th }
}

// New builds an Assistant. The client is mandatory: an assistant without a
// chat capability is useless, so a nil client fails construction instead
// of the first run. Tool names are checked here too, since a name that
// cannot appear in an invocation marker would make its tool uncallable,
// and a duplicated name would make execution order ambiguous.
func New(name string, client llm.Client, validator llm.LengthValidator, templates prompt.Provider, opts ...Option) (*Assistant, error) {
	if client == nil {
		return nil, fmt.Errorf("assistant '%s' requires a model client with a chat capability", name)
	}

	a := &Assistant{
		name:   name,
		client: client,
		thread: thread.New(),
	}
	for _, opt := range opts {
		opt(a)
	}

	seen := make(map[string]bool, len(a.tools))
	for _, t := range a.tools {
		if err := tools.ValidateName(t.Name()); err != nil {
			return nil, fmt.Errorf("assistant '%s': %w", name, err)
		}
		if seen[t.Name()] {
			return nil, fmt.Errorf("assistant '%s' configures tool '%s' more than once", name, t.Name())
		}
		seen[t.Name()] = true
	}

	if a.model == "" {
		a.model = client.DefaultModel()
	}
	if validator == nil {
		validator = &llm.ContextValidator{}
	}
	a.builder = prompt.NewBuilder(templates, validator, a.model)

	return a, nil
}

func (a *Assistant) Name() string        { return a.name }
func (a *Assistant) Description() string { return a.description }
func (a *Assistant) Model() string       { return a.model }

// Messages returns a snapshot of the conversation so far.
func (a *Assistant) Messages() []thread.Message {
	return a.thread.Messages()
}

// Tools returns the active tools in configured order.
func (a *Assistant) Tools() []tools.Tool {
	out := make([]tools.Tool, len(a.tools))
	copy(out, a.tools)
	return out
}

// AddMessage appends a message to the thread without calling the model.
func (a *Assistant) AddMessage(role, text string) {
	a.thread.Append(thread.Message{Role: role, Text: text})
}

// ClearThread drops the whole conversation, oldest message first.
func (a *Assistant) ClearThread() {
	for {
		if _, ok := a.thread.RemoveOldest(); !ok {
			return
		}
	}
}

// Run performs one assistant turn over the current thread: build the
// prompt, call the model, append the reply. With auto tool execution
// enabled, invocation markers in that reply are then executed in parser
// order, each appending a tool-output message and triggering one follow-up
// model call over the grown thread. Follow-up replies are appended but not
// re-parsed; each Run handles exactly one completion's invocations. The
// returned slice is the full conversation after the turn.
func (a *Assistant) Run(ctx context.Context, autoToolExecution bool) ([]thread.Message, error) {
	completion, err := a.step(ctx)
	if err != nil {
		return nil, err
	}

	if autoToolExecution {
		if err := a.executeInvocations(ctx, completion.Text); err != nil {
			return nil, err
		}
	}
	return a.thread.Messages(), nil
}

// AddMessageAndRun appends a user message, then performs a Run.
func (a *Assistant) AddMessageAndRun(ctx context.Context, text string, autoToolExecution bool) ([]thread.Message, error) {
	a.AddMessage("user", text)
	return a.Run(ctx, autoToolExecution)
}

// step builds a prompt for the thread's current state, calls the model,
// and appends the reply under the role the model answered with.
func (a *Assistant) step(ctx context.Context) (*llm.Completion, error) {
	built, err := a.builder.Build(a.instructions, a.tools, a.thread)
	if err != nil {
		return nil, err
	}
	completion, err := a.client.Chat(ctx, built)
	if err != nil {
		return nil, fmt.Errorf("model call failed: %w", err)
	}
	a.thread.Append(thread.Message{Role: completion.Role, Text: completion.Text})
	return completion, nil
}

// executeInvocations runs every invocation found in one completion. A tool
// failure is not fatal: the failure text becomes the tool-output message so
// the model can react to it on the follow-up call.
func (a *Assistant) executeInvocations(ctx context.Context, completionText string) error {
	for _, inv := range invocation.Find(completionText, a.tools) {
		t, ok := a.lookupTool(inv.ToolName)
		if !ok {
			return &UnknownToolError{ToolName: inv.ToolName}
		}

		output, err := t.Execute(ctx, inv.ToolInput)
		if err != nil {
			output = fmt.Sprintf("error: %v", err)
		}
		a.thread.Append(thread.Message{Role: thread.ToolOutputRole(inv.ToolName), Text: output})

		if _, err := a.step(ctx); err != nil {
			return err
		}
	}
	return nil
}

// lookupTool resolves a tool by exact name; the first match wins.
func (a *Assistant) lookupTool(name string) (tools.Tool, bool) {
	for _, t := range a.tools {
		if t.Name() == name {
			return t, true
		}
	}
	return nil, false
}
