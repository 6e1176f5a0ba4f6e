// Package prompt assembles the text sent to a model client from an
// assistant's instructions, its tool descriptions, and the conversation
// history, and keeps the assembled prompt inside the target model's token
// budget by trimming the oldest history when needed.
package prompt

import (
	"fmt"
	"strings"
	"text/template"
)

// Names of the templates a Provider must resolve. Each section of the
// assembled prompt is rendered through one of these.
const (
	InstructionsTemplate = "instructions-prompt"
	ToolsTemplate        = "tools-prompt"
	HistoryTemplate      = "chat-history-prompt"
)

// Provider renders a named template with placeholder values. Template text
// is configuration, not logic: the builder decides what goes into the
// placeholders, a Provider decides how the section reads.
type Provider interface {
	Render(name string, data map[string]string) (string, error)
}

// defaultTemplates are the sections shipped with the module. The tools
// template doubles as the protocol description, since a model that never
// sees it cannot know how to request an invocation.
var defaultTemplates = map[string]string{
	InstructionsTemplate: "{{.instructions}}",
	ToolsTemplate: "You can use the following tools by writing <tool_name>tool input</tool_name> anywhere in your reply. " +
		"The text between the markers is passed to the tool as its input.\n{{.tools}}",
	HistoryTemplate: "Conversation so far:\n{{.history}}",
}

// MemoryProvider resolves templates from memory, parsing each one on first
// use. It serves the default templates unless an override replaces the
// entry, which keeps tests hermetic and lets hosts restyle sections without
// touching the builder.
type MemoryProvider struct {
	overrides map[string]string
	parsed    map[string]*template.Template
}

// NewMemoryProvider returns a provider serving the default templates with
// the given overrides applied. A nil map means defaults only.
func NewMemoryProvider(overrides map[string]string) *MemoryProvider {
	return &MemoryProvider{overrides: overrides}
}

func (p *MemoryProvider) source(name string) (string, bool) {
	if text, ok := p.overrides[name]; ok {
		return text, true
	}
	text, ok := defaultTemplates[name]
	return text, ok
}

// Render executes the named template with data. Unknown names and missing
// placeholders are errors, so a broken template surfaces at the first build
// instead of producing a silently malformed prompt.
func (p *MemoryProvider) Render(name string, data map[string]string) (string, error) {
	if p.parsed == nil {
		p.parsed = make(map[string]*template.Template)
	}
	tmpl, ok := p.parsed[name]
	if !ok {
		text, found := p.source(name)
		if !found {
			return "", fmt.Errorf("no template named '%s'", name)
		}
		var err error
		tmpl, err = template.New(name).Option("missingkey=error").Parse(text)
		if err != nil {
			return "", fmt.Errorf("could not parse template '%s': %w", name, err)
		}
		p.parsed[name] = tmpl
	}

	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("could not render template '%s': %w", name, err)
	}
	return b.String(), nil
}
