// Package llm defines the model-client contract the assistant runtime is
// built against, the prompt length validation that guards it, and clients
// for the supported providers.
package llm

import (
	"context"
	"fmt"
)

// Completion is a model's reply to one prompt. Role is the conversational
// role under which the reply enters the thread; every shipped client
// normalizes it to "assistant".
type Completion struct {
	Text string
	Role string
}

// Client is the chat capability the assistant depends on. Prompt assembly
// happens upstream; a client receives one complete prompt string and returns
// the completion. DefaultModel names the model a prompt will be sent to, so
// prompt length can be validated against the right context window.
type Client interface {
	Chat(ctx context.Context, prompt string) (*Completion, error)
	DefaultModel() string
}

// LengthValidator checks a prompt against the token budget of a model. A
// budget violation is reported as *TokenLimitError; any other error means
// the validation itself failed.
type LengthValidator interface {
	ValidateMaxTokens(prompt, model string) error
}

// TokenLimitError reports a prompt that exceeds the usable context window of
// the target model.
type TokenLimitError struct {
	Model           string
	EstimatedTokens int
	Budget          int
}

func (e *TokenLimitError) Error() string {
	return fmt.Sprintf("prompt of ~%d tokens exceeds budget of %d for model %s", e.EstimatedTokens, e.Budget, e.Model)
}

// MockClient is a scripted client for tests and offline runs. Responses are
// returned in order; once exhausted, Chat answers with a canned line. Every
// prompt is recorded for inspection.
type MockClient struct {
	Model     string
	Responses []Completion
	Prompts   []string

	calls int
}

func (m *MockClient) Chat(ctx context.Context, prompt string) (*Completion, error) {
	m.Prompts = append(m.Prompts, prompt)
	if m.calls < len(m.Responses) {
		resp := m.Responses[m.calls]
		m.calls++
		if resp.Role == "" {
			resp.Role = "assistant"
		}
		return &resp, nil
	}
	return &Completion{
		Role: "assistant",
		Text: "I am a mock model with no scripted responses left.",
	}, nil
}

func (m *MockClient) DefaultModel() string {
	if m.Model != "" {
		return m.Model
	}
	return "mock-model"
}
