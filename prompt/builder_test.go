package prompt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/parleyhq/parley/llm"
	"github.com/parleyhq/parley/thread"
	"github.com/parleyhq/parley/tools"
)

type fakeTool struct {
	name        string
	description string
}

func (t *fakeTool) Name() string        { return t.name }
func (t *fakeTool) Description() string { return t.description }
func (t *fakeTool) Execute(ctx context.Context, input string) (string, error) {
	return "", nil
}

// budgetValidator enforces a fixed token budget using the shared estimate.
type budgetValidator struct {
	budget int
	calls  int
}

func (v *budgetValidator) ValidateMaxTokens(prompt, model string) error {
	v.calls++
	estimated := llm.EstimateTokens(prompt)
	if estimated > v.budget {
		return &llm.TokenLimitError{Model: model, EstimatedTokens: estimated, Budget: v.budget}
	}
	return nil
}

func TestBuildAllSections(t *testing.T) {
	b := NewBuilder(nil, nil, "mock-model")
	th := thread.New()
	th.Append(thread.Message{Role: "user", Text: "what is 2+2?"})
	th.Append(thread.Message{Role: "assistant", Text: "4"})
	active := []tools.Tool{
		&fakeTool{name: "search", description: "Searches the web"},
		&fakeTool{name: "calc", description: "Evaluates arithmetic"},
	}

	built, err := b.Build("Be brief.", active, th)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	sections := strings.Split(built, "\n\n")
	if len(sections) != 3 {
		t.Fatalf("Expected 3 sections, got %d: %q", len(sections), built)
	}
	if sections[0] != "Be brief." {
		t.Errorf("Expected instructions section first, got %q", sections[0])
	}
	if !strings.Contains(sections[1], "search: Searches the web\ncalc: Evaluates arithmetic") {
		t.Errorf("Expected tool lines in configured order, got %q", sections[1])
	}
	if sections[2] != "Conversation so far:\nuser: what is 2+2?\nassistant: 4" {
		t.Errorf("Unexpected history section: %q", sections[2])
	}
}

func TestBuildOmitsEmptySections(t *testing.T) {
	b := NewBuilder(nil, nil, "mock-model")
	th := thread.New()
	th.Append(thread.Message{Role: "user", Text: "hello"})

	built, err := b.Build("", nil, th)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if strings.Contains(built, "\n\n") {
		t.Errorf("Expected a single section, got %q", built)
	}
	if !strings.HasPrefix(built, "Conversation so far:") {
		t.Errorf("Expected history section, got %q", built)
	}
}

func TestBuildHistorySectionAlwaysPresent(t *testing.T) {
	b := NewBuilder(nil, nil, "mock-model")

	built, err := b.Build("", nil, thread.New())
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.HasPrefix(built, "Conversation so far:") {
		t.Errorf("Expected history section even with no messages, got %q", built)
	}
}

func TestBuildTrimsOldestUntilFit(t *testing.T) {
	// The padding messages are ~25 tokens each under the chars/4 estimate, so
	// a 60 token budget forces several removals before the prompt fits.
	validator := &budgetValidator{budget: 60}
	b := NewBuilder(nil, validator, "mock-model")
	th := thread.New()
	for i := 0; i < 5; i++ {
		th.Append(thread.Message{Role: "user", Text: fmt.Sprintf("message %d %s", i, strings.Repeat("pad ", 24))})
	}
	before := th.Len()

	built, err := b.Build("", nil, th)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if llm.EstimateTokens(built) > validator.budget {
		t.Errorf("Expected final prompt within budget, got ~%d tokens", llm.EstimateTokens(built))
	}
	removed := before - th.Len()
	if removed == 0 {
		t.Fatal("Expected at least one message to be trimmed")
	}
	if validator.calls != removed+1 {
		t.Errorf("Expected %d validations for %d removals, got %d", removed+1, removed, validator.calls)
	}
	// Oldest messages go first.
	remaining := th.Messages()
	if len(remaining) == 0 || !strings.HasPrefix(remaining[0].Text, fmt.Sprintf("message %d", before-len(remaining))) {
		t.Errorf("Expected trimming from the oldest end, remaining starts with %q", remaining[0].Text)
	}
}

func TestBuildFailsWhenHistoryExhausted(t *testing.T) {
	validator := &budgetValidator{budget: 1}
	b := NewBuilder(nil, validator, "mock-model")
	th := thread.New()
	th.Append(thread.Message{Role: "user", Text: "hello"})

	_, err := b.Build("These instructions alone already blow a one-token budget.", nil, th)
	if err == nil {
		t.Fatal("Expected error when the minimal prompt exceeds the budget")
	}
	var tooLarge *TooLargeError
	if !errors.As(err, &tooLarge) {
		t.Fatalf("Expected TooLargeError, got %T: %v", err, err)
	}
	if tooLarge.Model != "mock-model" {
		t.Errorf("Expected model in error, got %q", tooLarge.Model)
	}
	var limitErr *llm.TokenLimitError
	if !errors.As(err, &limitErr) {
		t.Error("Expected the validator's verdict to stay reachable via Unwrap")
	}
	if th.Len() != 0 {
		t.Errorf("Expected history fully drained, %d messages remain", th.Len())
	}
}

type brokenValidator struct{}

func (brokenValidator) ValidateMaxTokens(prompt, model string) error {
	return errors.New("tokenizer unavailable")
}

func TestBuildSurfacesValidatorFailure(t *testing.T) {
	b := NewBuilder(nil, brokenValidator{}, "mock-model")
	th := thread.New()
	th.Append(thread.Message{Role: "user", Text: "hello"})

	_, err := b.Build("", nil, th)
	if err == nil {
		t.Fatal("Expected error from broken validator")
	}
	var tooLarge *TooLargeError
	if errors.As(err, &tooLarge) {
		t.Error("A validator failure is not a budget verdict and must not trim history")
	}
	if th.Len() != 1 {
		t.Errorf("Expected thread untouched, got %d messages", th.Len())
	}
}

func TestMemoryProviderOverride(t *testing.T) {
	provider := NewMemoryProvider(map[string]string{
		HistoryTemplate: "HISTORY>>{{.history}}",
	})
	b := NewBuilder(provider, nil, "mock-model")
	th := thread.New()
	th.Append(thread.Message{Role: "user", Text: "ping"})

	built, err := b.Build("", nil, th)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if built != "HISTORY>>user: ping" {
		t.Errorf("Expected overridden template output, got %q", built)
	}
}

func TestMemoryProviderUnknownTemplate(t *testing.T) {
	provider := NewMemoryProvider(nil)
	if _, err := provider.Render("no-such-template", nil); err == nil {
		t.Fatal("Expected error for unknown template name")
	}
}
