package llm

import (
	"errors"
	"strings"
	"testing"
)

func TestEstimateTokens(t *testing.T) {
	cases := []struct {
		prompt string
		want   int
	}{
		{"", 0},
		{"a", 1},
		{"abcd", 1},
		{"abcde", 2},
		{strings.Repeat("x", 400), 100},
	}
	for _, c := range cases {
		if got := EstimateTokens(c.prompt); got != c.want {
			t.Errorf("EstimateTokens(%d chars) = %d, want %d", len(c.prompt), got, c.want)
		}
	}
}

func TestContextWindowForModel(t *testing.T) {
	if got := ContextWindowForModel("claude-sonnet-4-5"); got != 200_000 {
		t.Errorf("Expected 200000 for claude-sonnet-4-5, got %d", got)
	}
	if got := ContextWindowForModel("gpt-4"); got != 8_192 {
		t.Errorf("Expected 8192 for gpt-4, got %d", got)
	}
	if got := ContextWindowForModel("some-future-model"); got != defaultContextWindow {
		t.Errorf("Expected default window for unknown model, got %d", got)
	}
}

func TestContextValidatorAccepts(t *testing.T) {
	v := &ContextValidator{}
	if err := v.ValidateMaxTokens("short prompt", "gpt-4"); err != nil {
		t.Fatalf("Unexpected error for short prompt: %v", err)
	}
}

func TestContextValidatorRejects(t *testing.T) {
	v := &ContextValidator{}
	// gpt-4 has an 8192 token window; 4096 are reserved for output, so a
	// prompt over 4096 estimated tokens must be rejected.
	prompt := strings.Repeat("x", 5000*4)

	err := v.ValidateMaxTokens(prompt, "gpt-4")
	if err == nil {
		t.Fatal("Expected error for oversized prompt")
	}
	var limitErr *TokenLimitError
	if !errors.As(err, &limitErr) {
		t.Fatalf("Expected TokenLimitError, got %T", err)
	}
	if limitErr.Model != "gpt-4" {
		t.Errorf("Expected model gpt-4 in error, got %s", limitErr.Model)
	}
	if limitErr.EstimatedTokens != 5000 {
		t.Errorf("Expected 5000 estimated tokens, got %d", limitErr.EstimatedTokens)
	}
	if limitErr.Budget != 8192-4096 {
		t.Errorf("Expected budget %d, got %d", 8192-4096, limitErr.Budget)
	}
}

func TestContextValidatorReservedOverride(t *testing.T) {
	v := &ContextValidator{ReservedOutputTokens: 8000}
	// With 8000 tokens reserved out of gpt-4's 8192, only 192 remain.
	prompt := strings.Repeat("x", 200*4)

	if err := v.ValidateMaxTokens(prompt, "gpt-4"); err == nil {
		t.Fatal("Expected error when reservation shrinks the budget below the prompt")
	}
	if err := v.ValidateMaxTokens(strings.Repeat("x", 100*4), "gpt-4"); err != nil {
		t.Fatalf("Unexpected error under the shrunken budget: %v", err)
	}
}
