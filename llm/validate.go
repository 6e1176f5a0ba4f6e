package llm

// defaultContextWindow is assumed for models missing from the registry.
// Most current chat models offer at least this much.
const defaultContextWindow = 128_000

// defaultReservedOutputTokens is held back from the context window so the
// model has room to answer.
const defaultReservedOutputTokens = 4096

// modelContextWindows maps model identifiers to context window sizes in
// tokens. Entries cover the providers shipped in this module, including the
// Bedrock form of the Anthropic ids.
var modelContextWindows = map[string]int{
	"claude-opus-4-1":          200_000,
	"claude-sonnet-4-5":        200_000,
	"claude-3-7-sonnet-latest": 200_000,
	"claude-3-5-haiku-latest":  200_000,

	"gpt-4o":        128_000,
	"gpt-4o-mini":   128_000,
	"gpt-4-turbo":   128_000,
	"gpt-4":         8_192,
	"gpt-3.5-turbo": 16_385,

	"gemini-2.0-flash": 1_048_576,
	"gemini-1.5-pro":   2_097_152,
	"gemini-1.5-flash": 1_048_576,

	"anthropic.claude-3-5-sonnet-20241022-v2:0": 200_000,
	"anthropic.claude-3-haiku-20240307-v1:0":    200_000,
}

// ContextWindowForModel returns the context window for a model, falling back
// to a conservative default for unknown identifiers.
func ContextWindowForModel(model string) int {
	if window, ok := modelContextWindows[model]; ok {
		return window
	}
	return defaultContextWindow
}

// EstimateTokens approximates the token count of a prompt. English text and
// code average roughly four characters per token.
func EstimateTokens(prompt string) int {
	return (len(prompt) + 3) / 4
}

// ContextValidator is the standard LengthValidator: a character-based token
// estimate checked against the model's context window, minus the output
// reservation.
type ContextValidator struct {
	// ReservedOutputTokens overrides the output reservation when positive.
	ReservedOutputTokens int
}

func (v *ContextValidator) ValidateMaxTokens(prompt, model string) error {
	reserved := v.ReservedOutputTokens
	if reserved <= 0 {
		reserved = defaultReservedOutputTokens
	}
	budget := ContextWindowForModel(model) - reserved
	if budget < 1 {
		budget = 1
	}

	estimated := EstimateTokens(prompt)
	if estimated > budget {
		return &TokenLimitError{Model: model, EstimatedTokens: estimated, Budget: budget}
	}
	return nil
}
