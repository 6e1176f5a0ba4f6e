package llm

import (
	"context"
	"os"

	"github.com/google/generative-ai-go/genai"
	"github.com/parleyhq/parley/errors"
	"google.golang.org/api/option"
)

const defaultGeminiModel = "gemini-2.0-flash"

// GeminiClient is a client for the Google Gemini API.
type GeminiClient struct {
	model     *genai.GenerativeModel
	modelName string
}

// NewGeminiClient creates a new GeminiClient.
// It requires the GEMINI_API_KEY environment variable to be set.
func NewGeminiClient(ctx context.Context, modelName string) (*GeminiClient, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		return nil, errors.New("GEMINI_API_KEY environment variable not set")
	}
	if modelName == "" {
		modelName = defaultGeminiModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create genai client")
	}

	return &GeminiClient{
		model:     client.GenerativeModel(modelName),
		modelName: modelName,
	}, nil
}

// Chat sends the assembled prompt and concatenates the text parts of the
// first candidate.
func (g *GeminiClient) Chat(ctx context.Context, prompt string) (*Completion, error) {
	resp, err := g.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to send message to Gemini")
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, errors.New("received an empty response from Gemini")
	}

	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text += string(t)
		}
	}

	return &Completion{Text: text, Role: "assistant"}, nil
}

func (g *GeminiClient) DefaultModel() string {
	return g.modelName
}
