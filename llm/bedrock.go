package llm

import (
	"context"
	"encoding/json"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/parleyhq/parley/errors"
)

const defaultBedrockModel = "anthropic.claude-3-5-sonnet-20241022-v2:0"

// BedrockClient is a client for Anthropic models on AWS Bedrock.
type BedrockClient struct {
	client  *bedrockruntime.Client
	modelID string
}

// NewBedrockClient creates a new BedrockClient.
// It requires AWS credentials to be configured in the environment.
func NewBedrockClient(ctx context.Context, modelID string) (*BedrockClient, error) {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load AWS config")
	}
	if modelID == "" {
		modelID = defaultBedrockModel
	}

	return &BedrockClient{
		client:  bedrockruntime.NewFromConfig(cfg),
		modelID: modelID,
	}, nil
}

// Chat sends the assembled prompt through InvokeModel using the Anthropic
// message body format.
func (b *BedrockClient) Chat(ctx context.Context, prompt string) (*Completion, error) {
	request := map[string]interface{}{
		"anthropic_version": "bedrock-2023-05-31",
		"max_tokens":        4096,
		"messages": []map[string]interface{}{
			{
				"role": "user",
				"content": []map[string]interface{}{
					{"type": "text", "text": prompt},
				},
			},
		},
	}

	body, err := json.Marshal(request)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to marshal Bedrock request")
	}

	resp, err := b.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(b.modelID),
		ContentType: aws.String("application/json"),
		Body:        body,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to invoke Bedrock model")
	}

	return parseBedrockResponse(resp.Body)
}

func parseBedrockResponse(body []byte) (*Completion, error) {
	var response map[string]interface{}
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, errors.Wrapf(err, "failed to unmarshal Bedrock response")
	}

	if errMsg, ok := response["error"]; ok {
		return nil, errors.New("Bedrock API error: %v", errMsg)
	}

	content, ok := response["content"].([]interface{})
	if !ok {
		return &Completion{Text: "", Role: "assistant"}, nil
	}

	var text string
	for _, item := range content {
		itemMap, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		if itemMap["type"] == "text" {
			if t, ok := itemMap["text"].(string); ok {
				text += t
			}
		}
	}

	return &Completion{Text: text, Role: "assistant"}, nil
}

func (b *BedrockClient) DefaultModel() string {
	return b.modelID
}
