package llm

import (
	"context"
	"fmt"
	"math"

	"github.com/revrost/go-openrouter"
	"github.com/revrost/go-openrouter/jsonschema"
)

const defaultOpenRouterModel = "meta-llama/llama-2-13b-chat"

// Client is the OpenRouter backend.
type Client struct {
	openRouterClient *openrouter.Client
	model            string
	maxTokens        int
}

func NewClient(apiKey, model string, maxTokens int) *Client {
	if model == "" {
		model = defaultOpenRouterModel
	}
	return &Client{
		openRouterClient: openrouter.NewClient(apiKey),
		model:            model,
		maxTokens:        maxTokens,
	}
}

func (c *Client) Name() string {
	return "openrouter/" + c.model
}

// Generate completes prompt deterministically: zero temperature and a fixed seed.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	seed := deterministicSeed
	request := openrouter.ChatCompletionRequest{
		Model: c.model,
		Messages: []openrouter.ChatCompletionMessage{
			{
				Role:    openrouter.ChatMessageRoleUser,
				Content: openrouter.Content{Text: prompt},
			},
		},
		// Zero is dropped by omitempty; the smallest float is sent instead.
		Temperature: math.SmallestNonzeroFloat32,
		Seed:        &seed,
		MaxTokens:   c.maxTokens,
	}

	response, err := c.openRouterClient.CreateChatCompletion(ctx, request)
	if err != nil {
		return "", fmt.Errorf("failed to create completion: %w", err)
	}
	if len(response.Choices) == 0 {
		return "", ErrNoOutput
	}
	return response.Choices[0].Message.Content.Text, nil
}

// CompleteWithStructuredOutput completes with a JSON schema for structured output.
// result must be a pointer to the struct the response is decoded into.
func (c *Client) CompleteWithStructuredOutput(ctx context.Context, systemPrompt, userPrompt string, result interface{}) error {
	schema, err := jsonschema.GenerateSchemaForType(result)
	if err != nil {
		return fmt.Errorf("failed to generate schema: %w", err)
	}

	seed := deterministicSeed
	request := openrouter.ChatCompletionRequest{
		Model: c.model,
		Messages: []openrouter.ChatCompletionMessage{
			{
				Role:    openrouter.ChatMessageRoleSystem,
				Content: openrouter.Content{Text: systemPrompt},
			},
			{
				Role:    openrouter.ChatMessageRoleUser,
				Content: openrouter.Content{Text: userPrompt},
			},
		},
		ResponseFormat: &openrouter.ChatCompletionResponseFormat{
			Type: openrouter.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openrouter.ChatCompletionResponseFormatJSONSchema{
				Name:   "result",
				Schema: schema,
				Strict: false, // Some models don't support strict mode
			},
		},
		Temperature: math.SmallestNonzeroFloat32,
		Seed:        &seed,
	}

	response, err := c.openRouterClient.CreateChatCompletion(ctx, request)
	if err != nil {
		return fmt.Errorf("failed to create structured completion: %w", err)
	}
	if len(response.Choices) == 0 {
		return ErrNoOutput
	}
	return DecodeJSON(response.Choices[0].Message.Content.Text, result)
}
