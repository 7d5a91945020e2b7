package llm

import (
	"context"
	"fmt"
	"math"

	"github.com/sashabaranov/go-openai"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAIClient talks to OpenAI or any server exposing the same chat API.
type OpenAIClient struct {
	client    *openai.Client
	model     string
	maxTokens int
}

func NewOpenAIClient(apiKey, baseURL, model string, maxTokens int) *OpenAIClient {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAIClient{
		client:    openai.NewClientWithConfig(cfg),
		model:     model,
		maxTokens: maxTokens,
	}
}

func (o *OpenAIClient) Name() string {
	return "openai/" + o.model
}

func (o *OpenAIClient) request(messages []openai.ChatCompletionMessage) openai.ChatCompletionRequest {
	seed := deterministicSeed
	return openai.ChatCompletionRequest{
		Model:    o.model,
		Messages: messages,
		// Zero is dropped by omitempty; the smallest float is sent instead.
		Temperature: math.SmallestNonzeroFloat32,
		Seed:        &seed,
		MaxTokens:   o.maxTokens,
	}
}

// Generate implements Model.
func (o *OpenAIClient) Generate(ctx context.Context, prompt string) (string, error) {
	req := o.request([]openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleUser, Content: prompt},
	})
	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("OpenAI API call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoOutput
	}
	return resp.Choices[0].Message.Content, nil
}

// CompleteWithStructuredOutput asks for a JSON object and decodes it into result.
func (o *OpenAIClient) CompleteWithStructuredOutput(ctx context.Context, systemPrompt, userPrompt string, result interface{}) error {
	req := o.request([]openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: userPrompt},
	})
	req.MaxTokens = 0
	req.ResponseFormat = &openai.ChatCompletionResponseFormat{
		Type: openai.ChatCompletionResponseFormatTypeJSONObject,
	}
	resp, err := o.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return fmt.Errorf("OpenAI structured call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return ErrNoOutput
	}
	return DecodeJSON(resp.Choices[0].Message.Content, result)
}
