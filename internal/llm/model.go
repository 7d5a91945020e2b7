// Package llm adapts hosted language models to the two capabilities the
// pipeline needs: answering a prompt deterministically and, where supported,
// filling a JSON schema.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// deterministicSeed pins sampling for backends that accept a seed.
const deterministicSeed = 42

var (
	// ErrNoOutput is returned when a backend answers with no choices.
	ErrNoOutput = errors.New("no completion choices returned")
	// ErrAPIKeyRequired is returned by New when the provider needs a key.
	ErrAPIKeyRequired = errors.New("API key required")
)

// Model generates text from a prompt. Implementations must be deterministic
// for a fixed prompt (temperature zero, fixed seed where available).
type Model interface {
	Generate(ctx context.Context, prompt string) (string, error)
	Name() string
}

// StructuredModel is implemented by backends that can be asked for JSON
// matching the shape of result.
type StructuredModel interface {
	CompleteWithStructuredOutput(ctx context.Context, systemPrompt, userPrompt string, result interface{}) error
}

// Config selects and configures a backend.
type Config struct {
	Provider  string
	Model     string
	APIKey    string
	BaseURL   string
	MaxTokens int
}

// New returns the backend named by cfg.Provider.
func New(cfg Config) (Model, error) {
	switch cfg.Provider {
	case "", "openrouter":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("%w: set OPENROUTER_API_KEY", ErrAPIKeyRequired)
		}
		return NewClient(cfg.APIKey, cfg.Model, cfg.MaxTokens), nil
	case "openai":
		// OpenAI-compatible local servers (llama.cpp, Ollama) accept any key.
		if cfg.APIKey == "" && cfg.BaseURL == "" {
			return nil, fmt.Errorf("%w: set FACTLINK_LLM_API_KEY or llm.base_url", ErrAPIKeyRequired)
		}
		return NewOpenAIClient(cfg.APIKey, cfg.BaseURL, cfg.Model, cfg.MaxTokens), nil
	case "anthropic":
		return NewAnthropicClient(cfg.APIKey, cfg.Model, cfg.MaxTokens)
	default:
		return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
	}
}

// DecodeJSON unmarshals a model response into result, tolerating prose or
// code fences around the JSON object.
func DecodeJSON(response string, result interface{}) error {
	if err := json.Unmarshal([]byte(response), result); err == nil {
		return nil
	}
	jsonStart := strings.Index(response, "{")
	jsonEnd := strings.LastIndex(response, "}")
	if jsonStart < 0 || jsonEnd <= jsonStart {
		return fmt.Errorf("failed to parse LLM response: no JSON object in %q", truncate(response, 80))
	}
	if err := json.Unmarshal([]byte(response[jsonStart:jsonEnd+1]), result); err != nil {
		return fmt.Errorf("failed to parse LLM response: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
