package triplets

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tidwall/gjson"

	"factlink/internal/httpclient"
	"factlink/internal/llm"
)

// ErrGeneration means no tagged text could be produced for a probe.
var ErrGeneration = errors.New("triplet generation failed")

// Generator renders text as a linearized triplet stream.
type Generator interface {
	Generate(ctx context.Context, text string) (string, error)
}

// HTTPGenerator calls a text2text-generation endpoint serving
// Babelscape/rebel-large, in the Hugging Face inference request format. The
// endpoint must keep special tokens in generated_text.
type HTTPGenerator struct {
	client   *httpclient.Client
	endpoint string
	token    string
}

func NewHTTPGenerator(client *httpclient.Client, endpoint, token string) *HTTPGenerator {
	return &HTTPGenerator{client: client, endpoint: endpoint, token: token}
}

// Generate implements Generator.
func (h *HTTPGenerator) Generate(ctx context.Context, text string) (string, error) {
	var header http.Header
	if h.token != "" {
		header = http.Header{}
		header.Set("Authorization", "Bearer "+h.token)
	}
	body, err := h.client.PostJSON(ctx, h.endpoint, map[string]any{
		"inputs": text,
		"parameters": map[string]any{
			"return_text":         false,
			"skip_special_tokens": false,
		},
		"options": map[string]any{"wait_for_model": true},
	}, header)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("%w: malformed response", ErrGeneration)
	}

	// Both a bare object and a one-element list are accepted.
	result := gjson.ParseBytes(body)
	if result.IsArray() {
		result = result.Get("0")
	}
	generated := result.Get("generated_text")
	if !generated.Exists() {
		return "", fmt.Errorf("%w: response has no generated_text", ErrGeneration)
	}
	return generated.String(), nil
}

const llmTripletPrompt = `Extract the relation triplets stated in the text below and write them in
the REBEL linearized format, using Wikidata property labels as relations:

<triplet> head entity <subj> tail entity <obj> relation

Start a new <triplet> for each new head entity. Output only the triplets.

Text: %s
Triplets:`

// LLMGenerator prompts a generative model to emit the tagged format. It
// stands in for a dedicated REBEL endpoint.
type LLMGenerator struct {
	model llm.Model
}

func NewLLMGenerator(model llm.Model) *LLMGenerator {
	return &LLMGenerator{model: model}
}

// Generate implements Generator.
func (g *LLMGenerator) Generate(ctx context.Context, text string) (string, error) {
	out, err := g.model.Generate(ctx, fmt.Sprintf(llmTripletPrompt, text))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	if !strings.Contains(out, TokenTriplet) {
		return "", fmt.Errorf("%w: model output has no %s marker", ErrGeneration, TokenTriplet)
	}
	return out, nil
}

// Extractor generates and parses triplets for a probe text.
type Extractor struct {
	gen Generator
}

func NewExtractor(gen Generator) *Extractor {
	return &Extractor{gen: gen}
}

// ExtractFrom renders text and parses the result. Generation failures wrap
// ErrGeneration.
func (e *Extractor) ExtractFrom(ctx context.Context, text string) ([]Triplet, error) {
	tagged, err := e.gen.Generate(ctx, text)
	if err != nil {
		if !errors.Is(err, ErrGeneration) {
			err = fmt.Errorf("%w: %v", ErrGeneration, err)
		}
		return nil, err
	}
	return Extract(tagged), nil
}
