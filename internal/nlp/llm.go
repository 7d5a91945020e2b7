package nlp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"factlink/internal/llm"
)

const recognizerSystemPrompt = `You are a named-entity recognizer using the OntoNotes label set.
Return a JSON object {"entities": [{"text": "...", "label": "..."}]} listing
every entity mention in order of appearance. Copy the mention text exactly as
it appears. Allowed labels: %s.`

type llmEntities struct {
	Entities []Mention `json:"entities"`
}

// LLMRecognizer asks a language model to tag entities. It is a fallback for
// deployments without a dedicated NER service.
type LLMRecognizer struct {
	model  llm.Model
	logger *slog.Logger
}

func NewLLMRecognizer(model llm.Model, logger *slog.Logger) *LLMRecognizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LLMRecognizer{model: model, logger: logger}
}

// Recognize implements Recognizer.
func (r *LLMRecognizer) Recognize(ctx context.Context, text string) ([]Mention, error) {
	labels := make([]string, len(Labels))
	for i, l := range Labels {
		labels[i] = string(l)
	}
	system := fmt.Sprintf(recognizerSystemPrompt, strings.Join(labels, ", "))
	user := "Text: " + text

	var out llmEntities
	if sm, ok := r.model.(llm.StructuredModel); ok {
		if err := sm.CompleteWithStructuredOutput(ctx, system, user, &out); err != nil {
			return nil, fmt.Errorf("llm recognizer: %w", err)
		}
	} else {
		resp, err := r.model.Generate(ctx, system+"\n\n"+user+"\nJSON:")
		if err != nil {
			return nil, fmt.Errorf("llm recognizer: %w", err)
		}
		if err := llm.DecodeJSON(resp, &out); err != nil {
			return nil, fmt.Errorf("llm recognizer: %w", err)
		}
	}

	mentions := make([]Mention, 0, len(out.Entities))
	for _, m := range out.Entities {
		label, ok := ParseLabel(string(m.Label))
		if !ok || strings.TrimSpace(m.Text) == "" {
			r.logger.Debug("dropping mention", "text", m.Text, "label", m.Label)
			continue
		}
		// Hallucinated spans that do not occur in the text are discarded.
		if !strings.Contains(text, m.Text) {
			r.logger.Debug("dropping mention not present in text", "text", m.Text)
			continue
		}
		mentions = append(mentions, Mention{Text: m.Text, Label: label})
	}
	return mentions, nil
}
