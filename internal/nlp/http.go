package nlp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tidwall/gjson"

	"factlink/internal/httpclient"
)

// HTTPRecognizer calls an NER service that accepts {"text": "..."} and
// answers {"entities": [{"text": "...", "label": "..."}]}, the shape served
// by a spaCy en_core_web_sm wrapper.
type HTTPRecognizer struct {
	client   *httpclient.Client
	endpoint string
	logger   *slog.Logger
}

func NewHTTPRecognizer(client *httpclient.Client, endpoint string, logger *slog.Logger) *HTTPRecognizer {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPRecognizer{client: client, endpoint: endpoint, logger: logger}
}

// Recognize implements Recognizer.
func (h *HTTPRecognizer) Recognize(ctx context.Context, text string) ([]Mention, error) {
	body, err := h.client.PostJSON(ctx, h.endpoint, map[string]string{"text": text}, nil)
	if err != nil {
		return nil, fmt.Errorf("recognizer request: %w", err)
	}
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("recognizer returned invalid JSON")
	}
	return parseMentions(gjson.GetBytes(body, "entities"), h.logger), nil
}

func parseMentions(entities gjson.Result, logger *slog.Logger) []Mention {
	var mentions []Mention
	entities.ForEach(func(_, e gjson.Result) bool {
		text := e.Get("text").String()
		raw := e.Get("label").String()
		if text == "" {
			return true
		}
		label, ok := ParseLabel(raw)
		if !ok {
			logger.Debug("dropping mention with unknown label", "text", text, "label", raw)
			return true
		}
		mentions = append(mentions, Mention{Text: text, Label: label})
		return true
	})
	return mentions
}
