// Package answer extracts the literal answer from generated text and types it.
package answer

import (
	"context"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"factlink/internal/nlp"
)

// Kind is the type of an extracted answer.
type Kind string

const (
	KindYesNo   Kind = "YES_NO"
	KindEntity  Kind = "ENTITY"
	KindUnknown Kind = "UNKNOWN"
)

// UnknownText is the placeholder answer when nothing could be extracted.
const UnknownText = "unknown"

// Answer is a typed answer.
type Answer struct {
	Text string `json:"text"`
	Kind Kind   `json:"kind"`
}

// ParseKind accepts the kind names case-insensitively.
func ParseKind(s string) (Kind, bool) {
	switch Kind(strings.ToUpper(strings.TrimSpace(s))) {
	case KindYesNo:
		return KindYesNo, true
	case KindEntity:
		return KindEntity, true
	case KindUnknown:
		return KindUnknown, true
	}
	return "", false
}

var (
	yesNoQuestion = regexp.MustCompile(`(?i)^\s*(?:Question:\s*)?(?:is|are|do|does|can|could|should|would|will|did|was|were|has|have|had)\b`)
	yesNoToken    = regexp.MustCompile(`(?i)\b(yes|no)\b`)
	urlToken      = regexp.MustCompile(`https?://\S+`)
)

// entityLabels are the recognizer labels accepted as an entity answer.
var entityLabels = map[nlp.Label]bool{
	nlp.LabelGPE:      true,
	nlp.LabelLocation: true,
	nlp.LabelOrg:      true,
	nlp.LabelPerson:   true,
}

// IsYesNo reports whether question opens with an auxiliary or modal verb,
// optionally after a "Question:" prefix.
func IsYesNo(question string) bool {
	return yesNoQuestion.MatchString(question)
}

// Typer classifies generated answers.
type Typer struct {
	recognizer nlp.Recognizer
	logger     *slog.Logger
}

func NewTyper(recognizer nlp.Recognizer, logger *slog.Logger) *Typer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Typer{recognizer: recognizer, logger: logger}
}

// Classify extracts the answer from raw. It tries, in order: a yes/no token
// for yes/no questions, the first URL, the first place, organisation or
// person the recognizer finds, and a yes/no token for any question. When all
// of these fail the answer is UNKNOWN.
func (t *Typer) Classify(ctx context.Context, raw, question string) Answer {
	text := strings.TrimSpace(strings.ReplaceAll(raw, "\n", " "))

	if IsYesNo(question) {
		if a, ok := findYesNo(text); ok {
			return a
		}
	}

	if m := urlToken.FindString(text); m != "" {
		return Answer{Text: m, Kind: KindEntity}
	}

	if t.recognizer != nil {
		mentions, err := t.recognizer.Recognize(ctx, text)
		if err != nil {
			t.logger.Warn("answer recognition failed", "error", err)
		}
		for _, m := range mentions {
			if entityLabels[m.Label] {
				return Answer{Text: m.Text, Kind: KindEntity}
			}
		}
	}

	if a, ok := findYesNo(text); ok {
		return a
	}

	t.logger.Warn("could not extract an answer", "question", question)
	return Answer{Text: UnknownText, Kind: KindUnknown}
}

func findYesNo(text string) (Answer, bool) {
	m := yesNoToken.FindStringSubmatch(text)
	if m == nil {
		return Answer{}, false
	}
	return Answer{Text: strings.ToLower(m[1]), Kind: KindYesNo}, true
}

// EntityName returns the name to look up for an entity answer. For a URL it
// is the last path segment, percent-decoded, with underscores as spaces.
func EntityName(a Answer) string {
	if a.Kind != KindEntity {
		return ""
	}
	if !urlToken.MatchString(a.Text) {
		return a.Text
	}
	segment := strings.TrimRight(a.Text, "/")
	if i := strings.LastIndex(segment, "/"); i >= 0 {
		segment = segment[i+1:]
	}
	if decoded, err := url.PathUnescape(segment); err == nil {
		segment = decoded
	}
	return strings.ReplaceAll(segment, "_", " ")
}
