// Package linking maps entity mentions to knowledge-base identifiers using
// exact-label candidate retrieval and embedding similarity.
package linking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"factlink/internal/embed"
	"factlink/internal/graph"
	"factlink/internal/nlp"
)

// LinkedEntity is a mention and the identifier it was resolved to.
type LinkedEntity struct {
	Mention string `json:"mention"`
	ID      string `json:"id"`
}

// Retriever fetches candidates for a mention, restricted by its label's
// class filter.
type Retriever struct {
	source graph.CandidateSource
	filter graph.TypeFilter
}

func NewRetriever(source graph.CandidateSource, filter graph.TypeFilter) *Retriever {
	if filter == nil {
		filter = graph.DefaultTypeFilter()
	}
	return &Retriever{source: source, filter: filter}
}

// Retrieve returns at most graph.MaxCandidates candidates in store order.
// Store failures are returned, not swallowed.
func (r *Retriever) Retrieve(ctx context.Context, mention string, label nlp.Label) ([]graph.Candidate, error) {
	candidates, err := r.source.FindByLabel(ctx, mention, r.filter.Classes(label))
	if err != nil {
		return nil, err
	}
	if len(candidates) > graph.MaxCandidates {
		candidates = candidates[:graph.MaxCandidates]
	}
	return candidates, nil
}

// Disambiguator picks the candidate whose abstract is most similar to the
// context.
type Disambiguator struct {
	embedder embed.Embedder
	logger   *slog.Logger
}

func NewDisambiguator(embedder embed.Embedder, logger *slog.Logger) *Disambiguator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Disambiguator{embedder: embedder, logger: logger}
}

// Choose returns the identifier of the best candidate, or ok=false when no
// candidate has a usable score. Ties go to the earlier candidate. Candidates
// without an abstract, with a zero vector, or with a NaN score never win.
func (d *Disambiguator) Choose(ctx context.Context, candidates []graph.Candidate, contextText string) (id string, ok bool, err error) {
	if len(candidates) == 0 {
		return "", false, nil
	}

	ctxVec, err := d.embedder.EmbedText(ctx, contextText)
	if err != nil {
		return "", false, fmt.Errorf("embed context: %w", err)
	}
	if embed.Norm(ctxVec) == 0 {
		d.logger.Debug("context embedding has zero magnitude")
		return "", false, nil
	}

	var (
		best  float64
		found bool
	)
	for _, c := range candidates {
		if !c.HasAbstract() {
			d.logger.Debug("candidate has no abstract", "candidate", c.ID)
			continue
		}

		vec, err := d.embedder.EmbedText(ctx, *c.Abstract)
		if err != nil {
			return "", false, fmt.Errorf("embed abstract of %s: %w", c.ID, err)
		}
		score, usable := embed.Cosine(ctxVec, vec)
		if !usable {
			d.logger.Debug("degenerate similarity", "candidate", c.ID)
			continue
		}
		d.logger.Debug("candidate score", "candidate", c.ID, "score", score)
		if !found || score > best {
			best, id, found = score, c.ID, true
		}
	}
	return id, found, nil
}

// Linker composes recognition, retrieval and disambiguation.
type Linker struct {
	recognizer    nlp.Recognizer
	retriever     *Retriever
	disambiguator *Disambiguator
	logger        *slog.Logger
}

func NewLinker(recognizer nlp.Recognizer, retriever *Retriever, disambiguator *Disambiguator, logger *slog.Logger) *Linker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Linker{
		recognizer:    recognizer,
		retriever:     retriever,
		disambiguator: disambiguator,
		logger:        logger,
	}
}

// LinkAll links every mention in text, scoring candidates against contextText.
// Results follow recognizer order. A mention whose retrieval or scoring fails
// is logged and left out; only a recognizer failure is returned.
func (l *Linker) LinkAll(ctx context.Context, text, contextText string) ([]LinkedEntity, error) {
	mentions, err := l.recognizer.Recognize(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("recognize: %w", err)
	}

	var linked []LinkedEntity
	for _, m := range mentions {
		candidates, err := l.retriever.Retrieve(ctx, m.Text, m.Label)
		if err != nil {
			l.logger.Error("candidate retrieval failed", "mention", m.Text, "label", m.Label, "error", err)
			continue
		}
		if len(candidates) == 0 {
			l.logger.Info("no candidates", "mention", m.Text, "label", m.Label)
			continue
		}

		id, ok, err := l.disambiguator.Choose(ctx, candidates, contextText)
		if err != nil {
			l.logger.Error("disambiguation failed", "mention", m.Text, "error", err)
			continue
		}
		if !ok {
			l.logger.Info("no link", "mention", m.Text, "candidates", len(candidates))
			continue
		}
		l.logger.Debug("linked", "mention", m.Text, "entity", id)
		linked = append(linked, LinkedEntity{Mention: m.Text, ID: id})
	}
	return linked, nil
}

// LinkQuestionAndAnswer links the question then the answer, both against
// the shared context "question answer", and deduplicates the concatenation.
// A side whose recognition fails is logged and contributes no links; an error
// is returned only when both sides fail.
func (l *Linker) LinkQuestionAndAnswer(ctx context.Context, question, answer string) ([]LinkedEntity, error) {
	shared := question + " " + answer

	fromQuestion, qErr := l.LinkAll(ctx, question, shared)
	if qErr != nil {
		l.logger.Error("linking failed", "side", "question", "error", qErr)
	}
	fromAnswer, aErr := l.LinkAll(ctx, answer, shared)
	if aErr != nil {
		l.logger.Error("linking failed", "side", "answer", "error", aErr)
	}
	if qErr != nil && aErr != nil {
		return nil, errors.Join(qErr, aErr)
	}
	return Dedupe(append(fromQuestion, fromAnswer...)), nil
}

// Dedupe keeps the first link for each mention text. Later links for the
// same text are dropped even when they point elsewhere.
func Dedupe(entities []LinkedEntity) []LinkedEntity {
	seen := make(map[string]struct{}, len(entities))
	out := make([]LinkedEntity, 0, len(entities))
	for _, e := range entities {
		if _, dup := seen[e.Mention]; dup {
			continue
		}
		seen[e.Mention] = struct{}{}
		out = append(out, e)
	}
	return out
}
