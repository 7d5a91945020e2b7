// Package opstest builds an Operations backed by in-memory fakes for tests
// of the transport layers.
package opstest

import (
	"context"
	"fmt"
	"strings"

	"factlink/internal/answer"
	"factlink/internal/graph"
	"factlink/internal/linking"
	"factlink/internal/metrics"
	"factlink/internal/nlp"
	"factlink/internal/operations"
	"factlink/internal/triplets"
	"factlink/internal/verify"
)

// Fixture describes the canned world the fakes answer from.
type Fixture struct {
	// Replies maps a prompt to the model output. Unknown prompts yield "".
	Replies map[string]string
	// Places are recognized as GPE mentions wherever they occur in a text and
	// resolve to http://dbpedia.org/resource/<name>.
	Places []string
	// Unrecognizable makes recognition fail for any text containing one of
	// these strings.
	Unrecognizable []string
	// Relations is returned for every entity pair.
	Relations []string
	// Triplets is returned for every probe.
	Triplets []triplets.Triplet
}

// Build wires the fixture into an Operations with fresh metrics.
func (f Fixture) Build() (*operations.Operations, *metrics.Metrics) {
	rec := placeRecognizer{places: f.Places, unrecognizable: f.Unrecognizable}
	g := fixedGraph{relations: f.Relations}
	linker := linking.NewLinker(rec, linking.NewRetriever(g, nil), linking.NewDisambiguator(flatEmbedder{}, nil), nil)
	m := metrics.New()
	ops := operations.New(operations.Deps{
		Model:    replyModel(f.Replies),
		Linker:   linker,
		Typer:    answer.NewTyper(rec, nil),
		Verifier: verify.NewVerifier(fixedTriplets(f.Triplets), g, nil),
		Metrics:  m,
	})
	return ops, m
}

type replyModel map[string]string

func (r replyModel) Generate(_ context.Context, prompt string) (string, error) {
	return r[prompt], nil
}

func (replyModel) Name() string { return "opstest" }

type placeRecognizer struct {
	places         []string
	unrecognizable []string
}

func (p placeRecognizer) Recognize(_ context.Context, text string) ([]nlp.Mention, error) {
	for _, s := range p.unrecognizable {
		if strings.Contains(text, s) {
			return nil, fmt.Errorf("%w: cannot process %q", nlp.ErrRecognitionUnavailable, s)
		}
	}
	var out []nlp.Mention
	for _, name := range p.places {
		if strings.Contains(text, name) {
			out = append(out, nlp.Mention{Text: name, Label: nlp.LabelGPE})
		}
	}
	return out, nil
}

type flatEmbedder struct{}

func (flatEmbedder) EmbedText(context.Context, string) ([]float32, error) { return []float32{1, 1}, nil }
func (flatEmbedder) ModelID() string { return "flat" }
func (flatEmbedder) Close() error { return nil }

type fixedGraph struct {
	relations []string
}

func (fixedGraph) FindByLabel(_ context.Context, label string, _ []string) ([]graph.Candidate, error) {
	abstract := label + " is a place."
	return []graph.Candidate{{ID: "http://dbpedia.org/resource/" + label, Abstract: &abstract}}, nil
}

func (g fixedGraph) RelationsByName(context.Context, string, string) (graph.RelationSet, error) {
	return graph.NewRelationSet(g.relations...), nil
}

type fixedTriplets []triplets.Triplet

func (f fixedTriplets) ExtractFrom(context.Context, string) ([]triplets.Triplet, error) {
	return f, nil
}
