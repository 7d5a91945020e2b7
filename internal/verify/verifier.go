// Package verify classifies a typed answer as correct or incorrect against
// relations found in the knowledge graph.
package verify

import (
	"context"
	"log/slog"
	"strings"

	"factlink/internal/answer"
	"factlink/internal/graph"
	"factlink/internal/triplets"
)

// Verdict is the outcome of verification.
type Verdict string

const (
	Correct   Verdict = "correct"
	Incorrect Verdict = "incorrect"
)

// RelationLookup returns the relation labels from the entity named a to the
// entity named b. Unresolvable names give an empty set and no error.
type RelationLookup interface {
	RelationsByName(ctx context.Context, nameA, nameB string) (graph.RelationSet, error)
}

// TripletSource extracts triplets from a probe text.
type TripletSource interface {
	ExtractFrom(ctx context.Context, text string) ([]triplets.Triplet, error)
}

// Verifier checks extracted triplets against graph relations.
type Verifier struct {
	triplets  TripletSource
	relations RelationLookup
	logger    *slog.Logger
}

func NewVerifier(source TripletSource, relations RelationLookup, logger *slog.Logger) *Verifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Verifier{triplets: source, relations: relations, logger: logger}
}

// Probe joins the question and the subject name into the text triplets are
// extracted from.
func Probe(question, subject string) string {
	if subject == "" {
		return question
	}
	return strings.TrimSpace(question) + " " + subject
}

// Verify decides whether ans answers question correctly.
//
// Yes/no answers: the first triplet whose relation holds between its head
// and tail decides (yes is correct, no is incorrect). With no such triplet,
// no is correct and yes is incorrect.
//
// Entity answers: correct when some triplet's relation holds from its head
// to the entity or from the entity to its tail.
//
// Unknown answers and triplet generation failures are incorrect.
func (v *Verifier) Verify(ctx context.Context, question string, ans answer.Answer) Verdict {
	if ans.Kind == answer.KindUnknown {
		return Incorrect
	}

	entity := answer.EntityName(ans)
	extracted, err := v.triplets.ExtractFrom(ctx, Probe(question, entity))
	if err != nil {
		v.logger.Error("triplet extraction failed", "question", question, "error", err)
		return Incorrect
	}
	v.logger.Debug("extracted triplets", "question", question, "triplets", extracted)

	switch ans.Kind {
	case answer.KindYesNo:
		yes := strings.EqualFold(ans.Text, "yes")
		for _, t := range extracted {
			if v.lookup(ctx, t.Head, t.Tail).Contains(t.Relation) {
				if yes {
					return Correct
				}
				return Incorrect
			}
		}
		if yes {
			return Incorrect
		}
		return Correct

	case answer.KindEntity:
		for _, t := range extracted {
			rels := graph.NewRelationSet().
				Union(v.lookup(ctx, t.Head, entity)).
				Union(v.lookup(ctx, entity, t.Tail))
			if rels.Contains(t.Relation) {
				return Correct
			}
		}
		return Incorrect
	}
	return Incorrect
}

// lookup never fails: retrieval errors are logged and count as no evidence.
func (v *Verifier) lookup(ctx context.Context, a, b string) graph.RelationSet {
	set, err := v.relations.RelationsByName(ctx, a, b)
	if err != nil {
		v.logger.Error("relation lookup failed", "subject", a, "object", b, "error", err)
		return graph.NewRelationSet()
	}
	if set == nil {
		return graph.NewRelationSet()
	}
	return set
}
