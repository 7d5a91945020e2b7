package graph

import (
	"context"
	"errors"
	"sort"
)

// ErrRetrieval marks a network or parse failure talking to a knowledge graph.
// It is recoverable: callers skip the mention or lookup in progress.
var ErrRetrieval = errors.New("knowledge graph retrieval failed")

// MaxCandidates caps label lookups to bound scoring cost.
const MaxCandidates = 5

// Candidate is a knowledge-base entry whose label matched a mention.
// Abstract is nil when the entry has no description, which is distinct from
// a present but empty one.
type Candidate struct {
	ID       string  `json:"id"`
	Abstract *string `json:"abstract,omitempty"`
}

// HasAbstract reports whether the candidate carries usable description text.
func (c Candidate) HasAbstract() bool {
	return c.Abstract != nil && *c.Abstract != ""
}

// RelationSet is a set of relation labels holding between two entities.
type RelationSet map[string]struct{}

func NewRelationSet(labels ...string) RelationSet {
	s := make(RelationSet, len(labels))
	for _, l := range labels {
		s.Add(l)
	}
	return s
}

func (s RelationSet) Add(label string) { s[label] = struct{}{} }

func (s RelationSet) Contains(label string) bool {
	_, ok := s[label]
	return ok
}

// Union adds every label of other to s and returns s.
func (s RelationSet) Union(other RelationSet) RelationSet {
	for l := range other {
		s.Add(l)
	}
	return s
}

// Sorted returns the labels in lexical order, for logs and JSON.
func (s RelationSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for l := range s {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// CandidateSource finds entries by exact, case-insensitive label. A non-empty
// classes slice restricts results to entries of one of those classes.
type CandidateSource interface {
	FindByLabel(ctx context.Context, label string, classes []string) ([]Candidate, error)
}

// RelationSource looks up relations between entities identified by name.
type RelationSource interface {
	// ResolveIdentifier maps a name to a graph identifier. ok is false when
	// nothing matched.
	ResolveIdentifier(ctx context.Context, name string) (id string, ok bool, err error)
	RelationsBetween(ctx context.Context, idA, idB string) (RelationSet, error)
}
