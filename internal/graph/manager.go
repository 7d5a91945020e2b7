package graph

import (
	"context"
	"fmt"
	"log/slog"

	"factlink/internal/httpclient"
)

// Endpoints locates the remote graphs.
type Endpoints struct {
	DBpediaSPARQL  string
	WikidataSPARQL string
	WikidataAPI    string
}

// Manager is the knowledge-graph client handed to the pipeline: DBpedia for
// candidate lookup, Wikidata for name resolution and relations. It is
// read-only and keeps no state between calls.
type Manager struct {
	candidates CandidateSource
	relations  RelationSource
	filter     TypeFilter
	logger     *slog.Logger
}

// NewManager wires the default remote sources over client.
func NewManager(client *httpclient.Client, ep Endpoints, filter TypeFilter, logger *slog.Logger) *Manager {
	dbpedia := NewDBpedia(NewSPARQLClient(client, ep.DBpediaSPARQL))
	wikidata := NewWikidata(client, ep.WikidataAPI, NewSPARQLClient(client, ep.WikidataSPARQL))
	return NewManagerWith(dbpedia, wikidata, filter, logger)
}

// NewManagerWith builds a Manager over arbitrary sources.
func NewManagerWith(candidates CandidateSource, relations RelationSource, filter TypeFilter, logger *slog.Logger) *Manager {
	if filter == nil {
		filter = DefaultTypeFilter()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{candidates: candidates, relations: relations, filter: filter, logger: logger}
}

// TypeFilter returns the label to class table in use.
func (m *Manager) TypeFilter() TypeFilter { return m.filter }

// FindByLabel implements CandidateSource.
func (m *Manager) FindByLabel(ctx context.Context, label string, classes []string) ([]Candidate, error) {
	return m.candidates.FindByLabel(ctx, label, classes)
}

// ResolveIdentifier implements RelationSource.
func (m *Manager) ResolveIdentifier(ctx context.Context, name string) (string, bool, error) {
	return m.relations.ResolveIdentifier(ctx, name)
}

// RelationsBetween implements RelationSource.
func (m *Manager) RelationsBetween(ctx context.Context, idA, idB string) (RelationSet, error) {
	return m.relations.RelationsBetween(ctx, idA, idB)
}

// RelationsByName resolves both names and returns the relations from the
// first to the second. An empty or unresolvable name yields an empty set and
// no error. Lookup failures are returned wrapped in ErrRetrieval.
func (m *Manager) RelationsByName(ctx context.Context, nameA, nameB string) (RelationSet, error) {
	if nameA == "" || nameB == "" {
		return NewRelationSet(), nil
	}

	idA, ok, err := m.relations.ResolveIdentifier(ctx, nameA)
	if err != nil {
		return NewRelationSet(), fmt.Errorf("resolve %q: %w", nameA, err)
	}
	if !ok {
		m.logger.Info("no graph identifier", "name", nameA)
		return NewRelationSet(), nil
	}
	idB, ok, err := m.relations.ResolveIdentifier(ctx, nameB)
	if err != nil {
		return NewRelationSet(), fmt.Errorf("resolve %q: %w", nameB, err)
	}
	if !ok {
		m.logger.Info("no graph identifier", "name", nameB)
		return NewRelationSet(), nil
	}

	set, err := m.relations.RelationsBetween(ctx, idA, idB)
	if err != nil {
		return NewRelationSet(), fmt.Errorf("relations %s -> %s: %w", idA, idB, err)
	}
	m.logger.Debug("graph relations", "subject", nameA, "object", nameB, "relations", set.Sorted())
	return set, nil
}
