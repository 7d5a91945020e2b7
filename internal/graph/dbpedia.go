package graph

import (
	"context"
	"fmt"
	"strings"
)

// DBpedia finds candidate resources by label.
type DBpedia struct {
	sparql *SPARQLClient
}

func NewDBpedia(sparql *SPARQLClient) *DBpedia {
	return &DBpedia{sparql: sparql}
}

// EscapeLiteral escapes text for use inside a double-quoted SPARQL string.
// Backslashes are doubled before quotes are escaped.
func EscapeLiteral(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

// BuildLabelQuery returns a SELECT for resources whose label equals label
// ignoring case, optionally restricted to the given class IRIs.
func BuildLabelQuery(label string, classes []string) string {
	var b strings.Builder
	b.WriteString("PREFIX rdf: <http://www.w3.org/1999/02/22-rdf-syntax-ns#>\n")
	b.WriteString("PREFIX rdfs: <http://www.w3.org/2000/01/rdf-schema#>\n")
	b.WriteString("PREFIX dbo: <http://dbpedia.org/ontology/>\n")
	b.WriteString("SELECT DISTINCT ?entity ?abstract WHERE {\n")
	b.WriteString("  ?entity rdfs:label ?label .\n")
	if len(classes) > 0 {
		b.WriteString("  VALUES ?type {")
		for _, c := range classes {
			fmt.Fprintf(&b, " <%s>", c)
		}
		b.WriteString(" }\n")
		b.WriteString("  ?entity rdf:type ?type .\n")
	}
	b.WriteString("  OPTIONAL { ?entity dbo:abstract ?abstract . FILTER (lang(?abstract) = 'en') }\n")
	fmt.Fprintf(&b, "  FILTER (lcase(str(?label)) = lcase(\"%s\"))\n", EscapeLiteral(label))
	fmt.Fprintf(&b, "} LIMIT %d", MaxCandidates)
	return b.String()
}

// FindByLabel implements CandidateSource.
func (d *DBpedia) FindByLabel(ctx context.Context, label string, classes []string) ([]Candidate, error) {
	rows, err := d.sparql.Select(ctx, BuildLabelQuery(label, classes))
	if err != nil {
		return nil, fmt.Errorf("find %q: %w", label, err)
	}

	candidates := make([]Candidate, 0, len(rows))
	for _, row := range rows {
		id, ok := row.Value("entity")
		if !ok || id == "" {
			continue
		}
		c := Candidate{ID: id}
		if abstract, ok := row.Value("abstract"); ok {
			c.Abstract = &abstract
		}
		candidates = append(candidates, c)
		if len(candidates) == MaxCandidates {
			break
		}
	}
	return candidates, nil
}
