package graph

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"factlink/internal/nlp"
)

const dbpediaOntology = "http://dbpedia.org/ontology/"

// TypeFilter maps each recognizer label to the DBpedia classes a candidate
// must belong to. An empty entry means no class restriction.
type TypeFilter map[nlp.Label][]string

// DefaultTypeFilter returns the built-in table.
func DefaultTypeFilter() TypeFilter {
	o := func(names ...string) []string {
		out := make([]string, len(names))
		for i, n := range names {
			out[i] = dbpediaOntology + n
		}
		return out
	}
	return TypeFilter{
		nlp.LabelPerson:    o("Person"),
		nlp.LabelNORP:      o("Organisation", "Group"),
		nlp.LabelFacility:  o("Facility"),
		nlp.LabelOrg:       o("Organisation"),
		nlp.LabelGPE:       o("Country", "City", "Region"),
		nlp.LabelLocation:  o("Location"),
		nlp.LabelProduct:   o("Product"),
		nlp.LabelEvent:     o("Event"),
		nlp.LabelWorkOfArt: o("Work"),
		nlp.LabelLaw:       o("Law"),
		nlp.LabelLanguage:  o("Language"),
		nlp.LabelDate:      {},
		nlp.LabelTime:      {},
		nlp.LabelPercent:   {},
		nlp.LabelMoney:     {},
		nlp.LabelQuantity:  {},
		nlp.LabelOrdinal:   {},
		nlp.LabelCardinal:  {},
	}
}

// Classes returns the filter for label. Unknown labels get no restriction.
func (f TypeFilter) Classes(label nlp.Label) []string {
	return f[label]
}

// Validate checks that every label in labels has an entry.
func (f TypeFilter) Validate(labels []nlp.Label) error {
	var missing []string
	for _, l := range labels {
		if _, ok := f[l]; !ok {
			missing = append(missing, string(l))
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("type filter has no entry for %s", strings.Join(missing, ", "))
	}
	return nil
}

// LoadTypeFilter reads a YAML override of the form
//
//	GPE: [Country, City]
//	DATE: []
//
// Class names without a scheme are taken to be in the DBpedia ontology.
// Labels absent from the file keep their built-in entry. The merged table is
// validated against nlp.Labels.
func LoadTypeFilter(path string) (TypeFilter, error) {
	filter := DefaultTypeFilter()
	if path == "" {
		return filter, filter.Validate(nlp.Labels)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read type filters: %w", err)
	}
	var raw map[string][]string
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse type filters %s: %w", path, err)
	}

	for name, classes := range raw {
		label, ok := nlp.ParseLabel(name)
		if !ok {
			return nil, fmt.Errorf("type filters %s: unknown label %q", path, name)
		}
		resolved := make([]string, 0, len(classes))
		for _, c := range classes {
			if !strings.Contains(c, "://") {
				c = dbpediaOntology + c
			}
			resolved = append(resolved, c)
		}
		filter[label] = resolved
	}
	return filter, filter.Validate(nlp.Labels)
}
