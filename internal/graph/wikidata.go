package graph

import (
	"context"
	"fmt"
	"net/url"
	"regexp"

	"github.com/tidwall/gjson"

	"factlink/internal/httpclient"
)

var wikidataItem = regexp.MustCompile(`^Q[0-9]+$`)

// Wikidata resolves names to item ids through the wbsearchentities API and
// lists direct-claim properties between two items over SPARQL.
type Wikidata struct {
	http   *httpclient.Client
	apiURL string
	sparql *SPARQLClient
}

func NewWikidata(client *httpclient.Client, apiURL string, sparql *SPARQLClient) *Wikidata {
	return &Wikidata{http: client, apiURL: apiURL, sparql: sparql}
}

// ResolveIdentifier implements RelationSource. The first search hit wins.
func (w *Wikidata) ResolveIdentifier(ctx context.Context, name string) (string, bool, error) {
	if name == "" {
		return "", false, nil
	}
	params := url.Values{}
	params.Set("action", "wbsearchentities")
	params.Set("format", "json")
	params.Set("search", name)
	params.Set("language", "en")
	params.Set("type", "item")

	body, err := w.http.Get(ctx, w.apiURL, params, nil)
	if err != nil {
		return "", false, fmt.Errorf("%w: search %q: %v", ErrRetrieval, name, err)
	}
	if !gjson.ValidBytes(body) {
		return "", false, fmt.Errorf("%w: search %q: malformed response", ErrRetrieval, name)
	}
	id := gjson.GetBytes(body, "search.0.id").String()
	if id == "" {
		return "", false, nil
	}
	return id, true, nil
}

// BuildRelationQuery lists the English labels of properties p such that
// idA p idB, ordered by property number.
func BuildRelationQuery(idA, idB string) string {
	return fmt.Sprintf(`SELECT ?wdLabel WHERE {
  VALUES (?s) {(wd:%s)}
  VALUES (?o) {(wd:%s)}
  ?s ?wdt ?o .
  ?wd wikibase:directClaim ?wdt .
  ?wd rdfs:label ?wdLabel .
  FILTER (lang(?wdLabel) = "en")
}
ORDER BY xsd:integer(STRAFTER(STR(?wd), "http://www.wikidata.org/entity/P"))`, idA, idB)
}

// RelationsBetween implements RelationSource.
func (w *Wikidata) RelationsBetween(ctx context.Context, idA, idB string) (RelationSet, error) {
	// Ids are interpolated into the query, so only item ids are accepted.
	if !wikidataItem.MatchString(idA) || !wikidataItem.MatchString(idB) {
		return nil, fmt.Errorf("%w: invalid item ids %q, %q", ErrRetrieval, idA, idB)
	}
	rows, err := w.sparql.Select(ctx, BuildRelationQuery(idA, idB))
	if err != nil {
		return nil, err
	}
	set := NewRelationSet()
	for _, row := range rows {
		if label, ok := row.Value("wdLabel"); ok && label != "" {
			set.Add(label)
		}
	}
	return set, nil
}
