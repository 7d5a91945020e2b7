package graph

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/tidwall/gjson"

	"factlink/internal/httpclient"
)

// Binding is one row of a SPARQL SELECT result. Unbound variables are absent.
type Binding map[string]string

// Value returns the bound value of name and whether it was bound.
func (b Binding) Value(name string) (string, bool) {
	v, ok := b[name]
	return v, ok
}

// SPARQLClient runs SELECT queries against an endpoint that speaks the
// SPARQL 1.1 JSON results format.
type SPARQLClient struct {
	http     *httpclient.Client
	endpoint string
}

func NewSPARQLClient(client *httpclient.Client, endpoint string) *SPARQLClient {
	return &SPARQLClient{http: client, endpoint: endpoint}
}

// Select runs query and returns its rows in endpoint order. All failures
// wrap ErrRetrieval.
func (s *SPARQLClient) Select(ctx context.Context, query string) ([]Binding, error) {
	params := url.Values{}
	params.Set("query", query)
	params.Set("format", "json")
	header := http.Header{}
	header.Set("Accept", "application/sparql-results+json")

	body, err := s.http.Get(ctx, s.endpoint, params, header)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrieval, err)
	}
	return parseBindings(body)
}

func parseBindings(body []byte) ([]Binding, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: malformed SPARQL response", ErrRetrieval)
	}
	results := gjson.GetBytes(body, "results.bindings")
	if !results.IsArray() {
		return nil, fmt.Errorf("%w: SPARQL response has no results.bindings", ErrRetrieval)
	}

	var rows []Binding
	results.ForEach(func(_, row gjson.Result) bool {
		b := Binding{}
		row.ForEach(func(name, cell gjson.Result) bool {
			b[name.String()] = cell.Get("value").String()
			return true
		})
		rows = append(rows, b)
		return true
	})
	return rows, nil
}
