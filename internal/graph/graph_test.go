package graph

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"factlink/internal/httpclient"
	"factlink/internal/nlp"
)

func TestDefaultTypeFilter_IsTotal(t *testing.T) {
	f := DefaultTypeFilter()
	require.NoError(t, f.Validate(nlp.Labels))
	assert.Equal(t, []string{
		"http://dbpedia.org/ontology/Country",
		"http://dbpedia.org/ontology/City",
		"http://dbpedia.org/ontology/Region",
	}, f.Classes(nlp.LabelGPE))
	assert.Empty(t, f.Classes(nlp.LabelDate))
	assert.Empty(t, f.Classes(nlp.LabelCardinal))

	delete(f, nlp.LabelLaw)
	err := f.Validate(nlp.Labels)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LAW")
}

func TestLoadTypeFilter(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "filters.yaml")
	require.NoError(t, os.WriteFile(path, []byte("GPE: [Country, \"http://schema.org/Place\"]\nDATE: []\n"), 0o644))

	f, err := LoadTypeFilter(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"http://dbpedia.org/ontology/Country", "http://schema.org/Place"}, f.Classes(nlp.LabelGPE))
	assert.Equal(t, []string{"http://dbpedia.org/ontology/Person"}, f.Classes(nlp.LabelPerson))

	require.NoError(t, os.WriteFile(path, []byte("MISC: [Thing]\n"), 0o644))
	_, err = LoadTypeFilter(path)
	require.Error(t, err)

	f, err = LoadTypeFilter("")
	require.NoError(t, err)
	assert.Len(t, f, len(nlp.Labels))
}

func TestEscapeLiteral(t *testing.T) {
	assert.Equal(t, `O\"Brien`, EscapeLiteral(`O"Brien`))
	assert.Equal(t, `a\\b`, EscapeLiteral(`a\b`))
	// Backslashes first, so an escaped quote is not double-escaped.
	assert.Equal(t, `\\\"`, EscapeLiteral(`\"`))
}

func TestBuildLabelQuery(t *testing.T) {
	q := BuildLabelQuery(`Paris "City"`, []string{"http://dbpedia.org/ontology/City"})
	assert.Contains(t, q, `VALUES ?type { <http://dbpedia.org/ontology/City> }`)
	assert.Contains(t, q, `?entity rdf:type ?type .`)
	assert.Contains(t, q, `FILTER (lcase(str(?label)) = lcase("Paris \"City\""))`)
	assert.Contains(t, q, `OPTIONAL { ?entity dbo:abstract ?abstract .`)
	assert.True(t, strings.HasSuffix(q, "LIMIT 5"))

	q = BuildLabelQuery("1999", nil)
	assert.NotContains(t, q, "VALUES")
	assert.NotContains(t, q, "rdf:type")
}

const dbpediaResponse = `{"head":{"vars":["entity","abstract"]},"results":{"bindings":[
  {"entity":{"type":"uri","value":"http://dbpedia.org/resource/Paris"},
   "abstract":{"type":"literal","xml:lang":"en","value":"Paris is the capital of France."}},
  {"entity":{"type":"uri","value":"http://dbpedia.org/resource/Paris,_Texas"}},
  {"entity":{"type":"uri","value":"http://dbpedia.org/resource/Paris_(mythology)"},
   "abstract":{"type":"literal","value":""}}
]}}`

func TestDBpedia_FindByLabel(t *testing.T) {
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query().Get("query")
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		_, _ = w.Write([]byte(dbpediaResponse))
	}))
	defer srv.Close()

	d := NewDBpedia(NewSPARQLClient(httpclient.New(httpclient.Options{}), srv.URL))
	got, err := d.FindByLabel(context.Background(), "Paris", DefaultTypeFilter().Classes(nlp.LabelGPE))
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "http://dbpedia.org/resource/Paris", got[0].ID)
	require.NotNil(t, got[0].Abstract)
	assert.True(t, got[0].HasAbstract())

	assert.Nil(t, got[1].Abstract, "missing abstract stays absent")
	require.NotNil(t, got[2].Abstract, "empty abstract stays present")
	assert.False(t, got[2].HasAbstract())

	assert.Contains(t, query, `lcase("Paris")`)
	assert.Contains(t, query, "<http://dbpedia.org/ontology/Region>")
}

func TestDBpedia_FindByLabelFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "timeout", http.StatusGatewayTimeout)
		}},
		{"not json", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("<html>oops</html>"))
		}},
		{"no bindings", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"head":{}}`))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()
			d := NewDBpedia(NewSPARQLClient(httpclient.New(httpclient.Options{}), srv.URL))
			_, err := d.FindByLabel(context.Background(), "Paris", nil)
			assert.ErrorIs(t, err, ErrRetrieval)
		})
	}
}

func wikidataServer(t *testing.T, ids map[string]string, relations string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/w/api.php", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "wbsearchentities", q.Get("action"))
		assert.Equal(t, "item", q.Get("type"))
		if id, ok := ids[q.Get("search")]; ok {
			_, _ = w.Write([]byte(`{"search":[{"id":"` + id + `"},{"id":"Q999"}]}`))
			return
		}
		_, _ = w.Write([]byte(`{"search":[]}`))
	})
	mux.HandleFunc("/sparql", func(w http.ResponseWriter, r *http.Request) {
		if relations == "" {
			http.Error(w, "overloaded", http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(relations))
	})
	return httptest.NewServer(mux)
}

func TestWikidata(t *testing.T) {
	srv := wikidataServer(t, map[string]string{"Paris": "Q90", "France": "Q142"},
		`{"results":{"bindings":[{"wdLabel":{"value":"country"}},{"wdLabel":{"value":"capital of"}}]}}`)
	defer srv.Close()

	client := httpclient.New(httpclient.Options{})
	w := NewWikidata(client, srv.URL+"/w/api.php", NewSPARQLClient(client, srv.URL+"/sparql"))
	ctx := context.Background()

	id, ok, err := w.ResolveIdentifier(ctx, "Paris")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Q90", id)

	_, ok, err = w.ResolveIdentifier(ctx, "Atlantis")
	require.NoError(t, err)
	assert.False(t, ok)

	set, err := w.RelationsBetween(ctx, "Q90", "Q142")
	require.NoError(t, err)
	assert.Equal(t, []string{"capital of", "country"}, set.Sorted())

	_, err = w.RelationsBetween(ctx, "Q90", "wd:Q1 } DROP")
	assert.ErrorIs(t, err, ErrRetrieval)
}

func TestBuildRelationQuery(t *testing.T) {
	q := BuildRelationQuery("Q90", "Q142")
	assert.Contains(t, q, "VALUES (?s) {(wd:Q90)}")
	assert.Contains(t, q, "VALUES (?o) {(wd:Q142)}")
	assert.Contains(t, q, "wikibase:directClaim")
}

type fakeRelations struct {
	ids        map[string]string
	rels       map[string]RelationSet
	resolveErr error
	relErr     error
	resolved   []string
}

func (f *fakeRelations) ResolveIdentifier(_ context.Context, name string) (string, bool, error) {
	f.resolved = append(f.resolved, name)
	if f.resolveErr != nil {
		return "", false, f.resolveErr
	}
	id, ok := f.ids[name]
	return id, ok, nil
}

func (f *fakeRelations) RelationsBetween(_ context.Context, a, b string) (RelationSet, error) {
	if f.relErr != nil {
		return nil, f.relErr
	}
	return f.rels[a+"|"+b], nil
}

func TestManager_RelationsByName(t *testing.T) {
	ctx := context.Background()
	rel := &fakeRelations{
		ids:  map[string]string{"Paris": "Q90", "France": "Q142"},
		rels: map[string]RelationSet{"Q90|Q142": NewRelationSet("capital of")},
	}
	m := NewManagerWith(nil, rel, nil, nil)

	set, err := m.RelationsByName(ctx, "Paris", "France")
	require.NoError(t, err)
	assert.True(t, set.Contains("capital of"))

	set, err = m.RelationsByName(ctx, "Paris", "Atlantis")
	require.NoError(t, err)
	assert.Empty(t, set)

	rel.resolved = nil
	set, err = m.RelationsByName(ctx, "", "France")
	require.NoError(t, err)
	assert.Empty(t, set)
	assert.Empty(t, rel.resolved, "empty names are not looked up")

	rel.relErr = errors.New("endpoint down")
	set, err = m.RelationsByName(ctx, "Paris", "France")
	require.Error(t, err)
	assert.NotNil(t, set)
	assert.Empty(t, set)
}
