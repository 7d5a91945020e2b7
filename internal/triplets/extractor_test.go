package triplets

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"factlink/internal/httpclient"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name   string
		tagged string
		want   []Triplet
	}{
		{
			name:   "single",
			tagged: "<triplet> Paris <subj> France <obj> capital of",
			want:   []Triplet{{Head: "Paris", Relation: "capital of", Tail: "France"}},
		},
		{
			name:   "model framing tokens",
			tagged: "<s><triplet> Paris <subj> France <obj> capital of</s><pad><pad>",
			want:   []Triplet{{Head: "Paris", Relation: "capital of", Tail: "France"}},
		},
		{
			name:   "two heads",
			tagged: "<triplet> Punta Cana <subj> Dominican Republic <obj> country <triplet> Dominican Republic <subj> Caribbean <obj> located in",
			want: []Triplet{
				{Head: "Punta Cana", Relation: "country", Tail: "Dominican Republic"},
				{Head: "Dominican Republic", Relation: "located in", Tail: "Caribbean"},
			},
		},
		{
			name:   "shared head",
			tagged: "<triplet> Einstein <subj> Ulm <obj> place of birth <subj> physicist <obj> occupation",
			want: []Triplet{
				{Head: "Einstein", Relation: "place of birth", Tail: "Ulm"},
				{Head: "Einstein", Relation: "occupation", Tail: "physicist"},
			},
		},
		{
			name:   "incomplete triplet is dropped",
			tagged: "<triplet> Paris <subj> France",
			want:   nil,
		},
		{
			name:   "words before any marker are ignored",
			tagged: "noise words <triplet> Rome <subj> Italy <obj> capital of",
			want:   []Triplet{{Head: "Rome", Relation: "capital of", Tail: "Italy"}},
		},
		{
			name:   "empty",
			tagged: "",
			want:   nil,
		},
		{
			name:   "relation without head",
			tagged: "<subj> France <obj> capital of",
			want:   nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Extract(tt.tagged))
		})
	}
}

func TestStateNames(t *testing.T) {
	assert.Equal(t, "idle", stateIdle.String())
	assert.Equal(t, "tail-target", stateTail.String())
	assert.Equal(t, "relation", stateRelation.String())
}

func TestHTTPGenerator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer hf_test", r.Header.Get("Authorization"))
		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Is Paris the capital of France?", req["inputs"])
		_, _ = w.Write([]byte(`[{"generated_text":"<s><triplet> Paris <subj> France <obj> capital of</s>"}]`))
	}))
	defer srv.Close()

	e := NewExtractor(NewHTTPGenerator(httpclient.New(httpclient.Options{}), srv.URL, "hf_test"))
	got, err := e.ExtractFrom(context.Background(), "Is Paris the capital of France?")
	require.NoError(t, err)
	assert.Equal(t, []Triplet{{Head: "Paris", Relation: "capital of", Tail: "France"}}, got)
}

func TestHTTPGenerator_Failures(t *testing.T) {
	for name, body := range map[string]string{
		"no generated_text": `[{"summary_text":"x"}]`,
		"not json":          `Model is loading`,
	} {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()
			_, err := NewExtractor(NewHTTPGenerator(httpclient.New(httpclient.Options{}), srv.URL, "")).
				ExtractFrom(context.Background(), "text")
			assert.ErrorIs(t, err, ErrGeneration)
		})
	}
}

type scriptedModel struct {
	reply string
	err   error
}

func (s scriptedModel) Generate(context.Context, string) (string, error) { return s.reply, s.err }

func (s scriptedModel) Name() string { return "scripted" }

func TestLLMGenerator(t *testing.T) {
	e := NewExtractor(NewLLMGenerator(scriptedModel{reply: " <triplet> Rome <subj> Italy <obj> capital of\n"}))
	got, err := e.ExtractFrom(context.Background(), "Rome is the capital of Italy.")
	require.NoError(t, err)
	assert.Equal(t, []Triplet{{Head: "Rome", Relation: "capital of", Tail: "Italy"}}, got)

	_, err = NewExtractor(NewLLMGenerator(scriptedModel{reply: "I cannot help"})).ExtractFrom(context.Background(), "x")
	assert.ErrorIs(t, err, ErrGeneration)

	_, err = NewExtractor(NewLLMGenerator(scriptedModel{err: errors.New("quota")})).ExtractFrom(context.Background(), "x")
	assert.ErrorIs(t, err, ErrGeneration)
}
