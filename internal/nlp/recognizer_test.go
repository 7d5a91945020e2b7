package nlp

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

func TestParseLabel(t *testing.T) {
	l, ok := ParseLabel(" gpe ")
	assert.True(t, ok)
	assert.Equal(t, LabelGPE, l)

	_, ok = ParseLabel("MISC")
	assert.False(t, ok)

	assert.Len(t, Labels, 18)
}

func TestHTTPRecognizer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Einstein was born in Ulm.", req["text"])
		_, _ = w.Write([]byte(`{"entities":[
			{"text":"Einstein","label":"PERSON"},
			{"text":"Ulm","label":"GPE"},
			{"text":"thing","label":"MISC"},
			{"text":"","label":"ORG"}
		]}`))
	}))
	defer srv.Close()

	r := NewHTTPRecognizer(httpclient.New(httpclient.Options{}), srv.URL, nil)
	got, err := r.Recognize(context.Background(), "Einstein was born in Ulm.")
	require.NoError(t, err)
	assert.Equal(t, []Mention{
		{Text: "Einstein", Label: LabelPerson},
		{Text: "Ulm", Label: LabelGPE},
	}, got)
}

func TestHTTPRecognizer_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	r := NewHTTPRecognizer(httpclient.New(httpclient.Options{}), srv.URL, nil)
	_, err := r.Recognize(context.Background(), "text")
	require.Error(t, err)

	err = Probe(context.Background(), r)
	assert.ErrorIs(t, err, ErrRecognitionUnavailable)
	assert.ErrorIs(t, Probe(context.Background(), nil), ErrRecognitionUnavailable)
}

type fakeModel struct {
	reply string
	err   error
}

func (f fakeModel) Generate(context.Context, string) (string, error) { return f.reply, f.err }
func (f fakeModel) Name() string { return "fake" }

func TestLLMRecognizer(t *testing.T) {
	m := fakeModel{reply: "```json\n" + `{"entities":[
		{"text":"Marie Curie","label":"person"},
		{"text":"Warsaw","label":"GPE"},
		{"text":"Poland","label":"GPE"},
		{"text":"1867","label":"DATE"}
	]}` + "\n```"}
	r := NewLLMRecognizer(m, nil)

	got, err := r.Recognize(context.Background(), "Marie Curie was born in Warsaw in 1867.")
	require.NoError(t, err)
	assert.Equal(t, []Mention{
		{Text: "Marie Curie", Label: LabelPerson},
		{Text: "Warsaw", Label: LabelGPE},
		{Text: "1867", Label: LabelDate},
	}, got)

	_, err = NewLLMRecognizer(fakeModel{err: errors.New("boom")}, nil).Recognize(context.Background(), "x")
	require.Error(t, err)
}
