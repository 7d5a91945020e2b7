package linking

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"factlink/internal/graph"
	"factlink/internal/nlp"
)

// vectorEmbedder returns a fixed vector per text and an error for unknown text.
type vectorEmbedder map[string][]float32

func (v vectorEmbedder) EmbedText(_ context.Context, text string) ([]float32, error) {
	vec, ok := v[text]
	if !ok {
		return nil, errors.New("unexpected text " + text)
	}
	return vec, nil
}

func (v vectorEmbedder) ModelID() string { return "test" }

func (v vectorEmbedder) Close() error { return nil }

type staticRecognizer map[string][]nlp.Mention

func (s staticRecognizer) Recognize(_ context.Context, text string) ([]nlp.Mention, error) {
	return s[text], nil
}

type fakeSource struct {
	byLabel map[string][]graph.Candidate
	fail    map[string]bool
	classes map[string][]string
}

func (f *fakeSource) FindByLabel(_ context.Context, label string, classes []string) ([]graph.Candidate, error) {
	if f.classes == nil {
		f.classes = map[string][]string{}
	}
	f.classes[label] = classes
	if f.fail[label] {
		return nil, graph.ErrRetrieval
	}
	return f.byLabel[label], nil
}

func abstract(s string) *string { return &s }

func TestRetriever(t *testing.T) {
	many := make([]graph.Candidate, 8)
	for i := range many {
		many[i] = graph.Candidate{ID: string(rune('a' + i))}
	}
	src := &fakeSource{byLabel: map[string][]graph.Candidate{"Paris": many}, fail: map[string]bool{"Oops": true}}
	r := NewRetriever(src, nil)

	got, err := r.Retrieve(context.Background(), "Paris", nlp.LabelGPE)
	require.NoError(t, err)
	assert.Len(t, got, graph.MaxCandidates)
	assert.Equal(t, graph.DefaultTypeFilter().Classes(nlp.LabelGPE), src.classes["Paris"])

	_, err = r.Retrieve(context.Background(), "1999", nlp.LabelDate)
	require.NoError(t, err)
	assert.Empty(t, src.classes["1999"])

	_, err = r.Retrieve(context.Background(), "Oops", nlp.LabelOrg)
	assert.ErrorIs(t, err, graph.ErrRetrieval)
}

func TestDisambiguator_Choose(t *testing.T) {
	emb := vectorEmbedder{
		"ctx":      {1, 0},
		"close":    {0.9, 0.1},
		"far":      {0, 1},
		"opposite": {-1, 0},
		"same-a":   {1, 0},
		"same-b":   {2, 0},
		"zero":     {0, 0},
		"nan":      {float32(math.NaN()), 1},
		"zeroctx":  {0, 0},
	}
	d := NewDisambiguator(emb, nil)
	ctx := context.Background()

	tests := []struct {
		name       string
		candidates []graph.Candidate
		context    string
		want       string
		wantOK     bool
	}{
		{
			name: "best score wins",
			candidates: []graph.Candidate{
				{ID: "far", Abstract: abstract("far")},
				{ID: "close", Abstract: abstract("close")},
			},
			context: "ctx", want: "close", wantOK: true,
		},
		{
			name: "tie goes to earlier candidate",
			candidates: []graph.Candidate{
				{ID: "first", Abstract: abstract("same-a")},
				{ID: "second", Abstract: abstract("same-b")},
			},
			context: "ctx", want: "first", wantOK: true,
		},
		{
			name: "negative score can still win",
			candidates: []graph.Candidate{
				{ID: "only", Abstract: abstract("opposite")},
			},
			context: "ctx", want: "only", wantOK: true,
		},
		{
			name: "missing and empty abstracts are skipped",
			candidates: []graph.Candidate{
				{ID: "none"},
				{ID: "empty", Abstract: abstract("")},
				{ID: "far", Abstract: abstract("far")},
			},
			context: "ctx", want: "far", wantOK: true,
		},
		{
			name: "lone degenerate candidate is never selected",
			candidates: []graph.Candidate{
				{ID: "zero", Abstract: abstract("zero")},
				{ID: "nan", Abstract: abstract("nan")},
				{ID: "none"},
			},
			context: "ctx", wantOK: false,
		},
		{
			name: "zero context vector links nothing",
			candidates: []graph.Candidate{
				{ID: "close", Abstract: abstract("close")},
			},
			context: "zeroctx", wantOK: false,
		},
		{
			name:    "no candidates",
			context: "ctx", wantOK: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok, err := d.Choose(ctx, tt.candidates, tt.context)
			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, id)
		})
	}

	_, _, err := d.Choose(ctx, []graph.Candidate{{ID: "x", Abstract: abstract("unknown")}}, "ctx")
	require.Error(t, err)
}

func newTestLinker(src *fakeSource, rec staticRecognizer, emb vectorEmbedder) *Linker {
	return NewLinker(rec, NewRetriever(src, nil), NewDisambiguator(emb, nil), nil)
}

func TestLinker_RetrievalFailureIsolation(t *testing.T) {
	text := "Einstein met Bohr in Copenhagen."
	rec := staticRecognizer{text: {
		{Text: "Einstein", Label: nlp.LabelPerson},
		{Text: "Bohr", Label: nlp.LabelPerson},
		{Text: "Copenhagen", Label: nlp.LabelGPE},
	}}
	src := &fakeSource{
		byLabel: map[string][]graph.Candidate{
			"Einstein":   {{ID: "dbr:Albert_Einstein", Abstract: abstract("physicist")}},
			"Copenhagen": {{ID: "dbr:Copenhagen", Abstract: abstract("city")}},
		},
		fail: map[string]bool{"Bohr": true},
	}
	emb := vectorEmbedder{"ctx": {1, 1}, "physicist": {1, 0}, "city": {0, 1}}

	got, err := newTestLinker(src, rec, emb).LinkAll(context.Background(), text, "ctx")
	require.NoError(t, err)
	assert.Equal(t, []LinkedEntity{
		{Mention: "Einstein", ID: "dbr:Albert_Einstein"},
		{Mention: "Copenhagen", ID: "dbr:Copenhagen"},
	}, got)
}

func TestLinker_Idempotent(t *testing.T) {
	rec := staticRecognizer{"Paris": {{Text: "Paris", Label: nlp.LabelGPE}}}
	src := &fakeSource{byLabel: map[string][]graph.Candidate{
		"Paris": {
			{ID: "dbr:Paris_Hilton", Abstract: abstract("person")},
			{ID: "dbr:Paris", Abstract: abstract("city")},
		},
	}}
	emb := vectorEmbedder{"ctx": {0.1, 1}, "person": {1, 0}, "city": {0, 1}}
	l := newTestLinker(src, rec, emb)

	first, err := l.LinkAll(context.Background(), "Paris", "ctx")
	require.NoError(t, err)
	second, err := l.LinkAll(context.Background(), "Paris", "ctx")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, []LinkedEntity{{Mention: "Paris", ID: "dbr:Paris"}}, first)
}

func TestLinker_QuestionAndAnswerDedupe(t *testing.T) {
	q := "Is Paris the capital of France?"
	a := "Yes, Paris is."
	shared := q + " " + a
	rec := staticRecognizer{
		q: {{Text: "Paris", Label: nlp.LabelGPE}, {Text: "France", Label: nlp.LabelGPE}},
		a: {{Text: "Paris", Label: nlp.LabelPerson}},
	}
	src := &fakeSource{byLabel: map[string][]graph.Candidate{"France": {{ID: "dbr:France", Abstract: abstract("country")}}}}
	// Same surface text, different candidates depending on the label filter.
	src2 := &classAwareSource{fakeSource: src}
	emb := vectorEmbedder{shared: {1, 0}, "country": {1, 0}, "city": {1, 0}, "person": {1, 0}}

	l := NewLinker(rec, NewRetriever(src2, nil), NewDisambiguator(emb, nil), nil)
	got, err := l.LinkQuestionAndAnswer(context.Background(), q, a)
	require.NoError(t, err)
	assert.Equal(t, []LinkedEntity{
		{Mention: "Paris", ID: "dbr:Paris"},
		{Mention: "France", ID: "dbr:France"},
	}, got)
}

// flakyRecognizer fails for the texts in down and defers to the rest.
type flakyRecognizer struct {
	staticRecognizer
	down map[string]bool
}

func (f flakyRecognizer) Recognize(ctx context.Context, text string) ([]nlp.Mention, error) {
	if f.down[text] {
		return nil, errors.New("recognizer timeout")
	}
	return f.staticRecognizer.Recognize(ctx, text)
}

func TestLinker_QuestionAndAnswerPartialFailure(t *testing.T) {
	q := "What is the capital of France?"
	a := "Paris"
	shared := q + " " + a
	base := staticRecognizer{
		q: {{Text: "France", Label: nlp.LabelGPE}},
		a: {{Text: "Paris", Label: nlp.LabelGPE}},
	}
	src := &fakeSource{byLabel: map[string][]graph.Candidate{
		"France": {{ID: "dbr:France", Abstract: abstract("country")}},
		"Paris":  {{ID: "dbr:Paris", Abstract: abstract("city")}},
	}}
	emb := vectorEmbedder{shared: {1, 1}, "country": {1, 0}, "city": {0, 1}}
	ctx := context.Background()

	link := func(down ...string) ([]LinkedEntity, error) {
		rec := flakyRecognizer{staticRecognizer: base, down: map[string]bool{}}
		for _, text := range down {
			rec.down[text] = true
		}
		return NewLinker(rec, NewRetriever(src, nil), NewDisambiguator(emb, nil), nil).LinkQuestionAndAnswer(ctx, q, a)
	}

	got, err := link(a)
	require.NoError(t, err)
	assert.Equal(t, []LinkedEntity{{Mention: "France", ID: "dbr:France"}}, got)

	got, err = link(q)
	require.NoError(t, err)
	assert.Equal(t, []LinkedEntity{{Mention: "Paris", ID: "dbr:Paris"}}, got)

	got, err = link(q, a)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "recognizer timeout")
	assert.Empty(t, got)
}

type classAwareSource struct {
	*fakeSource
}

func (c *classAwareSource) FindByLabel(ctx context.Context, label string, classes []string) ([]graph.Candidate, error) {
	if label != "Paris" {
		return c.fakeSource.FindByLabel(ctx, label, classes)
	}
	for _, cl := range classes {
		if cl == "http://dbpedia.org/ontology/Person" {
			return []graph.Candidate{{ID: "dbr:Paris_Hilton", Abstract: abstract("person")}}, nil
		}
	}
	return []graph.Candidate{{ID: "dbr:Paris", Abstract: abstract("city")}}, nil
}

func TestDedupe(t *testing.T) {
	in := []LinkedEntity{
		{Mention: "Paris", ID: "dbr:Paris"},
		{Mention: "France", ID: "dbr:France"},
		{Mention: "Paris", ID: "dbr:Paris_Hilton"},
		{Mention: "paris", ID: "dbr:Paris_(mythology)"},
	}
	assert.Equal(t, []LinkedEntity{
		{Mention: "Paris", ID: "dbr:Paris"},
		{Mention: "France", ID: "dbr:France"},
		{Mention: "paris", ID: "dbr:Paris_(mythology)"},
	}, Dedupe(in))
	assert.Empty(t, Dedupe(nil))
}
