package advisor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

type fakeRetriever struct {
	docs    []Document
	err     error
	queries []string
}

func (r *fakeRetriever) Retrieve(_ context.Context, query string) ([]Document, error) {
	r.queries = append(r.queries, query)
	if r.err != nil {
		return nil, r.err
	}
	return r.docs, nil
}

type fakeSearcher struct {
	results []SearchResult
	err     error
	queries []string
}

func (s *fakeSearcher) Search(_ context.Context, query string, _ int) ([]SearchResult, error) {
	s.queries = append(s.queries, query)
	if s.err != nil {
		return nil, s.err
	}
	return s.results, nil
}

// fakeModel routes on the system prompt so one fake can play the generator,
// both graders and the query rewriter.
type fakeModel struct {
	answer      string
	grounded    string
	docVerdicts map[string]string
	rewritten   string
	err         error
	calls       []string

	gradingPrompts []string
}

func (m *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	system := firstText(messages[0])
	var content string
	switch {
	case strings.Contains(system, "agricultural expert"):
		m.calls = append(m.calls, "generate")
		content = m.answer
	case strings.Contains(system, "grounded in"):
		m.calls = append(m.calls, "grade_generation")
		m.gradingPrompts = append(m.gradingPrompts, firstText(messages[1]))
		content = fmt.Sprintf(`{"score": %q}`, m.grounded)
	case strings.Contains(system, "sufficient to answer"):
		m.calls = append(m.calls, "grade_document")
		user := firstText(messages[1])
		verdict := "no"
		for needle, score := range m.docVerdicts {
			if strings.Contains(user, needle) {
				verdict = score
			}
		}
		content = fmt.Sprintf(`{"score": %q}`, verdict)
	case strings.Contains(system, "query transformation"):
		m.calls = append(m.calls, "transform")
		content = m.rewritten
	default:
		return nil, fmt.Errorf("unexpected system prompt: %s", system)
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: content}},
	}, nil
}

func (m *fakeModel) Call(_ context.Context, _ string, _ ...llms.CallOption) (string, error) {
	return "", errors.New("not implemented")
}

func firstText(msg llms.MessageContent) string {
	for _, part := range msg.Parts {
		if text, ok := part.(llms.TextContent); ok {
			return text.Text
		}
	}
	return ""
}

func newTestPipeline(t *testing.T, model *fakeModel, retriever *fakeRetriever, searcher *fakeSearcher) *Pipeline {
	t.Helper()
	p, err := New(Config{
		Retriever: retriever,
		Searcher:  searcher,
		Model:     model,
	})
	require.NoError(t, err)
	return p
}

func TestNewRequiresClients(t *testing.T) {
	t.Parallel()

	model := &fakeModel{}
	retriever := &fakeRetriever{}
	searcher := &fakeSearcher{}

	_, err := New(Config{Searcher: searcher, Model: model})
	assert.ErrorContains(t, err, "retriever")

	_, err = New(Config{Retriever: retriever, Model: model})
	assert.ErrorContains(t, err, "searcher")

	_, err = New(Config{Retriever: retriever, Searcher: searcher})
	assert.ErrorContains(t, err, "model")
}

func TestInvokeEmptyQuestion(t *testing.T) {
	t.Parallel()

	p := newTestPipeline(t, &fakeModel{}, &fakeRetriever{}, &fakeSearcher{})
	_, err := p.Invoke(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyQuestion)
}

func TestGroundedAnswerFinishes(t *testing.T) {
	t.Parallel()

	model := &fakeModel{answer: "## Wheat rust\nUse resistant cultivars.", grounded: "yes"}
	retriever := &fakeRetriever{docs: []Document{{Content: "Wheat rust is a fungal disease."}}}
	searcher := &fakeSearcher{results: []SearchResult{{Title: "Rust alert", URL: "https://example.com", Content: "Regional outbreak reported."}}}

	p := newTestPipeline(t, model, retriever, searcher)
	res, err := p.Invoke(context.Background(), TextQuestion("How do I treat wheat rust?"))
	require.NoError(t, err)

	assert.Equal(t, "## Wheat rust\nUse resistant cultivars.", res.Generation)
	assert.Equal(t, DecisionFinish, res.Decision)
	assert.Len(t, res.Documents, 1)
	assert.Len(t, res.WebResults, 1)
	assert.Equal(t, []string{"generate", "grade_generation"}, model.calls)
	assert.Equal(t, []string{"How do I treat wheat rust?"}, retriever.queries)
	assert.Equal(t, []string{"How do I treat wheat rust?"}, searcher.queries)
}

func TestNoContextReturnsFallback(t *testing.T) {
	t.Parallel()

	model := &fakeModel{}
	p := newTestPipeline(t, model, &fakeRetriever{}, &fakeSearcher{})

	res, err := p.Invoke(context.Background(), TextQuestion("What is the meaning of life?"))
	require.NoError(t, err)

	assert.Equal(t, FallbackAnswer, res.Generation)
	assert.Equal(t, DecisionFinish, res.Decision)
	assert.Empty(t, model.calls, "no LLM call should be spent without context")
}

func TestUngroundedAnswerFallsBack(t *testing.T) {
	t.Parallel()

	model := &fakeModel{answer: "Bananas grow on Mars.", grounded: "no"}
	retriever := &fakeRetriever{docs: []Document{{Content: "Bananas are tropical fruit."}}}

	p := newTestPipeline(t, model, retriever, &fakeSearcher{})
	res, err := p.Invoke(context.Background(), TextQuestion("Where do bananas grow?"))
	require.NoError(t, err)

	assert.Equal(t, FallbackAnswer, res.Generation)
	assert.Equal(t, DecisionFinish, res.Decision)
}

func TestGradingContextSeparatesSources(t *testing.T) {
	t.Parallel()

	model := &fakeModel{answer: "Sow in spring.", grounded: "yes"}
	retriever := &fakeRetriever{docs: []Document{
		{Content: "Barley prefers cool springs."},
		{Content: "Seed depth should be 3-5cm."},
	}}
	searcher := &fakeSearcher{results: []SearchResult{
		{Title: "Sowing guide", URL: "https://example.com", Content: "Drill once soil is workable."},
	}}
	p := newTestPipeline(t, model, retriever, searcher)

	_, err := p.Invoke(context.Background(), TextQuestion("when to sow barley"))
	require.NoError(t, err)

	require.Len(t, model.gradingPrompts, 1)
	prompt := model.gradingPrompts[0]
	assert.Contains(t, prompt, "Barley prefers cool springs.\n\nSeed depth should be 3-5cm.")
	assert.Contains(t, prompt, "Seed depth should be 3-5cm.\n\nSowing guide\nhttps://example.com\nDrill once soil is workable.")
}

func TestWebSearchFailureDegrades(t *testing.T) {
	t.Parallel()

	model := &fakeModel{answer: "Rotate your crops.", grounded: "yes"}
	retriever := &fakeRetriever{docs: []Document{{Content: "Crop rotation improves soil health."}}}
	searcher := &fakeSearcher{err: errors.New("search provider down")}

	p := newTestPipeline(t, model, retriever, searcher)
	res, err := p.Invoke(context.Background(), TextQuestion("How to keep soil healthy?"))
	require.NoError(t, err)

	assert.Equal(t, "Rotate your crops.", res.Generation)
	assert.Empty(t, res.WebResults)
}

func TestRetrieverErrorAborts(t *testing.T) {
	t.Parallel()

	retriever := &fakeRetriever{err: errors.New("vector store unavailable")}
	p := newTestPipeline(t, &fakeModel{}, retriever, &fakeSearcher{})

	_, err := p.Invoke(context.Background(), TextQuestion("any question"))
	assert.ErrorContains(t, err, "vector store unavailable")
}

func TestModelErrorAborts(t *testing.T) {
	t.Parallel()

	model := &fakeModel{err: errors.New("rate limited")}
	retriever := &fakeRetriever{docs: []Document{{Content: "some context"}}}

	p := newTestPipeline(t, model, retriever, &fakeSearcher{})
	_, err := p.Invoke(context.Background(), TextQuestion("any question"))
	assert.ErrorContains(t, err, "rate limited")
}

func TestMultimodalQuestionUsesTextForRetrieval(t *testing.T) {
	t.Parallel()

	model := &fakeModel{answer: "Looks like leaf blight.", grounded: "yes"}
	retriever := &fakeRetriever{docs: []Document{{Content: "Leaf blight shows brown lesions."}}}
	searcher := &fakeSearcher{}

	p := newTestPipeline(t, model, retriever, searcher)
	question := []MessagePart{
		TextPart("What disease is on this leaf?"),
		ImagePart("https://example.com/leaf.jpg"),
	}
	res, err := p.Invoke(context.Background(), question)
	require.NoError(t, err)

	assert.Equal(t, "Looks like leaf blight.", res.Generation)
	assert.Equal(t, []string{"What disease is on this leaf?"}, retriever.queries)
	assert.Equal(t, []string{"What disease is on this leaf?"}, searcher.queries)
}

func TestGradeDocumentsKeepsRelevant(t *testing.T) {
	t.Parallel()

	model := &fakeModel{docVerdicts: map[string]string{
		"Irrigation schedules": "yes",
		"Stock market":         "no",
	}}
	p := newTestPipeline(t, model, &fakeRetriever{}, &fakeSearcher{})

	state := State{
		Question: TextQuestion("When should I irrigate?"),
		Documents: []Document{
			{Content: "Irrigation schedules depend on soil moisture."},
			{Content: "Stock market closed higher today."},
		},
	}
	update, err := p.GradeDocuments(context.Background(), state)
	require.NoError(t, err)

	assert.Equal(t, DecisionContinue, update.Decision)
	require.Len(t, update.Documents, 1)
	assert.Contains(t, update.Documents[0].Content, "Irrigation schedules")
}

func TestGradeDocumentsRoutesToWebSearch(t *testing.T) {
	t.Parallel()

	model := &fakeModel{docVerdicts: map[string]string{}}
	p := newTestPipeline(t, model, &fakeRetriever{}, &fakeSearcher{})

	state := State{
		Question:  TextQuestion("When should I irrigate?"),
		Documents: []Document{{Content: "Stock market closed higher today."}},
	}
	update, err := p.GradeDocuments(context.Background(), state)
	require.NoError(t, err)

	assert.Equal(t, DecisionWebSearch, update.Decision)
	assert.Nil(t, update.Documents)
}

func TestTransformQueryPreservesImageParts(t *testing.T) {
	t.Parallel()

	model := &fakeModel{rewritten: "symptoms and treatment of tomato leaf curl"}
	p := newTestPipeline(t, model, &fakeRetriever{}, &fakeSearcher{})

	state := State{
		Question: []MessagePart{
			ImagePart("https://example.com/tomato.jpg"),
			TextPart("what is wrong with my plant"),
		},
		Documents: []Document{{Content: "Tomato leaf curl is viral."}},
	}
	update, err := p.transformQuery(context.Background(), state)
	require.NoError(t, err)

	require.Len(t, update.Question, 2)
	assert.Equal(t, PartImage, update.Question[0].Kind)
	assert.Equal(t, "https://example.com/tomato.jpg", update.Question[0].ImageURL)
	assert.Equal(t, "symptoms and treatment of tomato leaf curl", update.Question[1].Text)
	assert.Equal(t, 1, update.Iteration)
}

func TestTransformQueryRewritesEveryTextPart(t *testing.T) {
	t.Parallel()

	model := &fakeModel{rewritten: "rewritten query"}
	p := newTestPipeline(t, model, &fakeRetriever{}, &fakeSearcher{})

	state := State{
		Question: []MessagePart{
			TextPart("first part"),
			ImagePart("https://example.com/field.jpg"),
			TextPart("second part"),
		},
		WebResults: []SearchResult{{Content: "some prior result"}},
	}
	update, err := p.transformQuery(context.Background(), state)
	require.NoError(t, err)

	require.Len(t, update.Question, 3)
	assert.Equal(t, "rewritten query", update.Question[0].Text)
	assert.Equal(t, PartImage, update.Question[1].Kind)
	assert.Equal(t, "rewritten query", update.Question[2].Text)
}

func TestTransformQueryCap(t *testing.T) {
	t.Parallel()

	model := &fakeModel{rewritten: "should not be used"}
	p := newTestPipeline(t, model, &fakeRetriever{}, &fakeSearcher{})

	question := TextQuestion("original question")
	update, err := p.transformQuery(context.Background(), State{
		Question:  question,
		Iteration: defaultMaxTransforms,
	})
	require.NoError(t, err)

	assert.Equal(t, question, update.Question)
	assert.Zero(t, update.Iteration)
	assert.Empty(t, model.calls, "capped transform must not call the model")
}

func TestParseScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain yes", `{"score": "yes"}`, "yes"},
		{"plain no", `{"score": "no"}`, "no"},
		{"uppercase", `{"score": "YES"}`, "yes"},
		{"json fence", "```json\n{\"score\": \"yes\"}\n```", "yes"},
		{"bare fence", "```\n{\"score\": \"yes\"}\n```", "yes"},
		{"garbage", "definitely relevant", "no"},
		{"empty", "", "no"},
		{"missing key", `{"verdict": "yes"}`, "no"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, parseScore(tt.raw))
		})
	}
}

func TestTextQuery(t *testing.T) {
	t.Parallel()

	parts := []MessagePart{
		TextPart("first"),
		ImagePart("https://example.com/img.png"),
		TextPart("second"),
	}
	assert.Equal(t, "first second", textQuery(parts))
	assert.Equal(t, "", textQuery([]MessagePart{ImagePart("https://example.com/img.png")}))
}

func TestSearchResultString(t *testing.T) {
	t.Parallel()

	res := SearchResult{Title: "Title", URL: "https://example.com", Content: "Body"}
	assert.Equal(t, "Title\nhttps://example.com\nBody", res.String())

	bare := SearchResult{Content: "Body only"}
	assert.Equal(t, "Body only", bare.String())
}
