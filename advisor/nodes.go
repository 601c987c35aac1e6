package advisor

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
)

// retrieveDocuments queries the knowledge base with the text portion of the
// question. A retriever that returns no documents yields an empty, non-nil
// slice so that downstream nodes can distinguish "retrieval ran" from
// "field never set".
func (p *Pipeline) retrieveDocuments(ctx context.Context, state State) (State, error) {
	query := textQuery(state.Question)
	p.logger.Debug("retrieving documents for query: %s", query)

	docs, err := p.retriever.Retrieve(ctx, query)
	if err != nil {
		return State{}, fmt.Errorf("document retrieval failed: %w", err)
	}
	if docs == nil {
		docs = []Document{}
	}
	p.logger.Info("retrieved %d documents", len(docs))

	return State{Documents: docs}, nil
}

// GradeDocuments judges each retrieved document for relevance to the
// question and keeps only the relevant subset. If at least one document
// survives, the pipeline can continue on knowledge-base context alone;
// otherwise the decision routes to web search.
func (p *Pipeline) GradeDocuments(ctx context.Context, state State) (State, error) {
	query := textQuery(state.Question)

	var relevant []Document
	for _, doc := range state.Documents {
		user := fmt.Sprintf(documentGraderUser, query, doc.Content)
		raw, err := p.judge(ctx, documentGraderSystem, user)
		if err != nil {
			return State{}, fmt.Errorf("document grading failed: %w", err)
		}
		if parseScore(raw) == "yes" {
			relevant = append(relevant, doc)
		}
	}

	if len(relevant) > 0 {
		p.logger.Info("document grading kept %d of %d documents", len(relevant), len(state.Documents))
		return State{Documents: relevant, Decision: DecisionContinue}, nil
	}
	p.logger.Info("no relevant documents, routing to web search")
	return State{Decision: DecisionWebSearch}, nil
}

// webSearch augments the context with live web results. Search failures are
// logged and degraded to an empty result set: a broken search provider must
// not take the whole pipeline down.
func (p *Pipeline) webSearch(ctx context.Context, state State) (State, error) {
	query := textQuery(state.Question)
	p.logger.Debug("web search for query: %s", query)

	results, err := p.searcher.Search(ctx, query, p.maxSearchResults)
	if err != nil {
		p.logger.Warn("web search failed, continuing without results: %v", err)
		return State{WebResults: []SearchResult{}}, nil
	}
	if results == nil {
		results = []SearchResult{}
	}
	p.logger.Info("web search returned %d results", len(results))

	return State{WebResults: results}, nil
}

// generateAnswer produces the Markdown answer from the assembled context.
// With no context at all the node short-circuits to the fallback answer
// without spending an LLM call.
func (p *Pipeline) generateAnswer(ctx context.Context, state State) (State, error) {
	if len(state.Documents) == 0 && len(state.WebResults) == 0 {
		p.logger.Info("no context available, returning fallback answer")
		return State{Generation: FallbackAnswer}, nil
	}

	var sb strings.Builder
	if len(state.Documents) > 0 {
		sb.WriteString("Knowledge Base Documents:\n")
		for _, doc := range state.Documents {
			sb.WriteString(doc.Content)
			sb.WriteString("\n\n")
		}
	}
	if len(state.WebResults) > 0 {
		sb.WriteString("Web Search Results:\n")
		for _, res := range state.WebResults {
			sb.WriteString(res.String())
			sb.WriteString("\n\n")
		}
	}

	parts := make([]llms.ContentPart, 0, len(state.Question))
	for _, part := range state.Question {
		switch part.Kind {
		case PartImage:
			parts = append(parts, llms.ImageURLPart(part.ImageURL))
		default:
			parts = append(parts, llms.TextPart(part.Text))
		}
	}

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, fmt.Sprintf(generateSystem, sb.String())),
		{Role: llms.ChatMessageTypeHuman, Parts: parts},
	}

	resp, err := p.model.GenerateContent(ctx, messages)
	if err != nil {
		return State{}, fmt.Errorf("answer generation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return State{}, fmt.Errorf("answer generation returned no choices")
	}

	return State{Generation: resp.Choices[0].Content}, nil
}

// gradeGeneration checks that the generated answer is supported by the
// context it was generated from. An unsupported answer is replaced with the
// fallback rather than retried: re-running generation against the same
// context would not make it more grounded.
func (p *Pipeline) gradeGeneration(ctx context.Context, state State) (State, error) {
	var parts []string
	for _, doc := range state.Documents {
		parts = append(parts, doc.Content)
	}
	for _, res := range state.WebResults {
		parts = append(parts, res.String())
	}
	allContext := strings.Join(parts, "\n\n")

	if allContext == "" {
		p.logger.Info("empty context at grading, finishing with fallback answer")
		return State{Decision: DecisionFinish, Generation: FallbackAnswer}, nil
	}

	user := fmt.Sprintf(groundingGraderUser, allContext, state.Generation)
	raw, err := p.judge(ctx, groundingGraderSystem, user)
	if err != nil {
		return State{}, fmt.Errorf("generation grading failed: %w", err)
	}

	if parseScore(raw) == "yes" {
		p.logger.Info("generation is grounded, finishing")
		return State{Decision: DecisionFinish}, nil
	}
	p.logger.Info("generation not grounded, finishing with fallback answer")
	return State{Decision: DecisionFinish, Generation: FallbackAnswer}, nil
}

// transformQuery rewrites the question to improve retrieval on the next
// cycle: every text part takes the rewritten value, image parts pass
// through untouched and the part order is preserved. Past the transform
// cap the node stops counting and passes the question through unchanged.
func (p *Pipeline) transformQuery(ctx context.Context, state State) (State, error) {
	if state.Iteration >= p.maxTransforms {
		p.logger.Warn("transform cap of %d reached, passing question through", p.maxTransforms)
		return State{Question: state.Question}, nil
	}

	var sb strings.Builder
	if len(state.Documents) > 0 {
		sb.WriteString("Knowledge Base Documents:\n")
		for _, doc := range state.Documents {
			sb.WriteString(doc.Content)
			sb.WriteString("\n\n")
		}
	}
	for _, res := range state.WebResults {
		sb.WriteString(res.String())
		sb.WriteString("\n\n")
	}

	query := textQuery(state.Question)
	user := fmt.Sprintf(transformUser, query, sb.String())
	raw, err := p.judge(ctx, transformSystem, user)
	if err != nil {
		return State{}, fmt.Errorf("query transformation failed: %w", err)
	}
	rewritten := strings.TrimSpace(raw)
	p.logger.Info("rewrote query to: %s", rewritten)

	question := make([]MessagePart, len(state.Question))
	for i, part := range state.Question {
		if part.Kind == PartText {
			question[i] = TextPart(rewritten)
			continue
		}
		question[i] = part
	}

	return State{Question: question, Iteration: state.Iteration + 1}, nil
}
