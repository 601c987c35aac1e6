// Package advisor implements the farming RAG pipeline: a state graph that
// retrieves knowledge-base documents, augments them with live web search,
// generates a Markdown answer and verifies the answer is grounded in the
// assembled context before handing it back.
package advisor

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"

	"github.com/smallnest/agrigraph/graph"
	"github.com/smallnest/agrigraph/log"
)

// Retriever returns knowledge-base documents ranked by similarity to the
// query. The number of documents returned (top-k) is the retriever's own
// configuration.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]Document, error)
}

// Searcher performs a web search. Implementations may fail; the pipeline
// degrades a failed search to an empty result set rather than failing the
// whole invocation.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error)
}

const (
	// defaultMaxSearchResults bounds web-search fan-in.
	defaultMaxSearchResults = 5
	// defaultMaxTransforms bounds the query-rewrite cycle.
	defaultMaxTransforms = 3
)

// ErrEmptyQuestion is returned when an invocation carries no message parts.
var ErrEmptyQuestion = errors.New("question must contain at least one message part")

// Config carries the pipeline's injected service handles and tuning knobs.
// The clients are constructed once at process start and reused across
// invocations; a missing client is a startup error, not a per-request one.
type Config struct {
	Retriever Retriever
	Searcher  Searcher
	Model     llms.Model

	// MaxSearchResults bounds each web search (default 5).
	MaxSearchResults int

	// MaxTransforms bounds the query-rewrite cycle (default 3).
	MaxTransforms int

	Logger log.Logger
}

// Pipeline is the compiled farming-advisor graph. It is stateless between
// invocations and safe for concurrent use as long as the injected clients
// are.
type Pipeline struct {
	retriever        Retriever
	searcher         Searcher
	model            llms.Model
	maxSearchResults int
	maxTransforms    int
	logger           log.Logger

	runnable *graph.Runnable[State]
}

// New validates the configuration, wires the state graph and compiles it.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Retriever == nil {
		return nil, errors.New("retriever is required")
	}
	if cfg.Searcher == nil {
		return nil, errors.New("searcher is required")
	}
	if cfg.Model == nil {
		return nil, errors.New("model is required")
	}

	p := &Pipeline{
		retriever:        cfg.Retriever,
		searcher:         cfg.Searcher,
		model:            cfg.Model,
		maxSearchResults: cfg.MaxSearchResults,
		maxTransforms:    cfg.MaxTransforms,
		logger:           cfg.Logger,
	}
	if p.maxSearchResults <= 0 {
		p.maxSearchResults = defaultMaxSearchResults
	}
	if p.maxTransforms <= 0 {
		p.maxTransforms = defaultMaxTransforms
	}
	if p.logger == nil {
		p.logger = log.GetDefaultLogger()
	}

	runnable, err := p.buildGraph()
	if err != nil {
		return nil, fmt.Errorf("failed to build pipeline graph: %w", err)
	}
	p.runnable = runnable

	return p, nil
}

// buildGraph wires the node topology:
//
//	retrieve_documents -> web_search -> generate_answer -> grade_generation
//	grade_generation --(finish)--> END
//	grade_generation --(re-try)--> transform_query -> retrieve_documents
//
// Retrieval is unconditionally followed by web search: the document grader
// exists as an independently invokable unit (GradeDocuments) but does not
// gate the search step.
func (p *Pipeline) buildGraph() (*graph.Runnable[State], error) {
	g := graph.NewStateGraph[State]()
	g.SetSchema(stateSchema{})

	g.AddNode("retrieve_documents", "Retrieve documents from the knowledge base", p.retrieveDocuments)
	g.AddNode("web_search", "Augment context with live web search", p.webSearch)
	g.AddNode("generate_answer", "Generate a grounded Markdown answer", p.generateAnswer)
	g.AddNode("grade_generation", "Verify the answer is grounded in the context", p.gradeGeneration)
	g.AddNode("transform_query", "Rewrite the question for better retrieval", p.transformQuery)

	g.SetEntryPoint("retrieve_documents")
	g.AddEdge("retrieve_documents", "web_search")
	g.AddEdge("web_search", "generate_answer")
	g.AddEdge("generate_answer", "grade_generation")

	g.AddConditionalEdge("grade_generation", func(ctx context.Context, state State) string {
		switch state.Decision {
		case DecisionFinish:
			return graph.END
		case DecisionRetry:
			return "transform_query"
		default:
			return ""
		}
	})
	g.AddEdge("transform_query", "retrieve_documents")

	return g.Compile()
}

// Invoke runs one question through the pipeline and returns the final
// answer along with the context it was grounded in. The state is created
// fresh for this call and discarded afterwards.
func (p *Pipeline) Invoke(ctx context.Context, question []MessagePart) (Result, error) {
	if len(question) == 0 {
		return Result{}, ErrEmptyQuestion
	}

	final, err := p.runnable.Invoke(ctx, State{Question: question})
	if err != nil {
		return Result{}, err
	}

	return Result{
		Generation: final.Generation,
		Documents:  final.Documents,
		WebResults: final.WebResults,
		Decision:   final.Decision,
	}, nil
}
