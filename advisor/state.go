package advisor

import (
	"strings"
)

// FallbackAnswer is returned whenever no context is available to ground an
// answer, or a generated answer fails the grounding check.
const FallbackAnswer = "I can only help you with farmer related queries."

// PartKind discriminates the kinds of message parts a question can carry.
type PartKind string

const (
	// PartText is a plain-text question part.
	PartText PartKind = "text"
	// PartImage is an image reference (URL or data URI) attached to the question.
	PartImage PartKind = "image"
)

// MessagePart is one element of a multimodal question.
type MessagePart struct {
	Kind     PartKind `json:"kind"`
	Text     string   `json:"text,omitempty"`
	ImageURL string   `json:"image_url,omitempty"`
}

// TextPart builds a text message part.
func TextPart(text string) MessagePart {
	return MessagePart{Kind: PartText, Text: text}
}

// ImagePart builds an image message part.
func ImagePart(url string) MessagePart {
	return MessagePart{Kind: PartImage, ImageURL: url}
}

// TextQuestion wraps a legacy plain-string question as a single text part.
func TextQuestion(text string) []MessagePart {
	return []MessagePart{TextPart(text)}
}

// textQuery concatenates all text parts of a question, separated by spaces.
// Image parts do not contribute to the retrieval/search query.
func textQuery(parts []MessagePart) string {
	var b strings.Builder
	for _, part := range parts {
		if part.Kind == PartText {
			b.WriteString(part.Text)
			b.WriteString(" ")
		}
	}
	return strings.TrimSpace(b.String())
}

// Document is a retrieved knowledge-base chunk.
type Document struct {
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// SearchResult is a single web-search hit.
type SearchResult struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score,omitempty"`
}

// String renders the result the way it is spliced into LLM context blocks.
func (r SearchResult) String() string {
	var b strings.Builder
	if r.Title != "" {
		b.WriteString(r.Title)
		b.WriteString("\n")
	}
	if r.URL != "" {
		b.WriteString(r.URL)
		b.WriteString("\n")
	}
	b.WriteString(r.Content)
	return b.String()
}

// Decision governs the conditional edge after generation grading.
type Decision string

const (
	// DecisionContinue signals that retrieved documents are sufficient.
	DecisionContinue Decision = "continue"
	// DecisionWebSearch signals that no retrieved document is sufficient.
	DecisionWebSearch Decision = "web_search"
	// DecisionFinish terminates the invocation.
	DecisionFinish Decision = "finish"
	// DecisionRetry routes back into the transform-query cycle.
	DecisionRetry Decision = "re-try"
)

// State is the record threaded through the pipeline graph. It is created
// fresh per invocation and discarded once a terminal decision is reached;
// nothing survives across invocations.
type State struct {
	// Question is the user's question as an ordered sequence of parts.
	Question []MessagePart

	// Generation is the current best answer; empty until generation runs.
	Generation string

	// Documents are the chunks retrieved from the knowledge base.
	Documents []Document

	// WebResults are the results of the web-search fallback.
	WebResults []SearchResult

	// Iteration counts completed query transformations, bounded by the
	// pipeline's transform cap.
	Iteration int

	// Decision is the routing tag set by grading nodes.
	Decision Decision
}

// Result is what a pipeline invocation hands back to the caller. The caller
// is responsible for extracting Generation and persisting it; the pipeline
// holds no session state.
type Result struct {
	Generation string         `json:"generation"`
	Documents  []Document     `json:"documents"`
	WebResults []SearchResult `json:"web_search_results"`
	Decision   Decision       `json:"decision"`
}

// stateSchema merges node updates into the running state. Each node returns
// a partial State with only the fields it changed set; unset (zero) fields
// keep their current values, set fields win wholesale.
type stateSchema struct{}

func (stateSchema) Init() State {
	return State{}
}

func (stateSchema) Update(current, new State) (State, error) {
	if new.Question != nil {
		current.Question = new.Question
	}
	if new.Generation != "" {
		current.Generation = new.Generation
	}
	if new.Documents != nil {
		current.Documents = new.Documents
	}
	if new.WebResults != nil {
		current.WebResults = new.WebResults
	}
	if new.Iteration != 0 {
		current.Iteration = new.Iteration
	}
	if new.Decision != "" {
		current.Decision = new.Decision
	}
	return current, nil
}
