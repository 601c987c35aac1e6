// AgriGraph - A Smart Farming Advisor Built on a Conversational State Graph
//
// AgriGraph answers farming questions by running each one through a
// retrieval-augmented pipeline: documents come out of a crop-knowledge
// vector store, live results come from web search, an LLM generates a
// Markdown answer and a grading step verifies the answer is grounded in
// the assembled context before it is returned.
//
// # Packages
//
//   - graph: the generic state-graph engine the pipeline runs on
//   - advisor: the farming pipeline itself (retrieve, search, generate, grade)
//   - vectorstore: in-memory, Chroma and pgvector knowledge-base backends
//   - embed: OpenAI text embeddings
//   - search: the Tavily web-search client
//   - ingest: document loading, OCR and chunking for the knowledge base
//   - history: chat-session persistence (Postgres, SQLite, Redis cache)
//   - report: farming-report query building and HTML rendering
//   - server: the JSON HTTP API
//
// # Quick Start
//
// Run the API server:
//
//	export OPENAI_API_KEY=sk-...
//	export TAVILY_API_KEY=tvly-...
//	go run ./cmd/agrigraph
//
// Load documents into the knowledge base:
//
//	go run ./cmd/agrigraph-ingest ./docs
//
// Chat from the terminal:
//
//	go run ./cmd/agrigraph-chat
package agrigraph
