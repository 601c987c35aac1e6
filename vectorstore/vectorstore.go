// Package vectorstore provides the knowledge-base backends the advisor
// retrieves from. All backends ingest document chunks and serve similarity
// search; each one satisfies advisor.Retriever with its configured top-k.
package vectorstore

import (
	"context"

	"github.com/smallnest/agrigraph/advisor"
)

// Store is a vector store that can both ingest chunks and act as the
// pipeline's retriever.
type Store interface {
	advisor.Retriever
	Add(ctx context.Context, docs []advisor.Document) error
}
