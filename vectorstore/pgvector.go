package vectorstore

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	pgxvector "github.com/pgvector/pgvector-go/pgx"

	"github.com/smallnest/agrigraph/advisor"
	"github.com/smallnest/agrigraph/embed"
)

// DBPool is the slice of the pgx pool the store needs. Declared as an
// interface so tests can substitute a mock pool.
type DBPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PgvectorStore persists document chunks and their embeddings in Postgres
// using the pgvector extension. Similarity search runs server-side with the
// cosine-distance operator.
type PgvectorStore struct {
	pool      DBPool
	embedder  embed.Embedder
	tableName string
	dimension int
	topK      int
}

// PgvectorOptions configures a PgvectorStore.
type PgvectorOptions struct {
	ConnString string
	TableName  string // default "documents"
	Dimension  int    // default 1536
	TopK       int    // default 4
}

// NewPgvectorStore connects a new pool and builds the store. The vector
// type is registered on every connection so embeddings bind natively.
func NewPgvectorStore(ctx context.Context, embedder embed.Embedder, opts PgvectorOptions) (*PgvectorStore, error) {
	config, err := pgxpool.ParseConfig(opts.ConnString)
	if err != nil {
		return nil, fmt.Errorf("invalid connection string: %w", err)
	}
	config.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		// Registration fails until InitSchema has created the extension;
		// connections opened after that pick the type up.
		_ = pgxvector.RegisterTypes(ctx, conn)
		return nil
	}
	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	return newPgvectorStore(pool, embedder, opts), nil
}

// NewPgvectorStoreWithPool builds the store over an existing pool. Useful
// for testing with mocks.
func NewPgvectorStoreWithPool(pool DBPool, embedder embed.Embedder, opts PgvectorOptions) *PgvectorStore {
	return newPgvectorStore(pool, embedder, opts)
}

func newPgvectorStore(pool DBPool, embedder embed.Embedder, opts PgvectorOptions) *PgvectorStore {
	s := &PgvectorStore{
		pool:      pool,
		embedder:  embedder,
		tableName: opts.TableName,
		dimension: opts.Dimension,
		topK:      opts.TopK,
	}
	if s.tableName == "" {
		s.tableName = "documents"
	}
	if s.dimension <= 0 {
		s.dimension = 1536
	}
	if s.topK <= 0 {
		s.topK = 4
	}
	return s
}

// InitSchema enables the pgvector extension and creates the documents table
// if it doesn't exist.
func (s *PgvectorStore) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE EXTENSION IF NOT EXISTS vector;
		CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY,
			content TEXT NOT NULL,
			metadata JSONB,
			embedding vector(%d) NOT NULL
		);
	`, s.tableName, s.dimension)

	_, err := s.pool.Exec(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (s *PgvectorStore) Close() {
	s.pool.Close()
}

// Add embeds the documents and inserts one row per chunk.
func (s *PgvectorStore) Add(ctx context.Context, docs []advisor.Document) error {
	if len(docs) == 0 {
		return nil
	}

	texts := make([]string, len(docs))
	for i, doc := range docs {
		texts[i] = doc.Content
	}
	vectors, err := s.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed documents: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, content, metadata, embedding)
		VALUES ($1, $2, $3, $4)
	`, s.tableName)

	for i, doc := range docs {
		metadataJSON, err := json.Marshal(doc.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
		_, err = s.pool.Exec(ctx, query,
			uuid.New(),
			doc.Content,
			metadataJSON,
			pgvector.NewVector(vectors[i]),
		)
		if err != nil {
			return fmt.Errorf("failed to insert document: %w", err)
		}
	}
	return nil
}

// Retrieve returns the topK nearest documents by cosine distance.
func (s *PgvectorStore) Retrieve(ctx context.Context, query string) ([]advisor.Document, error) {
	queryVec, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	sql := fmt.Sprintf(`
		SELECT content, metadata
		FROM %s
		ORDER BY embedding <=> $1
		LIMIT $2
	`, s.tableName)

	rows, err := s.pool.Query(ctx, sql, pgvector.NewVector(queryVec), s.topK)
	if err != nil {
		return nil, fmt.Errorf("similarity search failed: %w", err)
	}
	defer rows.Close()

	docs := []advisor.Document{}
	for rows.Next() {
		var doc advisor.Document
		var metadataJSON []byte
		if err := rows.Scan(&doc.Content, &metadataJSON); err != nil {
			return nil, fmt.Errorf("failed to scan document row: %w", err)
		}
		if len(metadataJSON) > 0 {
			if err := json.Unmarshal(metadataJSON, &doc.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
			}
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating document rows: %w", err)
	}
	return docs, nil
}

// Count reports the number of stored chunks.
func (s *PgvectorStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", s.tableName)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count documents: %w", err)
	}
	return count, nil
}
