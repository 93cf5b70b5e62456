// Package retriever answers natural-language queries against the indexed
// knowledge base: embed the query, then run a similarity search (optionally
// blended with full-text rank) over the chunk store.
package retriever

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/guara-ai/guara/internal/embedding"
	"github.com/guara-ai/guara/internal/knowledge"
)

// Store is the search surface the retriever needs. *knowledge.Store
// satisfies it.
type Store interface {
	Search(ctx context.Context, queryVector []float32, queryText string, opts ...knowledge.SearchOption) ([]knowledge.SearchResult, error)
}

// Embedder embeds a single query string.
type Embedder interface {
	Embed(ctx context.Context, text string) (embedding.Result, error)
}

// Retriever embeds queries and delegates ranking to the store.
type Retriever struct {
	store    Store
	embedder Embedder
	logger   *slog.Logger
}

// New creates a Retriever. A nil logger falls back to slog.Default.
func New(store Store, embedder Embedder, logger *slog.Logger) (*Retriever, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retriever{store: store, embedder: embedder, logger: logger}, nil
}

// Search runs query against the knowledge base. An empty result set is a
// valid answer: no matches above the similarity floor returns an empty
// slice and a nil error.
func (r *Retriever) Search(ctx context.Context, query string, opts ...knowledge.SearchOption) ([]knowledge.SearchResult, error) {
	if query == "" {
		return nil, fmt.Errorf("query cannot be empty")
	}

	embedded, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	results, err := r.store.Search(ctx, embedded.Vector, query, opts...)
	if err != nil {
		return nil, fmt.Errorf("searching knowledge base: %w", err)
	}

	r.logger.Debug("search completed", "query", query, "results", len(results))
	return results, nil
}
