// Package embedding generates vector embeddings in bounded batches.
//
// The Client wraps a Provider (the network-facing embedding API) and handles
// sub-batching, order preservation, and per-item token accounting. Callers
// hand it arbitrarily long text lists; the provider only ever sees batches
// of at most Config.BatchSize inputs.
package embedding

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/guara-ai/guara/internal/chunker"
)

// DefaultBatchSize is the maximum number of texts sent per provider call.
const DefaultBatchSize = 100

// DefaultDimension matches the vector(768) column in the chunks table.
// gemini-embedding-001 is truncated to this via OutputDimensionality.
const DefaultDimension = 768

// Batch is one provider response. Vectors is ordered like the request.
// ItemTokens, when the provider reports per-item usage, is preferred over
// TotalTokens; either or both may be absent.
type Batch struct {
	Vectors     [][]float32
	TotalTokens int
	ItemTokens  []int
}

// Provider is the network-facing embedding API. Implementations must return
// one vector per input text, in input order, or an error for the whole
// batch. A partial response is treated as a failure.
type Provider interface {
	EmbedBatch(ctx context.Context, texts []string) (Batch, error)
}

// Result pairs a vector with its (possibly approximated) token count.
type Result struct {
	Vector     []float32
	TokenCount int
}

// Config tunes the Client. Zero values take the defaults.
type Config struct {
	BatchSize     int
	TokensPerWord float64
}

// Client batches embedding requests against a Provider.
//
// Client is safe for concurrent use.
type Client struct {
	provider Provider
	cfg      Config
	logger   *slog.Logger
}

// NewClient creates a Client. A nil logger falls back to slog.Default.
func NewClient(provider Provider, cfg Config, logger *slog.Logger) (*Client, error) {
	if provider == nil {
		return nil, fmt.Errorf("provider is required")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.TokensPerWord <= 0 {
		cfg.TokensPerWord = chunker.DefaultTokensPerWord
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{provider: provider, cfg: cfg, logger: logger}, nil
}

// Embed generates one embedding for a single text.
func (c *Client) Embed(ctx context.Context, text string) (Result, error) {
	results, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return Result{}, err
	}
	return results[0], nil
}

// EmbedBatch embeds all texts, splitting the input into provider-sized
// batches. The returned slice is the same length and order as texts. A
// provider failure on any batch fails the whole call with no partial result.
//
// Per-item token counts use the first source available: provider per-item
// usage, then floor(batch total / batch size), which gives every item in a
// batch the same count, then the local word-count estimator.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([]Result, error) {
	if len(texts) == 0 {
		return []Result{}, nil
	}

	results := make([]Result, 0, len(texts))
	batches := (len(texts) + c.cfg.BatchSize - 1) / c.cfg.BatchSize

	for i := 0; i < len(texts); i += c.cfg.BatchSize {
		end := min(i+c.cfg.BatchSize, len(texts))
		part := texts[i:end]

		batch, err := c.provider.EmbedBatch(ctx, part)
		if err != nil {
			return nil, fmt.Errorf("embedding batch %d/%d: %w", i/c.cfg.BatchSize+1, batches, err)
		}
		if len(batch.Vectors) != len(part) {
			return nil, fmt.Errorf("embedding batch %d/%d: provider returned %d vectors for %d texts",
				i/c.cfg.BatchSize+1, batches, len(batch.Vectors), len(part))
		}

		for j, vec := range batch.Vectors {
			results = append(results, Result{
				Vector:     vec,
				TokenCount: c.itemTokens(batch, j, part[j]),
			})
		}

		c.logger.Debug("embedded batch",
			"batch", i/c.cfg.BatchSize+1,
			"batches", batches,
			"texts", len(part))
	}

	return results, nil
}

// itemTokens resolves the token count for item j of a batch.
func (c *Client) itemTokens(batch Batch, j int, text string) int {
	if j < len(batch.ItemTokens) {
		return batch.ItemTokens[j]
	}
	if batch.TotalTokens > 0 {
		return batch.TotalTokens / len(batch.Vectors)
	}
	return chunker.EstimateTokens(text, c.cfg.TokensPerWord)
}
