package embedding

import (
	"context"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	"google.golang.org/genai"
)

// GenkitProvider adapts a Genkit ai.Embedder to the Provider interface.
// Output dimensionality is truncated to Dimension via the Gemini embed
// config (Matryoshka representation truncation), matching the vector column
// width in the store.
//
// The Gemini batch response carries no usage data, so Batch.TotalTokens and
// Batch.ItemTokens are always empty here; the Client falls back to its local
// estimator for token accounting.
type GenkitProvider struct {
	embedder  ai.Embedder
	dimension int32
}

// NewGenkitProvider wraps embedder. A non-positive dimension defaults to
// DefaultDimension.
func NewGenkitProvider(embedder ai.Embedder, dimension int) (*GenkitProvider, error) {
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &GenkitProvider{embedder: embedder, dimension: int32(dimension)}, nil
}

// EmbedBatch implements Provider.
func (p *GenkitProvider) EmbedBatch(ctx context.Context, texts []string) (Batch, error) {
	docs := make([]*ai.Document, len(texts))
	for i, text := range texts {
		docs[i] = ai.DocumentFromText(text, nil)
	}

	dim := p.dimension
	resp, err := p.embedder.Embed(ctx, &ai.EmbedRequest{
		Input:   docs,
		Options: &genai.EmbedContentConfig{OutputDimensionality: &dim},
	})
	if err != nil {
		return Batch{}, fmt.Errorf("embed request: %w", err)
	}
	if len(resp.Embeddings) != len(texts) {
		return Batch{}, fmt.Errorf("embed response: got %d embeddings for %d texts",
			len(resp.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		if len(e.Embedding) == 0 {
			return Batch{}, fmt.Errorf("embed response: empty embedding at index %d", i)
		}
		vectors[i] = e.Embedding
	}
	return Batch{Vectors: vectors}, nil
}
