package knowledge

import (
	"time"

	"github.com/google/uuid"

	"github.com/guara-ai/guara/internal/document"
)

// Document is one ingested source file. FilePath is the stable external key:
// at most one live Document exists per path, and ContentHash fingerprints the
// normalized body so unchanged re-ingestion can short-circuit.
type Document struct {
	ID           uuid.UUID
	FilePath     string
	Title        string
	Category     document.Category
	RoutePattern string
	MenuPath     string
	Tags         []string
	Metadata     map[string]string
	ContentHash  string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Chunk is one embeddable fragment of a Document. Chunks are owned by their
// document: replacing the document replaces the whole chunk set, and Index
// is only stable within one ingestion pass.
type Chunk struct {
	ID           uuid.UUID
	DocumentID   uuid.UUID
	Index        int
	Content      string
	SectionTitle string
	Embedding    []float32
	TokenCount   int
	Metadata     map[string]string
}

// SearchResult is one ranked fragment with enough document context to be
// rendered without a second lookup.
type SearchResult struct {
	ChunkID      uuid.UUID
	DocumentID   uuid.UUID
	FilePath     string
	Title        string
	Category     document.Category
	RoutePattern string
	MenuPath     string
	Tags         []string
	Content      string
	SectionTitle string
	TokenCount   int
	Metadata     map[string]string
	Similarity   float64
}

// Status is the read-side aggregate over the whole store.
type Status struct {
	Documents   int
	Chunks      int
	ByCategory  map[document.Category]int
	LastUpdated *time.Time
}

// Search tuning defaults and bounds.
const (
	DefaultTopK          = 5
	MaxTopK              = 20
	DefaultMinSimilarity = 0.5

	// Hybrid score = SemanticWeight*cosine + LexicalWeight*ts_rank.
	SemanticWeight = 0.7
	LexicalWeight  = 0.3
)

// SearchOption configures Search using the functional options pattern.
type SearchOption func(*searchConfig)

type searchConfig struct {
	topK          int
	category      document.Category
	tags          []string
	hybrid        bool
	minSimilarity float64
}

// WithTopK sets the maximum number of results. Values outside [1, MaxTopK]
// are clamped.
func WithTopK(k int) SearchOption {
	return func(c *searchConfig) {
		c.topK = k
	}
}

// WithCategory restricts results to one document category (hard filter).
func WithCategory(category document.Category) SearchOption {
	return func(c *searchConfig) {
		c.category = category
	}
}

// WithTags restricts results to documents carrying at least one of the
// given tags (hard filter).
func WithTags(tags ...string) SearchOption {
	return func(c *searchConfig) {
		c.tags = append(c.tags, tags...)
	}
}

// WithHybrid toggles blending the semantic score with lexical full-text
// relevance.
func WithHybrid(enabled bool) SearchOption {
	return func(c *searchConfig) {
		c.hybrid = enabled
	}
}

// WithMinSimilarity overrides the similarity threshold below which matches
// are discarded before ranking.
func WithMinSimilarity(threshold float64) SearchOption {
	return func(c *searchConfig) {
		c.minSimilarity = threshold
	}
}

func buildSearchConfig(opts []SearchOption) *searchConfig {
	cfg := &searchConfig{
		topK:          DefaultTopK,
		minSimilarity: DefaultMinSimilarity,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.topK < 1 {
		cfg.topK = DefaultTopK
	}
	if cfg.topK > MaxTopK {
		cfg.topK = MaxTopK
	}
	return cfg
}
