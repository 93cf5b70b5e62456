package testutil

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"sync"

	"github.com/guara-ai/guara/internal/embedding"
)

// FakeProvider is a deterministic in-memory embedding.Provider. The vector
// for a given text is a pure function of its bytes, so identical texts
// always embed identically and tests never need a network or an API key.
//
// Zero value is usable: 768-dimensional vectors, no token usage reported.
type FakeProvider struct {
	// Dimension of generated vectors (default 768).
	Dimension int

	// TokensPerText, when positive, is reported as ItemTokens for every
	// text. When zero the Batch carries no usage and the client falls back
	// to its local estimator.
	TokensPerText int

	// Err, when set, fails every EmbedBatch call.
	Err error

	mu    sync.Mutex
	calls [][]string
}

// EmbedBatch implements embedding.Provider.
func (f *FakeProvider) EmbedBatch(_ context.Context, texts []string) (embedding.Batch, error) {
	f.mu.Lock()
	f.calls = append(f.calls, append([]string(nil), texts...))
	f.mu.Unlock()

	if f.Err != nil {
		return embedding.Batch{}, f.Err
	}

	dim := f.Dimension
	if dim <= 0 {
		dim = embedding.DefaultDimension
	}

	batch := embedding.Batch{Vectors: make([][]float32, len(texts))}
	for i, text := range texts {
		batch.Vectors[i] = deterministicVector(text, dim)
	}
	if f.TokensPerText > 0 {
		batch.ItemTokens = make([]int, len(texts))
		for i := range texts {
			batch.ItemTokens[i] = f.TokensPerText
		}
		batch.TotalTokens = f.TokensPerText * len(texts)
	}
	return batch, nil
}

// Calls returns a copy of every batch of texts the provider received, in
// call order.
func (f *FakeProvider) Calls() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]string, len(f.calls))
	copy(out, f.calls)
	return out
}

// deterministicVector derives a unit vector from the text. A small linear
// congruential generator seeded by the FNV hash fills the components, then
// the vector is L2-normalized so cosine similarity behaves like the real
// embedder's output.
func deterministicVector(text string, dim int) []float32 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	state := h.Sum64()
	if state == 0 {
		state = 1
	}

	vec := make([]float32, dim)
	var norm float64
	for i := range vec {
		state = state*6364136223846793005 + 1442695040888963407
		// Map the top bits to [-1, 1).
		v := float64(int32(state>>32)) / float64(math.MaxInt32)
		vec[i] = float32(v)
		norm += v * v
	}
	norm = math.Sqrt(norm)
	if norm == 0 {
		vec[0] = 1
		return vec
	}
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
	return vec
}

var _ embedding.Provider = (*FakeProvider)(nil)

// NewFakeClient wraps a FakeProvider in an embedding.Client with default
// settings, the common shape tests need.
func NewFakeClient(provider *FakeProvider) (*embedding.Client, error) {
	client, err := embedding.NewClient(provider, embedding.Config{}, DiscardLogger())
	if err != nil {
		return nil, fmt.Errorf("creating fake embedding client: %w", err)
	}
	return client, nil
}
