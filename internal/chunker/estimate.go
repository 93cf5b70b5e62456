package chunker

import (
	"math"
	"strings"
)

// DefaultTokensPerWord is the word-to-token multiplier used when none is
// configured. Portuguese averages roughly 1.3 tokens per word on current
// embedding tokenizers; English sits closer to 1.0.
const DefaultTokensPerWord = 1.3

// EstimateTokens approximates the token count of text as
// ceil(words × tokensPerWord). This is a word-count heuristic, not a real
// tokenizer: it exists so the chunker can budget fragments without calling
// the embedding provider, and it can be off by ±20% on code-heavy or
// punctuation-heavy text. A non-positive tokensPerWord falls back to
// DefaultTokensPerWord.
func EstimateTokens(text string, tokensPerWord float64) int {
	if tokensPerWord <= 0 {
		tokensPerWord = DefaultTokensPerWord
	}
	words := len(strings.Fields(text))
	if words == 0 {
		return 0
	}
	return int(math.Ceil(float64(words) * tokensPerWord))
}
