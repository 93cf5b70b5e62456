package config

import (
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
)

// Validate validates configuration values.
// Returns sentinel errors that can be checked with errors.Is().
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	// 1. API key (required for all embedding operations)
	if os.Getenv("GEMINI_API_KEY") == "" {
		return fmt.Errorf("%w: GEMINI_API_KEY environment variable is required\n"+
			"Get your API key at: https://ai.google.dev/gemini-api/docs/api-key",
			ErrMissingAPIKey)
	}

	// 2. Embedding configuration
	if c.EmbedderModel == "" {
		return fmt.Errorf("%w: embedder_model cannot be empty", ErrInvalidEmbedderModel)
	}
	if c.EmbedderDimension != DefaultEmbedderDimension {
		// The chunks table declares vector(768); a mismatched embedder
		// silently corrupts similarity math, so fail fast.
		return fmt.Errorf("%w: schema stores vector(%d), got %d",
			ErrInvalidEmbedderDimension, DefaultEmbedderDimension, c.EmbedderDimension)
	}
	if c.EmbedBatchSize < 1 || c.EmbedBatchSize > 250 {
		return fmt.Errorf("%w: embed_batch_size must be between 1 and 250, got %d",
			ErrInvalidEmbedBatchSize, c.EmbedBatchSize)
	}

	// 3. Documentation source
	if !strings.HasPrefix(c.DocsExtension, ".") {
		return fmt.Errorf("%w: docs_extension must start with a dot, got %q",
			ErrInvalidDocsExtension, c.DocsExtension)
	}

	// 4. Chunking configuration
	if c.ChunkMaxTokens < 1 {
		return fmt.Errorf("%w: chunk_max_tokens must be positive, got %d",
			ErrInvalidChunking, c.ChunkMaxTokens)
	}
	if c.ChunkMinTokens < 0 || c.ChunkMinTokens > c.ChunkMaxTokens {
		return fmt.Errorf("%w: chunk_min_tokens must be between 0 and chunk_max_tokens, got %d",
			ErrInvalidChunking, c.ChunkMinTokens)
	}
	if c.ChunkOverlapTokens < 0 || c.ChunkOverlapTokens >= c.ChunkMaxTokens {
		return fmt.Errorf("%w: chunk_overlap_tokens must be less than chunk_max_tokens, got %d",
			ErrInvalidChunking, c.ChunkOverlapTokens)
	}
	if c.ChunkTokensPerWord <= 0 || c.ChunkTokensPerWord > 10 {
		return fmt.Errorf("%w: chunk_tokens_per_word must be between 0 and 10, got %g",
			ErrInvalidChunking, c.ChunkTokensPerWord)
	}

	// 5. Search defaults
	if c.SearchTopK < 1 || c.SearchTopK > 20 {
		return fmt.Errorf("%w: search_top_k must be between 1 and 20, got %d",
			ErrInvalidSearch, c.SearchTopK)
	}
	if c.SearchMinSimilarity < 0 || c.SearchMinSimilarity > 1 {
		return fmt.Errorf("%w: search_min_similarity must be between 0 and 1, got %g",
			ErrInvalidSearch, c.SearchMinSimilarity)
	}

	// 6. PostgreSQL configuration
	if c.PostgresHost == "" {
		return fmt.Errorf("%w: host cannot be empty", ErrInvalidPostgresHost)
	}
	if c.PostgresPort < 1 || c.PostgresPort > 65535 {
		return fmt.Errorf("%w: must be between 1 and 65535, got %d", ErrInvalidPostgresPort, c.PostgresPort)
	}
	if c.PostgresDBName == "" {
		return fmt.Errorf("%w: database name cannot be empty", ErrInvalidPostgresDBName)
	}
	if c.PostgresPassword == "" {
		return fmt.Errorf("%w: postgres_password must be set in config.yaml",
			ErrInvalidPostgresPassword)
	}
	if c.PostgresPassword == "guara_dev_password" {
		slog.Warn("Using default development password for PostgreSQL",
			"warning", "Change postgres_password in config.yaml for production deployments")
	}
	if len(c.PostgresPassword) < 8 {
		return fmt.Errorf("%w: postgres_password must be at least 8 characters (got %d)",
			ErrInvalidPostgresPassword, len(c.PostgresPassword))
	}

	// 7. PostgreSQL SSL mode. Modern modes only; the deprecated allow and
	// prefer modes are vulnerable to MITM.
	validSSLModes := []string{"disable", "require", "verify-ca", "verify-full"}
	if c.PostgresSSLMode == "" {
		return fmt.Errorf("%w: postgres_ssl_mode is empty (should have default from setDefaults)",
			ErrInvalidPostgresSSLMode)
	}
	if !slices.Contains(validSSLModes, c.PostgresSSLMode) {
		return fmt.Errorf("%w: %q is not valid, must be one of: %v",
			ErrInvalidPostgresSSLMode, c.PostgresSSLMode, validSSLModes)
	}

	return nil
}
