// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (DATABASE_URL, GUARA_* overrides)
//  2. Config file (~/.guara/config.yaml or ./config.yaml)
//  3. Default values
//
// Main configuration categories:
//   - Storage: PostgreSQL connection (see storage.go)
//   - Embedding: Gemini embedder model, output dimension, batch size
//   - Chunking: token budget, minimum size, overlap, token estimator
//   - Search: result count and similarity floor defaults
//
// Validation uses sentinel errors so callers can check with errors.Is().
// Sensitive values (the database password) are masked by MarshalJSON and
// String.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrMissingAPIKey indicates a required API key is missing.
	ErrMissingAPIKey = errors.New("missing API key")

	// ErrInvalidEmbedderModel indicates the embedder model is invalid.
	ErrInvalidEmbedderModel = errors.New("invalid embedder model")

	// ErrInvalidEmbedderDimension indicates the embedder output dimension
	// does not match the vector schema.
	ErrInvalidEmbedderDimension = errors.New("invalid embedder dimension")

	// ErrInvalidEmbedBatchSize indicates the embedding batch size is out of range.
	ErrInvalidEmbedBatchSize = errors.New("invalid embedding batch size")

	// ErrInvalidDocsExtension indicates the documentation file extension is invalid.
	ErrInvalidDocsExtension = errors.New("invalid docs extension")

	// ErrInvalidChunking indicates a chunking parameter is out of range.
	ErrInvalidChunking = errors.New("invalid chunking configuration")

	// ErrInvalidSearch indicates a search default is out of range.
	ErrInvalidSearch = errors.New("invalid search configuration")

	// ErrInvalidPostgresHost indicates the PostgreSQL host is invalid.
	ErrInvalidPostgresHost = errors.New("invalid PostgreSQL host")

	// ErrInvalidPostgresPort indicates the PostgreSQL port is out of range.
	ErrInvalidPostgresPort = errors.New("invalid PostgreSQL port")

	// ErrInvalidPostgresDBName indicates the PostgreSQL database name is invalid.
	ErrInvalidPostgresDBName = errors.New("invalid PostgreSQL database name")

	// ErrInvalidPostgresPassword indicates the PostgreSQL password is invalid.
	ErrInvalidPostgresPassword = errors.New("invalid PostgreSQL password")

	// ErrInvalidPostgresSSLMode indicates the PostgreSQL SSL mode is invalid.
	ErrInvalidPostgresSSLMode = errors.New("invalid PostgreSQL SSL mode")
)

const (
	// DefaultEmbedderModel is the default Gemini embedder model.
	// gemini-embedding-001 outputs 3072 dimensions by default but supports
	// truncation via OutputDimensionality; the pgvector schema stores 768.
	DefaultEmbedderModel = "gemini-embedding-001"

	// DefaultEmbedderDimension matches the vector(768) column in the
	// chunks table. Changing it requires a schema migration.
	DefaultEmbedderDimension = 768
)

// Config stores application configuration.
// SECURITY: sensitive fields are explicitly masked in MarshalJSON().
type Config struct {
	// Documentation source
	DocsDir       string `mapstructure:"docs_dir" json:"docs_dir"`
	DocsExtension string `mapstructure:"docs_extension" json:"docs_extension"`

	// Embedding configuration
	EmbedderModel     string `mapstructure:"embedder_model" json:"embedder_model"`
	EmbedderDimension int    `mapstructure:"embedder_dimension" json:"embedder_dimension"`
	EmbedBatchSize    int    `mapstructure:"embed_batch_size" json:"embed_batch_size"`

	// Chunking configuration
	ChunkMaxTokens     int     `mapstructure:"chunk_max_tokens" json:"chunk_max_tokens"`
	ChunkMinTokens     int     `mapstructure:"chunk_min_tokens" json:"chunk_min_tokens"`
	ChunkOverlapTokens int     `mapstructure:"chunk_overlap_tokens" json:"chunk_overlap_tokens"`
	ChunkTokensPerWord float64 `mapstructure:"chunk_tokens_per_word" json:"chunk_tokens_per_word"`

	// Search defaults
	SearchTopK          int     `mapstructure:"search_top_k" json:"search_top_k"`
	SearchMinSimilarity float64 `mapstructure:"search_min_similarity" json:"search_min_similarity"`
	SearchHybrid        bool    `mapstructure:"search_hybrid" json:"search_hybrid"`

	// Ingestion configuration
	IngestConcurrency int `mapstructure:"ingest_concurrency" json:"ingest_concurrency"`

	// Storage configuration (see storage.go for documentation)
	PostgresHost     string `mapstructure:"postgres_host" json:"postgres_host"`
	PostgresPort     int    `mapstructure:"postgres_port" json:"postgres_port"`
	PostgresUser     string `mapstructure:"postgres_user" json:"postgres_user"`
	PostgresPassword string `mapstructure:"postgres_password" json:"postgres_password"` // SENSITIVE: masked in MarshalJSON
	PostgresDBName   string `mapstructure:"postgres_db_name" json:"postgres_db_name"`
	PostgresSSLMode  string `mapstructure:"postgres_ssl_mode" json:"postgres_ssl_mode"`

	// Logging configuration
	LogLevel string `mapstructure:"log_level" json:"log_level"`
	LogJSON  bool   `mapstructure:"log_json" json:"log_json"`
}

// Load loads configuration.
// Priority: environment variables > configuration file > default values.
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, ".guara")
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".")

	setDefaults()
	bindEnvVariables()

	if err := viper.ReadInConfig(); err != nil {
		// A missing config file is fine, defaults apply.
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		slog.Debug("configuration file not found, using default values",
			"search_paths", []string{configDir, "."},
			"config_name", "config.yaml")
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// DATABASE_URL overrides the individual postgres_* settings.
	if err := cfg.parseDatabaseURL(); err != nil {
		return nil, fmt.Errorf("parsing DATABASE_URL: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults() {
	viper.SetDefault("docs_dir", "docs")
	viper.SetDefault("docs_extension", ".md")

	// Embedding defaults
	viper.SetDefault("embedder_model", DefaultEmbedderModel)
	viper.SetDefault("embedder_dimension", DefaultEmbedderDimension)
	viper.SetDefault("embed_batch_size", 100)

	// Chunking defaults
	viper.SetDefault("chunk_max_tokens", 512)
	viper.SetDefault("chunk_min_tokens", 100)
	viper.SetDefault("chunk_overlap_tokens", 50)
	viper.SetDefault("chunk_tokens_per_word", 1.3)

	// Search defaults
	viper.SetDefault("search_top_k", 5)
	viper.SetDefault("search_min_similarity", 0.5)
	viper.SetDefault("search_hybrid", true)

	// Ingestion defaults
	viper.SetDefault("ingest_concurrency", 4)

	// PostgreSQL defaults (matching docker-compose.yml)
	viper.SetDefault("postgres_host", "localhost")
	viper.SetDefault("postgres_port", 5432)
	viper.SetDefault("postgres_user", "guara")
	viper.SetDefault("postgres_password", "guara_dev_password")
	viper.SetDefault("postgres_db_name", "guara")
	viper.SetDefault("postgres_ssl_mode", "disable")

	// Logging defaults
	viper.SetDefault("log_level", "info")
	viper.SetDefault("log_json", false)
}

// bindEnvVariables binds environment overrides explicitly.
// GEMINI_API_KEY is read directly by Genkit, not via Viper; its presence
// is checked in Validate(). DATABASE_URL is parsed separately in
// parseDatabaseURL.
func bindEnvVariables() {
	// Hardcoded keys cannot fail to bind; a panic here is a bug.
	mustBind := func(key, envVar string) {
		if err := viper.BindEnv(key, envVar); err != nil {
			panic(fmt.Sprintf("BUG: failed to bind %q to %q: %v", key, envVar, err))
		}
	}

	mustBind("docs_dir", "GUARA_DOCS_DIR")
	mustBind("embedder_model", "GUARA_EMBEDDER_MODEL")
	mustBind("log_level", "GUARA_LOG_LEVEL")
	mustBind("log_json", "GUARA_LOG_JSON")
}

// maskedValue is the placeholder for masked sensitive data.
// Full-width blocks (U+2588) avoid substring matching against real secrets.
const maskedValue = "████████"

// maskSecret masks a secret string for safe logging. Secrets of 8 chars or
// fewer are fully masked; longer ones keep the first and last 2 characters
// for debug utility. This defends against accidental logging, nothing more.
func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	if len(s) <= 8 {
		return maskedValue
	}
	return s[:2] + "<" + maskedValue + ">" + s[len(s)-2:]
}

// MarshalJSON implements json.Marshaler with explicit sensitive field
// masking. When adding new sensitive fields, update this method.
func (c Config) MarshalJSON() ([]byte, error) {
	type alias Config
	a := alias(c)
	a.PostgresPassword = maskSecret(a.PostgresPassword)
	data, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return data, nil
}

// String implements Stringer to prevent accidental printing of secrets.
func (c Config) String() string {
	data, err := c.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("Config{error: %v}", err)
	}
	return string(data)
}
