package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/guara-ai/guara/db"
	"github.com/guara-ai/guara/internal/chunker"
	"github.com/guara-ai/guara/internal/config"
	"github.com/guara-ai/guara/internal/embedding"
	"github.com/guara-ai/guara/internal/ingest"
	"github.com/guara-ai/guara/internal/knowledge"
	"github.com/guara-ai/guara/internal/log"
	"github.com/guara-ai/guara/internal/retriever"
)

// app bundles the wired components every command needs. Built once per
// invocation in newApp, torn down by close.
type app struct {
	cfg       *config.Config
	logger    *slog.Logger
	pool      *pgxpool.Pool
	pipeline  *ingest.Pipeline
	retriever *retriever.Retriever
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// newApp loads configuration, connects to PostgreSQL, applies pending
// migrations and wires the ingestion pipeline and retriever.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return buildApp(ctx, cfg)
}

// buildApp wires the components from an already loaded configuration.
// Commands that need config before connecting (flag defaults) come in here.
func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	logger := log.New(log.Config{
		Level: log.ParseLevel(cfg.LogLevel),
		JSON:  cfg.LogJSON,
	})
	slog.SetDefault(logger)

	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	pool, err := pgxpool.New(ctx, cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connecting to PostgreSQL: %w", err)
	}

	// GEMINI_API_KEY is read by the plugin itself; config.Load already
	// verified its presence.
	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{}))
	embedder := googlegenai.GoogleAIEmbedder(g, cfg.EmbedderModel)

	provider, err := embedding.NewGenkitProvider(embedder, cfg.EmbedderDimension)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating embedding provider: %w", err)
	}
	client, err := embedding.NewClient(provider, embedding.Config{
		BatchSize:     cfg.EmbedBatchSize,
		TokensPerWord: cfg.ChunkTokensPerWord,
	}, logger.With("component", "embedding"))
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating embedding client: %w", err)
	}

	store, err := knowledge.NewStore(pool, logger.With("component", "knowledge"))
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating knowledge store: %w", err)
	}

	pipeline, err := ingest.New(store, client, ingest.Config{
		Extension:   cfg.DocsExtension,
		Concurrency: cfg.IngestConcurrency,
		Chunking: chunker.Config{
			MaxTokens:     cfg.ChunkMaxTokens,
			MinTokens:     cfg.ChunkMinTokens,
			OverlapTokens: cfg.ChunkOverlapTokens,
			TokensPerWord: cfg.ChunkTokensPerWord,
		},
	}, logger.With("component", "ingest"))
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating ingestion pipeline: %w", err)
	}

	ret, err := retriever.New(store, client, logger.With("component", "retriever"))
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating retriever: %w", err)
	}

	return &app{
		cfg:       cfg,
		logger:    logger,
		pool:      pool,
		pipeline:  pipeline,
		retriever: ret,
	}, nil
}

func (a *app) close() {
	a.pool.Close()
}

// resolveDocsPath returns the positional path argument or the configured
// docs directory.
func resolveDocsPath(args []string, cfg *config.Config) string {
	if len(args) > 0 && args[0] != "" {
		return args[0]
	}
	return cfg.DocsDir
}

// isDir reports whether path exists and is a directory.
func isDir(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		return false, err
	}
	return info.IsDir(), nil
}
