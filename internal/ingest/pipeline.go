// Package ingest orchestrates the document ingestion pipeline:
// parse → hash → diff against the store → chunk → embed → upsert.
//
// Ingestion is idempotent per source path: unchanged content is detected by
// a content hash over the normalized body and short-circuits without
// touching the chunk set. Changed content replaces the document's chunks
// wholesale (delete then insert), never partially. Overlapping ingestions
// of the same path are serialized by a per-key lock; distinct paths may be
// processed concurrently.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/guara-ai/guara/internal/chunker"
	"github.com/guara-ai/guara/internal/document"
	"github.com/guara-ai/guara/internal/embedding"
	"github.com/guara-ai/guara/internal/knowledge"
)

// Store is the storage surface the pipeline needs. *knowledge.Store
// satisfies it; tests substitute an in-memory fake.
type Store interface {
	GetDocumentByPath(ctx context.Context, filePath string) (*knowledge.Document, error)
	UpsertDocument(ctx context.Context, doc *knowledge.Document) error
	DeleteChunksByDocument(ctx context.Context, documentID uuid.UUID) (int64, error)
	InsertChunks(ctx context.Context, documentID uuid.UUID, chunks []knowledge.Chunk) error
	DeleteAllDocuments(ctx context.Context) (int64, error)
	GetStatus(ctx context.Context) (knowledge.Status, error)
}

// Embedder generates embeddings for chunk texts. *embedding.Client
// satisfies it.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([]embedding.Result, error)
}

// Config tunes the pipeline.
type Config struct {
	// Extension filters directory scans (default ".md").
	Extension string
	// Concurrency bounds parallel file ingestion in IngestDirectory
	// (default 4). Embedding and store calls are the bottleneck, not CPU.
	Concurrency int
	// Chunking is handed to the chunker; zero values take its defaults.
	Chunking chunker.Config
}

// Result reports the outcome of ingesting one source file. A failed result
// is data, not an exception: directory-level ingestion aggregates results
// and keeps going past individual failures.
type Result struct {
	FilePath      string
	Success       bool
	DocumentID    uuid.UUID
	Title         string
	ChunksCreated int
	Message       string
}

// Pipeline ties the parser, chunker, embedder and store together.
//
// Pipeline is safe for concurrent use.
type Pipeline struct {
	store    Store
	embedder Embedder
	parser   *document.Parser
	chunker  *chunker.Chunker
	cfg      Config
	logger   *slog.Logger

	// keyLocks serializes overlapping ingestions of one source path.
	// Entries live for the pipeline's lifetime; the map is bounded by the
	// corpus size.
	mu       sync.Mutex
	keyLocks map[string]*sync.Mutex
}

// New creates a Pipeline. A nil logger falls back to slog.Default.
func New(store Store, embedder Embedder, cfg Config, logger *slog.Logger) (*Pipeline, error) {
	if store == nil {
		return nil, fmt.Errorf("store is required")
	}
	if embedder == nil {
		return nil, fmt.Errorf("embedder is required")
	}
	if cfg.Extension == "" {
		cfg.Extension = ".md"
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		store:    store,
		embedder: embedder,
		parser:   document.NewParser(logger),
		chunker:  chunker.New(cfg.Chunking),
		cfg:      cfg,
		logger:   logger,
		keyLocks: make(map[string]*sync.Mutex),
	}, nil
}

// IngestFile reads path as UTF-8 text and ingests it.
func (p *Pipeline) IngestFile(ctx context.Context, path string) Result {
	raw, err := os.ReadFile(path)
	if err != nil {
		return failed(path, fmt.Sprintf("reading file: %v", err))
	}
	return p.IngestContent(ctx, path, string(raw))
}

// IngestContent ingests content under the given source path, bypassing the
// filesystem. The per-document algorithm:
//
//  1. Parse metadata and body, hash the normalized body.
//  2. Unchanged hash: refresh document metadata, skip chunking and
//     embedding entirely (ChunksCreated=0).
//  3. Changed hash: re-chunk and batch-embed first, then delete the old
//     chunk set, upsert the document and insert the new chunks. An
//     embedding failure aborts before any stored state is touched.
//
// Zero chunks is reported as a failed result, not an error: a document that
// produces no usable fragments must be visible, not silently empty.
func (p *Pipeline) IngestContent(ctx context.Context, path, content string) Result {
	unlock := p.lockKey(path)
	defer unlock()

	fm, body := p.parser.Parse(content, path)
	hash := contentHash(body)

	existing, err := p.store.GetDocumentByPath(ctx, path)
	if err != nil {
		return failed(path, fmt.Sprintf("looking up document: %v", err))
	}

	doc := &knowledge.Document{
		FilePath:     path,
		Title:        fm.Title,
		Category:     fm.Category,
		RoutePattern: firstNonEmpty(fm.RoutePattern, fm.Route),
		MenuPath:     fm.MenuPath,
		Tags:         fm.Tags,
		Metadata:     documentMetadata(fm),
		ContentHash:  hash,
	}

	if existing != nil && existing.ContentHash == hash {
		// Body unchanged: the chunk set stays as-is, but metadata-only
		// edits (tags, menu path) still land on the document row.
		if err := p.store.UpsertDocument(ctx, doc); err != nil {
			return failed(path, fmt.Sprintf("updating document metadata: %v", err))
		}
		p.logger.Debug("content unchanged, skipping", "path", path)
		return Result{
			FilePath:   path,
			Success:    true,
			DocumentID: doc.ID,
			Title:      doc.Title,
			Message:    "conteúdo inalterado",
		}
	}

	fragments := p.chunker.Chunk(body, fm)
	if len(fragments) == 0 {
		return failed(path, "document produced no usable fragments")
	}

	texts := make([]string, len(fragments))
	for i, frag := range fragments {
		texts[i] = frag.Content
	}
	embedded, err := p.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return failed(path, fmt.Sprintf("embedding %d fragments: %v", len(fragments), err))
	}

	// Embedding succeeded; only now touch the stored state. The old chunk
	// set survives any failure up to this point.
	if existing != nil {
		if _, err := p.store.DeleteChunksByDocument(ctx, existing.ID); err != nil {
			return failed(path, fmt.Sprintf("deleting stale chunks: %v", err))
		}
	}
	if err := p.store.UpsertDocument(ctx, doc); err != nil {
		return failed(path, fmt.Sprintf("upserting document: %v", err))
	}

	chunks := make([]knowledge.Chunk, len(fragments))
	for i, frag := range fragments {
		chunks[i] = knowledge.Chunk{
			Index:        frag.Index,
			Content:      frag.Content,
			SectionTitle: frag.SectionTitle,
			Embedding:    embedded[i].Vector,
			TokenCount:   embedded[i].TokenCount,
			Metadata: map[string]string{
				"category":      string(fm.Category),
				"heading_level": strconv.Itoa(frag.HeadingLevel),
				"is_split":      strconv.FormatBool(frag.IsSplit),
			},
		}
	}
	if err := p.store.InsertChunks(ctx, doc.ID, chunks); err != nil {
		return failed(path, fmt.Sprintf("inserting chunks: %v", err))
	}

	p.logger.Info("ingested document",
		"path", path,
		"title", doc.Title,
		"category", doc.Category,
		"chunks", len(chunks))

	return Result{
		FilePath:      path,
		Success:       true,
		DocumentID:    doc.ID,
		Title:         doc.Title,
		ChunksCreated: len(chunks),
	}
}

// IngestDirectory recursively ingests every matching file under root.
// Files are discovered in directory-traversal order and processed with
// bounded concurrency; one bad file never aborts the batch. The returned
// slice has one Result per discovered file, in discovery order.
func (p *Pipeline) IngestDirectory(ctx context.Context, root string) ([]Result, error) {
	start := time.Now()

	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(path), p.cfg.Extension) {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %q: %w", root, err)
	}

	results := make([]Result, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.cfg.Concurrency)
	for i, path := range paths {
		g.Go(func() error {
			results[i] = p.IngestFile(gctx, path)
			return nil
		})
	}
	// Workers never return errors; failures live in the results.
	_ = g.Wait()

	succeeded, chunks := 0, 0
	for _, r := range results {
		if r.Success {
			succeeded++
			chunks += r.ChunksCreated
		}
	}
	p.logger.Info("directory ingestion completed",
		"root", root,
		"files", len(paths),
		"succeeded", succeeded,
		"failed", len(paths)-succeeded,
		"chunks_created", chunks,
		"duration", time.Since(start).String())

	return results, nil
}

// ReindexAll hard-deletes every stored document (cascading its chunks) and
// re-ingests root from scratch.
func (p *Pipeline) ReindexAll(ctx context.Context, root string) ([]Result, error) {
	if _, err := p.store.DeleteAllDocuments(ctx); err != nil {
		return nil, fmt.Errorf("clearing store for reindex: %w", err)
	}
	return p.IngestDirectory(ctx, root)
}

// Status returns the store-wide aggregate. Read-only, no side effects.
func (p *Pipeline) Status(ctx context.Context) (knowledge.Status, error) {
	return p.store.GetStatus(ctx)
}

// lockKey acquires the per-path lock, creating it on first use.
// Two overlapping ingestions of one path racing hash-compare-then-replace
// would lose an update or double the chunk set.
func (p *Pipeline) lockKey(path string) (unlock func()) {
	p.mu.Lock()
	lock, ok := p.keyLocks[path]
	if !ok {
		lock = &sync.Mutex{}
		p.keyLocks[path] = lock
	}
	p.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

// contentHash fingerprints the normalized body: CRLF folded to LF and
// surrounding whitespace trimmed, bytes otherwise significant.
func contentHash(body string) string {
	normalized := strings.TrimSpace(strings.ReplaceAll(body, "\r\n", "\n"))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// documentMetadata carries the open-ended frontmatter fields onto the
// document row.
func documentMetadata(fm document.Frontmatter) map[string]string {
	md := make(map[string]string, len(fm.Extra)+3)
	for k, v := range fm.Extra {
		md[k] = v
	}
	if fm.LastUpdated != "" {
		md["last_updated"] = fm.LastUpdated
	}
	if len(fm.Permissions) > 0 {
		md["permissions"] = strings.Join(fm.Permissions, ",")
	}
	if len(fm.RelatedPages) > 0 {
		md["related_pages"] = strings.Join(fm.RelatedPages, ",")
	}
	return md
}

func failed(path, message string) Result {
	return Result{FilePath: path, Message: message}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
