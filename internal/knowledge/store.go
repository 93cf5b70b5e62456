// Package knowledge persists documents and their embedded fragments in
// PostgreSQL + pgvector and serves ranked similarity search over them.
//
// The Store is the only stateful component in the engine: ingestion writes
// through it and retrieval reads through it, sharing one schema (see
// db/migrations). Semantic search ranks by cosine similarity via the
// pgvector <=> operator; hybrid search blends in lexical relevance from a
// Portuguese tsvector over fragment content.
package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/guara-ai/guara/internal/document"
)

// querier is the common interface satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// documentCols is the standard SELECT column list for scanDocument.
const documentCols = `id, file_path, title, category, route_pattern, menu_path,
	tags, metadata, content_hash, created_at, updated_at`

// Store manages documents and chunks backed by PostgreSQL + pgvector.
//
// Store is safe for concurrent use by multiple goroutines.
type Store struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

// NewStore creates a Store. A nil logger falls back to slog.Default.
func NewStore(pool *pgxpool.Pool, logger *slog.Logger) (*Store, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{pool: pool, logger: logger}, nil
}

// GetDocumentByPath looks up a document by its source path. Returns
// (nil, nil) when no document exists for the path.
func (s *Store) GetDocumentByPath(ctx context.Context, filePath string) (*Document, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+documentCols+` FROM documents WHERE file_path = $1`, filePath)

	doc, err := scanDocument(row)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("querying document %q: %w", filePath, err)
	}
	return doc, nil
}

// UpsertDocument inserts a document or updates the existing row for its
// file path in place. doc.ID and the timestamps are populated from the
// database on return.
func (s *Store) UpsertDocument(ctx context.Context, doc *Document) error {
	if doc == nil {
		return fmt.Errorf("document is required")
	}
	if doc.FilePath == "" {
		return fmt.Errorf("document file path is required")
	}

	metadata, err := json.Marshal(orEmptyMap(doc.Metadata))
	if err != nil {
		return fmt.Errorf("marshaling metadata for %q: %w", doc.FilePath, err)
	}

	err = s.pool.QueryRow(ctx,
		`INSERT INTO documents (file_path, title, category, route_pattern, menu_path, tags, metadata, content_hash)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (file_path) DO UPDATE SET
		   title = EXCLUDED.title,
		   category = EXCLUDED.category,
		   route_pattern = EXCLUDED.route_pattern,
		   menu_path = EXCLUDED.menu_path,
		   tags = EXCLUDED.tags,
		   metadata = EXCLUDED.metadata,
		   content_hash = EXCLUDED.content_hash,
		   updated_at = now()
		 RETURNING id, created_at, updated_at`,
		doc.FilePath, doc.Title, string(doc.Category),
		nullIfEmpty(doc.RoutePattern), nullIfEmpty(doc.MenuPath),
		orEmptySlice(doc.Tags), metadata, doc.ContentHash,
	).Scan(&doc.ID, &doc.CreatedAt, &doc.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upserting document %q: %w", doc.FilePath, err)
	}
	return nil
}

// DeleteChunksByDocument removes every chunk owned by a document. The
// cascade on document replacement is driven here rather than left to the
// schema so it stays an explicit pipeline step.
func (s *Store) DeleteChunksByDocument(ctx context.Context, documentID uuid.UUID) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM chunks WHERE document_id = $1`, documentID)
	if err != nil {
		return 0, fmt.Errorf("deleting chunks for document %s: %w", documentID, err)
	}
	return tag.RowsAffected(), nil
}

// InsertChunks bulk-inserts a document's chunk set in one transaction.
// Either every chunk lands or none does.
func (s *Store) InsertChunks(ctx context.Context, documentID uuid.UUID, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning chunk insert transaction: %w", err)
	}
	defer func() {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			s.logger.Debug("chunk insert rollback", "error", rbErr)
		}
	}()

	for i := range chunks {
		if err := insertChunk(ctx, tx, documentID, &chunks[i]); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing chunk insert: %w", err)
	}
	return nil
}

func insertChunk(ctx context.Context, q querier, documentID uuid.UUID, chunk *Chunk) error {
	metadata, err := json.Marshal(orEmptyMap(chunk.Metadata))
	if err != nil {
		return fmt.Errorf("marshaling chunk %d metadata: %w", chunk.Index, err)
	}

	// Embedding stays NULL until the fragment has been embedded.
	var embedding any
	if len(chunk.Embedding) > 0 {
		embedding = pgvector.NewVector(chunk.Embedding)
	}

	err = q.QueryRow(ctx,
		`INSERT INTO chunks (document_id, chunk_index, content, section_title, embedding, token_count, metadata)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		documentID, chunk.Index, chunk.Content,
		nullIfEmpty(chunk.SectionTitle), embedding, chunk.TokenCount, metadata,
	).Scan(&chunk.ID)
	if err != nil {
		return fmt.Errorf("inserting chunk %d: %w", chunk.Index, err)
	}
	chunk.DocumentID = documentID
	return nil
}

// DeleteAllDocuments hard-deletes every document; the schema cascade clears
// the chunks. Used by full reindexing only.
func (s *Store) DeleteAllDocuments(ctx context.Context) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM documents`)
	if err != nil {
		return 0, fmt.Errorf("deleting all documents: %w", err)
	}
	s.logger.Info("deleted all documents", "count", tag.RowsAffected())
	return tag.RowsAffected(), nil
}

// Search ranks stored fragments against a query embedding. queryText is
// only consulted in hybrid mode, where lexical relevance over the fragment
// tsvector is blended into the score. Category and tag options are hard
// pre-filters, not soft boosts. An empty result set is not an error.
func (s *Store) Search(ctx context.Context, queryVec []float32, queryText string, opts ...SearchOption) ([]SearchResult, error) {
	cfg := buildSearchConfig(opts)

	var (
		args  []any
		where []string
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	vecParam := arg(pgvector.NewVector(queryVec))
	similarity := fmt.Sprintf("1 - (c.embedding <=> %s)", vecParam)

	where = append(where, "c.embedding IS NOT NULL")
	where = append(where, fmt.Sprintf("%s >= %s", similarity, arg(cfg.minSimilarity)))
	if cfg.category != "" {
		where = append(where, "d.category = "+arg(string(cfg.category)))
	}
	if len(cfg.tags) > 0 {
		// Overlap operator: a document matches when it carries any
		// requested tag.
		where = append(where, "d.tags && "+arg(cfg.tags))
	}

	score := similarity
	if cfg.hybrid {
		score = fmt.Sprintf(
			"%g * (%s) + %g * ts_rank(c.content_tsv, websearch_to_tsquery('portuguese', %s))",
			SemanticWeight, similarity, LexicalWeight, arg(queryText))
	}

	query := fmt.Sprintf(
		`SELECT c.id, c.document_id, d.file_path, d.title, d.category,
		        d.route_pattern, d.menu_path, d.tags,
		        c.content, c.section_title, c.token_count, c.metadata,
		        %s AS score
		 FROM chunks c
		 JOIN documents d ON d.id = c.document_id
		 WHERE %s
		 ORDER BY score DESC
		 LIMIT %s`,
		score, strings.Join(where, " AND "), arg(cfg.topK))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("searching chunks: %w", err)
	}
	defer rows.Close()

	results := []SearchResult{}
	for rows.Next() {
		var (
			r            SearchResult
			category     string
			routePattern *string
			menuPath     *string
			sectionTitle *string
			metadata     []byte
		)
		if err := rows.Scan(
			&r.ChunkID, &r.DocumentID, &r.FilePath, &r.Title, &category,
			&routePattern, &menuPath, &r.Tags,
			&r.Content, &sectionTitle, &r.TokenCount, &metadata,
			&r.Similarity,
		); err != nil {
			return nil, fmt.Errorf("scanning search result: %w", err)
		}
		r.Category = document.Category(category)
		r.RoutePattern = deref(routePattern)
		r.MenuPath = deref(menuPath)
		r.SectionTitle = deref(sectionTitle)
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &r.Metadata); err != nil {
				return nil, fmt.Errorf("unmarshaling chunk metadata: %w", err)
			}
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating search results: %w", err)
	}
	return results, nil
}

// GetStatus returns document/chunk totals, the per-category document
// breakdown, and the most recent document update. Read-only.
func (s *Store) GetStatus(ctx context.Context) (Status, error) {
	status := Status{ByCategory: make(map[document.Category]int)}

	err := s.pool.QueryRow(ctx,
		`SELECT
		   (SELECT COUNT(*) FROM documents),
		   (SELECT COUNT(*) FROM chunks),
		   (SELECT MAX(updated_at) FROM documents)`,
	).Scan(&status.Documents, &status.Chunks, &status.LastUpdated)
	if err != nil {
		return Status{}, fmt.Errorf("querying store totals: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT category, COUNT(*) FROM documents GROUP BY category`)
	if err != nil {
		return Status{}, fmt.Errorf("querying category breakdown: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			category string
			count    int
		)
		if err := rows.Scan(&category, &count); err != nil {
			return Status{}, fmt.Errorf("scanning category breakdown: %w", err)
		}
		status.ByCategory[document.Category(category)] = count
	}
	if err := rows.Err(); err != nil {
		return Status{}, fmt.Errorf("iterating category breakdown: %w", err)
	}
	return status, nil
}

func scanDocument(row pgx.Row) (*Document, error) {
	var (
		doc          Document
		category     string
		routePattern *string
		menuPath     *string
		metadata     []byte
		createdAt    time.Time
		updatedAt    time.Time
	)
	err := row.Scan(&doc.ID, &doc.FilePath, &doc.Title, &category,
		&routePattern, &menuPath, &doc.Tags, &metadata,
		&doc.ContentHash, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	doc.Category = document.Category(category)
	doc.RoutePattern = deref(routePattern)
	doc.MenuPath = deref(menuPath)
	doc.CreatedAt = createdAt
	doc.UpdatedAt = updatedAt
	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &doc.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling document metadata: %w", err)
		}
	}
	return &doc, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func orEmptyMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

func orEmptySlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
