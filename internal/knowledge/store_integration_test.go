//go:build integration
// +build integration

package knowledge

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/guara-ai/guara/internal/document"
	"github.com/guara-ai/guara/internal/log"
	"github.com/guara-ai/guara/internal/testutil"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
		goleak.IgnoreTopFunction("github.com/jackc/pgx/v5/pgxpool.(*Pool).backgroundHealthCheck"),
	)
}

// unitVec returns a 768-dimensional unit vector with a single hot component,
// so distinct axes are exactly orthogonal.
func unitVec(axis int) []float32 {
	v := make([]float32, 768)
	v[axis] = 1
	return v
}

func setupStore(t *testing.T) (*Store, func()) {
	t.Helper()
	db, cleanup := testutil.SetupTestDB(t)
	store, err := NewStore(db.Pool, log.NewNop())
	require.NoError(t, err)
	return store, cleanup
}

func sampleDocument(path string, category document.Category, tags ...string) *Document {
	return &Document{
		FilePath:    path,
		Title:       "Documento " + path,
		Category:    category,
		MenuPath:    "Menu > " + path,
		Tags:        tags,
		Metadata:    map[string]string{"origem": "teste"},
		ContentHash: "hash-" + path,
	}
}

func TestUpsertAndGetDocument(t *testing.T) {
	store, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	doc := sampleDocument("docs/financeiro/boletos.md", document.CategoryFinanceiro, "boleto")
	doc.RoutePattern = "/financeiro/boletos/:id"
	require.NoError(t, store.UpsertDocument(ctx, doc))
	assert.NotEqual(t, uuid.Nil, doc.ID)
	assert.False(t, doc.CreatedAt.IsZero())

	got, err := store.GetDocumentByPath(ctx, doc.FilePath)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, doc.ID, got.ID)
	assert.Equal(t, doc.Title, got.Title)
	assert.Equal(t, document.CategoryFinanceiro, got.Category)
	assert.Equal(t, "/financeiro/boletos/:id", got.RoutePattern)
	assert.Equal(t, []string{"boleto"}, got.Tags)
	assert.Equal(t, map[string]string{"origem": "teste"}, got.Metadata)
	assert.Equal(t, "hash-docs/financeiro/boletos.md", got.ContentHash)
}

func TestGetDocumentByPathMissing(t *testing.T) {
	store, cleanup := setupStore(t)
	defer cleanup()

	got, err := store.GetDocumentByPath(context.Background(), "docs/nao-existe.md")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestUpsertDocumentKeepsIdentity(t *testing.T) {
	store, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	doc := sampleDocument("docs/guia.md", document.CategoryGeral)
	require.NoError(t, store.UpsertDocument(ctx, doc))
	firstID := doc.ID

	updated := sampleDocument("docs/guia.md", document.CategoryGeral, "novo")
	updated.Title = "Título Novo"
	updated.ContentHash = "hash-novo"
	require.NoError(t, store.UpsertDocument(ctx, updated))

	assert.Equal(t, firstID, updated.ID, "upsert must keep the document identity")

	got, err := store.GetDocumentByPath(ctx, "docs/guia.md")
	require.NoError(t, err)
	assert.Equal(t, "Título Novo", got.Title)
	assert.Equal(t, []string{"novo"}, got.Tags)
	assert.Equal(t, "hash-novo", got.ContentHash)
}

func TestInsertAndDeleteChunks(t *testing.T) {
	store, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	doc := sampleDocument("docs/guia.md", document.CategoryGeral)
	require.NoError(t, store.UpsertDocument(ctx, doc))

	chunks := []Chunk{
		{Index: 0, Content: "primeiro fragmento", Embedding: unitVec(0), TokenCount: 2},
		{Index: 1, Content: "segundo fragmento", SectionTitle: "Seção", Embedding: unitVec(1), TokenCount: 2,
			Metadata: map[string]string{"heading_level": "2"}},
	}
	require.NoError(t, store.InsertChunks(ctx, doc.ID, chunks))
	for _, c := range chunks {
		assert.NotEqual(t, uuid.Nil, c.ID)
		assert.Equal(t, doc.ID, c.DocumentID)
	}

	deleted, err := store.DeleteChunksByDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, deleted)

	deleted, err = store.DeleteChunksByDocument(ctx, doc.ID)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestInsertChunksEmpty(t *testing.T) {
	store, cleanup := setupStore(t)
	defer cleanup()

	require.NoError(t, store.InsertChunks(context.Background(), uuid.New(), nil))
}

func TestSearchSemantic(t *testing.T) {
	store, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	doc := sampleDocument("docs/financeiro/boletos.md", document.CategoryFinanceiro, "boleto")
	require.NoError(t, store.UpsertDocument(ctx, doc))
	require.NoError(t, store.InsertChunks(ctx, doc.ID, []Chunk{
		{Index: 0, Content: "como emitir boleto", Embedding: unitVec(0), TokenCount: 3},
		{Index: 1, Content: "assunto ortogonal", Embedding: unitVec(1), TokenCount: 2},
	}))

	results, err := store.Search(ctx, unitVec(0), "como emitir boleto")
	require.NoError(t, err)
	// The orthogonal chunk scores 0 and falls below the default floor.
	require.Len(t, results, 1)
	assert.Equal(t, "como emitir boleto", results[0].Content)
	assert.InDelta(t, 1.0, results[0].Similarity, 1e-6)
	assert.Equal(t, doc.ID, results[0].DocumentID)
	assert.Equal(t, document.CategoryFinanceiro, results[0].Category)
	assert.Equal(t, "Documento docs/financeiro/boletos.md", results[0].Title)
}

func TestSearchSkipsUnembeddedChunks(t *testing.T) {
	store, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	doc := sampleDocument("docs/guia.md", document.CategoryGeral)
	require.NoError(t, store.UpsertDocument(ctx, doc))
	require.NoError(t, store.InsertChunks(ctx, doc.ID, []Chunk{
		{Index: 0, Content: "sem embedding", TokenCount: 2},
	}))

	results, err := store.Search(ctx, unitVec(0), "sem embedding", WithMinSimilarity(0))
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearchCategoryFilter(t *testing.T) {
	store, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	fin := sampleDocument("docs/financeiro/pix.md", document.CategoryFinanceiro)
	aca := sampleDocument("docs/academico/notas.md", document.CategoryAcademico)
	require.NoError(t, store.UpsertDocument(ctx, fin))
	require.NoError(t, store.UpsertDocument(ctx, aca))
	require.NoError(t, store.InsertChunks(ctx, fin.ID, []Chunk{
		{Index: 0, Content: "pagamento via pix", Embedding: unitVec(0), TokenCount: 3},
	}))
	require.NoError(t, store.InsertChunks(ctx, aca.ID, []Chunk{
		{Index: 0, Content: "lançamento de notas", Embedding: unitVec(0), TokenCount: 3},
	}))

	results, err := store.Search(ctx, unitVec(0), "qualquer",
		WithCategory(document.CategoryAcademico))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, document.CategoryAcademico, results[0].Category)
}

func TestSearchTagsFilter(t *testing.T) {
	store, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	a := sampleDocument("docs/a.md", document.CategoryGeral, "boleto", "pix")
	b := sampleDocument("docs/b.md", document.CategoryGeral, "matricula")
	require.NoError(t, store.UpsertDocument(ctx, a))
	require.NoError(t, store.UpsertDocument(ctx, b))
	require.NoError(t, store.InsertChunks(ctx, a.ID, []Chunk{
		{Index: 0, Content: "conteúdo a", Embedding: unitVec(0), TokenCount: 2},
	}))
	require.NoError(t, store.InsertChunks(ctx, b.ID, []Chunk{
		{Index: 0, Content: "conteúdo b", Embedding: unitVec(0), TokenCount: 2},
	}))

	results, err := store.Search(ctx, unitVec(0), "qualquer", WithTags("pix", "cartao"))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "docs/a.md", results[0].FilePath)
}

func TestSearchTopKBound(t *testing.T) {
	store, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	doc := sampleDocument("docs/grande.md", document.CategoryGeral)
	require.NoError(t, store.UpsertDocument(ctx, doc))

	chunks := make([]Chunk, 10)
	for i := range chunks {
		chunks[i] = Chunk{Index: i, Content: "fragmento", Embedding: unitVec(0), TokenCount: 1}
	}
	require.NoError(t, store.InsertChunks(ctx, doc.ID, chunks))

	results, err := store.Search(ctx, unitVec(0), "fragmento", WithTopK(3))
	require.NoError(t, err)
	assert.Len(t, results, 3)
}

func TestSearchHybridPrefersLexicalMatch(t *testing.T) {
	store, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	doc := sampleDocument("docs/guia.md", document.CategoryGeral)
	require.NoError(t, store.UpsertDocument(ctx, doc))
	// Both chunks are semantically identical to the query vector; only the
	// first mentions the query words.
	require.NoError(t, store.InsertChunks(ctx, doc.ID, []Chunk{
		{Index: 0, Content: "emitir segunda via de boleto para responsável", Embedding: unitVec(0), TokenCount: 7},
		{Index: 1, Content: "configurar perfil de acesso do usuário", Embedding: unitVec(0), TokenCount: 6},
	}))

	results, err := store.Search(ctx, unitVec(0), "segunda via boleto", WithHybrid(true))
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Contains(t, results[0].Content, "boleto")
	assert.Greater(t, results[0].Similarity, results[1].Similarity)
}

func TestDeleteAllDocumentsCascades(t *testing.T) {
	store, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	doc := sampleDocument("docs/guia.md", document.CategoryGeral)
	require.NoError(t, store.UpsertDocument(ctx, doc))
	require.NoError(t, store.InsertChunks(ctx, doc.ID, []Chunk{
		{Index: 0, Content: "fragmento", Embedding: unitVec(0), TokenCount: 1},
	}))

	deleted, err := store.DeleteAllDocuments(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, deleted)

	status, err := store.GetStatus(ctx)
	require.NoError(t, err)
	assert.Zero(t, status.Documents)
	assert.Zero(t, status.Chunks)
}

func TestGetStatus(t *testing.T) {
	store, cleanup := setupStore(t)
	defer cleanup()
	ctx := context.Background()

	status, err := store.GetStatus(ctx)
	require.NoError(t, err)
	assert.Zero(t, status.Documents)
	assert.Nil(t, status.LastUpdated)

	fin := sampleDocument("docs/financeiro/pix.md", document.CategoryFinanceiro)
	aca := sampleDocument("docs/academico/notas.md", document.CategoryAcademico)
	aca2 := sampleDocument("docs/academico/turmas.md", document.CategoryAcademico)
	for _, d := range []*Document{fin, aca, aca2} {
		require.NoError(t, store.UpsertDocument(ctx, d))
	}
	require.NoError(t, store.InsertChunks(ctx, fin.ID, []Chunk{
		{Index: 0, Content: "fragmento", Embedding: unitVec(0), TokenCount: 1},
		{Index: 1, Content: "outro", Embedding: unitVec(1), TokenCount: 1},
	}))

	status, err = store.GetStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, status.Documents)
	assert.Equal(t, 2, status.Chunks)
	assert.Equal(t, 1, status.ByCategory[document.CategoryFinanceiro])
	assert.Equal(t, 2, status.ByCategory[document.CategoryAcademico])
	require.NotNil(t, status.LastUpdated)
}
