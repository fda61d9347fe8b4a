package ingest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZacharyN/org-archivist-sub001/internal/bm25"
	"github.com/ZacharyN/org-archivist-sub001/internal/chunk"
	"github.com/ZacharyN/org-archivist-sub001/internal/embed"
	"github.com/ZacharyN/org-archivist-sub001/internal/extract"
	"github.com/ZacharyN/org-archivist-sub001/internal/metadata"
	"github.com/ZacharyN/org-archivist-sub001/internal/metastore"
	"github.com/ZacharyN/org-archivist-sub001/internal/ragerr"
	"github.com/ZacharyN/org-archivist-sub001/internal/vectorstore"
)

type fakeAdapter struct {
	points      []vectorstore.Point
	upsertErr   error
	deletedDocs []string
}

func (f *fakeAdapter) EnsureCollection(ctx context.Context, dim int) error { return nil }

func (f *fakeAdapter) Upsert(ctx context.Context, points []vectorstore.Point) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.points = append(f.points, points...)
	return nil
}

func (f *fakeAdapter) Search(ctx context.Context, queryVector []float32, k int, filter *vectorstore.Filter) ([]vectorstore.ScoredPoint, error) {
	return nil, nil
}

func (f *fakeAdapter) DeleteByDocID(ctx context.Context, docID string) error {
	f.deletedDocs = append(f.deletedDocs, docID)
	var kept []vectorstore.Point
	for _, p := range f.points {
		if p.Payload[vectorstore.PayloadDocID] != docID {
			kept = append(kept, p)
		}
	}
	f.points = kept
	return nil
}

func (f *fakeAdapter) Scroll(ctx context.Context, batchSize int, fn func(batch []vectorstore.Point) error) error {
	return fn(f.points)
}

func (f *fakeAdapter) Health(ctx context.Context) error { return nil }
func (f *fakeAdapter) Count() int                       { return len(f.points) }
func (f *fakeAdapter) Close() error                      { return nil }
func (f *fakeAdapter) Save(path string) error            { return nil }
func (f *fakeAdapter) Load(path string) error            { return nil }

func newTestProcessor(t *testing.T) (*Processor, *fakeAdapter, *metastore.SQLiteStore) {
	t.Helper()
	store, err := metastore.Open(filepath.Join(t.TempDir(), "meta.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	_, err = store.CreateProgram(context.Background(), "Community Health", 1)
	require.NoError(t, err)

	adapter := &fakeAdapter{}
	chunker := chunk.New(chunk.DefaultConfig())
	embedder := embed.NewStaticEmbedder()
	keyword := bm25.New(bm25.DefaultConfig())

	proc := NewProcessor(extract.NewRegistry(), chunker, embedder, adapter, store, keyword, nil, nil)
	return proc, adapter, store
}

func TestProcessDocument_HappyPath(t *testing.T) {
	proc, adapter, store := newTestProcessor(t)

	text := "Our community health program served over one thousand families this year. " +
		"We expanded our outreach to three new neighborhoods. " +
		"Funding from the state enabled us to hire two new case workers. " +
		"Client satisfaction scores improved across every measured category."

	result, err := proc.ProcessDocument(context.Background(), Request{
		Data:     []byte(text),
		Filename: "GrantProposal_2024_State_Funded.txt",
		UserMeta: metadata.UserInput{Programs: []string{"community health"}},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, result.DocID)
	assert.Greater(t, result.ChunkCount, 0)
	assert.NotEmpty(t, adapter.points)

	doc, err := store.GetDocument(context.Background(), result.DocID)
	require.NoError(t, err)
	assert.Equal(t, result.ChunkCount, doc.ChunkCount)
	assert.Equal(t, []string{"Community Health"}, doc.Programs)
	assert.Equal(t, metadata.DocTypeGrantProposal, doc.DocType)
	assert.Equal(t, 2024, doc.Year)
}

func TestProcessDocument_RejectsUnknownProgram(t *testing.T) {
	proc, _, _ := newTestProcessor(t)

	_, err := proc.ProcessDocument(context.Background(), Request{
		Data:     []byte("some document text with enough words to chunk properly here"),
		Filename: "report.txt",
		UserMeta: metadata.UserInput{Programs: []string{"nonexistent program"}},
	})
	require.Error(t, err)
	assert.Equal(t, ragerr.Validation, ragerr.KindOf(err))
}

func TestProcessDocument_RejectsEmptyUpload(t *testing.T) {
	proc, _, _ := newTestProcessor(t)

	_, err := proc.ProcessDocument(context.Background(), Request{Data: nil, Filename: "empty.txt"})
	require.Error(t, err)
	assert.Equal(t, ragerr.Validation, ragerr.KindOf(err))
}

func TestProcessDocument_RejectsUnsupportedExtension(t *testing.T) {
	proc, _, _ := newTestProcessor(t)

	_, err := proc.ProcessDocument(context.Background(), Request{
		Data: []byte("whatever"), Filename: "file.exe",
	})
	require.Error(t, err)
	assert.Equal(t, ragerr.Validation, ragerr.KindOf(err))
}

func TestProcessDocument_CompensatesOnVectorUpsertFailure(t *testing.T) {
	proc, adapter, store := newTestProcessor(t)
	ctx := context.Background()

	adapter.upsertErr = assertErr{}

	text := "A reasonably long piece of document text so that chunking produces at least one chunk of content."
	_, err := proc.ProcessDocument(ctx, Request{Data: []byte(text), Filename: "notes.txt", DocID: "fixed-id"})
	require.Error(t, err)
	assert.Equal(t, ragerr.DependencyUnavailable, ragerr.KindOf(err))
	assert.Empty(t, adapter.points)

	_, getErr := store.GetDocument(ctx, "fixed-id")
	assert.Equal(t, ragerr.NotFound, ragerr.KindOf(getErr))
}

type assertErr struct{}

func (assertErr) Error() string { return "upsert failed" }

func TestProcessDocument_CompensatesOnMetadataInsertFailure(t *testing.T) {
	proc, adapter, store := newTestProcessor(t)
	ctx := context.Background()

	text := "A reasonably long piece of document text so that chunking produces at least one chunk of content."
	result, err := proc.ProcessDocument(ctx, Request{
		Data: []byte(text), Filename: "notes.txt", DocID: "fixed-id",
	})
	require.NoError(t, err)
	require.Equal(t, "fixed-id", result.DocID)

	// Re-processing the same doc id hits the metadata store's unique
	// constraint; the duplicate attempt's own vectors are compensated
	// away (DeleteByDocID is keyed by doc_id, so the surviving count is
	// the original document's chunk count, not double it).
	_, err = proc.ProcessDocument(ctx, Request{
		Data: []byte(text), Filename: "notes.txt", DocID: "fixed-id",
	})
	require.Error(t, err)
	assert.Equal(t, ragerr.Conflict, ragerr.KindOf(err))
	assert.LessOrEqual(t, len(adapter.points), result.ChunkCount)

	doc, err := store.GetDocument(ctx, "fixed-id")
	require.NoError(t, err)
	assert.Equal(t, result.ChunkCount, doc.ChunkCount)
}

func TestProcessor_DeleteDocument_RoundTrips(t *testing.T) {
	proc, adapter, store := newTestProcessor(t)
	ctx := context.Background()

	text := "A reasonably long piece of document text so that chunking produces at least one chunk of content."
	result, err := proc.ProcessDocument(ctx, Request{Data: []byte(text), Filename: "notes.txt", DocID: "doomed-id"})
	require.NoError(t, err)
	require.NotEmpty(t, adapter.points)

	err = proc.DeleteDocument(ctx, result.DocID)
	require.NoError(t, err)

	assert.Empty(t, adapter.points)
	assert.Contains(t, adapter.deletedDocs, result.DocID)

	_, err = store.GetDocument(ctx, result.DocID)
	assert.Equal(t, ragerr.NotFound, ragerr.KindOf(err))
}

func TestProcessor_DeleteDocument_NotFound(t *testing.T) {
	proc, _, _ := newTestProcessor(t)

	err := proc.DeleteDocument(context.Background(), "never-ingested")
	require.Error(t, err)
	assert.Equal(t, ragerr.NotFound, ragerr.KindOf(err))
}
