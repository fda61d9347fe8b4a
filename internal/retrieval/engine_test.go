package retrieval

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZacharyN/org-archivist-sub001/internal/bm25"
	"github.com/ZacharyN/org-archivist-sub001/internal/config"
	"github.com/ZacharyN/org-archivist-sub001/internal/embed"
	"github.com/ZacharyN/org-archivist-sub001/internal/ragerr"
	"github.com/ZacharyN/org-archivist-sub001/internal/telemetry"
	"github.com/ZacharyN/org-archivist-sub001/internal/vectorstore"
)

// fakeSink records calls made to it so tests can assert on what the
// engine reports without standing up a real otel pipeline.
type fakeSink struct {
	requests        []string
	stages          []string
	cancelledQuery  string
	cancelledCalled bool
}

func (f *fakeSink) IncRequest(component string)          { f.requests = append(f.requests, component) }
func (f *fakeSink) IncCacheHit()                         {}
func (f *fakeSink) IncCacheMiss()                        {}
func (f *fakeSink) IncCacheEviction()                    {}
func (f *fakeSink) IncError(ragerr.Kind)                 {}
func (f *fakeSink) ObserveLatency(stage string, d time.Duration) { f.stages = append(f.stages, stage) }
func (f *fakeSink) DocumentProcessed(string, int)        {}
func (f *fakeSink) DocumentDeleted(string)               {}
func (f *fakeSink) RetrievalCancelled(query string) {
	f.cancelledCalled = true
	f.cancelledQuery = query
}

var _ telemetry.Sink = (*fakeSink)(nil)

// fakeAdapter is a minimal in-memory vectorstore.Adapter used only to
// exercise HybridEngine without a real HNSW backend.
type fakeAdapter struct {
	points []vectorstore.Point
}

func (f *fakeAdapter) EnsureCollection(ctx context.Context, dim int) error { return nil }

func (f *fakeAdapter) Upsert(ctx context.Context, points []vectorstore.Point) error {
	f.points = append(f.points, points...)
	return nil
}

func (f *fakeAdapter) Search(ctx context.Context, queryVector []float32, k int, filter *vectorstore.Filter) ([]vectorstore.ScoredPoint, error) {
	out := make([]vectorstore.ScoredPoint, 0, len(f.points))
	for i, p := range f.points {
		if !vectorstore.Matches(p.Payload, filter) {
			continue
		}
		out = append(out, vectorstore.ScoredPoint{
			ChunkID: p.ChunkID,
			Score:   float32(1.0) / float32(i+1),
			Payload: p.Payload,
		})
	}
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func (f *fakeAdapter) DeleteByDocID(ctx context.Context, docID string) error { return nil }

func (f *fakeAdapter) Scroll(ctx context.Context, batchSize int, fn func(batch []vectorstore.Point) error) error {
	return fn(f.points)
}

func (f *fakeAdapter) Health(ctx context.Context) error { return nil }
func (f *fakeAdapter) Count() int                       { return len(f.points) }
func (f *fakeAdapter) Close() error                      { return nil }
func (f *fakeAdapter) Save(path string) error            { return nil }
func (f *fakeAdapter) Load(path string) error            { return nil }

func seedAdapter() *fakeAdapter {
	return &fakeAdapter{points: []vectorstore.Point{
		{
			ChunkID: "doc1-0",
			Vector:  []float32{0.1, 0.2, 0.3},
			Payload: map[string]any{
				vectorstore.PayloadDocID:      "doc1",
				vectorstore.PayloadText:       "our grant proposal for the community health program",
				vectorstore.PayloadChunkIndex: 0,
				vectorstore.PayloadYear:       2024,
				vectorstore.PayloadFilename:   "doc1.pdf",
			},
		},
		{
			ChunkID: "doc2-0",
			Vector:  []float32{0.4, 0.5, 0.6},
			Payload: map[string]any{
				vectorstore.PayloadDocID:      "doc2",
				vectorstore.PayloadText:       "annual report on the youth mentoring program outcomes",
				vectorstore.PayloadChunkIndex: 0,
				vectorstore.PayloadYear:       2018,
				vectorstore.PayloadFilename:   "doc2.pdf",
			},
		},
	}}
}

func newTestEngine(t *testing.T) (*HybridEngine, *fakeAdapter) {
	t.Helper()
	adapter := seedAdapter()

	keyword := bm25.New(bm25.DefaultConfig())
	require.NoError(t, keyword.Rebuild(context.Background(), adapter, 100))

	embedder := embed.NewStaticEmbedder()

	cfg := config.RetrievalConfig{
		VectorWeight:  0.7,
		KeywordWeight: 0.3,
		OverFetch:     4,
		MaxPerDoc:     3,
		FusionMode:    "minmax",
		RRFConstant:   60,
	}

	return NewHybridEngine(adapter, keyword, embedder, nil, cfg, nil), adapter
}

func TestHybridEngine_Retrieve_ReturnsFusedCandidates(t *testing.T) {
	engine, _ := newTestEngine(t)

	candidates, err := engine.Retrieve(context.Background(), Request{Query: "grant proposal program", TopK: 5})
	require.NoError(t, err)
	require.NotEmpty(t, candidates)

	for _, c := range candidates {
		assert.NotEmpty(t, c.ChunkID)
		assert.NotEmpty(t, c.DocID)
	}
}

func TestHybridEngine_Retrieve_RespectsFilter(t *testing.T) {
	engine, _ := newTestEngine(t)

	filter := vectorstore.Equals(vectorstore.PayloadDocID, "doc2")
	candidates, err := engine.Retrieve(context.Background(), Request{Query: "program", TopK: 5, Filter: &filter})
	require.NoError(t, err)

	for _, c := range candidates {
		assert.Equal(t, "doc2", c.DocID)
	}
}

func TestHybridEngine_Retrieve_EmptyQueryIsValidationError(t *testing.T) {
	engine, _ := newTestEngine(t)

	_, err := engine.Retrieve(context.Background(), Request{Query: "???", TopK: 5})
	require.Error(t, err)
	assert.Equal(t, ragerr.Validation, ragerr.KindOf(err))
}

func TestHybridEngine_Retrieve_TruncatesToTopK(t *testing.T) {
	engine, _ := newTestEngine(t)

	candidates, err := engine.Retrieve(context.Background(), Request{Query: "program outcomes report", TopK: 1})
	require.NoError(t, err)
	assert.LessOrEqual(t, len(candidates), 1)
}

func TestHybridEngine_Retrieve_RRFFusionMode(t *testing.T) {
	engine, _ := newTestEngine(t)
	engine.cfg.FusionMode = "rrf"

	candidates, err := engine.Retrieve(context.Background(), Request{Query: "grant proposal program outcomes", TopK: 5})
	require.NoError(t, err)
	assert.NotEmpty(t, candidates)
}

func TestHybridEngine_Retrieve_ReportsTelemetry(t *testing.T) {
	engine, _ := newTestEngine(t)
	sink := &fakeSink{}
	engine.SetTelemetry(sink)

	_, err := engine.Retrieve(context.Background(), Request{Query: "program outcomes report", TopK: 5})
	require.NoError(t, err)

	assert.Equal(t, []string{"retrieve"}, sink.requests)
	assert.Contains(t, sink.stages, "retrieve.dense")
	assert.Contains(t, sink.stages, "retrieve.sparse")
	assert.Contains(t, sink.stages, "retrieve.total")
}

func TestHybridEngine_Retrieve_CancelledContextReportsEvent(t *testing.T) {
	engine, _ := newTestEngine(t)
	sink := &fakeSink{}
	engine.SetTelemetry(sink)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := engine.Retrieve(ctx, Request{Query: "program outcomes report", TopK: 5})
	require.Error(t, err)
	assert.True(t, sink.cancelledCalled)
}
