package chat

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZacharyN/org-archivist-sub001/internal/bm25"
	"github.com/ZacharyN/org-archivist-sub001/internal/cache"
	"github.com/ZacharyN/org-archivist-sub001/internal/config"
	"github.com/ZacharyN/org-archivist-sub001/internal/embed"
	"github.com/ZacharyN/org-archivist-sub001/internal/generate"
	"github.com/ZacharyN/org-archivist-sub001/internal/llm"
	"github.com/ZacharyN/org-archivist-sub001/internal/metastore"
	"github.com/ZacharyN/org-archivist-sub001/internal/ragerr"
	"github.com/ZacharyN/org-archivist-sub001/internal/retrieval"
	"github.com/ZacharyN/org-archivist-sub001/internal/telemetry"
	"github.com/ZacharyN/org-archivist-sub001/internal/vectorstore"
)

// fakeSink records every call so tests can assert what the
// orchestrator reports, without standing up a real otel pipeline.
type fakeSink struct {
	requests  []string
	hits      int
	misses    int
}

func (f *fakeSink) IncRequest(component string)      { f.requests = append(f.requests, component) }
func (f *fakeSink) IncCacheHit()                     { f.hits++ }
func (f *fakeSink) IncCacheMiss()                    { f.misses++ }
func (f *fakeSink) IncCacheEviction()                {}
func (f *fakeSink) IncError(ragerr.Kind)             {}
func (f *fakeSink) ObserveLatency(string, time.Duration) {}
func (f *fakeSink) DocumentProcessed(string, int)    {}
func (f *fakeSink) DocumentDeleted(string)           {}
func (f *fakeSink) RetrievalCancelled(string)        {}

var _ telemetry.Sink = (*fakeSink)(nil)

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
		out = append(out, vectorstore.ScoredPoint{ChunkID: p.ChunkID, Score: float32(1.0) / float32(i+1), Payload: p.Payload})
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

type fakeProvider struct {
	text     string
	streamed []string
}

func (f *fakeProvider) Name() string { return "fake" }
func (f *fakeProvider) Generate(ctx context.Context, system, user string, params llm.Params) (llm.Response, error) {
	return llm.Response{Text: f.text}, nil
}
func (f *fakeProvider) StreamGenerate(ctx context.Context, system, user string, params llm.Params) (llm.Stream, error) {
	return &fakeStream{chunks: f.streamed}, nil
}

type fakeStream struct {
	chunks []string
	idx    int
}

func (s *fakeStream) Next() bool {
	if s.idx >= len(s.chunks) {
		return false
	}
	s.idx++
	return true
}
func (s *fakeStream) Delta() llm.Delta         { return llm.Delta{Text: s.chunks[s.idx-1]} }
func (s *fakeStream) Err() error                { return nil }
func (s *fakeStream) Result() llm.StreamResult { return llm.StreamResult{} }
func (s *fakeStream) Close() error              { return nil }

func newTestOrchestrator(t *testing.T, providerText string) (*Orchestrator, metastore.Store, string) {
	t.Helper()
	store, err := metastore.Open(filepath.Join(t.TempDir(), "meta.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	_, err = store.CreateProgram(context.Background(), "Community Health", 1)
	require.NoError(t, err)

	conv, err := store.CreateConversation(context.Background(), "user-1", metastore.ConversationContext{
		Audience: "funders", DocumentFilters: []string{"Community Health"},
	})
	require.NoError(t, err)

	adapter := &fakeAdapter{points: []vectorstore.Point{
		{
			ChunkID: "doc1-0",
			Vector:  []float32{0.1, 0.2, 0.3},
			Payload: map[string]any{
				vectorstore.PayloadDocID:      "doc1",
				vectorstore.PayloadText:       "our grant proposal for the community health program",
				vectorstore.PayloadChunkIndex: 0,
				vectorstore.PayloadYear:       2024,
				vectorstore.PayloadFilename:   "doc1.pdf",
				vectorstore.PayloadPrograms:   []string{"Community Health"},
			},
		},
	}}
	keyword := bm25.New(bm25.DefaultConfig())
	require.NoError(t, keyword.Rebuild(context.Background(), adapter, 100))

	cfg := config.RetrievalConfig{VectorWeight: 0.7, KeywordWeight: 0.3, OverFetch: 4, MaxPerDoc: 3, FusionMode: "minmax", RRFConstant: 60}
	engine := retrieval.NewHybridEngine(adapter, keyword, embed.NewStaticEmbedder(), nil, cfg, nil)

	generator := generate.NewEngine(&fakeProvider{text: providerText, streamed: []string{"we won ", "the grant [1]"}})
	queryCache := cache.New(0, 0)

	return New(store, queryCache, engine, generator), store, conv.ConversationID
}

func TestRunTurn_PersistsMessagePairAndValidatesCitations(t *testing.T) {
	orch, store, convID := newTestOrchestrator(t, "we secured the grant [1]")

	turn, err := orch.RunTurn(context.Background(), convID, "did we win the grant", Overrides{})
	require.NoError(t, err)
	assert.Equal(t, "we secured the grant [1]", turn.Response.Text)
	assert.True(t, turn.Response.CitationReport.Valid)
	assert.NotEmpty(t, turn.Sources)

	messages, err := store.ListMessages(context.Background(), convID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, metastore.RoleUser, messages[0].Role)
	assert.Equal(t, metastore.RoleAssistant, messages[1].Role)
	assert.Equal(t, []int{1}, messages[1].Citations)
}

func TestRunTurn_AppliesStoredDocumentFilter(t *testing.T) {
	orch, _, convID := newTestOrchestrator(t, "answer [1]")

	turn, err := orch.RunTurn(context.Background(), convID, "community health outreach", Overrides{})
	require.NoError(t, err)
	for _, s := range turn.Sources {
		assert.Equal(t, "doc1.pdf", s.Filename)
	}
}

func TestRunTurn_OverrideAudienceDoesNotMutateStoredContext(t *testing.T) {
	orch, store, convID := newTestOrchestrator(t, "answer [1]")

	_, err := orch.RunTurn(context.Background(), convID, "q", Overrides{Audience: "board members"})
	require.NoError(t, err)

	conv, err := store.GetConversation(context.Background(), convID)
	require.NoError(t, err)
	assert.Equal(t, "funders", conv.Context.Audience)
}

func TestRunTurn_UnknownConversationIsNotFound(t *testing.T) {
	orch, _, _ := newTestOrchestrator(t, "answer")

	_, err := orch.RunTurn(context.Background(), "missing", "q", Overrides{})
	require.Error(t, err)
	assert.Equal(t, ragerr.NotFound, ragerr.KindOf(err))
}

func TestStreamTurn_PersistAppendsAccumulatedText(t *testing.T) {
	orch, store, convID := newTestOrchestrator(t, "unused")

	streaming, err := orch.StreamTurn(context.Background(), convID, "did we win", Overrides{})
	require.NoError(t, err)

	var text string
	for streaming.Handle.Next() {
		text += streaming.Handle.Delta().Text
	}
	require.NoError(t, streaming.Handle.Err())
	require.NoError(t, streaming.Persist(context.Background()))

	messages, err := store.ListMessages(context.Background(), convID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "we won the grant [1]", messages[1].Text)
	assert.Equal(t, []int{1}, messages[1].Citations)
}

func TestRunTurn_ReportsTelemetry(t *testing.T) {
	orch, _, convID := newTestOrchestrator(t, "answer [1]")
	sink := &fakeSink{}
	orch.SetTelemetry(sink)

	_, err := orch.RunTurn(context.Background(), convID, "did we win the grant", Overrides{})
	require.NoError(t, err)
	_, err = orch.RunTurn(context.Background(), convID, "did we win the grant", Overrides{})
	require.NoError(t, err)

	assert.Equal(t, []string{"chat", "chat"}, sink.requests)
	assert.Equal(t, 1, sink.misses)
	assert.Equal(t, 1, sink.hits)
}
