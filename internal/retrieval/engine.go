package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/ZacharyN/org-archivist-sub001/internal/bm25"
	"github.com/ZacharyN/org-archivist-sub001/internal/config"
	"github.com/ZacharyN/org-archivist-sub001/internal/embed"
	"github.com/ZacharyN/org-archivist-sub001/internal/metadata"
	"github.com/ZacharyN/org-archivist-sub001/internal/ragerr"
	"github.com/ZacharyN/org-archivist-sub001/internal/telemetry"
	"github.com/ZacharyN/org-archivist-sub001/internal/vectorstore"
)

// HybridEngine is the C7 retrieval pipeline: it normalizes the query,
// fans out to the dense (C4) and sparse (C5) indexes concurrently,
// fuses their scores, applies recency decay, diversifies per document,
// and optionally reranks before truncating to top_k.
type HybridEngine struct {
	vectors  vectorstore.Adapter
	keyword  *bm25.Index
	embedder embed.Embedder
	reranker Reranker
	cfg      config.RetrievalConfig
	logger   *slog.Logger
	now      func() time.Time
	telem    telemetry.Sink
}

var _ Engine = (*HybridEngine)(nil)

// NewHybridEngine wires the dense adapter, sparse index, and embedder
// behind a single Engine. reranker may be nil, in which case reranking
// is skipped regardless of cfg.RerankEnabled.
func NewHybridEngine(vectors vectorstore.Adapter, keyword *bm25.Index, embedder embed.Embedder, reranker Reranker, cfg config.RetrievalConfig, logger *slog.Logger) *HybridEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &HybridEngine{
		vectors:  vectors,
		keyword:  keyword,
		embedder: embedder,
		reranker: reranker,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
		telem:    telemetry.Noop,
	}
}

// SetTelemetry wires a telemetry sink into the engine. Defaults to
// telemetry.Noop until called.
func (e *HybridEngine) SetTelemetry(sink telemetry.Sink) {
	if sink == nil {
		sink = telemetry.Noop
	}
	e.telem = sink
}

// Retrieve runs the full pipeline for one query. It returns a
// ragerr-wrapped error if both sub-searches fail or the query embeds to
// nothing usable; a single sub-search failure degrades gracefully to
// the surviving list.
func (e *HybridEngine) Retrieve(ctx context.Context, req Request) ([]Candidate, error) {
	e.telem.IncRequest("retrieve")
	start := e.now()
	defer func() { e.telem.ObserveLatency("retrieve.total", e.now().Sub(start)) }()

	normalized := NormalizeQuery(req.Query)
	if normalized == "" {
		return nil, ragerr.ValidationError("query is empty after normalization")
	}

	topK := req.TopK
	if topK <= 0 {
		topK = 10
	}
	overFetch := e.cfg.OverFetch
	if overFetch < 1 {
		overFetch = 1
	}
	fetchK := topK * overFetch

	var dense, sparse []Candidate
	var denseErr, sparseErr error

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t := e.now()
		dense, denseErr = e.searchDense(gctx, normalized, fetchK, req.Filter)
		e.telem.ObserveLatency("retrieve.dense", e.now().Sub(t))
		return nil
	})
	g.Go(func() error {
		t := e.now()
		sparse, sparseErr = e.searchSparse(gctx, normalized, fetchK, req.Filter)
		e.telem.ObserveLatency("retrieve.sparse", e.now().Sub(t))
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		e.telem.RetrievalCancelled(req.Query)
		return nil, ctx.Err()
	}

	if denseErr != nil && sparseErr != nil {
		return nil, ragerr.DependencyUnavailableError("both dense and sparse search failed", denseErr)
	}
	if denseErr != nil {
		e.logger.Warn("dense search failed, degrading to sparse-only", "error", denseErr)
	}
	if sparseErr != nil {
		e.logger.Warn("sparse search failed, degrading to dense-only", "error", sparseErr)
	}

	normalizeScores(dense, func(c Candidate) float64 { return c.Score }, func(c *Candidate, v float64) { c.Score = v })
	normalizeScores(sparse, func(c Candidate) float64 { return c.Score }, func(c *Candidate, v float64) { c.Score = v })

	var fused []Candidate
	switch e.cfg.FusionMode {
	case "rrf":
		fused = fuseRRF(dense, sparse, e.cfg.RRFConstant)
	default:
		vw, kw := e.cfg.VectorWeight, e.cfg.KeywordWeight
		if vw+kw == 0 {
			vw, kw = 0.7, 0.3
		}
		fused = fuseMinMax(dense, sparse, vw, kw)
	}

	recencyWeight := req.RecencyWeight
	if recencyWeight == 0 {
		recencyWeight = e.cfg.RecencyWeight
	}
	applyRecencyDecay(fused, e.now().Year(), recencyWeight)

	diversified := diversify(fused, e.cfg.MaxPerDoc)

	if e.cfg.RerankEnabled && e.reranker != nil && e.reranker.Available(ctx) {
		t := e.now()
		reranked, err := e.reranker.Rerank(ctx, normalized, diversified)
		e.telem.ObserveLatency("retrieve.rerank", e.now().Sub(t))
		if err != nil {
			e.logger.Warn("rerank failed, falling back to fused order", "reranker", e.reranker.Name(), "error", err)
		} else {
			diversified = reranked
		}
	}

	sortCandidates(diversified)
	if len(diversified) > topK {
		diversified = diversified[:topK]
	}
	return diversified, nil
}

func (e *HybridEngine) searchDense(ctx context.Context, query string, k int, filter *vectorstore.Filter) ([]Candidate, error) {
	vec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	points, err := e.vectors.Search(ctx, vec, k, filter)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	out := make([]Candidate, 0, len(points))
	for _, p := range points {
		out = append(out, candidateFromPayload(p.ChunkID, float64(p.Score), p.Payload))
	}
	return out, nil
}

func (e *HybridEngine) searchSparse(ctx context.Context, query string, k int, filter *vectorstore.Filter) ([]Candidate, error) {
	if e.keyword == nil || !e.keyword.Ready() {
		return nil, nil
	}
	results, err := e.keyword.Search(ctx, query, k, filter)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}

	out := make([]Candidate, 0, len(results))
	for _, r := range results {
		out = append(out, candidateFromPayload(r.ChunkID, r.Score, r.Payload))
	}
	return out, nil
}

func candidateFromPayload(chunkID string, score float64, payload map[string]any) Candidate {
	c := Candidate{ChunkID: chunkID, Score: score}

	if v, ok := payload[vectorstore.PayloadDocID].(string); ok {
		c.DocID = v
	}
	if v, ok := payload[vectorstore.PayloadText].(string); ok {
		c.Text = v
	}
	if v, ok := payload[vectorstore.PayloadFilename].(string); ok {
		c.Filename = v
	}
	if v, ok := payload[vectorstore.PayloadDocType].(string); ok {
		c.DocType = metadata.DocType(v)
	}
	c.ChunkIndex = intFromAny(payload[vectorstore.PayloadChunkIndex])
	c.Year = intFromAny(payload[vectorstore.PayloadYear])

	return c
}

// intFromAny tolerates the numeric types a payload map may carry
// depending on its origin (JSON decode, direct insert, protobuf struct).
func intFromAny(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float32:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
