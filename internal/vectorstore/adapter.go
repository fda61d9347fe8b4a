package vectorstore

import (
	"context"
	"math"
	"sync"

	"github.com/coder/hnsw"

	"github.com/ZacharyN/org-archivist-sub001/internal/ragerr"
)

// searchResult carries a Search call's outcome across the goroutine
// boundary used to bound it by cfg.Timeout.
type searchResult struct {
	points []ScoredPoint
	err    error
}

// upsertResult carries an Upsert call's outcome across the same boundary.
type upsertResult struct {
	err error
}

// hnswAdapter implements Adapter over github.com/coder/hnsw, the same
// pure-Go ANN graph the teacher uses for its own vector store. Deletes
// are lazy (orphaning the id mapping rather than removing the graph
// node) to avoid a known issue in coder/hnsw when the last node in a
// layer is removed.
type hnswAdapter struct {
	mu     sync.RWMutex
	graph  *hnsw.Graph[uint64]
	cfg    Config
	closed bool

	idMap   map[string]uint64 // chunk id -> graph key
	keyMap  map[uint64]string // graph key -> chunk id
	nextKey uint64

	payloads map[string]map[string]any // chunk id -> payload
	vectors  map[string][]float32       // chunk id -> stored vector, kept for Scroll
	byDoc    map[string]map[string]bool // doc id -> set of chunk ids

	// oversampleFactor controls how many candidates Search pulls from
	// the graph before applying the payload filter, since coder/hnsw
	// has no native filtered search.
	oversampleFactor int

	// breaker fails Search/Upsert fast once consecutive failures cross
	// cfg's threshold, per spec §7's distinction between a retryable
	// Transient timeout and a DependencyUnavailable outage.
	breaker *ragerr.CircuitBreaker
}

// New builds an Adapter backed by an in-process HNSW graph.
func New(cfg Config) Adapter {
	if cfg.Metric == "" {
		cfg.Metric = "cos"
	}
	if cfg.M == 0 {
		cfg.M = 16
	}
	if cfg.EfSearch == 0 {
		cfg.EfSearch = 20
	}

	graph := hnsw.NewGraph[uint64]()
	switch cfg.Metric {
	case "l2":
		graph.Distance = hnsw.EuclideanDistance
	default:
		graph.Distance = hnsw.CosineDistance
	}
	graph.M = cfg.M
	graph.EfSearch = cfg.EfSearch
	graph.Ml = 0.25

	return &hnswAdapter{
		graph:            graph,
		cfg:              cfg,
		idMap:            make(map[string]uint64),
		keyMap:           make(map[uint64]string),
		payloads:         make(map[string]map[string]any),
		vectors:          make(map[string][]float32),
		byDoc:            make(map[string]map[string]bool),
		oversampleFactor: 8,
		breaker:          ragerr.NewCircuitBreaker("vectorstore"),
	}
}

func (a *hnswAdapter) EnsureCollection(_ context.Context, dim int) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cfg.Dimensions != 0 && a.cfg.Dimensions != dim {
		return ragerr.InternalError("vector collection dimension mismatch", nil).
			WithDetail("expected", a.cfg.Dimensions).WithDetail("got", dim)
	}
	a.cfg.Dimensions = dim
	return nil
}

// Upsert runs upsertLocked on a goroutine bounded by cfg.Timeout and
// guarded by the circuit breaker, per spec §5's per-call timeout and
// §7's DependencyUnavailable-vs-Transient distinction.
func (a *hnswAdapter) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	if !a.breaker.Allow() {
		return ragerr.DependencyUnavailableError("vector index circuit breaker open", nil)
	}

	done := make(chan upsertResult, 1)
	go func() {
		done <- upsertResult{err: a.upsertLocked(points)}
	}()

	timeoutCtx, cancel := a.boundedContext(ctx)
	defer cancel()

	select {
	case <-timeoutCtx.Done():
		a.breaker.RecordFailure()
		return ragerr.TransientError("vector upsert timed out", timeoutCtx.Err())
	case r := <-done:
		if r.err != nil {
			a.breaker.RecordFailure()
		} else {
			a.breaker.RecordSuccess()
		}
		return r.err
	}
}

func (a *hnswAdapter) upsertLocked(points []Point) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return ragerr.DependencyUnavailableError("vector index is closed", nil)
	}

	for _, p := range points {
		if a.cfg.Dimensions != 0 && len(p.Vector) != a.cfg.Dimensions {
			return ragerr.InternalError("vector dimension mismatch", nil).
				WithDetail("expected", a.cfg.Dimensions).WithDetail("got", len(p.Vector))
		}
	}

	for _, p := range points {
		if existingKey, exists := a.idMap[p.ChunkID]; exists {
			delete(a.keyMap, existingKey)
			delete(a.idMap, p.ChunkID)
			a.forgetDocLink(p.ChunkID)
		}

		key := a.nextKey
		a.nextKey++

		vec := make([]float32, len(p.Vector))
		copy(vec, p.Vector)
		if a.cfg.Metric == "cos" {
			normalizeInPlace(vec)
		}

		a.graph.Add(hnsw.MakeNode(key, vec))
		a.idMap[p.ChunkID] = key
		a.keyMap[key] = p.ChunkID
		a.payloads[p.ChunkID] = p.Payload
		a.vectors[p.ChunkID] = vec

		if docID, ok := stringField(p.Payload, "doc_id"); ok {
			if a.byDoc[docID] == nil {
				a.byDoc[docID] = make(map[string]bool)
			}
			a.byDoc[docID][p.ChunkID] = true
		}
	}

	return nil
}

// forgetDocLink must be called with the write lock held.
func (a *hnswAdapter) forgetDocLink(chunkID string) {
	if payload, ok := a.payloads[chunkID]; ok {
		if docID, ok := stringField(payload, "doc_id"); ok {
			delete(a.byDoc[docID], chunkID)
		}
	}
	delete(a.payloads, chunkID)
	delete(a.vectors, chunkID)
}

// Search runs searchLocked on a goroutine bounded by cfg.Timeout and
// guarded by the circuit breaker, per spec §5's per-call timeout and
// §7's DependencyUnavailable-vs-Transient distinction.
func (a *hnswAdapter) Search(ctx context.Context, queryVector []float32, k int, filter *Filter) ([]ScoredPoint, error) {
	if !a.breaker.Allow() {
		return nil, ragerr.DependencyUnavailableError("vector index circuit breaker open", nil)
	}

	done := make(chan searchResult, 1)
	go func() {
		points, err := a.searchLocked(queryVector, k, filter)
		done <- searchResult{points: points, err: err}
	}()

	timeoutCtx, cancel := a.boundedContext(ctx)
	defer cancel()

	select {
	case <-timeoutCtx.Done():
		a.breaker.RecordFailure()
		return nil, ragerr.TransientError("vector search timed out", timeoutCtx.Err())
	case r := <-done:
		if r.err != nil {
			a.breaker.RecordFailure()
		} else {
			a.breaker.RecordSuccess()
		}
		return r.points, r.err
	}
}

// boundedContext derives a context capped at cfg.Timeout, falling back
// to ctx unchanged when no timeout is configured.
func (a *hnswAdapter) boundedContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.cfg.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, a.cfg.Timeout)
}

func (a *hnswAdapter) searchLocked(queryVector []float32, k int, filter *Filter) ([]ScoredPoint, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.closed {
		return nil, ragerr.DependencyUnavailableError("vector index is closed", nil)
	}
	if a.cfg.Dimensions != 0 && len(queryVector) != a.cfg.Dimensions {
		return nil, ragerr.InternalError("query vector dimension mismatch", nil).
			WithDetail("expected", a.cfg.Dimensions).WithDetail("got", len(queryVector))
	}
	if a.graph.Len() == 0 || k <= 0 {
		return nil, nil
	}

	query := make([]float32, len(queryVector))
	copy(query, queryVector)
	if a.cfg.Metric == "cos" {
		normalizeInPlace(query)
	}

	fetch := k
	if filter != nil && len(filter.Conditions) > 0 {
		fetch = k * a.oversampleFactor
	}
	if fetch > a.graph.Len() {
		fetch = a.graph.Len()
	}

	nodes := a.graph.Search(query, fetch)

	results := make([]ScoredPoint, 0, k)
	for _, node := range nodes {
		chunkID, ok := a.keyMap[node.Key]
		if !ok {
			continue
		}
		payload := a.payloads[chunkID]
		if !Matches(payload, filter) {
			continue
		}

		distance := a.graph.Distance(query, node.Value)
		results = append(results, ScoredPoint{
			ChunkID:  chunkID,
			Score:    distanceToScore(distance, a.cfg.Metric),
			Distance: distance,
			Payload:  payload,
		})
		if len(results) == k {
			break
		}
	}

	return results, nil
}

func (a *hnswAdapter) DeleteByDocID(_ context.Context, docID string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	chunkIDs := a.byDoc[docID]
	for chunkID := range chunkIDs {
		if key, exists := a.idMap[chunkID]; exists {
			delete(a.keyMap, key)
			delete(a.idMap, chunkID)
		}
		delete(a.payloads, chunkID)
		delete(a.vectors, chunkID)
	}
	delete(a.byDoc, docID)
	return nil
}

func (a *hnswAdapter) Scroll(ctx context.Context, batchSize int, fn func(batch []Point) error) error {
	if batchSize <= 0 {
		batchSize = 500
	}

	a.mu.RLock()
	ids := make([]string, 0, len(a.idMap))
	for id := range a.idMap {
		ids = append(ids, id)
	}
	a.mu.RUnlock()

	for start := 0; start < len(ids); start += batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}

		end := start + batchSize
		if end > len(ids) {
			end = len(ids)
		}

		a.mu.RLock()
		batch := make([]Point, 0, end-start)
		for _, id := range ids[start:end] {
			vec, ok := a.vectors[id]
			if !ok {
				continue
			}
			batch = append(batch, Point{ChunkID: id, Vector: vec, Payload: a.payloads[id]})
		}
		a.mu.RUnlock()

		if err := fn(batch); err != nil {
			return err
		}
	}

	return nil
}

func (a *hnswAdapter) Health(_ context.Context) error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.closed {
		return ragerr.DependencyUnavailableError("vector index is closed", nil)
	}
	return nil
}

func (a *hnswAdapter) Count() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.idMap)
}

func (a *hnswAdapter) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	return nil
}

func stringField(payload map[string]any, field string) (string, bool) {
	v, ok := payload[field]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

func normalizeInPlace(v []float32) {
	var sumSquares float64
	for _, x := range v {
		sumSquares += float64(x) * float64(x)
	}
	if sumSquares == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sumSquares))
	for i := range v {
		v[i] *= inv
	}
}

// distanceToScore converts a raw graph distance into a [0,1] similarity score.
func distanceToScore(distance float32, metric string) float32 {
	switch metric {
	case "l2":
		return 1.0 / (1.0 + distance)
	default: // cosine distance ranges 0 (identical) to 2 (opposite)
		return 1.0 - distance/2.0
	}
}
