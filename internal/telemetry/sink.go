package telemetry

import (
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/ZacharyN/org-archivist-sub001/internal/ragerr"
)

// Sink is the narrow telemetry interface spec §6 calls for: counters
// (requests, cache hits/misses/evictions, errors by kind), histograms
// (per-stage latency), and structured events (document processed,
// document deleted, retrieval cancelled). It is one of the seven
// external capabilities spec §9 says become constructor-injected
// interfaces rather than a process-wide global.
type Sink interface {
	IncRequest(component string)
	IncCacheHit()
	IncCacheMiss()
	IncCacheEviction()
	IncError(kind ragerr.Kind)
	ObserveLatency(stage string, d time.Duration)
	DocumentProcessed(docID string, chunkCount int)
	DocumentDeleted(docID string)
	RetrievalCancelled(query string)
}

// Noop is the zero-cost default Sink every component falls back to
// when no telemetry backend is configured (spec §6: the core must run
// with or without an observability stack wired in).
var Noop Sink = noopSink{}

type noopSink struct{}

func (noopSink) IncRequest(string)                    {}
func (noopSink) IncCacheHit()                         {}
func (noopSink) IncCacheMiss()                        {}
func (noopSink) IncCacheEviction()                    {}
func (noopSink) IncError(ragerr.Kind)                 {}
func (noopSink) ObserveLatency(string, time.Duration) {}
func (noopSink) DocumentProcessed(string, int)        {}
func (noopSink) DocumentDeleted(string)               {}
func (noopSink) RetrievalCancelled(string)             {}

// otelSink records onto the global otel meter/tracer providers Setup
// installs. It is built once Setup has called otel.SetMeterProvider so
// its instruments are bound to the exporting provider, not the no-op
// default.
type otelSink struct {
	logger *slog.Logger

	requests   metric.Int64Counter
	cacheHits  metric.Int64Counter
	cacheMiss  metric.Int64Counter
	cacheEvict metric.Int64Counter
	errors     metric.Int64Counter
	latency    metric.Float64Histogram
	docsProc   metric.Int64Counter
	docsDel    metric.Int64Counter
	cancels    metric.Int64Counter
}

// NewOtelSink builds a Sink backed by the global otel meter. Call it
// after Setup has installed the real (non-no-op) meter provider so the
// instruments it creates here report through the configured exporter.
func NewOtelSink(logger *slog.Logger) (Sink, error) {
	if logger == nil {
		logger = slog.Default()
	}
	meter := otel.Meter("org-archivist-sub001")

	requests, err := meter.Int64Counter("rag.requests", metric.WithDescription("requests handled, by component"))
	if err != nil {
		return nil, err
	}
	cacheHits, err := meter.Int64Counter("rag.cache.hits")
	if err != nil {
		return nil, err
	}
	cacheMiss, err := meter.Int64Counter("rag.cache.misses")
	if err != nil {
		return nil, err
	}
	cacheEvict, err := meter.Int64Counter("rag.cache.evictions")
	if err != nil {
		return nil, err
	}
	errs, err := meter.Int64Counter("rag.errors", metric.WithDescription("errors, by kind"))
	if err != nil {
		return nil, err
	}
	latency, err := meter.Float64Histogram("rag.stage.latency_ms", metric.WithDescription("per-stage latency in milliseconds"))
	if err != nil {
		return nil, err
	}
	docsProc, err := meter.Int64Counter("rag.documents.processed")
	if err != nil {
		return nil, err
	}
	docsDel, err := meter.Int64Counter("rag.documents.deleted")
	if err != nil {
		return nil, err
	}
	cancels, err := meter.Int64Counter("rag.retrieval.cancelled")
	if err != nil {
		return nil, err
	}

	return &otelSink{
		logger:     logger,
		requests:   requests,
		cacheHits:  cacheHits,
		cacheMiss:  cacheMiss,
		cacheEvict: cacheEvict,
		errors:     errs,
		latency:    latency,
		docsProc:   docsProc,
		docsDel:    docsDel,
		cancels:    cancels,
	}, nil
}

func (s *otelSink) IncRequest(component string) {
	s.requests.Add(bgCtx(), 1, metric.WithAttributes(attrString("component", component)))
}

func (s *otelSink) IncCacheHit()      { s.cacheHits.Add(bgCtx(), 1) }
func (s *otelSink) IncCacheMiss()     { s.cacheMiss.Add(bgCtx(), 1) }
func (s *otelSink) IncCacheEviction() { s.cacheEvict.Add(bgCtx(), 1) }

func (s *otelSink) IncError(kind ragerr.Kind) {
	s.errors.Add(bgCtx(), 1, metric.WithAttributes(attrString("kind", string(kind))))
}

func (s *otelSink) ObserveLatency(stage string, d time.Duration) {
	s.latency.Record(bgCtx(), float64(d.Microseconds())/1000.0, metric.WithAttributes(attrString("stage", stage)))
}

func (s *otelSink) DocumentProcessed(docID string, chunkCount int) {
	s.docsProc.Add(bgCtx(), 1)
	s.logger.Info("document processed", slog.String("doc_id", docID), slog.Int("chunk_count", chunkCount))
}

func (s *otelSink) DocumentDeleted(docID string) {
	s.docsDel.Add(bgCtx(), 1)
	s.logger.Info("document deleted", slog.String("doc_id", docID))
}

func (s *otelSink) RetrievalCancelled(query string) {
	s.cancels.Add(bgCtx(), 1)
	s.logger.Info("retrieval cancelled", slog.String("query", query))
}
