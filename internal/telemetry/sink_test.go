package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/ZacharyN/org-archivist-sub001/internal/ragerr"
)

func TestNoopSink_NeverPanics(t *testing.T) {
	assert.NotPanics(t, func() {
		Noop.IncRequest("retrieve")
		Noop.IncCacheHit()
		Noop.IncCacheMiss()
		Noop.IncCacheEviction()
		Noop.IncError(ragerr.Validation)
		Noop.ObserveLatency("retrieve.dense", time.Millisecond)
		Noop.DocumentProcessed("doc-1", 3)
		Noop.DocumentDeleted("doc-1")
		Noop.RetrievalCancelled("grant outcomes")
	})
}

func TestOtelSink_RecordsInstruments(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	prev := otel.GetMeterProvider()
	otel.SetMeterProvider(provider)
	t.Cleanup(func() { otel.SetMeterProvider(prev) })

	sink, err := NewOtelSink(nil)
	require.NoError(t, err)

	sink.IncRequest("ingest")
	sink.IncCacheHit()
	sink.IncCacheMiss()
	sink.IncCacheEviction()
	sink.IncError(ragerr.DependencyUnavailable)
	sink.ObserveLatency("retrieve.dense", 12*time.Millisecond)
	sink.DocumentProcessed("doc-1", 4)
	sink.DocumentDeleted("doc-2")
	sink.RetrievalCancelled("education grant outcomes")

	var data metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &data))

	names := map[string]bool{}
	for _, sm := range data.ScopeMetrics {
		for _, m := range sm.Metrics {
			names[m.Name] = true
		}
	}
	for _, want := range []string{
		"rag.requests", "rag.cache.hits", "rag.cache.misses", "rag.cache.evictions",
		"rag.errors", "rag.stage.latency_ms", "rag.documents.processed",
		"rag.documents.deleted", "rag.retrieval.cancelled",
	} {
		assert.True(t, names[want], "expected instrument %q to have recorded data", want)
	}
}
