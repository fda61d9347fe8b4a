// Package service wires the C1-C10 components into one runnable
// instance from a config.Config, the way a daemon's dependencies get
// built from config before being handed to CLI commands. This is the
// only place the concrete provider/store implementations are chosen;
// every component upstream of it depends on interfaces only.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/ZacharyN/org-archivist-sub001/internal/bm25"
	"github.com/ZacharyN/org-archivist-sub001/internal/cache"
	"github.com/ZacharyN/org-archivist-sub001/internal/chat"
	"github.com/ZacharyN/org-archivist-sub001/internal/chunk"
	"github.com/ZacharyN/org-archivist-sub001/internal/config"
	"github.com/ZacharyN/org-archivist-sub001/internal/embed"
	"github.com/ZacharyN/org-archivist-sub001/internal/extract"
	"github.com/ZacharyN/org-archivist-sub001/internal/generate"
	"github.com/ZacharyN/org-archivist-sub001/internal/ingest"
	"github.com/ZacharyN/org-archivist-sub001/internal/llm"
	"github.com/ZacharyN/org-archivist-sub001/internal/metastore"
	"github.com/ZacharyN/org-archivist-sub001/internal/ragerr"
	"github.com/ZacharyN/org-archivist-sub001/internal/retrieval"
	"github.com/ZacharyN/org-archivist-sub001/internal/telemetry"
	"github.com/ZacharyN/org-archivist-sub001/internal/vectorstore"
)

// BM25SnapshotFile is the on-disk name of the persisted keyword-index
// snapshot within config.StoreConfig.DataDir (SPEC_FULL.md's Open
// Questions resolution: persist BM25 rather than always scrolling C4
// cold).
const BM25SnapshotFile = "bm25-snapshot.gob"

// VectorSnapshotFile is the on-disk name of the persisted HNSW graph
// snapshot within config.StoreConfig.DataDir.
const VectorSnapshotFile = "vector-snapshot.gob"

// Service holds every wired component a CLI command or HTTP handler
// needs. Nothing here is a global; Run* commands build one Service and
// pass it down explicitly.
type Service struct {
	Config     *config.Config
	Logger     *slog.Logger
	Meta       metastore.Store
	Vectors    vectorstore.Adapter
	Keyword    *bm25.Index
	Cache      *cache.Cache
	Embedder   embed.Embedder
	LLM        llm.Provider
	Extractors *extract.Registry
	Chunker    chunk.Chunker
	Retrieval  retrieval.Engine
	Generator  *generate.Engine
	Processor  *ingest.Processor
	Chat       *chat.Orchestrator
	Telemetry  telemetry.Sink
}

// SetTelemetry wires a telemetry sink into the service and every
// component that reports through it (C6's ingest processor, C7's
// retrieval engine). Defaults to telemetry.Noop until called.
func (s *Service) SetTelemetry(sink telemetry.Sink) {
	if sink == nil {
		sink = telemetry.Noop
	}
	s.Telemetry = sink
	s.Processor.SetTelemetry(sink)
	s.Chat.SetTelemetry(sink)
	if engine, ok := s.Retrieval.(*retrieval.HybridEngine); ok {
		engine.SetTelemetry(sink)
	}
}

// Build constructs every component from cfg. It does not start any
// background work (BM25 rebuild-on-startup is the caller's choice via
// LoadOrRebuildKeyword) so callers that only need, say, the metadata
// store for a migration don't pay for the rest.
func Build(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Service, error) {
	if logger == nil {
		logger = slog.Default()
	}

	meta, err := metastore.Open(cfg.Store.SQLitePath, logger)
	if err != nil {
		return nil, fmt.Errorf("open metadata store: %w", err)
	}

	vectors := vectorstore.New(vectorstore.Config{
		Dimensions: cfg.Embeddings.Dimensions,
		Metric:     cfg.Store.VectorMetric,
		M:          cfg.Store.VectorM,
		EfSearch:   cfg.Store.VectorEfSearch,
		Timeout:    cfg.Store.VectorTimeout,
	})
	if err := vectors.EnsureCollection(ctx, cfg.Embeddings.Dimensions); err != nil {
		meta.Close()
		return nil, fmt.Errorf("ensure vector collection: %w", err)
	}
	vectorSnapshotPath := filepath.Join(cfg.Store.DataDir, VectorSnapshotFile)
	if err := vectors.Load(vectorSnapshotPath); err != nil {
		logger.Warn("vector snapshot load failed, starting from an empty index", slog.String("error", err.Error()))
	}

	keyword := bm25.New(bm25.Config{K1: cfg.Retrieval.BM25K1, B: cfg.Retrieval.BM25B})

	queryCache := cache.New(cfg.Cache.Capacity, cfg.Cache.TTL)

	embedder, err := buildEmbedder(ctx, cfg)
	if err != nil {
		meta.Close()
		vectors.Close()
		return nil, err
	}

	provider, err := buildLLMProvider(cfg)
	if err != nil {
		meta.Close()
		vectors.Close()
		return nil, err
	}

	extractors := extract.NewRegistry()
	extractors.Register(&extract.PDFExtractor{})
	extractors.Register(&extract.DocxExtractor{})
	extractors.Register(&extract.TextExtractor{})

	chunkCfg := chunk.Config{
		Strategy:             chunk.Strategy(cfg.Chunking.Strategy),
		ChunkSize:            cfg.Chunking.ChunkSize,
		Overlap:              cfg.Chunking.ChunkOverlap,
		BreakpointPercentile: float64(cfg.Chunking.SemanticBreakpointPercentile) / 100,
		Embedder:             embedder,
	}
	chunker := chunk.New(chunkCfg)

	retrievalEngine := retrieval.NewHybridEngine(vectors, keyword, embedder, nil, cfg.Retrieval, logger)

	generator := generate.NewEngine(provider)

	processor := ingest.NewProcessor(extractors, chunker, embedder, vectors, meta, keyword, queryCache, logger)

	chatOrch := chat.New(meta, queryCache, retrievalEngine, generator)

	return &Service{
		Config:     cfg,
		Logger:     logger,
		Meta:       meta,
		Vectors:    vectors,
		Keyword:    keyword,
		Cache:      queryCache,
		Embedder:   embedder,
		LLM:        provider,
		Extractors: extractors,
		Chunker:    chunker,
		Retrieval:  retrievalEngine,
		Generator:  generator,
		Processor:  processor,
		Chat:       chatOrch,
		Telemetry:  telemetry.Noop,
	}, nil
}

func buildEmbedder(ctx context.Context, cfg *config.Config) (embed.Embedder, error) {
	switch cfg.Embeddings.Provider {
	case "openai":
		embed.SetOpenAIConfig(embed.OpenAIConfig{APIKey: cfg.Embeddings.OpenAIKey, Model: cfg.Embeddings.Model, Timeout: cfg.Embeddings.Timeout})
		return embed.NewEmbedder(ctx, embed.ProviderOpenAI, cfg.Embeddings.Model)
	case "ollama", "mlx", "static":
		return embed.NewEmbedder(ctx, embed.ProviderType(cfg.Embeddings.Provider), cfg.Embeddings.Model)
	default:
		return nil, ragerr.ValidationError(fmt.Sprintf("unknown embeddings provider %q", cfg.Embeddings.Provider))
	}
}

func buildLLMProvider(cfg *config.Config) (llm.Provider, error) {
	switch cfg.Generation.Provider {
	case "anthropic":
		return llm.NewAnthropicProvider(cfg.Generation.APIKey, cfg.Generation.Model, cfg.Generation.Timeout), nil
	case "openai":
		return llm.NewOpenAIProvider(cfg.Generation.APIKey, cfg.Generation.Model, cfg.Generation.Timeout), nil
	default:
		return nil, ragerr.ValidationError(fmt.Sprintf("unknown generation provider %q", cfg.Generation.Provider))
	}
}

// snapshotPath returns the configured BM25 snapshot file's path.
func (s *Service) snapshotPath() string {
	return filepath.Join(s.Config.Store.DataDir, BM25SnapshotFile)
}

// vectorSnapshotPath returns the configured HNSW graph snapshot file's path.
func (s *Service) vectorSnapshotPath() string {
	return filepath.Join(s.Config.Store.DataDir, VectorSnapshotFile)
}

// SaveIndexes persists both the vector store and BM25 snapshots to
// disk. Ingest, reindex, and a clean shutdown all call this so a
// freshly started Service picks up where the last one left off instead
// of rebuilding from nothing.
func (s *Service) SaveIndexes() error {
	if err := s.Vectors.Save(s.vectorSnapshotPath()); err != nil {
		return fmt.Errorf("save vector snapshot: %w", err)
	}
	if err := s.Keyword.Save(s.snapshotPath()); err != nil {
		return fmt.Errorf("save bm25 snapshot: %w", err)
	}
	return nil
}

// LoadOrRebuildKeyword restores the BM25 index from its persisted
// snapshot when one exists, or rebuilds it from C4's scroll on a cold
// start with no snapshot yet.
func (s *Service) LoadOrRebuildKeyword(ctx context.Context) error {
	path := s.snapshotPath()
	if err := s.Keyword.Load(path); err != nil {
		s.Logger.Warn("bm25 snapshot load failed, rebuilding from vector store", slog.String("error", err.Error()))
	} else if s.Keyword.Ready() {
		s.Logger.Info("bm25 index restored from snapshot", slog.String("path", path))
		return nil
	}
	return s.RebuildKeyword(ctx)
}

// RebuildKeyword forces a full C5 rebuild from C4 and persists the
// resulting snapshot, backing the `reindex` CLI command.
func (s *Service) RebuildKeyword(ctx context.Context) error {
	if err := s.Keyword.Rebuild(ctx, s.Vectors, 500); err != nil {
		return fmt.Errorf("rebuild bm25 index: %w", err)
	}
	if err := s.Keyword.Save(s.snapshotPath()); err != nil {
		s.Logger.Warn("failed to persist bm25 snapshot", slog.String("error", err.Error()))
	}
	s.Logger.Info("bm25 index rebuilt", slog.Int("chunks", s.Vectors.Count()))
	return nil
}

// Close persists both indexes and releases every owned resource. A
// snapshot failure is logged, not returned: callers shutting down
// should still release the metadata store and vector index cleanly.
func (s *Service) Close() error {
	if err := s.SaveIndexes(); err != nil {
		s.Logger.Warn("failed to persist index snapshots on close", slog.String("error", err.Error()))
	}

	var firstErr error
	if err := s.Meta.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := s.Vectors.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
