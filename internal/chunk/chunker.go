package chunk

import (
	"context"
	"strings"
)

// New builds the Chunker for cfg.Strategy. Callers should use the
// returned Chunker's Chunk method through SafeChunk (or replicate its
// recover behavior) so a strategy panic degrades to FallbackChunk
// instead of propagating to the ingest pipeline.
func New(cfg Config) Chunker {
	switch cfg.Strategy {
	case StrategyToken:
		return NewTokenChunker(cfg)
	case StrategySemantic:
		return NewSemanticChunker(cfg)
	case StrategySentence, "":
		return NewSentenceChunker(cfg)
	default:
		return NewSentenceChunker(cfg)
	}
}

// SafeChunk runs chunker against text, recovering from any panic or
// error and falling back to the deterministic character-window split.
// Mirrors the original service's chunk_text/except fallback path: a
// strategy failure never blocks ingestion.
func SafeChunk(ctx context.Context, chunker Chunker, documentID, text string) (chunks []*Chunk, usedFallback bool) {
	defer func() {
		if r := recover(); r != nil {
			chunks = FallbackChunk(documentID, text)
			usedFallback = true
		}
	}()

	if strings.TrimSpace(text) == "" {
		return nil, false
	}

	result, err := chunker.Chunk(ctx, documentID, text)
	if err != nil || len(result) == 0 {
		return FallbackChunk(documentID, text), true
	}
	return result, false
}
