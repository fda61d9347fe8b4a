package chunk

import (
	"context"
	"math"
	"sort"
)

// SemanticChunker groups sentences by embedding similarity: it splits
// at points where consecutive sentences diverge most, rather than at a
// fixed size. If no Embedder is configured, or embedding fails, it
// degrades to SentenceChunker so ingestion never blocks on an
// unavailable embedding provider.
type SemanticChunker struct {
	cfg      Config
	fallback *SentenceChunker
}

// NewSemanticChunker creates a semantic-similarity chunker.
func NewSemanticChunker(cfg Config) *SemanticChunker {
	if cfg.BreakpointPercentile <= 0 || cfg.BreakpointPercentile >= 1 {
		cfg.BreakpointPercentile = 0.95
	}
	return &SemanticChunker{cfg: cfg, fallback: NewSentenceChunker(cfg)}
}

func (c *SemanticChunker) Chunk(ctx context.Context, documentID, text string) ([]*Chunk, error) {
	if c.cfg.Embedder == nil {
		return c.fallback.Chunk(ctx, documentID, text)
	}

	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil, nil
	}
	if len(sentences) == 1 {
		return []*Chunk{newChunk(documentID, 0, sentences[0])}, nil
	}

	embeddings, err := c.cfg.Embedder.EmbedBatch(ctx, sentences)
	if err != nil || len(embeddings) != len(sentences) {
		return c.fallback.Chunk(ctx, documentID, text)
	}

	distances := make([]float64, len(sentences)-1)
	for i := 0; i < len(sentences)-1; i++ {
		distances[i] = 1 - cosineSimilarity(embeddings[i], embeddings[i+1])
	}
	threshold := percentile(distances, c.cfg.BreakpointPercentile)

	var chunks []*Chunk
	var group []string
	groupTokens := 0
	index := 0

	flush := func() {
		if len(group) == 0 {
			return
		}
		body := joinSentences(group)
		chunks = append(chunks, newChunk(documentID, index, body))
		chunks[len(chunks)-1].Metadata["chunking_strategy"] = string(StrategySemantic)
		index++
	}

	for i, s := range sentences {
		group = append(group, s)
		groupTokens += estimateTokens(s)

		atBreakpoint := i < len(distances) && distances[i] >= threshold
		overBudget := groupTokens >= c.cfg.ChunkSize

		if atBreakpoint || overBudget {
			flush()
			group = nil
			groupTokens = 0
		}
	}
	flush()

	return chunks, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// percentile returns the value at p (0..1) of a sorted copy of values,
// using linear interpolation between ranks.
func percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := p * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo]
	}
	frac := rank - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
