package chunk

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestSentenceChunker_RespectsBoundaries(t *testing.T) {
	text := "First sentence here. Second sentence follows. Third one closes it out."
	c := NewSentenceChunker(Config{ChunkSize: 1000, Overlap: 0})
	chunks, err := c.Chunk(context.Background(), "doc1", text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected a single chunk for short text, got %d", len(chunks))
	}
	if !strings.Contains(chunks[0].Text, "Third one closes it out.") {
		t.Errorf("chunk missing trailing sentence: %q", chunks[0].Text)
	}
}

func TestSentenceChunker_SplitsOnBudget(t *testing.T) {
	sentence := "This is a sentence of moderate length that repeats some words. "
	text := strings.Repeat(sentence, 40)
	c := NewSentenceChunker(Config{ChunkSize: 100, Overlap: 10})
	chunks, err := c.Chunk(context.Background(), "doc1", text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for _, ch := range chunks {
		if !strings.HasSuffix(strings.TrimSpace(ch.Text), ".") {
			t.Errorf("chunk does not end on a sentence boundary: %q", ch.Text)
		}
	}
}

func TestSentenceChunker_OversizedSentenceHardSplits(t *testing.T) {
	huge := strings.Repeat("word ", 2000) + "."
	c := NewSentenceChunker(Config{ChunkSize: 50, Overlap: 5})
	chunks, err := c.Chunk(context.Background(), "doc1", huge)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected the oversized sentence to be hard-split, got %d chunks", len(chunks))
	}
}

func TestTokenChunker_FixedWindows(t *testing.T) {
	text := strings.Repeat("token ", 500)
	c := NewTokenChunker(Config{ChunkSize: 100, Overlap: 20})
	chunks, err := c.Chunk(context.Background(), "doc1", text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple windows, got %d", len(chunks))
	}
}

type stubEmbedder struct {
	vectors [][]float32
	err     error
}

func (s *stubEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.vectors, nil
}

func TestSemanticChunker_FallsBackWithoutEmbedder(t *testing.T) {
	text := "One sentence. Another sentence. A third sentence follows."
	c := NewSemanticChunker(Config{ChunkSize: 1000})
	chunks, err := c.Chunk(context.Background(), "doc1", text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) == 0 {
		t.Fatal("expected fallback chunking to produce chunks")
	}
}

func TestSemanticChunker_FallsBackOnEmbeddingError(t *testing.T) {
	text := "One sentence. Another sentence. A third sentence follows."
	c := NewSemanticChunker(Config{ChunkSize: 1000, Embedder: &stubEmbedder{err: errors.New("provider down")}})
	chunks, err := c.Chunk(context.Background(), "doc1", text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) == 0 {
		t.Fatal("expected fallback chunking to produce chunks")
	}
}

func TestSemanticChunker_SplitsAtDivergence(t *testing.T) {
	text := "Sentence A one. Sentence A two. Sentence B one. Sentence B two."
	vectors := [][]float32{
		{1, 0, 0},
		{0.99, 0.01, 0},
		{0, 1, 0},
		{0, 0.99, 0.01},
	}
	c := NewSemanticChunker(Config{ChunkSize: 1000, BreakpointPercentile: 0.5, Embedder: &stubEmbedder{vectors: vectors}})
	chunks, err := c.Chunk(context.Background(), "doc1", text)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected semantic divergence to produce multiple chunks, got %d", len(chunks))
	}
}

func TestFallbackChunk_FixedWindowWithOverlap(t *testing.T) {
	text := strings.Repeat("x", 2500)
	chunks := FallbackChunk("doc1", text)
	if len(chunks) == 0 {
		t.Fatal("expected fallback chunks")
	}
	for _, c := range chunks {
		if c.CharCount > FallbackChunkSize {
			t.Errorf("fallback chunk exceeds window size: %d", c.CharCount)
		}
	}
}

func TestSafeChunk_RecoversFromPanic(t *testing.T) {
	panicker := panicChunker{}
	text := "some document text that needs chunking regardless of strategy failures."
	chunks, usedFallback := SafeChunk(context.Background(), panicker, "doc1", text)
	if !usedFallback {
		t.Error("expected SafeChunk to report fallback usage")
	}
	if len(chunks) == 0 {
		t.Error("expected fallback chunks to be produced")
	}
}

type panicChunker struct{}

func (panicChunker) Chunk(_ context.Context, _, _ string) ([]*Chunk, error) {
	panic("boom")
}

func TestSafeChunk_EmptyTextProducesNoChunks(t *testing.T) {
	chunks, usedFallback := SafeChunk(context.Background(), NewSentenceChunker(DefaultConfig()), "doc1", "")
	if usedFallback {
		t.Error("empty input should not be treated as a fallback case")
	}
	if len(chunks) != 0 {
		t.Errorf("expected no chunks for empty text, got %d", len(chunks))
	}
}
