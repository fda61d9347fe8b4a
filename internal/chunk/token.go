package chunk

import (
	"context"
	"strings"
)

// TokenChunker splits text into fixed-size windows measured in
// (approximate) tokens, breaking on whitespace boundaries rather than
// mid-word, with a configurable overlap. It ignores sentence and
// paragraph structure entirely, unlike SentenceChunker.
type TokenChunker struct {
	cfg Config
}

// NewTokenChunker creates a fixed-token chunker.
func NewTokenChunker(cfg Config) *TokenChunker {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.Overlap < 0 || cfg.Overlap >= cfg.ChunkSize {
		cfg.Overlap = DefaultOverlap
	}
	return &TokenChunker{cfg: cfg}
}

func (c *TokenChunker) Chunk(_ context.Context, documentID, text string) ([]*Chunk, error) {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil, nil
	}

	// Approximate tokens-per-word as 1.3 (English prose average);
	// convert the token budget to a word budget for splitting.
	wordBudget := int(float64(c.cfg.ChunkSize) / 1.3)
	if wordBudget < 1 {
		wordBudget = 1
	}
	overlapWords := int(float64(c.cfg.Overlap) / 1.3)

	var chunks []*Chunk
	index := 0
	start := 0
	for start < len(words) {
		end := start + wordBudget
		if end > len(words) {
			end = len(words)
		}
		body := strings.Join(words[start:end], " ")
		chunks = append(chunks, &Chunk{
			ID:         generateChunkID(documentID, index, body),
			DocumentID: documentID,
			Text:       body,
			ChunkIndex: index,
			CharCount:  len(body),
			WordCount:  end - start,
			Metadata:   map[string]string{"chunking_strategy": string(StrategyToken)},
		})
		index++
		if end == len(words) {
			break
		}
		start = end - overlapWords
		if start < 0 {
			start = 0
		}
	}
	return chunks, nil
}
