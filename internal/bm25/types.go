// Package bm25 is the in-process keyword index (C5): a hand-rolled
// BM25 scorer over the same chunk corpus as the vector index,
// rebuilt from C4's scroll on cold start and after writes.
package bm25

import "github.com/ZacharyN/org-archivist-sub001/internal/vectorstore"

// Config tunes the BM25 formula. Defaults are the standard prose
// tuning (k1=1.5, b=0.75), not a code-search tuning (k1=1.2).
type Config struct {
	K1 float64
	B  float64
}

// DefaultConfig returns the standard BM25 parameters.
func DefaultConfig() Config {
	return Config{K1: 1.5, B: 0.75}
}

// Result is one scored match.
type Result struct {
	ChunkID string
	Score   float64
	Payload map[string]any
}

// chunkDoc is what the index retains per chunk after tokenization.
type chunkDoc struct {
	tokens  map[string]int // term -> frequency within this chunk
	length  int            // token count
	payload map[string]any
}

// snapshot is an immutable BM25 structure swapped in atomically by Rebuild.
type snapshot struct {
	docs         map[string]*chunkDoc
	postings     map[string]map[string]bool // term -> set of chunk ids containing it
	totalDocs    int
	avgDocLength float64
}

func emptySnapshot() *snapshot {
	return &snapshot{docs: map[string]*chunkDoc{}, postings: map[string]map[string]bool{}}
}

// textPayloadField is the payload key vectorstore.Point carries the
// chunk's raw text under, so C5's rebuild can tokenize it without a
// second read from the metadata store.
const textPayloadField = vectorstore.PayloadText
