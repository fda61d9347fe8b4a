// Package retrieval is the hybrid retrieval engine (C7): query
// normalization, parallel dense+sparse search, weighted fusion, recency
// decay, diversification, and optional reranking.
package retrieval

import (
	"context"

	"github.com/ZacharyN/org-archivist-sub001/internal/metadata"
	"github.com/ZacharyN/org-archivist-sub001/internal/vectorstore"
)

// Candidate is a chunk emitted toward the generator, carrying its fused
// score and the debug metadata the pipeline accumulates at each stage.
type Candidate struct {
	ChunkID    string
	DocID      string
	ChunkIndex int
	Text       string
	Score      float64
	DocType    metadata.DocType
	Year       int
	Filename   string

	// Debug fields, populated as the pipeline runs.
	VectorScore   float64
	KeywordScore  float64
	OriginalScore float64
	Reranked      bool
	RerankModel   string
}

// Request is the full parameter set for one retrieval call.
type Request struct {
	Query         string
	TopK          int
	Filter        *vectorstore.Filter
	RecencyWeight float64
}

// Reranker is the optional cross-encoder capability (spec §4.7i).
// Failures degrade to the un-reranked list; they never fail the request.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []Candidate) ([]Candidate, error)
	Name() string
	Available(ctx context.Context) bool
}

// Engine is the C7 contract: retrieve(query, top_k, filters?, recency_weight?).
type Engine interface {
	Retrieve(ctx context.Context, req Request) ([]Candidate, error)
}
