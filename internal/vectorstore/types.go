// Package vectorstore is the typed adapter (C4) over an external
// approximate-nearest-neighbor store: upsert chunks with vectors and
// payload, delete by document id, filtered top-k similarity search,
// and scroll-all for C5's BM25 rebuild.
package vectorstore

import (
	"context"
	"time"
)

// Config configures the adapter's backing HNSW graph.
type Config struct {
	Dimensions     int
	Metric         string // "cos" or "l2"; default "cos"
	M              int
	EfConstruction int
	EfSearch       int

	// Timeout bounds a single Search or Upsert call (spec §5: "each
	// external call ... has a per-call timeout"). Zero disables it.
	Timeout time.Duration
}

// DefaultConfig returns sensible defaults matching the teacher's HNSW tuning.
func DefaultConfig(dimensions int) Config {
	return Config{
		Dimensions:     dimensions,
		Metric:         "cos",
		M:              16,
		EfConstruction: 128,
		EfSearch:       20,
		Timeout:        2 * time.Second,
	}
}

// Point is a chunk's vector plus its filterable payload, as upserted
// into the adapter.
type Point struct {
	ChunkID string
	Vector  []float32
	Payload map[string]any
}

// ScoredPoint is a Point returned from Search, with a similarity score
// in [0,1] (higher is more similar) alongside its raw distance.
type ScoredPoint struct {
	ChunkID  string
	Score    float32
	Distance float32
	Payload  map[string]any
}

// FilterOp is one of the four operators spec.md §6 requires the
// filter algebra to support.
type FilterOp string

const (
	FilterEquals   FilterOp = "equals"
	FilterInSet    FilterOp = "in_set"
	FilterRange    FilterOp = "range"
	FilterNotInSet FilterOp = "not_in_set"
)

// Condition is one clause of a filter. Conditions are combined by
// conjunction (AND).
type Condition struct {
	Field string
	Op    FilterOp

	// Equals
	Value any

	// InSet / NotInSet
	Values []any

	// Range (numeric, inclusive on both ends)
	Min, Max float64
}

// Filter is a conjunction of Conditions. A nil or empty Filter matches
// everything.
type Filter struct {
	Conditions []Condition
}

// Equals, InSet, Range, and NotInSet construct single-condition filters.
func Equals(field string, value any) Filter {
	return Filter{Conditions: []Condition{{Field: field, Op: FilterEquals, Value: value}}}
}

func InSet(field string, values ...any) Filter {
	return Filter{Conditions: []Condition{{Field: field, Op: FilterInSet, Values: values}}}
}

func NotInSet(field string, values ...any) Filter {
	return Filter{Conditions: []Condition{{Field: field, Op: FilterNotInSet, Values: values}}}
}

func Range(field string, min, max float64) Filter {
	return Filter{Conditions: []Condition{{Field: field, Op: FilterRange, Min: min, Max: max}}}
}

// And combines filters by conjunction.
func And(filters ...Filter) Filter {
	var combined Filter
	for _, f := range filters {
		combined.Conditions = append(combined.Conditions, f.Conditions...)
	}
	return combined
}

// Adapter is the C4 contract.
type Adapter interface {
	EnsureCollection(ctx context.Context, dim int) error
	Upsert(ctx context.Context, points []Point) error
	Search(ctx context.Context, queryVector []float32, k int, filter *Filter) ([]ScoredPoint, error)
	DeleteByDocID(ctx context.Context, docID string) error
	Scroll(ctx context.Context, batchSize int, fn func(batch []Point) error) error
	Health(ctx context.Context) error
	Count() int
	Close() error

	// Save and Load persist and restore the adapter's state across
	// process restarts. Load on a path that does not exist yet is not
	// an error: the adapter simply stays empty.
	Save(path string) error
	Load(path string) error
}
