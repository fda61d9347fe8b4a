package bm25

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/ZacharyN/org-archivist-sub001/internal/vectorstore"
)

// Index is the in-process keyword index. It holds an atomically
// swapped snapshot so that a Rebuild in flight never exposes a
// partially built structure to concurrent Search calls: readers see
// either the previous snapshot or the new one, never a mix.
type Index struct {
	cfg Config
	ptr atomic.Pointer[snapshot]
}

// New returns an empty Index. Search returns no results until Rebuild
// has completed at least once.
func New(cfg Config) *Index {
	idx := &Index{cfg: cfg}
	idx.ptr.Store(emptySnapshot())
	return idx
}

// Rebuild scrolls the vector adapter in batches, tokenizes each
// chunk's stored text, and builds a new snapshot. The snapshot is
// swapped in atomically only after the full scroll succeeds; on error
// the previous snapshot remains live.
func (idx *Index) Rebuild(ctx context.Context, adapter vectorstore.Adapter, batchSize int) error {
	next := &snapshot{
		docs:     make(map[string]*chunkDoc),
		postings: make(map[string]map[string]bool),
	}

	var totalLength int

	err := adapter.Scroll(ctx, batchSize, func(batch []vectorstore.Point) error {
		for _, p := range batch {
			text, _ := stringPayload(p.Payload, textPayloadField)
			tokens := Tokenize(text)
			if len(tokens) == 0 {
				continue
			}

			doc := &chunkDoc{
				tokens:  make(map[string]int, len(tokens)),
				length:  len(tokens),
				payload: p.Payload,
			}
			for _, tok := range tokens {
				doc.tokens[tok]++
			}

			next.docs[p.ChunkID] = doc
			totalLength += doc.length

			for tok := range doc.tokens {
				if next.postings[tok] == nil {
					next.postings[tok] = make(map[string]bool)
				}
				next.postings[tok][p.ChunkID] = true
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	next.totalDocs = len(next.docs)
	if next.totalDocs > 0 {
		next.avgDocLength = float64(totalLength) / float64(next.totalDocs)
	}

	idx.ptr.Store(next)
	return nil
}

// Search scores the current snapshot against query using BM25. An
// empty or whitespace-only query returns zero results without
// invoking the scorer.
func (idx *Index) Search(_ context.Context, query string, k int, filter *vectorstore.Filter) ([]Result, error) {
	if strings.TrimSpace(query) == "" || k <= 0 {
		return nil, nil
	}

	terms := Tokenize(query)
	if len(terms) == 0 {
		return nil, nil
	}

	snap := idx.ptr.Load()
	if snap.totalDocs == 0 {
		return nil, nil
	}

	scores := make(map[string]float64)
	for _, term := range uniqueTerms(terms) {
		chunkIDs, ok := snap.postings[term]
		if !ok {
			continue
		}
		idf := inverseDocFreq(snap.totalDocs, len(chunkIDs))
		for chunkID := range chunkIDs {
			doc := snap.docs[chunkID]
			freq := float64(doc.tokens[term])
			scores[chunkID] += idf * termScore(freq, doc.length, snap.avgDocLength, idx.cfg)
		}
	}

	results := make([]Result, 0, len(scores))
	for chunkID, score := range scores {
		doc := snap.docs[chunkID]
		if !vectorstore.Matches(doc.payload, filter) {
			continue
		}
		results = append(results, Result{ChunkID: chunkID, Score: score, Payload: doc.payload})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ChunkID < results[j].ChunkID
	})

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Ready reports whether Rebuild has populated the index at least once.
func (idx *Index) Ready() bool {
	return idx.ptr.Load().totalDocs > 0
}

func inverseDocFreq(totalDocs, docFreq int) float64 {
	return math.Log(1 + (float64(totalDocs)-float64(docFreq)+0.5)/(float64(docFreq)+0.5))
}

func termScore(freq float64, docLength int, avgDocLength float64, cfg Config) float64 {
	numerator := freq * (cfg.K1 + 1)
	denominator := freq + cfg.K1*(1-cfg.B+cfg.B*float64(docLength)/avgDocLength)
	return numerator / denominator
}

func uniqueTerms(terms []string) []string {
	seen := make(map[string]bool, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

func stringPayload(payload map[string]any, field string) (string, bool) {
	v, ok := payload[field]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
