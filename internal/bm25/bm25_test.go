package bm25

import (
	"context"
	"testing"

	"github.com/ZacharyN/org-archivist-sub001/internal/vectorstore"
)

func TestTokenize_LowercasesAndSplits(t *testing.T) {
	got := Tokenize("Grant-Proposal_2024, FY24!")
	want := []string{"grant", "proposal", "2024", "fy24"}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestTokenize_DiscardsEmpty(t *testing.T) {
	got := Tokenize("   ...   ")
	if len(got) != 0 {
		t.Errorf("expected no tokens, got %v", got)
	}
}

func TestTokenize_KeepsNumericTokens(t *testing.T) {
	got := Tokenize("fiscal year 2024 report")
	found := false
	for _, tok := range got {
		if tok == "2024" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected numeric token 2024 to survive, got %v", got)
	}
}

func scrollAdapter(points []vectorstore.Point) vectorstore.Adapter {
	a := vectorstore.New(vectorstore.DefaultConfig(2))
	vecs := make([]vectorstore.Point, len(points))
	copy(vecs, points)
	_ = a.Upsert(context.Background(), vecs)
	return a
}

func TestIndex_RebuildThenSearch(t *testing.T) {
	a := scrollAdapter([]vectorstore.Point{
		{ChunkID: "c1", Vector: []float32{1, 0}, Payload: map[string]any{"text": "the grant proposal covers youth programs", "doc_id": "d1"}},
		{ChunkID: "c2", Vector: []float32{0, 1}, Payload: map[string]any{"text": "annual report on funding outcomes", "doc_id": "d2"}},
	})

	idx := New(DefaultConfig())
	if err := idx.Rebuild(context.Background(), a, 500); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !idx.Ready() {
		t.Fatal("expected index to be ready after rebuild")
	}

	results, err := idx.Search(context.Background(), "grant proposal", 5, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) == 0 || results[0].ChunkID != "c1" {
		t.Errorf("expected c1 to rank first, got %+v", results)
	}
}

func TestIndex_EmptyQueryShortCircuits(t *testing.T) {
	idx := New(DefaultConfig())
	results, err := idx.Search(context.Background(), "   ", 5, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if results != nil {
		t.Errorf("expected nil results for an empty query, got %+v", results)
	}
}

func TestIndex_SearchBeforeRebuildReturnsNothing(t *testing.T) {
	idx := New(DefaultConfig())
	results, err := idx.Search(context.Background(), "grant", 5, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results before any rebuild, got %+v", results)
	}
}

func TestIndex_FilterAppliedToResults(t *testing.T) {
	a := scrollAdapter([]vectorstore.Point{
		{ChunkID: "c1", Vector: []float32{1, 0}, Payload: map[string]any{"text": "grant proposal for youth programs", "doc_id": "d1", "year": 2019}},
		{ChunkID: "c2", Vector: []float32{0, 1}, Payload: map[string]any{"text": "grant proposal renewal", "doc_id": "d2", "year": 2024}},
	})

	idx := New(DefaultConfig())
	if err := idx.Rebuild(context.Background(), a, 500); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f := vectorstore.Range("year", 2023, 2025)
	results, err := idx.Search(context.Background(), "grant proposal", 5, &f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, r := range results {
		if r.ChunkID == "c1" {
			t.Error("expected the year filter to exclude c1")
		}
	}
}

func TestIndex_RebuildPreservesPreviousSnapshotOnError(t *testing.T) {
	a := scrollAdapter([]vectorstore.Point{
		{ChunkID: "c1", Vector: []float32{1, 0}, Payload: map[string]any{"text": "grant proposal", "doc_id": "d1"}},
	})

	idx := New(DefaultConfig())
	if err := idx.Rebuild(context.Background(), a, 500); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := idx.Rebuild(ctx, a, 500); err == nil {
		t.Fatal("expected cancelled rebuild to error")
	}

	results, err := idx.Search(context.Background(), "grant proposal", 5, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) == 0 {
		t.Error("expected the previous snapshot to remain searchable after a failed rebuild")
	}
}

func TestIndex_SaveLoadRoundTrip(t *testing.T) {
	a := scrollAdapter([]vectorstore.Point{
		{ChunkID: "c1", Vector: []float32{1, 0}, Payload: map[string]any{"text": "grant proposal for youth programs", "doc_id": "d1", "year": 2023, "programs": []string{"Education"}}},
		{ChunkID: "c2", Vector: []float32{0, 1}, Payload: map[string]any{"text": "annual report on funding outcomes", "doc_id": "d2", "year": 2021}},
	})

	idx := New(DefaultConfig())
	if err := idx.Rebuild(context.Background(), a, 500); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	path := t.TempDir() + "/snapshot.gob"
	if err := idx.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	reloaded := New(DefaultConfig())
	if err := reloaded.Load(path); err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reloaded.Ready() {
		t.Fatal("expected reloaded index to be ready without a rebuild")
	}

	results, err := reloaded.Search(context.Background(), "grant proposal", 5, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) == 0 || results[0].ChunkID != "c1" {
		t.Errorf("expected c1 to rank first after reload, got %+v", results)
	}
}

func TestIndex_LoadMissingFileIsNotAnError(t *testing.T) {
	idx := New(DefaultConfig())
	if err := idx.Load(t.TempDir() + "/does-not-exist.gob"); err != nil {
		t.Fatalf("expected missing snapshot file to be a no-op, got %v", err)
	}
	if idx.Ready() {
		t.Error("expected index to remain empty after loading a missing file")
	}
}
