package vectorstore

import (
	"context"
	"path/filepath"
	"testing"
)

func pt(id string, vec []float32, payload map[string]any) Point {
	return Point{ChunkID: id, Vector: vec, Payload: payload}
}

func TestAdapter_UpsertAndSearch(t *testing.T) {
	a := New(DefaultConfig(3))
	ctx := context.Background()

	err := a.Upsert(ctx, []Point{
		pt("c1", []float32{1, 0, 0}, map[string]any{"doc_id": "d1"}),
		pt("c2", []float32{0, 1, 0}, map[string]any{"doc_id": "d2"}),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Count() != 2 {
		t.Fatalf("expected 2 points, got %d", a.Count())
	}

	results, err := a.Search(ctx, []float32{1, 0, 0}, 2, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected at least one result")
	}
	if results[0].ChunkID != "c1" {
		t.Errorf("expected c1 to be the closest match, got %s", results[0].ChunkID)
	}
}

func TestAdapter_SearchWithFilter(t *testing.T) {
	a := New(DefaultConfig(2))
	ctx := context.Background()

	_ = a.Upsert(ctx, []Point{
		pt("c1", []float32{1, 0}, map[string]any{"doc_id": "d1", "year": 2020}),
		pt("c2", []float32{0.99, 0.01}, map[string]any{"doc_id": "d2", "year": 2024}),
	})

	f := Range("year", 2023, 2025)
	results, err := a.Search(ctx, []float32{1, 0}, 2, &f)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, r := range results {
		if r.ChunkID == "c1" {
			t.Error("expected the year filter to exclude c1")
		}
	}
}

func TestAdapter_DeleteByDocID(t *testing.T) {
	a := New(DefaultConfig(2))
	ctx := context.Background()

	_ = a.Upsert(ctx, []Point{
		pt("c1", []float32{1, 0}, map[string]any{"doc_id": "d1"}),
		pt("c2", []float32{0, 1}, map[string]any{"doc_id": "d1"}),
		pt("c3", []float32{1, 1}, map[string]any{"doc_id": "d2"}),
	})

	if err := a.DeleteByDocID(ctx, "d1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Count() != 1 {
		t.Fatalf("expected 1 remaining point, got %d", a.Count())
	}
}

func TestAdapter_Scroll(t *testing.T) {
	a := New(DefaultConfig(2))
	ctx := context.Background()

	_ = a.Upsert(ctx, []Point{
		pt("c1", []float32{1, 0}, map[string]any{"doc_id": "d1"}),
		pt("c2", []float32{0, 1}, map[string]any{"doc_id": "d2"}),
		pt("c3", []float32{1, 1}, map[string]any{"doc_id": "d3"}),
	})

	seen := 0
	err := a.Scroll(ctx, 2, func(batch []Point) error {
		seen += len(batch)
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if seen != 3 {
		t.Errorf("expected to scroll all 3 points, saw %d", seen)
	}
}

func TestAdapter_DimensionMismatchRejected(t *testing.T) {
	a := New(DefaultConfig(3))
	err := a.Upsert(context.Background(), []Point{pt("c1", []float32{1, 0}, nil)})
	if err == nil {
		t.Fatal("expected an error for a vector of the wrong dimension")
	}
}

func TestAdapter_HealthAfterClose(t *testing.T) {
	a := New(DefaultConfig(2))
	if err := a.Health(context.Background()); err != nil {
		t.Fatalf("expected healthy adapter, got %v", err)
	}
	_ = a.Close()
	if err := a.Health(context.Background()); err == nil {
		t.Fatal("expected an error after close")
	}
}

func TestFilter_Equals(t *testing.T) {
	f := Equals("doc_type", "grant_proposal")
	if !Matches(map[string]any{"doc_type": "grant_proposal"}, &f) {
		t.Error("expected match")
	}
	if Matches(map[string]any{"doc_type": "other"}, &f) {
		t.Error("expected no match")
	}
}

func TestFilter_NotInSet(t *testing.T) {
	f := NotInSet("year", 2019)
	if !Matches(map[string]any{"year": 2024}, &f) {
		t.Error("expected match for a year not in the excluded set")
	}
	if Matches(map[string]any{"year": 2019}, &f) {
		t.Error("expected no match for an excluded year")
	}
}

func TestAdapter_SaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	a := New(DefaultConfig(3))

	err := a.Upsert(ctx, []Point{
		pt("c1", []float32{1, 0, 0}, map[string]any{"doc_id": "d1", "year": 2023}),
		pt("c2", []float32{0, 1, 0}, map[string]any{"doc_id": "d2", "year": 2024}),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	path := filepath.Join(t.TempDir(), "vectors.gob")
	if err := a.Save(path); err != nil {
		t.Fatalf("save: %v", err)
	}

	restored := New(DefaultConfig(3))
	if err := restored.Load(path); err != nil {
		t.Fatalf("load: %v", err)
	}

	if restored.Count() != a.Count() {
		t.Fatalf("expected %d points after load, got %d", a.Count(), restored.Count())
	}

	results, err := restored.Search(ctx, []float32{1, 0, 0}, 1, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 || results[0].ChunkID != "c1" {
		t.Fatalf("expected c1 as the closest match after reload, got %+v", results)
	}
}

func TestAdapter_LoadMissingFileIsNotAnError(t *testing.T) {
	a := New(DefaultConfig(2))
	path := filepath.Join(t.TempDir(), "does-not-exist.gob")
	if err := a.Load(path); err != nil {
		t.Fatalf("expected no error loading a missing snapshot, got %v", err)
	}
	if a.Count() != 0 {
		t.Fatalf("expected an empty adapter, got %d points", a.Count())
	}
}
