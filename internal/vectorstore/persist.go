package vectorstore

import (
	"encoding/gob"
	"os"
	"path/filepath"

	"github.com/coder/hnsw"
	"github.com/gofrs/flock"

	"github.com/ZacharyN/org-archivist-sub001/internal/ragerr"
)

// gobState is the on-disk shape of an adapter's state: the graph
// itself is rebuilt from the stored vectors on Load rather than using
// coder/hnsw's own Export/Import (the teacher's internal/store/hnsw.go
// uses Export/Import, but ours also needs to persist the payload map
// Export/Import doesn't carry, so one gob file covers both).
type gobState struct {
	IDMap    map[string]uint64
	NextKey  uint64
	Payloads map[string]map[string]any
	Vectors  map[string][]float32
	ByDoc    map[string]map[string]bool
	Cfg      Config
}

func init() {
	gob.Register("")
	gob.Register(0)
	gob.Register([]string(nil))
}

// Save gob-encodes the adapter's vectors, payloads, and id mappings to
// path, guarded by an exclusive file lock (mirrors bm25.Index.Save's
// convention so both on-disk stores this module owns use the same
// atomic-write-then-rename + flock shape).
func (a *hnswAdapter) Save(path string) error {
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return ragerr.DependencyUnavailableError("lock vector snapshot", err)
	}
	defer lock.Unlock()

	a.mu.RLock()
	state := gobState{
		IDMap:    a.idMap,
		NextKey:  a.nextKey,
		Payloads: a.payloads,
		Vectors:  a.vectors,
		ByDoc:    a.byDoc,
		Cfg:      a.cfg,
	}
	a.mu.RUnlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return ragerr.DependencyUnavailableError("create vector snapshot dir", err)
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return ragerr.DependencyUnavailableError("create vector snapshot file", err)
	}
	if err := gob.NewEncoder(f).Encode(state); err != nil {
		f.Close()
		os.Remove(tmp)
		return ragerr.InternalError("encode vector snapshot", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return ragerr.DependencyUnavailableError("close vector snapshot file", err)
	}
	return os.Rename(tmp, path)
}

// Load restores state written by Save, rebuilding the HNSW graph node
// by node from the persisted (already-normalized) vectors. A missing
// file is not an error: the adapter stays empty until the next Upsert.
// Load assumes it runs against a freshly constructed, empty adapter
// (service.Build's order: New, EnsureCollection, Load, before any
// Upsert); calling it on an adapter that already holds data mixes the
// two generations of graph nodes rather than replacing them.
func (a *hnswAdapter) Load(path string) error {
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return ragerr.DependencyUnavailableError("lock vector snapshot", err)
	}
	defer lock.Unlock()

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return ragerr.DependencyUnavailableError("open vector snapshot", err)
	}
	defer f.Close()

	var state gobState
	if err := gob.NewDecoder(f).Decode(&state); err != nil {
		return ragerr.InternalError("decode vector snapshot", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	a.idMap = state.IDMap
	a.nextKey = state.NextKey
	a.payloads = state.Payloads
	a.vectors = state.Vectors
	a.byDoc = state.ByDoc
	if a.cfg.Dimensions == 0 {
		a.cfg.Dimensions = state.Cfg.Dimensions
	}

	a.keyMap = make(map[uint64]string, len(a.idMap))
	for id, key := range a.idMap {
		a.keyMap[key] = id
		if vec, ok := a.vectors[id]; ok {
			a.graph.Add(hnsw.MakeNode(key, vec))
		}
	}
	return nil
}
