package bm25

import (
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// gobSnapshot is the on-disk shape of a snapshot. Exported so
// encoding/gob can see the fields; chunkDoc's fields are unexported so
// it gets its own exported mirror too.
type gobSnapshot struct {
	Docs         map[string]gobChunkDoc
	Postings     map[string]map[string]bool
	TotalDocs    int
	AvgDocLength float64
}

type gobChunkDoc struct {
	Tokens  map[string]int
	Length  int
	Payload map[string]any
}

func init() {
	// Payload values are the concrete types internal/ingest stores
	// (see internal/vectorstore/payload.go's field list); gob needs
	// them registered to decode a map[string]any.
	gob.Register("")
	gob.Register(0)
	gob.Register([]string(nil))
}

// Save gob-encodes the current snapshot to path, guarded by an
// exclusive file lock so a concurrent Save from another process can't
// interleave writes.
func (idx *Index) Save(path string) error {
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("bm25: lock snapshot: %w", err)
	}
	defer lock.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("bm25: create snapshot dir: %w", err)
	}

	snap := idx.ptr.Load()
	out := gobSnapshot{
		Docs:         make(map[string]gobChunkDoc, len(snap.docs)),
		Postings:     snap.postings,
		TotalDocs:    snap.totalDocs,
		AvgDocLength: snap.avgDocLength,
	}
	for id, doc := range snap.docs {
		out.Docs[id] = gobChunkDoc{Tokens: doc.tokens, Length: doc.length, Payload: doc.payload}
	}

	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("bm25: create snapshot file: %w", err)
	}
	if err := gob.NewEncoder(f).Encode(out); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("bm25: encode snapshot: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("bm25: close snapshot file: %w", err)
	}
	return os.Rename(tmp, path)
}

// Load reads a snapshot written by Save and swaps it in atomically.
// A missing file is not an error: the index simply stays empty until
// the next Rebuild.
func (idx *Index) Load(path string) error {
	lock := flock.New(path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("bm25: lock snapshot: %w", err)
	}
	defer lock.Unlock()

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("bm25: open snapshot: %w", err)
	}
	defer f.Close()

	var in gobSnapshot
	if err := gob.NewDecoder(f).Decode(&in); err != nil {
		return fmt.Errorf("bm25: decode snapshot: %w", err)
	}

	next := &snapshot{
		docs:         make(map[string]*chunkDoc, len(in.Docs)),
		postings:     in.Postings,
		totalDocs:    in.TotalDocs,
		avgDocLength: in.AvgDocLength,
	}
	for id, doc := range in.Docs {
		next.docs[id] = &chunkDoc{tokens: doc.Tokens, length: doc.Length, payload: doc.Payload}
	}
	if next.postings == nil {
		next.postings = make(map[string]map[string]bool)
	}

	idx.ptr.Store(next)
	return nil
}
