package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatcher_DebouncesRapidWritesIntoOneCall(t *testing.T) {
	dir := t.TempDir()

	var mu sync.Mutex
	var calls []string
	handled := make(chan struct{}, 1)

	w, err := New(Options{DebounceWindow: 50 * time.Millisecond}, nil, func(_ context.Context, path string) error {
		mu.Lock()
		calls = append(calls, path)
		mu.Unlock()
		handled <- struct{}{}
		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = w.Run(ctx, dir) }()

	target := filepath.Join(dir, "grant.txt")
	for i := 0; i < 3; i++ {
		require.NoError(t, os.WriteFile(target, []byte("draft"), 0o644))
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-handled:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for debounced handler call")
	}

	// Give any spurious extra calls a moment to arrive, then assert
	// exactly one was coalesced out of the three rapid writes.
	time.Sleep(200 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, calls, 1)
	assert.Equal(t, target, calls[0])
}

func TestWatcher_IgnoresDirectoryEventsWithoutHandlerCall(t *testing.T) {
	dir := t.TempDir()

	called := make(chan struct{}, 1)
	w, err := New(Options{DebounceWindow: 20 * time.Millisecond}, nil, func(_ context.Context, path string) error {
		called <- struct{}{}
		return nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() { _ = w.Run(ctx, dir) }()

	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))

	select {
	case <-called:
		t.Fatal("handler should not fire for a bare mkdir with no file write")
	case <-time.After(300 * time.Millisecond):
	}
}
