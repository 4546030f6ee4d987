package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"trackstrip/internal/logging"
)

type handled struct {
	mu    sync.Mutex
	paths []string
	ch    chan string
}

func (h *handled) handle(_ context.Context, path string) []string {
	h.mu.Lock()
	h.paths = append(h.paths, path)
	h.mu.Unlock()
	h.ch <- path
	return []string{path}
}

func startWatcher(t *testing.T, root string, h *handled) {
	t.Helper()
	w, err := New(Options{
		Root:       root,
		Extensions: []string{".mkv", ".m2ts"},
		SkipDirs:   []string{"@eaDir"},
		Settle:     50 * time.Millisecond,
		Handler:    h.handle,
		Logger:     logging.NewNop(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	select {
	case <-w.Ready():
	case err := <-done:
		t.Fatalf("Run exited early: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not become ready")
	}
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func waitHandled(t *testing.T, h *handled) string {
	t.Helper()
	select {
	case path := <-h.ch:
		return path
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for handler")
		return ""
	}
}

func TestNewValidates(t *testing.T) {
	if _, err := New(Options{Handler: func(context.Context, string) []string { return nil }}); err == nil {
		t.Fatal("expected error without root")
	}
	if _, err := New(Options{Root: t.TempDir()}); err == nil {
		t.Fatal("expected error without handler")
	}
}

func TestWatcherDispatchesSettledFiles(t *testing.T) {
	root := t.TempDir()
	h := &handled{ch: make(chan string, 8)}
	startWatcher(t, root, h)

	target := filepath.Join(root, "film.mkv")
	if err := os.WriteFile(target, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := waitHandled(t, h); got != target {
		t.Fatalf("handled %q, want %q", got, target)
	}
}

func TestWatcherFollowsNewDirectories(t *testing.T) {
	root := t.TempDir()
	h := &handled{ch: make(chan string, 8)}
	startWatcher(t, root, h)

	dir := filepath.Join(root, "Show", "Season 1")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	// Give the watcher a moment to register the new directories.
	time.Sleep(100 * time.Millisecond)
	target := filepath.Join(dir, "episode.m2ts")
	if err := os.WriteFile(target, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := waitHandled(t, h); got != target {
		t.Fatalf("handled %q, want %q", got, target)
	}
}

func TestWatcherIgnoresUnwantedFiles(t *testing.T) {
	root := t.TempDir()
	h := &handled{ch: make(chan string, 8)}
	startWatcher(t, root, h)

	for _, name := range []string{"notes.txt", ".hidden.mkv", ".trackstrip-film.mkv.tmp"} {
		if err := os.WriteFile(filepath.Join(root, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	wanted := filepath.Join(root, "wanted.mkv")
	if err := os.WriteFile(wanted, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if got := waitHandled(t, h); got != wanted {
		t.Fatalf("handled %q, want %q", got, wanted)
	}
	select {
	case extra := <-h.ch:
		t.Fatalf("unexpected extra dispatch %q", extra)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcherCanRunAgainAfterStop(t *testing.T) {
	w, err := New(Options{
		Root:    t.TempDir(),
		Handler: func(context.Context, string) []string { return nil },
		Logger:  logging.NewNop(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i := 0; i < 2; i++ {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := w.Run(ctx); err != nil {
			t.Fatalf("run %d returned error: %v", i, err)
		}
	}
	select {
	case <-w.Ready():
	default:
		t.Fatal("expected Ready to be closed after the first run")
	}
}
