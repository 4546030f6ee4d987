// Package watch runs trackstrip continuously, processing media files once
// they stop changing.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"trackstrip/internal/library"
	"trackstrip/internal/logging"
)

// Handler processes one settled file and returns every path it wrote or
// removed, so their own events do not retrigger processing.
type Handler func(ctx context.Context, path string) []string

// Options configures a Watcher. Root and Handler are required.
type Options struct {
	Root       string
	Extensions []string
	SkipDirs   []string
	Settle     time.Duration
	Handler    Handler
	Logger     *slog.Logger
}

// Watcher dispatches settled files to a handler from a single goroutine.
type Watcher struct {
	root     string
	exts     []string
	skipDirs []string
	settle   time.Duration
	tick     time.Duration
	handler  Handler
	logger   *slog.Logger
	now      func() time.Time

	ready     chan struct{}
	readyOnce sync.Once
}

// New validates opts and returns a Watcher.
func New(opts Options) (*Watcher, error) {
	if strings.TrimSpace(opts.Root) == "" {
		return nil, errors.New("watch: root is required")
	}
	if opts.Handler == nil {
		return nil, errors.New("watch: handler is required")
	}
	settle := opts.Settle
	if settle <= 0 {
		settle = time.Second
	}
	tick := settle / 4
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	if tick > time.Second {
		tick = time.Second
	}
	return &Watcher{
		root:     opts.Root,
		exts:     opts.Extensions,
		skipDirs: opts.SkipDirs,
		settle:   settle,
		tick:     tick,
		handler:  opts.Handler,
		logger:   logging.NewComponentLogger(opts.Logger, "watch"),
		now:      time.Now,
		ready:    make(chan struct{}),
	}, nil
}

// Ready is closed once the initial directory tree is watched by the first Run.
func (w *Watcher) Ready() <-chan struct{} {
	return w.ready
}

// Run watches until ctx is cancelled. It returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fw.Close()

	count, err := w.addTree(fw, w.root)
	if err != nil {
		return err
	}
	w.logger.Info("watching library",
		logging.String("root", w.root),
		logging.Int("directories", count),
		logging.Duration("settle", w.settle),
	)
	w.readyOnce.Do(func() { close(w.ready) })

	pending := newDebouncer(w.settle)
	ticker := time.NewTicker(w.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if n := pending.size(); n > 0 {
				w.logger.Info("watch stopped with pending files", logging.Int("pending", n))
			}
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(fw, pending, event)

		case <-ticker.C:
			for _, path := range pending.due(w.now()) {
				if ctx.Err() != nil {
					return nil
				}
				if _, err := os.Stat(path); err != nil {
					continue
				}
				touched := w.handler(ctx, path)
				now := w.now()
				pending.suppress(path, now)
				for _, p := range touched {
					pending.suppress(p, now)
				}
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logging.WarnWithContext(w.logger, "watcher error", "watch_error",
				logging.Error(err),
				logging.String(logging.FieldImpact, "some file events may be missed until the next full run"),
			)
		}
	}
}

func (w *Watcher) handleEvent(fw *fsnotify.Watcher, pending *debouncer, event fsnotify.Event) {
	path := event.Name
	if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
		pending.forget(path)
		return
	}
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}
	info, err := os.Stat(path)
	if err != nil {
		return
	}
	if info.IsDir() {
		if !event.Has(fsnotify.Create) || w.ignoredDir(filepath.Base(path)) {
			return
		}
		if _, err := w.addTree(fw, path); err != nil {
			w.logger.Warn("watch new directory failed", logging.String("dir", path), logging.Error(err))
		}
		// Files moved in with the directory produce no events of their own.
		files, _ := library.Discover(path, library.Options{Extensions: w.exts, SkipDirs: w.skipDirs})
		for _, f := range files {
			pending.touch(f, w.now())
		}
		return
	}
	if !w.wanted(path) {
		return
	}
	if pending.touch(path, w.now()) {
		w.logger.Debug("file activity", logging.String(logging.FieldFile, path), logging.String("op", event.Op.String()))
	}
}

func (w *Watcher) wanted(path string) bool {
	name := filepath.Base(path)
	if strings.HasPrefix(name, ".") || library.IsTempFile(path) {
		return false
	}
	return library.HasExtension(path, w.exts)
}

func (w *Watcher) ignoredDir(name string) bool {
	if strings.HasPrefix(name, ".") {
		return true
	}
	for _, s := range w.skipDirs {
		if strings.EqualFold(name, s) {
			return true
		}
	}
	return false
}

// addTree watches dir and every non-skipped directory below it.
func (w *Watcher) addTree(fw *fsnotify.Watcher, dir string) (int, error) {
	count := 0
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			w.logger.Debug("skipping unreadable path", logging.String("path", path), logging.Error(err))
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != dir && w.ignoredDir(d.Name()) {
			return filepath.SkipDir
		}
		if err := fw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		count++
		return nil
	})
	return count, err
}
