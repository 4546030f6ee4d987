package watch

import (
	"sort"
	"time"
)

// debouncer tracks paths until they have been quiet for settle.
type debouncer struct {
	settle     time.Duration
	pending    map[string]time.Time // last activity
	suppressed map[string]time.Time // ignore activity until
}

func newDebouncer(settle time.Duration) *debouncer {
	return &debouncer{
		settle:     settle,
		pending:    make(map[string]time.Time),
		suppressed: make(map[string]time.Time),
	}
}

// touch records activity on path. It returns false when path is suppressed.
func (d *debouncer) touch(path string, now time.Time) bool {
	if until, ok := d.suppressed[path]; ok {
		if now.Before(until) {
			return false
		}
		delete(d.suppressed, path)
	}
	d.pending[path] = now
	return true
}

// forget drops path from the pending set.
func (d *debouncer) forget(path string) {
	delete(d.pending, path)
}

// suppress ignores activity on path for one settle window from now.
func (d *debouncer) suppress(path string, now time.Time) {
	d.suppressed[path] = now.Add(d.settle)
	delete(d.pending, path)
}

// due removes and returns the settled paths, sorted.
func (d *debouncer) due(now time.Time) []string {
	var ready []string
	for path, last := range d.pending {
		if now.Sub(last) >= d.settle {
			ready = append(ready, path)
		}
	}
	for _, path := range ready {
		delete(d.pending, path)
	}
	for path, until := range d.suppressed {
		if !now.Before(until) {
			delete(d.suppressed, path)
		}
	}
	sort.Strings(ready)
	return ready
}

// size returns the number of pending paths.
func (d *debouncer) size() int {
	return len(d.pending)
}
