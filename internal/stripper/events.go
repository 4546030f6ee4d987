package stripper

import (
	"context"
	"time"

	"trackstrip/internal/exclusion"
	"trackstrip/internal/track"
)

// EventType names an orchestrator event.
type EventType string

const (
	EventRunStarted    EventType = "run_started"
	EventRunCompleted  EventType = "run_completed"
	EventFilePlanned   EventType = "file_planned"
	EventFileStarted   EventType = "file_started"
	EventFileSkipped   EventType = "file_skipped"
	EventTracksRemoved EventType = "tracks_removed"
	EventFileCompleted EventType = "file_completed"
	EventFileFailed    EventType = "file_failed"
	EventFileConverted EventType = "file_converted"
)

// Skip reasons carried on EventFileSkipped.
const (
	ReasonNoChanges    = "no_changes"
	ReasonUnchanged    = "unchanged_since_last_check"
	ReasonTargetExists = "target_exists"
)

// Event describes one step of a run. Fields not relevant to Type are zero.
type Event struct {
	Type        EventType
	Time        time.Time
	RunID       string
	Path        string
	Target      string // converted output, for file_converted
	Index       int // 1-based position within the run
	Total       int
	Reason      string
	Decision    exclusion.Decision
	Removed     []track.Track // tracks dropped, for tracks_removed
	Fingerprint string
	SizeBefore  int64
	SizeAfter   int64
	ModTime     time.Time // file mtime after the event
	Duration    time.Duration
	Err         error
	Stats       *Stats // run_completed only
}

// Observer receives events. Implementations must not retain the event's slices.
type Observer interface {
	Observe(ctx context.Context, ev Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, ev Event)

// Observe calls f.
func (f ObserverFunc) Observe(ctx context.Context, ev Event) { f(ctx, ev) }

// MultiObserver fans events out in order.
type MultiObserver []Observer

// Observe forwards ev to each non-nil observer.
func (m MultiObserver) Observe(ctx context.Context, ev Event) {
	for _, o := range m {
		if o != nil {
			o.Observe(ctx, ev)
		}
	}
}

type nopObserver struct{}

func (nopObserver) Observe(context.Context, Event) {}
