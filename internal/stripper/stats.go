package stripper

import "time"

// Stats tracks aggregate counters and byte totals across a run.
type Stats struct {
	Total            int
	Checked          int // identified and decided
	Planned          int // needed changes
	Changed          int
	Unchanged        int
	Skipped          int // skipped without inspection
	Failed           int
	AudioRemoved     int
	SubtitlesRemoved int
	BytesBefore      int64
	BytesAfter       int64
	Elapsed          time.Duration
	DryRun           bool
}

// SpaceSaved returns the aggregate byte difference between inputs and outputs.
func (s *Stats) SpaceSaved() int64 {
	return s.BytesBefore - s.BytesAfter
}

// HasFailures reports whether any file failed.
func (s *Stats) HasFailures() bool {
	return s.Failed > 0
}
