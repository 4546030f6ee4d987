package history

import (
	"context"

	"trackstrip/internal/logging"
	"trackstrip/internal/stripper"
)

// Observe records settled and failed files. Write errors are logged; they
// never interrupt the run.
func (s *Store) Observe(ctx context.Context, ev stripper.Event) {
	entry, ok := entryFromEvent(ev)
	if !ok {
		return
	}
	if err := s.Record(ctx, entry); err != nil {
		logging.WarnWithContext(s.logger, "history write failed", "history_write_failed",
			logging.String(logging.FieldFile, ev.Path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "file will be inspected again next run"),
		)
	}
}

func entryFromEvent(ev stripper.Event) (Entry, bool) {
	entry := Entry{
		Path:        ev.Path,
		Fingerprint: ev.Fingerprint,
		RunID:       ev.RunID,
		ModTimeNS:   ev.ModTime.UnixNano(),
	}
	if !ev.Time.IsZero() {
		entry.RecordedAtNS = ev.Time.UnixNano()
	}
	switch ev.Type {
	case stripper.EventFileCompleted:
		entry.Outcome = OutcomeCompleted
		entry.Size = ev.SizeAfter
		entry.SizeBefore = ev.SizeBefore
		entry.AudioRemoved = joinIDs(ev.Decision.AudioIDs)
		entry.SubtitlesRemoved = joinIDs(ev.Decision.SubtitleIDs)
	case stripper.EventFileSkipped:
		if ev.Reason != stripper.ReasonNoChanges {
			return Entry{}, false
		}
		entry.Outcome = OutcomeUnchanged
		entry.Size = ev.SizeBefore
		entry.SizeBefore = ev.SizeBefore
	case stripper.EventFileFailed:
		entry.Outcome = OutcomeFailed
		entry.ModTimeNS = 0
		if ev.Err != nil {
			entry.Error = ev.Err.Error()
		}
	default:
		return Entry{}, false
	}
	return entry, true
}

var (
	_ stripper.Observer = (*Store)(nil)
	_ stripper.Skipper  = (*Store)(nil)
)
