package stripper

import (
	"context"
	"os"

	"trackstrip/internal/logging"
)

// Run plans every file, then applies the plans that remove something.
// Cancellation stops between files; the partial stats are returned.
func (s *Stripper) Run(ctx context.Context, files []string) Stats {
	start := s.now()
	stats := Stats{Total: len(files), DryRun: s.dryRun}
	s.emit(ctx, Event{Type: EventRunStarted, Total: len(files)})

	plans := s.planAll(ctx, files, &stats)
	if !s.dryRun {
		s.applyAll(ctx, plans, &stats)
	}

	stats.Elapsed = s.now().Sub(start)
	s.emit(ctx, Event{Type: EventRunCompleted, Total: len(files), Duration: stats.Elapsed, Stats: &stats})
	return stats
}

type indexedPlan struct {
	index int
	plan  Plan
}

func (s *Stripper) planAll(ctx context.Context, files []string, stats *Stats) []indexedPlan {
	var plans []indexedPlan
	for i, path := range files {
		if ctx.Err() != nil {
			s.logger.Warn("run interrupted during planning", logging.Int("remaining", len(files)-i))
			break
		}
		base := Event{Path: path, Index: i + 1, Total: len(files), Fingerprint: s.fingerprint}

		if s.skipUnchanged(ctx, path) {
			stats.Skipped++
			ev := base
			ev.Type = EventFileSkipped
			ev.Reason = ReasonUnchanged
			s.emit(ctx, ev)
			continue
		}

		plan, err := s.Plan(ctx, path)
		if err != nil {
			stats.Failed++
			ev := base
			ev.Type = EventFileFailed
			ev.Err = err
			s.emit(ctx, ev)
			continue
		}
		stats.Checked++

		if plan.Empty() {
			stats.Unchanged++
			ev := base
			ev.Type = EventFileSkipped
			ev.Reason = ReasonNoChanges
			ev.SizeBefore = plan.Size
			ev.SizeAfter = plan.Size
			ev.ModTime = plan.ModTime
			s.emit(ctx, ev)
			continue
		}

		stats.Planned++
		ev := base
		ev.Type = EventFilePlanned
		ev.Decision = plan.Decision
		ev.Removed = plan.Removed()
		ev.SizeBefore = plan.Size
		s.emit(ctx, ev)
		plans = append(plans, indexedPlan{index: i + 1, plan: plan})
	}
	return plans
}

func (s *Stripper) applyAll(ctx context.Context, plans []indexedPlan, stats *Stats) {
	for i, p := range plans {
		if ctx.Err() != nil {
			s.logger.Warn("run interrupted before apply", logging.Int("remaining", len(plans)-i))
			return
		}
		base := Event{Path: p.plan.Path, Index: p.index, Total: stats.Total, Fingerprint: s.fingerprint}

		ev := base
		ev.Type = EventFileStarted
		ev.Decision = p.plan.Decision
		ev.SizeBefore = p.plan.Size
		s.emit(ctx, ev)

		result, err := s.Apply(ctx, p.plan)
		if err != nil {
			stats.Failed++
			ev := base
			ev.Type = EventFileFailed
			ev.Decision = p.plan.Decision
			ev.Err = err
			s.emit(ctx, ev)
			continue
		}

		stats.Changed++
		stats.AudioRemoved += len(result.Decision.AudioIDs)
		stats.SubtitlesRemoved += len(result.Decision.SubtitleIDs)
		stats.BytesBefore += result.SizeBefore
		stats.BytesAfter += result.SizeAfter

		ev = base
		ev.Type = EventTracksRemoved
		ev.Decision = result.Decision
		ev.Removed = result.Removed
		s.emit(ctx, ev)

		ev = base
		ev.Type = EventFileCompleted
		ev.Decision = result.Decision
		ev.SizeBefore = result.SizeBefore
		ev.SizeAfter = result.SizeAfter
		ev.ModTime = result.ModTime
		ev.Duration = result.Duration
		s.emit(ctx, ev)
	}
}

// skipUnchanged consults the Skipper. Lookup errors are logged and the file is
// processed normally.
func (s *Stripper) skipUnchanged(ctx context.Context, path string) bool {
	if s.skipper == nil {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	unchanged, err := s.skipper.Unchanged(ctx, path, info.Size(), info.ModTime(), s.fingerprint)
	if err != nil {
		logging.WarnWithContext(s.logger, "history lookup failed", "history_lookup_failed",
			logging.String(logging.FieldFile, path),
			logging.Error(err),
			logging.String(logging.FieldImpact, "file is inspected again"),
		)
		return false
	}
	return unchanged
}

func (s *Stripper) emit(ctx context.Context, ev Event) {
	if ev.Time.IsZero() {
		ev.Time = s.now()
	}
	if ev.RunID == "" {
		ev.RunID, _ = logging.RunIDFromContext(ctx)
	}
	s.observer.Observe(ctx, ev)
}

// RunOne plans and applies a single file, reporting through the observer
// exactly as Run would for a one-file list.
func (s *Stripper) RunOne(ctx context.Context, path string) Stats {
	return s.Run(ctx, []string{path})
}

