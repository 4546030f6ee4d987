package stripper

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/dustin/go-humanize"

	"trackstrip/internal/language"
	"trackstrip/internal/logging"
	"trackstrip/internal/track"
)

// LogObserver writes one log line per event.
type LogObserver struct {
	logger *slog.Logger
}

// NewLogObserver returns an Observer that logs through logger.
func NewLogObserver(logger *slog.Logger) *LogObserver {
	return &LogObserver{logger: logging.NewComponentLogger(logger, "stripper")}
}

// Observe implements Observer.
func (o *LogObserver) Observe(ctx context.Context, ev Event) {
	logger := logging.WithContext(ctx, o.logger)
	file := logging.String(logging.FieldFile, ev.Path)
	progress := logging.String("progress", progressLabel(ev.Index, ev.Total))

	switch ev.Type {
	case EventRunStarted:
		logger.Info("run started", logging.Int("files", ev.Total))
	case EventFilePlanned:
		logger.Info("tracks to remove", progress, file,
			logging.Strings("audio_ids", ev.Decision.AudioIDs),
			logging.Strings("subtitle_ids", ev.Decision.SubtitleIDs),
			logging.String("languages", describeTracks(ev.Removed)),
		)
	case EventFileSkipped:
		if ev.Reason == ReasonNoChanges {
			logger.Debug("no changes needed", progress, file)
			return
		}
		logger.Info("file skipped", progress, file, logging.String(logging.FieldReason, ev.Reason))
	case EventFileStarted:
		logger.Debug("rewriting file", progress, file, logging.String("size", humanize.IBytes(uint64(ev.SizeBefore))))
	case EventTracksRemoved:
		logger.Info("tracks removed", file,
			logging.Int("count", ev.Decision.Count()),
			logging.String("languages", describeTracks(ev.Removed)),
		)
	case EventFileCompleted:
		logger.Info("file completed", progress, file,
			logging.String("size_before", humanize.IBytes(uint64(ev.SizeBefore))),
			logging.String("size_after", humanize.IBytes(uint64(ev.SizeAfter))),
			logging.Duration("elapsed", ev.Duration),
		)
	case EventFileFailed:
		logging.WarnWithContext(logger, "file left unchanged", failureEventType(ev.Err),
			progress, file,
			logging.Error(ev.Err),
			logging.String(logging.FieldErrorHint, failureHint(ev.Err)),
			logging.String(logging.FieldImpact, "original file untouched; continuing with next file"),
		)
	case EventFileConverted:
		logger.Info("file converted", progress, file,
			logging.String("target", ev.Target),
			logging.String("size", humanize.IBytes(uint64(ev.SizeAfter))),
			logging.Duration("elapsed", ev.Duration),
		)
	case EventRunCompleted:
		if ev.Stats == nil {
			return
		}
		logger.Info("run completed", SummaryAttrs(ev.Stats)...)
	}
}

// SummaryAttrs renders stats as log arguments.
func SummaryAttrs(stats *Stats) []any {
	attrs := []logging.Attr{
		logging.Int("total", stats.Total),
		logging.Int("changed", stats.Changed),
		logging.Int("unchanged", stats.Unchanged),
		logging.Int("skipped", stats.Skipped),
		logging.Int("failed", stats.Failed),
		logging.Int("audio_removed", stats.AudioRemoved),
		logging.Int("subtitles_removed", stats.SubtitlesRemoved),
		logging.Duration("elapsed", stats.Elapsed),
	}
	if stats.DryRun {
		attrs = append(attrs, logging.Int("planned", stats.Planned), logging.Bool("dry_run", true))
	}
	if saved := stats.SpaceSaved(); saved > 0 {
		attrs = append(attrs, logging.String("space_saved", humanize.IBytes(uint64(saved))))
	}
	return logging.Args(attrs...)
}

func progressLabel(index, total int) string {
	if total == 0 {
		return "-"
	}
	return humanize.Comma(int64(index)) + "/" + humanize.Comma(int64(total))
}

// describeTracks renders "audio:French, subtitles:French" style summaries.
func describeTracks(tracks []track.Track) string {
	if len(tracks) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(tracks))
	for _, t := range tracks {
		label := t.Kind.String() + ":" + language.DisplayName(t.Language)
		if t.IsCommentary() {
			label += " (commentary)"
		}
		parts = append(parts, label)
	}
	return strings.Join(parts, ", ")
}

func failureEventType(err error) string {
	switch {
	case errors.Is(err, ErrStalePlan):
		return "stale_plan"
	case errors.Is(err, ErrInsufficientSpace):
		return "insufficient_space"
	case errors.Is(err, ErrVerifyFailed):
		return "verify_failed"
	case errors.Is(err, ErrUnsupportedContainer):
		return "unsupported_container"
	case errors.Is(err, track.ErrMalformedInput), errors.Is(err, track.ErrNoTracks):
		return "malformed_identification"
	default:
		return "file_failed"
	}
}

func failureHint(err error) string {
	switch {
	case errors.Is(err, ErrStalePlan):
		return "file changed during the run; it will be re-planned next run"
	case errors.Is(err, ErrInsufficientSpace):
		return "free space on the library volume"
	case errors.Is(err, ErrVerifyFailed):
		return "inspect the file with mkvmerge -J"
	case errors.Is(err, ErrUnsupportedContainer):
		return "convert the file to Matroska first"
	default:
		return "check mkvmerge output in the error"
	}
}
