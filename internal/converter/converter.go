// Package converter remuxes non-Matroska sources (.m2ts, .mp4) into .mkv so
// the stripper can process them.
package converter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"trackstrip/internal/library"
	"trackstrip/internal/logging"
	"trackstrip/internal/stripper"
)

// ErrTargetExists means a Matroska file already sits at the conversion target.
var ErrTargetExists = errors.New("conversion target already exists")

// Remuxer rewrites a source into a Matroska container keeping every track.
type Remuxer interface {
	Remux(ctx context.Context, source, output string) error
}

// Options configures a Converter. Remuxer is required.
type Options struct {
	SourceExtensions []string
	Remuxer          Remuxer
	Observer         stripper.Observer
	Logger           *slog.Logger
}

// Converter turns source files into sibling .mkv files and removes the source.
type Converter struct {
	exts     []string
	remuxer  Remuxer
	observer stripper.Observer
	logger   *slog.Logger
	now      func() time.Time
}

// Stats summarizes a conversion pass.
type Stats struct {
	Total     int
	Converted int
	Skipped   int
	Failed    int
	Outputs   []string
}

// New validates opts and returns a Converter.
func New(opts Options) (*Converter, error) {
	if opts.Remuxer == nil {
		return nil, errors.New("converter: remuxer is required")
	}
	c := &Converter{
		exts:     opts.SourceExtensions,
		remuxer:  opts.Remuxer,
		observer: opts.Observer,
		logger:   logging.NewComponentLogger(opts.Logger, "converter"),
		now:      time.Now,
	}
	if c.observer == nil {
		c.observer = stripper.MultiObserver(nil)
	}
	return c, nil
}

// Extensions returns the configured source extensions.
func (c *Converter) Extensions() []string {
	return c.exts
}

// Matches reports whether path has a convertible extension.
func (c *Converter) Matches(path string) bool {
	return library.HasExtension(path, c.exts)
}

// TargetPath returns the .mkv path a source converts to.
func TargetPath(source string) string {
	return strings.TrimSuffix(source, filepath.Ext(source)) + ".mkv"
}

// Convert remuxes source into TargetPath(source) via a hidden temp file, then
// removes source. An existing target is never overwritten.
func (c *Converter) Convert(ctx context.Context, source string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	target := TargetPath(source)
	if _, err := os.Lstat(target); err == nil {
		return target, fmt.Errorf("%w: %s", ErrTargetExists, target)
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("stat target: %w", err)
	}
	info, err := os.Stat(source)
	if err != nil {
		return "", fmt.Errorf("stat source: %w", err)
	}

	tmp := library.TempPath(target)
	_ = os.Remove(tmp)
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmp)
		}
	}()

	if err := c.remuxer.Remux(ctx, source, tmp); err != nil {
		return "", err
	}
	out, err := os.Stat(tmp)
	if err != nil {
		return "", fmt.Errorf("stat remux output: %w", err)
	}
	if out.Size() == 0 {
		return "", errors.New("remux output is empty")
	}
	if err := os.Chmod(tmp, info.Mode().Perm()); err != nil {
		c.logger.Debug("preserve file mode failed", logging.String(logging.FieldFile, source), logging.Error(err))
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	// A target that appeared while remuxing wins.
	if _, err := os.Lstat(target); err == nil {
		return target, fmt.Errorf("%w: %s", ErrTargetExists, target)
	}
	if err := os.Rename(tmp, target); err != nil {
		return "", fmt.Errorf("move converted file: %w", err)
	}
	committed = true

	if err := os.Remove(source); err != nil {
		logging.WarnWithContext(c.logger, "source removal failed", "convert_source_remove_failed",
			logging.String(logging.FieldFile, source),
			logging.Error(err),
			logging.String(logging.FieldImpact, "source and converted copy both remain"),
		)
	}
	return target, nil
}

// Run converts every matching file in files, reporting through the observer.
// Per-file failures are counted and never stop the pass.
func (c *Converter) Run(ctx context.Context, files []string) Stats {
	var sources []string
	for _, path := range files {
		if c.Matches(path) {
			sources = append(sources, path)
		}
	}
	stats := Stats{Total: len(sources)}
	for i, source := range sources {
		if ctx.Err() != nil {
			c.logger.Warn("conversion interrupted", logging.Int("remaining", len(sources)-i))
			break
		}
		start := c.now()
		base := stripper.Event{Path: source, Index: i + 1, Total: len(sources)}
		if info, err := os.Stat(source); err == nil {
			base.SizeBefore = info.Size()
		}

		target, err := c.Convert(ctx, source)
		switch {
		case errors.Is(err, ErrTargetExists):
			stats.Skipped++
			ev := base
			ev.Type = stripper.EventFileSkipped
			ev.Reason = stripper.ReasonTargetExists
			ev.Target = target
			c.emit(ctx, ev)
		case err != nil:
			stats.Failed++
			ev := base
			ev.Type = stripper.EventFileFailed
			ev.Err = fmt.Errorf("convert: %w", err)
			c.emit(ctx, ev)
		default:
			stats.Converted++
			stats.Outputs = append(stats.Outputs, target)
			ev := base
			ev.Type = stripper.EventFileConverted
			ev.Target = target
			if info, statErr := os.Stat(target); statErr == nil {
				ev.SizeAfter = info.Size()
				ev.ModTime = info.ModTime()
			}
			ev.Duration = c.now().Sub(start)
			c.emit(ctx, ev)
		}
	}
	return stats
}

func (c *Converter) emit(ctx context.Context, ev stripper.Event) {
	ev.Time = c.now()
	ev.RunID, _ = logging.RunIDFromContext(ctx)
	c.observer.Observe(ctx, ev)
}
