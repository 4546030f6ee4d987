package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"trackstrip/internal/config"
	"trackstrip/internal/converter"
	"trackstrip/internal/history"
	"trackstrip/internal/library"
	"trackstrip/internal/logging"
	"trackstrip/internal/mkvmerge"
	"trackstrip/internal/preflight"
	"trackstrip/internal/runlock"
	"trackstrip/internal/stripper"
)

// exclusionFlags override the configured policy for one invocation.
type exclusionFlags struct {
	languages        string
	removeCommentary bool
	removeSubtitles  bool
}

func (f *exclusionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.languages, "languages", "", "Comma-separated languages to remove (overrides config and LANGUAGES)")
	cmd.Flags().BoolVar(&f.removeCommentary, "remove-commentary", false, "Remove commentary audio tracks")
	cmd.Flags().BoolVar(&f.removeSubtitles, "remove-subtitles", true, "Remove subtitles in removed languages")
}

func (f *exclusionFlags) apply(cmd *cobra.Command, s *session) {
	if cmd.Flags().Changed("languages") {
		var langs []string
		for _, part := range strings.Split(f.languages, ",") {
			if trimmed := strings.ToLower(strings.TrimSpace(part)); trimmed != "" {
				langs = append(langs, trimmed)
			}
		}
		s.cfg.Exclusion.Languages = langs
	}
	if cmd.Flags().Changed("remove-commentary") {
		s.cfg.Exclusion.RemoveCommentary = f.removeCommentary
	}
	if cmd.Flags().Changed("remove-subtitles") {
		s.cfg.Exclusion.RemoveSubtitles = f.removeSubtitles
	}
}

// applyRoot lets a positional argument replace library.root.
func applyRoot(s *session, args []string) error {
	if len(args) == 0 {
		return nil
	}
	root := strings.TrimSpace(args[0])
	if root == "" {
		return errors.New("library root argument is empty")
	}
	expanded, err := config.ExpandPath(root)
	if err != nil {
		return err
	}
	s.cfg.Library.Root = expanded
	return nil
}

func (s *session) newMKVMerge() *mkvmerge.Client {
	return mkvmerge.New(mkvmerge.Options{
		Binary:          s.cfg.MKVMerge.Binary,
		IdentifyTimeout: s.cfg.IdentifyTimeout(),
		RemuxTimeout:    s.cfg.RemuxTimeout(),
	}, s.logger)
}

// runPreflight refuses to continue when a required check fails.
func (s *session) runPreflight(mkv preflight.Versioner) error {
	results := preflight.RunAll(s.ctx, s.cfg, mkv)
	var failed []string
	for _, r := range results {
		if r.Passed {
			continue
		}
		if r.Optional {
			logging.WarnWithContext(s.logger, "preflight warning", "preflight_warning",
				logging.String("check", r.Name),
				logging.String("detail", r.Detail),
			)
			continue
		}
		failed = append(failed, r.Name+": "+r.Detail)
	}
	if len(failed) > 0 {
		return fmt.Errorf("preflight failed: %s", strings.Join(failed, "; "))
	}
	return nil
}

func (s *session) acquireLock() (*runlock.Lock, error) {
	lock, err := runlock.Acquire(s.cfg.LockPath(s.cfg.Library.Root))
	if err != nil {
		return nil, err
	}
	s.logger.Debug("library lock acquired", logging.String("lock", lock.Path()))
	return lock, nil
}

// openHistory returns nil when history is disabled or not wanted.
func (s *session) openHistory(want bool) (*history.Store, error) {
	if !want || !s.cfg.History.Enabled {
		return nil, nil
	}
	store, err := history.Open(s.cfg.History.Path, s.logger)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	return store, nil
}

func (s *session) newStripper(mkv *mkvmerge.Client, store *history.Store, dryRun bool, extra ...stripper.Observer) (*stripper.Stripper, error) {
	observers := stripper.MultiObserver{stripper.NewLogObserver(s.logger)}
	opts := stripper.Options{
		Exclusion: s.cfg.ExclusionConfig(),
		Inspector: mkv,
		Filterer:  mkv,
		DryRun:    dryRun,
		Logger:    s.logger,
	}
	if store != nil {
		observers = append(observers, store)
		if s.cfg.History.SkipUnchanged {
			opts.Skipper = store
		}
	}
	opts.Observer = append(observers, extra...)
	return stripper.New(opts)
}

func (s *session) newConverter(mkv *mkvmerge.Client, store *history.Store) (*converter.Converter, error) {
	observers := stripper.MultiObserver{stripper.NewLogObserver(s.logger)}
	if store != nil {
		observers = append(observers, store)
	}
	return converter.New(converter.Options{
		SourceExtensions: s.cfg.Convert.SourceExtensions,
		Remuxer:          mkv,
		Observer:         observers,
		Logger:           s.logger,
	})
}

// discover lists files under the library root with the given extensions.
// Unreadable entries are logged and skipped.
func (s *session) discover(exts []string) ([]string, error) {
	files, err := library.Discover(s.cfg.Library.Root, library.Options{
		Extensions: exts,
		SkipDirs:   s.cfg.Library.SkipDirs,
		OnError: func(path string, err error) {
			logging.WarnWithContext(s.logger, "skipping unreadable path", "discover_error",
				logging.String(logging.FieldFile, path),
				logging.Error(err),
				logging.String(logging.FieldImpact, "path not processed this run"),
			)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("discover media: %w", err)
	}
	return files, nil
}

// cleanStaleTemps removes temp files left by an interrupted run.
func (s *session) cleanStaleTemps() {
	removed, err := library.RemoveStaleTemps(s.cfg.Library.Root)
	if err != nil {
		s.logger.Warn("stale temp cleanup failed", logging.Error(err))
	}
	for _, path := range removed {
		s.logger.Info("removed stale temp file", logging.String(logging.FieldFile, path))
	}
}
