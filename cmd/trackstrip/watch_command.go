package main

import (
	"context"

	"github.com/spf13/cobra"

	"trackstrip/internal/converter"
	"trackstrip/internal/library"
	"trackstrip/internal/logging"
	"trackstrip/internal/stripper"
	"trackstrip/internal/watch"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	var flags exclusionFlags
	var initial bool

	cmd := &cobra.Command{
		Use:   "watch [root]",
		Short: "Process new and changed files as they settle",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := ctx.newSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()
			flags.apply(cmd, s)
			if err := applyRoot(s, args); err != nil {
				return err
			}

			mkv := s.newMKVMerge()
			if err := s.runPreflight(mkv); err != nil {
				return err
			}
			lock, err := s.acquireLock()
			if err != nil {
				return err
			}
			defer lock.Release()
			s.cleanStaleTemps()

			store, err := s.openHistory(true)
			if err != nil {
				return err
			}
			if store != nil {
				defer store.Close()
			}
			strip, err := s.newStripper(mkv, store, false)
			if err != nil {
				return err
			}
			var conv *converter.Converter
			exts := append([]string(nil), s.cfg.Library.Extensions...)
			if s.cfg.Convert.Enabled {
				if conv, err = s.newConverter(mkv, store); err != nil {
					return err
				}
				exts = append(exts, s.cfg.Convert.SourceExtensions...)
			}

			if initial {
				files, err := s.discover(s.cfg.Library.Extensions)
				if err != nil {
					return err
				}
				strip.Run(s.ctx, files)
			}

			w, err := watch.New(watch.Options{
				Root:       s.cfg.Library.Root,
				Extensions: exts,
				SkipDirs:   s.cfg.Library.SkipDirs,
				Settle:     s.cfg.SettleDelay(),
				Handler:    newWatchHandler(s, strip, conv),
				Logger:     s.logger,
			})
			if err != nil {
				return err
			}
			return w.Run(s.ctx)
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&initial, "initial-scan", false, "Process the whole library once before watching")
	return cmd
}

// newWatchHandler converts a settled source when applicable, then strips the
// resulting Matroska file.
func newWatchHandler(s *session, strip *stripper.Stripper, conv *converter.Converter) watch.Handler {
	return func(ctx context.Context, path string) []string {
		touched := []string{path}
		target := path
		if conv != nil && conv.Matches(path) {
			stats := conv.Run(ctx, []string{path})
			if stats.Converted == 0 {
				return touched
			}
			target = stats.Outputs[0]
			touched = append(touched, target)
		}
		if !library.HasExtension(target, s.cfg.Library.Extensions) {
			s.logger.Debug("ignoring settled file", logging.String(logging.FieldFile, target))
			return touched
		}
		strip.RunOne(ctx, target)
		return touched
	}
}
