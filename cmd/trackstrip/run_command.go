package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"trackstrip/internal/converter"
	"trackstrip/internal/language"
	"trackstrip/internal/stripper"
	"trackstrip/internal/track"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var flags exclusionFlags
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "run [root]",
		Short: "Strip excluded tracks from every file in the library",
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

			if !dryRun {
				lock, err := s.acquireLock()
				if err != nil {
					return err
				}
				defer lock.Release()
				s.cleanStaleTemps()
			}

			store, err := s.openHistory(!dryRun)
			if err != nil {
				return err
			}
			if store != nil {
				defer store.Close()
			}

			var convStats *converter.Stats
			if s.cfg.Convert.Enabled && !dryRun {
				conv, err := s.newConverter(mkv, store)
				if err != nil {
					return err
				}
				sources, err := s.discover(s.cfg.Convert.SourceExtensions)
				if err != nil {
					return err
				}
				result := conv.Run(s.ctx, sources)
				convStats = &result
			}

			files, err := s.discover(s.cfg.Library.Extensions)
			if err != nil {
				return err
			}
			strip, err := s.newStripper(mkv, store, dryRun)
			if err != nil {
				return err
			}
			stats := strip.Run(s.ctx, files)

			out := cmd.OutOrStdout()
			if convStats != nil && convStats.Total > 0 {
				fmt.Fprintf(out, "Converted %d of %d source files (%d skipped, %d failed)\n",
					convStats.Converted, convStats.Total, convStats.Skipped, convStats.Failed)
			}
			printStats(out, stats)

			if err := s.ctx.Err(); err != nil {
				return err
			}
			failed := stats.Failed
			if convStats != nil {
				failed += convStats.Failed
			}
			if failed > 0 {
				return fmt.Errorf("%d file(s) failed; see log for details", failed)
			}
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Plan only; do not modify files")
	return cmd
}

func newScanCommand(ctx *commandContext) *cobra.Command {
	var flags exclusionFlags

	cmd := &cobra.Command{
		Use:   "scan [root]",
		Short: "List the tracks a run would remove without modifying files",
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

			files, err := s.discover(s.cfg.Library.Extensions)
			if err != nil {
				return err
			}

			var planned []stripper.Event
			collect := stripper.ObserverFunc(func(_ context.Context, ev stripper.Event) {
				if ev.Type == stripper.EventFilePlanned {
					ev.Removed = append([]track.Track(nil), ev.Removed...)
					planned = append(planned, ev)
				}
			})
			strip, err := s.newStripper(s.newMKVMerge(), nil, true, collect)
			if err != nil {
				return err
			}
			stats := strip.Run(s.ctx, files)

			out := cmd.OutOrStdout()
			if len(planned) == 0 {
				fmt.Fprintln(out, "No files need changes")
			} else {
				rows := make([][]string, 0, len(planned))
				for _, ev := range planned {
					rows = append(rows, []string{
						ev.Path,
						removedLabel(ev.Removed, track.Audio),
						removedLabel(ev.Removed, track.Subtitle),
						humanize.IBytes(uint64(ev.SizeBefore)),
					})
				}
				fmt.Fprintln(out, renderTable(out,
					[]string{"File", "Remove audio", "Remove subtitles", "Size"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
				))
			}
			fmt.Fprintf(out, "%d of %d files would change (%d failed to inspect)\n", stats.Planned, stats.Total, stats.Failed)
			if stats.Failed > 0 {
				return fmt.Errorf("%d file(s) could not be inspected", stats.Failed)
			}
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func newConvertCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "convert [root]",
		Short: "Remux .m2ts/.mp4 sources into Matroska",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := ctx.newSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()
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
			conv, err := s.newConverter(mkv, store)
			if err != nil {
				return err
			}
			sources, err := s.discover(s.cfg.Convert.SourceExtensions)
			if err != nil {
				return err
			}
			stats := conv.Run(s.ctx, sources)

			fmt.Fprintf(cmd.OutOrStdout(), "Converted %d of %d source files (%d skipped, %d failed)\n",
				stats.Converted, stats.Total, stats.Skipped, stats.Failed)
			if stats.Failed > 0 {
				return fmt.Errorf("%d file(s) failed to convert", stats.Failed)
			}
			return s.ctx.Err()
		},
	}
}

func printStats(out io.Writer, stats stripper.Stats) {
	rows := [][]string{
		{"Files", humanize.Comma(int64(stats.Total))},
		{"Changed", humanize.Comma(int64(stats.Changed))},
		{"Unchanged", humanize.Comma(int64(stats.Unchanged))},
		{"Skipped", humanize.Comma(int64(stats.Skipped))},
		{"Failed", humanize.Comma(int64(stats.Failed))},
		{"Audio removed", strconv.Itoa(stats.AudioRemoved)},
		{"Subtitles removed", strconv.Itoa(stats.SubtitlesRemoved)},
	}
	if stats.DryRun {
		rows = append(rows, []string{"Would change", humanize.Comma(int64(stats.Planned))})
	}
	if saved := stats.SpaceSaved(); saved > 0 {
		rows = append(rows, []string{"Space saved", humanize.IBytes(uint64(saved))})
	}
	rows = append(rows, []string{"Elapsed", stats.Elapsed.Round(time.Millisecond).String()})
	fmt.Fprintln(out, renderTable(out, []string{"Summary", "Value"}, rows, []columnAlignment{alignLeft, alignRight}))
}

// removedLabel renders "French, Spanish (commentary)" for tracks of kind.
func removedLabel(tracks []track.Track, kind track.Kind) string {
	label := ""
	for _, t := range tracks {
		if t.Kind != kind {
			continue
		}
		name := language.DisplayName(t.Language)
		if t.IsCommentary() {
			name += " (commentary)"
		}
		if label != "" {
			label += ", "
		}
		label += name + " #" + t.ID
	}
	if label == "" {
		return "-"
	}
	return label
}
