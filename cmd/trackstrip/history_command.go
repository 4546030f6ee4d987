package main

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"trackstrip/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently processed files",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := ctx.newSession(cmd)
			if err != nil {
				return err
			}
			defer s.close()
			if !s.cfg.History.Enabled {
				return errors.New("history is disabled (history.enabled = false)")
			}
			store, err := s.openHistory(true)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.Recent(s.ctx, limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No history recorded yet")
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{
					e.RecordedAt().Local().Format("2006-01-02 15:04"),
					e.Outcome,
					e.Path,
					historyRemoved(e),
					historySize(e),
				})
			}
			fmt.Fprintln(out, renderTable(out,
				[]string{"When", "Outcome", "File", "Removed", "Size"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of entries to show")
	return cmd
}

func historyRemoved(e history.Entry) string {
	if e.Outcome != history.OutcomeCompleted {
		return "-"
	}
	return fmt.Sprintf("%d", e.RemovedCount())
}

func historySize(e history.Entry) string {
	switch {
	case e.Outcome == history.OutcomeCompleted && e.SizeBefore > e.Size:
		return humanize.IBytes(uint64(e.Size)) + " (-" + humanize.IBytes(uint64(e.SizeBefore-e.Size)) + ")"
	case e.Size > 0:
		return humanize.IBytes(uint64(e.Size))
	default:
		return "-"
	}
}
