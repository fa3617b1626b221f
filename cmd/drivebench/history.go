package main

import (
	"fmt"
	"math"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"drivebench/internal/git"
	"drivebench/internal/history"
)

func newHistoryCmd() *cobra.Command {
	var filter history.Filter

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded step summaries of past runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			store, err := newHistoryStoreFunc(cfg.History.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			entries, err := store.Query(cmd.Context(), filter)
			if err != nil {
				return fmt.Errorf("failed to query history: %w", err)
			}
			if len(entries) == 0 {
				printWarning(cmd.OutOrStdout(), "No recorded runs in %s", cfg.History.Path)
				return nil
			}

			tbl := table.NewWriter()
			tbl.SetStyle(table.StyleLight)
			tbl.AppendHeader(table.Row{"Run", "When", "Commit", "Benchmark", "Library", "Size", "Time (s)", "Memory (MB)"})
			for _, e := range entries {
				tbl.AppendRow(table.Row{
					e.Run.ID,
					humanize.Time(e.Run.StartedAt),
					git.Revision{Commit: e.Run.Commit, Dirty: e.Run.Dirty}.Label(),
					e.Benchmark,
					e.Library,
					humanize.Comma(int64(e.Size)),
					number(e.TimeMean),
					number(e.MemoryMean),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), tbl.Render())
			return nil
		},
	}

	cmd.Flags().StringVarP(&filter.Benchmark, "benchmark", "b", "", "Only show this benchmark")
	cmd.Flags().StringVarP(&filter.Library, "library", "l", "", "Only show this library")
	cmd.Flags().IntVarP(&filter.Limit, "limit", "n", 5, "Number of runs to show")
	return cmd
}

func number(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.3f", v)
}
