package main

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"drivebench/internal/benchmark"
	"drivebench/internal/config"
)

func newStepsCmd() *cobra.Command {
	var spec benchmark.Spec

	cmd := &cobra.Command{
		Use:   "steps",
		Short: "Print the input sizes each benchmark runs with",
		Long: `Prints the geometric sequence of input sizes floor(min * factor^i). With
--min the sequence is computed from the flags; otherwise it is printed for
every configured benchmark.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()

			if cmd.Flags().Changed("min") {
				spec.Name = "steps"
				spec.Repeat = 1
				if err := spec.Validate(); err != nil {
					return err
				}
				fmt.Fprintln(out, formatSizes(spec.Sizes()))
				return nil
			}

			cfg, err := config.Decode()
			if err != nil {
				return err
			}
			if len(cfg.Benchmarks) == 0 {
				return fmt.Errorf("%w: no benchmarks configured, use --min", benchmark.ErrConfiguration)
			}
			for _, b := range cfg.Benchmarks {
				if err := b.Validate(); err != nil {
					return err
				}
				fmt.Fprintf(out, "%s: %s\n", b.Name, formatSizes(b.Sizes()))
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&spec.MinSize, "min", 0, "Smallest input size")
	cmd.Flags().Float64Var(&spec.Factor, "factor", 4, "Growth factor between steps")
	cmd.Flags().IntVar(&spec.Steps, "count", 4, "Number of steps")
	return cmd
}

func formatSizes(sizes []int) string {
	parts := make([]string, len(sizes))
	for i, n := range sizes {
		parts[i] = humanize.Comma(int64(n))
	}
	return strings.Join(parts, " ")
}
