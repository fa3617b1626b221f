package main

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"drivebench/internal/benchmark"
	"drivebench/internal/report"
)

func newSummaryCmd() *cobra.Command {
	opts := &runOptions{}
	var chart bool

	cmd := &cobra.Command{
		Use:   "summary",
		Short: "Summarize the stored series without running anything",
		Long: `Loads the series of every benchmark pair from the output directory and prints
the summary table. Pairs whose fingerprint changed since the last run are
listed as missing.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			plan, err := selectPlan(cfg, opts)
			if err != nil {
				return err
			}
			cache, err := newCacheFunc(cfg.OutputDir)
			if err != nil {
				return err
			}

			results := benchmark.NewResultSet()
			var missing []string
			for _, spec := range plan.Benchmarks {
				for _, lib := range plan.Libraries {
					outcome, err := loadOutcome(cache, spec, lib, plan.OrchestratorSource)
					if err != nil {
						slog.Debug("Stored series unavailable", "benchmark", spec.Name, "library", lib.Name, "error", err)
					}
					if outcome == nil {
						missing = append(missing, spec.Name+"/"+lib.Name)
						continue
					}
					results.Add(outcome)
				}
			}

			if results.Len() == 0 {
				printWarning(out, "No stored results, run 'drivebench run' first")
				return nil
			}
			if err := report.WriteSummary(out, results, cfg.Report.Baseline); err != nil {
				return err
			}
			for _, pair := range missing {
				printMuted(out, "missing: %s", pair)
			}

			if chart && cfg.Report.Chart != "" {
				path := filepath.Join(cfg.OutputDir, cfg.Report.Chart)
				if err := report.WriteChart(path, "drivebench", results); err != nil {
					return fmt.Errorf("failed to render chart: %w", err)
				}
				printSuccess(out, "Chart written to %s", path)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&opts.benchmarks, "benchmark", "b", nil, "Only summarize these benchmarks")
	cmd.Flags().StringSliceVarP(&opts.libraries, "library", "l", nil, "Only summarize these libraries")
	cmd.Flags().BoolVar(&chart, "chart", false, "Also render the chart")
	return cmd
}

// loadOutcome reads the stored series of a pair. It returns nil when the
// series is not stored under the current fingerprint.
func loadOutcome(cache benchmark.Cache, spec benchmark.Spec, lib benchmark.Library, orchestratorSource string) (*benchmark.Outcome, error) {
	fp, err := benchmark.PairFingerprint(spec, lib, orchestratorSource)
	if err != nil {
		return nil, err
	}
	key := benchmark.CacheKey(spec, lib, fp)
	series, ok, err := cache.Load(key)
	if err != nil || !ok {
		return nil, err
	}
	return &benchmark.Outcome{
		Benchmark:   spec.Name,
		Library:     lib.Name,
		Fingerprint: fp,
		Cached:      true,
		Series:      series,
		Summary:     benchmark.Summarize(series),
		Artifacts:   cache.Paths(key),
	}, nil
}
