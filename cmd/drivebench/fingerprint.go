package main

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"drivebench/internal/benchmark"
)

func newFingerprintCmd() *cobra.Command {
	opts := &runOptions{}

	cmd := &cobra.Command{
		Use:   "fingerprint",
		Short: "Show the cache fingerprint of every benchmark pair",
		RunE: func(cmd *cobra.Command, args []string) error {
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

			tbl := table.NewWriter()
			tbl.SetStyle(table.StyleLight)
			tbl.AppendHeader(table.Row{"Benchmark", "Library", "Fingerprint", "Cache"})

			for _, spec := range plan.Benchmarks {
				for _, lib := range plan.Libraries {
					fp, err := benchmark.PairFingerprint(spec, lib, plan.OrchestratorSource)
					if err != nil {
						tbl.AppendRow(table.Row{spec.Name, lib.Name, err.Error(), ""})
						continue
					}
					tbl.AppendRow(table.Row{spec.Name, lib.Name, fp, cacheState(cache, spec, lib, fp)})
				}
			}

			fmt.Fprintln(cmd.OutOrStdout(), tbl.Render())
			return nil
		},
	}

	cmd.Flags().StringSliceVarP(&opts.benchmarks, "benchmark", "b", nil, "Only show these benchmarks")
	cmd.Flags().StringSliceVarP(&opts.libraries, "library", "l", nil, "Only show these libraries")
	return cmd
}

func cacheState(cache benchmark.Cache, spec benchmark.Spec, lib benchmark.Library, fp string) string {
	if !lib.Cache {
		return "disabled"
	}
	_, ok, err := cache.Load(benchmark.CacheKey(spec, lib, fp))
	switch {
	case err != nil:
		return "corrupt"
	case ok:
		return "hit"
	default:
		return "miss"
	}
}
