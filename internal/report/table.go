package report

import (
	"fmt"
	"io"
	"math"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"

	"drivebench/internal/benchmark"
)

// WriteSummary prints one table row per (benchmark, library, size). When
// baseline names a library, the relative change of every other library
// against it is shown as well.
func WriteSummary(w io.Writer, results *benchmark.ResultSet, baseline string) error {
	tbl := table.NewWriter()
	tbl.SetStyle(table.StyleLight)
	tbl.Style().Options.SeparateRows = false

	header := table.Row{"Benchmark", "Library", "Size", "Trials", "Time (s)", "Memory (MB)"}
	if baseline != "" {
		header = append(header, "Δ time", "Δ memory")
	}
	header = append(header, "Source")
	tbl.AppendHeader(header)

	for _, name := range results.Benchmarks() {
		var diffs map[string]map[int]benchmark.Comparison
		if baseline != "" {
			diffs = compareAll(results, name, baseline)
		}

		for _, lib := range results.Libraries(name) {
			outcome, _ := results.Get(name, lib)
			for _, s := range outcome.Summary {
				row := table.Row{
					name,
					lib,
					humanize.Comma(int64(s.Size)),
					s.Trials,
					meanStd(s.TimeMean, s.TimeStd),
					meanStd(s.MemoryMean, s.MemoryStd),
				}
				if baseline != "" {
					if c, ok := diffs[lib][s.Size]; ok && lib != baseline {
						row = append(row, percent(c.TimeDiff), percent(c.MemoryDiff))
					} else {
						row = append(row, "", "")
					}
				}
				row = append(row, source(outcome))
				tbl.AppendRow(row)
			}
		}
		tbl.AppendSeparator()
	}

	tbl.AppendFooter(table.Row{fmt.Sprintf("Total: %d pairs", results.Len())})

	_, err := fmt.Fprintln(w, tbl.Render())
	return err
}

func compareAll(results *benchmark.ResultSet, name, baseline string) map[string]map[int]benchmark.Comparison {
	base, ok := results.Get(name, baseline)
	if !ok {
		return nil
	}

	out := make(map[string]map[int]benchmark.Comparison)
	for _, lib := range results.Libraries(name) {
		outcome, _ := results.Get(name, lib)
		bySize := make(map[int]benchmark.Comparison)
		for _, c := range benchmark.Compare(base.Summary, outcome.Summary) {
			bySize[c.Size] = c
		}
		out[lib] = bySize
	}
	return out
}

func meanStd(mean, std float64) string {
	if math.IsNaN(mean) {
		return "n/a"
	}
	if math.IsNaN(std) {
		return fmt.Sprintf("%.3f", mean)
	}
	return fmt.Sprintf("%.3f ± %.3f", mean, std)
}

func percent(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%+.1f%%", v)
}

func source(o *benchmark.Outcome) string {
	if o.Cached {
		return "cache"
	}
	return "run"
}
