package report

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"drivebench/internal/benchmark"
)

const (
	chartWidth  = "900px"
	chartHeight = "480px"
	lineWidth   = 2
)

// metric selects one measured quantity of a step summary.
type metric struct {
	title string
	unit  string
	value func(benchmark.StepSummary) (mean, std float64)
}

var (
	timeMetric = metric{
		title: "time",
		unit:  "Time [s]",
		value: func(s benchmark.StepSummary) (float64, float64) { return s.TimeMean, s.TimeStd },
	}
	memoryMetric = metric{
		title: "memory",
		unit:  "Memory [MB]",
		value: func(s benchmark.StepSummary) (float64, float64) { return s.MemoryMean, s.MemoryStd },
	}
)

// BuildCharts returns a time chart and a memory chart for every benchmark
// of the result set, each with one mean line per library and dashed
// mean ± std bands.
func BuildCharts(results *benchmark.ResultSet) []*charts.Line {
	var lines []*charts.Line
	for _, name := range results.Benchmarks() {
		lines = append(lines,
			buildChart(results, name, timeMetric),
			buildChart(results, name, memoryMetric),
		)
	}
	return lines
}

func buildChart(results *benchmark.ResultSet, name string, m metric) *charts.Line {
	sizes := sizesOf(results, name)
	labels := make([]string, len(sizes))
	for i, n := range sizes {
		labels[i] = strconv.Itoa(n)
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: chartWidth, Height: chartHeight}),
		charts.WithTitleOpts(opts.Title{Title: "Benchmark - " + name, Subtitle: m.title}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "Number of requests", Type: "category"}),
		charts.WithYAxisOpts(opts.YAxis{Name: m.unit, Type: "log"}),
	)
	line.SetXAxis(labels)

	for _, lib := range results.Libraries(name) {
		outcome, _ := results.Get(name, lib)
		mean, lower, upper := lineData(outcome.Summary, sizes, m)

		line.AddSeries(lib, mean,
			charts.WithLineStyleOpts(opts.LineStyle{Width: lineWidth}),
		)
		band := charts.WithLineStyleOpts(opts.LineStyle{Type: "dashed", Opacity: opts.Float(0.4)})
		line.AddSeries(lib+" -std", lower, band)
		line.AddSeries(lib+" +std", upper, band)
	}

	return line
}

// lineData aligns a summary with the chart's sizes. Unknown or
// non-positive points are emitted as "-" so that the log axis skips them.
func lineData(summary []benchmark.StepSummary, sizes []int, m metric) (mean, lower, upper []opts.LineData) {
	bySize := make(map[int]benchmark.StepSummary, len(summary))
	for _, s := range summary {
		bySize[s.Size] = s
	}

	mean = make([]opts.LineData, len(sizes))
	lower = make([]opts.LineData, len(sizes))
	upper = make([]opts.LineData, len(sizes))
	for i, n := range sizes {
		mean[i], lower[i], upper[i] = gap(), gap(), gap()

		s, ok := bySize[n]
		if !ok {
			continue
		}
		mu, sigma := m.value(s)
		if math.IsNaN(mu) || mu <= 0 {
			continue
		}
		mean[i] = opts.LineData{Value: mu}
		if math.IsNaN(sigma) {
			continue
		}
		if mu-sigma > 0 {
			lower[i] = opts.LineData{Value: mu - sigma}
		}
		upper[i] = opts.LineData{Value: mu + sigma}
	}
	return mean, lower, upper
}

func gap() opts.LineData {
	return opts.LineData{Value: "-"}
}

func sizesOf(results *benchmark.ResultSet, name string) []int {
	seen := make(map[int]bool)
	var sizes []int
	for _, lib := range results.Libraries(name) {
		outcome, _ := results.Get(name, lib)
		for _, s := range outcome.Summary {
			if !seen[s.Size] {
				seen[s.Size] = true
				sizes = append(sizes, s.Size)
			}
		}
	}
	sort.Ints(sizes)
	return sizes
}

// WriteChart renders every chart of the result set into a single HTML page
// at path.
func WriteChart(path, title string, results *benchmark.ResultSet) error {
	page := components.NewPage()
	page.PageTitle = title
	for _, line := range BuildCharts(results) {
		page.AddCharts(line)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create chart %s: %w", path, err)
	}
	if err := page.Render(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to render chart: %w", err)
	}
	return f.Close()
}
