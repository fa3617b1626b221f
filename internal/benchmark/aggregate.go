package benchmark

import "math"

// StepSummary holds the statistics of one input size.
type StepSummary struct {
	Size       int     `json:"size"`
	Trials     int     `json:"trials"`
	TimeMean   float64 `json:"time_mean"`
	TimeStd    float64 `json:"time_std"`
	MemoryMean float64 `json:"memory_mean"`
	MemoryStd  float64 `json:"memory_std"`
}

// Summarize computes mean and standard deviation of time and memory for
// every input size of the series, in ascending size order.
func Summarize(series Series) []StepSummary {
	sizes := series.Sizes()
	out := make([]StepSummary, 0, len(sizes))
	for _, n := range sizes {
		s := StepSummary{Size: n, Trials: len(series[n])}
		s.TimeMean, s.TimeStd = MeanStd(series.Times(n))
		s.MemoryMean, s.MemoryStd = MeanStd(series.Memory(n))
		out = append(out, s)
	}
	return out
}

// MeanStd returns the mean and sample standard deviation of values,
// ignoring NaN entries. With no known values both results are NaN; a single
// known value has a standard deviation of 0.
func MeanStd(values []float64) (mean, std float64) {
	var sum float64
	var n int
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		sum += v
		n++
	}
	if n == 0 {
		return math.NaN(), math.NaN()
	}
	mean = sum / float64(n)
	if n == 1 {
		return mean, 0
	}

	var sq float64
	for _, v := range values {
		if math.IsNaN(v) {
			continue
		}
		d := v - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(n-1))
}

// Comparison relates a candidate library to a baseline at one input size.
type Comparison struct {
	Size       int
	TimeDiff   float64 // Percentage change
	MemoryDiff float64 // Percentage change
	Baseline   StepSummary
	Candidate  StepSummary
}

// Compare matches the steps present in both summaries. A positive diff means
// the candidate is slower or uses more memory than the baseline.
func Compare(baseline, candidate []StepSummary) []Comparison {
	base := make(map[int]StepSummary, len(baseline))
	for _, s := range baseline {
		base[s.Size] = s
	}

	var comparisons []Comparison
	for _, c := range candidate {
		b, ok := base[c.Size]
		if !ok {
			continue
		}
		comparisons = append(comparisons, Comparison{
			Size:       c.Size,
			TimeDiff:   percentChange(b.TimeMean, c.TimeMean),
			MemoryDiff: percentChange(b.MemoryMean, c.MemoryMean),
			Baseline:   b,
			Candidate:  c,
		})
	}
	return comparisons
}

func percentChange(prev, curr float64) float64 {
	if prev <= 0 || math.IsNaN(prev) || math.IsNaN(curr) {
		return math.NaN()
	}
	return (curr - prev) / prev * 100
}
