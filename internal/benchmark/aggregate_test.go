package benchmark

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeanStd(t *testing.T) {
	mean, std := MeanStd([]float64{1, 1})
	assert.Equal(t, 1.0, mean)
	assert.Equal(t, 0.0, std)

	mean, std = MeanStd([]float64{2, 4, 4, 4, 5, 5, 7, 9})
	assert.InDelta(t, 5.0, mean, 1e-9)
	assert.InDelta(t, 2.138089935, std, 1e-9)

	mean, std = MeanStd([]float64{3})
	assert.Equal(t, 3.0, mean)
	assert.Equal(t, 0.0, std)

	mean, std = MeanStd([]float64{math.NaN(), 2, 4})
	assert.Equal(t, 3.0, mean)
	assert.InDelta(t, math.Sqrt2, std, 1e-9)

	mean, std = MeanStd([]float64{math.NaN()})
	assert.True(t, math.IsNaN(mean))
	assert.True(t, math.IsNaN(std))
}

func TestSummarize(t *testing.T) {
	series := Series{
		4000: {{Seconds: 4, MemoryMB: 40}, {Seconds: 6, MemoryMB: 40}},
		1000: {{Seconds: 1, MemoryMB: 10}, {Seconds: 1, MemoryMB: 12}},
	}

	summary := Summarize(series)
	require.Len(t, summary, 2)

	assert.Equal(t, 1000, summary[0].Size)
	assert.Equal(t, 2, summary[0].Trials)
	assert.Equal(t, 1.0, summary[0].TimeMean)
	assert.Equal(t, 0.0, summary[0].TimeStd)
	assert.Equal(t, 11.0, summary[0].MemoryMean)
	assert.InDelta(t, math.Sqrt2, summary[0].MemoryStd, 1e-9)

	assert.Equal(t, 4000, summary[1].Size)
	assert.Equal(t, 5.0, summary[1].TimeMean)
	assert.Equal(t, 0.0, summary[1].MemoryStd)
}

func TestCompare(t *testing.T) {
	baseline := []StepSummary{
		{Size: 100, TimeMean: 10, MemoryMean: 50},
		{Size: 400, TimeMean: 40, MemoryMean: 0},
	}
	candidate := []StepSummary{
		{Size: 100, TimeMean: 11, MemoryMean: 40}, // 10% slower, 20% less memory
		{Size: 400, TimeMean: 20, MemoryMean: 10},
		{Size: 1600, TimeMean: 80}, // Not in baseline
	}

	comps := Compare(baseline, candidate)
	require.Len(t, comps, 2)

	assert.Equal(t, 100, comps[0].Size)
	assert.InDelta(t, 10.0, comps[0].TimeDiff, 0.01)
	assert.InDelta(t, -20.0, comps[0].MemoryDiff, 0.01)

	assert.InDelta(t, -50.0, comps[1].TimeDiff, 0.01)
	assert.True(t, math.IsNaN(comps[1].MemoryDiff))
}
