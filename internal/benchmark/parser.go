package benchmark

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

var (
	// Elapsed (wall clock) time (h:mm:ss or m:ss): 0:01.23
	elapsedRegex = regexp.MustCompile(`Elapsed .*?: ([0-9:]+\.?[0-9]*)`)
	// Maximum resident set size (kbytes): 20480
	maxRSSRegex = regexp.MustCompile(`Maximum resident set size \(kbytes\): (\d+)`)
	// Finished `release` profile [optimized] target(s) in 3.25s
	buildTimeRegex = regexp.MustCompile(`\[optimized\] target\(s\) in ([\d.]+)s`)
)

// Measurement is what the resource-measurement wrapper reported for one
// process. A field is only meaningful when its Has flag is set.
type Measurement struct {
	Seconds    float64
	MemoryMB   float64
	HasSeconds bool
	HasMemory  bool
}

// Sample converts the measurement into a sample, using NaN for unknown values.
func (m Measurement) Sample() Sample {
	s := Sample{Seconds: math.NaN(), MemoryMB: math.NaN()}
	if m.HasSeconds {
		s.Seconds = m.Seconds
	}
	if m.HasMemory {
		s.MemoryMB = m.MemoryMB
	}
	return s
}

// ParseMeasurement extracts elapsed wall time and peak resident memory from
// the verbose report of GNU time. Missing or malformed lines leave the
// corresponding field unset instead of failing. The report follows the
// benchmark's own output, so the last matching line wins.
func ParseMeasurement(stderr string) Measurement {
	var m Measurement

	if match := lastMatch(elapsedRegex, stderr); match != nil {
		if secs, ok := parseElapsed(match[1]); ok {
			m.Seconds = secs
			m.HasSeconds = true
		}
	}

	if match := lastMatch(maxRSSRegex, stderr); match != nil {
		if kb, err := strconv.ParseFloat(match[1], 64); err == nil {
			m.MemoryMB = kb / 1024
			m.HasMemory = true
		}
	}

	return m
}

func lastMatch(re *regexp.Regexp, s string) []string {
	matches := re.FindAllStringSubmatch(s, -1)
	if len(matches) == 0 {
		return nil
	}
	return matches[len(matches)-1]
}

// parseElapsed converts h:mm:ss.ss, m:ss.ss or a bare seconds value.
func parseElapsed(value string) (float64, bool) {
	fields := strings.Split(value, ":")
	parts := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return 0, false
		}
		parts[i] = v
	}

	switch len(parts) {
	case 3:
		return parts[0]*3600 + parts[1]*60 + parts[2], true
	case 2:
		return parts[0]*60 + parts[1], true
	case 1:
		return parts[0], true
	default:
		return 0, false
	}
}

// ExtractBuildOverhead returns the build duration cargo reports before
// running a compiled benchmark. The duration must be subtracted from the
// measured time, so its absence is an error.
func ExtractBuildOverhead(output string) (float64, error) {
	match := buildTimeRegex.FindStringSubmatch(output)
	if match == nil {
		return 0, &BuildTimeNotFoundError{Output: output}
	}
	secs, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, &BuildTimeNotFoundError{Output: output}
	}
	return secs, nil
}
