package benchmark

import (
	"fmt"
	"math"
)

// Steps returns count input sizes following floor(minN * factor^i).
// Callers must pass minN > 0, factor > 1 and count >= 1; see Spec.Validate.
func Steps(minN, factor float64, count int) []int {
	if count <= 0 {
		return nil
	}
	sizes := make([]int, count)
	for i := range sizes {
		sizes[i] = int(math.Floor(minN * math.Pow(factor, float64(i))))
	}
	return sizes
}

// Validate checks the spec parameters, including that the resulting step
// sequence is strictly increasing.
func (s Spec) Validate() error {
	if s.Name == "" {
		return configError("benchmark name is required")
	}
	if s.MinSize <= 0 {
		return configError("benchmark %s: min_size must be positive, got: %v", s.Name, s.MinSize)
	}
	if s.Factor <= 1 {
		return configError("benchmark %s: factor must be greater than 1, got: %v", s.Name, s.Factor)
	}
	if s.Steps < 1 {
		return configError("benchmark %s: steps must be at least 1, got: %d", s.Name, s.Steps)
	}
	if s.Repeat < 1 {
		return configError("benchmark %s: repeat must be at least 1, got: %d", s.Name, s.Repeat)
	}

	sizes := s.Sizes()
	if sizes[0] < 1 {
		return configError("benchmark %s: first step size is %d, min_size must be at least 1", s.Name, sizes[0])
	}
	for i := 1; i < len(sizes); i++ {
		if sizes[i] <= sizes[i-1] {
			return configError("benchmark %s: step sizes are not strictly increasing (%d after %d)", s.Name, sizes[i], sizes[i-1])
		}
	}
	return nil
}

func configError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}
