package benchmark

import (
	"fmt"
	"math"
	"sort"
)

// Kind tells how a library's benchmark program is built and invoked.
type Kind string

const (
	// KindCompiled programs are built first; the reported build time is
	// subtracted from every trial.
	KindCompiled Kind = "compiled"
	// KindScripted programs are interpreted and run as-is.
	KindScripted Kind = "scripted"
)

// Valid reports whether k is one of the known kinds.
func (k Kind) Valid() bool {
	return k == KindCompiled || k == KindScripted
}

// Spec describes one benchmark workload and the geometric sequence of
// input sizes it is run with.
type Spec struct {
	Name    string  `mapstructure:"name" json:"name"`
	MinSize float64 `mapstructure:"min_size" json:"min_size"`
	Factor  float64 `mapstructure:"factor" json:"factor"`
	Steps   int     `mapstructure:"steps" json:"steps"`
	Repeat  int     `mapstructure:"repeat" json:"repeat"`
	// Binary is the compiled target name. Defaults to Name.
	Binary string `mapstructure:"binary" json:"binary,omitempty"`
}

// Sizes returns the input sizes of the benchmark.
func (s Spec) Sizes() []int {
	return Steps(s.MinSize, s.Factor, s.Steps)
}

// BinaryName returns the compiled target for the benchmark.
func (s Spec) BinaryName() string {
	if s.Binary != "" {
		return s.Binary
	}
	return s.Name
}

// Library is one client implementation under test.
type Library struct {
	Name string `mapstructure:"name" json:"name"`
	Kind Kind   `mapstructure:"kind" json:"kind"`
	// Cache enables result reuse for this library. Libraries with caching
	// disabled are re-run on every invocation.
	Cache bool `mapstructure:"cache" json:"cache"`
	// Command is the shell command of a single trial.
	Command string `mapstructure:"command" json:"command"`
	// Build is run once per benchmark before the trials of a compiled library.
	Build string `mapstructure:"build" json:"build,omitempty"`
	// Source is the benchmark program source hashed into the fingerprint.
	Source string `mapstructure:"source" json:"source"`
}

// Sample is the measurement of a single trial. Unknown values are NaN.
type Sample struct {
	Seconds  float64 `json:"seconds"`
	MemoryMB float64 `json:"memory_mb"`
}

// Series maps an input size to the samples of its repeat trials.
type Series map[int][]Sample

// Sizes returns the input sizes of the series in ascending order.
func (s Series) Sizes() []int {
	sizes := make([]int, 0, len(s))
	for n := range s {
		sizes = append(sizes, n)
	}
	sort.Ints(sizes)
	return sizes
}

// Append records a trial result for size n.
func (s Series) Append(n int, sample Sample) {
	s[n] = append(s[n], sample)
}

// Times returns the elapsed times recorded for size n.
func (s Series) Times(n int) []float64 {
	out := make([]float64, len(s[n]))
	for i, sm := range s[n] {
		out[i] = sm.Seconds
	}
	return out
}

// Memory returns the peak memory values recorded for size n.
func (s Series) Memory(n int) []float64 {
	out := make([]float64, len(s[n]))
	for i, sm := range s[n] {
		out[i] = sm.MemoryMB
	}
	return out
}

// Outcome is the result of one (benchmark, library) pair.
type Outcome struct {
	Benchmark   string        `json:"benchmark"`
	Library     string        `json:"library"`
	Fingerprint string        `json:"fingerprint"`
	Cached      bool          `json:"cached"`
	Series      Series        `json:"series"`
	Summary     []StepSummary `json:"summary"`
	// Artifacts are the files the series was persisted to.
	Artifacts []string `json:"artifacts,omitempty"`
}

// ResultSet maps benchmark -> library -> outcome. It is built by the
// orchestrator and treated as read-only afterwards.
type ResultSet struct {
	order    []string
	outcomes map[string]map[string]*Outcome
}

// NewResultSet returns an empty result set.
func NewResultSet() *ResultSet {
	return &ResultSet{outcomes: make(map[string]map[string]*Outcome)}
}

// Add stores an outcome, replacing any previous outcome for the same pair.
func (r *ResultSet) Add(o *Outcome) {
	libs, ok := r.outcomes[o.Benchmark]
	if !ok {
		libs = make(map[string]*Outcome)
		r.outcomes[o.Benchmark] = libs
		r.order = append(r.order, o.Benchmark)
	}
	libs[o.Library] = o
}

// Get returns the outcome of a pair.
func (r *ResultSet) Get(benchmark, library string) (*Outcome, bool) {
	o, ok := r.outcomes[benchmark][library]
	return o, ok
}

// Benchmarks returns benchmark names in insertion order.
func (r *ResultSet) Benchmarks() []string {
	return append([]string(nil), r.order...)
}

// Libraries returns the library names recorded for a benchmark, sorted.
func (r *ResultSet) Libraries(benchmark string) []string {
	libs := make([]string, 0, len(r.outcomes[benchmark]))
	for name := range r.outcomes[benchmark] {
		libs = append(libs, name)
	}
	sort.Strings(libs)
	return libs
}

// Outcomes returns every outcome, grouped by benchmark in insertion order.
func (r *ResultSet) Outcomes() []*Outcome {
	var out []*Outcome
	for _, b := range r.order {
		for _, lib := range r.Libraries(b) {
			out = append(out, r.outcomes[b][lib])
		}
	}
	return out
}

// Artifacts returns all artifact paths written or reused during the run.
func (r *ResultSet) Artifacts() []string {
	var files []string
	for _, o := range r.Outcomes() {
		files = append(files, o.Artifacts...)
	}
	return files
}

// Len returns the number of recorded outcomes.
func (r *ResultSet) Len() int {
	n := 0
	for _, libs := range r.outcomes {
		n += len(libs)
	}
	return n
}

func formatFloat(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return fmt.Sprintf("%g", v)
}
