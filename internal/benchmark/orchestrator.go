package benchmark

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment variables exported to every build and trial command.
const (
	EnvName    = "BENCH_NAME"
	EnvLibrary = "BENCH_LIBRARY"
	EnvBinary  = "BENCH_BINARY"
	EnvSize    = "BENCH_SIZE"
)

// Plan is the benchmark matrix of one run.
type Plan struct {
	Benchmarks []Spec
	Libraries  []Library
	// OrchestratorSource is hashed into every fingerprint so that a change
	// to the run definition invalidates all cached series.
	OrchestratorSource string
}

// Recorder observes the progress of a run.
type Recorder interface {
	CacheLookup(benchmark, library string, hit bool)
	Build(benchmark, library string, d time.Duration, err error)
	Trial(benchmark, library string, size int, sample Sample, err error)
}

type nopRecorder struct{}

func (nopRecorder) CacheLookup(string, string, bool)           {}
func (nopRecorder) Build(string, string, time.Duration, error) {}
func (nopRecorder) Trial(string, string, int, Sample, error)   {}

// Orchestrator drives the benchmark matrix one trial at a time.
type Orchestrator struct {
	Runner   Runner
	Cache    Cache
	Recorder Recorder
	Logger   *slog.Logger
}

// NewOrchestrator creates an orchestrator with a no-op recorder and the
// default logger.
func NewOrchestrator(runner Runner, cache Cache) *Orchestrator {
	return &Orchestrator{
		Runner:   runner,
		Cache:    cache,
		Recorder: nopRecorder{},
		Logger:   slog.Default(),
	}
}

// Run executes every (benchmark, library) pair of the plan. A failing pair
// is skipped and its error collected; the returned error joins all of them.
// Cancelling ctx stops the run after the current trial.
func (o *Orchestrator) Run(ctx context.Context, plan Plan) (*ResultSet, error) {
	results := NewResultSet()
	var errs []error

	for _, spec := range plan.Benchmarks {
		for _, lib := range plan.Libraries {
			if err := ctx.Err(); err != nil {
				return results, errors.Join(append(errs, err)...)
			}

			outcome, err := o.RunPair(ctx, spec, lib, plan.OrchestratorSource)
			if err != nil {
				o.Logger.Error("Benchmark pair failed", "benchmark", spec.Name, "library", lib.Name, "error", err)
				errs = append(errs, err)
				continue
			}
			results.Add(outcome)
		}
	}

	return results, errors.Join(errs...)
}

// RunPair produces the series of one (benchmark, library) pair, either from
// the cache or by running every trial.
func (o *Orchestrator) RunPair(ctx context.Context, spec Spec, lib Library, orchestratorSource string) (*Outcome, error) {
	pairErr := func(step, trial int, err error) error {
		return &TrialError{Benchmark: spec.Name, Library: lib.Name, Step: step, Trial: trial, Err: err}
	}

	env := pairEnv(spec, lib)
	fp, err := PairFingerprint(spec, lib, orchestratorSource)
	if err != nil {
		return nil, pairErr(-1, -1, err)
	}
	log := o.Logger.With("benchmark", spec.Name, "library", lib.Name)
	log.Debug("Computed fingerprint", "fingerprint", fp)

	outcome := &Outcome{Benchmark: spec.Name, Library: lib.Name, Fingerprint: fp}
	key := CacheKey(spec, lib, fp)
	if lib.Cache {
		series, ok, err := o.Cache.Load(key)
		if err != nil {
			log.Warn("Ignoring unreadable cache entry", "fingerprint", fp, "error", err)
		}
		o.Recorder.CacheLookup(spec.Name, lib.Name, ok)
		if ok {
			log.Info("Read series from cache", "fingerprint", fp)
			outcome.Cached = true
			outcome.Series = series
			outcome.Summary = Summarize(series)
			outcome.Artifacts = o.Cache.Paths(key)
			return outcome, nil
		}
	}

	if lib.Kind == KindCompiled && lib.Build != "" {
		res, err := o.Runner.Execute(ctx, lib.Build, env)
		var d time.Duration
		if res != nil {
			d = res.Duration
		}
		o.Recorder.Build(spec.Name, lib.Name, d, err)
		if err != nil {
			return nil, pairErr(-1, -1, fmt.Errorf("build failed: %w", err))
		}
		log.Info("Built benchmark", "duration", d)
	}

	series := make(Series)
	for _, n := range spec.Sizes() {
		for trial := 0; trial < spec.Repeat; trial++ {
			if err := ctx.Err(); err != nil {
				return nil, pairErr(n, trial, err)
			}

			sample, err := o.runTrial(ctx, lib, append(env[:len(env):len(env)], EnvSize+"="+strconv.Itoa(n)))
			o.Recorder.Trial(spec.Name, lib.Name, n, sample, err)
			if err != nil {
				return nil, pairErr(n, trial, err)
			}
			log.Debug("Trial finished", "step", n, "trial", trial, "seconds", sample.Seconds, "memory_mb", sample.MemoryMB)
			series.Append(n, sample)
		}
		log.Info("Step finished", "step", n)
	}

	outcome.Series = series
	outcome.Summary = Summarize(series)

	artifacts, err := o.Cache.Save(key, series)
	if err != nil {
		log.Error("Failed to persist series", "key", key, "error", err)
	} else {
		outcome.Artifacts = artifacts
	}

	return outcome, nil
}

func (o *Orchestrator) runTrial(ctx context.Context, lib Library, env []string) (Sample, error) {
	res, err := o.Runner.Execute(ctx, lib.Command, env)
	if err != nil {
		return Sample{}, err
	}

	m := ParseMeasurement(res.Stderr)
	if lib.Kind == KindCompiled {
		overhead, err := ExtractBuildOverhead(res.Stderr + res.Stdout)
		if err != nil {
			return Sample{}, err
		}
		m.Seconds -= overhead
	}
	return m.Sample(), nil
}

func pairEnv(spec Spec, lib Library) []string {
	return []string{
		EnvName + "=" + spec.Name,
		EnvLibrary + "=" + lib.Name,
		EnvBinary + "=" + spec.BinaryName(),
	}
}

// expand substitutes ${VAR} references from env, falling back to the
// process environment.
func expand(s string, env []string) string {
	vars := make(map[string]string, len(env))
	for _, kv := range env {
		if k, v, ok := strings.Cut(kv, "="); ok {
			vars[k] = v
		}
	}
	return os.Expand(s, func(name string) string {
		if v, ok := vars[name]; ok {
			return v
		}
		return os.Getenv(name)
	})
}

// PairFingerprint computes the fingerprint of a pair from its benchmark
// source and the orchestrator source, when set.
func PairFingerprint(spec Spec, lib Library, orchestratorSource string) (string, error) {
	sources := []string{ExpandSource(spec, lib)}
	if orchestratorSource != "" {
		sources = append(sources, orchestratorSource)
	}
	return Fingerprint(spec, lib, sources...)
}

// CacheKey returns the key the series of a pair is stored under. Libraries
// with caching disabled use a name-based key so that every run overwrites
// the previous artifacts.
func CacheKey(spec Spec, lib Library, fingerprint string) string {
	if lib.Cache {
		return fingerprint
	}
	return nameKey(spec.Name, spec.Name) + "_" + nameKey(lib.Name, lib.Name)
}

// ExpandSource returns the benchmark source path of a pair.
func ExpandSource(spec Spec, lib Library) string {
	return expand(lib.Source, pairEnv(spec, lib))
}
