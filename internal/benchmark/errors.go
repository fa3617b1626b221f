package benchmark

import (
	"errors"
	"fmt"
	"strings"
)

// Failure kinds. Every error produced by this package matches exactly one of
// these with errors.Is.
var (
	ErrConfiguration     = errors.New("configuration error")
	ErrSourceNotFound    = errors.New("source not found")
	ErrProcessFailure    = errors.New("process failure")
	ErrParseFailure      = errors.New("parse failure")
	ErrBuildTimeNotFound = errors.New("build time not found")
	ErrCacheCorruption   = errors.New("cache corruption")
)

// ProcessError is returned when an external program exits non-zero.
type ProcessError struct {
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ProcessError) Error() string {
	msg := fmt.Sprintf("command %q exited with code %d", e.Command, e.ExitCode)
	if tail := lastLines(e.Stderr, 5); tail != "" {
		msg += "\n" + tail
	}
	return msg
}

func (e *ProcessError) Is(target error) bool {
	return target == ErrProcessFailure
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// BuildTimeNotFoundError is returned when the output of a compiled benchmark
// does not report the build duration.
type BuildTimeNotFoundError struct {
	Output string
}

func (e *BuildTimeNotFoundError) Error() string {
	return "build time not found in the provided output"
}

func (e *BuildTimeNotFoundError) Is(target error) bool {
	return target == ErrBuildTimeNotFound || target == ErrParseFailure
}

// SourceNotFoundError is returned when a file hashed into a fingerprint is
// missing.
type SourceNotFoundError struct {
	Path string
	Err  error
}

func (e *SourceNotFoundError) Error() string {
	return fmt.Sprintf("source %s not found: %v", e.Path, e.Err)
}

func (e *SourceNotFoundError) Is(target error) bool {
	return target == ErrSourceNotFound
}

func (e *SourceNotFoundError) Unwrap() error {
	return e.Err
}

// CacheCorruptionError is returned when a cache artifact exists but cannot
// be read back into a series.
type CacheCorruptionError struct {
	Path   string
	Reason string
}

func (e *CacheCorruptionError) Error() string {
	return fmt.Sprintf("corrupt cache artifact %s: %s", e.Path, e.Reason)
}

func (e *CacheCorruptionError) Is(target error) bool {
	return target == ErrCacheCorruption
}

// TrialError locates a failure inside the benchmark matrix.
// Step and Trial are -1 when the failure happened outside a trial.
type TrialError struct {
	Benchmark string
	Library   string
	Step      int
	Trial     int
	Err       error
}

func (e *TrialError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "benchmark %s, library %s", e.Benchmark, e.Library)
	if e.Step >= 0 {
		fmt.Fprintf(&b, ", step %d", e.Step)
	}
	if e.Trial >= 0 {
		fmt.Fprintf(&b, ", trial %d", e.Trial)
	}
	fmt.Fprintf(&b, ": %v", e.Err)
	return b.String()
}

func (e *TrialError) Unwrap() error {
	return e.Err
}

func lastLines(s string, n int) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
