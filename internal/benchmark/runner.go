package benchmark

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"
)

// DefaultShell interprets trial commands.
const DefaultShell = "/bin/bash"

// waitDelay bounds how long output is drained after a cancelled process is
// killed, in case it left children holding the pipes.
const waitDelay = 2 * time.Second

// ProcessResult is the captured output of one external process.
type ProcessResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
	Duration time.Duration
}

// Runner executes a single shell command line synchronously.
type Runner interface {
	Execute(ctx context.Context, command string, env []string) (*ProcessResult, error)
}

// ShellRunner runs commands through a shell so that environment variables
// are interpolated inside the command line.
type ShellRunner struct {
	Shell string
	Dir   string
	// Timeout bounds a single process. Zero disables it.
	Timeout time.Duration
}

// NewShellRunner creates a runner using shell, or DefaultShell when empty.
func NewShellRunner(shell, dir string) *ShellRunner {
	if shell == "" {
		shell = DefaultShell
	}
	return &ShellRunner{Shell: shell, Dir: dir}
}

// Execute runs command with env appended to the current environment.
// A non-zero exit status is returned as a *ProcessError together with the
// captured output.
func (r *ShellRunner) Execute(ctx context.Context, command string, env []string) (*ProcessResult, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, r.Shell, "-c", command)
	cmd.Dir = r.Dir
	cmd.Env = append(os.Environ(), env...)
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	res := &ProcessResult{
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Duration: time.Since(start),
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
		} else {
			res.ExitCode = -1
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = fmt.Errorf("%w: %w", ctxErr, err)
		}
		return res, &ProcessError{
			Command:  command,
			ExitCode: res.ExitCode,
			Stderr:   res.Stderr,
			Err:      err,
		}
	}

	return res, nil
}
