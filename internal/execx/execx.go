// Package execx provides a typed interface for invoking external commands.
//
// Every external operation in the setup pipeline (brew, python, uv, pip,
// unzip, tar) goes through Runner so that commands are built from explicit
// argument lists rather than interpolated shell strings, and so that tests
// can substitute a fake without spawning processes.
package execx

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"
)

// Spec describes one external command invocation.
type Spec struct {
	Program string
	Args    []string
	Dir     string
}

// Result is the structured outcome of a finished invocation.
// ExitCode is -1 when the process could not be started or was killed
// before exiting on its own (e.g. on timeout).
type Result struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Ok reports whether the command exited zero.
func (r Result) Ok() bool {
	return r.ExitCode == 0
}

// String renders the spec as a copy-pasteable command line for
// remediation messages. It does not attempt full shell quoting.
func (s Spec) String() string {
	out := s.Program
	for _, a := range s.Args {
		out += " " + a
	}
	return out
}

// Runner executes external commands.
type Runner interface {
	Run(ctx context.Context, spec Spec) (Result, error)
}

// ErrTimeout is returned (wrapped) when an invocation exceeds its deadline.
var ErrTimeout = errors.New("command timed out")

// ExecRunner runs commands with os/exec. Timeout bounds each invocation;
// zero means no limit beyond the caller's context.
type ExecRunner struct {
	Timeout time.Duration
}

// New returns an ExecRunner with the given per-command timeout.
func New(timeout time.Duration) *ExecRunner {
	return &ExecRunner{Timeout: timeout}
}

// Run executes the spec and returns its structured result. A non-zero exit
// is reported through Result, not through error; error is reserved for
// failures to run at all (missing binary, timeout, cancelled context).
func (r *ExecRunner) Run(ctx context.Context, spec Spec) (Result, error) {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, spec.Program, spec.Args...)
	cmd.Dir = spec.Dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := Result{
		ExitCode: 0,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
	}

	if err == nil {
		return res, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
		if ctx.Err() == context.DeadlineExceeded {
			return res, fmt.Errorf("%s: %w", spec.Program, ErrTimeout)
		}
		return res, nil
	}

	res.ExitCode = -1
	if ctx.Err() == context.DeadlineExceeded {
		return res, fmt.Errorf("%s: %w", spec.Program, ErrTimeout)
	}
	return res, fmt.Errorf("failed to run %s: %w", spec.Program, err)
}
