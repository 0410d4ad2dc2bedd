// Package venv manages the isolated Python environment murmur runs in and
// installs its optional dependencies there, one at a time.
package venv

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/murmurvoice/murmur-setup/internal/execx"
)

// Env is the self-contained Python tree at Dir with a nested interpreter
// at a platform-specific relative path.
type Env struct {
	Dir    string
	Runner execx.Runner

	// GOOS is overridable in tests; defaults to runtime.GOOS.
	GOOS string
}

// New returns an Env rooted at dir.
func New(dir string, r execx.Runner) *Env {
	return &Env{Dir: dir, Runner: r, GOOS: runtime.GOOS}
}

// Exists reports whether the environment directory is already present.
// Presence of the directory is the stage's idempotency check.
func (e *Env) Exists() bool {
	info, err := os.Stat(e.Dir)
	return err == nil && info.IsDir()
}

// Python returns the path of the interpreter inside the environment.
func (e *Env) Python() string {
	if e.GOOS == "windows" {
		return filepath.Join(e.Dir, "Scripts", "python.exe")
	}
	return filepath.Join(e.Dir, "bin", "python")
}

// Create builds the environment with the host interpreter's venv module.
// Skips creation entirely when the directory already exists.
func (e *Env) Create(ctx context.Context, hostPython string) error {
	if e.Exists() {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(e.Dir), 0755); err != nil {
		return fmt.Errorf("cannot create parent of %s: %w", e.Dir, err)
	}

	res, err := e.Runner.Run(ctx, execx.Spec{
		Program: hostPython,
		Args:    []string{"-m", "venv", e.Dir},
	})
	if err != nil {
		return fmt.Errorf("venv creation failed: %w", err)
	}
	if !res.Ok() {
		return fmt.Errorf("venv creation exited %d: %s", res.ExitCode, strings.TrimSpace(res.Stderr))
	}
	return nil
}
