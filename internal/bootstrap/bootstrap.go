// Package bootstrap provisions the system package manager (Homebrew) and
// the Python runtime when the environment probe finds neither.
package bootstrap

import (
	"context"
	"fmt"
	"runtime"
	"strings"

	"github.com/murmurvoice/murmur-setup/internal/execx"
)

// The official non-interactive Homebrew installer. NONINTERACTIVE suppresses
// the confirmation prompt so the pipeline never blocks on input.
const brewInstallScript = `NONINTERACTIVE=1 /bin/bash -c "$(curl -fsSL https://raw.githubusercontent.com/Homebrew/install/HEAD/install.sh)"`

// Bootstrapper installs Homebrew and brew formulae through the typed
// command runner.
type Bootstrapper struct {
	Runner execx.Runner

	// GOOS is overridable in tests; defaults to runtime.GOOS.
	GOOS string
}

// New returns a Bootstrapper for the current platform.
func New(r execx.Runner) *Bootstrapper {
	return &Bootstrapper{Runner: r, GOOS: runtime.GOOS}
}

// SupportsAutomatedPath reports whether this platform has a supported
// automated provisioning path: darwin always (Homebrew can be
// bootstrapped), anything else only when brew is already present.
func (b *Bootstrapper) SupportsAutomatedPath(ctx context.Context) bool {
	if b.GOOS == "darwin" {
		return true
	}
	return b.HasBrew(ctx)
}

// HasBrew reports whether the brew command responds.
func (b *Bootstrapper) HasBrew(ctx context.Context) bool {
	res, err := b.Runner.Run(ctx, execx.Spec{Program: "brew", Args: []string{"--version"}})
	return err == nil && res.Ok()
}

// EnsureBrew installs Homebrew if it is missing. Returns true when this
// call performed the install (as opposed to brew already being present).
func (b *Bootstrapper) EnsureBrew(ctx context.Context) (bool, error) {
	if b.HasBrew(ctx) {
		return false, nil
	}
	if b.GOOS != "darwin" {
		return false, fmt.Errorf("no automated Homebrew bootstrap on %s", b.GOOS)
	}

	res, err := b.Runner.Run(ctx, execx.Spec{
		Program: "/bin/bash",
		Args:    []string{"-c", brewInstallScript},
	})
	if err != nil {
		return false, fmt.Errorf("homebrew bootstrap failed: %w", err)
	}
	if !res.Ok() {
		return false, fmt.Errorf("homebrew bootstrap exited %d: %s", res.ExitCode, firstLine(res.Stderr))
	}
	return true, nil
}

// InstallRuntime installs the Python runtime formula via brew.
func (b *Bootstrapper) InstallRuntime(ctx context.Context, formula string) error {
	res, err := b.Runner.Run(ctx, execx.Spec{Program: "brew", Args: []string{"install", formula}})
	if err != nil {
		return fmt.Errorf("brew install %s failed: %w", formula, err)
	}
	if !res.Ok() {
		return fmt.Errorf("brew install %s exited %d: %s", formula, res.ExitCode, firstLine(res.Stderr))
	}
	return nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, '\n'); idx >= 0 {
		return s[:idx]
	}
	return s
}
