// Package probe detects already-satisfied preconditions so that every
// setup stage can short-circuit instead of re-running external installs.
package probe

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	goversion "github.com/hashicorp/go-version"

	"github.com/murmurvoice/murmur-setup/internal/execx"
)

// ErrNotFound is returned when no candidate satisfies the version
// requirement. Callers decide whether that is fatal or a reason to
// attempt provisioning.
var ErrNotFound = errors.New("no suitable runtime found")

// Runtime identifies a usable runtime command on the host.
type Runtime struct {
	Command string
	Version string
}

// Probe runs version queries through the typed command runner.
type Probe struct {
	Runner execx.Runner
}

// New returns a Probe using the given runner.
func New(r execx.Runner) *Probe {
	return &Probe{Runner: r}
}

var versionToken = regexp.MustCompile(`\d+\.\d+(\.\d+)?`)

// FindRuntime probes each candidate command in order with a version query
// and returns the first whose reported version meets min. Candidates that
// are missing, fail, or produce unparseable output are skipped.
func (p *Probe) FindRuntime(ctx context.Context, candidates []string, min string) (Runtime, error) {
	minVer, err := goversion.NewVersion(min)
	if err != nil {
		return Runtime{}, fmt.Errorf("invalid minimum version %q: %w", min, err)
	}

	for _, cand := range candidates {
		res, err := p.Runner.Run(ctx, execx.Spec{Program: cand, Args: []string{"--version"}})
		if err != nil || !res.Ok() {
			continue
		}

		ver := parseVersionLine(res.Stdout)
		if ver == "" {
			// Some runtimes print the version banner on stderr.
			ver = parseVersionLine(res.Stderr)
		}
		if ver == "" {
			continue
		}

		got, err := goversion.NewVersion(ver)
		if err != nil {
			continue
		}
		if got.GreaterThanOrEqual(minVer) {
			return Runtime{Command: cand, Version: ver}, nil
		}
	}

	return Runtime{}, ErrNotFound
}

// HasCommand reports whether name responds successfully to a version
// query. Used for the secondary package-manager presence check.
func (p *Probe) HasCommand(ctx context.Context, name string) bool {
	res, err := p.Runner.Run(ctx, execx.Spec{Program: name, Args: []string{"--version"}})
	return err == nil && res.Ok()
}

// parseVersionLine extracts the first major.minor[.patch] token from the
// first line of a version banner like "Python 3.12.1".
func parseVersionLine(out string) string {
	line := out
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}
	return versionToken.FindString(line)
}
