package venv

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/murmurvoice/murmur-setup/internal/config"
	"github.com/murmurvoice/murmur-setup/internal/execx"
	"github.com/murmurvoice/murmur-setup/internal/output"
)

// PackageLog receives per-package install records. Satisfied by
// *state.Log.
type PackageLog interface {
	UpsertPackage(name, version string) error
}

// InstallResult summarizes a dependency-install pass.
type InstallResult struct {
	Installed []string
	Failed    []string
}

// Success reports whether every dependency installed.
func (r InstallResult) Success() bool {
	return len(r.Failed) == 0
}

// Installer installs Python dependencies into the environment
// sequentially, recording each outcome in the installation log.
type Installer struct {
	Env *Env
	Log PackageLog
	Out io.Writer
}

// Install runs pip for each descriptor in order. One item's failure never
// blocks the rest; failures are collected and reported in the result.
func (i *Installer) Install(ctx context.Context, pkgs []config.PackageConfig) InstallResult {
	var result InstallResult

	bar := output.NewProgress(len(pkgs), "Installing dependencies")
	if i.Out != nil {
		bar.SetWriter(i.Out)
	}

	for idx, pkg := range pkgs {
		bar.SetLabel(fmt.Sprintf("Installing %s (%d/%d)", pkg.Name, idx+1, len(pkgs)))

		if err := i.installOne(ctx, pkg.Name); err != nil {
			result.Failed = append(result.Failed, pkg.Name)
			bar.Increment()
			continue
		}

		version := i.installedVersion(ctx, pkg.Name)
		if version == "" {
			version = "unknown"
		}
		if i.Log != nil {
			// A log write failure is a warning, not an install failure.
			_ = i.Log.UpsertPackage(pkg.Name, version)
		}

		result.Installed = append(result.Installed, pkg.Name)
		bar.Increment()
	}
	bar.Finish()

	return result
}

// installOne runs pip install for a single package, latest version.
func (i *Installer) installOne(ctx context.Context, name string) error {
	res, err := i.Env.Runner.Run(ctx, execx.Spec{
		Program: i.Env.Python(),
		Args:    []string{"-m", "pip", "install", name},
	})
	if err != nil {
		return fmt.Errorf("pip install %s failed: %w", name, err)
	}
	if !res.Ok() {
		return fmt.Errorf("pip install %s exited %d", name, res.ExitCode)
	}
	return nil
}

// installedVersion queries pip for the version that ended up installed.
// Returns "" when the query fails or the output has no Version line.
func (i *Installer) installedVersion(ctx context.Context, name string) string {
	res, err := i.Env.Runner.Run(ctx, execx.Spec{
		Program: i.Env.Python(),
		Args:    []string{"-m", "pip", "show", name},
	})
	if err != nil || !res.Ok() {
		return ""
	}

	for _, line := range strings.Split(res.Stdout, "\n") {
		if v, ok := strings.CutPrefix(line, "Version:"); ok {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// RemediationCommand returns the literal pip command a user can run by
// hand to retry a failed dependency.
func (i *Installer) RemediationCommand(name string) string {
	return execx.Spec{Program: i.Env.Python(), Args: []string{"-m", "pip", "install", name}}.String()
}
