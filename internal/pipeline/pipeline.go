// Package pipeline sequences the provisioning stages: runtime, isolated
// environment, assets, dependencies, shell profile, and global
// registration. Stages run strictly in order; each one is classified
// fatal or recoverable and checks whether it is already satisfied before
// doing any work.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/murmurvoice/murmur-setup/internal/assets"
	"github.com/murmurvoice/murmur-setup/internal/bootstrap"
	"github.com/murmurvoice/murmur-setup/internal/config"
	"github.com/murmurvoice/murmur-setup/internal/output"
	"github.com/murmurvoice/murmur-setup/internal/probe"
	"github.com/murmurvoice/murmur-setup/internal/register"
	"github.com/murmurvoice/murmur-setup/internal/shell"
	"github.com/murmurvoice/murmur-setup/internal/state"
	"github.com/murmurvoice/murmur-setup/internal/store"
	"github.com/murmurvoice/murmur-setup/internal/venv"
)

// Stage names, in execution order.
const (
	StageRuntime      = "runtime"
	StageEnvironment  = "environment"
	StageAssets       = "assets"
	StageDependencies = "dependencies"
	StageShell        = "shell"
	StageRegister     = "register"
)

// Stage statuses.
const (
	StatusOK      = "ok"
	StatusSkipped = "skipped"
	StatusFailed  = "failed"
)

// Failure is one recoverable sub-item failure with the literal command
// the user can run by hand.
type Failure struct {
	Stage       string
	Item        string
	Reason      string
	Remediation string
}

// StageResult is the outcome of one stage.
type StageResult struct {
	Stage    string
	Status   string
	Detail   string
	Failures []Failure
}

// Result summarizes a full pipeline run.
type Result struct {
	Stages []StageResult
}

// Success reports whether every stage completed without failures.
func (r *Result) Success() bool {
	for _, s := range r.Stages {
		if s.Status == StatusFailed || len(s.Failures) > 0 {
			return false
		}
	}
	return true
}

// Failures returns every recoverable sub-item failure across all stages.
func (r *Result) Failures() []Failure {
	var out []Failure
	for _, s := range r.Stages {
		out = append(out, s.Failures...)
	}
	return out
}

// Pipeline wires the stage implementations together. History is optional:
// when nil, no audit rows are written; a history write failure is only a
// warning and never affects the run.
type Pipeline struct {
	Config    config.Config
	Log       *state.Log
	Probe     *probe.Probe
	Bootstrap *bootstrap.Bootstrapper
	Env       *venv.Env
	Installer *venv.Installer
	Fetcher   *assets.Fetcher
	Registrar *register.Registrar
	History   *store.Store
	Out       io.Writer

	// EnsureShell is swapped in tests; defaults to shell.EnsureProfileBlock.
	EnsureShell func(binDir string) (shell.Result, error)

	now func() time.Time
}

// New assembles a Pipeline from its stage implementations.
func New(cfg config.Config, log *state.Log) *Pipeline {
	return &Pipeline{
		Config:      cfg,
		Log:         log,
		Out:         os.Stdout,
		EnsureShell: shell.EnsureProfileBlock,
		now:         time.Now,
	}
}

// Run executes the stages in order. A returned error means a fatal stage
// failed and the run aborted; recoverable failures land in the Result.
func (p *Pipeline) Run(ctx context.Context) (*Result, error) {
	if p.EnsureShell == nil {
		p.EnsureShell = shell.EnsureProfileBlock
	}
	if p.now == nil {
		p.now = time.Now
	}

	res := &Result{}
	runID := p.beginRun()

	// Fatal stages first: nothing downstream works without a runtime and
	// an environment to install into.
	rt, err := p.runStage(res, runID, StageRuntime, func() (StageResult, error) {
		return p.ensureRuntime(ctx)
	})
	if err != nil {
		p.finishRun(runID, store.RunStatusFailed)
		return res, err
	}

	if _, err := p.runStage(res, runID, StageEnvironment, func() (StageResult, error) {
		return p.ensureEnvironment(ctx, rt)
	}); err != nil {
		p.finishRun(runID, store.RunStatusFailed)
		return res, err
	}

	// Recoverable stages: failures are collected, never propagated.
	p.mustNotFail(res, runID, StageAssets, func() StageResult { return p.fetchAssets(ctx) })
	p.mustNotFail(res, runID, StageDependencies, func() StageResult { return p.installDependencies(ctx) })
	p.mustNotFail(res, runID, StageShell, func() StageResult { return p.configureShell() })
	p.mustNotFail(res, runID, StageRegister, func() StageResult { return p.registerLauncher() })

	if res.Success() {
		p.finishRun(runID, store.RunStatusSuccess)
	} else {
		p.finishRun(runID, store.RunStatusPartial)
	}
	return res, nil
}

// runStage times a fatal stage and records its audit row. The returned
// string carries stage-specific context (the runtime command).
func (p *Pipeline) runStage(res *Result, runID int64, name string, fn func() (StageResult, error)) (string, error) {
	start := p.now()
	sr, err := fn()
	sr.Stage = name
	for i := range sr.Failures {
		sr.Failures[i].Stage = name
	}
	res.Stages = append(res.Stages, sr)
	p.recordStage(runID, sr, p.now().Sub(start))
	p.report(sr)
	if err != nil {
		return "", err
	}
	return sr.Detail, nil
}

// mustNotFail runs a recoverable stage: whatever happens inside is
// already folded into the StageResult.
func (p *Pipeline) mustNotFail(res *Result, runID int64, name string, fn func() StageResult) {
	start := p.now()
	sr := fn()
	sr.Stage = name
	for i := range sr.Failures {
		sr.Failures[i].Stage = name
	}
	res.Stages = append(res.Stages, sr)
	p.recordStage(runID, sr, p.now().Sub(start))
	p.report(sr)
}

// ensureRuntime finds a usable Python or provisions one via Homebrew.
// Fatal when the platform has no automated path or provisioning fails.
// Detail carries the runtime command for the environment stage.
func (p *Pipeline) ensureRuntime(ctx context.Context) (StageResult, error) {
	rc := p.Config.Runtime

	rt, err := p.Probe.FindRuntime(ctx, rc.Candidates, rc.MinVersion)
	if err == nil {
		p.setComponent(state.ComponentLanguageRuntime, func(c *state.ComponentStatus) {
			c.Installed = true
			c.Path = rt.Command
			c.Version = rt.Version
		})
		return StageResult{Status: StatusSkipped, Detail: rt.Command}, nil
	}
	if !errors.Is(err, probe.ErrNotFound) {
		return StageResult{Status: StatusFailed}, err
	}

	if !p.Bootstrap.SupportsAutomatedPath(ctx) {
		return StageResult{Status: StatusFailed},
			fmt.Errorf("python >= %s not found and no automated install path on this platform; install it manually and re-run", rc.MinVersion)
	}

	bootstrapped, err := p.spin("Checking for Homebrew", func() (bool, error) {
		return p.Bootstrap.EnsureBrew(ctx)
	})
	if err != nil {
		return StageResult{Status: StatusFailed}, err
	}
	p.setComponent(state.ComponentSystemPackageManager, func(c *state.ComponentStatus) {
		c.Installed = true
		c.InstalledBySetup = bootstrapped
	})

	if _, err := p.spin("Installing "+rc.BrewFormula, func() (bool, error) {
		return false, p.Bootstrap.InstallRuntime(ctx, rc.BrewFormula)
	}); err != nil {
		return StageResult{Status: StatusFailed}, err
	}

	rt, err = p.Probe.FindRuntime(ctx, rc.Candidates, rc.MinVersion)
	if err != nil {
		return StageResult{Status: StatusFailed},
			fmt.Errorf("python still not usable after installing %s: %w", rc.BrewFormula, err)
	}

	p.setComponent(state.ComponentLanguageRuntime, func(c *state.ComponentStatus) {
		c.Installed = true
		c.Path = rt.Command
		c.Version = rt.Version
		c.InstalledBySetup = true
	})
	return StageResult{Status: StatusOK, Detail: rt.Command}, nil
}

// ensureEnvironment creates the venv unless its directory already exists.
func (p *Pipeline) ensureEnvironment(ctx context.Context, hostPython string) (StageResult, error) {
	if p.Env.Exists() {
		return StageResult{Status: StatusSkipped, Detail: p.Env.Dir}, nil
	}

	if err := p.Env.Create(ctx, hostPython); err != nil {
		return StageResult{Status: StatusFailed}, err
	}
	p.setComponent(state.ComponentIsolatedEnvironment, func(c *state.ComponentStatus) {
		c.Installed = true
		c.Path = p.Env.Dir
		c.InstalledBySetup = true
	})
	return StageResult{Status: StatusOK, Detail: p.Env.Dir}, nil
}

// fetchAssets provisions each configured asset. A single asset failure
// never blocks the others.
func (p *Pipeline) fetchAssets(ctx context.Context) StageResult {
	sr := StageResult{Status: StatusOK}

	for _, ac := range p.Config.Assets {
		a := assets.Asset{
			Name:       ac.Name,
			URL:        ac.URL,
			Archive:    ac.Archive,
			Marker:     ac.Marker,
			Extensions: ac.Extensions,
			FileName:   ac.FileName,
		}
		path, err := p.Fetcher.Fetch(ctx, a)
		if err != nil {
			sr.Failures = append(sr.Failures, Failure{
				Item:        ac.Name,
				Reason:      err.Error(),
				Remediation: fmt.Sprintf("curl -L -o %s %s", p.Fetcher.DestPath(a), ac.URL),
			})
			continue
		}
		if err := p.Log.UpsertAsset(ac.Name, path); err != nil {
			p.warn("cannot record asset %s: %v", ac.Name, err)
		}
	}
	return sr
}

// installDependencies delegates to the installer, which records each
// success in the log itself.
func (p *Pipeline) installDependencies(ctx context.Context) StageResult {
	sr := StageResult{Status: StatusOK}

	ir := p.Installer.Install(ctx, p.Config.Packages)
	for _, name := range ir.Failed {
		sr.Failures = append(sr.Failures, Failure{
			Item:        name,
			Reason:      "install command failed",
			Remediation: p.Installer.RemediationCommand(name),
		})
	}
	sr.Detail = fmt.Sprintf("%d/%d installed", len(ir.Installed), len(ir.Installed)+len(ir.Failed))
	return sr
}

// configureShell appends the murmur block to the user's profile, backing
// it up first. Recoverable: a failure means manual configuration.
func (p *Pipeline) configureShell() StageResult {
	binDir := filepath.Dir(p.Env.Python())

	res, err := p.EnsureShell(binDir)
	if err != nil {
		return StageResult{
			Status: StatusOK,
			Failures: []Failure{{
				Item:        "shell profile",
				Reason:      err.Error(),
				Remediation: fmt.Sprintf("echo 'export PATH=\"%s:$PATH\"' >> %s", binDir, res.ProfilePath),
			}},
		}
	}

	p.setComponent(state.ComponentShellConfig, func(c *state.ComponentStatus) {
		c.Installed = true
		c.Path = res.ProfilePath
		c.BackupPath = res.BackupPath
		c.InstalledBySetup = res.Changed
	})
	if !res.Changed {
		return StageResult{Status: StatusSkipped, Detail: res.ProfilePath}
	}
	return StageResult{Status: StatusOK, Detail: res.ProfilePath}
}

// registerLauncher symlinks the launcher into a global bin directory.
// Verification is by path-existence probing, not command success.
func (p *Pipeline) registerLauncher() StageResult {
	if link, ok := p.Registrar.Registered(); ok {
		return StageResult{Status: StatusSkipped, Detail: link}
	}

	launcher := filepath.Join(filepath.Dir(p.Env.Python()), "murmur")
	link, err := p.Registrar.Register(launcher)
	if err != nil {
		return StageResult{
			Status: StatusOK,
			Failures: []Failure{{
				Item:        "global launcher",
				Reason:      err.Error(),
				Remediation: p.Registrar.ManualInstruction(launcher),
			}},
		}
	}
	return StageResult{Status: StatusOK, Detail: link}
}

// spin runs a long external operation behind a spinner. The spinner is a
// cosmetic ticker only; it is stopped deterministically when fn returns.
func (p *Pipeline) spin(message string, fn func() (bool, error)) (bool, error) {
	sp := output.NewSpinner(message)
	if p.Out != nil {
		sp.SetWriter(p.Out)
	}
	sp.Start()
	defer sp.Stop()
	return fn()
}

func (p *Pipeline) setComponent(key state.ComponentKey, mutate func(*state.ComponentStatus)) {
	if err := p.Log.SetComponent(key, mutate); err != nil {
		p.warn("cannot persist %s state: %v", key, err)
	}
}

// report prints one stage line to Out.
func (p *Pipeline) report(sr StageResult) {
	if p.Out == nil {
		return
	}
	switch {
	case sr.Status == StatusFailed:
		output.Fail(p.Out, "%s failed", sr.Stage)
	case len(sr.Failures) > 0:
		output.Warn(p.Out, "%s completed with %d failure(s)", sr.Stage, len(sr.Failures))
	case sr.Status == StatusSkipped:
		output.Ok(p.Out, "%s already satisfied", sr.Stage)
	default:
		output.Ok(p.Out, "%s done", sr.Stage)
	}
}

func (p *Pipeline) warn(format string, args ...any) {
	if p.Out != nil {
		output.Warn(p.Out, format, args...)
	}
}

// Audit rows are best-effort: the history store failing never affects
// the run.

func (p *Pipeline) beginRun() int64 {
	if p.History == nil {
		return 0
	}
	id, err := p.History.BeginRun(p.now())
	if err != nil {
		p.warn("cannot record run start: %v", err)
		return 0
	}
	return id
}

func (p *Pipeline) recordStage(runID int64, sr StageResult, d time.Duration) {
	if p.History == nil || runID == 0 {
		return
	}
	status := sr.Status
	if len(sr.Failures) > 0 && status != StatusFailed {
		status = "partial"
	}
	if err := p.History.RecordStageEvent(runID, sr.Stage, status, sr.Detail, d); err != nil {
		p.warn("cannot record %s stage event: %v", sr.Stage, err)
	}
}

func (p *Pipeline) finishRun(runID int64, status string) {
	if p.History == nil || runID == 0 {
		return
	}
	if err := p.History.FinishRun(runID, status, p.now()); err != nil {
		p.warn("cannot record run finish: %v", err)
	}
}
