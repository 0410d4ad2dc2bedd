package app

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/murmurvoice/murmur-setup/internal/assets"
	"github.com/murmurvoice/murmur-setup/internal/bootstrap"
	"github.com/murmurvoice/murmur-setup/internal/config"
	"github.com/murmurvoice/murmur-setup/internal/execx"
	"github.com/murmurvoice/murmur-setup/internal/output"
	"github.com/murmurvoice/murmur-setup/internal/pipeline"
	"github.com/murmurvoice/murmur-setup/internal/probe"
	"github.com/murmurvoice/murmur-setup/internal/register"
	"github.com/murmurvoice/murmur-setup/internal/state"
	"github.com/murmurvoice/murmur-setup/internal/store"
	"github.com/murmurvoice/murmur-setup/internal/venv"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Provision the murmur environment end to end",
	Long: `Runs the complete provisioning pipeline in a single command.

Stages performed, in order:
  1. Find a usable Python (installing via Homebrew if needed)
  2. Create the isolated virtual environment
  3. Download the banner font and base speech model
  4. Install the speech dependencies into the environment
  5. Add the murmur block to your shell profile (with backup)
  6. Register the murmur launcher globally

The first two stages are required; a failure in any later stage is
reported with a manual command to finish that step by hand, and the run
continues. Safe to re-run at any time.`,
	RunE: runSetup,
}

func init() {
	RootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	fmt.Println("Welcome to murmur! Provisioning the dictation environment...")
	fmt.Println()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := state.Open(cfg.Paths.StateFile)
	if err != nil {
		if errors.Is(err, state.ErrLocked) {
			return fmt.Errorf("another murmur-setup run is in progress; wait for it to finish")
		}
		return err
	}
	defer log.Close()

	runner := execx.New(cfg.Exec.CommandTimeout)
	env := venv.New(cfg.Paths.VenvDir, runner)

	p := pipeline.New(cfg, log)
	p.Probe = probe.New(runner)
	p.Bootstrap = bootstrap.New(runner)
	p.Env = env
	p.Installer = &venv.Installer{Env: env, Log: log, Out: os.Stdout}
	p.Fetcher = assets.New(cfg.Paths.CacheDir, runner)
	p.Registrar = register.New()

	// The audit store is best-effort: provisioning works without it.
	if history, herr := store.New(cfg.Paths.HistoryDB); herr != nil {
		output.Warn(os.Stderr, "run history unavailable: %v", herr)
	} else {
		defer history.Close()
		p.History = history
	}

	res, runErr := p.Run(cmd.Context())
	printSummary(os.Stdout, res)
	return runErr
}

// printSummary renders the final run summary: one line per recoverable
// failure with the literal command to finish that step by hand.
func printSummary(w io.Writer, res *pipeline.Result) {
	fmt.Fprintln(w)
	if res.Success() {
		output.Ok(w, "Setup complete!")
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Restart your shell (or source your profile), then run: murmur")
		return
	}

	failures := res.Failures()
	if len(failures) == 0 {
		// Aborted before any recoverable stage could fail.
		output.Fail(w, "Setup aborted")
		return
	}

	output.Header(w, "Setup finished with %d issue(s):", len(failures))
	for _, f := range failures {
		output.Warn(w, "%s: %s — %s", f.Stage, f.Item, f.Reason)
		if f.Remediation != "" {
			output.Remediation(w, f.Remediation)
		}
	}
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Everything else is in place. Re-run 'murmur-setup setup' after fixing,")
	fmt.Fprintln(w, "or run 'murmur-setup doctor' for diagnostics.")
}
