package app

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/murmurvoice/murmur-setup/internal/config"
)

var cfgFile string

// RootCmd is the root command for murmur-setup
var RootCmd = &cobra.Command{
	Use:   "murmur-setup",
	Short: "Provision everything the murmur dictation CLI needs",
	Long: `murmur-setup provisions the environment for murmur, the voice
dictation CLI: a Python runtime, an isolated virtual environment with the
speech dependencies, the banner font and base speech model, your shell
profile, and a globally reachable launcher.

The whole flow is idempotent: every step checks whether it is already
satisfied before doing any work, so re-running setup is always safe.

Quick Start:
  1. murmur-setup setup
  2. Restart your shell (or source your profile)
  3. murmur

Examples:
  # Provision (or repair) the environment
  murmur-setup setup

  # See what is installed
  murmur-setup status

  # Diagnose a broken installation
  murmur-setup doctor

  # Review past provisioning runs
  murmur-setup history`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		fmt.Println("murmur-setup: provisioning for the murmur dictation CLI")
		fmt.Println()
		if _, err := os.Stat(cfg.Paths.StateFile); os.IsNotExist(err) {
			fmt.Println("Run 'murmur-setup setup' to get started.")
			fmt.Println("Run 'murmur-setup --help' for the full reference.")
		} else {
			fmt.Println("Tip: Run 'murmur-setup status' to see what is installed.")
			fmt.Println("     Run 'murmur-setup doctor' to diagnose problems.")
			fmt.Println("     Run 'murmur-setup --help' for all commands.")
		}
		return nil
	},
}

func init() {
	// Global flags
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.config/murmur/setup.toml)")
	RootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		if cfgFile != "" {
			os.Setenv("MURMUR_SETUP_CONFIG", cfgFile)
		}
	}

	RootCmd.SuggestionsMinimumDistance = 2
}

// Execute runs the root command
func Execute() error {
	return RootCmd.Execute()
}
