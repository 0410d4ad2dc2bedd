package app

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/murmurvoice/murmur-setup/internal/config"
	"github.com/murmurvoice/murmur-setup/internal/output"
	"github.com/murmurvoice/murmur-setup/internal/state"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show what has been provisioned",
	RunE:  runStatus,
}

func init() {
	RootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfg.Paths.StateFile); os.IsNotExist(err) {
		fmt.Println("Nothing provisioned yet.")
		fmt.Println()
		fmt.Println("Run 'murmur-setup setup' to get started.")
		return nil
	}

	log, err := state.Open(cfg.Paths.StateFile)
	if err != nil {
		return err
	}
	defer log.Close()

	renderStatus(os.Stdout, log.Record())
	return nil
}

func renderStatus(w io.Writer, rec state.Record) {
	output.Header(w, "murmur installation status")
	fmt.Fprintf(w, "Last updated: %s\n\n", rec.InstalledAt.Local().Format("2006-01-02 15:04"))

	component(w, "Package manager", rec.Components.SystemPackageManager)
	component(w, "Python runtime", rec.Components.LanguageRuntime)
	component(w, "Virtual environment", rec.Components.IsolatedEnvironment)
	component(w, "Shell profile", rec.Components.ShellConfig)

	fmt.Fprintln(w)
	if len(rec.Components.Packages) == 0 {
		output.Warn(w, "No dependencies installed")
	} else {
		output.Ok(w, "%d dependencies installed:", len(rec.Components.Packages))
		for _, p := range rec.Components.Packages {
			fmt.Fprintf(w, "    %-16s %s\n", p.Name, p.Version)
		}
	}

	fmt.Fprintln(w)
	if len(rec.Components.Assets) == 0 {
		output.Warn(w, "No assets cached")
	} else {
		output.Ok(w, "%d assets cached:", len(rec.Components.Assets))
		for _, a := range rec.Components.Assets {
			fmt.Fprintf(w, "    %-20s %s\n", a.Name, a.Path)
		}
	}
}

// component prints one scalar component line.
func component(w io.Writer, label string, c state.ComponentStatus) {
	if !c.Installed {
		output.Warn(w, "%s: not installed", label)
		return
	}

	detail := c.Version
	if detail == "" {
		detail = c.Path
	}
	suffix := ""
	if c.InstalledBySetup {
		suffix = " (installed by murmur-setup)"
	}
	output.Ok(w, "%s: %s%s", label, detail, suffix)
}
