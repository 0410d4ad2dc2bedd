package app

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/murmurvoice/murmur-setup/internal/config"
	"github.com/murmurvoice/murmur-setup/internal/store"
)

var historyRuns int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent provisioning runs",
	Long: `Lists recent provisioning runs from the audit store, newest first,
with the per-stage breakdown of the most recent run.`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().IntVarP(&historyRuns, "runs", "n", 10, "number of runs to show")
	RootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if _, err := os.Stat(cfg.Paths.HistoryDB); os.IsNotExist(err) {
		fmt.Println("No provisioning runs recorded yet.")
		return nil
	}

	history, err := store.New(cfg.Paths.HistoryDB)
	if err != nil {
		return fmt.Errorf("cannot open run history: %w", err)
	}
	defer history.Close()

	runs, err := history.ListRuns(historyRuns)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("No provisioning runs recorded yet.")
		return nil
	}

	var latest []*store.StageEvent
	if events, err := history.ListStageEvents(runs[0].ID); err == nil {
		latest = events
	}

	renderRuns(os.Stdout, runs, latest)
	return nil
}

// renderRuns prints the run list and, for the most recent run, its stage
// breakdown.
func renderRuns(w io.Writer, runs []*store.Run, latest []*store.StageEvent) {
	for _, r := range runs {
		duration := ""
		if !r.FinishedAt.IsZero() {
			duration = r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
		}
		fmt.Fprintf(w, "#%-4d %s  %-8s %s\n",
			r.ID, r.StartedAt.Local().Format("2006-01-02 15:04"), r.Status, duration)
	}

	if len(latest) == 0 {
		return
	}
	fmt.Fprintf(w, "\nStages of run #%d:\n", latest[0].RunID)
	for _, e := range latest {
		detail := e.Detail
		if detail != "" {
			detail = "  " + detail
		}
		fmt.Fprintf(w, "  %-14s %-8s %8s%s\n", e.Stage, e.Status, e.Duration.Round(time.Millisecond), detail)
	}
}
