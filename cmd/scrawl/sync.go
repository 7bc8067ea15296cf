package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mkowalski/scrawl/internal/ui"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync queued stories to the remote store now",
	Long: `Run one reconciliation pass over the pending queue.

Each queued story is sent to the remote store: confirmed stories are removed
from the queue, failed ones stay queued with their retry count bumped, and
stories that have exhausted the retry ceiling are dropped and reported.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.close()

		fmt.Printf("%s Syncing...\n", ui.RenderAccent("🔄"))

		report, err := a.service.ForceSync(cmd.Context())
		if err != nil {
			return err
		}

		if report.Total() == 0 {
			fmt.Println(ui.RenderMuted("Nothing to sync."))
			return nil
		}

		for _, s := range report.Synced {
			fmt.Printf("  %s %s -> %s\n", ui.RenderSuccess("✓"), s.ID, s.RemoteID)
		}
		for _, r := range report.Retried {
			fmt.Printf("  %s %s (attempt %d failed, still queued)\n", ui.RenderWarn("↻"), r.ID, r.RetryCount)
		}
		for _, d := range report.Dropped {
			fmt.Printf("  %s %s dropped (%q)\n", ui.RenderError("✗"), d.ID, d.Draft.Title)
		}

		fmt.Printf("\nSynced %d, retried %d, dropped %d in %s\n",
			len(report.Synced), len(report.Retried), len(report.Dropped),
			report.Finished.Sub(report.Started).Round(time.Millisecond))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
