package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mkowalski/scrawl/internal/ui"
)

var pendingCountOnly bool

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List stories queued for sync",
	Long: `List the stories recorded on this device that have not yet been
confirmed by the remote store, in the order they will be synced.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.close()

		if pendingCountOnly {
			count, err := a.service.PendingCount(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Println(count)
			return nil
		}

		entries, err := a.service.ListPending(cmd.Context())
		if err != nil {
			return err
		}

		if len(entries) == 0 {
			fmt.Println(ui.RenderMuted("No pending stories."))
			return nil
		}

		fmt.Printf("%s %d pending\n\n", ui.RenderAccent("⏳"), len(entries))
		for _, e := range entries {
			fmt.Printf("  %s  %s\n", ui.RenderAccent(e.ID), e.Payload.Title)
			detail := fmt.Sprintf("queued %s", e.EnqueuedAt.Local().Format("2006-01-02 15:04"))
			if e.RetryCount > 0 {
				detail += fmt.Sprintf(", %d failed attempts", e.RetryCount)
			}
			if e.Payload.Category != "" {
				detail += ", " + e.Payload.Category
			}
			fmt.Printf("  %s\n", ui.RenderMuted(detail))
		}
		return nil
	},
}

func init() {
	pendingCmd.Flags().BoolVar(&pendingCountOnly, "count", false, "print only the pending count")
	rootCmd.AddCommand(pendingCmd)
}
