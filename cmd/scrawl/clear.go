package main

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/mkowalski/scrawl/internal/ui"
)

var clearForce bool

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Discard all queued stories",
	Long: `Discard every story queued on this device without syncing it.

The discarded stories are gone for good; this never runs automatically.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.close()

		count, err := a.service.PendingCount(cmd.Context())
		if err != nil {
			return err
		}
		if count == 0 {
			fmt.Println(ui.RenderMuted("Queue is already empty."))
			return nil
		}

		if !clearForce {
			confirmed := false
			prompt := huh.NewConfirm().
				Title(fmt.Sprintf("Discard %d queued stories?", count)).
				Description("They will never reach the shared feed.").
				Value(&confirmed)
			if err := prompt.Run(); err != nil {
				return err
			}
			if !confirmed {
				fmt.Println(ui.RenderMuted("Aborted."))
				return nil
			}
		}

		if err := a.service.DiscardPending(cmd.Context()); err != nil {
			return err
		}

		fmt.Printf("%s Discarded %d queued stories\n", ui.RenderSuccess("✓"), count)
		return nil
	},
}

func init() {
	clearCmd.Flags().BoolVarP(&clearForce, "force", "f", false, "skip confirmation")
	rootCmd.AddCommand(clearCmd)
}
