package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mkowalski/scrawl/internal/ui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show connectivity and queue state",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.close()

		st := a.service.Connectivity(cmd.Context())
		count, err := a.service.PendingCount(cmd.Context())
		if err != nil {
			return err
		}

		if st.Online() {
			fmt.Printf("Connectivity: %s\n", ui.RenderSuccess(st.String()))
		} else {
			fmt.Printf("Connectivity: %s\n", ui.RenderWarn(st.String()))
		}
		fmt.Printf("Pending:      %d\n", count)
		fmt.Printf("Remote:       %s\n", ui.RenderMuted(a.cfg.RemoteURL))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
