package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mkowalski/scrawl/internal/ui"
)

var exportOutput string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export pending stories as JSONL",
	Long: `Export the pending queue as JSON Lines, one entry per line.

Useful as a backup before 'scrawl clear', or to move unsynced stories to
another device. Restore with 'scrawl import'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.close()

		out := os.Stdout
		if exportOutput != "" {
			f, err := os.Create(exportOutput)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", exportOutput, err)
			}
			defer f.Close()
			out = f
		}

		n, err := a.queue.ExportJSONL(cmd.Context(), out)
		if err != nil {
			return err
		}

		if exportOutput != "" {
			fmt.Printf("%s exported %d pending stories to %s\n", ui.RenderSuccess("✓"), n, exportOutput)
		}
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import stories from a JSONL export",
	Long: `Import drafts from a 'scrawl export' file back into the pending queue.

Imported entries are enqueued as new local writes and synced on the next
drain.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}
		defer a.close()

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", args[0], err)
		}
		defer f.Close()

		n, err := a.queue.ImportJSONL(cmd.Context(), f)
		if err != nil {
			return err
		}

		fmt.Printf("%s imported %d stories into the pending queue\n", ui.RenderSuccess("✓"), n)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "write to file instead of stdout")
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(importCmd)
}
