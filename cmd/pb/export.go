package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kessler/pocketbook/internal/export"
	"github.com/kessler/pocketbook/internal/ui"
)

var exportCmd = &cobra.Command{
	Use:     "export [file]",
	GroupID: "ledger",
	Short:   "Export transactions as JSONL",
	Long:    `Export all transactions, one JSON document per line, to a file or stdout.`,
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if len(args) == 0 {
			_, err := export.ToJSONL(a.repos.Transactions, os.Stdout)
			return err
		}

		result, err := export.ExportFile(a.repos.Transactions, args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s Exported %d transaction(s) to %s\n",
			ui.RenderSuccess("✓"), result.Written, args[0])
		return nil
	},
}

var importCmd = &cobra.Command{
	Use:     "import <file>",
	GroupID: "ledger",
	Short:   "Import transactions from JSONL",
	Long: `Import transactions, one JSON document per line.

Imports go through the normal write path: each transaction is durable
locally at once and syncs to the remote store like any other change.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := export.ImportFile(a.repos.Transactions, args[0])
		if err != nil {
			return err
		}

		fmt.Printf("%s Imported %d transaction(s)\n", ui.RenderSuccess("✓"), result.Written)
		if result.Skipped > 0 {
			fmt.Printf("%s %d line(s) skipped:\n", ui.RenderWarn("!"), result.Skipped)
			for _, msg := range result.Errors {
				fmt.Printf("  %s\n", msg)
			}
		}
		printPending(a)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(exportCmd, importCmd)
}
