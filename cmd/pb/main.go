// Command pb is the pocketbook CLI: an offline-first personal finance
// tracker. Mutations always land in the local cache first; a sync
// daemon reconciles them against the remote store when connectivity
// and identity allow.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "pb",
	Short: "Offline-first personal finance tracker",
	Long: `pb tracks transactions, categories, and budgets in a durable local
cache and synchronizes them with a remote store when online.

Every write succeeds locally and immediately; remote durability is
eventually consistent and visible via 'pb status'.`,
	SilenceUsage: true,
}

func main() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "ledger", Title: "Ledger Commands:"},
		&cobra.Group{ID: "sync", Title: "Sync Commands:"},
		&cobra.Group{ID: "server", Title: "Server Commands:"},
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
