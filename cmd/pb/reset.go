package main

import (
	"fmt"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/kessler/pocketbook/internal/config"
	"github.com/kessler/pocketbook/internal/pocketbook"
	"github.com/kessler/pocketbook/internal/schema"
	"github.com/kessler/pocketbook/internal/ui"
)

var resetForce bool

var resetCmd = &cobra.Command{
	Use:     "reset",
	GroupID: "ledger",
	Short:   "Destroy all local data",
	Long: `Destroy the local ledger: entity snapshots and the pending sync
queue. Remote data is untouched. This cannot be undone.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !resetForce {
			confirmed := false
			form := huh.NewForm(huh.NewGroup(
				huh.NewConfirm().
					Title("Delete all local data, including unsynced changes?").
					Value(&confirmed),
			))
			if err := form.Run(); err != nil {
				return err
			}
			if !confirmed {
				fmt.Println("Aborted.")
				return nil
			}
		}

		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.queue.Clear(); err != nil {
			return err
		}
		for _, kind := range schema.Kinds {
			if err := a.store.Remove(kind.SnapshotKey()); err != nil {
				return err
			}
		}

		fmt.Printf("%s Local data cleared\n", ui.RenderSuccess("✓"))
		return nil
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path, err := config.WriteDefault(pocketbook.FindDataDir())
		if err != nil {
			return err
		}
		fmt.Printf("%s Wrote %s\n", ui.RenderSuccess("✓"), path)
		return nil
	},
}

var configCmd = &cobra.Command{
	Use:     "config",
	GroupID: "ledger",
	Short:   "Manage configuration",
}

func init() {
	resetCmd.Flags().BoolVar(&resetForce, "force", false, "skip confirmation")

	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(resetCmd, configCmd)
}
