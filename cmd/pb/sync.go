package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	syncmgr "github.com/kessler/pocketbook/internal/sync"
	"github.com/kessler/pocketbook/internal/ui"
)

var syncCmd = &cobra.Command{
	Use:     "sync",
	GroupID: "sync",
	Short:   "Drain pending changes to the remote store now",
	Long: `Run one drain cycle against the remote store.

Each pending change is applied in the order it was made. Changes that
keep failing are retried on later cycles and eventually dropped with a
notification, after 5 failed attempts or 7 days in the queue,
whichever comes first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		pending := a.queue.Len()
		if pending == 0 {
			fmt.Println("Nothing to sync.")
			return nil
		}
		if !a.manager.CanSync() {
			status := a.manager.Status()
			if !status.Online {
				return fmt.Errorf("remote store is unreachable; changes stay queued (%d pending)", pending)
			}
			return fmt.Errorf("not logged in; run 'pb login' first (%d pending)", pending)
		}

		a.manager.Subscribe(func(n syncmgr.Notification) {
			switch n.(type) {
			case syncmgr.SyncSucceeded:
				fmt.Printf("%s %s\n", ui.RenderSuccess("✓"), n.Message())
			case syncmgr.OpAbandoned:
				fmt.Printf("%s %s\n", ui.RenderWarn("!"), n.Message())
			}
		})

		if err := a.manager.Drain(cmd.Context()); err != nil {
			return err
		}
		if left := a.queue.Len(); left > 0 {
			fmt.Printf("%s\n", ui.RenderFaint(fmt.Sprintf("%d change(s) still pending", left)))
		}
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:     "status",
	GroupID: "sync",
	Short:   "Show sync status",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		status := a.manager.Status()

		online := ui.RenderError("offline")
		if status.Online {
			online = ui.RenderSuccess("online")
		}
		fmt.Printf("Remote store: %s\n", online)
		fmt.Printf("Pending:      %d change(s)\n", status.Pending)
		if status.LastSync.IsZero() {
			fmt.Println("Last sync:    never")
		} else {
			fmt.Printf("Last sync:    %s (%s ago)\n",
				status.LastSync.Format(time.RFC3339),
				time.Since(status.LastSync).Round(time.Second))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd, statusCmd)
}
