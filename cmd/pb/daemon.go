package main

import (
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/kessler/pocketbook/internal/daemon"
	"github.com/kessler/pocketbook/internal/dashboard"
)

var daemonCmd = &cobra.Command{
	Use:     "daemon",
	GroupID: "sync",
	Short:   "Run the background sync daemon",
	Long: `Run the sync daemon in the foreground.

The daemon probes connectivity, drains the pending queue on online
transitions, local activity, and a periodic timer, and keeps the local
cache fed from the remote change stream while connected. When a
dashboard port is configured it also serves a WebSocket feed of sync
events.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		var logOut io.Writer = os.Stderr
		if a.cfg.LogFile != "" {
			logOut = io.MultiWriter(os.Stderr, &lumberjack.Logger{
				Filename:   a.cfg.LogFile,
				MaxSize:    10, // megabytes
				MaxBackups: 3,
				MaxAge:     28, // days
			})
		}
		logger := log.New(logOut, "[daemon] ", log.LstdFlags)

		cfg := daemon.DefaultConfig()
		cfg.ProbeInterval = a.cfg.ProbeInterval
		cfg.TickInterval = a.cfg.TickInterval
		cfg.Logger = logger

		d, err := daemon.New(a.manager, a.repos, a.dataDir, cfg)
		if err != nil {
			return err
		}

		if a.cfg.DashboardPort > 0 {
			dash := dashboard.NewServer(&dashboard.Config{
				Port:   a.cfg.DashboardPort,
				Logger: logger,
			})
			if err := dash.Start(); err != nil {
				return err
			}
			defer func() { _ = dash.Stop() }()

			handler := dashboard.NewHandler(dash, a.manager, logger)
			a.manager.Subscribe(handler.OnNotification)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return d.Start(ctx)
	},
}

func init() {
	rootCmd.AddCommand(daemonCmd)
}
