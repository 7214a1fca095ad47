package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/kessler/pocketbook/internal/server"
)

var (
	servePort   int
	serveSecret string
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	GroupID: "server",
	Short:   "Run the reference remote store",
	Long: `Run the reference remote store in the foreground.

This is the self-hosted counterpart of 'pb sync' and 'pb daemon': an
HTTP document store scoped per authenticated user, with WebSocket
change feeds. Tokens are HS256 JWTs signed with --secret; mint one
with 'pb login --dev-subject you --dev-secret <secret>'.

Documents live in memory; this server is for personal self-hosting and
testing, not multi-tenant production use.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if serveSecret == "" {
			serveSecret = os.Getenv("POCKETBOOK_SERVER_SECRET")
		}
		if serveSecret == "" {
			return fmt.Errorf("--secret (or POCKETBOOK_SERVER_SECRET) is required")
		}

		logger := log.New(os.Stderr, "[serve] ", log.LstdFlags)
		srv := server.New(serveSecret, logger)

		addr := fmt.Sprintf(":%d", servePort)
		httpSrv := &http.Server{
			Addr:              addr,
			Handler:           srv.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		logger.Printf("Remote store listening on %s", addr)
		return httpSrv.ListenAndServe()
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 8318, "listen port")
	serveCmd.Flags().StringVar(&serveSecret, "secret", "", "shared HS256 token secret")

	rootCmd.AddCommand(serveCmd)
}
