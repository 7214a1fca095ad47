package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kessler/pocketbook/internal/pocketbook"
	"github.com/kessler/pocketbook/internal/remote"
	"github.com/kessler/pocketbook/internal/server"
	"github.com/kessler/pocketbook/internal/ui"
)

var (
	loginToken      string
	loginDevSubject string
	loginDevSecret  string
)

var loginCmd = &cobra.Command{
	Use:     "login",
	GroupID: "sync",
	Short:   "Store the remote store credential",
	Long: `Store the JWT used to authenticate against the remote store.

Normally the token comes from the store operator (--token). Against a
self-hosted 'pb serve' instance, --dev-subject/--dev-secret mint a
token locally with the server's shared secret.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dataDir := pocketbook.FindDataDir()

		token := loginToken
		if token == "" {
			if loginDevSubject == "" || loginDevSecret == "" {
				return fmt.Errorf("either --token or both --dev-subject and --dev-secret are required")
			}
			var err error
			token, err = server.MintToken(loginDevSecret, loginDevSubject, 90*24*time.Hour)
			if err != nil {
				return err
			}
		}

		id, err := remote.SaveIdentity(dataDir, token)
		if err != nil {
			return err
		}

		fmt.Printf("%s Logged in as %s\n", ui.RenderSuccess("✓"), id.Subject)
		if !id.Expiry.IsZero() {
			fmt.Printf("%s\n", ui.RenderFaint("token expires "+id.Expiry.Format(time.RFC3339)))
		}
		return nil
	},
}

var logoutCmd = &cobra.Command{
	Use:     "logout",
	GroupID: "sync",
	Short:   "Forget the stored credential",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := remote.RemoveIdentity(pocketbook.FindDataDir()); err != nil {
			return err
		}
		fmt.Printf("%s Logged out; new changes will queue locally\n", ui.RenderSuccess("✓"))
		return nil
	},
}

func init() {
	loginCmd.Flags().StringVar(&loginToken, "token", "", "JWT issued by the remote store")
	loginCmd.Flags().StringVar(&loginDevSubject, "dev-subject", "", "mint a token for this subject (self-hosted)")
	loginCmd.Flags().StringVar(&loginDevSecret, "dev-secret", "", "shared HS256 secret of the self-hosted server")

	rootCmd.AddCommand(loginCmd, logoutCmd)
}
