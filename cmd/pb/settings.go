package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kessler/pocketbook/internal/ui"
)

var settingsCmd = &cobra.Command{
	Use:     "settings",
	GroupID: "ledger",
	Short:   "Show or change user settings",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		s, err := a.repos.Settings.Get()
		if err != nil {
			return err
		}

		fmt.Printf("Display currency: %s\n", s.DisplayCurrency)
		fmt.Printf("Week starts on:   %s\n", s.WeekStart)
		if s.Locale != "" {
			fmt.Printf("Locale:           %s\n", s.Locale)
		}
		fmt.Printf("Notifications:    %v\n", s.NotificationsEnabled)
		return nil
	},
}

var (
	setCurrency      string
	setWeekStart     string
	setLocale        string
	setNotifications string
)

var settingsSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change settings",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		s, err := a.repos.Settings.Get()
		if err != nil {
			return err
		}

		changed := false
		if setCurrency != "" {
			s.DisplayCurrency = setCurrency
			changed = true
		}
		if setWeekStart != "" {
			s.WeekStart = setWeekStart
			changed = true
		}
		if setLocale != "" {
			s.Locale = setLocale
			changed = true
		}
		switch setNotifications {
		case "":
		case "on":
			s.NotificationsEnabled = true
			changed = true
		case "off":
			s.NotificationsEnabled = false
			changed = true
		default:
			return fmt.Errorf("--notifications must be \"on\" or \"off\"")
		}

		if !changed {
			return fmt.Errorf("nothing to change; see --help for flags")
		}

		if err := a.repos.Settings.Set(s); err != nil {
			return err
		}
		fmt.Printf("%s Settings updated\n", ui.RenderSuccess("✓"))
		printPending(a)
		return nil
	},
}

func init() {
	settingsSetCmd.Flags().StringVar(&setCurrency, "currency", "", "display currency (ISO 4217)")
	settingsSetCmd.Flags().StringVar(&setWeekStart, "week-start", "", "first day of week: monday or sunday")
	settingsSetCmd.Flags().StringVar(&setLocale, "locale", "", "locale tag, e.g. en-US")
	settingsSetCmd.Flags().StringVar(&setNotifications, "notifications", "", "enable notifications: on or off")

	settingsCmd.AddCommand(settingsShowCmd, settingsSetCmd)
	rootCmd.AddCommand(settingsCmd)
}
