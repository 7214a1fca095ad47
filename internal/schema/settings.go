package schema

import (
	"fmt"
	"time"

	"github.com/Rhymond/go-money"
)

// SettingsID is the fixed document id of the settings singleton. There
// is exactly one settings record per user.
const SettingsID = "settings"

// Settings holds the per-user preferences singleton.
type Settings struct {
	ID string `json:"id"`

	// DisplayCurrency is the ISO 4217 code amounts are rendered in.
	DisplayCurrency string `json:"display_currency"`

	// WeekStart is the first day of the week for reports: "monday" or
	// "sunday".
	WeekStart string `json:"week_start"`

	Locale               string `json:"locale,omitempty"`
	NotificationsEnabled bool   `json:"notifications_enabled"`

	UpdatedAt time.Time `json:"updated_at"`
}

// DefaultSettings returns the settings document used before the user
// has saved any preferences.
func DefaultSettings() *Settings {
	return &Settings{
		ID:              SettingsID,
		DisplayCurrency: "USD",
		WeekStart:       "monday",
		UpdatedAt:       time.Now().UTC(),
	}
}

// Validate checks if the Settings has valid field values.
func (s *Settings) Validate() error {
	if s.ID != SettingsID {
		return fmt.Errorf("settings id must be %q (got %q)", SettingsID, s.ID)
	}
	if s.DisplayCurrency == "" {
		return fmt.Errorf("display_currency is required")
	}
	if money.GetCurrency(s.DisplayCurrency) == nil {
		return fmt.Errorf("unknown currency code: %q", s.DisplayCurrency)
	}
	if s.WeekStart != "monday" && s.WeekStart != "sunday" {
		return fmt.Errorf("week_start must be \"monday\" or \"sunday\" (got %q)", s.WeekStart)
	}
	if s.UpdatedAt.IsZero() {
		return fmt.Errorf("updated_at is required")
	}
	return nil
}
