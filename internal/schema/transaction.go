package schema

import (
	"fmt"
	"time"

	"github.com/Rhymond/go-money"
)

// Transaction represents a single ledger entry stored as one JSON
// document. Amounts are kept in minor units (cents) with an explicit
// ISO 4217 currency code so documents stay flat and JSON-friendly.
//
// A negative amount is an expense, a positive amount is income.
type Transaction struct {
	// ===== Core Identification =====
	ID string `json:"id"`

	// ===== Amount =====
	AmountMinor int64  `json:"amount_minor"`
	Currency    string `json:"currency"`

	// ===== Classification =====
	CategoryID string `json:"category_id,omitempty"`
	Note       string `json:"note,omitempty"`

	// ===== Timestamps =====
	OccurredAt time.Time `json:"occurred_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Money returns the transaction amount as a go-money value for
// arithmetic and display formatting.
func (t *Transaction) Money() *money.Money {
	return money.New(t.AmountMinor, t.Currency)
}

// Validate checks if the Transaction has valid field values.
func (t *Transaction) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("id is required")
	}
	if t.Currency == "" {
		return fmt.Errorf("currency is required")
	}
	if money.GetCurrency(t.Currency) == nil {
		return fmt.Errorf("unknown currency code: %q", t.Currency)
	}
	if len(t.Note) > 500 {
		return fmt.Errorf("note must be 500 characters or less (got %d)", len(t.Note))
	}
	if t.OccurredAt.IsZero() {
		return fmt.Errorf("occurred_at is required")
	}
	if t.CreatedAt.IsZero() {
		return fmt.Errorf("created_at is required")
	}
	if t.UpdatedAt.IsZero() {
		return fmt.Errorf("updated_at is required")
	}
	return nil
}
