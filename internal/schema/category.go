package schema

import (
	"fmt"
	"time"

	"github.com/Rhymond/go-money"
)

// CategoryType distinguishes spending categories from income categories.
type CategoryType string

const (
	// CategoryExpense groups outgoing transactions.
	CategoryExpense CategoryType = "expense"
	// CategoryIncome groups incoming transactions.
	CategoryIncome CategoryType = "income"
)

// Category represents a transaction category with an optional monthly
// budget, stored as one JSON document.
type Category struct {
	ID   string       `json:"id"`
	Name string       `json:"name"`
	Type CategoryType `json:"type"`

	// BudgetMinor is the monthly budget in minor units. Zero means no
	// budget is set for this category.
	BudgetMinor int64  `json:"budget_minor,omitempty"`
	Currency    string `json:"currency,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Budget returns the monthly budget as a go-money value, or nil when no
// budget is set.
func (c *Category) Budget() *money.Money {
	if c.BudgetMinor == 0 {
		return nil
	}
	return money.New(c.BudgetMinor, c.Currency)
}

// Validate checks if the Category has valid field values.
func (c *Category) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("id is required")
	}
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	if len(c.Name) > 100 {
		return fmt.Errorf("name must be 100 characters or less (got %d)", len(c.Name))
	}
	if c.Type != CategoryExpense && c.Type != CategoryIncome {
		return fmt.Errorf("type must be %q or %q (got %q)", CategoryExpense, CategoryIncome, c.Type)
	}
	if c.BudgetMinor != 0 {
		if c.BudgetMinor < 0 {
			return fmt.Errorf("budget must be non-negative (got %d)", c.BudgetMinor)
		}
		if c.Currency == "" {
			return fmt.Errorf("currency is required when a budget is set")
		}
		if money.GetCurrency(c.Currency) == nil {
			return fmt.Errorf("unknown currency code: %q", c.Currency)
		}
	}
	if c.CreatedAt.IsZero() {
		return fmt.Errorf("created_at is required")
	}
	if c.UpdatedAt.IsZero() {
		return fmt.Errorf("updated_at is required")
	}
	return nil
}
