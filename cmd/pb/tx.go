package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/charmbracelet/huh"
	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"

	"github.com/kessler/pocketbook/internal/schema"
	"github.com/kessler/pocketbook/internal/ui"
)

var txCmd = &cobra.Command{
	Use:     "tx",
	GroupID: "ledger",
	Short:   "Manage ledger transactions",
}

var (
	txAddCurrency string
	txAddCategory string
	txAddNote     string
	txAddDate     string
	txAddIncome   bool
)

var txAddCmd = &cobra.Command{
	Use:   "add [amount]",
	Short: "Record a transaction",
	Long: `Record a transaction in the local ledger.

The write is durable immediately; it reaches the remote store on the
next sync. Amounts are expenses unless --income is given. The --date
flag accepts YYYY-MM-DD or natural language ("yesterday", "last friday").

With no amount argument, an interactive form is shown.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		settings, err := a.repos.Settings.Get()
		if err != nil {
			return err
		}
		if txAddCurrency == "" {
			txAddCurrency = settings.DisplayCurrency
		}

		amountStr := ""
		if len(args) == 1 {
			amountStr = args[0]
		} else {
			if err := runTxForm(a, &amountStr); err != nil {
				return err
			}
		}

		minor, err := parseAmount(amountStr, txAddCurrency)
		if err != nil {
			return err
		}
		if !txAddIncome {
			minor = -minor
		}

		occurredAt := time.Now().UTC()
		if txAddDate != "" {
			occurredAt, err = parseDate(txAddDate)
			if err != nil {
				return err
			}
		}

		tx := &schema.Transaction{
			AmountMinor: minor,
			Currency:    txAddCurrency,
			CategoryID:  txAddCategory,
			Note:        txAddNote,
			OccurredAt:  occurredAt,
		}
		if err := a.repos.Transactions.Create(tx); err != nil {
			return err
		}

		fmt.Printf("%s Recorded %s (%s)\n",
			ui.RenderSuccess("✓"),
			formatAmount(tx),
			ui.RenderFaint(tx.ID))
		printPending(a)
		return nil
	},
}

var txListCmd = &cobra.Command{
	Use:   "list",
	Short: "List transactions, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		txs, err := a.repos.Transactions.List()
		if err != nil {
			return err
		}
		if len(txs) == 0 {
			fmt.Println("No transactions recorded.")
			return nil
		}

		categories := make(map[string]string)
		cats, err := a.repos.Categories.List()
		if err == nil {
			for _, c := range cats {
				categories[c.ID] = c.Name
			}
		}

		for _, tx := range txs {
			cat := categories[tx.CategoryID]
			if cat == "" {
				cat = "-"
			}
			fmt.Printf("%s  %12s  %-16s %s %s\n",
				tx.OccurredAt.Format("2006-01-02"),
				formatAmount(tx),
				cat,
				tx.Note,
				ui.RenderFaint(shortID(tx.ID)))
		}
		return nil
	},
}

var txRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete a transaction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		id, err := resolveTxID(a, args[0])
		if err != nil {
			return err
		}
		if err := a.repos.Transactions.Delete(id); err != nil {
			return err
		}
		fmt.Printf("%s Deleted %s\n", ui.RenderSuccess("✓"), id)
		printPending(a)
		return nil
	},
}

// runTxForm collects the amount, note, and category interactively.
func runTxForm(a *app, amountStr *string) error {
	options := []huh.Option[string]{huh.NewOption("(none)", "")}
	cats, err := a.repos.Categories.List()
	if err == nil {
		for _, c := range cats {
			options = append(options, huh.NewOption(c.Name, c.ID))
		}
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(fmt.Sprintf("Amount (%s)", txAddCurrency)).
				Value(amountStr),
			huh.NewSelect[string]().
				Title("Category").
				Options(options...).
				Value(&txAddCategory),
			huh.NewInput().
				Title("Note").
				Value(&txAddNote),
			huh.NewConfirm().
				Title("Income?").
				Value(&txAddIncome),
		),
	)
	return form.Run()
}

// shortID abbreviates a uuid for display.
func shortID(s string) string {
	if len(s) > 8 {
		return s[:8]
	}
	return s
}

// resolveTxID accepts a full id or an unambiguous prefix.
func resolveTxID(a *app, arg string) (string, error) {
	txs, err := a.repos.Transactions.List()
	if err != nil {
		return "", err
	}
	var match string
	for _, tx := range txs {
		if tx.ID == arg {
			return arg, nil
		}
		if strings.HasPrefix(tx.ID, arg) {
			if match != "" {
				return "", fmt.Errorf("ambiguous id prefix %q", arg)
			}
			match = tx.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("no transaction matches %q", arg)
	}
	return match, nil
}

// parseAmount converts a decimal string like "12.50" into minor units
// for the given currency, without going through floating point.
func parseAmount(s, currency string) (int64, error) {
	cur := money.GetCurrency(currency)
	if cur == nil {
		return 0, fmt.Errorf("unknown currency code: %q", currency)
	}

	s = strings.TrimSpace(s)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	if s == "" {
		return 0, fmt.Errorf("amount is required")
	}

	intPart, fracPart, _ := strings.Cut(s, ".")
	if intPart == "" {
		intPart = "0"
	}
	if len(fracPart) > cur.Fraction {
		return 0, fmt.Errorf("%s amounts have at most %d decimal places", currency, cur.Fraction)
	}
	for len(fracPart) < cur.Fraction {
		fracPart += "0"
	}

	var minor int64
	for _, r := range intPart + fracPart {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("invalid amount: %q", s)
		}
		minor = minor*10 + int64(r-'0')
	}
	if neg {
		minor = -minor
	}
	return minor, nil
}

// parseDate accepts YYYY-MM-DD or natural language via the when parser.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}

	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)

	r, err := w.Parse(s, time.Now())
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to parse date %q: %w", s, err)
	}
	if r == nil {
		return time.Time{}, fmt.Errorf("could not understand date %q", s)
	}
	return r.Time, nil
}

// formatAmount renders a transaction amount with its currency, colored
// by sign.
func formatAmount(tx *schema.Transaction) string {
	return ui.RenderAmount(tx.Money().Display(), tx.AmountMinor < 0)
}

// printPending reports the queued mutation count after a write.
func printPending(a *app) {
	if n := a.queue.Len(); n > 0 {
		fmt.Printf("%s\n", ui.RenderFaint(fmt.Sprintf("%d change(s) pending sync", n)))
	}
}

func init() {
	txAddCmd.Flags().StringVar(&txAddCurrency, "currency", "", "ISO 4217 currency code (default: settings)")
	txAddCmd.Flags().StringVar(&txAddCategory, "category", "", "category id")
	txAddCmd.Flags().StringVar(&txAddNote, "note", "", "free-form note")
	txAddCmd.Flags().StringVar(&txAddDate, "date", "", "occurrence date (YYYY-MM-DD or natural language)")
	txAddCmd.Flags().BoolVar(&txAddIncome, "income", false, "record as income instead of expense")

	txCmd.AddCommand(txAddCmd, txListCmd, txRmCmd)
	rootCmd.AddCommand(txCmd)
}
