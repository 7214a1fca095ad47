package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kessler/pocketbook/internal/schema"
	"github.com/kessler/pocketbook/internal/ui"
)

var categoryCmd = &cobra.Command{
	Use:     "category",
	GroupID: "ledger",
	Short:   "Manage transaction categories",
}

var (
	categoryAddIncome bool
	categoryAddBudget string
)

var categoryAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Create a category",
	Args:  cobra.ExactArgs(1),
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

		cat := &schema.Category{
			Name: args[0],
			Type: schema.CategoryExpense,
		}
		if categoryAddIncome {
			cat.Type = schema.CategoryIncome
		}
		if categoryAddBudget != "" {
			minor, err := parseAmount(categoryAddBudget, settings.DisplayCurrency)
			if err != nil {
				return fmt.Errorf("invalid budget: %w", err)
			}
			cat.BudgetMinor = minor
			cat.Currency = settings.DisplayCurrency
		}

		if err := a.repos.Categories.Create(cat); err != nil {
			return err
		}

		fmt.Printf("%s Created category %s (%s)\n",
			ui.RenderSuccess("✓"), cat.Name, ui.RenderFaint(cat.ID))
		printPending(a)
		return nil
	},
}

var categoryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List categories",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		cats, err := a.repos.Categories.List()
		if err != nil {
			return err
		}
		if len(cats) == 0 {
			fmt.Println("No categories defined.")
			return nil
		}

		for _, cat := range cats {
			budget := "-"
			if b := cat.Budget(); b != nil {
				budget = b.Display() + "/mo"
			}
			fmt.Printf("%-20s %-8s %12s  %s\n",
				cat.Name, cat.Type, budget, ui.RenderFaint(shortID(cat.ID)))
		}
		return nil
	},
}

var categoryRmCmd = &cobra.Command{
	Use:   "rm <id-or-name>",
	Short: "Delete a category",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		id, err := resolveCategory(a, args[0])
		if err != nil {
			return err
		}
		if err := a.repos.Categories.Delete(id); err != nil {
			return err
		}
		fmt.Printf("%s Deleted %s\n", ui.RenderSuccess("✓"), id)
		printPending(a)
		return nil
	},
}

// resolveCategory accepts a category id, id prefix, or exact name.
func resolveCategory(a *app, arg string) (string, error) {
	cats, err := a.repos.Categories.List()
	if err != nil {
		return "", err
	}
	var match string
	for _, cat := range cats {
		if cat.ID == arg {
			return arg, nil
		}
		if cat.Name == arg || strings.HasPrefix(cat.ID, arg) {
			if match != "" && match != cat.ID {
				return "", fmt.Errorf("ambiguous category %q", arg)
			}
			match = cat.ID
		}
	}
	if match == "" {
		return "", fmt.Errorf("no category matches %q", arg)
	}
	return match, nil
}

func init() {
	categoryAddCmd.Flags().BoolVar(&categoryAddIncome, "income", false, "income category instead of expense")
	categoryAddCmd.Flags().StringVar(&categoryAddBudget, "budget", "", "monthly budget in the display currency")

	categoryCmd.AddCommand(categoryAddCmd, categoryListCmd, categoryRmCmd)
	rootCmd.AddCommand(categoryCmd)
}
