package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/prodhub/prodhub/internal/entity"
	"github.com/prodhub/prodhub/internal/ui"
)

var expenseCmd = &cobra.Command{
	Use:     "expense",
	GroupID: "items",
	Short:   "Manage expenses and income",
}

var expenseAddCmd = &cobra.Command{
	Use:   "add <amount>",
	Short: "Record an expense or income entry",
	Long: `Record a money entry. Amounts are kept as decimal strings.

Example usage:
  prodhub expense add 12.50 --desc "Lunch"
  prodhub expense add 3200 --type income --desc "Salary"
  prodhub expense add 45.00 --category <category-id> --date "last monday"`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		st, err := openStore(cmd)
		if err != nil {
			fail("failed to open local store: %v", err)
		}
		defer st.Close()

		entryType, _ := cmd.Flags().GetString("type")
		categoryID, _ := cmd.Flags().GetString("category")
		description, _ := cmd.Flags().GetString("desc")
		dateArg, _ := cmd.Flags().GetString("date")
		recurring, _ := cmd.Flags().GetString("recurring")

		date := time.Now().Format("2006-01-02")
		if dateArg != "" {
			date, _, err = parseDue(dateArg)
			if err != nil {
				fail("%v", err)
			}
		}

		e := &entity.Expense{
			UserID:        cfg.UserID,
			CategoryID:    categoryID,
			Type:          entryType,
			Amount:        args[0],
			Description:   description,
			Date:          date,
			IsRecurring:   recurring != "",
			RecurringType: recurring,
		}

		created, err := st.CreateExpense(cmd.Context(), e)
		if err != nil {
			fail("failed to add expense: %v", err)
		}

		fmt.Printf("%s Recorded %s %s on %s\n", ui.RenderPass("✓"), created.Type, created.Amount, created.Date)
	},
}

var expenseListCmd = &cobra.Command{
	Use:   "list",
	Short: "List expenses",
	Run: func(cmd *cobra.Command, args []string) {
		st, err := openStore(cmd)
		if err != nil {
			fail("failed to open local store: %v", err)
		}
		defer st.Close()

		categoryID, _ := cmd.Flags().GetString("category")

		expenses, err := st.ListExpenses(cmd.Context(), cfg.UserID, categoryID)
		if err != nil {
			fail("failed to list expenses: %v", err)
		}

		if len(expenses) == 0 {
			fmt.Println("No expenses recorded.")
			return
		}

		for _, e := range expenses {
			amount := e.Amount
			if e.Type == entity.ExpenseTypeIncome {
				amount = ui.RenderPass("+" + amount)
			}
			line := fmt.Sprintf("%s %s  %s  %-10s %s", ui.StatusGlyph(string(e.SyncStatus)), shortID(e.ID), e.Date, amount, e.Description)
			if e.IsRecurring {
				line += "  " + ui.RenderDim("recurring "+e.RecurringType)
			}
			fmt.Println(line)
		}
	},
}

var expenseRmCmd = &cobra.Command{
	Use:   "rm <id>",
	Short: "Delete an expense",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		st, err := openStore(cmd)
		if err != nil {
			fail("failed to open local store: %v", err)
		}
		defer st.Close()

		var match string
		expenses, err := st.ListExpenses(cmd.Context(), cfg.UserID, "")
		if err != nil {
			fail("failed to list expenses: %v", err)
		}
		for _, e := range expenses {
			if strings.HasPrefix(e.ID, args[0]) {
				if match != "" {
					fail("id prefix %q is ambiguous", args[0])
				}
				match = e.ID
			}
		}
		if match == "" {
			fail("no expense matches %q", args[0])
		}

		if err := st.DeleteExpense(cmd.Context(), match); err != nil {
			fail("failed to delete expense: %v", err)
		}

		fmt.Printf("%s Deleted expense %s\n", ui.RenderPass("✓"), shortID(match))
	},
}

func init() {
	expenseAddCmd.Flags().StringP("type", "t", entity.ExpenseTypeExpense, "entry type: expense or income")
	expenseAddCmd.Flags().String("category", "", "category id")
	expenseAddCmd.Flags().String("desc", "", "description")
	expenseAddCmd.Flags().String("date", "", `entry date, natural language (default today)`)
	expenseAddCmd.Flags().String("recurring", "", "recurring cadence (e.g. monthly)")

	expenseListCmd.Flags().String("category", "", "filter by category id")

	expenseCmd.AddCommand(expenseAddCmd)
	expenseCmd.AddCommand(expenseListCmd)
	expenseCmd.AddCommand(expenseRmCmd)
	rootCmd.AddCommand(expenseCmd)
}
