package entity

import (
	"fmt"
	"time"
)

// Expense entry kinds.
const (
	ExpenseTypeExpense = "expense"
	ExpenseTypeIncome  = "income"
)

// Expense is the canonical expense record as exchanged with the remote API.
//
// Amount is a decimal string, matching the server's representation; the
// client never does arithmetic on it, so it is carried verbatim.
type Expense struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	CategoryID    string    `json:"categoryId,omitempty"`
	Type          string    `json:"type"`
	Amount        string    `json:"amount"`
	Description   string    `json:"description,omitempty"`
	Date          string    `json:"date"` // YYYY-MM-DD
	IsRecurring   bool      `json:"isRecurring"`
	RecurringType string    `json:"recurringType,omitempty"`
	IsEMI         bool      `json:"isEMI"`
	EMIMonths     int       `json:"emiMonths,omitempty"`
	EMIRemaining  int       `json:"emiRemaining,omitempty"`
	IsDebt        bool      `json:"isDebt"`
	DebtTo        string    `json:"debtTo,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`

	SyncStatus SyncStatus `json:"-"`
}

// Validate checks that the expense is well-formed before it is stored or queued.
func (e *Expense) Validate() error {
	if err := requireCommon(e.ID, e.UserID, e.CreatedAt, e.UpdatedAt); err != nil {
		return err
	}
	if e.Amount == "" {
		return fmt.Errorf("amount is required")
	}
	if e.Date == "" {
		return fmt.Errorf("date is required")
	}
	switch e.Type {
	case ExpenseTypeExpense, ExpenseTypeIncome:
	default:
		return fmt.Errorf("type must be expense or income (got %q)", e.Type)
	}
	return nil
}

// ExpensePatch is a partial expense update. Nil fields are left untouched.
type ExpensePatch struct {
	CategoryID    *string `json:"categoryId,omitempty"`
	Type          *string `json:"type,omitempty"`
	Amount        *string `json:"amount,omitempty"`
	Description   *string `json:"description,omitempty"`
	Date          *string `json:"date,omitempty"`
	IsRecurring   *bool   `json:"isRecurring,omitempty"`
	RecurringType *string `json:"recurringType,omitempty"`
	IsEMI         *bool   `json:"isEMI,omitempty"`
	EMIMonths     *int    `json:"emiMonths,omitempty"`
	EMIRemaining  *int    `json:"emiRemaining,omitempty"`
	IsDebt        *bool   `json:"isDebt,omitempty"`
	DebtTo        *string `json:"debtTo,omitempty"`
}
