package entity

import (
	"strings"
	"testing"
	"time"
)

func TestTypeValid(t *testing.T) {
	for _, typ := range Types {
		if !typ.Valid() {
			t.Errorf("Expected %q to be valid", typ)
		}
		if typ.PathSegment() == "" {
			t.Errorf("Expected %q to have a path segment", typ)
		}
	}

	if Type("widget").Valid() {
		t.Error("Expected unknown type to be invalid")
	}
	if Type("widget").PathSegment() != "" {
		t.Error("Expected unknown type to have no path segment")
	}
}

func TestCategoryPathSegment(t *testing.T) {
	if got := TypeCategory.PathSegment(); got != "expense-categories" {
		t.Errorf("Expected expense-categories, got %q", got)
	}
}

func TestActionValid(t *testing.T) {
	for _, a := range []Action{ActionCreate, ActionUpdate, ActionDelete} {
		if !a.Valid() {
			t.Errorf("Expected %q to be valid", a)
		}
	}
	if Action("upsert").Valid() {
		t.Error("Expected unknown action to be invalid")
	}
}

func TestNewID(t *testing.T) {
	a := NewID()
	b := NewID()

	if a == "" || b == "" {
		t.Fatal("Expected non-empty ids")
	}
	if a == b {
		t.Error("Expected distinct ids")
	}
}

func validTask() *Task {
	now := time.Now()
	return &Task{
		ID:        NewID(),
		UserID:    "user-1",
		Title:     "Buy milk",
		Priority:  PriorityMedium,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestTaskValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Task)
		wantErr string
	}{
		{"valid", func(*Task) {}, ""},
		{"missing id", func(tk *Task) { tk.ID = "" }, "id is required"},
		{"missing user", func(tk *Task) { tk.UserID = "" }, "userId is required"},
		{"missing title", func(tk *Task) { tk.Title = "" }, "title is required"},
		{"bad priority", func(tk *Task) { tk.Priority = "urgent" }, "priority"},
		{"zero created", func(tk *Task) { tk.CreatedAt = time.Time{} }, "createdAt is required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tk := validTask()
			tt.mutate(tk)

			err := tk.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Expected valid task, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestExpenseValidate(t *testing.T) {
	now := time.Now()
	e := &Expense{
		ID:        NewID(),
		UserID:    "user-1",
		Type:      ExpenseTypeExpense,
		Amount:    "12.50",
		Date:      "2026-08-29",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.Validate(); err != nil {
		t.Fatalf("Expected valid expense, got %v", err)
	}

	e.Type = "refund"
	if err := e.Validate(); err == nil {
		t.Error("Expected error for unknown expense type")
	}
	e.Type = ExpenseTypeIncome

	e.Amount = ""
	if err := e.Validate(); err == nil {
		t.Error("Expected error for missing amount")
	}
}
