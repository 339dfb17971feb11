package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"cashops/internal/core"
)

func TestUpsertBudget(t *testing.T) {
	store := newFakeStore()
	svc := NewBudgetService(store, nil)
	ctx := context.Background()

	first, err := svc.Upsert(ctx, "owner-1", "Food", core.Money{Cents: 50000}, "")
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if first.ID == "" {
		t.Error("budget id not assigned")
	}
	if first.Period != "monthly" {
		t.Errorf("Period = %q, want monthly default", first.Period)
	}

	// Same (owner, category) overwrites the limit and keeps the row.
	second, err := svc.Upsert(ctx, "owner-1", "Food", core.Money{Cents: 60000}, "monthly")
	if err != nil {
		t.Fatalf("second Upsert failed: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("upsert created a new row: id %q, want %q", second.ID, first.ID)
	}
	if second.Limit.Cents != 60000 {
		t.Errorf("Limit = %d, want 60000", second.Limit.Cents)
	}

	budgets, err := svc.List(ctx, "owner-1")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(budgets) != 1 {
		t.Errorf("budgets = %d, want 1", len(budgets))
	}
}

func TestUpsertBudgetValidation(t *testing.T) {
	svc := NewBudgetService(newFakeStore(), nil)
	ctx := context.Background()

	tests := []struct {
		name     string
		ownerID  string
		category string
		limit    core.Money
		period   string
		wantErr  error
	}{
		{name: "missing owner", category: "Food", limit: core.Money{Cents: 100}, wantErr: core.ErrUnauthorized},
		{name: "zero limit", ownerID: "owner-1", category: "Food", wantErr: core.ErrInvalidAmount},
		{name: "negative limit", ownerID: "owner-1", category: "Food", limit: core.Money{Cents: -1}, wantErr: core.ErrInvalidAmount},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Upsert(ctx, tt.ownerID, tt.category, tt.limit, tt.period)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Upsert error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	if _, err := svc.Upsert(ctx, "owner-1", "Food", core.Money{Cents: 100}, "weekly"); err == nil {
		t.Error("Upsert with unsupported period succeeded")
	}
}

func TestUpsertBudgetNormalizesCategory(t *testing.T) {
	svc := NewBudgetService(newFakeStore(), nil)
	b, err := svc.Upsert(context.Background(), "owner-1", "  ", core.Money{Cents: 100}, "")
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if b.Category != core.UncategorizedLabel {
		t.Errorf("Category = %q, want %q", b.Category, core.UncategorizedLabel)
	}
}

func TestListWithSpend(t *testing.T) {
	store := newFakeStore()
	budgets := NewBudgetService(store, nil)
	transactions := NewTransactionService(store, nil)
	ctx := context.Background()
	now := time.Date(2024, time.March, 20, 12, 0, 0, 0, time.UTC)

	if _, err := budgets.Upsert(ctx, "owner-1", "Food", core.Money{Cents: 50000}, ""); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if _, err := budgets.Upsert(ctx, "owner-1", "Transport", core.Money{Cents: 10000}, ""); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	seed := []CreateInput{
		// Counted: current-month expenses in a budgeted category.
		{Amount: core.Money{Cents: 1500}, Kind: core.Expense, Category: "Food", Date: utcDate(2024, 3, 5)},
		{Amount: core.Money{Cents: 2500}, Kind: core.Expense, Category: "Food", Date: utcDate(2024, 3, 18)},
		// Not counted: previous month, income, other category.
		{Amount: core.Money{Cents: 9000}, Kind: core.Expense, Category: "Food", Date: utcDate(2024, 2, 5)},
		{Amount: core.Money{Cents: 3000}, Kind: core.Income, Category: "Food", Date: utcDate(2024, 3, 10)},
		{Amount: core.Money{Cents: 700}, Kind: core.Expense, Category: "Leisure", Date: utcDate(2024, 3, 10)},
	}
	for _, input := range seed {
		if _, _, err := transactions.Create(ctx, "owner-1", input); err != nil {
			t.Fatalf("seed Create failed: %v", err)
		}
	}

	statuses, err := budgets.ListWithSpend(ctx, "owner-1", now)
	if err != nil {
		t.Fatalf("ListWithSpend failed: %v", err)
	}
	if len(statuses) != 2 {
		t.Fatalf("statuses = %d, want 2", len(statuses))
	}

	bySpent := map[string]int64{}
	for _, s := range statuses {
		bySpent[s.Budget.Category] = s.Spent.Cents
	}
	if bySpent["Food"] != 4000 {
		t.Errorf("Food spent = %d, want 4000", bySpent["Food"])
	}
	if bySpent["Transport"] != 0 {
		t.Errorf("Transport spent = %d, want 0", bySpent["Transport"])
	}
}

func TestDeleteBudget(t *testing.T) {
	store := newFakeStore()
	svc := NewBudgetService(store, nil)
	ctx := context.Background()

	b, err := svc.Upsert(ctx, "owner-1", "Food", core.Money{Cents: 100}, "")
	if err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := svc.Delete(ctx, "owner-2", b.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("cross-owner Delete = %v, want ErrNotFound", err)
	}
	if err := svc.Delete(ctx, "owner-1", b.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	budgets, err := svc.List(ctx, "owner-1")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(budgets) != 0 {
		t.Errorf("budgets after delete = %d, want 0", len(budgets))
	}
}
