package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"cashops/internal/core"
)

func TestCreateTransaction(t *testing.T) {
	store := newFakeStore()
	svc := NewTransactionService(store, nil)

	date := time.Date(2024, time.March, 5, 14, 30, 0, 0, time.UTC)
	tx, def, err := svc.Create(context.Background(), "owner-1", CreateInput{
		Amount:      core.Money{Cents: 4250},
		Kind:        core.Expense,
		Category:    "Food",
		Description: "Groceries",
		Date:        date,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if def != nil {
		t.Error("non-recurring create returned a definition")
	}
	if tx.ID == "" {
		t.Error("transaction id not assigned")
	}
	if want := utcDate(2024, time.March, 5); !tx.Date.Equal(want) {
		t.Errorf("Date = %v, want normalized %v", tx.Date, want)
	}
	if got := store.transactionCount("owner-1"); got != 1 {
		t.Errorf("stored transactions = %d, want 1", got)
	}
}

func TestCreateNormalizesCategory(t *testing.T) {
	svc := NewTransactionService(newFakeStore(), nil)
	tx, _, err := svc.Create(context.Background(), "owner-1", CreateInput{
		Amount: core.Money{Cents: 100},
		Kind:   core.Expense,
		Date:   utcDate(2024, time.March, 5),
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if tx.Category != core.UncategorizedLabel {
		t.Errorf("Category = %q, want %q", tx.Category, core.UncategorizedLabel)
	}
}

func TestCreateValidation(t *testing.T) {
	svc := NewTransactionService(newFakeStore(), nil)

	tests := []struct {
		name    string
		ownerID string
		input   CreateInput
		wantErr error
	}{
		{
			name:    "missing owner",
			input:   CreateInput{Amount: core.Money{Cents: 100}, Kind: core.Expense, Date: utcDate(2024, 3, 5)},
			wantErr: core.ErrUnauthorized,
		},
		{
			name:    "negative amount",
			ownerID: "owner-1",
			input:   CreateInput{Amount: core.Money{Cents: -100}, Kind: core.Expense, Date: utcDate(2024, 3, 5)},
			wantErr: core.ErrInvalidAmount,
		},
		{
			name:    "unknown kind",
			ownerID: "owner-1",
			input:   CreateInput{Amount: core.Money{Cents: 100}, Kind: "transfer", Date: utcDate(2024, 3, 5)},
			wantErr: core.ErrInvalidKind,
		},
		{
			name:    "zero date",
			ownerID: "owner-1",
			input:   CreateInput{Amount: core.Money{Cents: 100}, Kind: core.Expense},
			wantErr: core.ErrInvalidDate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.Create(context.Background(), tt.ownerID, tt.input)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Create error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestCreateRecurringSeedsDefinition(t *testing.T) {
	store := newFakeStore()
	svc := NewTransactionService(store, nil)

	tx, def, err := svc.Create(context.Background(), "owner-1", CreateInput{
		Amount:      core.Money{Cents: 120000},
		Kind:        core.Expense,
		Category:    "Housing",
		Description: "Rent",
		Date:        utcDate(2024, time.March, 31),
		Recurring:   true,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if def == nil {
		t.Fatal("recurring create returned no definition")
	}
	if def.DayOfMonth != core.MaxDayOfMonth {
		t.Errorf("DayOfMonth = %d, want clamped %d", def.DayOfMonth, core.MaxDayOfMonth)
	}
	if def.LastGenerated == nil || !def.LastGenerated.Equal(tx.Date) {
		t.Errorf("LastGenerated = %v, want %v", def.LastGenerated, tx.Date)
	}

	// The originating month is already claimed, so a check in the same
	// month creates nothing.
	m := NewMaterializer(store, nil)
	result, err := m.Run(context.Background(), "owner-1", utcDate(2024, time.March, 31))
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Created != 0 {
		t.Errorf("same-month Created = %d, want 0", result.Created)
	}
}

func TestImportDefaultsAndCount(t *testing.T) {
	store := newFakeStore()
	svc := NewTransactionService(store, nil)

	count, err := svc.Import(context.Background(), "owner-1", []ImportRow{
		{Date: utcDate(2024, 3, 1), Amount: core.Money{Cents: 1000}},
		{Date: utcDate(2024, 3, 2), Amount: core.Money{Cents: 2000}, Kind: core.Income, Category: "Salary", Description: "Payday"},
	})
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}

	all, err := svc.List(context.Background(), "owner-1", ListFilter{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	defaulted := all[1]
	if defaulted.Kind != core.Expense {
		t.Errorf("Kind = %q, want default expense", defaulted.Kind)
	}
	if defaulted.Category != core.UncategorizedLabel {
		t.Errorf("Category = %q, want %q", defaulted.Category, core.UncategorizedLabel)
	}
	if defaulted.Description != "Imported" {
		t.Errorf("Description = %q, want Imported", defaulted.Description)
	}
}

func TestImportRejectsWholeBatch(t *testing.T) {
	store := newFakeStore()
	svc := NewTransactionService(store, nil)

	_, err := svc.Import(context.Background(), "owner-1", []ImportRow{
		{Date: utcDate(2024, 3, 1), Amount: core.Money{Cents: 1000}},
		{Date: utcDate(2024, 3, 2), Amount: core.Money{Cents: -1}},
	})
	if err == nil {
		t.Fatal("Import with an invalid row succeeded")
	}
	if !strings.Contains(err.Error(), "row 2") {
		t.Errorf("error = %v, want row number", err)
	}
	if got := store.transactionCount("owner-1"); got != 0 {
		t.Errorf("stored transactions = %d, want 0 after rejected batch", got)
	}
}

func TestImportEmptyBatch(t *testing.T) {
	svc := NewTransactionService(newFakeStore(), nil)
	if _, err := svc.Import(context.Background(), "owner-1", nil); err == nil {
		t.Fatal("Import with no rows succeeded")
	}
}

func TestListFilters(t *testing.T) {
	store := newFakeStore()
	svc := NewTransactionService(store, nil)
	ctx := context.Background()

	seed := []CreateInput{
		{Amount: core.Money{Cents: 1500}, Kind: core.Expense, Category: "Food", Description: "Lunch at the corner cafe", Date: utcDate(2024, 3, 1)},
		{Amount: core.Money{Cents: 4000}, Kind: core.Expense, Category: "Transport", Description: "Monthly pass", Date: utcDate(2024, 3, 2)},
		{Amount: core.Money{Cents: 200000}, Kind: core.Income, Category: "Salary", Description: "March salary", Date: utcDate(2024, 3, 3)},
	}
	for _, input := range seed {
		if _, _, err := svc.Create(ctx, "owner-1", input); err != nil {
			t.Fatalf("seed Create failed: %v", err)
		}
	}

	tests := []struct {
		name   string
		filter ListFilter
		want   int
	}{
		{"no filter", ListFilter{}, 3},
		{"by kind", ListFilter{Kind: core.Expense}, 2},
		{"by category", ListFilter{Category: "Food"}, 1},
		{"by query case-insensitive", ListFilter{Query: "CAFE"}, 1},
		{"combined", ListFilter{Kind: core.Expense, Query: "pass"}, 1},
		{"no match", ListFilter{Category: "Travel"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.List(ctx, "owner-1", tt.filter)
			if err != nil {
				t.Fatalf("List failed: %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("len = %d, want %d", len(got), tt.want)
			}
		})
	}
}

func TestListOrdersByDateDescending(t *testing.T) {
	store := newFakeStore()
	svc := NewTransactionService(store, nil)
	ctx := context.Background()

	for _, day := range []int{3, 1, 2} {
		input := CreateInput{
			Amount: core.Money{Cents: 100},
			Kind:   core.Expense,
			Date:   utcDate(2024, time.March, day),
		}
		if _, _, err := svc.Create(ctx, "owner-1", input); err != nil {
			t.Fatalf("seed Create failed: %v", err)
		}
	}

	got, err := svc.List(ctx, "owner-1", ListFilter{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Date.After(got[i-1].Date) {
			t.Fatalf("transactions not in date-descending order: %v before %v", got[i-1].Date, got[i].Date)
		}
	}
}

func TestDeleteTransaction(t *testing.T) {
	store := newFakeStore()
	svc := NewTransactionService(store, nil)
	ctx := context.Background()

	tx, _, err := svc.Create(ctx, "owner-1", CreateInput{
		Amount: core.Money{Cents: 100},
		Kind:   core.Expense,
		Date:   utcDate(2024, 3, 5),
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	if err := svc.Delete(ctx, "owner-2", tx.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("cross-owner Delete = %v, want ErrNotFound", err)
	}
	if err := svc.Delete(ctx, "owner-1", tx.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := svc.Delete(ctx, "owner-1", tx.ID); !errors.Is(err, core.ErrNotFound) {
		t.Errorf("second Delete = %v, want ErrNotFound", err)
	}
}

func TestMetricsUsesOwnerTransactions(t *testing.T) {
	store := newFakeStore()
	svc := NewTransactionService(store, nil)
	ctx := context.Background()
	now := utcDate(2024, time.March, 15)

	seed := []struct {
		owner string
		input CreateInput
	}{
		{"owner-1", CreateInput{Amount: core.Money{Cents: 200000}, Kind: core.Income, Category: "Salary", Date: now}},
		{"owner-1", CreateInput{Amount: core.Money{Cents: 5000}, Kind: core.Expense, Category: "Food", Date: now}},
		{"owner-2", CreateInput{Amount: core.Money{Cents: 99999}, Kind: core.Expense, Category: "Other", Date: now}},
	}
	for _, s := range seed {
		if _, _, err := svc.Create(ctx, s.owner, s.input); err != nil {
			t.Fatalf("seed Create failed: %v", err)
		}
	}

	metrics, err := svc.Metrics(ctx, "owner-1", now)
	if err != nil {
		t.Fatalf("Metrics failed: %v", err)
	}
	if metrics.TotalIncome.Cents != 200000 {
		t.Errorf("TotalIncome = %d, want 200000", metrics.TotalIncome.Cents)
	}
	if metrics.TotalExpense.Cents != 5000 {
		t.Errorf("TotalExpense = %d, want 5000", metrics.TotalExpense.Cents)
	}
	if metrics.TotalBalance.Cents != 195000 {
		t.Errorf("TotalBalance = %d, want 195000", metrics.TotalBalance.Cents)
	}
}
