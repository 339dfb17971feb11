package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"cashops/internal/backend"
	"cashops/internal/core"
	"cashops/internal/events"
	applog "cashops/internal/log"
)

// BudgetService manages the per-category monthly limits.
type BudgetService struct {
	store  backend.Store
	events *events.Client
}

func NewBudgetService(store backend.Store, eventsClient *events.Client) *BudgetService {
	return &BudgetService{store: store, events: eventsClient}
}

// BudgetStatus is a budget joined with the owner's current-month spend in
// its category.
type BudgetStatus struct {
	Budget core.Budget
	Spent  core.Money
}

// Upsert creates the budget for (owner, category) or overwrites the limit of
// the existing one; the pair never yields two rows.
func (s *BudgetService) Upsert(ctx context.Context, ownerID, category string, limit core.Money, period string) (core.Budget, error) {
	if ownerID == "" {
		return core.Budget{}, core.ErrUnauthorized
	}
	if period == "" {
		period = "monthly"
	}
	b := core.Budget{
		ID:       uuid.NewString(),
		OwnerID:  ownerID,
		Category: core.NormalizeCategory(category),
		Limit:    limit,
		Period:   period,
	}
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}

	saved, err := s.store.UpsertBudget(ctx, b)
	if err != nil {
		return core.Budget{}, fmt.Errorf("upsert budget: %w", err)
	}
	s.publish(ctx, events.ActionUpserted, ownerID, saved.ID)
	return saved, nil
}

// List returns the owner's budgets ordered by category.
func (s *BudgetService) List(ctx context.Context, ownerID string) ([]core.Budget, error) {
	if ownerID == "" {
		return nil, core.ErrUnauthorized
	}
	budgets, err := s.store.ListBudgets(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	return budgets, nil
}

// ListWithSpend joins each budget with the expense total of its category for
// now's calendar month, which is what the budget cards display.
func (s *BudgetService) ListWithSpend(ctx context.Context, ownerID string, now time.Time) ([]BudgetStatus, error) {
	budgets, err := s.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	transactions, err := s.store.ListTransactions(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	now = now.UTC()
	spentByCategory := map[string]int64{}
	for _, t := range transactions {
		if t.Kind != core.Expense || !core.SameMonth(t.Date, now) {
			continue
		}
		spentByCategory[core.NormalizeCategory(t.Category)] += t.Amount.Cents
	}

	out := make([]BudgetStatus, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, BudgetStatus{
			Budget: b,
			Spent:  core.Money{Cents: spentByCategory[b.Category]},
		})
	}
	return out, nil
}

func (s *BudgetService) Delete(ctx context.Context, ownerID, id string) error {
	if ownerID == "" {
		return core.ErrUnauthorized
	}
	if err := s.store.DeleteBudget(ctx, ownerID, id); err != nil {
		return err
	}
	s.publish(ctx, events.ActionDeleted, ownerID, id)
	return nil
}

func (s *BudgetService) publish(ctx context.Context, action, ownerID, recordID string) {
	if err := s.events.PublishChange(ctx, events.NewChangeMessage(events.EntityBudget, action, ownerID, recordID)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish change event",
			"entity", events.EntityBudget,
			"action", action,
			"record_id", recordID,
			applog.FieldError, err)
	}
}
