// Package services holds the orchestration logic between the HTTP layer and
// the stores.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"cashops/internal/backend"
	"cashops/internal/core"
	"cashops/internal/events"
	applog "cashops/internal/log"
)

// TransactionService orchestrates transaction operations across the store
// and the change-event channel.
type TransactionService struct {
	store  backend.Store
	events *events.Client
}

func NewTransactionService(store backend.Store, eventsClient *events.Client) *TransactionService {
	return &TransactionService{store: store, events: eventsClient}
}

// CreateInput carries the fields of a new transaction. Amount is already
// parsed to cents; Category may be raw (empty resolves to Uncategorized).
type CreateInput struct {
	Amount      core.Money
	Kind        core.Kind
	Category    string
	Description string
	Date        time.Time
	Recurring   bool
}

// ImportRow is one bulk-import record with optional fields left empty.
type ImportRow struct {
	Date        time.Time
	Amount      core.Money
	Kind        core.Kind // empty defaults to expense
	Category    string    // empty defaults to Uncategorized
	Description string    // empty defaults to "Imported"
}

// ListFilter narrows a transaction listing. Zero value matches everything.
type ListFilter struct {
	Kind     core.Kind // empty matches both kinds
	Category string    // exact label match
	Query    string    // case-insensitive description substring
}

// Create stores a new transaction. With input.Recurring set it also creates
// a RecurringDefinition whose day-of-month comes from the transaction date
// (clamped to 28) and whose lastGenerated marker is pre-set to that date, so
// the originating transaction is never duplicated by the next
// materialization pass.
func (s *TransactionService) Create(ctx context.Context, ownerID string, input CreateInput) (core.Transaction, *core.RecurringDefinition, error) {
	if ownerID == "" {
		return core.Transaction{}, nil, core.ErrUnauthorized
	}

	t := core.Transaction{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		Amount:      input.Amount,
		Kind:        input.Kind,
		Category:    core.NormalizeCategory(input.Category),
		Description: input.Description,
		Date:        core.Day(input.Date),
		CreatedAt:   time.Now().UTC(),
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, nil, err
	}

	saved, err := s.store.CreateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, nil, fmt.Errorf("create transaction: %w", err)
	}
	s.publish(ctx, events.EntityTransaction, events.ActionCreated, ownerID, saved.ID)

	if !input.Recurring {
		return saved, nil, nil
	}

	day, err := core.ClampDayOfMonth(saved.Date.Day())
	if err != nil {
		return core.Transaction{}, nil, err
	}
	lastGenerated := saved.Date
	def := core.RecurringDefinition{
		ID:            uuid.NewString(),
		OwnerID:       ownerID,
		Amount:        saved.Amount,
		Kind:          saved.Kind,
		Category:      saved.Category,
		Description:   saved.Description,
		DayOfMonth:    day,
		LastGenerated: &lastGenerated,
	}
	if err := def.Validate(); err != nil {
		return core.Transaction{}, nil, err
	}

	savedDef, err := s.store.CreateRecurringDefinition(ctx, def)
	if err != nil {
		return core.Transaction{}, nil, fmt.Errorf("create recurring definition: %w", err)
	}
	s.publish(ctx, events.EntityRecurring, events.ActionCreated, ownerID, savedDef.ID)
	return saved, &savedDef, nil
}

// Import stores a batch of rows all-or-nothing: validation failures reject
// the entire batch before anything is written, and the store applies the
// batch in a single transaction.
func (s *TransactionService) Import(ctx context.Context, ownerID string, rows []ImportRow) (int, error) {
	if ownerID == "" {
		return 0, core.ErrUnauthorized
	}
	if len(rows) == 0 {
		return 0, fmt.Errorf("no transactions provided")
	}

	now := time.Now().UTC()
	batch := make([]core.Transaction, 0, len(rows))
	for i, row := range rows {
		kind := row.Kind
		if kind == "" {
			kind = core.Expense
		}
		description := row.Description
		if description == "" {
			description = "Imported"
		}
		t := core.Transaction{
			ID:          uuid.NewString(),
			OwnerID:     ownerID,
			Amount:      row.Amount,
			Kind:        kind,
			Category:    core.NormalizeCategory(row.Category),
			Description: description,
			Date:        core.Day(row.Date),
			CreatedAt:   now,
		}
		if err := t.Validate(); err != nil {
			return 0, fmt.Errorf("row %d: %w", i+1, err)
		}
		batch = append(batch, t)
	}

	count, err := s.store.CreateTransactions(ctx, batch)
	if err != nil {
		return 0, fmt.Errorf("import transactions: %w", err)
	}

	slog.InfoContext(ctx, "Imported transactions", applog.FieldCount, count)
	s.publish(ctx, events.EntityTransaction, events.ActionCreated, ownerID, fmt.Sprintf("bulk:%d", count))
	return count, nil
}

// List returns the owner's transactions, date descending, optionally
// filtered by kind, category and description substring.
func (s *TransactionService) List(ctx context.Context, ownerID string, filter ListFilter) ([]core.Transaction, error) {
	if ownerID == "" {
		return nil, core.ErrUnauthorized
	}
	all, err := s.store.ListTransactions(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	if filter == (ListFilter{}) {
		return all, nil
	}

	query := strings.ToLower(filter.Query)
	out := make([]core.Transaction, 0, len(all))
	for _, t := range all {
		if filter.Kind != "" && t.Kind != filter.Kind {
			continue
		}
		if filter.Category != "" && t.Category != filter.Category {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(t.Description), query) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *TransactionService) Delete(ctx context.Context, ownerID, id string) error {
	if ownerID == "" {
		return core.ErrUnauthorized
	}
	if err := s.store.DeleteTransaction(ctx, ownerID, id); err != nil {
		return err
	}
	s.publish(ctx, events.EntityTransaction, events.ActionDeleted, ownerID, id)
	return nil
}

// Metrics computes the dashboard view model from the owner's full
// transaction list.
func (s *TransactionService) Metrics(ctx context.Context, ownerID string, now time.Time) (core.Metrics, error) {
	transactions, err := s.List(ctx, ownerID, ListFilter{})
	if err != nil {
		return core.Metrics{}, err
	}
	return core.ComputeMetrics(transactions, now), nil
}

// publish sends a change event. Event delivery is best-effort: a broker
// outage must not fail the mutation that already committed.
func (s *TransactionService) publish(ctx context.Context, entity, action, ownerID, recordID string) {
	if err := s.events.PublishChange(ctx, events.NewChangeMessage(entity, action, ownerID, recordID)); err != nil {
		slog.ErrorContext(ctx, "Failed to publish change event",
			"entity", entity,
			"action", action,
			"record_id", recordID,
			applog.FieldError, err)
	}
}
