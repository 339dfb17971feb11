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

// Materializer turns due recurring definitions into concrete transactions,
// at most once per definition per calendar month.
type Materializer struct {
	store  backend.Store
	events *events.Client
}

func NewMaterializer(store backend.Store, eventsClient *events.Client) *Materializer {
	return &Materializer{store: store, events: eventsClient}
}

// MaterializeResult reports one materialization pass.
type MaterializeResult struct {
	Processed    int
	Created      int
	Transactions []core.Transaction
}

// Run checks every definition of the owner against now and generates the
// pending transactions. The generate-and-mark step for each definition is a
// single atomic store operation, so re-running with the same now creates
// nothing new and two racing runs generate at most one transaction per
// definition. A failing definition is logged and skipped; the rest of the
// list still runs.
func (m *Materializer) Run(ctx context.Context, ownerID string, now time.Time) (MaterializeResult, error) {
	if ownerID == "" {
		return MaterializeResult{}, core.ErrUnauthorized
	}
	now = now.UTC()

	defs, err := m.store.ListRecurringDefinitions(ctx, ownerID)
	if err != nil {
		return MaterializeResult{}, fmt.Errorf("list recurring definitions: %w", err)
	}

	result := MaterializeResult{Processed: len(defs)}
	for _, def := range defs {
		if !dueThisMonth(def, now) {
			continue
		}

		t := core.Transaction{
			ID:          uuid.NewString(),
			OwnerID:     ownerID,
			Amount:      def.Amount,
			Kind:        def.Kind,
			Category:    def.Category,
			Description: def.Description + core.RecurringSuffix,
			Date:        targetDate(def.DayOfMonth, now),
			CreatedAt:   now,
		}

		created, err := m.store.MaterializeRecurring(ctx, def.ID, ownerID, t, now)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to materialize recurring definition",
				applog.FieldDefinitionID, def.ID,
				applog.FieldError, err)
			continue
		}
		if !created {
			// Another request claimed this month between our read and
			// the store's compare-and-set.
			continue
		}

		result.Created++
		result.Transactions = append(result.Transactions, t)
		m.publish(ctx, ownerID, def.ID, t.ID)
	}

	slog.InfoContext(ctx, "Recurring check complete",
		"processed", result.Processed,
		"created", result.Created)
	return result, nil
}

// dueThisMonth reports whether the definition must generate for now's month:
// the month's target day has been reached and no transaction was generated
// inside this calendar month yet.
func dueThisMonth(def core.RecurringDefinition, now time.Time) bool {
	if def.LastGenerated != nil && core.SameMonth(def.LastGenerated.UTC(), now) {
		return false
	}

	// Day-of-month is capped at 28 on creation, but clamp anyway so legacy
	// rows with a higher day still generate in every month.
	targetDay := def.DayOfMonth
	if last := lastDayOfMonth(now); targetDay > last {
		targetDay = last
	}
	return now.Day() >= targetDay
}

// targetDate is the calendar day the generated transaction is dated with:
// now's year and month at the definition's day, clamped to month length.
func targetDate(dayOfMonth int, now time.Time) time.Time {
	if last := lastDayOfMonth(now); dayOfMonth > last {
		dayOfMonth = last
	}
	return time.Date(now.Year(), now.Month(), dayOfMonth, 0, 0, 0, 0, time.UTC)
}

func lastDayOfMonth(t time.Time) int {
	return time.Date(t.Year(), t.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

func (m *Materializer) publish(ctx context.Context, ownerID, defID, txID string) {
	msg := events.NewChangeMessage(events.EntityRecurring, events.ActionMaterialized, ownerID, defID)
	if err := m.events.PublishChange(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish change event",
			"entity", events.EntityRecurring,
			applog.FieldDefinitionID, defID,
			applog.FieldTransactionID, txID,
			applog.FieldError, err)
	}
}

// ListDefinitions exposes the owner's recurring definitions for management
// views.
func (m *Materializer) ListDefinitions(ctx context.Context, ownerID string) ([]core.RecurringDefinition, error) {
	if ownerID == "" {
		return nil, core.ErrUnauthorized
	}
	defs, err := m.store.ListRecurringDefinitions(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list recurring definitions: %w", err)
	}
	return defs, nil
}

// DeleteDefinition removes a recurring definition; transactions it already
// generated are untouched.
func (m *Materializer) DeleteDefinition(ctx context.Context, ownerID, id string) error {
	if ownerID == "" {
		return core.ErrUnauthorized
	}
	if err := m.store.DeleteRecurringDefinition(ctx, ownerID, id); err != nil {
		return err
	}
	msg := events.NewChangeMessage(events.EntityRecurring, events.ActionDeleted, ownerID, id)
	if err := m.events.PublishChange(ctx, msg); err != nil {
		slog.ErrorContext(ctx, "Failed to publish change event",
			"entity", events.EntityRecurring,
			"record_id", id,
			applog.FieldError, err)
	}
	return nil
}
