// Package backend selects the storage implementation behind one interface.
//
// Authenticated sessions use the durable SQLite store; guest sessions use the
// local file-backed store. Callers pick an implementation here once and never
// branch on storage details again.
package backend

import (
	"context"
	"time"

	"cashops/internal/core"
)

type (
	// TransactionStore covers transaction persistence. Transactions are
	// immutable: create, list, delete only.
	TransactionStore interface {
		CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
		// CreateTransactions inserts a batch all-or-nothing: any failure
		// leaves the store unchanged.
		CreateTransactions(ctx context.Context, ts []core.Transaction) (int, error)
		// ListTransactions returns the owner's transactions ordered by
		// date descending.
		ListTransactions(ctx context.Context, ownerID string) ([]core.Transaction, error)
		DeleteTransaction(ctx context.Context, ownerID, id string) error
	}

	// BudgetStore covers budget persistence. Upsert is keyed by
	// (owner, category): at most one row per pair, enforced atomically.
	BudgetStore interface {
		UpsertBudget(ctx context.Context, b core.Budget) (core.Budget, error)
		ListBudgets(ctx context.Context, ownerID string) ([]core.Budget, error)
		DeleteBudget(ctx context.Context, ownerID, id string) error
	}

	// RecurringStore covers recurring-definition persistence. The guest
	// store returns core.ErrGuestRecurringUnsupported for every method.
	RecurringStore interface {
		CreateRecurringDefinition(ctx context.Context, d core.RecurringDefinition) (core.RecurringDefinition, error)
		ListRecurringDefinitions(ctx context.Context, ownerID string) ([]core.RecurringDefinition, error)
		DeleteRecurringDefinition(ctx context.Context, ownerID, id string) error

		// MaterializeRecurring performs the generate-and-mark step as one
		// atomic unit: it advances the definition's last_generated marker
		// to now iff no marker for now's month exists yet, and inserts t
		// in the same unit. It reports false when another materialization
		// already claimed the month, so racing requests produce at most
		// one generated transaction per definition per month.
		MaterializeRecurring(ctx context.Context, defID, ownerID string, t core.Transaction, now time.Time) (bool, error)
	}

	// Store is the unified storage interface served to the HTTP layer.
	Store interface {
		TransactionStore
		BudgetStore
		RecurringStore
		Close() error
	}
)

// Type selects a storage implementation.
type Type string

const (
	// SQLiteStore is the durable server-side store for authenticated users.
	SQLiteStore Type = "sqlite"
	// LocalStore is the guest-mode store persisted under local data keys.
	LocalStore Type = "local"
)

func (t Type) String() string { return string(t) }

// IsValid reports whether the backend type is known.
func (t Type) IsValid() bool {
	switch t {
	case SQLiteStore, LocalStore:
		return true
	}
	return false
}
