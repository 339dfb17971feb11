package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"cashops/internal/core"
)

// fakeStore is an in-memory backend.Store for service tests. Optional error
// fields inject failures per operation.
type fakeStore struct {
	mu           sync.Mutex
	transactions []core.Transaction
	budgets      []core.Budget
	definitions  []core.RecurringDefinition

	createErr      error
	listErr        error
	materializeErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{}
}

func (f *fakeStore) CreateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return core.Transaction{}, f.createErr
	}
	f.transactions = append(f.transactions, t)
	return t, nil
}

func (f *fakeStore) CreateTransactions(_ context.Context, ts []core.Transaction) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return 0, f.createErr
	}
	f.transactions = append(f.transactions, ts...)
	return len(ts), nil
}

func (f *fakeStore) ListTransactions(_ context.Context, ownerID string) ([]core.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []core.Transaction
	for _, t := range f.transactions {
		if t.OwnerID == ownerID {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (f *fakeStore) DeleteTransaction(_ context.Context, ownerID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, t := range f.transactions {
		if t.OwnerID == ownerID && t.ID == id {
			f.transactions = append(f.transactions[:i], f.transactions[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func (f *fakeStore) UpsertBudget(_ context.Context, b core.Budget) (core.Budget, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, existing := range f.budgets {
		if existing.OwnerID == b.OwnerID && existing.Category == b.Category {
			b.ID = existing.ID
			f.budgets[i] = b
			return b, nil
		}
	}
	f.budgets = append(f.budgets, b)
	return b, nil
}

func (f *fakeStore) ListBudgets(_ context.Context, ownerID string) ([]core.Budget, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []core.Budget
	for _, b := range f.budgets {
		if b.OwnerID == ownerID {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

func (f *fakeStore) DeleteBudget(_ context.Context, ownerID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, b := range f.budgets {
		if b.OwnerID == ownerID && b.ID == id {
			f.budgets = append(f.budgets[:i], f.budgets[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func (f *fakeStore) CreateRecurringDefinition(_ context.Context, d core.RecurringDefinition) (core.RecurringDefinition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return core.RecurringDefinition{}, f.createErr
	}
	f.definitions = append(f.definitions, d)
	return d, nil
}

func (f *fakeStore) ListRecurringDefinitions(_ context.Context, ownerID string) ([]core.RecurringDefinition, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []core.RecurringDefinition
	for _, d := range f.definitions {
		if d.OwnerID == ownerID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeStore) DeleteRecurringDefinition(_ context.Context, ownerID, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, d := range f.definitions {
		if d.OwnerID == ownerID && d.ID == id {
			f.definitions = append(f.definitions[:i], f.definitions[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func (f *fakeStore) MaterializeRecurring(_ context.Context, defID, ownerID string, t core.Transaction, now time.Time) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.materializeErr != nil {
		return false, f.materializeErr
	}
	for i, d := range f.definitions {
		if d.ID != defID || d.OwnerID != ownerID {
			continue
		}
		if d.LastGenerated != nil && core.SameMonth(d.LastGenerated.UTC(), now.UTC()) {
			return false, nil
		}
		marker := now.UTC()
		f.definitions[i].LastGenerated = &marker
		f.transactions = append(f.transactions, t)
		return true, nil
	}
	return false, core.ErrNotFound
}

func (f *fakeStore) Close() error { return nil }

func (f *fakeStore) transactionCount(ownerID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, t := range f.transactions {
		if t.OwnerID == ownerID {
			n++
		}
	}
	return n
}
