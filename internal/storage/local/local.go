// Package local implements the guest-mode store.
//
// Guest sessions never touch the server database; their records live in JSON
// files under durable local keys in a data directory, mirroring the
// client-side storage the guest dashboard uses. Recurring definitions have no
// guest equivalent and every recurring operation fails with
// core.ErrGuestRecurringUnsupported.
package local

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"cashops/internal/core"
)

// Durable storage keys, one file per key.
const (
	transactionsKey = "cashops_guest_transactions"
	budgetsKey      = "cashops_guest_budgets"
)

type Store struct {
	mu  sync.Mutex
	dir string

	transactions []core.Transaction
	budgets      []core.Budget
}

// Open loads any previously persisted guest records from dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	s := &Store{dir: dir}
	if err := readKey(s.path(transactionsKey), &s.transactions); err != nil {
		return nil, fmt.Errorf("load %s: %w", transactionsKey, err)
	}
	if err := readKey(s.path(budgetsKey), &s.budgets); err != nil {
		return nil, fmt.Errorf("load %s: %w", budgetsKey, err)
	}
	return s, nil
}

func (s *Store) Close() error { return nil }

func (s *Store) CreateTransaction(_ context.Context, t core.Transaction) (core.Transaction, error) {
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.transactions = append(s.transactions, t)
	if err := s.persistTransactions(); err != nil {
		s.transactions = s.transactions[:len(s.transactions)-1]
		return core.Transaction{}, err
	}
	return t, nil
}

func (s *Store) CreateTransactions(_ context.Context, ts []core.Transaction) (int, error) {
	for _, t := range ts {
		if err := t.Validate(); err != nil {
			return 0, fmt.Errorf("transaction %s: %w", t.ID, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	prev := len(s.transactions)
	s.transactions = append(s.transactions, ts...)
	if err := s.persistTransactions(); err != nil {
		s.transactions = s.transactions[:prev]
		return 0, err
	}
	return len(ts), nil
}

func (s *Store) ListTransactions(_ context.Context, ownerID string) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.Transaction
	for _, t := range s.transactions {
		if t.OwnerID == ownerID {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) DeleteTransaction(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, t := range s.transactions {
		if t.ID == id && t.OwnerID == ownerID {
			s.transactions = append(s.transactions[:i], s.transactions[i+1:]...)
			return s.persistTransactions()
		}
	}
	return core.ErrNotFound
}

// UpsertBudget overwrites the limit when the (owner, category) pair already
// has a budget; the store-wide mutex makes the check-and-write atomic.
func (s *Store) UpsertBudget(_ context.Context, b core.Budget) (core.Budget, error) {
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.budgets {
		if existing.OwnerID == b.OwnerID && existing.Category == b.Category {
			b.ID = existing.ID
			s.budgets[i] = b
			if err := s.persistBudgets(); err != nil {
				s.budgets[i] = existing
				return core.Budget{}, err
			}
			return b, nil
		}
	}

	s.budgets = append(s.budgets, b)
	if err := s.persistBudgets(); err != nil {
		s.budgets = s.budgets[:len(s.budgets)-1]
		return core.Budget{}, err
	}
	return b, nil
}

func (s *Store) ListBudgets(_ context.Context, ownerID string) ([]core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []core.Budget
	for _, b := range s.budgets {
		if b.OwnerID == ownerID {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

func (s *Store) DeleteBudget(_ context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, b := range s.budgets {
		if b.ID == id && b.OwnerID == ownerID {
			s.budgets = append(s.budgets[:i], s.budgets[i+1:]...)
			return s.persistBudgets()
		}
	}
	return core.ErrNotFound
}

func (s *Store) CreateRecurringDefinition(context.Context, core.RecurringDefinition) (core.RecurringDefinition, error) {
	return core.RecurringDefinition{}, core.ErrGuestRecurringUnsupported
}

func (s *Store) ListRecurringDefinitions(context.Context, string) ([]core.RecurringDefinition, error) {
	return nil, core.ErrGuestRecurringUnsupported
}

func (s *Store) DeleteRecurringDefinition(context.Context, string, string) error {
	return core.ErrGuestRecurringUnsupported
}

func (s *Store) MaterializeRecurring(context.Context, string, string, core.Transaction, time.Time) (bool, error) {
	return false, core.ErrGuestRecurringUnsupported
}

func (s *Store) path(key string) string {
	return filepath.Join(s.dir, key+".json")
}

func (s *Store) persistTransactions() error {
	return writeKey(s.path(transactionsKey), s.transactions)
}

func (s *Store) persistBudgets() error {
	return writeKey(s.path(budgetsKey), s.budgets)
}

func readKey(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}

// writeKey writes via a temp file and rename so a crash mid-write never
// leaves a truncated key file.
func writeKey(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(tmp), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace %s: %w", filepath.Base(path), err)
	}
	return nil
}
