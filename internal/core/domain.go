package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

// UncategorizedLabel is the category assigned when a transaction carries no
// usable category value.
const UncategorizedLabel = "Uncategorized"

// RecurringSuffix marks transactions materialized from a recurring
// definition. It is the only link between the two records.
const RecurringSuffix = " (Recurring)"

// MaxDayOfMonth caps recurring day-of-month at 28 so every month has the
// target day. Days 29-31 are clamped down at creation.
const MaxDayOfMonth = 28

type (
	// Kind is the transaction polarity.
	Kind string

	Money struct {
		Cents int64
	}

	// Transaction is a single income or expense record. Immutable once
	// created; the only mutation in scope is deletion.
	Transaction struct {
		ID          string
		OwnerID     string
		Amount      Money
		Kind        Kind
		Category    string
		Description string
		Date        time.Time // calendar date, normalized to UTC midnight
		CreatedAt   time.Time
	}

	// RecurringDefinition is a template that materializes one Transaction
	// per calendar month on DayOfMonth.
	RecurringDefinition struct {
		ID            string
		OwnerID       string
		Amount        Money
		Kind          Kind
		Category      string
		Description   string
		DayOfMonth    int        // 1..28
		LastGenerated *time.Time // nil means never materialized
	}

	// Budget is a monthly spending limit for one category. At most one
	// budget per (owner, category).
	Budget struct {
		ID       string
		OwnerID  string
		Category string
		Limit    Money
		Period   string // only "monthly" is meaningful
	}
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidKind   = errors.New("invalid transaction kind")
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidDay    = errors.New("invalid day of month")
	ErrNotFound      = errors.New("record not found")
	ErrUnauthorized  = errors.New("no owner associated with request")

	// ErrGuestRecurringUnsupported is returned by the guest-mode store for
	// any recurring-definition operation.
	ErrGuestRecurringUnsupported = errors.New("recurring transactions are not supported in guest mode")
)

// IsValid reports whether k is a known transaction kind.
func (k Kind) IsValid() bool {
	return k == Income || k == Expense
}

// ParseKind maps a free-form type value to a Kind. Any value containing
// "income" case-insensitively is income; everything else is expense.
func ParseKind(s string) Kind {
	if strings.Contains(strings.ToLower(s), "income") {
		return Income
	}
	return Expense
}

// NormalizeCategory collapses a category value to a plain label. Empty or
// blank values resolve to UncategorizedLabel.
func NormalizeCategory(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return UncategorizedLabel
	}
	return s
}

// Day returns t truncated to its UTC calendar day.
func Day(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// SameMonth reports whether a and b fall in the same calendar month and year.
func SameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}

// ClampDayOfMonth restricts a day-of-month to 1..MaxDayOfMonth.
func ClampDayOfMonth(day int) (int, error) {
	if day < 1 || day > 31 {
		return 0, ErrInvalidDay
	}
	if day > MaxDayOfMonth {
		return MaxDayOfMonth, nil
	}
	return day, nil
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (t Transaction) Validate() error {
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if !t.Kind.IsValid() {
		return ErrInvalidKind
	}
	if t.Date.IsZero() {
		return ErrInvalidDate
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	return nil
}

func (d RecurringDefinition) Validate() error {
	if err := d.Amount.Validate(); err != nil {
		return err
	}
	if !d.Kind.IsValid() {
		return ErrInvalidKind
	}
	if d.DayOfMonth < 1 || d.DayOfMonth > MaxDayOfMonth {
		return ErrInvalidDay
	}
	if len(d.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	return nil
}

func (b Budget) Validate() error {
	if b.Limit.Cents <= 0 {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(b.Category) == "" {
		return errors.New("empty budget category")
	}
	if b.Period != "" && b.Period != "monthly" {
		return errors.New("unsupported budget period")
	}
	return nil
}
