// Package storage implements the durable SQLite store.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"cashops/internal/core"
	applog "cashops/internal/log"

	_ "modernc.org/sqlite"
)

const (
	dateLayout = "2006-01-02"
	timeLayout = time.RFC3339
)

type SQLiteRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:     db,
		logger: slog.Default().With(applog.FieldComponent, applog.ComponentStorage),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (id, owner_id, amount_cents, kind, category, description, date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.OwnerID, t.Amount.Cents, string(t.Kind), t.Category, t.Description,
		t.Date.Format(dateLayout), t.CreatedAt.Format(timeLayout))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}

	r.logger.InfoContext(ctx, "Transaction saved",
		applog.FieldTransactionID, t.ID,
		"kind", t.Kind,
		"category", t.Category,
		"amount_cents", t.Amount.Cents,
		"date", t.Date.Format(dateLayout))
	return t, nil
}

// CreateTransactions inserts the batch inside one transaction: either every
// row lands or none do.
func (r *SQLiteRepository) CreateTransactions(ctx context.Context, ts []core.Transaction) (int, error) {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin bulk insert: %w", err)
	}
	defer dbTx.Rollback()

	stmt, err := dbTx.PrepareContext(ctx, `
		INSERT INTO transactions (id, owner_id, amount_cents, kind, category, description, date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare bulk insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, t := range ts {
		createdAt := t.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		if _, err := stmt.ExecContext(ctx,
			t.ID, t.OwnerID, t.Amount.Cents, string(t.Kind), t.Category, t.Description,
			t.Date.Format(dateLayout), createdAt.Format(timeLayout)); err != nil {
			return 0, fmt.Errorf("insert transaction %s: %w", t.ID, err)
		}
	}

	if err := dbTx.Commit(); err != nil {
		return 0, fmt.Errorf("commit bulk insert: %w", err)
	}

	r.logger.InfoContext(ctx, "Bulk transactions saved", applog.FieldCount, len(ts))
	return len(ts), nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, ownerID string) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner_id, amount_cents, kind, category, description, date, created_at
		FROM transactions
		WHERE owner_id = ?
		ORDER BY date DESC, created_at DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM transactions WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// UpsertBudget creates or overwrites the budget for (owner, category) in one
// statement, so concurrent upserts cannot produce duplicate rows.
func (r *SQLiteRepository) UpsertBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO budgets (id, owner_id, category, limit_cents, period)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (owner_id, category) DO UPDATE SET
			limit_cents = excluded.limit_cents,
			period = excluded.period`,
		b.ID, b.OwnerID, b.Category, b.Limit.Cents, b.Period)
	if err != nil {
		return core.Budget{}, fmt.Errorf("upsert budget: %w", err)
	}

	// The conflict path keeps the existing row's id; read the row back.
	row := r.db.QueryRowContext(ctx, `
		SELECT id, owner_id, category, limit_cents, period
		FROM budgets WHERE owner_id = ? AND category = ?`, b.OwnerID, b.Category)
	var saved core.Budget
	if err := row.Scan(&saved.ID, &saved.OwnerID, &saved.Category, &saved.Limit.Cents, &saved.Period); err != nil {
		return core.Budget{}, fmt.Errorf("read back budget: %w", err)
	}

	r.logger.InfoContext(ctx, "Budget upserted",
		applog.FieldBudgetID, saved.ID,
		"category", saved.Category,
		"limit_cents", saved.Limit.Cents)
	return saved, nil
}

func (r *SQLiteRepository) ListBudgets(ctx context.Context, ownerID string) ([]core.Budget, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner_id, category, limit_cents, period
		FROM budgets
		WHERE owner_id = ?
		ORDER BY category ASC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query budgets: %w", err)
	}
	defer rows.Close()

	var out []core.Budget
	for rows.Next() {
		var b core.Budget
		if err := rows.Scan(&b.ID, &b.OwnerID, &b.Category, &b.Limit.Cents, &b.Period); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate budgets: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) DeleteBudget(ctx context.Context, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM budgets WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) CreateRecurringDefinition(ctx context.Context, d core.RecurringDefinition) (core.RecurringDefinition, error) {
	var lastGenerated any
	if d.LastGenerated != nil {
		lastGenerated = d.LastGenerated.UTC().Format(timeLayout)
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO recurring_definitions (id, owner_id, amount_cents, kind, category, description, day_of_month, last_generated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.OwnerID, d.Amount.Cents, string(d.Kind), d.Category, d.Description, d.DayOfMonth, lastGenerated)
	if err != nil {
		return core.RecurringDefinition{}, fmt.Errorf("insert recurring definition: %w", err)
	}

	r.logger.InfoContext(ctx, "Recurring definition saved",
		applog.FieldDefinitionID, d.ID,
		"day_of_month", d.DayOfMonth,
		"category", d.Category)
	return d, nil
}

func (r *SQLiteRepository) ListRecurringDefinitions(ctx context.Context, ownerID string) ([]core.RecurringDefinition, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, owner_id, amount_cents, kind, category, description, day_of_month, last_generated
		FROM recurring_definitions
		WHERE owner_id = ?
		ORDER BY day_of_month ASC, category ASC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query recurring definitions: %w", err)
	}
	defer rows.Close()

	var out []core.RecurringDefinition
	for rows.Next() {
		var (
			d    core.RecurringDefinition
			kind string
			last sql.NullString
		)
		if err := rows.Scan(&d.ID, &d.OwnerID, &d.Amount.Cents, &kind, &d.Category, &d.Description, &d.DayOfMonth, &last); err != nil {
			return nil, fmt.Errorf("scan recurring definition: %w", err)
		}
		d.Kind = core.Kind(kind)
		if last.Valid {
			ts, err := time.Parse(timeLayout, last.String)
			if err != nil {
				return nil, fmt.Errorf("parse last_generated for %s: %w", d.ID, err)
			}
			d.LastGenerated = &ts
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recurring definitions: %w", err)
	}
	return out, nil
}

func (r *SQLiteRepository) DeleteRecurringDefinition(ctx context.Context, ownerID, id string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM recurring_definitions WHERE id = ? AND owner_id = ?`, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete recurring definition: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// MaterializeRecurring claims the current month for a definition and inserts
// the generated transaction in one SQL transaction. The claim is a
// compare-and-set on last_generated: it only succeeds while no marker inside
// now's month exists, so of two racing requests exactly one generates.
// last_generated only moves forward; a failed insert rolls the marker back.
func (r *SQLiteRepository) MaterializeRecurring(ctx context.Context, defID, ownerID string, t core.Transaction, now time.Time) (bool, error) {
	now = now.UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin materialization: %w", err)
	}
	defer dbTx.Rollback()

	// RFC3339 UTC strings compare lexicographically in date order, so the
	// marker check happens entirely inside the UPDATE.
	res, err := dbTx.ExecContext(ctx, `
		UPDATE recurring_definitions
		SET last_generated = ?
		WHERE id = ? AND owner_id = ?
		  AND (last_generated IS NULL OR last_generated < ?)`,
		now.Format(timeLayout), defID, ownerID, monthStart.Format(timeLayout))
	if err != nil {
		return false, fmt.Errorf("claim month for definition %s: %w", defID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// Already generated this month, or unknown definition.
		return false, nil
	}

	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	if _, err := dbTx.ExecContext(ctx, `
		INSERT INTO transactions (id, owner_id, amount_cents, kind, category, description, date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.OwnerID, t.Amount.Cents, string(t.Kind), t.Category, t.Description,
		t.Date.Format(dateLayout), t.CreatedAt.Format(timeLayout)); err != nil {
		return false, fmt.Errorf("insert materialized transaction: %w", err)
	}

	if err := dbTx.Commit(); err != nil {
		return false, fmt.Errorf("commit materialization: %w", err)
	}

	r.logger.InfoContext(ctx, "Materialized recurring transaction",
		applog.FieldDefinitionID, defID,
		applog.FieldTransactionID, t.ID,
		"date", t.Date.Format(dateLayout))
	return true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		t         core.Transaction
		kind      string
		date      string
		createdAt string
	)
	if err := row.Scan(&t.ID, &t.OwnerID, &t.Amount.Cents, &kind, &t.Category, &t.Description, &date, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Transaction{}, core.ErrNotFound
		}
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	t.Kind = core.Kind(kind)

	d, err := time.Parse(dateLayout, date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse transaction date %q: %w", date, err)
	}
	t.Date = d

	created, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	t.CreatedAt = created
	return t, nil
}
