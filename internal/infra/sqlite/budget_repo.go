// Package sqlite persists budget definitions locally. Budgets never leave
// the tracker (the remote ledger does not know about them), so a small
// embedded database is enough.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/keilmann/allowance-tracker-go/internal/domain"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS budgets (
	id             TEXT PRIMARY KEY,
	name           TEXT NOT NULL,
	category_ids   TEXT NOT NULL DEFAULT '[]',
	period         TEXT NOT NULL,
	planned_amount REAL NOT NULL,
	is_ongoing     INTEGER NOT NULL DEFAULT 1,
	start_date     TEXT
);
`

// BudgetRepo stores budgets in a local SQLite database.
type BudgetRepo struct {
	db     *sql.DB
	logger *zap.Logger
}

// OpenBudgetRepo opens (and if needed creates) the budget database at path.
// Use ":memory:" for tests.
func OpenBudgetRepo(path string, logger *zap.Logger) (*BudgetRepo, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open budget db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create budget schema: %w", err)
	}
	return &BudgetRepo{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (r *BudgetRepo) Close() error {
	return r.db.Close()
}

// ListBudgets returns all stored budgets.
func (r *BudgetRepo) ListBudgets(ctx context.Context) ([]domain.Budget, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, category_ids, period, planned_amount, is_ongoing, start_date FROM budgets ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	var budgets []domain.Budget
	for rows.Next() {
		var (
			b         domain.Budget
			catJSON   string
			period    string
			ongoing   int
			startDate sql.NullString
		)
		if err := rows.Scan(&b.ID, &b.Name, &catJSON, &period, &b.PlannedAmount, &ongoing, &startDate); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		if err := json.Unmarshal([]byte(catJSON), &b.CategoryIDs); err != nil {
			r.logger.Warn("budget has malformed category_ids, treating as empty",
				zap.String("budget_id", b.ID), zap.Error(err))
			b.CategoryIDs = nil
		}
		b.Period = domain.Period(period)
		b.IsOngoing = ongoing != 0
		if startDate.Valid && startDate.String != "" {
			t, err := time.Parse("2006-01-02", startDate.String)
			if err == nil {
				b.StartDate = &t
			}
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

// SaveBudget inserts or replaces a budget.
func (r *BudgetRepo) SaveBudget(ctx context.Context, b *domain.Budget) error {
	catJSON, err := json.Marshal(b.CategoryIDs)
	if err != nil {
		return fmt.Errorf("encode category_ids: %w", err)
	}

	var startDate any
	if b.StartDate != nil {
		startDate = b.StartDate.Format("2006-01-02")
	}

	ongoing := 0
	if b.IsOngoing {
		ongoing = 1
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO budgets (id, name, category_ids, period, planned_amount, is_ongoing, start_date)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			category_ids = excluded.category_ids,
			period = excluded.period,
			planned_amount = excluded.planned_amount,
			is_ongoing = excluded.is_ongoing,
			start_date = excluded.start_date`,
		b.ID, b.Name, string(catJSON), string(b.Period), b.PlannedAmount, ongoing, startDate)
	if err != nil {
		return fmt.Errorf("save budget: %w", err)
	}
	return nil
}

// DeleteBudget removes a budget by id. Deleting an unknown id is a no-op.
func (r *BudgetRepo) DeleteBudget(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	return nil
}
