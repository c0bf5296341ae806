// Package domain holds the core types of the allowance tracker: categories,
// financial records, budgets, and the reporting-period value object. The
// types are plain data; behavior that mutates them lives in the services.
package domain

import (
	"math"
	"time"
)

// RecordKind identifies which record collection a record belongs to.
// Each kind is owned by its own RecordStore instance.
type RecordKind string

const (
	KindExpense RecordKind = "expense"
	KindSaving  RecordKind = "saving"
	KindChore   RecordKind = "chore"
)

// Record types as they appear on the wire. Savings deposits are forced to
// TypeSaving; withdrawals are stored as negative-amount TypeCashOut records.
const (
	TypeExpense = "expense"
	TypeSaving  = "saving"
	TypeCashOut = "cash_out"
	TypeChore   = "chore"
)

// Category is a node in the category forest. ParentID is empty for roots.
// A ParentID pointing at a deleted category is legal (no cascade delete);
// consumers treat such orphans as roots.
type Category struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ParentID  string `json:"parent_id,omitempty"`
	Color     string `json:"color"`
	SortIndex int    `json:"sort_index"`
}

// CategoryNode is a category with its resolved children, as returned by
// CategoryStore.Tree.
type CategoryNode struct {
	Category
	Children []CategoryNode `json:"children,omitempty"`
}

// Record is a single financial record: an expense, a savings deposit, a
// cash-out, or a completed chore payout.
//
// Amount sign convention: expenses, savings deposits, and chore payouts are
// positive magnitudes; cash-outs are negative. CategoryID is empty for
// uncategorized records and may dangle after a category delete.
type Record struct {
	ID          string    `json:"id"`
	Description string    `json:"description"`
	Amount      float64   `json:"amount"`
	Date        time.Time `json:"date"`
	Type        string    `json:"type"`
	CategoryID  string    `json:"category_id,omitempty"`
}

// UncategorizedName is the display bucket for records whose category id is
// empty or no longer resolves.
const UncategorizedName = "Uncategorized"

// Budget is a spending plan over a set of categories. Budgets are local to
// the tracker (never pushed to the remote ledger).
//
// An empty CategoryIDs set matches no records at all; a "general" budget
// tracks nothing until categories are assigned to it. If IsOngoing is false,
// StartDate must be set and binds the budget to exactly one month or year.
type Budget struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	CategoryIDs   []string   `json:"category_ids"`
	Period        Period     `json:"period"`
	PlannedAmount float64    `json:"planned_amount"`
	IsOngoing     bool       `json:"is_ongoing"`
	StartDate     *time.Time `json:"start_date,omitempty"`
}

// HasCategory reports whether id is in the budget's category set.
func (b *Budget) HasCategory(id string) bool {
	for _, c := range b.CategoryIDs {
		if c == id {
			return true
		}
	}
	return false
}

// BudgetStatus is the computed spend-vs-plan view of one budget for the
// active period.
type BudgetStatus struct {
	Budget         Budget  `json:"budget"`
	Spent          float64 `json:"spent"`
	Remaining      float64 `json:"remaining"`
	PercentageUsed float64 `json:"percentage_used"` // unclamped, for "over by" messages
	ProgressPct    float64 `json:"progress_pct"`    // clamped to 100 for rendering
	IsOverBudget   bool    `json:"is_over_budget"`
}

// BudgetStats aggregates all qualifying budgets for the active period.
type BudgetStats struct {
	Budgets         []BudgetStatus `json:"budgets"`
	TotalBudget     float64        `json:"total_budget"`
	TotalSpent      float64        `json:"total_spent"`
	Remaining       float64        `json:"remaining"`
	PercentageUsed  float64        `json:"percentage_used"`
	Unbudgeted      []Record       `json:"unbudgeted"`
	UnbudgetedTotal float64        `json:"unbudgeted_total"`
}

// SeriesPoint is one point of a time series.
type SeriesPoint struct {
	Date   time.Time `json:"date"`
	Amount float64   `json:"amount"`
}

// CategorySlice is one slice of a category breakdown.
type CategorySlice struct {
	Name       string  `json:"name"`
	Value      float64 `json:"value"`
	Percentage float64 `json:"percentage"`
}

// Round2 rounds a money amount to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
