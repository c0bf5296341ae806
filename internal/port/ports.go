// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/keilmann/allowance-tracker-go/internal/domain"
)

// RemoteLedger is the remote source of truth for financial records and
// categories. The HTTP adapter in infra/client implements it; tests swap in
// hand-written fakes. All mutating calls return the canonical entity as the
// remote confirmed it.
type RemoteLedger interface {
	// Transactions
	ListTransactions(ctx context.Context, kind domain.RecordKind) ([]domain.Record, error)
	CreateTransaction(ctx context.Context, kind domain.RecordKind, rec domain.Record) (*domain.Record, error)
	UpdateTransaction(ctx context.Context, kind domain.RecordKind, rec domain.Record) (*domain.Record, error)
	DeleteTransaction(ctx context.Context, kind domain.RecordKind, id string) error

	// Categories
	ListCategories(ctx context.Context) ([]domain.Category, error)
	CreateCategory(ctx context.Context, cat domain.Category) (*domain.Category, error)
	DeleteCategory(ctx context.Context, id string) error
}

// BudgetRepository persists budget definitions locally. Budgets are not a
// remote concern; reads must be cheap and synchronous.
type BudgetRepository interface {
	ListBudgets(ctx context.Context) ([]domain.Budget, error)
	SaveBudget(ctx context.Context, b *domain.Budget) error
	DeleteBudget(ctx context.Context, id string) error
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
