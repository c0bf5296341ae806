package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/keilmann/allowance-tracker-go/internal/domain"
	"github.com/keilmann/allowance-tracker-go/internal/port"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// BudgetService owns budget definitions and the spend-vs-plan matching
// algorithm. Budgets live in the local repository only (the remote ledger
// never sees them) and are mirrored in memory so reads are synchronous.
//
// The service reads category and record state to compute statistics but
// never mutates either.
type BudgetService struct {
	mu      sync.RWMutex
	budgets map[string]domain.Budget

	repo   port.BudgetRepository
	logger *zap.Logger
}

// NewBudgetService creates a budget service backed by repo.
func NewBudgetService(repo port.BudgetRepository, logger *zap.Logger) *BudgetService {
	return &BudgetService{
		budgets: make(map[string]domain.Budget),
		repo:    repo,
		logger:  logger,
	}
}

// Load mirrors the repository into memory. Called once at startup.
func (s *BudgetService) Load(ctx context.Context) error {
	budgets, err := s.repo.ListBudgets(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.budgets = make(map[string]domain.Budget, len(budgets))
	for _, b := range budgets {
		s.budgets[b.ID] = b
	}

	s.logger.Info("budgets loaded", zap.Int("count", len(budgets)))
	return nil
}

// List returns all budgets sorted by name.
func (s *BudgetService) List() []domain.Budget {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Budget, 0, len(s.budgets))
	for _, b := range s.budgets {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Get returns a budget by id.
func (s *BudgetService) Get(id string) (domain.Budget, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.budgets[id]
	return b, ok
}

func validateBudget(b *domain.Budget) error {
	if b.Name == "" {
		return &domain.ErrValidation{Field: "name", Message: "required"}
	}
	if !b.Period.Valid() {
		return &domain.ErrValidation{Field: "period", Message: "must be one of all, monthly, yearly"}
	}
	if b.PlannedAmount <= 0 {
		return &domain.ErrValidation{Field: "planned_amount", Message: "must be positive"}
	}
	if !b.IsOngoing && b.StartDate == nil {
		return &domain.ErrValidation{Field: "start_date", Message: "required for non-ongoing budgets"}
	}
	return nil
}

// Create validates and stores a new budget.
func (s *BudgetService) Create(ctx context.Context, b domain.Budget) (*domain.Budget, error) {
	ctx, span := tracer.Start(ctx, "BudgetService.Create")
	defer span.End()

	if err := validateBudget(&b); err != nil {
		return nil, err
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}

	if err := s.repo.SaveBudget(ctx, &b); err != nil {
		s.logger.Error("budget create failed", zap.String("name", b.Name), zap.Error(err))
		return nil, err
	}

	s.mu.Lock()
	s.budgets[b.ID] = b
	s.mu.Unlock()

	s.logger.Info("budget created", zap.String("budget_id", b.ID), zap.String("name", b.Name))
	return &b, nil
}

// Update validates and replaces an existing budget.
func (s *BudgetService) Update(ctx context.Context, b domain.Budget) error {
	ctx, span := tracer.Start(ctx, "BudgetService.Update")
	defer span.End()
	span.SetAttributes(attribute.String("budget.id", b.ID))

	if err := validateBudget(&b); err != nil {
		return err
	}

	s.mu.RLock()
	_, ok := s.budgets[b.ID]
	s.mu.RUnlock()
	if !ok {
		return &domain.ErrNotFound{Resource: "budget", ID: b.ID}
	}

	if err := s.repo.SaveBudget(ctx, &b); err != nil {
		return err
	}

	s.mu.Lock()
	s.budgets[b.ID] = b
	s.mu.Unlock()
	return nil
}

// Delete removes a budget.
func (s *BudgetService) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "BudgetService.Delete")
	defer span.End()
	span.SetAttributes(attribute.String("budget.id", id))

	s.mu.RLock()
	_, ok := s.budgets[id]
	s.mu.RUnlock()
	if !ok {
		return &domain.ErrNotFound{Resource: "budget", ID: id}
	}

	if err := s.repo.DeleteBudget(ctx, id); err != nil {
		return err
	}

	s.mu.Lock()
	delete(s.budgets, id)
	s.mu.Unlock()

	s.logger.Info("budget deleted", zap.String("budget_id", id))
	return nil
}

// CheckOverlap reports whether b shares a category with another budget of
// the same period. This is a validation check for the UI, not a storage
// constraint: storing overlapping budgets is allowed, and both then track
// the shared category independently.
func (s *BudgetService) CheckOverlap(b domain.Budget) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, other := range s.budgets {
		if other.ID == b.ID || other.Period != b.Period {
			continue
		}
		for _, cat := range b.CategoryIDs {
			if other.HasCategory(cat) {
				return &domain.ErrConflict{
					Message: fmt.Sprintf("category %s is already tracked by %s budget %q", cat, other.Period, other.Name),
				}
			}
		}
	}
	return nil
}

// Stats computes spend-vs-plan for the active period. Pure with respect to
// its inputs: calling it twice with unchanged state yields identical
// results, and neither budgets nor records are mutated.
//
// A budget qualifies when its period matches the selection and it is either
// ongoing or bound (via StartDate) to the same month/year instance as the
// anchor. Spend is matched by category id membership; records with no
// category match no budget. An empty category set matches nothing: such a
// budget keeps its status row but contributes to neither TotalBudget nor
// TotalSpent. A record may count toward several overlapping budgets: budgets
// are independent tracking lenses and no deduplication is applied.
func (s *BudgetService) Stats(sel domain.PeriodSelection, records []domain.Record) domain.BudgetStats {
	qualifying := s.qualifyingBudgets(sel)

	budgeted := make(map[string]bool)
	for _, b := range qualifying {
		for _, cat := range b.CategoryIDs {
			budgeted[cat] = true
		}
	}

	var stats domain.BudgetStats
	for _, b := range qualifying {
		spent := 0.0
		for _, rec := range records {
			if !sel.Contains(rec.Date) {
				continue
			}
			if rec.CategoryID == "" || !b.HasCategory(rec.CategoryID) {
				continue
			}
			spent += rec.Amount
		}
		spent = domain.Round2(spent)

		pct := 0.0
		if b.PlannedAmount > 0 {
			pct = spent / b.PlannedAmount * 100
		}
		progress := pct
		if progress > 100 {
			progress = 100
		}

		stats.Budgets = append(stats.Budgets, domain.BudgetStatus{
			Budget:         b,
			Spent:          spent,
			Remaining:      domain.Round2(b.PlannedAmount - spent),
			PercentageUsed: domain.Round2(pct),
			ProgressPct:    domain.Round2(progress),
			IsOverBudget:   spent > b.PlannedAmount,
		})

		// An empty category set tracks nothing; it stays out of the
		// aggregate plan and spend.
		if len(b.CategoryIDs) == 0 {
			continue
		}
		stats.TotalBudget += b.PlannedAmount
		stats.TotalSpent += spent
	}

	stats.TotalBudget = domain.Round2(stats.TotalBudget)
	stats.TotalSpent = domain.Round2(stats.TotalSpent)
	stats.Remaining = domain.Round2(stats.TotalBudget - stats.TotalSpent)
	if stats.TotalBudget > 0 {
		stats.PercentageUsed = domain.Round2(stats.TotalSpent / stats.TotalBudget * 100)
	}

	for _, rec := range records {
		if !sel.Contains(rec.Date) {
			continue
		}
		if rec.CategoryID == "" || !budgeted[rec.CategoryID] {
			stats.Unbudgeted = append(stats.Unbudgeted, rec)
			stats.UnbudgetedTotal += rec.Amount
		}
	}
	stats.UnbudgetedTotal = domain.Round2(stats.UnbudgetedTotal)

	return stats
}

// qualifyingBudgets returns the budgets active for the selection, sorted by
// name for stable output.
func (s *BudgetService) qualifyingBudgets(sel domain.PeriodSelection) []domain.Budget {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Budget
	for _, b := range s.budgets {
		if b.Period != sel.Period {
			continue
		}
		if !b.IsOngoing {
			if b.StartDate == nil || !sel.SameInstance(*b.StartDate) {
				continue
			}
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
