package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/keilmann/allowance-tracker-go/internal/domain"
	"github.com/keilmann/allowance-tracker-go/internal/infra/observability"
	"github.com/keilmann/allowance-tracker-go/internal/port"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// RecordStore owns the authoritative local list of one kind of financial
// record (expenses, savings, or chores) and keeps it consistent with the
// remote ledger through an optimistic mutation pipeline:
//
//   - Add waits for remote confirmation before inserting (no optimistic
//     insert, so a failed create leaves no trace and a retry cannot
//     duplicate).
//   - Update replaces the local record before the remote call and restores
//     the exact pre-mutation snapshot if the call fails.
//   - Delete removes the record and its contribution to the running total
//     immediately, and reinserts both if the remote call fails.
//
// Remote responses may resolve out of call order. Reconciliation is keyed by
// record id, and a tombstoned (deleted) id wins over any stale update
// confirmation, so a slow update can never resurrect a deleted record.
//
// Invariant: the running total always equals the sum of Amount over the
// records currently held. It is recomputed from the list on every state
// transition rather than adjusted by deltas, so it cannot drift.
type RecordStore struct {
	kind domain.RecordKind

	mu      sync.Mutex
	records []domain.Record
	total   float64
	deleted map[string]bool // tombstones for ids removed locally

	ledger  port.RemoteLedger
	metrics *observability.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewRecordStore creates an empty record store for one record kind.
func NewRecordStore(kind domain.RecordKind, ledger port.RemoteLedger, metrics *observability.Metrics, logger *zap.Logger) *RecordStore {
	return &RecordStore{
		kind:    kind,
		deleted: make(map[string]bool),
		ledger:  ledger,
		metrics: metrics,
		logger:  logger.With(zap.String("record_kind", string(kind))),
		now:     time.Now,
	}
}

// Kind returns the record kind this store owns.
func (s *RecordStore) Kind() domain.RecordKind { return s.kind }

// Hydrate replaces local state with the remote ledger's record list.
func (s *RecordStore) Hydrate(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "RecordStore.Hydrate")
	defer span.End()
	span.SetAttributes(attribute.String("record.kind", string(s.kind)))

	records, err := s.ledger.ListTransactions(ctx, s.kind)
	if err != nil {
		s.metrics.IncrRemoteError("transactions.list")
		return err
	}

	s.mu.Lock()
	s.records = records
	s.deleted = make(map[string]bool)
	s.recomputeTotal()
	s.mu.Unlock()

	s.logger.Info("records hydrated", zap.Int("count", len(records)))
	return nil
}

// Add creates a record. The outbound payload is derived from the store's
// kind (savings deposits are forced to type saving, withdrawals stay
// cash_out); exactly one network call is made, and the record is appended
// only once the remote returns the canonical version. On failure local state
// is untouched.
func (s *RecordStore) Add(ctx context.Context, rec domain.Record) (*domain.Record, error) {
	ctx, span := tracer.Start(ctx, "RecordStore.Add")
	defer span.End()
	span.SetAttributes(attribute.String("record.kind", string(s.kind)))

	payload := rec
	payload.ID = ""
	if payload.Date.IsZero() {
		payload.Date = s.now()
	}
	switch s.kind {
	case domain.KindSaving:
		if payload.Type != domain.TypeCashOut {
			payload.Type = domain.TypeSaving
		}
	case domain.KindChore:
		payload.Type = domain.TypeChore
	default:
		payload.Type = domain.TypeExpense
	}

	created, err := s.ledger.CreateTransaction(ctx, s.kind, payload)
	if err != nil {
		s.metrics.IncrMutation(s.kind, "failed")
		s.metrics.IncrRemoteError("transactions.create")
		s.logger.Error("record create failed", zap.Error(err))
		return nil, err
	}

	s.mu.Lock()
	s.records = append(s.records, *created)
	s.recomputeTotal()
	s.mu.Unlock()

	s.metrics.IncrMutation(s.kind, "confirmed")
	s.logger.Info("record added",
		zap.String("record_id", created.ID),
		zap.Float64("amount", created.Amount),
	)
	return created, nil
}

// Update optimistically replaces the matching local record before the
// remote call. On confirmation the canonical server value replaces the
// optimistic one; on failure the exact pre-mutation snapshot is restored.
// Updating an id that is no longer held is a no-op reported as ErrNotFound.
func (s *RecordStore) Update(ctx context.Context, rec domain.Record) error {
	ctx, span := tracer.Start(ctx, "RecordStore.Update")
	defer span.End()
	span.SetAttributes(attribute.String("record.id", rec.ID))

	s.mu.Lock()
	idx := s.indexOf(rec.ID)
	if idx < 0 {
		s.mu.Unlock()
		return &domain.ErrNotFound{Resource: "record", ID: rec.ID}
	}
	snapshot := s.records[idx]
	s.records[idx] = rec
	s.recomputeTotal()
	s.mu.Unlock()

	updated, err := s.ledger.UpdateTransaction(ctx, s.kind, rec)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.metrics.IncrMutation(s.kind, "failed")
		s.metrics.IncrRemoteError("transactions.update")
		// Restore the pre-mutation snapshot, unless a delete won the race
		// for this id in the meantime.
		if i := s.indexOf(rec.ID); i >= 0 {
			s.records[i] = snapshot
			s.recomputeTotal()
			s.metrics.IncrRollback(s.kind, "update")
			s.logger.Warn("record update rolled back",
				zap.String("record_id", rec.ID), zap.Error(err))
		}
		return err
	}

	// Delete is dominant: a stale confirmation must not resurrect or touch
	// a record removed after this update was issued.
	if s.deleted[rec.ID] {
		s.logger.Debug("discarding update confirmation for deleted record",
			zap.String("record_id", rec.ID))
		return nil
	}
	if i := s.indexOf(rec.ID); i >= 0 {
		s.records[i] = *updated
		s.recomputeTotal()
	}

	s.metrics.IncrMutation(s.kind, "confirmed")
	return nil
}

// Delete optimistically removes the record and its contribution to the
// running total, then confirms with the remote. On failure the record is
// reinserted at its original position and the total restored. Deleting an
// unknown id is a no-op reported as ErrNotFound.
func (s *RecordStore) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "RecordStore.Delete")
	defer span.End()
	span.SetAttributes(attribute.String("record.id", id))

	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return &domain.ErrNotFound{Resource: "record", ID: id}
	}
	snapshot := s.records[idx]
	s.records = append(s.records[:idx], s.records[idx+1:]...)
	s.deleted[id] = true
	s.recomputeTotal()
	s.mu.Unlock()

	err := s.ledger.DeleteTransaction(ctx, s.kind, id)

	// A 404 means the remote already forgot the record; the local removal
	// stands.
	var notFound *domain.ErrNotFound
	if err != nil && !errors.As(err, &notFound) {
		s.metrics.IncrMutation(s.kind, "failed")
		s.metrics.IncrRemoteError("transactions.delete")

		s.mu.Lock()
		if idx > len(s.records) {
			idx = len(s.records)
		}
		s.records = append(s.records[:idx], append([]domain.Record{snapshot}, s.records[idx:]...)...)
		delete(s.deleted, id)
		s.recomputeTotal()
		s.mu.Unlock()

		s.metrics.IncrRollback(s.kind, "delete")
		s.logger.Warn("record delete rolled back", zap.String("record_id", id), zap.Error(err))
		return err
	}

	s.metrics.IncrMutation(s.kind, "confirmed")
	s.logger.Info("record deleted", zap.String("record_id", id))
	return nil
}

// Withdraw records a cash-out from savings, dated now. The amount must be a
// positive magnitude no greater than the current balance; violations are
// rejected before any network call with local state untouched.
func (s *RecordStore) Withdraw(ctx context.Context, amount float64) (*domain.Record, error) {
	ctx, span := tracer.Start(ctx, "RecordStore.Withdraw")
	defer span.End()

	if s.kind != domain.KindSaving {
		return nil, &domain.ErrValidation{Field: "kind", Message: "withdrawals are only supported on savings"}
	}
	if amount <= 0 {
		return nil, &domain.ErrInvalidAmount{Amount: amount, Reason: "must be positive"}
	}

	balance := s.Total()
	if amount > balance {
		return nil, &domain.ErrInvalidAmount{
			Amount:    amount,
			Available: balance,
			Reason:    "exceeds current balance",
		}
	}

	return s.Add(ctx, domain.Record{
		Description: "Cash out",
		Amount:      -amount,
		Date:        s.now(),
		Type:        domain.TypeCashOut,
	})
}

// Total returns the running total over currently held records.
func (s *RecordStore) Total() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// List returns a copy of the currently held records.
func (s *RecordStore) List() []domain.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Record, len(s.records))
	copy(out, s.records)
	return out
}

// Get returns a record by id.
func (s *RecordStore) Get(id string) (domain.Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(id); i >= 0 {
		return s.records[i], true
	}
	return domain.Record{}, false
}

// indexOf returns the position of id, or -1. Caller must hold mu.
func (s *RecordStore) indexOf(id string) int {
	for i := range s.records {
		if s.records[i].ID == id {
			return i
		}
	}
	return -1
}

// recomputeTotal rebuilds the running total from the record list so it can
// never drift from the held records. Caller must hold mu.
func (s *RecordStore) recomputeTotal() {
	total := 0.0
	for i := range s.records {
		total += s.records[i].Amount
	}
	s.total = total
}

// HydrateAll loads categories and all record stores from the remote ledger
// concurrently. Used at startup and for explicit refreshes.
func HydrateAll(ctx context.Context, cats *CategoryStore, stores ...*RecordStore) error {
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return cats.Hydrate(ctx) })
	for _, store := range stores {
		store := store
		g.Go(func() error { return store.Hydrate(ctx) })
	}
	return g.Wait()
}
