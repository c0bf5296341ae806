package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/keilmann/allowance-tracker-go/internal/domain"
	"github.com/keilmann/allowance-tracker-go/internal/infra/observability"
	"github.com/keilmann/allowance-tracker-go/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeLedger is an in-memory remote ledger. Per-method hooks let tests
// inject failures and control when a call resolves.
type fakeLedger struct {
	mu     sync.Mutex
	nextID int
	calls  map[string]int

	listRecords []domain.Record
	categories  []domain.Category

	createErr error
	updateErr error
	deleteErr error
	listErr   error

	beforeUpdate func() // runs before UpdateTransaction resolves
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{calls: make(map[string]int)}
}

func (f *fakeLedger) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeLedger) incr(op string) {
	f.mu.Lock()
	f.calls[op]++
	f.mu.Unlock()
}

func (f *fakeLedger) ListTransactions(_ context.Context, _ domain.RecordKind) ([]domain.Record, error) {
	f.incr("list")
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]domain.Record, len(f.listRecords))
	copy(out, f.listRecords)
	return out, nil
}

func (f *fakeLedger) CreateTransaction(_ context.Context, _ domain.RecordKind, rec domain.Record) (*domain.Record, error) {
	f.incr("create")
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.mu.Lock()
	f.nextID++
	rec.ID = fmt.Sprintf("srv-%d", f.nextID)
	f.mu.Unlock()
	return &rec, nil
}

func (f *fakeLedger) UpdateTransaction(_ context.Context, _ domain.RecordKind, rec domain.Record) (*domain.Record, error) {
	if f.beforeUpdate != nil {
		f.beforeUpdate()
	}
	f.incr("update")
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return &rec, nil
}

func (f *fakeLedger) DeleteTransaction(_ context.Context, _ domain.RecordKind, _ string) error {
	f.incr("delete")
	return f.deleteErr
}

func (f *fakeLedger) ListCategories(_ context.Context) ([]domain.Category, error) {
	f.incr("listCategories")
	out := make([]domain.Category, len(f.categories))
	copy(out, f.categories)
	return out, nil
}

func (f *fakeLedger) CreateCategory(_ context.Context, cat domain.Category) (*domain.Category, error) {
	f.incr("createCategory")
	if f.createErr != nil {
		return nil, f.createErr
	}
	cat.ID = "srv-cat-1"
	return &cat, nil
}

func (f *fakeLedger) DeleteCategory(_ context.Context, _ string) error {
	f.incr("deleteCategory")
	return f.deleteErr
}

func newStore(t *testing.T, kind domain.RecordKind, ledger *fakeLedger) *service.RecordStore {
	t.Helper()
	return service.NewRecordStore(kind, ledger, observability.NewMetrics(), zap.NewNop())
}

func sumAmounts(records []domain.Record) float64 {
	total := 0.0
	for _, r := range records {
		total += r.Amount
	}
	return total
}

func TestRecordStore_AddAppendsOnConfirmation(t *testing.T) {
	ledger := newFakeLedger()
	store := newStore(t, domain.KindExpense, ledger)

	rec, err := store.Add(context.Background(), domain.Record{
		Description: "Bus ticket",
		Amount:      3.5,
		Date:        time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.NotEmpty(t, rec.ID)
	assert.Equal(t, domain.TypeExpense, rec.Type)

	assert.Equal(t, 1, ledger.count("create"))
	assert.Equal(t, 3.5, store.Total())
	require.Len(t, store.List(), 1)
}

func TestRecordStore_AddFailureLeavesStateUntouched(t *testing.T) {
	ledger := newFakeLedger()
	ledger.createErr = errors.New("remote down")
	store := newStore(t, domain.KindExpense, ledger)

	_, err := store.Add(context.Background(), domain.Record{Description: "x", Amount: 10})
	require.Error(t, err)

	assert.Equal(t, 1, ledger.count("create"), "add must make exactly one network call")
	assert.Empty(t, store.List())
	assert.Equal(t, 0.0, store.Total())
}

func TestRecordStore_AddForcesSavingType(t *testing.T) {
	ledger := newFakeLedger()
	store := newStore(t, domain.KindSaving, ledger)

	rec, err := store.Add(context.Background(), domain.Record{Description: "Allowance", Amount: 20})
	require.NoError(t, err)
	assert.Equal(t, domain.TypeSaving, rec.Type)

	// Cash-outs keep their type through the savings store.
	out, err := store.Add(context.Background(), domain.Record{Description: "Cash out", Amount: -5, Type: domain.TypeCashOut})
	require.NoError(t, err)
	assert.Equal(t, domain.TypeCashOut, out.Type)
	assert.Equal(t, 15.0, store.Total())
}

func hydrated(t *testing.T, ledger *fakeLedger, kind domain.RecordKind, records ...domain.Record) *service.RecordStore {
	t.Helper()
	ledger.listRecords = records
	store := newStore(t, kind, ledger)
	require.NoError(t, store.Hydrate(context.Background()))
	return store
}

func TestRecordStore_UpdateReplacesWithCanonicalValue(t *testing.T) {
	ledger := newFakeLedger()
	store := hydrated(t, ledger, domain.KindExpense,
		domain.Record{ID: "r1", Description: "Lunch", Amount: 12, Date: day(2024, 2, 1), Type: domain.TypeExpense},
	)

	updated := domain.Record{ID: "r1", Description: "Lunch out", Amount: 15, Date: day(2024, 2, 1), Type: domain.TypeExpense}
	require.NoError(t, store.Update(context.Background(), updated))

	got, ok := store.Get("r1")
	require.True(t, ok)
	assert.Equal(t, "Lunch out", got.Description)
	assert.Equal(t, 15.0, store.Total())
}

func TestRecordStore_UpdateRollbackRestoresExactSnapshot(t *testing.T) {
	ledger := newFakeLedger()
	original := domain.Record{ID: "r1", Description: "Lunch", Amount: 12, Date: day(2024, 2, 1), Type: domain.TypeExpense, CategoryID: "cat-food"}
	store := hydrated(t, ledger, domain.KindExpense, original)

	ledger.updateErr = errors.New("remote down")
	err := store.Update(context.Background(), domain.Record{ID: "r1", Description: "Dinner", Amount: 40, Date: day(2024, 2, 2), Type: domain.TypeExpense})
	require.Error(t, err)

	got, ok := store.Get("r1")
	require.True(t, ok)
	assert.Equal(t, original, got, "pre-mutation snapshot must be restored field for field")
	assert.Equal(t, 12.0, store.Total())
}

func TestRecordStore_UpdateUnknownIDIsNoOp(t *testing.T) {
	ledger := newFakeLedger()
	store := hydrated(t, ledger, domain.KindExpense)

	err := store.Update(context.Background(), domain.Record{ID: "ghost", Amount: 5})

	var notFound *domain.ErrNotFound
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, 0, ledger.count("update"), "no network call for unknown ids")
}

func TestRecordStore_DeleteRemovesAndConfirms(t *testing.T) {
	ledger := newFakeLedger()
	store := hydrated(t, ledger, domain.KindExpense,
		domain.Record{ID: "r1", Amount: 10, Date: day(2024, 2, 1)},
		domain.Record{ID: "r2", Amount: 5, Date: day(2024, 2, 2)},
	)

	require.NoError(t, store.Delete(context.Background(), "r1"))
	assert.Equal(t, 5.0, store.Total())
	_, ok := store.Get("r1")
	assert.False(t, ok)
}

func TestRecordStore_DeleteRollbackReinsertsAtPosition(t *testing.T) {
	ledger := newFakeLedger()
	store := hydrated(t, ledger, domain.KindExpense,
		domain.Record{ID: "r1", Amount: 10, Date: day(2024, 2, 1)},
		domain.Record{ID: "r2", Amount: 5, Date: day(2024, 2, 2)},
		domain.Record{ID: "r3", Amount: 2, Date: day(2024, 2, 3)},
	)

	ledger.deleteErr = errors.New("remote down")
	err := store.Delete(context.Background(), "r2")
	require.Error(t, err)

	records := store.List()
	require.Len(t, records, 3)
	assert.Equal(t, "r2", records[1].ID, "rolled-back record returns to its original position")
	assert.Equal(t, 17.0, store.Total())
}

func TestRecordStore_DeleteUnknownIDIsNoOp(t *testing.T) {
	ledger := newFakeLedger()
	store := hydrated(t, ledger, domain.KindExpense)

	err := store.Delete(context.Background(), "ghost")

	var notFound *domain.ErrNotFound
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, 0, ledger.count("delete"))
}

func TestRecordStore_StaleUpdateAckDoesNotResurrectDeleted(t *testing.T) {
	ledger := newFakeLedger()
	store := hydrated(t, ledger, domain.KindExpense,
		domain.Record{ID: "r1", Amount: 10, Date: day(2024, 2, 1)},
	)

	updateStarted := make(chan struct{})
	releaseUpdate := make(chan struct{})
	ledger.beforeUpdate = func() {
		close(updateStarted)
		<-releaseUpdate
	}

	done := make(chan error, 1)
	go func() {
		done <- store.Update(context.Background(), domain.Record{ID: "r1", Amount: 99, Date: day(2024, 2, 1)})
	}()

	<-updateStarted
	require.NoError(t, store.Delete(context.Background(), "r1"))

	close(releaseUpdate)
	require.NoError(t, <-done)

	_, ok := store.Get("r1")
	assert.False(t, ok, "slow update confirmation must not resurrect the deleted record")
	assert.Equal(t, 0.0, store.Total())
}

func TestRecordStore_WithdrawRejectsWithoutNetworkCall(t *testing.T) {
	ledger := newFakeLedger()
	store := hydrated(t, ledger, domain.KindSaving,
		domain.Record{ID: "s1", Amount: 30, Date: day(2024, 2, 1), Type: domain.TypeSaving},
	)

	var invalid *domain.ErrInvalidAmount

	_, err := store.Withdraw(context.Background(), 50)
	require.ErrorAs(t, err, &invalid)

	_, err = store.Withdraw(context.Background(), 0)
	require.ErrorAs(t, err, &invalid)

	_, err = store.Withdraw(context.Background(), -5)
	require.ErrorAs(t, err, &invalid)

	assert.Equal(t, 0, ledger.count("create"), "rejected withdrawals must not reach the network")
	assert.Equal(t, 30.0, store.Total())
}

func TestRecordStore_WithdrawCreatesNegativeCashOut(t *testing.T) {
	ledger := newFakeLedger()
	store := hydrated(t, ledger, domain.KindSaving,
		domain.Record{ID: "s1", Amount: 30, Date: day(2024, 2, 1), Type: domain.TypeSaving},
	)

	rec, err := store.Withdraw(context.Background(), 12.5)
	require.NoError(t, err)
	assert.Equal(t, domain.TypeCashOut, rec.Type)
	assert.Equal(t, -12.5, rec.Amount)
	assert.Equal(t, 17.5, store.Total())
}

func TestRecordStore_WithdrawOnlyOnSavings(t *testing.T) {
	ledger := newFakeLedger()
	store := newStore(t, domain.KindExpense, ledger)

	_, err := store.Withdraw(context.Background(), 5)

	var validation *domain.ErrValidation
	require.ErrorAs(t, err, &validation)
}

func TestRecordStore_RunningTotalMatchesRecordsThroughout(t *testing.T) {
	ledger := newFakeLedger()
	store := hydrated(t, ledger, domain.KindExpense,
		domain.Record{ID: "r1", Amount: 10.10, Date: day(2024, 2, 1)},
		domain.Record{ID: "r2", Amount: 0.35, Date: day(2024, 2, 2)},
	)
	ctx := context.Background()

	check := func() {
		t.Helper()
		assert.Equal(t, sumAmounts(store.List()), store.Total())
	}
	check()

	_, err := store.Add(ctx, domain.Record{Description: "a", Amount: 7.77})
	require.NoError(t, err)
	check()

	require.NoError(t, store.Update(ctx, domain.Record{ID: "r1", Amount: 3.33, Date: day(2024, 2, 1)}))
	check()

	ledger.updateErr = errors.New("down")
	_ = store.Update(ctx, domain.Record{ID: "r2", Amount: 100, Date: day(2024, 2, 2)})
	ledger.updateErr = nil
	check()

	require.NoError(t, store.Delete(ctx, "r1"))
	check()

	ledger.deleteErr = errors.New("down")
	_ = store.Delete(ctx, "r2")
	ledger.deleteErr = nil
	check()
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
