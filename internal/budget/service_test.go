package budget

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type memoryBudgetRepo struct {
	budgets map[string]Budget
	nextID  int64
}

func newMemoryBudgetRepo() *memoryBudgetRepo {
	return &memoryBudgetRepo{budgets: make(map[string]Budget)}
}

func budgetKey(costCenterID int64, period string) string {
	return period + "/" + decimal.NewFromInt(costCenterID).String()
}

func (r *memoryBudgetRepo) List(ctx context.Context, costCenterID int64) ([]Budget, error) {
	var out []Budget
	for _, b := range r.budgets {
		if b.CostCenterID == costCenterID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *memoryBudgetRepo) Get(ctx context.Context, costCenterID int64, period string) (Budget, error) {
	b, ok := r.budgets[budgetKey(costCenterID, period)]
	if !ok {
		return Budget{}, ErrNotFound
	}
	return b, nil
}

func (r *memoryBudgetRepo) Create(ctx context.Context, b Budget) (Budget, error) {
	key := budgetKey(b.CostCenterID, b.Period)
	if _, ok := r.budgets[key]; ok {
		return Budget{}, ErrDuplicatePeriod
	}
	r.nextID++
	b.ID = r.nextID
	b.Committed = decimal.Zero
	r.budgets[key] = b
	return b, nil
}

func (r *memoryBudgetRepo) UpdateAllocated(ctx context.Context, costCenterID int64, period string, allocated decimal.Decimal) (Budget, error) {
	key := budgetKey(costCenterID, period)
	b, ok := r.budgets[key]
	if !ok {
		return Budget{}, ErrNotFound
	}
	if b.Committed.GreaterThan(allocated) {
		return Budget{}, ErrBelowCommitted
	}
	b.Allocated = allocated
	r.budgets[key] = b
	return b, nil
}

func TestAllocateValidatesInput(t *testing.T) {
	svc := NewService(newMemoryBudgetRepo())
	ctx := context.Background()

	_, err := svc.Allocate(ctx, 0, "2026-01", decimal.NewFromInt(1000))
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Allocate(ctx, 1, "2026-13", decimal.NewFromInt(1000))
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.Allocate(ctx, 1, "2026-01", decimal.Zero)
	require.ErrorIs(t, err, ErrValidation)

	b, err := svc.Allocate(ctx, 1, "2026-01", decimal.NewFromInt(1000))
	require.NoError(t, err)
	require.True(t, b.Committed.IsZero())
	require.True(t, b.Available().Equal(decimal.NewFromInt(1000)))

	_, err = svc.Allocate(ctx, 1, "2026-01", decimal.NewFromInt(500))
	require.ErrorIs(t, err, ErrDuplicatePeriod)
}

func TestReallocateRespectsCommitted(t *testing.T) {
	repo := newMemoryBudgetRepo()
	svc := NewService(repo)
	ctx := context.Background()

	b, err := svc.Allocate(ctx, 7, "2026-02", decimal.NewFromInt(1000))
	require.NoError(t, err)

	b.Committed = decimal.NewFromInt(600)
	repo.budgets[budgetKey(7, "2026-02")] = b

	_, err = svc.Reallocate(ctx, 7, "2026-02", decimal.NewFromInt(500))
	require.ErrorIs(t, err, ErrBelowCommitted)

	updated, err := svc.Reallocate(ctx, 7, "2026-02", decimal.NewFromInt(800))
	require.NoError(t, err)
	require.True(t, updated.Available().Equal(decimal.NewFromInt(200)))
}
