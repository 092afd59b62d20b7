package budget

import (
	"context"
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"
)

var periodPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// Service manages budget allocations. Commitment against a budget is owned by
// the procurement approval transaction, not this service.
type Service struct {
	repo Repository
}

// NewService constructs the budget service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// List returns budgets for a cost center, newest period first.
func (s *Service) List(ctx context.Context, costCenterID int64) ([]Budget, error) {
	if costCenterID <= 0 {
		return nil, fmt.Errorf("%w: cost center id required", ErrValidation)
	}
	return s.repo.List(ctx, costCenterID)
}

// Get returns the budget for one cost center and period.
func (s *Service) Get(ctx context.Context, costCenterID int64, period string) (Budget, error) {
	if err := validatePeriod(period); err != nil {
		return Budget{}, err
	}
	return s.repo.Get(ctx, costCenterID, period)
}

// Allocate creates a budget for a cost center/period.
func (s *Service) Allocate(ctx context.Context, costCenterID int64, period string, amount decimal.Decimal) (Budget, error) {
	if costCenterID <= 0 {
		return Budget{}, fmt.Errorf("%w: cost center id required", ErrValidation)
	}
	if err := validatePeriod(period); err != nil {
		return Budget{}, err
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return Budget{}, fmt.Errorf("%w: allocation must be positive", ErrValidation)
	}
	return s.repo.Create(ctx, Budget{CostCenterID: costCenterID, Period: period, Allocated: amount})
}

// Reallocate changes the allocation for an existing budget. Reducing the
// allocation below the committed amount fails with ErrBelowCommitted.
func (s *Service) Reallocate(ctx context.Context, costCenterID int64, period string, amount decimal.Decimal) (Budget, error) {
	if err := validatePeriod(period); err != nil {
		return Budget{}, err
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return Budget{}, fmt.Errorf("%w: allocation must be positive", ErrValidation)
	}
	return s.repo.UpdateAllocated(ctx, costCenterID, period, amount)
}

func validatePeriod(period string) error {
	if !periodPattern.MatchString(period) {
		return fmt.Errorf("%w: period must be YYYY-MM", ErrValidation)
	}
	return nil
}
