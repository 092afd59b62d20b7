package budget

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Budget holds the allocation for one cost center in one period (YYYY-MM).
// Committed never exceeds Allocated; the commit itself happens inside the
// purchase-order approval transaction with the row locked.
type Budget struct {
	ID           int64           `json:"id"`
	CostCenterID int64           `json:"cost_center_id"`
	Period       string          `json:"period"`
	Allocated    decimal.Decimal `json:"allocated"`
	Committed    decimal.Decimal `json:"committed"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// Available returns the uncommitted remainder.
func (b Budget) Available() decimal.Decimal {
	return b.Allocated.Sub(b.Committed)
}

var (
	// ErrNotFound indicates no budget row for the cost center/period.
	ErrNotFound = errors.New("budget: not found")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("budget: invalid input")
	// ErrBelowCommitted indicates an allocation change below the amount
	// already committed.
	ErrBelowCommitted = errors.New("budget: allocation below committed amount")
	// ErrDuplicatePeriod indicates a budget already exists for the cost
	// center/period.
	ErrDuplicatePeriod = errors.New("budget: period already allocated")
)

// PeriodOf formats the budgeting period a date falls in.
func PeriodOf(t time.Time) string {
	return t.Format("2006-01")
}
