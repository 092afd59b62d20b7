package budget

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository describes budget persistence used by Service.
type Repository interface {
	List(ctx context.Context, costCenterID int64) ([]Budget, error)
	Get(ctx context.Context, costCenterID int64, period string) (Budget, error)
	Create(ctx context.Context, b Budget) (Budget, error)
	UpdateAllocated(ctx context.Context, costCenterID int64, period string, allocated decimal.Decimal) (Budget, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const budgetColumns = `id, cost_center_id, period, allocated::text, committed::text, created_at, updated_at`

func scanBudget(row pgx.Row) (Budget, error) {
	var b Budget
	var allocated, committed string
	if err := row.Scan(&b.ID, &b.CostCenterID, &b.Period, &allocated, &committed, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return Budget{}, err
	}
	var err error
	if b.Allocated, err = decimal.NewFromString(allocated); err != nil {
		return Budget{}, err
	}
	if b.Committed, err = decimal.NewFromString(committed); err != nil {
		return Budget{}, err
	}
	return b, nil
}

func (r *repository) List(ctx context.Context, costCenterID int64) ([]Budget, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+budgetColumns+`
FROM budgets WHERE cost_center_id=$1 ORDER BY period DESC`, costCenterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Budget
	for rows.Next() {
		b, err := scanBudget(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *repository) Get(ctx context.Context, costCenterID int64, period string) (Budget, error) {
	b, err := scanBudget(r.pool.QueryRow(ctx, `SELECT `+budgetColumns+`
FROM budgets WHERE cost_center_id=$1 AND period=$2`, costCenterID, period))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Budget{}, ErrNotFound
		}
		return Budget{}, err
	}
	return b, nil
}

func (r *repository) Create(ctx context.Context, b Budget) (Budget, error) {
	created, err := scanBudget(r.pool.QueryRow(ctx, `INSERT INTO budgets (cost_center_id, period, allocated, committed)
VALUES ($1, $2, $3, 0) RETURNING `+budgetColumns, b.CostCenterID, b.Period, b.Allocated))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Budget{}, ErrDuplicatePeriod
		}
		return Budget{}, err
	}
	return created, nil
}

// UpdateAllocated changes the allocation, refusing to drop below the amount
// already committed. The comparison happens in SQL so a concurrent commit
// cannot slip between read and write.
func (r *repository) UpdateAllocated(ctx context.Context, costCenterID int64, period string, allocated decimal.Decimal) (Budget, error) {
	updated, err := scanBudget(r.pool.QueryRow(ctx, `UPDATE budgets
SET allocated=$3, updated_at=NOW()
WHERE cost_center_id=$1 AND period=$2 AND committed <= $3
RETURNING `+budgetColumns, costCenterID, period, allocated))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Row missing or committed exceeds the new allocation.
			if _, getErr := r.Get(ctx, costCenterID, period); getErr != nil {
				return Budget{}, getErr
			}
			return Budget{}, ErrBelowCommitted
		}
		return Budget{}, err
	}
	return updated, nil
}
