package currency

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/platform/db"
)

// Repository describes currency persistence used by Service.
type Repository interface {
	List(ctx context.Context) ([]Currency, error)
	Get(ctx context.Context, code string) (Currency, error)
	Create(ctx context.Context, c Currency) (Currency, error)
	SetBase(ctx context.Context, code string) error
	BaseCode(ctx context.Context) (string, error)
	InsertRate(ctx context.Context, rate ExchangeRate) (ExchangeRate, error)
	ListRates(ctx context.Context, code string, limit int) ([]ExchangeRate, error)
	LatestRateBefore(ctx context.Context, code string, asOf time.Time) (ExchangeRate, error)
}

type repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

func (r *repository) List(ctx context.Context) ([]Currency, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, code, name, symbol, is_base, created_at, updated_at
FROM currencies ORDER BY code`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Currency
	for rows.Next() {
		var c Currency
		if err := rows.Scan(&c.ID, &c.Code, &c.Name, &c.Symbol, &c.IsBase, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *repository) Get(ctx context.Context, code string) (Currency, error) {
	var c Currency
	err := r.pool.QueryRow(ctx, `SELECT id, code, name, symbol, is_base, created_at, updated_at
FROM currencies WHERE code=$1`, code).Scan(&c.ID, &c.Code, &c.Name, &c.Symbol, &c.IsBase, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Currency{}, ErrNotFound
		}
		return Currency{}, err
	}
	return c, nil
}

func (r *repository) Create(ctx context.Context, c Currency) (Currency, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO currencies (code, name, symbol, is_base)
VALUES ($1, $2, $3, false) RETURNING id, created_at, updated_at`, c.Code, c.Name, c.Symbol).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Currency{}, ErrDuplicateCode
		}
		return Currency{}, err
	}
	return c, nil
}

// SetBase atomically clears the previous base flag and sets the new one. Both
// updates run in one transaction so readers never observe zero or two bases.
func (r *repository) SetBase(ctx context.Context, code string) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `UPDATE currencies SET is_base=false, updated_at=NOW() WHERE is_base=true`); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `UPDATE currencies SET is_base=true, updated_at=NOW() WHERE code=$1`, code)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *repository) BaseCode(ctx context.Context) (string, error) {
	var code string
	err := r.pool.QueryRow(ctx, `SELECT code FROM currencies WHERE is_base=true`).Scan(&code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return code, nil
}

func (r *repository) InsertRate(ctx context.Context, rate ExchangeRate) (ExchangeRate, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO exchange_rates (code, rate, valid_from)
VALUES ($1, $2, $3) RETURNING id, created_at`, rate.Code, rate.Rate, rate.ValidFrom).
		Scan(&rate.ID, &rate.CreatedAt)
	if err != nil {
		return ExchangeRate{}, err
	}
	return rate, nil
}

func (r *repository) ListRates(ctx context.Context, code string, limit int) ([]ExchangeRate, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `SELECT id, code, rate::text, valid_from, created_at
FROM exchange_rates WHERE code=$1 ORDER BY valid_from DESC LIMIT $2`, code, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ExchangeRate
	for rows.Next() {
		var er ExchangeRate
		var raw string
		if err := rows.Scan(&er.ID, &er.Code, &raw, &er.ValidFrom, &er.CreatedAt); err != nil {
			return nil, err
		}
		er.Rate, err = decimal.NewFromString(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, er)
	}
	return out, rows.Err()
}

// LatestRateBefore returns the rate row with the greatest valid_from not after
// asOf. The ORDER BY plus LIMIT 1 makes the resolution deterministic.
func (r *repository) LatestRateBefore(ctx context.Context, code string, asOf time.Time) (ExchangeRate, error) {
	var er ExchangeRate
	var raw string
	err := r.pool.QueryRow(ctx, `SELECT id, code, rate::text, valid_from, created_at
FROM exchange_rates WHERE code=$1 AND valid_from <= $2
ORDER BY valid_from DESC LIMIT 1`, code, asOf).
		Scan(&er.ID, &er.Code, &raw, &er.ValidFrom, &er.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ExchangeRate{}, ErrNoRateAvailable
		}
		return ExchangeRate{}, err
	}
	er.Rate, err = decimal.NewFromString(raw)
	if err != nil {
		return ExchangeRate{}, err
	}
	return er, nil
}
