package costcenters

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/masterdata/shared"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]CostCenter, int, error)
	Get(ctx context.Context, id int64) (CostCenter, error)
	Create(ctx context.Context, cc CostCenter) (CostCenter, error)
	Update(ctx context.Context, id int64, cc CostCenter) error
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const columns = `id, code, name, COALESCE(description,''), manager_id, active, created_at, updated_at`

func scan(row pgx.Row) (CostCenter, error) {
	var cc CostCenter
	err := row.Scan(&cc.ID, &cc.Code, &cc.Name, &cc.Description, &cc.ManagerID, &cc.Active, &cc.CreatedAt, &cc.UpdatedAt)
	return cc, err
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]CostCenter, int, error) {
	query := `SELECT ` + columns + ` FROM cost_centers WHERE 1=1`
	args := []any{}
	argCount := 0

	if filters.Search != "" {
		argCount++
		query += ` AND (name ILIKE $` + strconv.Itoa(argCount) + ` OR code ILIKE $` + strconv.Itoa(argCount) + `)`
		args = append(args, "%"+filters.Search+"%")
	}

	countQuery := `SELECT COUNT(*) FROM cost_centers WHERE 1=1`
	countArgs := []any{}
	if filters.Search != "" {
		countArgs = append(countArgs, "%"+filters.Search+"%")
		countQuery += ` AND (name ILIKE $1 OR code ILIKE $1)`
	}

	var total int
	if err := r.db.QueryRow(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	dir := "ASC"
	if filters.SortDir == shared.SortDesc {
		dir = "DESC"
	}
	query += ` ORDER BY code ` + dir

	limit := filters.Limit
	if limit <= 0 {
		limit = shared.DefaultLimit
	}
	argCount++
	query += ` LIMIT $` + strconv.Itoa(argCount)
	args = append(args, limit)
	argCount++
	query += ` OFFSET $` + strconv.Itoa(argCount)
	args = append(args, filters.Offset())

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var centers []CostCenter
	for rows.Next() {
		cc, err := scan(rows)
		if err != nil {
			return nil, 0, err
		}
		centers = append(centers, cc)
	}
	return centers, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (CostCenter, error) {
	cc, err := scan(r.db.QueryRow(ctx, `SELECT `+columns+` FROM cost_centers WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return CostCenter{}, shared.ErrNotFound
	}
	return cc, err
}

func (r *repository) Create(ctx context.Context, cc CostCenter) (CostCenter, error) {
	now := time.Now()
	err := r.db.QueryRow(ctx, `INSERT INTO cost_centers (code, name, description, manager_id, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6) RETURNING id`,
		cc.Code, cc.Name, cc.Description, cc.ManagerID, cc.Active, now).Scan(&cc.ID)
	if err != nil {
		return CostCenter{}, mapPgError(err)
	}
	cc.CreatedAt = now
	cc.UpdatedAt = now
	return cc, nil
}

func (r *repository) Update(ctx context.Context, id int64, cc CostCenter) error {
	tag, err := r.db.Exec(ctx, `UPDATE cost_centers SET code = $1, name = $2, description = $3, manager_id = $4, active = $5, updated_at = $6 WHERE id = $7`,
		cc.Code, cc.Name, cc.Description, cc.ManagerID, cc.Active, time.Now(), id)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM cost_centers WHERE id = $1`, id)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return shared.ErrDuplicate
		case "23503":
			return shared.ErrInUse
		}
	}
	return err
}
