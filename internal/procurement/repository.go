package procurement

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/budget"
	"github.com/meridian-erp/meridian-erp/internal/platform/db"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx wraps callback in a repeatable-read transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

// querier is satisfied by both pgxpool.Pool and pgx.Tx.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const prColumns = `id, number, requester_id, cost_center_id, procurement_type, suggested_vendor,
	status, total_estimate::text, COALESCE(note,''), created_at, updated_at`

const poColumns = `id, number, pr_id, vendor_id, cost_center_id, currency, exchange_rate::text,
	order_date, status, subtotal::text, tax_percent::text, tax_amount::text, discount_amount::text,
	grand_total::text, created_by, approved_by, approved_at, COALESCE(note,''), created_at, updated_at`

func scanPR(row pgx.Row) (PurchaseRequisition, error) {
	var pr PurchaseRequisition
	var total string
	err := row.Scan(&pr.ID, &pr.Number, &pr.RequesterID, &pr.CostCenterID, &pr.ProcurementType,
		&pr.SuggestedVendor, &pr.Status, &total, &pr.Note, &pr.CreatedAt, &pr.UpdatedAt)
	if err != nil {
		return PurchaseRequisition{}, err
	}
	if pr.TotalEstimate, err = decimal.NewFromString(total); err != nil {
		return PurchaseRequisition{}, fmt.Errorf("parse total_estimate: %w", err)
	}
	return pr, nil
}

func scanPO(row pgx.Row) (PurchaseOrder, error) {
	var po PurchaseOrder
	var rate, subtotal, taxPct, taxAmt, discount, grand string
	err := row.Scan(&po.ID, &po.Number, &po.PRID, &po.VendorID, &po.CostCenterID, &po.Currency, &rate,
		&po.OrderDate, &po.Status, &subtotal, &taxPct, &taxAmt, &discount,
		&grand, &po.CreatedBy, &po.ApprovedBy, &po.ApprovedAt, &po.Note, &po.CreatedAt, &po.UpdatedAt)
	if err != nil {
		return PurchaseOrder{}, err
	}
	for _, p := range []struct {
		dst *decimal.Decimal
		src string
	}{
		{&po.ExchangeRate, rate}, {&po.Subtotal, subtotal}, {&po.TaxPercent, taxPct},
		{&po.TaxAmount, taxAmt}, {&po.DiscountAmount, discount}, {&po.GrandTotal, grand},
	} {
		if *p.dst, err = decimal.NewFromString(p.src); err != nil {
			return PurchaseOrder{}, fmt.Errorf("parse order amount: %w", err)
		}
	}
	return po, nil
}

func listPRLines(ctx context.Context, q querier, prID int64) ([]PRLine, error) {
	rows, err := q.Query(ctx, `SELECT id, pr_id, item_code, COALESCE(description,''), qty::text, unit_price::text, subtotal::text
		FROM pr_lines WHERE pr_id=$1 ORDER BY id`, prID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []PRLine
	for rows.Next() {
		var line PRLine
		var qty, price, subtotal string
		if err := rows.Scan(&line.ID, &line.PRID, &line.ItemCode, &line.Description, &qty, &price, &subtotal); err != nil {
			return nil, err
		}
		if line.Qty, err = decimal.NewFromString(qty); err != nil {
			return nil, err
		}
		if line.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return nil, err
		}
		if line.Subtotal, err = decimal.NewFromString(subtotal); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func listPOLines(ctx context.Context, q querier, poID int64) ([]POLine, error) {
	rows, err := q.Query(ctx, `SELECT id, po_id, pr_line_id, item_code, COALESCE(description,''), qty::text, unit_price::text, line_total::text
		FROM po_lines WHERE po_id=$1 ORDER BY id`, poID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []POLine
	for rows.Next() {
		var line POLine
		var qty, price, total string
		if err := rows.Scan(&line.ID, &line.POID, &line.PRLineID, &line.ItemCode, &line.Description, &qty, &price, &total); err != nil {
			return nil, err
		}
		if line.Qty, err = decimal.NewFromString(qty); err != nil {
			return nil, err
		}
		if line.UnitPrice, err = decimal.NewFromString(price); err != nil {
			return nil, err
		}
		if line.LineTotal, err = decimal.NewFromString(total); err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

func listSteps(ctx context.Context, q querier, prID int64) ([]ApprovalStep, error) {
	rows, err := q.Query(ctx, `SELECT id, pr_id, seq, name, approver_role, status, decided_by, decided_at, COALESCE(note,'')
		FROM pr_approval_steps WHERE pr_id=$1 ORDER BY seq`, prID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var steps []ApprovalStep
	for rows.Next() {
		var s ApprovalStep
		if err := rows.Scan(&s.ID, &s.PRID, &s.Seq, &s.Name, &s.ApproverRole, &s.Status, &s.DecidedBy, &s.DecidedAt, &s.Note); err != nil {
			return nil, err
		}
		steps = append(steps, s)
	}
	return steps, rows.Err()
}

// GetPR returns a requisition with its lines and approval steps.
func (r *Repository) GetPR(ctx context.Context, id int64) (PurchaseRequisition, error) {
	pr, err := scanPR(r.pool.QueryRow(ctx, `SELECT `+prColumns+` FROM purchase_requisitions WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseRequisition{}, ErrNotFound
		}
		return PurchaseRequisition{}, err
	}
	if pr.Lines, err = listPRLines(ctx, r.pool, id); err != nil {
		return PurchaseRequisition{}, err
	}
	if pr.Steps, err = listSteps(ctx, r.pool, id); err != nil {
		return PurchaseRequisition{}, err
	}
	return pr, nil
}

// GetPO returns an order with its lines.
func (r *Repository) GetPO(ctx context.Context, id int64) (PurchaseOrder, error) {
	po, err := scanPO(r.pool.QueryRow(ctx, `SELECT `+poColumns+` FROM purchase_orders WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PurchaseOrder{}, ErrNotFound
		}
		return PurchaseOrder{}, err
	}
	if po.Lines, err = listPOLines(ctx, r.pool, id); err != nil {
		return PurchaseOrder{}, err
	}
	return po, nil
}

// ListPRs returns requisition headers matching filter, newest first.
func (r *Repository) ListPRs(ctx context.Context, filter ListFilter) ([]PurchaseRequisition, error) {
	query := `SELECT ` + prColumns + ` FROM purchase_requisitions WHERE 1=1`
	args := []any{}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += ` AND status=$` + strconv.Itoa(len(args))
	}
	if filter.CostCenterID != 0 {
		args = append(args, filter.CostCenterID)
		query += ` AND cost_center_id=$` + strconv.Itoa(len(args))
	}
	if filter.RequesterID != 0 {
		args = append(args, filter.RequesterID)
		query += ` AND requester_id=$` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY id DESC`
	limit, offset := pageBounds(filter.Page, filter.Limit)
	args = append(args, limit, offset)
	query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var prs []PurchaseRequisition
	for rows.Next() {
		pr, err := scanPR(rows)
		if err != nil {
			return nil, err
		}
		prs = append(prs, pr)
	}
	return prs, rows.Err()
}

// ListPOs returns order headers matching filter, newest first.
func (r *Repository) ListPOs(ctx context.Context, filter ListFilter) ([]PurchaseOrder, error) {
	query := `SELECT ` + poColumns + ` FROM purchase_orders WHERE 1=1`
	args := []any{}
	if filter.Status != "" {
		args = append(args, filter.Status)
		query += ` AND status=$` + strconv.Itoa(len(args))
	}
	if filter.CostCenterID != 0 {
		args = append(args, filter.CostCenterID)
		query += ` AND cost_center_id=$` + strconv.Itoa(len(args))
	}
	query += ` ORDER BY id DESC`
	limit, offset := pageBounds(filter.Page, filter.Limit)
	args = append(args, limit, offset)
	query += fmt.Sprintf(` LIMIT $%d OFFSET $%d`, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var pos []PurchaseOrder
	for rows.Next() {
		po, err := scanPO(rows)
		if err != nil {
			return nil, err
		}
		pos = append(pos, po)
	}
	return pos, rows.Err()
}

func pageBounds(page, limit int) (int, int) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if page <= 0 {
		page = 1
	}
	return limit, (page - 1) * limit
}

// Transactional operations

func (t *txRepo) CreatePR(ctx context.Context, pr PurchaseRequisition) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO purchase_requisitions
		(number, requester_id, cost_center_id, procurement_type, suggested_vendor, status, total_estimate, note, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,NOW(),NOW()) RETURNING id`,
		pr.Number, pr.RequesterID, pr.CostCenterID, pr.ProcurementType, pr.SuggestedVendor, pr.Status, pr.TotalEstimate, nullable(pr.Note)).Scan(&id)
	return id, err
}

func (t *txRepo) InsertPRLine(ctx context.Context, line PRLine) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO pr_lines (pr_id, item_code, description, qty, unit_price, subtotal)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		line.PRID, line.ItemCode, nullable(line.Description), line.Qty, line.UnitPrice, line.Subtotal)
	return err
}

func (t *txRepo) ListPRLines(ctx context.Context, prID int64) ([]PRLine, error) {
	return listPRLines(ctx, t.tx, prID)
}

func (t *txRepo) DeletePRLines(ctx context.Context, prID int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM pr_lines WHERE pr_id=$1`, prID)
	return err
}

func (t *txRepo) UpdatePRDraft(ctx context.Context, pr PurchaseRequisition) error {
	tag, err := t.tx.Exec(ctx, `UPDATE purchase_requisitions
		SET cost_center_id=$2, procurement_type=$3, suggested_vendor=$4, note=$5, total_estimate=$6, updated_at=NOW()
		WHERE id=$1`,
		pr.ID, pr.CostCenterID, pr.ProcurementType, pr.SuggestedVendor, nullable(pr.Note), pr.TotalEstimate)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepo) UpdatePRStatus(ctx context.Context, id int64, status PRStatus) error {
	tag, err := t.tx.Exec(ctx, `UPDATE purchase_requisitions SET status=$2, updated_at=NOW() WHERE id=$1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepo) GetPRForUpdate(ctx context.Context, id int64) (PurchaseRequisition, error) {
	pr, err := scanPR(t.tx.QueryRow(ctx, `SELECT `+prColumns+` FROM purchase_requisitions WHERE id=$1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return PurchaseRequisition{}, ErrNotFound
	}
	return pr, err
}

func (t *txRepo) InsertApprovalStep(ctx context.Context, step ApprovalStep) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO pr_approval_steps (pr_id, seq, name, approver_role, status)
		VALUES ($1,$2,$3,$4,$5)`,
		step.PRID, step.Seq, step.Name, step.ApproverRole, step.Status)
	return err
}

func (t *txRepo) ListApprovalSteps(ctx context.Context, prID int64) ([]ApprovalStep, error) {
	return listSteps(ctx, t.tx, prID)
}

func (t *txRepo) DecideApprovalStep(ctx context.Context, stepID int64, status StepStatus, decidedBy int64, decidedAt time.Time, note string) error {
	tag, err := t.tx.Exec(ctx, `UPDATE pr_approval_steps
		SET status=$2, decided_by=$3, decided_at=$4, note=$5
		WHERE id=$1 AND status='PENDING'`,
		stepID, status, decidedBy, decidedAt, nullable(note))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrInvalidState
	}
	return nil
}

func (t *txRepo) SkipPendingSteps(ctx context.Context, prID int64) error {
	_, err := t.tx.Exec(ctx, `UPDATE pr_approval_steps SET status='SKIPPED' WHERE pr_id=$1 AND status='PENDING'`, prID)
	return err
}

func (t *txRepo) CreatePO(ctx context.Context, po PurchaseOrder) (int64, error) {
	var id int64
	err := t.tx.QueryRow(ctx, `INSERT INTO purchase_orders
		(number, pr_id, vendor_id, cost_center_id, currency, exchange_rate, order_date, status,
		 subtotal, tax_percent, tax_amount, discount_amount, grand_total, created_by, note, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,NOW(),NOW()) RETURNING id`,
		po.Number, po.PRID, po.VendorID, po.CostCenterID, po.Currency, po.ExchangeRate, po.OrderDate, po.Status,
		po.Subtotal, po.TaxPercent, po.TaxAmount, po.DiscountAmount, po.GrandTotal, po.CreatedBy, nullable(po.Note)).Scan(&id)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return 0, ErrAlreadyConverted
		}
		return 0, err
	}
	return id, nil
}

func (t *txRepo) InsertPOLine(ctx context.Context, line POLine) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO po_lines (po_id, pr_line_id, item_code, description, qty, unit_price, line_total)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		line.POID, line.PRLineID, line.ItemCode, nullable(line.Description), line.Qty, line.UnitPrice, line.LineTotal)
	return err
}

func (t *txRepo) DeletePOLines(ctx context.Context, poID int64) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM po_lines WHERE po_id=$1`, poID)
	return err
}

func (t *txRepo) ListPOLines(ctx context.Context, poID int64) ([]POLine, error) {
	return listPOLines(ctx, t.tx, poID)
}

func (t *txRepo) UpdatePODraft(ctx context.Context, po PurchaseOrder) error {
	tag, err := t.tx.Exec(ctx, `UPDATE purchase_orders
		SET vendor_id=$2, tax_percent=$3, discount_amount=$4, note=$5,
		    subtotal=$6, tax_amount=$7, grand_total=$8, updated_at=NOW()
		WHERE id=$1`,
		po.ID, po.VendorID, po.TaxPercent, po.DiscountAmount, nullable(po.Note),
		po.Subtotal, po.TaxAmount, po.GrandTotal)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepo) UpdatePOTotals(ctx context.Context, po PurchaseOrder) error {
	_, err := t.tx.Exec(ctx, `UPDATE purchase_orders
		SET subtotal=$2, tax_amount=$3, grand_total=$4, updated_at=NOW() WHERE id=$1`,
		po.ID, po.Subtotal, po.TaxAmount, po.GrandTotal)
	return err
}

func (t *txRepo) UpdatePOStatus(ctx context.Context, id int64, status POStatus) error {
	tag, err := t.tx.Exec(ctx, `UPDATE purchase_orders SET status=$2, updated_at=NOW() WHERE id=$1`, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *txRepo) SetPOApproval(ctx context.Context, id int64, approvedBy int64, approvedAt time.Time) error {
	_, err := t.tx.Exec(ctx, `UPDATE purchase_orders SET approved_by=$2, approved_at=$3, updated_at=NOW() WHERE id=$1`, id, approvedBy, approvedAt)
	return err
}

func (t *txRepo) GetPOForUpdate(ctx context.Context, id int64) (PurchaseOrder, error) {
	po, err := scanPO(t.tx.QueryRow(ctx, `SELECT `+poColumns+` FROM purchase_orders WHERE id=$1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return PurchaseOrder{}, ErrNotFound
	}
	return po, err
}

func (t *txRepo) GetBudgetForUpdate(ctx context.Context, costCenterID int64, period string) (budget.Budget, error) {
	var b budget.Budget
	var allocated, committed string
	err := t.tx.QueryRow(ctx, `SELECT id, cost_center_id, period, allocated::text, committed::text
		FROM budgets WHERE cost_center_id=$1 AND period=$2 FOR UPDATE`, costCenterID, period).
		Scan(&b.ID, &b.CostCenterID, &b.Period, &allocated, &committed)
	if errors.Is(err, pgx.ErrNoRows) {
		return budget.Budget{}, budget.ErrNotFound
	}
	if err != nil {
		return budget.Budget{}, err
	}
	if b.Allocated, err = decimal.NewFromString(allocated); err != nil {
		return budget.Budget{}, err
	}
	if b.Committed, err = decimal.NewFromString(committed); err != nil {
		return budget.Budget{}, err
	}
	return b, nil
}

func (t *txRepo) AddBudgetCommitted(ctx context.Context, budgetID int64, delta decimal.Decimal) error {
	_, err := t.tx.Exec(ctx, `UPDATE budgets SET committed = committed + $2, updated_at=NOW() WHERE id=$1`, budgetID, delta)
	return err
}

func (t *txRepo) NextDocNumber(ctx context.Context, prefix, period string) (int64, error) {
	var n int64
	err := t.tx.QueryRow(ctx, `INSERT INTO doc_sequences (prefix, period, last_value)
		VALUES ($1,$2,1)
		ON CONFLICT (prefix, period) DO UPDATE SET last_value = doc_sequences.last_value + 1
		RETURNING last_value`, prefix, period).Scan(&n)
	return n, err
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
