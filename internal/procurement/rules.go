package procurement

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// RuleStep is one ordered stage of an approval rule template.
type RuleStep struct {
	Seq          int    `json:"seq"`
	Name         string `json:"name"`
	ApproverRole string `json:"approver_role"`
}

// ApprovalRule matches requisitions by procurement type and amount band.
// MaxAmount nil means unbounded.
type ApprovalRule struct {
	ID              int64            `json:"id"`
	ProcurementType string           `json:"procurement_type"`
	MinAmount       decimal.Decimal  `json:"min_amount"`
	MaxAmount       *decimal.Decimal `json:"max_amount,omitempty"`
	Steps           []RuleStep       `json:"steps"`
}

// ErrNoRuleMatch indicates no approval rule covers the requisition.
var ErrNoRuleMatch = errors.New("procurement: no approval rule matches")

// RuleResolver selects the approval step sequence for a requisition.
type RuleResolver interface {
	Resolve(ctx context.Context, procurementType string, amount decimal.Decimal) ([]RuleStep, error)
}

// PgRuleResolver resolves rules from approval_rules / approval_rule_steps.
// The narrowest matching band wins (highest min_amount).
type PgRuleResolver struct {
	pool *pgxpool.Pool
}

func NewPgRuleResolver(pool *pgxpool.Pool) *PgRuleResolver {
	return &PgRuleResolver{pool: pool}
}

func (r *PgRuleResolver) Resolve(ctx context.Context, procurementType string, amount decimal.Decimal) ([]RuleStep, error) {
	var ruleID int64
	err := r.pool.QueryRow(ctx, `
		SELECT id FROM approval_rules
		WHERE procurement_type = $1
		  AND min_amount <= $2
		  AND (max_amount IS NULL OR max_amount >= $2)
		ORDER BY min_amount DESC
		LIMIT 1`, procurementType, amount).Scan(&ruleID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNoRuleMatch
	}
	if err != nil {
		return nil, fmt.Errorf("resolve approval rule: %w", err)
	}

	rows, err := r.pool.Query(ctx, `
		SELECT seq, name, approver_role
		FROM approval_rule_steps
		WHERE rule_id = $1
		ORDER BY seq`, ruleID)
	if err != nil {
		return nil, fmt.Errorf("load rule steps: %w", err)
	}
	defer rows.Close()

	var steps []RuleStep
	for rows.Next() {
		var s RuleStep
		if err := rows.Scan(&s.Seq, &s.Name, &s.ApproverRole); err != nil {
			return nil, err
		}
		steps = append(steps, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(steps) == 0 {
		return nil, ErrNoRuleMatch
	}
	return steps, nil
}
