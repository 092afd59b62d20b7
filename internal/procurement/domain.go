package procurement

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Purchase requisition lifecycle statuses.
type PRStatus string

const (
	PRStatusDraft     PRStatus = "DRAFT"
	PRStatusSubmitted PRStatus = "SUBMITTED"
	PRStatusApproved  PRStatus = "APPROVED"
	PRStatusConverted PRStatus = "CONVERTED"
	PRStatusRejected  PRStatus = "REJECTED"
	PRStatusCancelled PRStatus = "CANCELLED"
)

// CanTransitionTo reports whether the requisition may move to target.
// REJECTED is terminal: a rejected requisition is kept for audit and a new one
// must be raised.
func (s PRStatus) CanTransitionTo(target PRStatus) bool {
	switch s {
	case PRStatusDraft:
		return target == PRStatusSubmitted || target == PRStatusCancelled
	case PRStatusSubmitted:
		return target == PRStatusApproved || target == PRStatusRejected || target == PRStatusCancelled
	case PRStatusApproved:
		return target == PRStatusConverted
	}
	return false
}

// Purchase order lifecycle statuses.
type POStatus string

const (
	POStatusDraft     POStatus = "DRAFT"
	POStatusPending   POStatus = "PENDING_APPROVAL"
	POStatusApproved  POStatus = "APPROVED"
	POStatusCancelled POStatus = "CANCELLED"
)

// CanTransitionTo reports whether the order may move to target.
func (s POStatus) CanTransitionTo(target POStatus) bool {
	switch s {
	case POStatusDraft:
		return target == POStatusPending || target == POStatusCancelled
	case POStatusPending:
		return target == POStatusApproved || target == POStatusCancelled
	}
	return false
}

// Approval step statuses.
type StepStatus string

const (
	StepStatusPending  StepStatus = "PENDING"
	StepStatusApproved StepStatus = "APPROVED"
	StepStatusRejected StepStatus = "REJECTED"
	StepStatusSkipped  StepStatus = "SKIPPED"
)

// Decision is an approver's verdict on a step.
type Decision string

const (
	DecisionApprove Decision = "APPROVE"
	DecisionReject  Decision = "REJECT"
)

// PurchaseRequisition domain model. Documents are never physically deleted
// once submitted; all exits are status transitions.
type PurchaseRequisition struct {
	ID              int64           `json:"id"`
	Number          string          `json:"number"`
	RequesterID     int64           `json:"requester_id"`
	CostCenterID    int64           `json:"cost_center_id"`
	ProcurementType string          `json:"procurement_type"`
	SuggestedVendor *int64          `json:"suggested_vendor,omitempty"`
	Status          PRStatus        `json:"status"`
	TotalEstimate   decimal.Decimal `json:"total_estimate"`
	Note            string          `json:"note,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	Lines           []PRLine        `json:"lines,omitempty"`
	Steps           []ApprovalStep  `json:"steps,omitempty"`
}

// PRLine represents a requested item.
type PRLine struct {
	ID          int64           `json:"id"`
	PRID        int64           `json:"pr_id"`
	ItemCode    string          `json:"item_code"`
	Description string          `json:"description,omitempty"`
	Qty         decimal.Decimal `json:"qty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Subtotal    decimal.Decimal `json:"subtotal"`
}

// ApprovalStep is one entry in a requisition's ordered approval sequence.
// Steps are decided strictly in Seq order; a rejection halts the rest.
type ApprovalStep struct {
	ID           int64      `json:"id"`
	PRID         int64      `json:"pr_id"`
	Seq          int        `json:"seq"`
	Name         string     `json:"name"`
	ApproverRole string     `json:"approver_role"`
	Status       StepStatus `json:"status"`
	DecidedBy    *int64     `json:"decided_by,omitempty"`
	DecidedAt    *time.Time `json:"decided_at,omitempty"`
	Note         string     `json:"note,omitempty"`
}

// PurchaseOrder domain model. The exchange rate is snapshotted at creation
// time and never re-resolved; approved totals are frozen with it.
type PurchaseOrder struct {
	ID             int64           `json:"id"`
	Number         string          `json:"number"`
	PRID           *int64          `json:"pr_id,omitempty"`
	VendorID       *int64          `json:"vendor_id,omitempty"`
	CostCenterID   int64           `json:"cost_center_id"`
	Currency       string          `json:"currency"`
	ExchangeRate   decimal.Decimal `json:"exchange_rate"`
	OrderDate      time.Time       `json:"order_date"`
	Status         POStatus        `json:"status"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	TaxPercent     decimal.Decimal `json:"tax_percent"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	GrandTotal     decimal.Decimal `json:"grand_total"`
	CreatedBy      int64           `json:"created_by"`
	ApprovedBy     *int64          `json:"approved_by,omitempty"`
	ApprovedAt     *time.Time      `json:"approved_at,omitempty"`
	Note           string          `json:"note,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
	Lines          []POLine        `json:"lines,omitempty"`
}

// POLine represents an order line, optionally linking back to the requisition
// line it was copied from.
type POLine struct {
	ID          int64           `json:"id"`
	POID        int64           `json:"po_id"`
	PRLineID    *int64          `json:"pr_line_id,omitempty"`
	ItemCode    string          `json:"item_code"`
	Description string          `json:"description,omitempty"`
	Qty         decimal.Decimal `json:"qty"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// BaseAmount converts the grand total into the base currency using the
// captured exchange rate.
func (po PurchaseOrder) BaseAmount() decimal.Decimal {
	return po.GrandTotal.Mul(po.ExchangeRate)
}

var (
	// ErrInvalidState occurs when an operation is not legal from the
	// document's current status.
	ErrInvalidState = errors.New("procurement: invalid state for operation")
	// ErrIllegalTransition occurs when a cancel would orphan downstream
	// documents or otherwise break the lifecycle.
	ErrIllegalTransition = errors.New("procurement: illegal state transition")
	// ErrAlreadyConverted indicates the requisition already spawned an
	// active purchase order.
	ErrAlreadyConverted = errors.New("procurement: requisition already converted")
	// ErrNotApproved indicates conversion was attempted before approval.
	ErrNotApproved = errors.New("procurement: requisition not approved")
	// ErrBudgetExceeded indicates approval would overcommit the budget.
	ErrBudgetExceeded = errors.New("procurement: budget exceeded")
	// ErrStepOutOfOrder indicates an approval was recorded for a step other
	// than the next pending one.
	ErrStepOutOfOrder = errors.New("procurement: approval step out of order")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("procurement: invalid input")
	// ErrNotFound indicates the record is missing.
	ErrNotFound = errors.New("procurement: not found")
)
