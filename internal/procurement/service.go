package procurement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/budget"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// RepositoryPort describes repository operations used by Service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetPR(ctx context.Context, id int64) (PurchaseRequisition, error)
	GetPO(ctx context.Context, id int64) (PurchaseOrder, error)
	ListPRs(ctx context.Context, filter ListFilter) ([]PurchaseRequisition, error)
	ListPOs(ctx context.Context, filter ListFilter) ([]PurchaseOrder, error)
}

// TxRepository groups storage operations running inside one transaction.
type TxRepository interface {
	CreatePR(ctx context.Context, pr PurchaseRequisition) (int64, error)
	InsertPRLine(ctx context.Context, line PRLine) error
	ListPRLines(ctx context.Context, prID int64) ([]PRLine, error)
	DeletePRLines(ctx context.Context, prID int64) error
	UpdatePRDraft(ctx context.Context, pr PurchaseRequisition) error
	UpdatePRStatus(ctx context.Context, id int64, status PRStatus) error
	GetPRForUpdate(ctx context.Context, id int64) (PurchaseRequisition, error)
	InsertApprovalStep(ctx context.Context, step ApprovalStep) error
	ListApprovalSteps(ctx context.Context, prID int64) ([]ApprovalStep, error)
	DecideApprovalStep(ctx context.Context, stepID int64, status StepStatus, decidedBy int64, decidedAt time.Time, note string) error
	SkipPendingSteps(ctx context.Context, prID int64) error

	CreatePO(ctx context.Context, po PurchaseOrder) (int64, error)
	InsertPOLine(ctx context.Context, line POLine) error
	DeletePOLines(ctx context.Context, poID int64) error
	ListPOLines(ctx context.Context, poID int64) ([]POLine, error)
	UpdatePODraft(ctx context.Context, po PurchaseOrder) error
	UpdatePOTotals(ctx context.Context, po PurchaseOrder) error
	UpdatePOStatus(ctx context.Context, id int64, status POStatus) error
	SetPOApproval(ctx context.Context, id int64, approvedBy int64, approvedAt time.Time) error
	GetPOForUpdate(ctx context.Context, id int64) (PurchaseOrder, error)

	GetBudgetForUpdate(ctx context.Context, costCenterID int64, period string) (budget.Budget, error)
	AddBudgetCommitted(ctx context.Context, budgetID int64, delta decimal.Decimal) error
	NextDocNumber(ctx context.Context, prefix, period string) (int64, error)
}

// ListFilter narrows requisition/order listings.
type ListFilter struct {
	Status       string
	CostCenterID int64
	RequesterID  int64
	Page         int
	Limit        int
}

// RateResolver converts currencies into base amounts.
type RateResolver interface {
	ResolveRate(ctx context.Context, code string, asOf time.Time) (decimal.Decimal, error)
}

// AuditPort reused from shared.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service orchestrates the requisition and order workflow.
type Service struct {
	repo        RepositoryPort
	rules       RuleResolver
	rates       RateResolver
	approvals   *shared.ApprovalRecorder
	audit       AuditPort
	idempotency *shared.IdempotencyStore
}

// NewService constructs the procurement service.
func NewService(repo RepositoryPort, rules RuleResolver, rates RateResolver, approvals *shared.ApprovalRecorder, audit AuditPort, idem *shared.IdempotencyStore) *Service {
	return &Service{repo: repo, rules: rules, rates: rates, approvals: approvals, audit: audit, idempotency: idem}
}

func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "40001"
}

// runTx executes fn in a repository transaction. Under repeatable read,
// Postgres aborts a transaction whose FOR UPDATE lands on a row a concurrent
// transaction updated after our snapshot (SQLSTATE 40001). The aborted
// attempt never committed, so one retry re-runs the checks against the
// winner's committed state and yields the domain answer instead of a
// persistence error. Losing a budget race this way surfaces as
// ErrBudgetExceeded on the retry, never as a silent second commitment.
func (s *Service) runTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	err := s.repo.WithTx(ctx, fn)
	if isSerializationFailure(err) {
		err = s.repo.WithTx(ctx, fn)
	}
	return err
}

// PRLineInput describes a requested line.
type PRLineInput struct {
	ItemCode    string
	Description string
	Qty         decimal.Decimal
	UnitPrice   decimal.Decimal
}

// CreatePRInput describes requisition creation payload.
type CreatePRInput struct {
	RequesterID     int64
	CostCenterID    int64
	ProcurementType string
	SuggestedVendor *int64
	Note            string
	Lines           []PRLineInput
}

// UpdatePRInput describes a draft revision. Lines replace the existing set.
type UpdatePRInput struct {
	CostCenterID    int64
	ProcurementType string
	SuggestedVendor *int64
	Note            string
	Lines           []PRLineInput
}

// ConvertInput describes PO creation from an approved requisition.
type ConvertInput struct {
	PRID       int64
	VendorID   *int64
	Currency   string
	OrderDate  time.Time
	TaxPercent decimal.Decimal
	Note       string
}

// POLineInput describes an order line revision.
type POLineInput struct {
	PRLineID    *int64
	ItemCode    string
	Description string
	Qty         decimal.Decimal
	UnitPrice   decimal.Decimal
}

// UpdatePOInput describes a draft order revision.
type UpdatePOInput struct {
	VendorID       *int64
	TaxPercent     decimal.Decimal
	DiscountAmount decimal.Decimal
	Note           string
	Lines          []POLineInput
}

func validatePRLines(inputs []PRLineInput) ([]PRLine, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: at least one line required", ErrValidation)
	}
	lines := make([]PRLine, 0, len(inputs))
	for _, in := range inputs {
		if in.ItemCode == "" {
			return nil, fmt.Errorf("%w: item code required", ErrValidation)
		}
		if !in.Qty.IsPositive() {
			return nil, fmt.Errorf("%w: qty must be positive", ErrValidation)
		}
		if in.UnitPrice.IsNegative() {
			return nil, fmt.Errorf("%w: unit price must not be negative", ErrValidation)
		}
		lines = append(lines, PRLine{ItemCode: in.ItemCode, Description: in.Description, Qty: in.Qty, UnitPrice: in.UnitPrice})
	}
	return lines, nil
}

// CreateRequisition persists a DRAFT requisition with derived totals.
func (s *Service) CreateRequisition(ctx context.Context, input CreatePRInput) (PurchaseRequisition, error) {
	if input.RequesterID == 0 || input.CostCenterID == 0 || input.ProcurementType == "" {
		return PurchaseRequisition{}, fmt.Errorf("%w: requester, cost center and procurement type required", ErrValidation)
	}
	lines, err := validatePRLines(input.Lines)
	if err != nil {
		return PurchaseRequisition{}, err
	}
	pr := PurchaseRequisition{
		RequesterID:     input.RequesterID,
		CostCenterID:    input.CostCenterID,
		ProcurementType: input.ProcurementType,
		SuggestedVendor: input.SuggestedVendor,
		Status:          PRStatusDraft,
		Note:            input.Note,
		TotalEstimate:   ComputePRTotals(lines),
	}
	err = s.runTx(ctx, func(ctx context.Context, tx TxRepository) error {
		period := budget.PeriodOf(time.Now())
		seq, err := tx.NextDocNumber(ctx, "PR", period)
		if err != nil {
			return err
		}
		pr.Number = formatDocNumber("PR", period, seq)
		prID, err := tx.CreatePR(ctx, pr)
		if err != nil {
			return err
		}
		pr.ID = prID
		for i := range lines {
			lines[i].PRID = prID
			if err := tx.InsertPRLine(ctx, lines[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return PurchaseRequisition{}, err
	}
	pr.Lines = lines
	s.recordAudit(ctx, input.RequesterID, "PR_CREATE", pr.ID, map[string]any{"number": pr.Number, "total": pr.TotalEstimate.String()})
	return pr, nil
}

// UpdateRequisition replaces a draft's header fields and lines. Only DRAFT
// requisitions are editable.
func (s *Service) UpdateRequisition(ctx context.Context, prID, actorID int64, input UpdatePRInput) (PurchaseRequisition, error) {
	lines, err := validatePRLines(input.Lines)
	if err != nil {
		return PurchaseRequisition{}, err
	}
	var updated PurchaseRequisition
	err = s.runTx(ctx, func(ctx context.Context, tx TxRepository) error {
		pr, err := tx.GetPRForUpdate(ctx, prID)
		if err != nil {
			return err
		}
		if pr.Status != PRStatusDraft {
			return ErrInvalidState
		}
		pr.CostCenterID = input.CostCenterID
		pr.ProcurementType = input.ProcurementType
		pr.SuggestedVendor = input.SuggestedVendor
		pr.Note = input.Note
		pr.TotalEstimate = ComputePRTotals(lines)
		if err := tx.DeletePRLines(ctx, prID); err != nil {
			return err
		}
		for i := range lines {
			lines[i].PRID = prID
			if err := tx.InsertPRLine(ctx, lines[i]); err != nil {
				return err
			}
		}
		if err := tx.UpdatePRDraft(ctx, pr); err != nil {
			return err
		}
		pr.Lines = lines
		updated = pr
		return nil
	})
	if err != nil {
		return PurchaseRequisition{}, err
	}
	s.recordAudit(ctx, actorID, "PR_UPDATE", prID, map[string]any{"total": updated.TotalEstimate.String()})
	return updated, nil
}

// SubmitRequisition moves a draft into approval. The matching rule's steps
// are instantiated as PENDING in the same transaction as the status change.
func (s *Service) SubmitRequisition(ctx context.Context, prID, actorID int64) error {
	err := s.runTx(ctx, func(ctx context.Context, tx TxRepository) error {
		pr, err := tx.GetPRForUpdate(ctx, prID)
		if err != nil {
			return err
		}
		if pr.Status != PRStatusDraft {
			return ErrInvalidState
		}
		steps, err := s.rules.Resolve(ctx, pr.ProcurementType, pr.TotalEstimate)
		if err != nil {
			return err
		}
		for _, rs := range steps {
			step := ApprovalStep{PRID: prID, Seq: rs.Seq, Name: rs.Name, ApproverRole: rs.ApproverRole, Status: StepStatusPending}
			if err := tx.InsertApprovalStep(ctx, step); err != nil {
				return err
			}
		}
		return tx.UpdatePRStatus(ctx, prID, PRStatusSubmitted)
	})
	if err != nil {
		return err
	}
	s.recordApproval(ctx, prID, actorID, shared.ApprovalSubmit, "requisition submitted")
	s.recordAudit(ctx, actorID, "PR_SUBMIT", prID, nil)
	return nil
}

// RecordApproval decides the next pending step of a SUBMITTED requisition.
// Steps are strictly ordered: stepSeq must be the lowest still-pending one.
// An approval on the final step moves the requisition to APPROVED; a reject
// moves it to REJECTED and skips all remaining steps.
func (s *Service) RecordApproval(ctx context.Context, prID int64, stepSeq int, actorID int64, decision Decision, note string) error {
	if decision != DecisionApprove && decision != DecisionReject {
		return fmt.Errorf("%w: unknown decision %q", ErrValidation, decision)
	}
	var action shared.ApprovalAction
	err := s.runTx(ctx, func(ctx context.Context, tx TxRepository) error {
		pr, err := tx.GetPRForUpdate(ctx, prID)
		if err != nil {
			return err
		}
		if pr.Status != PRStatusSubmitted {
			return ErrInvalidState
		}
		steps, err := tx.ListApprovalSteps(ctx, prID)
		if err != nil {
			return err
		}
		var current *ApprovalStep
		pendingLeft := 0
		for i := range steps {
			if steps[i].Status != StepStatusPending {
				continue
			}
			pendingLeft++
			if current == nil {
				current = &steps[i]
			}
		}
		if current == nil {
			return ErrInvalidState
		}
		if current.Seq != stepSeq {
			return fmt.Errorf("%w: next step is %d", ErrStepOutOfOrder, current.Seq)
		}
		now := time.Now()
		if decision == DecisionReject {
			if err := tx.DecideApprovalStep(ctx, current.ID, StepStatusRejected, actorID, now, note); err != nil {
				return err
			}
			if err := tx.SkipPendingSteps(ctx, prID); err != nil {
				return err
			}
			action = shared.ApprovalReject
			return tx.UpdatePRStatus(ctx, prID, PRStatusRejected)
		}
		if err := tx.DecideApprovalStep(ctx, current.ID, StepStatusApproved, actorID, now, note); err != nil {
			return err
		}
		action = shared.ApprovalApprove
		if pendingLeft == 1 {
			return tx.UpdatePRStatus(ctx, prID, PRStatusApproved)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.recordApproval(ctx, prID, actorID, action, note)
	s.recordAudit(ctx, actorID, "PR_DECISION", prID, map[string]any{"step": stepSeq, "decision": string(decision)})
	return nil
}

// CancelRequisition cancels a requisition that has not yet been approved.
func (s *Service) CancelRequisition(ctx context.Context, prID, actorID int64, note string) error {
	err := s.runTx(ctx, func(ctx context.Context, tx TxRepository) error {
		pr, err := tx.GetPRForUpdate(ctx, prID)
		if err != nil {
			return err
		}
		if !pr.Status.CanTransitionTo(PRStatusCancelled) {
			return ErrIllegalTransition
		}
		if pr.Status == PRStatusSubmitted {
			if err := tx.SkipPendingSteps(ctx, prID); err != nil {
				return err
			}
		}
		return tx.UpdatePRStatus(ctx, prID, PRStatusCancelled)
	})
	if err != nil {
		return err
	}
	s.recordApproval(ctx, prID, actorID, shared.ApprovalCancel, note)
	s.recordAudit(ctx, actorID, "PR_CANCEL", prID, nil)
	return nil
}

// ConvertRequisition creates a DRAFT purchase order from an APPROVED
// requisition and marks it CONVERTED, atomically. The exchange rate for the
// order currency is resolved as of the order date and snapshotted on the
// order. A requisition can have at most one non-cancelled order; a concurrent
// second conversion surfaces as ErrAlreadyConverted.
func (s *Service) ConvertRequisition(ctx context.Context, actorID int64, input ConvertInput) (PurchaseOrder, error) {
	if input.Currency == "" {
		return PurchaseOrder{}, fmt.Errorf("%w: currency required", ErrValidation)
	}
	orderDate := input.OrderDate
	if orderDate.IsZero() {
		orderDate = time.Now()
	}
	if input.TaxPercent.IsNegative() {
		return PurchaseOrder{}, fmt.Errorf("%w: tax percent must not be negative", ErrValidation)
	}
	rate, err := s.rates.ResolveRate(ctx, input.Currency, orderDate)
	if err != nil {
		return PurchaseOrder{}, err
	}
	var po PurchaseOrder
	err = s.runTx(ctx, func(ctx context.Context, tx TxRepository) error {
		pr, err := tx.GetPRForUpdate(ctx, input.PRID)
		if err != nil {
			return err
		}
		switch pr.Status {
		case PRStatusApproved:
		case PRStatusConverted:
			return ErrAlreadyConverted
		default:
			return ErrNotApproved
		}
		prLines, err := tx.ListPRLines(ctx, input.PRID)
		if err != nil {
			return err
		}
		period := budget.PeriodOf(orderDate)
		seq, err := tx.NextDocNumber(ctx, "PO", period)
		if err != nil {
			return err
		}
		vendor := input.VendorID
		if vendor == nil {
			vendor = pr.SuggestedVendor
		}
		po = PurchaseOrder{
			Number:       formatDocNumber("PO", period, seq),
			PRID:         &pr.ID,
			VendorID:     vendor,
			CostCenterID: pr.CostCenterID,
			Currency:     input.Currency,
			ExchangeRate: rate,
			OrderDate:    orderDate,
			Status:       POStatusDraft,
			TaxPercent:   input.TaxPercent,
			CreatedBy:    actorID,
			Note:         input.Note,
		}
		for _, l := range prLines {
			lineID := l.ID
			po.Lines = append(po.Lines, POLine{PRLineID: &lineID, ItemCode: l.ItemCode, Description: l.Description, Qty: l.Qty, UnitPrice: l.UnitPrice})
		}
		ComputePOTotals(&po)
		poID, err := tx.CreatePO(ctx, po)
		if err != nil {
			return err
		}
		po.ID = poID
		for i := range po.Lines {
			po.Lines[i].POID = poID
			if err := tx.InsertPOLine(ctx, po.Lines[i]); err != nil {
				return err
			}
		}
		return tx.UpdatePRStatus(ctx, input.PRID, PRStatusConverted)
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	s.recordAudit(ctx, actorID, "PO_CREATE", po.ID, map[string]any{"number": po.Number, "from_pr": input.PRID})
	return po, nil
}

func validatePOLines(inputs []POLineInput) ([]POLine, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: at least one line required", ErrValidation)
	}
	lines := make([]POLine, 0, len(inputs))
	for _, in := range inputs {
		if in.ItemCode == "" {
			return nil, fmt.Errorf("%w: item code required", ErrValidation)
		}
		if !in.Qty.IsPositive() {
			return nil, fmt.Errorf("%w: qty must be positive", ErrValidation)
		}
		if in.UnitPrice.IsNegative() {
			return nil, fmt.Errorf("%w: unit price must not be negative", ErrValidation)
		}
		lines = append(lines, POLine{PRLineID: in.PRLineID, ItemCode: in.ItemCode, Description: in.Description, Qty: in.Qty, UnitPrice: in.UnitPrice})
	}
	return lines, nil
}

// UpdateOrder replaces a draft order's editable header fields and lines and
// recomputes its totals.
func (s *Service) UpdateOrder(ctx context.Context, poID, actorID int64, input UpdatePOInput) (PurchaseOrder, error) {
	lines, err := validatePOLines(input.Lines)
	if err != nil {
		return PurchaseOrder{}, err
	}
	if input.TaxPercent.IsNegative() || input.DiscountAmount.IsNegative() {
		return PurchaseOrder{}, fmt.Errorf("%w: tax and discount must not be negative", ErrValidation)
	}
	var updated PurchaseOrder
	err = s.runTx(ctx, func(ctx context.Context, tx TxRepository) error {
		po, err := tx.GetPOForUpdate(ctx, poID)
		if err != nil {
			return err
		}
		if po.Status != POStatusDraft {
			return ErrInvalidState
		}
		po.VendorID = input.VendorID
		po.TaxPercent = input.TaxPercent
		po.DiscountAmount = input.DiscountAmount
		po.Note = input.Note
		po.Lines = lines
		ComputePOTotals(&po)
		if po.GrandTotal.IsNegative() {
			return fmt.Errorf("%w: discount exceeds order total", ErrValidation)
		}
		if err := tx.DeletePOLines(ctx, poID); err != nil {
			return err
		}
		for i := range po.Lines {
			po.Lines[i].POID = poID
			if err := tx.InsertPOLine(ctx, po.Lines[i]); err != nil {
				return err
			}
		}
		if err := tx.UpdatePODraft(ctx, po); err != nil {
			return err
		}
		updated = po
		return nil
	})
	if err != nil {
		return PurchaseOrder{}, err
	}
	s.recordAudit(ctx, actorID, "PO_UPDATE", poID, map[string]any{"grand_total": updated.GrandTotal.String()})
	return updated, nil
}

// SubmitOrder moves a draft order into approval. A vendor and at least one
// line must be present by then.
func (s *Service) SubmitOrder(ctx context.Context, poID, actorID int64) error {
	err := s.runTx(ctx, func(ctx context.Context, tx TxRepository) error {
		po, err := tx.GetPOForUpdate(ctx, poID)
		if err != nil {
			return err
		}
		if po.Status != POStatusDraft {
			return ErrInvalidState
		}
		if po.VendorID == nil {
			return fmt.Errorf("%w: vendor required before submit", ErrValidation)
		}
		lines, err := tx.ListPOLines(ctx, poID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return fmt.Errorf("%w: at least one line required", ErrValidation)
		}
		return tx.UpdatePOStatus(ctx, poID, POStatusPending)
	})
	if err != nil {
		return err
	}
	s.recordApproval(ctx, poID, actorID, shared.ApprovalSubmit, "order submitted")
	s.recordAudit(ctx, actorID, "PO_SUBMIT", poID, nil)
	return nil
}

// ApproveOrder finalizes a pending order. Totals are recomputed from the
// stored lines, converted to the base currency with the snapshotted rate,
// and committed against the cost center's budget for the order date's
// period, all inside one transaction with the budget row locked. If the new
// committed amount would exceed the allocation, nothing is written and
// ErrBudgetExceeded is returned.
//
// idemKey deduplicates retries: a repeated key returns
// shared.ErrIdempotencyConflict without double-committing.
func (s *Service) ApproveOrder(ctx context.Context, poID, actorID int64, idemKey string) error {
	inserted := false
	if s.idempotency != nil && idemKey != "" {
		if err := s.idempotency.CheckAndInsert(ctx, idemKey, "procurement.po_approve"); err != nil {
			return err
		}
		inserted = true
	}
	err := s.runTx(ctx, func(ctx context.Context, tx TxRepository) error {
		po, err := tx.GetPOForUpdate(ctx, poID)
		if err != nil {
			return err
		}
		if po.Status != POStatusPending {
			return ErrInvalidState
		}
		po.Lines, err = tx.ListPOLines(ctx, poID)
		if err != nil {
			return err
		}
		ComputePOTotals(&po)
		if err := tx.UpdatePOTotals(ctx, po); err != nil {
			return err
		}
		period := budget.PeriodOf(po.OrderDate)
		b, err := tx.GetBudgetForUpdate(ctx, po.CostCenterID, period)
		if err != nil {
			return err
		}
		baseAmount := po.BaseAmount()
		if b.Committed.Add(baseAmount).GreaterThan(b.Allocated) {
			return fmt.Errorf("%w: need %s, available %s", ErrBudgetExceeded, baseAmount.String(), b.Available().String())
		}
		if err := tx.AddBudgetCommitted(ctx, b.ID, baseAmount); err != nil {
			return err
		}
		now := time.Now()
		if err := tx.SetPOApproval(ctx, poID, actorID, now); err != nil {
			return err
		}
		return tx.UpdatePOStatus(ctx, poID, POStatusApproved)
	})
	if err != nil {
		if inserted {
			_ = s.idempotency.Delete(ctx, idemKey)
		}
		return err
	}
	s.recordApproval(ctx, poID, actorID, shared.ApprovalApprove, "order approved")
	s.recordAudit(ctx, actorID, "PO_APPROVE", poID, nil)
	return nil
}

// CancelOrder cancels an order that has not been approved yet.
func (s *Service) CancelOrder(ctx context.Context, poID, actorID int64, note string) error {
	err := s.runTx(ctx, func(ctx context.Context, tx TxRepository) error {
		po, err := tx.GetPOForUpdate(ctx, poID)
		if err != nil {
			return err
		}
		if !po.Status.CanTransitionTo(POStatusCancelled) {
			return ErrIllegalTransition
		}
		return tx.UpdatePOStatus(ctx, poID, POStatusCancelled)
	})
	if err != nil {
		return err
	}
	s.recordApproval(ctx, poID, actorID, shared.ApprovalCancel, note)
	s.recordAudit(ctx, actorID, "PO_CANCEL", poID, nil)
	return nil
}

// GetRequisition loads a requisition with its lines and steps.
func (s *Service) GetRequisition(ctx context.Context, id int64) (PurchaseRequisition, error) {
	return s.repo.GetPR(ctx, id)
}

// GetOrder loads an order with its lines.
func (s *Service) GetOrder(ctx context.Context, id int64) (PurchaseOrder, error) {
	return s.repo.GetPO(ctx, id)
}

// ListRequisitions lists requisitions matching filter.
func (s *Service) ListRequisitions(ctx context.Context, filter ListFilter) ([]PurchaseRequisition, error) {
	return s.repo.ListPRs(ctx, filter)
}

// ListOrders lists orders matching filter.
func (s *Service) ListOrders(ctx context.Context, filter ListFilter) ([]PurchaseOrder, error) {
	return s.repo.ListPOs(ctx, filter)
}

func (s *Service) recordApproval(ctx context.Context, docID, actorID int64, action shared.ApprovalAction, note string) {
	if s.approvals == nil {
		return
	}
	_ = s.approvals.Record(ctx, shared.ApprovalLog{Module: "procurement", RefID: shared.DocRef("procurement", docID), ActorID: actorID, Action: action, Note: note})
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{ActorID: actorID, Action: action, Entity: "procurement", EntityID: fmt.Sprintf("%d", entityID), Meta: meta})
}

func formatDocNumber(prefix, period string, seq int64) string {
	return fmt.Sprintf("%s-%s-%05d", prefix, period, seq)
}
