package procurement

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/meridian-erp/meridian-erp/internal/budget"
	"github.com/meridian-erp/meridian-erp/internal/currency"
)

type memoryProcRepo struct {
	mu       sync.Mutex
	prs      map[int64]PurchaseRequisition
	prLines  map[int64][]PRLine
	steps    map[int64][]ApprovalStep
	pos      map[int64]PurchaseOrder
	poLines  map[int64][]POLine
	budgets  map[string]*budget.Budget
	seqs     map[string]int64
	nextID   int64
}

type memoryProcTx struct {
	repo *memoryProcRepo
}

func newMemoryProcRepo() *memoryProcRepo {
	return &memoryProcRepo{
		prs:     make(map[int64]PurchaseRequisition),
		prLines: make(map[int64][]PRLine),
		steps:   make(map[int64][]ApprovalStep),
		pos:     make(map[int64]PurchaseOrder),
		poLines: make(map[int64][]POLine),
		budgets: make(map[string]*budget.Budget),
		seqs:    make(map[string]int64),
	}
}

// WithTx holds the repo lock for the whole callback, mirroring the row locks
// the real repository takes.
func (r *memoryProcRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(ctx, &memoryProcTx{repo: r})
}

func (r *memoryProcRepo) GetPR(ctx context.Context, id int64) (PurchaseRequisition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pr, ok := r.prs[id]
	if !ok {
		return PurchaseRequisition{}, ErrNotFound
	}
	pr.Lines = append([]PRLine(nil), r.prLines[id]...)
	pr.Steps = append([]ApprovalStep(nil), r.steps[id]...)
	return pr, nil
}

func (r *memoryProcRepo) GetPO(ctx context.Context, id int64) (PurchaseOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	po, ok := r.pos[id]
	if !ok {
		return PurchaseOrder{}, ErrNotFound
	}
	po.Lines = append([]POLine(nil), r.poLines[id]...)
	return po, nil
}

func (r *memoryProcRepo) ListPRs(ctx context.Context, filter ListFilter) ([]PurchaseRequisition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []PurchaseRequisition
	for _, pr := range r.prs {
		if filter.Status != "" && string(pr.Status) != filter.Status {
			continue
		}
		out = append(out, pr)
	}
	return out, nil
}

func (r *memoryProcRepo) ListPOs(ctx context.Context, filter ListFilter) ([]PurchaseOrder, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []PurchaseOrder
	for _, po := range r.pos {
		if filter.Status != "" && string(po.Status) != filter.Status {
			continue
		}
		out = append(out, po)
	}
	return out, nil
}

func (tx *memoryProcTx) id() int64 {
	tx.repo.nextID++
	return tx.repo.nextID
}

func (tx *memoryProcTx) CreatePR(ctx context.Context, pr PurchaseRequisition) (int64, error) {
	pr.ID = tx.id()
	tx.repo.prs[pr.ID] = pr
	return pr.ID, nil
}

func (tx *memoryProcTx) InsertPRLine(ctx context.Context, line PRLine) error {
	line.ID = tx.id()
	tx.repo.prLines[line.PRID] = append(tx.repo.prLines[line.PRID], line)
	return nil
}

func (tx *memoryProcTx) ListPRLines(ctx context.Context, prID int64) ([]PRLine, error) {
	return append([]PRLine(nil), tx.repo.prLines[prID]...), nil
}

func (tx *memoryProcTx) DeletePRLines(ctx context.Context, prID int64) error {
	delete(tx.repo.prLines, prID)
	return nil
}

func (tx *memoryProcTx) UpdatePRDraft(ctx context.Context, pr PurchaseRequisition) error {
	stored, ok := tx.repo.prs[pr.ID]
	if !ok {
		return ErrNotFound
	}
	stored.CostCenterID = pr.CostCenterID
	stored.ProcurementType = pr.ProcurementType
	stored.SuggestedVendor = pr.SuggestedVendor
	stored.Note = pr.Note
	stored.TotalEstimate = pr.TotalEstimate
	tx.repo.prs[pr.ID] = stored
	return nil
}

func (tx *memoryProcTx) UpdatePRStatus(ctx context.Context, id int64, status PRStatus) error {
	pr, ok := tx.repo.prs[id]
	if !ok {
		return ErrNotFound
	}
	pr.Status = status
	tx.repo.prs[id] = pr
	return nil
}

func (tx *memoryProcTx) GetPRForUpdate(ctx context.Context, id int64) (PurchaseRequisition, error) {
	pr, ok := tx.repo.prs[id]
	if !ok {
		return PurchaseRequisition{}, ErrNotFound
	}
	return pr, nil
}

func (tx *memoryProcTx) GetPOForUpdate(ctx context.Context, id int64) (PurchaseOrder, error) {
	po, ok := tx.repo.pos[id]
	if !ok {
		return PurchaseOrder{}, ErrNotFound
	}
	return po, nil
}

func (tx *memoryProcTx) InsertApprovalStep(ctx context.Context, step ApprovalStep) error {
	step.ID = tx.id()
	tx.repo.steps[step.PRID] = append(tx.repo.steps[step.PRID], step)
	return nil
}

func (tx *memoryProcTx) ListApprovalSteps(ctx context.Context, prID int64) ([]ApprovalStep, error) {
	return append([]ApprovalStep(nil), tx.repo.steps[prID]...), nil
}

func (tx *memoryProcTx) DecideApprovalStep(ctx context.Context, stepID int64, status StepStatus, decidedBy int64, decidedAt time.Time, note string) error {
	for prID, steps := range tx.repo.steps {
		for i := range steps {
			if steps[i].ID != stepID {
				continue
			}
			if steps[i].Status != StepStatusPending {
				return ErrInvalidState
			}
			steps[i].Status = status
			steps[i].DecidedBy = &decidedBy
			steps[i].DecidedAt = &decidedAt
			steps[i].Note = note
			tx.repo.steps[prID] = steps
			return nil
		}
	}
	return ErrNotFound
}

func (tx *memoryProcTx) SkipPendingSteps(ctx context.Context, prID int64) error {
	steps := tx.repo.steps[prID]
	for i := range steps {
		if steps[i].Status == StepStatusPending {
			steps[i].Status = StepStatusSkipped
		}
	}
	tx.repo.steps[prID] = steps
	return nil
}

func (tx *memoryProcTx) CreatePO(ctx context.Context, po PurchaseOrder) (int64, error) {
	if po.PRID != nil {
		for _, existing := range tx.repo.pos {
			if existing.PRID != nil && *existing.PRID == *po.PRID && existing.Status != POStatusCancelled {
				return 0, ErrAlreadyConverted
			}
		}
	}
	po.ID = tx.id()
	po.Lines = nil
	tx.repo.pos[po.ID] = po
	return po.ID, nil
}

func (tx *memoryProcTx) InsertPOLine(ctx context.Context, line POLine) error {
	line.ID = tx.id()
	tx.repo.poLines[line.POID] = append(tx.repo.poLines[line.POID], line)
	return nil
}

func (tx *memoryProcTx) DeletePOLines(ctx context.Context, poID int64) error {
	delete(tx.repo.poLines, poID)
	return nil
}

func (tx *memoryProcTx) ListPOLines(ctx context.Context, poID int64) ([]POLine, error) {
	return append([]POLine(nil), tx.repo.poLines[poID]...), nil
}

func (tx *memoryProcTx) UpdatePODraft(ctx context.Context, po PurchaseOrder) error {
	stored, ok := tx.repo.pos[po.ID]
	if !ok {
		return ErrNotFound
	}
	stored.VendorID = po.VendorID
	stored.TaxPercent = po.TaxPercent
	stored.DiscountAmount = po.DiscountAmount
	stored.Note = po.Note
	stored.Subtotal = po.Subtotal
	stored.TaxAmount = po.TaxAmount
	stored.GrandTotal = po.GrandTotal
	tx.repo.pos[po.ID] = stored
	return nil
}

func (tx *memoryProcTx) UpdatePOTotals(ctx context.Context, po PurchaseOrder) error {
	stored, ok := tx.repo.pos[po.ID]
	if !ok {
		return ErrNotFound
	}
	stored.Subtotal = po.Subtotal
	stored.TaxAmount = po.TaxAmount
	stored.GrandTotal = po.GrandTotal
	tx.repo.pos[po.ID] = stored
	return nil
}

func (tx *memoryProcTx) UpdatePOStatus(ctx context.Context, id int64, status POStatus) error {
	po, ok := tx.repo.pos[id]
	if !ok {
		return ErrNotFound
	}
	po.Status = status
	tx.repo.pos[id] = po
	return nil
}

func (tx *memoryProcTx) SetPOApproval(ctx context.Context, id int64, approvedBy int64, approvedAt time.Time) error {
	po, ok := tx.repo.pos[id]
	if !ok {
		return ErrNotFound
	}
	po.ApprovedBy = &approvedBy
	po.ApprovedAt = &approvedAt
	tx.repo.pos[id] = po
	return nil
}

func budgetKey(costCenterID int64, period string) string {
	return period + "#" + strconv.FormatInt(costCenterID, 10)
}

func (tx *memoryProcTx) GetBudgetForUpdate(ctx context.Context, costCenterID int64, period string) (budget.Budget, error) {
	b, ok := tx.repo.budgets[budgetKey(costCenterID, period)]
	if !ok {
		return budget.Budget{}, budget.ErrNotFound
	}
	return *b, nil
}

func (tx *memoryProcTx) AddBudgetCommitted(ctx context.Context, budgetID int64, delta decimal.Decimal) error {
	for _, b := range tx.repo.budgets {
		if b.ID == budgetID {
			b.Committed = b.Committed.Add(delta)
			return nil
		}
	}
	return budget.ErrNotFound
}

func (tx *memoryProcTx) NextDocNumber(ctx context.Context, prefix, period string) (int64, error) {
	key := prefix + "#" + period
	tx.repo.seqs[key]++
	return tx.repo.seqs[key], nil
}

func (r *memoryProcRepo) seedBudget(costCenterID int64, period string, allocated int64) {
	r.nextID++
	r.budgets[budgetKey(costCenterID, period)] = &budget.Budget{
		ID: r.nextID, CostCenterID: costCenterID, Period: period,
		Allocated: decimal.NewFromInt(allocated), Committed: decimal.Zero,
	}
}

type staticRules struct {
	steps []RuleStep
}

func (s staticRules) Resolve(ctx context.Context, procurementType string, amount decimal.Decimal) ([]RuleStep, error) {
	if len(s.steps) == 0 {
		return nil, ErrNoRuleMatch
	}
	return s.steps, nil
}

type staticRates struct {
	rates map[string]decimal.Decimal
}

func (s staticRates) ResolveRate(ctx context.Context, code string, asOf time.Time) (decimal.Decimal, error) {
	rate, ok := s.rates[code]
	if !ok {
		return decimal.Decimal{}, currency.ErrNoRateAvailable
	}
	return rate, nil
}

// serializationFlakyRepo aborts the next WithTx attempts with SQLSTATE 40001,
// the way Postgres kills a repeatable-read transaction whose FOR UPDATE hits
// a concurrently updated row.
type serializationFlakyRepo struct {
	*memoryProcRepo
	aborts int
}

func (r *serializationFlakyRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r.aborts > 0 {
		r.aborts--
		return &pgconn.PgError{Code: "40001", Message: "could not serialize access due to concurrent update"}
	}
	return r.memoryProcRepo.WithTx(ctx, fn)
}

func newTestService(repo RepositoryPort) *Service {
	rules := staticRules{steps: []RuleStep{
		{Seq: 1, Name: "Manager", ApproverRole: "manager"},
		{Seq: 2, Name: "Finance", ApproverRole: "finance"},
	}}
	rates := staticRates{rates: map[string]decimal.Decimal{
		"USD": decimal.NewFromInt(2),
		"IDR": decimal.NewFromInt(1),
	}}
	return NewService(repo, rules, rates, nil, nil, nil)
}

func draftInput(costCenterID int64) CreatePRInput {
	return CreatePRInput{
		RequesterID:     7,
		CostCenterID:    costCenterID,
		ProcurementType: "GOODS",
		Lines: []PRLineInput{
			{ItemCode: "LPT-14", Qty: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(100)},
			{ItemCode: "DOCK-01", Qty: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(50)},
		},
	}
}

func approveFully(t *testing.T, svc *Service, prID int64) {
	t.Helper()
	require.NoError(t, svc.SubmitRequisition(context.Background(), prID, 7))
	require.NoError(t, svc.RecordApproval(context.Background(), prID, 1, 11, DecisionApprove, ""))
	require.NoError(t, svc.RecordApproval(context.Background(), prID, 2, 12, DecisionApprove, ""))
}

func TestCreateRequisitionDerivesTotals(t *testing.T) {
	svc := newTestService(newMemoryProcRepo())
	pr, err := svc.CreateRequisition(context.Background(), draftInput(1))
	require.NoError(t, err)
	require.Equal(t, PRStatusDraft, pr.Status)
	require.True(t, pr.TotalEstimate.Equal(decimal.NewFromInt(250)), "total %s", pr.TotalEstimate)
	require.Regexp(t, `^PR-\d{4}-\d{2}-00001$`, pr.Number)
	require.Len(t, pr.Lines, 2)
}

func TestCreateRequisitionRejectsBadLines(t *testing.T) {
	svc := newTestService(newMemoryProcRepo())
	input := draftInput(1)
	input.Lines[0].Qty = decimal.Zero
	_, err := svc.CreateRequisition(context.Background(), input)
	require.ErrorIs(t, err, ErrValidation)

	input = draftInput(1)
	input.Lines = nil
	_, err = svc.CreateRequisition(context.Background(), input)
	require.ErrorIs(t, err, ErrValidation)
}

func TestSubmitInstantiatesApprovalSteps(t *testing.T) {
	repo := newMemoryProcRepo()
	svc := newTestService(repo)
	pr, err := svc.CreateRequisition(context.Background(), draftInput(1))
	require.NoError(t, err)
	require.NoError(t, svc.SubmitRequisition(context.Background(), pr.ID, 7))

	got, err := svc.GetRequisition(context.Background(), pr.ID)
	require.NoError(t, err)
	require.Equal(t, PRStatusSubmitted, got.Status)
	require.Len(t, got.Steps, 2)
	require.Equal(t, StepStatusPending, got.Steps[0].Status)

	// resubmit is not allowed
	require.ErrorIs(t, svc.SubmitRequisition(context.Background(), pr.ID, 7), ErrInvalidState)
}

func TestApprovalStepsAreStrictlyOrdered(t *testing.T) {
	svc := newTestService(newMemoryProcRepo())
	pr, err := svc.CreateRequisition(context.Background(), draftInput(1))
	require.NoError(t, err)
	require.NoError(t, svc.SubmitRequisition(context.Background(), pr.ID, 7))

	err = svc.RecordApproval(context.Background(), pr.ID, 2, 12, DecisionApprove, "")
	require.ErrorIs(t, err, ErrStepOutOfOrder)

	require.NoError(t, svc.RecordApproval(context.Background(), pr.ID, 1, 11, DecisionApprove, ""))
	require.NoError(t, svc.RecordApproval(context.Background(), pr.ID, 2, 12, DecisionApprove, ""))

	got, err := svc.GetRequisition(context.Background(), pr.ID)
	require.NoError(t, err)
	require.Equal(t, PRStatusApproved, got.Status)
}

func TestRejectHaltsRemainingSteps(t *testing.T) {
	svc := newTestService(newMemoryProcRepo())
	pr, err := svc.CreateRequisition(context.Background(), draftInput(1))
	require.NoError(t, err)
	require.NoError(t, svc.SubmitRequisition(context.Background(), pr.ID, 7))
	require.NoError(t, svc.RecordApproval(context.Background(), pr.ID, 1, 11, DecisionReject, "over budget"))

	got, err := svc.GetRequisition(context.Background(), pr.ID)
	require.NoError(t, err)
	require.Equal(t, PRStatusRejected, got.Status)
	require.Equal(t, StepStatusRejected, got.Steps[0].Status)
	require.Equal(t, StepStatusSkipped, got.Steps[1].Status)

	// rejected is terminal
	err = svc.RecordApproval(context.Background(), pr.ID, 2, 12, DecisionApprove, "")
	require.ErrorIs(t, err, ErrInvalidState)
	err = svc.CancelRequisition(context.Background(), pr.ID, 7, "")
	require.ErrorIs(t, err, ErrIllegalTransition)
}

func TestUpdateRequisitionDraftOnly(t *testing.T) {
	svc := newTestService(newMemoryProcRepo())
	pr, err := svc.CreateRequisition(context.Background(), draftInput(1))
	require.NoError(t, err)

	updated, err := svc.UpdateRequisition(context.Background(), pr.ID, 7, UpdatePRInput{
		CostCenterID:    1,
		ProcurementType: "SERVICES",
		Lines:           []PRLineInput{{ItemCode: "CONSULT", Qty: decimal.NewFromInt(10), UnitPrice: decimal.NewFromInt(80)}},
	})
	require.NoError(t, err)
	require.True(t, updated.TotalEstimate.Equal(decimal.NewFromInt(800)))

	require.NoError(t, svc.SubmitRequisition(context.Background(), pr.ID, 7))
	_, err = svc.UpdateRequisition(context.Background(), pr.ID, 7, UpdatePRInput{
		CostCenterID:    1,
		ProcurementType: "SERVICES",
		Lines:           []PRLineInput{{ItemCode: "CONSULT", Qty: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(80)}},
	})
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestCancelRequisitionTransitions(t *testing.T) {
	svc := newTestService(newMemoryProcRepo())
	pr, err := svc.CreateRequisition(context.Background(), draftInput(1))
	require.NoError(t, err)
	require.NoError(t, svc.CancelRequisition(context.Background(), pr.ID, 7, "no longer needed"))

	pr2, err := svc.CreateRequisition(context.Background(), draftInput(1))
	require.NoError(t, err)
	approveFully(t, svc, pr2.ID)
	err = svc.CancelRequisition(context.Background(), pr2.ID, 7, "")
	require.ErrorIs(t, err, ErrIllegalTransition)
}

func TestConvertRequiresApproval(t *testing.T) {
	svc := newTestService(newMemoryProcRepo())
	pr, err := svc.CreateRequisition(context.Background(), draftInput(1))
	require.NoError(t, err)

	_, err = svc.ConvertRequisition(context.Background(), 9, ConvertInput{PRID: pr.ID, Currency: "USD"})
	require.ErrorIs(t, err, ErrNotApproved)
}

func TestConvertSnapshotsRateAndCopiesLines(t *testing.T) {
	svc := newTestService(newMemoryProcRepo())
	pr, err := svc.CreateRequisition(context.Background(), draftInput(1))
	require.NoError(t, err)
	approveFully(t, svc, pr.ID)

	po, err := svc.ConvertRequisition(context.Background(), 9, ConvertInput{
		PRID:       pr.ID,
		Currency:   "USD",
		TaxPercent: decimal.NewFromInt(10),
	})
	require.NoError(t, err)
	require.Equal(t, POStatusDraft, po.Status)
	require.True(t, po.ExchangeRate.Equal(decimal.NewFromInt(2)))
	require.Len(t, po.Lines, 2)
	require.NotNil(t, po.Lines[0].PRLineID)
	require.True(t, po.Subtotal.Equal(decimal.NewFromInt(250)))
	require.True(t, po.GrandTotal.Equal(decimal.NewFromInt(275)))

	got, err := svc.GetRequisition(context.Background(), pr.ID)
	require.NoError(t, err)
	require.Equal(t, PRStatusConverted, got.Status)

	// second conversion must fail
	_, err = svc.ConvertRequisition(context.Background(), 9, ConvertInput{PRID: pr.ID, Currency: "USD"})
	require.ErrorIs(t, err, ErrAlreadyConverted)
}

func TestConvertFailsWithoutRate(t *testing.T) {
	svc := newTestService(newMemoryProcRepo())
	pr, err := svc.CreateRequisition(context.Background(), draftInput(1))
	require.NoError(t, err)
	approveFully(t, svc, pr.ID)

	_, err = svc.ConvertRequisition(context.Background(), 9, ConvertInput{PRID: pr.ID, Currency: "CHF"})
	require.ErrorIs(t, err, currency.ErrNoRateAvailable)
}

func TestCancelledOrderDoesNotReopenRequisition(t *testing.T) {
	repo := newMemoryProcRepo()
	svc := newTestService(repo)
	pr, err := svc.CreateRequisition(context.Background(), draftInput(1))
	require.NoError(t, err)
	approveFully(t, svc, pr.ID)

	po, err := svc.ConvertRequisition(context.Background(), 9, ConvertInput{PRID: pr.ID, Currency: "IDR"})
	require.NoError(t, err)
	require.NoError(t, svc.CancelOrder(context.Background(), po.ID, 9, "wrong vendor"))

	// the requisition stays CONVERTED; a replacement order needs a new requisition
	got, err := svc.GetRequisition(context.Background(), pr.ID)
	require.NoError(t, err)
	require.Equal(t, PRStatusConverted, got.Status)

	_, err = svc.ConvertRequisition(context.Background(), 9, ConvertInput{PRID: pr.ID, Currency: "IDR"})
	require.ErrorIs(t, err, ErrAlreadyConverted)
}

func convertedOrder(t *testing.T, svc *Service, costCenterID int64, vendor int64) PurchaseOrder {
	t.Helper()
	pr, err := svc.CreateRequisition(context.Background(), draftInput(costCenterID))
	require.NoError(t, err)
	approveFully(t, svc, pr.ID)
	po, err := svc.ConvertRequisition(context.Background(), 9, ConvertInput{
		PRID: pr.ID, VendorID: &vendor, Currency: "USD", TaxPercent: decimal.NewFromInt(10),
	})
	require.NoError(t, err)
	return po
}

func TestSubmitOrderRequiresVendor(t *testing.T) {
	svc := newTestService(newMemoryProcRepo())
	pr, err := svc.CreateRequisition(context.Background(), draftInput(1))
	require.NoError(t, err)
	approveFully(t, svc, pr.ID)
	po, err := svc.ConvertRequisition(context.Background(), 9, ConvertInput{PRID: pr.ID, Currency: "USD"})
	require.NoError(t, err)

	err = svc.SubmitOrder(context.Background(), po.ID, 9)
	require.ErrorIs(t, err, ErrValidation)
}

func TestUpdateOrderRecomputesTotals(t *testing.T) {
	repo := newMemoryProcRepo()
	svc := newTestService(repo)
	po := convertedOrder(t, svc, 1, 3)

	vendor := int64(3)
	updated, err := svc.UpdateOrder(context.Background(), po.ID, 9, UpdatePOInput{
		VendorID:       &vendor,
		TaxPercent:     decimal.NewFromInt(10),
		DiscountAmount: decimal.NewFromInt(20),
		Lines: []POLineInput{
			{ItemCode: "LPT-14", Qty: decimal.NewFromInt(2), UnitPrice: decimal.NewFromInt(100)},
			{ItemCode: "DOCK-01", Qty: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(50)},
		},
	})
	require.NoError(t, err)
	require.True(t, updated.GrandTotal.Equal(decimal.NewFromInt(255)), "grand %s", updated.GrandTotal)

	// discount larger than the order is rejected
	_, err = svc.UpdateOrder(context.Background(), po.ID, 9, UpdatePOInput{
		VendorID:       &vendor,
		DiscountAmount: decimal.NewFromInt(10000),
		Lines:          []POLineInput{{ItemCode: "LPT-14", Qty: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(100)}},
	})
	require.ErrorIs(t, err, ErrValidation)

	require.NoError(t, svc.SubmitOrder(context.Background(), po.ID, 9))
	_, err = svc.UpdateOrder(context.Background(), po.ID, 9, UpdatePOInput{
		VendorID: &vendor,
		Lines:    []POLineInput{{ItemCode: "LPT-14", Qty: decimal.NewFromInt(1), UnitPrice: decimal.NewFromInt(100)}},
	})
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestApproveOrderCommitsBudget(t *testing.T) {
	repo := newMemoryProcRepo()
	svc := newTestService(repo)
	po := convertedOrder(t, svc, 1, 3)
	period := budget.PeriodOf(po.OrderDate)
	// grand 275 USD at rate 2 -> 550 in base currency
	repo.seedBudget(1, period, 1000)

	require.NoError(t, svc.SubmitOrder(context.Background(), po.ID, 9))
	require.NoError(t, svc.ApproveOrder(context.Background(), po.ID, 12, ""))

	got, err := svc.GetOrder(context.Background(), po.ID)
	require.NoError(t, err)
	require.Equal(t, POStatusApproved, got.Status)
	require.NotNil(t, got.ApprovedBy)

	b, err := (&memoryProcTx{repo: repo}).GetBudgetForUpdate(context.Background(), 1, period)
	require.NoError(t, err)
	require.True(t, b.Committed.Equal(decimal.NewFromInt(550)), "committed %s", b.Committed)

	// approving again is not legal
	err = svc.ApproveOrder(context.Background(), po.ID, 12, "")
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestApproveOrderBudgetExceeded(t *testing.T) {
	repo := newMemoryProcRepo()
	svc := newTestService(repo)
	po := convertedOrder(t, svc, 1, 3)
	period := budget.PeriodOf(po.OrderDate)
	repo.seedBudget(1, period, 500) // needs 550

	require.NoError(t, svc.SubmitOrder(context.Background(), po.ID, 9))
	err := svc.ApproveOrder(context.Background(), po.ID, 12, "")
	require.ErrorIs(t, err, ErrBudgetExceeded)

	got, err := svc.GetOrder(context.Background(), po.ID)
	require.NoError(t, err)
	require.Equal(t, POStatusPending, got.Status)

	b, err := (&memoryProcTx{repo: repo}).GetBudgetForUpdate(context.Background(), 1, period)
	require.NoError(t, err)
	require.True(t, b.Committed.IsZero())
}

func TestApproveOrderMissingBudgetRow(t *testing.T) {
	svc := newTestService(newMemoryProcRepo())
	po := convertedOrder(t, svc, 1, 3)
	require.NoError(t, svc.SubmitOrder(context.Background(), po.ID, 9))
	err := svc.ApproveOrder(context.Background(), po.ID, 12, "")
	require.ErrorIs(t, err, budget.ErrNotFound)
}

func TestConcurrentApprovalsCommitAtMostOnce(t *testing.T) {
	repo := newMemoryProcRepo()
	svc := newTestService(repo)
	po1 := convertedOrder(t, svc, 1, 3)
	po2 := convertedOrder(t, svc, 1, 3)
	period := budget.PeriodOf(po1.OrderDate)
	// each order commits 550; only one fits
	repo.seedBudget(1, period, 800)

	require.NoError(t, svc.SubmitOrder(context.Background(), po1.ID, 9))
	require.NoError(t, svc.SubmitOrder(context.Background(), po2.ID, 9))

	var g errgroup.Group
	results := make([]error, 2)
	for i, id := range []int64{po1.ID, po2.ID} {
		i, id := i, id
		g.Go(func() error {
			results[i] = svc.ApproveOrder(context.Background(), id, 12, "")
			return nil
		})
	}
	require.NoError(t, g.Wait())

	var exceeded, succeeded int
	for _, err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, ErrBudgetExceeded):
			exceeded++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, succeeded)
	require.Equal(t, 1, exceeded)

	b, err := (&memoryProcTx{repo: repo}).GetBudgetForUpdate(context.Background(), 1, period)
	require.NoError(t, err)
	require.True(t, b.Committed.Equal(decimal.NewFromInt(550)), "committed %s", b.Committed)
}

func TestApproveOrderRetriesAfterSerializationAbort(t *testing.T) {
	repo := newMemoryProcRepo()
	flaky := &serializationFlakyRepo{memoryProcRepo: repo}
	svc := newTestService(flaky)
	po := convertedOrder(t, svc, 1, 3)
	period := budget.PeriodOf(po.OrderDate)
	repo.seedBudget(1, period, 1000)
	require.NoError(t, svc.SubmitOrder(context.Background(), po.ID, 9))

	flaky.aborts = 1
	require.NoError(t, svc.ApproveOrder(context.Background(), po.ID, 12, ""))

	b, err := (&memoryProcTx{repo: repo}).GetBudgetForUpdate(context.Background(), 1, period)
	require.NoError(t, err)
	require.True(t, b.Committed.Equal(decimal.NewFromInt(550)), "committed %s", b.Committed)
}

func TestApproveOrderLosingBudgetRaceSeesBudgetExceeded(t *testing.T) {
	repo := newMemoryProcRepo()
	flaky := &serializationFlakyRepo{memoryProcRepo: repo}
	svc := newTestService(flaky)
	po := convertedOrder(t, svc, 1, 3)
	period := budget.PeriodOf(po.OrderDate)
	repo.seedBudget(1, period, 500) // needs 550

	require.NoError(t, svc.SubmitOrder(context.Background(), po.ID, 9))

	// the first attempt is aborted mid-race; the retry must report the
	// budget verdict, not the serialization error
	flaky.aborts = 1
	err := svc.ApproveOrder(context.Background(), po.ID, 12, "")
	require.ErrorIs(t, err, ErrBudgetExceeded)
	var pgErr *pgconn.PgError
	require.False(t, errors.As(err, &pgErr))

	b, err := (&memoryProcTx{repo: repo}).GetBudgetForUpdate(context.Background(), 1, period)
	require.NoError(t, err)
	require.True(t, b.Committed.IsZero())
}

func TestApproveOrderGivesUpAfterRepeatedAborts(t *testing.T) {
	repo := newMemoryProcRepo()
	flaky := &serializationFlakyRepo{memoryProcRepo: repo}
	svc := newTestService(flaky)
	po := convertedOrder(t, svc, 1, 3)
	period := budget.PeriodOf(po.OrderDate)
	repo.seedBudget(1, period, 1000)
	require.NoError(t, svc.SubmitOrder(context.Background(), po.ID, 9))

	flaky.aborts = 2
	err := svc.ApproveOrder(context.Background(), po.ID, 12, "")
	var pgErr *pgconn.PgError
	require.ErrorAs(t, err, &pgErr)
	require.Equal(t, "40001", pgErr.Code)

	b, err := (&memoryProcTx{repo: repo}).GetBudgetForUpdate(context.Background(), 1, period)
	require.NoError(t, err)
	require.True(t, b.Committed.IsZero())
}

func TestCreateRequisitionRetriesAfterSerializationAbort(t *testing.T) {
	flaky := &serializationFlakyRepo{memoryProcRepo: newMemoryProcRepo(), aborts: 1}
	svc := newTestService(flaky)

	pr, err := svc.CreateRequisition(context.Background(), draftInput(1))
	require.NoError(t, err)
	require.Regexp(t, `^PR-\d{4}-\d{2}-00001$`, pr.Number)
}
