package procurement

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-erp/meridian-erp/internal/budget"
	"github.com/meridian-erp/meridian-erp/internal/currency"
	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/rbac"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Handler exposes the requisition and order workflow over HTTP.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	rbac     rbac.Middleware
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New(), rbac: rbac}
}

// MountRoutes registers procurement routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny("procurement.view", "procurement.create", "procurement.approve"))
		r.Get("/requisitions", h.listPRs)
		r.Get("/requisitions/{id}", h.getPR)
		r.Get("/orders", h.listPOs)
		r.Get("/orders/{id}", h.getPO)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll("procurement.create"))
		r.Post("/requisitions", h.createPR)
		r.Put("/requisitions/{id}", h.updatePR)
		r.Post("/requisitions/{id}/submit", h.submitPR)
		r.Post("/requisitions/{id}/cancel", h.cancelPR)
		r.Post("/requisitions/{id}/convert", h.convertPR)
		r.Put("/orders/{id}", h.updatePO)
		r.Post("/orders/{id}/submit", h.submitPO)
		r.Post("/orders/{id}/cancel", h.cancelPO)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll("procurement.approve"))
		r.Post("/requisitions/{id}/decision", h.decidePR)
		r.Post("/orders/{id}/approve", h.approvePO)
	})
}

func (h *Handler) listPRs(w http.ResponseWriter, r *http.Request) {
	filter := filterFromQuery(r)
	prs, err := h.service.ListRequisitions(r.Context(), filter)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"requisitions": prs})
}

func (h *Handler) getPR(w http.ResponseWriter, r *http.Request) {
	pr, err := h.service.GetRequisition(r.Context(), pathID(r))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, pr)
}

func (h *Handler) createPR(w http.ResponseWriter, r *http.Request) {
	var req createPRRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	lines, err := parsePRLines(req.Lines)
	if err != nil {
		h.respondError(w, err)
		return
	}
	actor := shared.ActorFromContext(r.Context())
	pr, err := h.service.CreateRequisition(r.Context(), CreatePRInput{
		RequesterID:     actor.UserID,
		CostCenterID:    req.CostCenterID,
		ProcurementType: req.ProcurementType,
		SuggestedVendor: req.SuggestedVendor,
		Note:            req.Note,
		Lines:           lines,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, pr)
}

func (h *Handler) updatePR(w http.ResponseWriter, r *http.Request) {
	var req updatePRRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	lines, err := parsePRLines(req.Lines)
	if err != nil {
		h.respondError(w, err)
		return
	}
	actor := shared.ActorFromContext(r.Context())
	pr, err := h.service.UpdateRequisition(r.Context(), pathID(r), actor.UserID, UpdatePRInput{
		CostCenterID:    req.CostCenterID,
		ProcurementType: req.ProcurementType,
		SuggestedVendor: req.SuggestedVendor,
		Note:            req.Note,
		Lines:           lines,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, pr)
}

func (h *Handler) submitPR(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	if err := h.service.SubmitRequisition(r.Context(), pathID(r), actor.UserID); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": string(PRStatusSubmitted)})
}

func (h *Handler) decidePR(w http.ResponseWriter, r *http.Request) {
	var req decisionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	actor := shared.ActorFromContext(r.Context())
	if err := h.service.RecordApproval(r.Context(), pathID(r), req.Step, actor.UserID, Decision(req.Decision), req.Note); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"decision": req.Decision})
}

func (h *Handler) cancelPR(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	actor := shared.ActorFromContext(r.Context())
	if err := h.service.CancelRequisition(r.Context(), pathID(r), actor.UserID, req.Note); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": string(PRStatusCancelled)})
}

func (h *Handler) convertPR(w http.ResponseWriter, r *http.Request) {
	var req convertRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	taxPercent, err := parseOptionalDecimal(req.TaxPercent)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "tax_percent must be numeric")
		return
	}
	orderDate, err := parseOptionalDate(req.OrderDate)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "order_date must be YYYY-MM-DD")
		return
	}
	actor := shared.ActorFromContext(r.Context())
	po, err := h.service.ConvertRequisition(r.Context(), actor.UserID, ConvertInput{
		PRID:       pathID(r),
		VendorID:   req.VendorID,
		Currency:   req.Currency,
		OrderDate:  orderDate,
		TaxPercent: taxPercent,
		Note:       req.Note,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, po)
}

func (h *Handler) listPOs(w http.ResponseWriter, r *http.Request) {
	filter := filterFromQuery(r)
	pos, err := h.service.ListOrders(r.Context(), filter)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"orders": pos})
}

func (h *Handler) getPO(w http.ResponseWriter, r *http.Request) {
	po, err := h.service.GetOrder(r.Context(), pathID(r))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, po)
}

func (h *Handler) updatePO(w http.ResponseWriter, r *http.Request) {
	var req updatePORequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	lines, err := parsePOLines(req.Lines)
	if err != nil {
		h.respondError(w, err)
		return
	}
	taxPercent, err := parseOptionalDecimal(req.TaxPercent)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "tax_percent must be numeric")
		return
	}
	discount, err := parseOptionalDecimal(req.DiscountAmount)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "discount_amount must be numeric")
		return
	}
	actor := shared.ActorFromContext(r.Context())
	po, err := h.service.UpdateOrder(r.Context(), pathID(r), actor.UserID, UpdatePOInput{
		VendorID:       req.VendorID,
		TaxPercent:     taxPercent,
		DiscountAmount: discount,
		Note:           req.Note,
		Lines:          lines,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, po)
}

func (h *Handler) submitPO(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	if err := h.service.SubmitOrder(r.Context(), pathID(r), actor.UserID); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": string(POStatusPending)})
}

func (h *Handler) approvePO(w http.ResponseWriter, r *http.Request) {
	actor := shared.ActorFromContext(r.Context())
	idemKey := r.Header.Get("Idempotency-Key")
	if err := h.service.ApproveOrder(r.Context(), pathID(r), actor.UserID, idemKey); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": string(POStatusApproved)})
}

func (h *Handler) cancelPO(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	actor := shared.ActorFromContext(r.Context())
	if err := h.service.CancelOrder(r.Context(), pathID(r), actor.UserID, req.Note); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": string(POStatusCancelled)})
}

func pathID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id
}

func filterFromQuery(r *http.Request) ListFilter {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	costCenterID, _ := strconv.ParseInt(q.Get("cost_center_id"), 10, 64)
	requesterID, _ := strconv.ParseInt(q.Get("requester_id"), 10, 64)
	return ListFilter{
		Status:       q.Get("status"),
		CostCenterID: costCenterID,
		RequesterID:  requesterID,
		Page:         page,
		Limit:        limit,
	}
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, budget.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrInvalidState), errors.Is(err, ErrIllegalTransition), errors.Is(err, ErrStepOutOfOrder):
		httpx.Problem(w, http.StatusConflict, "Invalid State", err.Error())
	case errors.Is(err, ErrAlreadyConverted), errors.Is(err, shared.ErrIdempotencyConflict):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrNotApproved):
		httpx.Problem(w, http.StatusConflict, "Not Approved", err.Error())
	case errors.Is(err, ErrBudgetExceeded):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Budget Exceeded", err.Error())
	case errors.Is(err, ErrNoRuleMatch):
		httpx.Problem(w, http.StatusUnprocessableEntity, "No Approval Rule", err.Error())
	case errors.Is(err, currency.ErrNoRateAvailable):
		httpx.Problem(w, http.StatusUnprocessableEntity, "No Exchange Rate", err.Error())
	default:
		h.logger.Error("procurement request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
