package budget

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/rbac"
)

// Handler exposes budget administration endpoints.
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

// MountRoutes registers budget routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny("budget.view", "budget.manage"))
		r.Get("/budgets", h.list)
		r.Get("/budgets/{costCenterID}/{period}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll("budget.manage"))
		r.Post("/budgets", h.allocate)
		r.Put("/budgets/{costCenterID}/{period}", h.reallocate)
	})
}

type allocateRequest struct {
	CostCenterID int64  `json:"cost_center_id" validate:"required,gt=0"`
	Period       string `json:"period" validate:"required,len=7"`
	Amount       string `json:"amount" validate:"required"`
}

type reallocateRequest struct {
	Amount string `json:"amount" validate:"required"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	costCenterID, _ := strconv.ParseInt(r.URL.Query().Get("cost_center_id"), 10, 64)
	budgets, err := h.service.List(r.Context(), costCenterID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"budgets": budgets})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	costCenterID, _ := strconv.ParseInt(chi.URLParam(r, "costCenterID"), 10, 64)
	b, err := h.service.Get(r.Context(), costCenterID, chi.URLParam(r, "period"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, b)
}

func (h *Handler) allocate(w http.ResponseWriter, r *http.Request) {
	var req allocateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "amount must be numeric")
		return
	}
	created, err := h.service.Allocate(r.Context(), req.CostCenterID, req.Period, amount)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) reallocate(w http.ResponseWriter, r *http.Request) {
	var req reallocateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "amount must be numeric")
		return
	}
	costCenterID, _ := strconv.ParseInt(chi.URLParam(r, "costCenterID"), 10, 64)
	updated, err := h.service.Reallocate(r.Context(), costCenterID, chi.URLParam(r, "period"), amount)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicatePeriod):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrBelowCommitted):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("budget request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
