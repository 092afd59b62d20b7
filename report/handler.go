package report

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/procurement"
	"github.com/meridian-erp/meridian-erp/internal/rbac"
)

// Handler serves rendered PDF documents and the branding catalogue.
type Handler struct {
	logger      *slog.Logger
	procurement *procurement.Service
	brandings   *BrandingRepository
	builder     *Builder
	renderer    *Client
	validate    *validator.Validate
	rbac        rbac.Middleware
}

func NewHandler(logger *slog.Logger, proc *procurement.Service, brandings *BrandingRepository, renderer *Client, rbac rbac.Middleware) *Handler {
	return &Handler{
		logger:      logger,
		procurement: proc,
		brandings:   brandings,
		builder:     NewBuilder(),
		renderer:    renderer,
		validate:    validator.New(),
		rbac:        rbac,
	}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAny("procurement.view", "procurement.create", "procurement.approve"))
		r.Get("/reports/requisitions/{id}/pdf", h.requisitionPDF)
		r.Get("/reports/orders/{id}/pdf", h.orderPDF)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireAll("report.manage"))
		r.Get("/brandings", h.listBrandings)
		r.Get("/brandings/{id}", h.getBranding)
		r.Post("/brandings", h.saveBranding)
		r.Delete("/brandings/{id}", h.deleteBranding)
	})
}

// resolveBranding picks the branding named in the query, or the default set.
func (h *Handler) resolveBranding(r *http.Request) (Branding, error) {
	name := r.URL.Query().Get("branding")
	if name == "" {
		return DefaultBranding(), nil
	}
	return h.brandings.GetByName(r.Context(), name)
}

func (h *Handler) requisitionPDF(w http.ResponseWriter, r *http.Request) {
	branding, err := h.resolveBranding(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	pr, err := h.procurement.GetRequisition(r.Context(), pathID(r))
	if err != nil {
		h.respondError(w, err)
		return
	}
	html, err := h.builder.RequisitionHTML(pr, branding)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.servePDF(w, r, html, branding, pr.Number)
}

func (h *Handler) orderPDF(w http.ResponseWriter, r *http.Request) {
	branding, err := h.resolveBranding(r)
	if err != nil {
		h.respondError(w, err)
		return
	}
	po, err := h.procurement.GetOrder(r.Context(), pathID(r))
	if err != nil {
		h.respondError(w, err)
		return
	}
	html, err := h.builder.OrderHTML(po, branding)
	if err != nil {
		h.respondError(w, err)
		return
	}
	h.servePDF(w, r, html, branding, po.Number)
}

func (h *Handler) servePDF(w http.ResponseWriter, r *http.Request, html string, branding Branding, number string) {
	pdf, err := h.renderer.RenderHTML(r.Context(), html, RenderOptions{
		MarginTop:    branding.Margins.Top,
		MarginBottom: branding.Margins.Bottom,
		MarginLeft:   branding.Margins.Left,
		MarginRight:  branding.Margins.Right,
	})
	if err != nil {
		h.logger.Error("pdf render failed", "doc", number, "error", err)
		httpx.Problem(w, http.StatusBadGateway, "Render Failed", "document renderer is unavailable")
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="`+number+`.pdf"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}

type brandingRequest struct {
	Name        string          `json:"name" validate:"required,max=120"`
	Margins     Margins         `json:"margins"`
	TitleColor  string          `json:"title_color"`
	AccentColor string          `json:"accent_color"`
	Mode        TemplateMode    `json:"mode" validate:"required"`
	Config      json.RawMessage `json:"config" validate:"required"`
}

func (req brandingRequest) toModel() (Branding, error) {
	tmpl, err := decodeTemplate(req.Mode, req.Config)
	if err != nil {
		return Branding{}, err
	}
	return Branding{
		Name:        req.Name,
		Margins:     req.Margins,
		TitleColor:  req.TitleColor,
		AccentColor: req.AccentColor,
		Template:    tmpl,
	}, nil
}

func (h *Handler) listBrandings(w http.ResponseWriter, r *http.Request) {
	items, err := h.brandings.List(r.Context())
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"brandings": items})
}

func (h *Handler) getBranding(w http.ResponseWriter, r *http.Request) {
	b, err := h.brandings.Get(r.Context(), pathID(r))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, b)
}

func (h *Handler) saveBranding(w http.ResponseWriter, r *http.Request) {
	var req brandingRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	b, err := req.toModel()
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := b.Validate(); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	saved, err := h.brandings.Save(r.Context(), b)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, saved)
}

func (h *Handler) deleteBranding(w http.ResponseWriter, r *http.Request) {
	if err := h.brandings.Delete(r.Context(), pathID(r)); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrBrandingNotFound), errors.Is(err, procurement.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicateBranding):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		h.logger.Error("report request failed", "error", err)
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "unexpected failure")
	}
}

func pathID(r *http.Request) int64 {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id
}
