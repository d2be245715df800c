package projects

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/rentora-erp/rentora-erp/internal/platform/httpx"
	"github.com/rentora-erp/rentora-erp/internal/shared"
)

// OrderSummary is the slim purchase-order view embedded in project detail.
type OrderSummary struct {
	ID       int64  `json:"id"`
	Number   string `json:"number"`
	Status   string `json:"status"`
	VendorID int64  `json:"vendor_id"`
}

// OrderLister supplies purchase-order summaries for a project.
type OrderLister interface {
	ProjectOrderSummaries(ctx context.Context, principalID, projectID int64) ([]OrderSummary, error)
}

// AuditTrail supplies recent audit entries for an entity.
type AuditTrail interface {
	List(ctx context.Context, entity, entityID string, limit int) ([]shared.AuditLog, error)
}

// Handler manages project endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	orders    OrderLister
	trail     AuditTrail
	validator *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, orders OrderLister, trail AuditTrail) *Handler {
	return &Handler{
		logger:    logger,
		service:   service,
		orders:    orders,
		trail:     trail,
		validator: validator.New(),
	}
}

// MountRoutes registers project routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleList)
	r.Post("/", h.handleCreate)
	r.Get("/{id}", h.handleGet)
	r.Put("/{id}", h.handleUpdate)
	r.Post("/{id}/archive", h.handleArchive)
}

type createRequest struct {
	Code        string `json:"code" validate:"required,max=32"`
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
}

type updateRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
	Status      string `json:"status" validate:"required,oneof=DRAFT ACTIVE ARCHIVED"`
}

type projectResponse struct {
	ID          int64  `json:"id"`
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status"`
	CreatedBy   int64  `json:"created_by"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

type detailResponse struct {
	Project projectResponse   `json:"project"`
	Orders  []OrderSummary    `json:"purchase_orders"`
	Trail   []shared.AuditLog `json:"audit_trail,omitempty"`
}

func toResponse(p Project) projectResponse {
	return projectResponse{
		ID:          p.ID,
		Code:        p.Code,
		Name:        p.Name,
		Description: p.Description,
		Status:      string(p.Status),
		CreatedBy:   p.CreatedBy,
		CreatedAt:   p.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:   p.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

func principal(r *http.Request) (int64, bool) {
	return shared.PrincipalFromContext(r.Context())
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	principalID, ok := principal(r)
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	filters := ListFilters{
		Status: r.URL.Query().Get("status"),
		Search: r.URL.Query().Get("search"),
	}
	items, pagination, err := h.service.List(r.Context(), principalID, filters, page, perPage)
	if err != nil {
		h.logger.Error("list projects", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	responses := make([]projectResponse, 0, len(items))
	for _, p := range items {
		responses = append(responses, toResponse(p))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"projects":   responses,
		"pagination": pagination,
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	principalID, ok := principal(r)
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	var req createRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	project, err := h.service.Create(r.Context(), principalID, CreateInput(req))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(project))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	principalID, ok := principal(r)
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	projectID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, shared.ErrForbidden)
		return
	}

	project, err := h.service.Get(r.Context(), principalID, projectID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	detail := detailResponse{Project: toResponse(project)}
	group, ctx := errgroup.WithContext(r.Context())
	group.Go(func() error {
		orders, err := h.orders.ProjectOrderSummaries(ctx, principalID, projectID)
		if err != nil {
			return err
		}
		detail.Orders = orders
		return nil
	})
	group.Go(func() error {
		trail, err := h.trail.List(ctx, "project", strconv.FormatInt(projectID, 10), 10)
		if err != nil {
			return err
		}
		detail.Trail = trail
		return nil
	})
	if err := group.Wait(); err != nil {
		h.logger.Error("project detail", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	if detail.Orders == nil {
		detail.Orders = []OrderSummary{}
	}
	httpx.JSON(w, http.StatusOK, detail)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	principalID, ok := principal(r)
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	projectID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, shared.ErrForbidden)
		return
	}
	var req updateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	project, err := h.service.Update(r.Context(), principalID, projectID, UpdateInput{
		Name:        req.Name,
		Description: req.Description,
		Status:      Status(req.Status),
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(project))
}

func (h *Handler) handleArchive(w http.ResponseWriter, r *http.Request) {
	principalID, ok := principal(r)
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	projectID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, shared.ErrForbidden)
		return
	}
	if err := h.service.Archive(r.Context(), principalID, projectID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
