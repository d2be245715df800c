package procurement

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/rentora-erp/rentora-erp/internal/platform/httpx"
	"github.com/rentora-erp/rentora-erp/internal/shared"
)

// Handler manages purchase-order endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers procurement routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/orders", h.handleCreate)
	r.Get("/orders/{id}", h.handleGet)
	r.Get("/projects/{projectID}/orders", h.handleListByProject)
	r.Post("/orders/{id}/submit", h.transitionTo(StatusSubmitted))
	r.Post("/orders/{id}/approve", h.transitionTo(StatusApproved))
	r.Post("/orders/{id}/close", h.transitionTo(StatusClosed))
	r.Post("/orders/{id}/cancel", h.transitionTo(StatusCancelled))
}

type itemRequest struct {
	EquipmentName string  `json:"equipment_name" validate:"required,max=200"`
	Qty           float64 `json:"qty" validate:"required,gt=0"`
	UnitPrice     float64 `json:"unit_price" validate:"gte=0"`
	RentalStart   string  `json:"rental_start" validate:"required"`
	RentalEnd     string  `json:"rental_end" validate:"required"`
}

type createRequest struct {
	ProjectID int64         `json:"project_id" validate:"required,gt=0"`
	VendorID  int64         `json:"vendor_id" validate:"required,gt=0"`
	OrderDate string        `json:"order_date"`
	Note      string        `json:"note" validate:"max=2000"`
	Items     []itemRequest `json:"items" validate:"required,min=1,dive"`
}

type itemResponse struct {
	ID            int64   `json:"id"`
	EquipmentName string  `json:"equipment_name"`
	Qty           float64 `json:"qty"`
	UnitPrice     float64 `json:"unit_price"`
	RentalStart   string  `json:"rental_start"`
	RentalEnd     string  `json:"rental_end"`
}

type orderResponse struct {
	ID        int64          `json:"id"`
	Number    string         `json:"number"`
	ProjectID int64          `json:"project_id"`
	VendorID  int64          `json:"vendor_id"`
	Status    string         `json:"status"`
	OrderDate string         `json:"order_date"`
	Note      string         `json:"note,omitempty"`
	CreatedBy int64          `json:"created_by"`
	Items     []itemResponse `json:"items,omitempty"`
}

const dateLayout = "2006-01-02"

func toOrderResponse(po PurchaseOrder, items []Item) orderResponse {
	resp := orderResponse{
		ID:        po.ID,
		Number:    po.Number,
		ProjectID: po.ProjectID,
		VendorID:  po.VendorID,
		Status:    string(po.Status),
		OrderDate: po.OrderDate.Format(dateLayout),
		Note:      po.Note,
		CreatedBy: po.CreatedBy,
	}
	for _, item := range items {
		resp.Items = append(resp.Items, itemResponse{
			ID:            item.ID,
			EquipmentName: item.EquipmentName,
			Qty:           item.Qty,
			UnitPrice:     item.UnitPrice,
			RentalStart:   item.RentalStart.Format(dateLayout),
			RentalEnd:     item.RentalEnd.Format(dateLayout),
		})
	}
	return resp
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	principalID, ok := shared.PrincipalFromContext(r.Context())
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

	input := CreateInput{
		ProjectID: req.ProjectID,
		VendorID:  req.VendorID,
		Note:      req.Note,
	}
	if req.OrderDate != "" {
		orderDate, err := time.Parse(dateLayout, req.OrderDate)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "order_date must be YYYY-MM-DD")
			return
		}
		input.OrderDate = orderDate
	}
	for _, line := range req.Items {
		start, err := time.Parse(dateLayout, line.RentalStart)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "rental_start must be YYYY-MM-DD")
			return
		}
		end, err := time.Parse(dateLayout, line.RentalEnd)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "rental_end must be YYYY-MM-DD")
			return
		}
		input.Items = append(input.Items, ItemInput{
			EquipmentName: line.EquipmentName,
			Qty:           line.Qty,
			UnitPrice:     line.UnitPrice,
			RentalStart:   start,
			RentalEnd:     end,
		})
	}

	po, items, err := h.service.Create(r.Context(), principalID, input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toOrderResponse(po, items))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	principalID, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	orderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, shared.ErrForbidden)
		return
	}
	po, items, err := h.service.Get(r.Context(), principalID, orderID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toOrderResponse(po, items))
}

func (h *Handler) handleListByProject(w http.ResponseWriter, r *http.Request) {
	principalID, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	projectID, err := strconv.ParseInt(chi.URLParam(r, "projectID"), 10, 64)
	if err != nil {
		httpx.RespondError(w, shared.ErrForbidden)
		return
	}
	orders, err := h.service.ListByProject(r.Context(), principalID, projectID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	responses := make([]orderResponse, 0, len(orders))
	for _, po := range orders {
		responses = append(responses, toOrderResponse(po, nil))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"purchase_orders": responses})
}

func (h *Handler) transitionTo(status Status) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		principalID, ok := shared.PrincipalFromContext(r.Context())
		if !ok {
			httpx.RespondError(w, shared.ErrUnauthenticated)
			return
		}
		orderID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			httpx.RespondError(w, shared.ErrForbidden)
			return
		}
		po, err := h.service.Transition(r.Context(), principalID, orderID, status)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, toOrderResponse(po, nil))
	}
}
