package delivery

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/rentora-erp/rentora-erp/internal/platform/httpx"
	"github.com/rentora-erp/rentora-erp/internal/shared"
)

// Handler manages delivery note endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers delivery routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/notes", h.handleCreate)
	r.Get("/notes/{id}", h.handleGet)
	r.Get("/orders/{orderID}/notes", h.handleListByOrder)
	r.Get("/items/{id}", h.handleGetItem)
	r.Put("/items/{id}", h.handleUpdateItem)
	r.Post("/notes/{id}/delivered", h.handleMarkDelivered)
}

type itemRequest struct {
	POItemID     int64   `json:"po_item_id" validate:"required,gt=0"`
	QtyDelivered float64 `json:"qty_delivered" validate:"required,gt=0"`
	Condition    string  `json:"condition" validate:"max=200"`
}

type createRequest struct {
	PurchaseOrderID int64         `json:"purchase_order_id" validate:"required,gt=0"`
	ReceivedBy      string        `json:"received_by" validate:"max=200"`
	Note            string        `json:"note" validate:"max=2000"`
	Items           []itemRequest `json:"items" validate:"required,min=1,dive"`
}

type itemUpdateRequest struct {
	QtyDelivered float64 `json:"qty_delivered" validate:"required,gt=0"`
	Condition    string  `json:"condition" validate:"max=200"`
}

type deliveredRequest struct {
	DeliveredAt string `json:"delivered_at"`
	ReceivedBy  string `json:"received_by" validate:"max=200"`
}

type itemResponse struct {
	ID            int64   `json:"id"`
	POItemID      int64   `json:"po_item_id"`
	EquipmentName string  `json:"equipment_name"`
	QtyDelivered  float64 `json:"qty_delivered"`
	QtyReturned   float64 `json:"qty_returned"`
	Outstanding   float64 `json:"outstanding"`
	Condition     string  `json:"condition,omitempty"`
}

type noteResponse struct {
	ID              int64          `json:"id"`
	Number          string         `json:"number"`
	PurchaseOrderID int64          `json:"purchase_order_id"`
	Status          string         `json:"status"`
	DeliveredAt     *time.Time     `json:"delivered_at,omitempty"`
	ReceivedBy      string         `json:"received_by,omitempty"`
	Note            string         `json:"note,omitempty"`
	CreatedBy       int64          `json:"created_by"`
	Items           []itemResponse `json:"items,omitempty"`
}

func toItemResponse(item Item) itemResponse {
	return itemResponse{
		ID:            item.ID,
		POItemID:      item.POItemID,
		EquipmentName: item.EquipmentName,
		QtyDelivered:  item.QtyDelivered,
		QtyReturned:   item.QtyReturned,
		Outstanding:   item.Outstanding(),
		Condition:     item.Condition,
	}
}

func toNoteResponse(dn DeliveryNote, items []Item) noteResponse {
	resp := noteResponse{
		ID:              dn.ID,
		Number:          dn.Number,
		PurchaseOrderID: dn.PurchaseOrderID,
		Status:          string(dn.Status),
		DeliveredAt:     dn.DeliveredAt,
		ReceivedBy:      dn.ReceivedBy,
		Note:            dn.Note,
		CreatedBy:       dn.CreatedBy,
	}
	for _, item := range items {
		resp.Items = append(resp.Items, toItemResponse(item))
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
		PurchaseOrderID: req.PurchaseOrderID,
		ReceivedBy:      req.ReceivedBy,
		Note:            req.Note,
	}
	for _, line := range req.Items {
		input.Items = append(input.Items, ItemInput{
			POItemID:     line.POItemID,
			QtyDelivered: line.QtyDelivered,
			Condition:    line.Condition,
		})
	}

	dn, items, err := h.service.Create(r.Context(), principalID, input)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toNoteResponse(dn, items))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	principalID, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	noteID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, shared.ErrForbidden)
		return
	}
	dn, items, err := h.service.Get(r.Context(), principalID, noteID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toNoteResponse(dn, items))
}

func (h *Handler) handleGetItem(w http.ResponseWriter, r *http.Request) {
	principalID, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	itemID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, shared.ErrForbidden)
		return
	}
	item, err := h.service.GetItem(r.Context(), principalID, itemID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toItemResponse(item))
}

func (h *Handler) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	principalID, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	itemID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, shared.ErrForbidden)
		return
	}
	var req itemUpdateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	item, err := h.service.UpdateItem(r.Context(), principalID, itemID, ItemUpdateInput{
		QtyDelivered: req.QtyDelivered,
		Condition:    req.Condition,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toItemResponse(item))
}

func (h *Handler) handleListByOrder(w http.ResponseWriter, r *http.Request) {
	principalID, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	orderID, err := strconv.ParseInt(chi.URLParam(r, "orderID"), 10, 64)
	if err != nil {
		httpx.RespondError(w, shared.ErrForbidden)
		return
	}
	notes, err := h.service.ListByOrder(r.Context(), principalID, orderID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	responses := make([]noteResponse, 0, len(notes))
	for _, dn := range notes {
		responses = append(responses, toNoteResponse(dn, nil))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"delivery_notes": responses})
}

func (h *Handler) handleMarkDelivered(w http.ResponseWriter, r *http.Request) {
	principalID, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.ErrUnauthenticated)
		return
	}
	noteID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.RespondError(w, shared.ErrForbidden)
		return
	}
	// Body is optional; an empty request stamps the current time.
	var req deliveredRequest
	if err := httpx.DecodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	var at time.Time
	if req.DeliveredAt != "" {
		at, err = time.Parse(time.RFC3339, req.DeliveredAt)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "delivered_at must be RFC 3339")
			return
		}
	}
	dn, items, err := h.service.MarkDelivered(r.Context(), principalID, noteID, at, req.ReceivedBy)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toNoteResponse(dn, items))
}
