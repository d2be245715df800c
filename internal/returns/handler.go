package returns

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

// Handler manages return processing endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler builds a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers return routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/items/{id}/returns", h.handleProcess)
	r.Get("/items/{id}/returns", h.handleHistory)
}

type processRequest struct {
	Qty       float64 `json:"qty" validate:"required,gt=0"`
	Condition string  `json:"condition" validate:"max=200"`
	Note      string  `json:"note" validate:"max=2000"`
}

type eventResponse struct {
	ID                 int64     `json:"id"`
	DeliveryNoteItemID int64     `json:"delivery_note_item_id"`
	Qty                float64   `json:"qty"`
	Condition          string    `json:"condition,omitempty"`
	Note               string    `json:"note,omitempty"`
	ProcessedBy        int64     `json:"processed_by"`
	ProcessedAt        time.Time `json:"processed_at"`
}

func toEventResponse(ev Event) eventResponse {
	return eventResponse{
		ID:                 ev.ID,
		DeliveryNoteItemID: ev.DeliveryNoteItemID,
		Qty:                ev.Qty,
		Condition:          ev.Condition,
		Note:               ev.Note,
		ProcessedBy:        ev.ProcessedBy,
		ProcessedAt:        ev.ProcessedAt,
	}
}

func (h *Handler) handleProcess(w http.ResponseWriter, r *http.Request) {
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
	var req processRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "malformed request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	event, err := h.service.Process(r.Context(), principalID, ProcessInput{
		DeliveryNoteItemID: itemID,
		Qty:                req.Qty,
		Condition:          req.Condition,
		Note:               req.Note,
		IdempotencyKey:     r.Header.Get("Idempotency-Key"),
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toEventResponse(event))
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
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
	events, err := h.service.History(r.Context(), principalID, itemID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	responses := make([]eventResponse, 0, len(events))
	for _, ev := range events {
		responses = append(responses, toEventResponse(ev))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"return_events": responses})
}
