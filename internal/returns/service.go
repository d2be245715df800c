package returns

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rentora-erp/rentora-erp/internal/authz"
	"github.com/rentora-erp/rentora-erp/internal/shared"
)

// Repo abstracts persistence for the service.
type Repo interface {
	Apply(ctx context.Context, principalID int64, event Event) (Event, error)
	ListByItem(ctx context.Context, principalID, itemID int64) ([]Event, error)
}

// Keys deduplicates retried requests.
type Keys interface {
	CheckAndInsert(ctx context.Context, key, module string) error
	Delete(ctx context.Context, key string) error
}

// Service orchestrates return processing. Processing requires a
// privileged role on top of ordinary item access: a project owner
// with a plain user role cannot book returns on their own items.
type Service struct {
	repo    Repo
	keys    Keys
	checker *authz.Checker
	audit   shared.AuditSink
}

// NewService constructs a Service.
func NewService(repo Repo, keys Keys, checker *authz.Checker, audit shared.AuditSink) *Service {
	return &Service{repo: repo, keys: keys, checker: checker, audit: audit}
}

// ProcessInput carries one return event to book.
type ProcessInput struct {
	DeliveryNoteItemID int64
	Qty                float64
	Condition          string
	Note               string
	IdempotencyKey     string
}

// Process books a return. Retries carrying the same idempotency key
// are rejected with shared.ErrIdempotencyConflict.
func (s *Service) Process(ctx context.Context, principalID int64, input ProcessInput) (Event, error) {
	if !s.checker.CanProcessReturns(ctx, principalID) {
		return Event{}, shared.ErrForbidden
	}
	if !s.checker.CanAccessDeliveryNoteItem(ctx, principalID, input.DeliveryNoteItemID) {
		return Event{}, shared.ErrForbidden
	}
	if input.Qty <= 0 {
		return Event{}, fmt.Errorf("%w: qty must be positive", ErrValidation)
	}
	if input.IdempotencyKey != "" {
		if err := s.keys.CheckAndInsert(ctx, input.IdempotencyKey, "returns"); err != nil {
			return Event{}, err
		}
	}

	event, err := s.repo.Apply(ctx, principalID, Event{
		DeliveryNoteItemID: input.DeliveryNoteItemID,
		Qty:                input.Qty,
		Condition:          strings.TrimSpace(input.Condition),
		Note:               strings.TrimSpace(input.Note),
		ProcessedBy:        principalID,
		ProcessedAt:        time.Now(),
	})
	if err != nil {
		// Free the key so the caller can retry after fixing the request.
		if input.IdempotencyKey != "" {
			_ = s.keys.Delete(ctx, input.IdempotencyKey)
		}
		return Event{}, err
	}

	s.audit.Submit(ctx, shared.AuditLog{
		ActorID:  principalID,
		Action:   "return.process",
		Entity:   "delivery_note_item",
		EntityID: strconv.FormatInt(input.DeliveryNoteItemID, 10),
		Meta:     map[string]any{"qty": input.Qty, "condition": event.Condition},
	})
	return event, nil
}

// History returns the booked events for an item the principal may access.
func (s *Service) History(ctx context.Context, principalID, itemID int64) ([]Event, error) {
	if !s.checker.CanAccessDeliveryNoteItem(ctx, principalID, itemID) {
		return nil, shared.ErrForbidden
	}
	return s.repo.ListByItem(ctx, principalID, itemID)
}
