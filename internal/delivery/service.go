package delivery

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rentora-erp/rentora-erp/internal/authz"
	"github.com/rentora-erp/rentora-erp/internal/procurement"
	"github.com/rentora-erp/rentora-erp/internal/shared"
)

// Repo abstracts persistence for the service.
type Repo interface {
	Create(ctx context.Context, principalID int64, dn DeliveryNote, items []Item) (int64, error)
	Get(ctx context.Context, principalID, id int64) (DeliveryNote, []Item, error)
	GetItem(ctx context.Context, principalID, itemID int64) (Item, error)
	ListByOrder(ctx context.Context, principalID, orderID int64) ([]DeliveryNote, error)
	MarkDelivered(ctx context.Context, principalID, id int64, at time.Time, receivedBy string) error
	UpdateItem(ctx context.Context, principalID, itemID int64, qtyDelivered float64, condition string) error
	NextNumber(ctx context.Context, at time.Time) (string, error)
}

// OrderReader looks up the purchase order a note is registered under.
type OrderReader interface {
	Get(ctx context.Context, principalID, orderID int64) (procurement.PurchaseOrder, []procurement.Item, error)
}

// Service orchestrates delivery note operations.
type Service struct {
	repo    Repo
	orders  OrderReader
	checker *authz.Checker
	audit   shared.AuditSink
}

// NewService constructs a Service.
func NewService(repo Repo, orders OrderReader, checker *authz.Checker, audit shared.AuditSink) *Service {
	return &Service{repo: repo, orders: orders, checker: checker, audit: audit}
}

// ItemInput carries one delivered line for a new note.
type ItemInput struct {
	POItemID     int64
	QtyDelivered float64
	Condition    string
}

// CreateInput carries fields for a new delivery note.
type CreateInput struct {
	PurchaseOrderID int64
	ReceivedBy      string
	Note            string
	Items           []ItemInput
}

// Create registers a delivery note under a purchase order the
// principal can access. Items must reference lines of that order.
func (s *Service) Create(ctx context.Context, principalID int64, input CreateInput) (DeliveryNote, []Item, error) {
	if !s.checker.CanAccessPurchaseOrder(ctx, principalID, input.PurchaseOrderID) {
		return DeliveryNote{}, nil, shared.ErrForbidden
	}
	if len(input.Items) == 0 {
		return DeliveryNote{}, nil, fmt.Errorf("%w: at least one item required", ErrValidation)
	}

	_, poItems, err := s.orders.Get(ctx, principalID, input.PurchaseOrderID)
	if err != nil {
		return DeliveryNote{}, nil, err
	}
	lines := make(map[int64]procurement.Item, len(poItems))
	for _, line := range poItems {
		lines[line.ID] = line
	}

	items := make([]Item, 0, len(input.Items))
	for _, in := range input.Items {
		line, ok := lines[in.POItemID]
		if !ok {
			return DeliveryNote{}, nil, fmt.Errorf("%w: item %d does not belong to order", ErrValidation, in.POItemID)
		}
		if in.QtyDelivered <= 0 {
			return DeliveryNote{}, nil, fmt.Errorf("%w: delivered qty must be positive", ErrValidation)
		}
		items = append(items, Item{
			POItemID:      in.POItemID,
			EquipmentName: line.EquipmentName,
			QtyDelivered:  in.QtyDelivered,
			Condition:     strings.TrimSpace(in.Condition),
		})
	}

	number, err := s.repo.NextNumber(ctx, time.Now())
	if err != nil {
		return DeliveryNote{}, nil, err
	}
	id, err := s.repo.Create(ctx, principalID, DeliveryNote{
		Number:          number,
		PurchaseOrderID: input.PurchaseOrderID,
		Status:          StatusPending,
		ReceivedBy:      strings.TrimSpace(input.ReceivedBy),
		Note:            strings.TrimSpace(input.Note),
		CreatedBy:       principalID,
	}, items)
	if err != nil {
		return DeliveryNote{}, nil, err
	}
	s.audit.Submit(ctx, shared.AuditLog{
		ActorID:  principalID,
		Action:   "delivery_note.create",
		Entity:   "delivery_note",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     map[string]any{"purchase_order_id": input.PurchaseOrderID, "number": number},
	})
	return s.repo.Get(ctx, principalID, id)
}

// Get returns a delivery note the principal may access, with items.
func (s *Service) Get(ctx context.Context, principalID, noteID int64) (DeliveryNote, []Item, error) {
	if !s.checker.CanAccessDeliveryNote(ctx, principalID, noteID) {
		return DeliveryNote{}, nil, shared.ErrForbidden
	}
	return s.repo.Get(ctx, principalID, noteID)
}

// GetItem returns a single item the principal may access.
func (s *Service) GetItem(ctx context.Context, principalID, itemID int64) (Item, error) {
	if !s.checker.CanAccessDeliveryNoteItem(ctx, principalID, itemID) {
		return Item{}, shared.ErrForbidden
	}
	return s.repo.GetItem(ctx, principalID, itemID)
}

// ListByOrder returns the notes under an accessible purchase order.
func (s *Service) ListByOrder(ctx context.Context, principalID, orderID int64) ([]DeliveryNote, error) {
	if !s.checker.CanAccessPurchaseOrder(ctx, principalID, orderID) {
		return nil, shared.ErrForbidden
	}
	return s.repo.ListByOrder(ctx, principalID, orderID)
}

// ItemUpdateInput carries the correctable fields of a delivered line.
type ItemUpdateInput struct {
	QtyDelivered float64
	Condition    string
}

// UpdateItem corrects a delivered line after the fact. Corrections are
// a privileged action on top of ordinary item access, matching the
// storage-side update policy.
func (s *Service) UpdateItem(ctx context.Context, principalID, itemID int64, input ItemUpdateInput) (Item, error) {
	if !s.checker.HasRole(ctx, principalID, shared.PrivilegedRoles()...) {
		return Item{}, shared.ErrForbidden
	}
	if !s.checker.CanAccessDeliveryNoteItem(ctx, principalID, itemID) {
		return Item{}, shared.ErrForbidden
	}
	if input.QtyDelivered <= 0 {
		return Item{}, fmt.Errorf("%w: delivered qty must be positive", ErrValidation)
	}
	if err := s.repo.UpdateItem(ctx, principalID, itemID, input.QtyDelivered, strings.TrimSpace(input.Condition)); err != nil {
		return Item{}, err
	}
	s.audit.Submit(ctx, shared.AuditLog{
		ActorID:  principalID,
		Action:   "delivery_note_item.update",
		Entity:   "delivery_note_item",
		EntityID: strconv.FormatInt(itemID, 10),
	})
	return s.repo.GetItem(ctx, principalID, itemID)
}

// MarkDelivered stamps a pending note as delivered on site.
func (s *Service) MarkDelivered(ctx context.Context, principalID, noteID int64, at time.Time, receivedBy string) (DeliveryNote, []Item, error) {
	if !s.checker.CanAccessDeliveryNote(ctx, principalID, noteID) {
		return DeliveryNote{}, nil, shared.ErrForbidden
	}
	if at.IsZero() {
		at = time.Now()
	}
	if err := s.repo.MarkDelivered(ctx, principalID, noteID, at, strings.TrimSpace(receivedBy)); err != nil {
		return DeliveryNote{}, nil, err
	}
	s.audit.Submit(ctx, shared.AuditLog{
		ActorID:  principalID,
		Action:   "delivery_note.delivered",
		Entity:   "delivery_note",
		EntityID: strconv.FormatInt(noteID, 10),
	})
	return s.repo.Get(ctx, principalID, noteID)
}
