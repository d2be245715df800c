package procurement

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
	Create(ctx context.Context, principalID int64, po PurchaseOrder, items []Item) (int64, error)
	Get(ctx context.Context, principalID, id int64) (PurchaseOrder, []Item, error)
	ListByProject(ctx context.Context, principalID, projectID int64) ([]PurchaseOrder, error)
	UpdateStatus(ctx context.Context, principalID, id int64, status Status) error
	NextNumber(ctx context.Context, at time.Time) (string, error)
}

// Service orchestrates purchase-order operations. Access is decided by
// the hierarchical checker; the service never inspects roles directly
// except through it.
type Service struct {
	repo    Repo
	checker *authz.Checker
	audit   shared.AuditSink
}

// NewService constructs a Service.
func NewService(repo Repo, checker *authz.Checker, audit shared.AuditSink) *Service {
	return &Service{repo: repo, checker: checker, audit: audit}
}

// ItemInput carries one rental line for a new purchase order.
type ItemInput struct {
	EquipmentName string
	Qty           float64
	UnitPrice     float64
	RentalStart   time.Time
	RentalEnd     time.Time
}

// CreateInput carries fields for a new purchase order.
type CreateInput struct {
	ProjectID int64
	VendorID  int64
	OrderDate time.Time
	Note      string
	Items     []ItemInput
}

// Create registers a purchase order under a project the principal can access.
func (s *Service) Create(ctx context.Context, principalID int64, input CreateInput) (PurchaseOrder, []Item, error) {
	if !s.checker.CanAccessProject(ctx, principalID, input.ProjectID) {
		return PurchaseOrder{}, nil, shared.ErrForbidden
	}
	if input.VendorID == 0 {
		return PurchaseOrder{}, nil, fmt.Errorf("%w: vendor required", ErrValidation)
	}
	if len(input.Items) == 0 {
		return PurchaseOrder{}, nil, fmt.Errorf("%w: at least one item required", ErrValidation)
	}
	items := make([]Item, 0, len(input.Items))
	for _, line := range input.Items {
		name := strings.TrimSpace(line.EquipmentName)
		if name == "" || line.Qty <= 0 {
			return PurchaseOrder{}, nil, fmt.Errorf("%w: item requires equipment name and positive qty", ErrValidation)
		}
		if line.RentalEnd.Before(line.RentalStart) {
			return PurchaseOrder{}, nil, fmt.Errorf("%w: rental period end precedes start", ErrValidation)
		}
		items = append(items, Item{
			EquipmentName: name,
			Qty:           line.Qty,
			UnitPrice:     line.UnitPrice,
			RentalStart:   line.RentalStart,
			RentalEnd:     line.RentalEnd,
		})
	}

	orderDate := input.OrderDate
	if orderDate.IsZero() {
		orderDate = time.Now()
	}
	number, err := s.repo.NextNumber(ctx, orderDate)
	if err != nil {
		return PurchaseOrder{}, nil, err
	}

	id, err := s.repo.Create(ctx, principalID, PurchaseOrder{
		Number:    number,
		ProjectID: input.ProjectID,
		VendorID:  input.VendorID,
		Status:    StatusDraft,
		OrderDate: orderDate,
		Note:      strings.TrimSpace(input.Note),
		CreatedBy: principalID,
	}, items)
	if err != nil {
		return PurchaseOrder{}, nil, err
	}
	s.audit.Submit(ctx, shared.AuditLog{
		ActorID:  principalID,
		Action:   "purchase_order.create",
		Entity:   "purchase_order",
		EntityID: strconv.FormatInt(id, 10),
		Meta:     map[string]any{"project_id": input.ProjectID, "number": number},
	})
	po, created, err := s.repo.Get(ctx, principalID, id)
	return po, created, err
}

// Get returns a purchase order the principal may access, with items.
func (s *Service) Get(ctx context.Context, principalID, orderID int64) (PurchaseOrder, []Item, error) {
	if !s.checker.CanAccessPurchaseOrder(ctx, principalID, orderID) {
		return PurchaseOrder{}, nil, shared.ErrForbidden
	}
	return s.repo.Get(ctx, principalID, orderID)
}

// ListByProject returns the purchase orders under an accessible project.
func (s *Service) ListByProject(ctx context.Context, principalID, projectID int64) ([]PurchaseOrder, error) {
	if !s.checker.CanAccessProject(ctx, principalID, projectID) {
		return nil, shared.ErrForbidden
	}
	return s.repo.ListByProject(ctx, principalID, projectID)
}

// Transition moves a purchase order through its status workflow.
func (s *Service) Transition(ctx context.Context, principalID, orderID int64, to Status) (PurchaseOrder, error) {
	if !s.checker.CanAccessPurchaseOrder(ctx, principalID, orderID) {
		return PurchaseOrder{}, shared.ErrForbidden
	}
	po, _, err := s.repo.Get(ctx, principalID, orderID)
	if err != nil {
		return PurchaseOrder{}, err
	}
	if !CanTransition(po.Status, to) {
		return PurchaseOrder{}, fmt.Errorf("%w: %s to %s", ErrInvalidState, po.Status, to)
	}
	// Approval is a privileged action on top of ordinary order access.
	if to == StatusApproved && !s.checker.HasRole(ctx, principalID, shared.PrivilegedRoles()...) {
		return PurchaseOrder{}, shared.ErrForbidden
	}
	if err := s.repo.UpdateStatus(ctx, principalID, orderID, to); err != nil {
		return PurchaseOrder{}, err
	}
	s.audit.Submit(ctx, shared.AuditLog{
		ActorID:  principalID,
		Action:   "purchase_order." + strings.ToLower(string(to)),
		Entity:   "purchase_order",
		EntityID: strconv.FormatInt(orderID, 10),
		Meta:     map[string]any{"from": string(po.Status), "to": string(to)},
	})
	po.Status = to
	return po, nil
}
