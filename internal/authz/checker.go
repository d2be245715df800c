package authz

import (
	"context"

	"github.com/rentora-erp/rentora-erp/internal/shared"
)

// Store resolves the single-row lookups the checker needs. Every method
// returns shared.ErrNotFound when the row does not exist; any other error
// is an infrastructure failure. Parent ids always come from the stored
// row, never from request input. Lookups carry the principal so storage
// implementations can bind it for their own row-security layer; a row
// the policies hide resolves to shared.ErrNotFound and the checker
// denies, the same verdict the policies reached.
type Store interface {
	PrincipalRole(ctx context.Context, principalID int64) (shared.Role, error)
	ProjectOwner(ctx context.Context, principalID, projectID int64) (int64, error)
	PurchaseOrderProject(ctx context.Context, principalID, purchaseOrderID int64) (int64, error)
	DeliveryNoteOrder(ctx context.Context, principalID, deliveryNoteID int64) (int64, error)
	DeliveryNoteItemNote(ctx context.Context, principalID, itemID int64) (int64, error)
}

// Checker evaluates access decisions for the project hierarchy. Every
// decision fails closed: a missing row, a missing principal, or a store
// error all yield deny. Nothing is cached; role and ownership are
// re-read on every call so a downgrade takes effect immediately.
type Checker struct {
	store         Store
	projectAccess Predicate
	returnGate    Predicate
}

// NewChecker constructs a Checker over the given store.
func NewChecker(store Store) *Checker {
	return &Checker{
		store:         store,
		projectAccess: ProjectAccess(),
		returnGate:    ReturnProcessing(),
	}
}

// HasRole reports whether the principal's current role is in the set.
// A missing principal record evaluates to false, never an error.
func (c *Checker) HasRole(ctx context.Context, principalID int64, roles ...shared.Role) bool {
	role, err := c.store.PrincipalRole(ctx, principalID)
	if err != nil {
		return false
	}
	return RoleIn(roles).Eval(EvalInput{PrincipalID: principalID, Role: role})
}

// CanAccessProject reports whether the principal may act on the project:
// privileged role, or creator of the project.
func (c *Checker) CanAccessProject(ctx context.Context, principalID, projectID int64) bool {
	role, err := c.store.PrincipalRole(ctx, principalID)
	if err != nil {
		return false
	}
	owner, err := c.store.ProjectOwner(ctx, principalID, projectID)
	if err != nil {
		return false
	}
	return c.projectAccess.Eval(EvalInput{PrincipalID: principalID, Role: role, OwnerID: owner})
}

// CanAccessPurchaseOrder resolves the order's project and delegates.
func (c *Checker) CanAccessPurchaseOrder(ctx context.Context, principalID, purchaseOrderID int64) bool {
	projectID, err := c.store.PurchaseOrderProject(ctx, principalID, purchaseOrderID)
	if err != nil {
		return false
	}
	return c.CanAccessProject(ctx, principalID, projectID)
}

// CanAccessDeliveryNote resolves the note's purchase order and delegates.
func (c *Checker) CanAccessDeliveryNote(ctx context.Context, principalID, deliveryNoteID int64) bool {
	purchaseOrderID, err := c.store.DeliveryNoteOrder(ctx, principalID, deliveryNoteID)
	if err != nil {
		return false
	}
	return c.CanAccessPurchaseOrder(ctx, principalID, purchaseOrderID)
}

// CanAccessDeliveryNoteItem resolves the item's delivery note and delegates.
func (c *Checker) CanAccessDeliveryNoteItem(ctx context.Context, principalID, itemID int64) bool {
	deliveryNoteID, err := c.store.DeliveryNoteItemNote(ctx, principalID, itemID)
	if err != nil {
		return false
	}
	return c.CanAccessDeliveryNote(ctx, principalID, deliveryNoteID)
}

// CanProcessReturns reports whether the principal may process equipment
// returns. This is orthogonal to ownership: owning the parent project
// does not grant it.
func (c *Checker) CanProcessReturns(ctx context.Context, principalID int64) bool {
	role, err := c.store.PrincipalRole(ctx, principalID)
	if err != nil {
		return false
	}
	return c.returnGate.Eval(EvalInput{PrincipalID: principalID, Role: role})
}
