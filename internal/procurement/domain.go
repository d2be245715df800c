package procurement

import (
	"fmt"
	"time"

	"github.com/rentora-erp/rentora-erp/internal/shared"
)

// Purchase order lifecycle statuses.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusSubmitted Status = "SUBMITTED"
	StatusApproved  Status = "APPROVED"
	StatusClosed    Status = "CLOSED"
	StatusCancelled Status = "CANCELLED"
)

// PurchaseOrder belongs to exactly one project. Access to it is derived
// transitively from the project; it carries no ACL of its own.
type PurchaseOrder struct {
	ID        int64
	Number    string
	ProjectID int64
	VendorID  int64
	Status    Status
	OrderDate time.Time
	Note      string
	CreatedBy int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Item is a rental line on a purchase order.
type Item struct {
	ID              int64
	PurchaseOrderID int64
	EquipmentName   string
	Qty             float64
	UnitPrice       float64
	RentalStart     time.Time
	RentalEnd       time.Time
}

var (
	// ErrNotFound indicates record missing.
	ErrNotFound = fmt.Errorf("procurement: %w", shared.ErrNotFound)
	// ErrValidation indicates invalid input.
	ErrValidation = fmt.Errorf("procurement: %w", shared.ErrInvalidInput)
	// ErrInvalidState occurs when an action violates the status workflow.
	ErrInvalidState = fmt.Errorf("procurement: invalid state transition: %w", shared.ErrInvalidInput)
)

// CanTransition reports whether the status workflow allows the move.
func CanTransition(from, to Status) bool {
	switch from {
	case StatusDraft:
		return to == StatusSubmitted || to == StatusCancelled
	case StatusSubmitted:
		return to == StatusApproved || to == StatusCancelled
	case StatusApproved:
		return to == StatusClosed || to == StatusCancelled
	}
	return false
}
