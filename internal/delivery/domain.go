package delivery

import (
	"fmt"
	"time"

	"github.com/rentora-erp/rentora-erp/internal/shared"
)

// Delivery note lifecycle statuses.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusDelivered Status = "DELIVERED"
	StatusReturned  Status = "RETURNED"
)

// DeliveryNote records equipment arriving on site under a purchase
// order. Access is derived transitively through the order's project.
type DeliveryNote struct {
	ID              int64
	Number          string
	PurchaseOrderID int64
	Status          Status
	DeliveredAt     *time.Time
	ReceivedBy      string
	Note            string
	CreatedBy       int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Item is one delivered equipment line. QtyReturned accumulates as
// return events are processed and never exceeds QtyDelivered.
type Item struct {
	ID              int64
	DeliveryNoteID  int64
	POItemID        int64
	EquipmentName   string
	QtyDelivered    float64
	QtyReturned     float64
	Condition       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Outstanding reports the quantity still on site.
func (i Item) Outstanding() float64 {
	return i.QtyDelivered - i.QtyReturned
}

// FullyReturned reports whether nothing remains outstanding.
func (i Item) FullyReturned() bool {
	return i.Outstanding() <= 0
}

var (
	// ErrNotFound indicates record missing.
	ErrNotFound = fmt.Errorf("delivery: %w", shared.ErrNotFound)
	// ErrValidation indicates invalid input.
	ErrValidation = fmt.Errorf("delivery: %w", shared.ErrInvalidInput)
)
