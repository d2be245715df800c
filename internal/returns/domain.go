package returns

import (
	"fmt"
	"time"

	"github.com/rentora-erp/rentora-erp/internal/shared"
)

// Event records one processed equipment return against a delivery
// note item. Events only accumulate; corrections are new events.
type Event struct {
	ID                 int64
	DeliveryNoteItemID int64
	Qty                float64
	Condition          string
	Note               string
	ProcessedBy        int64
	ProcessedAt        time.Time
}

var (
	// ErrNotFound indicates record missing.
	ErrNotFound = fmt.Errorf("returns: %w", shared.ErrNotFound)
	// ErrValidation indicates invalid input.
	ErrValidation = fmt.Errorf("returns: %w", shared.ErrInvalidInput)
	// ErrExcessQty occurs when a return exceeds the outstanding quantity.
	ErrExcessQty = fmt.Errorf("returns: qty exceeds outstanding: %w", shared.ErrInvalidInput)
)
