package vendors

import (
	"fmt"
	"time"

	"github.com/rentora-erp/rentora-erp/internal/shared"
)

// Vendor is an equipment supplier referenced by purchase orders.
type Vendor struct {
	ID        int64
	Code      string
	Name      string
	Email     string
	Phone     string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

var (
	// ErrNotFound indicates record missing.
	ErrNotFound = fmt.Errorf("vendors: %w", shared.ErrNotFound)
	// ErrValidation indicates invalid input.
	ErrValidation = fmt.Errorf("vendors: %w", shared.ErrInvalidInput)
	// ErrDuplicateCode indicates a vendor code conflict.
	ErrDuplicateCode = fmt.Errorf("vendors: %w", shared.ErrDuplicate)
)
