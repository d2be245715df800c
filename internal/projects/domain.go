package projects

import (
	"fmt"
	"time"

	"github.com/rentora-erp/rentora-erp/internal/shared"
)

// Project lifecycle statuses. Status never influences access control.
type Status string

const (
	StatusDraft    Status = "DRAFT"
	StatusActive   Status = "ACTIVE"
	StatusArchived Status = "ARCHIVED"
)

// Project is the root of the ownership hierarchy. CreatedBy is the
// owning principal and is immutable after creation.
type Project struct {
	ID          int64
	Code        string
	Name        string
	Description string
	Status      Status
	CreatedBy   int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

var (
	// ErrNotFound indicates record missing.
	ErrNotFound = fmt.Errorf("projects: %w", shared.ErrNotFound)
	// ErrValidation indicates invalid input.
	ErrValidation = fmt.Errorf("projects: %w", shared.ErrInvalidInput)
	// ErrDuplicateCode indicates a project code conflict.
	ErrDuplicateCode = fmt.Errorf("projects: %w", shared.ErrDuplicate)
)
