package auth

import (
	"time"

	"github.com/rentora-erp/rentora-erp/internal/shared"
)

// User represents an authenticated user account. Role is the single
// privilege tier attached to the account; it is mutated only through
// the users module by an administrator.
type User struct {
	ID           int64
	Email        string
	FullName     string
	PasswordHash string
	Role         shared.Role
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
