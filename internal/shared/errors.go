package shared

import "errors"

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrUnauthenticated indicates a missing, malformed, or rejected bearer credential.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden indicates a valid credential with insufficient privilege or ownership.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidInput indicates a request that failed domain validation.
	ErrInvalidInput = errors.New("invalid input")
	// ErrDuplicate indicates a uniqueness conflict.
	ErrDuplicate = errors.New("duplicate entry")
	// ErrStoreUnavailable indicates a lookup infrastructure failure.
	ErrStoreUnavailable = errors.New("store unavailable")
)
