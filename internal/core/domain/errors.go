package domain

import "errors"

// Authentication failures. ErrAccountLocked never leaves the service layer as a
// distinct message; callers only ever observe ErrInvalidCredentials.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account locked")
	ErrTokenMalformed     = errors.New("token malformed")
	ErrTokenExpired       = errors.New("token expired")
	ErrUnauthenticated    = errors.New("unauthenticated")
)

// Authorization and lookup failures.
var (
	ErrUnauthorized     = errors.New("access forbidden")
	ErrAccountNotFound  = errors.New("account not found")
	ErrProjectNotFound  = errors.New("project not found")
	ErrConcurrentUpdate = errors.New("concurrent update")
)

// Validation and conflict failures.
var (
	ErrDuplicateEmail    = errors.New("email already registered")
	ErrDuplicateUsername = errors.New("username already taken")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidStatus     = errors.New("invalid project status")
	ErrInvalidRole       = errors.New("invalid role")
	ErrValidation        = errors.New("validation failed")
)
