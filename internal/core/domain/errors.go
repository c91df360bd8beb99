package domain

import "errors"

// Core failure taxonomy. Every error here is surfaced to the caller as a
// typed failure with success=false; none are silently swallowed.
var (
	ErrUnauthenticated     = errors.New("unauthenticated")
	ErrForbidden           = errors.New("access forbidden")
	ErrIllegalTransition   = errors.New("illegal status transition")
	ErrAlreadyAssigned     = errors.New("order already assigned")
	ErrAlreadyClaimed      = errors.New("ticket already claimed")
	ErrNoAgentAvailable    = errors.New("no delivery agent available")
	ErrStaleVersion        = errors.New("stale version, retry")
	ErrReopenLimitExceeded = errors.New("ticket reopen limit exceeded")

	ErrOrderNotFound  = errors.New("order not found")
	ErrTicketNotFound = errors.New("ticket not found")
	ErrAgentNotFound  = errors.New("agent not found")
	ErrUserNotFound   = errors.New("user not found")
	ErrUserExists     = errors.New("user already exists")

	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnknownRole        = errors.New("unknown role name")
	ErrEmptyCart          = errors.New("cart is empty")
)
