package models

import "errors"

// Workflow error taxonomy. Every mutating operation returns one of these
// (possibly wrapped) instead of panicking; the transport layer translates
// them into user-facing replies.
var (
	ErrNotFound            = errors.New("not found")
	ErrInvalidState        = errors.New("invalid state for this action")
	ErrForbidden           = errors.New("forbidden")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrStoreUnavailable    = errors.New("row store unavailable")
)
