// Package domain contains the core business entities and rules of cauth.
// These types have no knowledge of databases, HTTP, or any transport concerns.
package domain

import "errors"

// Error kinds surfaced by the core. Components return these via errors.Is,
// never a bespoke error type per operation.
var (
	ErrNotFound           = errors.New("not found")
	ErrNameConflict       = errors.New("name conflict")
	ErrNameError          = errors.New("referenced entity does not exist")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidState       = errors.New("invalid state")
	ErrHash               = errors.New("password hash error")
	ErrStorage            = errors.New("storage error")
)

// ValidationError reports one structural problem with an input field.
// Stores treat a failed Validate() the same as a name conflict: both mean
// "this row cannot be written as given" (spec.md §4.3: insert "fails
// NameConflict ... if length limits are exceeded").
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func (e ValidationError) Unwrap() error {
	return ErrNameConflict
}
