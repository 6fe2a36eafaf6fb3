package services

import (
	"errors"

	"github.com/contactsbook/apiserver/internal/auth"
)

var (
	// ErrEmailInUse is returned by signup when the address is already registered.
	ErrEmailInUse = errors.New("email in use")

	// ErrInvalidCredentials covers both unknown email and wrong password so the
	// two cases cannot be told apart by clients.
	ErrInvalidCredentials = errors.New("email or password is wrong")

	// ErrNotAuthorized is returned when the caller has no valid session.
	ErrNotAuthorized = auth.ErrUnauthorized

	// ErrAlreadyVerified is returned when re-sending verification for a verified account.
	ErrAlreadyVerified = errors.New("verification has already been passed")
)

// ValidationError reports the first input field that failed validation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func newValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}
