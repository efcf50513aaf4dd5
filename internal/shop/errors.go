package shop

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyCart          = errors.New("cart is empty")
	ErrNotAuthenticated   = errors.New("not authenticated")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrTokenExpired       = errors.New("session token expired")
	ErrNotFound           = errors.New("not found")
)

// TransientBackendError is a primary backend failure. The facade absorbs it and falls back.
type TransientBackendError struct {
	Backend string
	Op      string
	Err     error
}

func (e *TransientBackendError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Backend, e.Op, e.Err)
}

func (e *TransientBackendError) Unwrap() error { return e.Err }

// PersistenceError means a write failed on every backend that was tried.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

type AuthError struct {
	Err error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth: %v", e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

func NewValidationError(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

func NewAuthError(err error) error {
	return &AuthError{Err: err}
}

// NewAuthErrorf builds an AuthError wrapping a formatted message.
func NewAuthErrorf(format string, args ...any) error {
	return &AuthError{Err: fmt.Errorf(format, args...)}
}

func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func IsPersistenceError(err error) bool {
	var pe *PersistenceError
	return errors.As(err, &pe)
}
