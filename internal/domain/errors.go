package domain

import (
	"errors"
	"fmt"
)

// Error codes are stable strings: they cross the broker inside reply
// envelopes and must decode back to the same sentinel on the caller side.
const (
	CodeValidation           = "VALIDATION_ERROR"
	CodeNotFound             = "NOT_FOUND"
	CodeInvalidTransition    = "INVALID_TRANSITION"
	CodeInvalidQuantity      = "INVALID_QUANTITY"
	CodeInsufficientQuantity = "INSUFFICIENT_QUANTITY"
	CodeInvalidCredentials   = "INVALID_CREDENTIALS"
	CodeAccountNotActive     = "ACCOUNT_NOT_ACTIVE"
	CodeSubscriptionExpired  = "SUBSCRIPTION_EXPIRED"
	CodeRemoteTimeout        = "REMOTE_TIMEOUT"
	CodeRemoteUnavailable    = "REMOTE_UNAVAILABLE"
	CodeRemoteError          = "REMOTE_ERROR"
)

var (
	ErrValidation           = &Error{Code: CodeValidation, Message: "invalid request"}
	ErrNotFound             = &Error{Code: CodeNotFound, Message: "not found"}
	ErrInvalidTransition    = &Error{Code: CodeInvalidTransition, Message: "invalid status transition"}
	ErrInvalidQuantity      = &Error{Code: CodeInvalidQuantity, Message: "order quantity is not valid"}
	ErrInsufficientQuantity = &Error{Code: CodeInsufficientQuantity, Message: "order quantity is not enough"}
	ErrInvalidCredentials   = &Error{Code: CodeInvalidCredentials, Message: "invalid credentials"}
	ErrAccountNotActive     = &Error{Code: CodeAccountNotActive, Message: "user is not active"}
	ErrSubscriptionExpired  = &Error{Code: CodeSubscriptionExpired, Message: "subscription expired"}
	ErrRemoteTimeout        = &Error{Code: CodeRemoteTimeout, Message: "remote call timed out"}
	ErrRemoteUnavailable    = &Error{Code: CodeRemoteUnavailable, Message: "remote service unavailable"}
)

// Error is a taxonomy error. Two Errors match with errors.Is when their
// codes are equal, so wrapped and broker-decoded instances compare equal to
// the sentinels above.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Is(target error) bool {
	var de *Error
	if !errors.As(target, &de) {
		return false
	}
	return e.Code == de.Code
}

// New returns a taxonomy error with a specific message under the given code.
func New(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Validation returns a ValidationError with a caller-facing message.
func Validation(message string) *Error {
	return &Error{Code: CodeValidation, Message: message}
}

// Remote wraps an application error returned by a downstream service.
func Remote(message string) *Error {
	return &Error{Code: CodeRemoteError, Message: message}
}

// CodeOf extracts the taxonomy code from err, or CodeRemoteError when err is
// not a taxonomy error.
func CodeOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return CodeRemoteError
}

// MessageOf extracts the caller-facing message from err.
func MessageOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Message
	}
	return err.Error()
}

// FromCode rebuilds a taxonomy error from a decoded reply envelope.
func FromCode(code, message string) *Error {
	if code == "" {
		code = CodeRemoteError
	}
	if message == "" {
		message = "remote error"
	}
	return &Error{Code: code, Message: message}
}
