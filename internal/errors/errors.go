// Package errors provides structured error types with codes for the resolver.
package errors

import (
	"errors"
	"fmt"
)

// Error codes for categorizing errors.
const (
	CodeInternal      = "internal_error"
	CodeInvalidInput  = "invalid_input"
	CodeEmptyKeySet   = "empty_key_set"
	CodeNoSigningKeys = "no_signing_keys"
	CodeKeyNotFound   = "key_not_found"
	CodeFetch         = "fetch_error"
	CodeInvalidKey    = "invalid_key"
)

// Error represents a structured error with a code and message.
type Error struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a new Error with the given code and message.
func New(code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with a code and message.
func Wrap(err error, code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsCode checks if an error has a specific error code.
func IsCode(err error, code string) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// CodeOf returns the code of err, or CodeInternal if err carries none.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// EmptyKeySet reports a key set with no entries at all.
func EmptyKeySet() *Error {
	return New(CodeEmptyKeySet, "The JWKS endpoint did not contain any keys")
}

// NoSigningKeys reports a key set in which no entry qualifies as an RSA signing key.
func NoSigningKeys() *Error {
	return New(CodeNoSigningKeys, "The JWKS endpoint did not contain any signing keys")
}

// KeyNotFound creates a key not found error.
func KeyNotFound(kid string) *Error {
	return &Error{
		Code:    CodeKeyNotFound,
		Message: fmt.Sprintf("Unable to find a signing key that matches '%s'", kid),
	}
}

// FetchFailed wraps a retrieval failure. The cause stays reachable through Unwrap.
func FetchFailed(uri string, err error) *Error {
	return Wrap(err, CodeFetch, fmt.Sprintf("failed to fetch JWKS from %s", uri))
}

// InvalidKey reports key material that could not be encoded.
func InvalidKey(kid string, err error) *Error {
	return Wrap(err, CodeInvalidKey, fmt.Sprintf("invalid key material for kid %q", kid))
}

// InvalidInput creates an invalid input error.
func InvalidInput(message string) *Error {
	return &Error{
		Code:    CodeInvalidInput,
		Message: message,
	}
}

// Internal creates an internal error.
func Internal(message string, err error) *Error {
	return &Error{
		Code:    CodeInternal,
		Message: message,
		Err:     err,
	}
}
