// Package domain defines the core domain model of webstore.
package domain

import (
	"errors"
	"fmt"
)

// DomainError is a public error carrying a stable code.
//
// Two DomainErrors match under errors.Is when their codes are equal, so
// callers compare against the sentinel values below regardless of the
// details or cause attached to a particular failure.
type DomainError struct {
	Code    string // Error code (e.g., "WS-BACK-5030")
	Message string // Human-readable message
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *DomainError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is() support for error comparison.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new DomainError with the given code and message.
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DomainError) WithDetails(details string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
		Cause:   e.Cause,
	}
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *DomainError) WithCause(cause error) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: e.Details,
		Cause:   cause,
	}
}

// Wrap wraps an error with this domain error as the cause.
func (e *DomainError) Wrap(cause error) *DomainError {
	return e.WithCause(cause)
}

// Detailf is WithDetails with fmt.Sprintf formatting.
func (e *DomainError) Detailf(format string, args ...any) *DomainError {
	return e.WithDetails(fmt.Sprintf(format, args...))
}

// IsDomainError checks if an error is a DomainError with the given code.
// If code is empty, it only checks if the error is a DomainError.
func IsDomainError(err error, code string) bool {
	var de *DomainError
	if errors.As(err, &de) {
		if code == "" {
			return true
		}
		return de.Code == code
	}
	return false
}

// GetErrorCode extracts the error code from an error if it's a DomainError.
func GetErrorCode(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// ============================================================================
// Backend Errors (BACK)
// ============================================================================

var (
	// ErrUnavailableBackend indicates the backend is absent, disabled, or
	// failed feature detection.
	ErrUnavailableBackend = NewDomainError("WS-BACK-5030", "storage backend unavailable")

	// ErrQuotaExceeded indicates the substrate rejected a write for capacity.
	ErrQuotaExceeded = NewDomainError("WS-BACK-5070", "storage quota exceeded")
)

// ============================================================================
// Codec Errors (CODEC)
// ============================================================================

var (
	// ErrSerialization indicates a malformed envelope or an unsupported
	// envelope version, or a value that cannot be serialized.
	ErrSerialization = NewDomainError("WS-CODEC-4220", "serialization failed")
)

// ============================================================================
// Crypto Errors (CRYPT)
// ============================================================================

var (
	// ErrDecryption indicates an authentication failure: wrong secret or
	// corrupted ciphertext.
	ErrDecryption = NewDomainError("WS-CRYPT-4010", "decryption failed")

	// ErrEncryption indicates the encryption service could not seal a value.
	ErrEncryption = NewDomainError("WS-CRYPT-5000", "encryption failed")
)

// ============================================================================
// Configuration Errors (CONF)
// ============================================================================

var (
	// ErrConfiguration indicates invalid configuration or call options.
	// The more specific CONF errors below unwrap to it.
	ErrConfiguration = NewDomainError("WS-CONF-4000", "invalid configuration")

	// ErrInvalidTTL indicates a zero or negative TTL.
	ErrInvalidTTL = newConfigError("WS-CONF-4001", "ttl must be positive")

	// ErrUnknownBackend indicates an unrecognized backend selector.
	ErrUnknownBackend = newConfigError("WS-CONF-4002", "unknown storage backend")

	// ErrWatchUnsupported indicates Watch was requested on a backend without
	// native change notifications.
	ErrWatchUnsupported = newConfigError("WS-CONF-4003", "watch not supported by backend")
)

func newConfigError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message, Cause: ErrConfiguration}
}
