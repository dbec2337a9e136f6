// Package domain defines the core domain models for the viewer token
// service.
package domain

import (
	"errors"
	"fmt"
	"strings"
)

// DomainError represents a business domain error with a structured
// error code.
type DomainError struct {
	Code    string // Error code (e.g., "QV-PROJ-4090")
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

// IsConflict reports whether err is a uniqueness violation on a write.
// Callers may retry with a new candidate value or treat the entity as
// already existing.
func IsConflict(err error) bool {
	return strings.HasSuffix(GetErrorCode(err), "-4090")
}

// IsNotFound reports whether err indicates a missing entity.
func IsNotFound(err error) bool {
	return strings.HasSuffix(GetErrorCode(err), "-4040")
}

// ============================================================================
// Project Errors (PROJ)
// ============================================================================

var (
	// ErrProjectNotFound indicates the requested project was not found.
	ErrProjectNotFound = NewDomainError("QV-PROJ-4040", "project not found")

	// ErrProjectConflict indicates the project slug already exists.
	ErrProjectConflict = NewDomainError("QV-PROJ-4090", "project slug conflict")

	// ErrProjectValidation indicates project data validation failed.
	ErrProjectValidation = NewDomainError("QV-PROJ-4001", "project validation failed")
)

// ============================================================================
// Model Version Errors (VERS)
// ============================================================================

var (
	// ErrVersionNotFound indicates the requested model version was not found.
	ErrVersionNotFound = NewDomainError("QV-VERS-4040", "model version not found")

	// ErrVersionConflict indicates the (project, version) pair already exists.
	ErrVersionConflict = NewDomainError("QV-VERS-4090", "model version conflict")

	// ErrVersionValidation indicates model version data validation failed.
	ErrVersionValidation = NewDomainError("QV-VERS-4001", "model version validation failed")
)

// ============================================================================
// Viewer Token Errors (TOKN)
// ============================================================================

var (
	// ErrTokenNotFound indicates the requested token was not found.
	ErrTokenNotFound = NewDomainError("QV-TOKN-4040", "token not found")

	// ErrTokenExpired indicates the token has expired.
	ErrTokenExpired = NewDomainError("QV-TOKN-4041", "token expired")

	// ErrTokenConflict indicates the token string already exists.
	ErrTokenConflict = NewDomainError("QV-TOKN-4090", "token conflict")

	// ErrTokenValidation indicates token data validation failed.
	ErrTokenValidation = NewDomainError("QV-TOKN-4001", "token validation failed")
)

// ============================================================================
// Argument Errors (ARG)
// ============================================================================

var (
	// ErrInvalidArgument indicates an invalid argument.
	ErrInvalidArgument = NewDomainError("QV-ARG-1001", "invalid argument")

	// ErrMissingArgument indicates a required argument is missing.
	ErrMissingArgument = NewDomainError("QV-ARG-1002", "missing required argument")
)

// ============================================================================
// System Errors (SYS)
// ============================================================================

var (
	// ErrInternalServer indicates an internal server error.
	ErrInternalServer = NewDomainError("QV-SYS-5000", "internal server error")

	// ErrStorageError indicates a storage layer error.
	ErrStorageError = NewDomainError("QV-SYS-5001", "storage error")
)
