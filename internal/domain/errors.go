package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned for missing rows and for rows owned by someone else.
	ErrNotFound        = errors.New("not found")
	ErrAlreadyExists   = errors.New("already exists")
	ErrForbidden       = errors.New("forbidden")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrInvalidInput    = errors.New("invalid input")
	ErrUpgradeRequired = errors.New("upgrade required")
	ErrTokenConsumed   = errors.New("token already used")
	ErrTokenInvalid    = errors.New("invalid or expired token")
	ErrNotConfigured   = errors.New("service not configured")
	ErrUpstream        = errors.New("upstream provider failed")
	ErrUnavailable     = errors.New("capability unavailable")
)

// ValidationError carries a field-specific message for 400 responses.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// Invalid builds a ValidationError.
func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// ConflictError is an ErrAlreadyExists with a caller-facing message.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string { return e.Message }

func (e *ConflictError) Unwrap() error { return ErrAlreadyExists }

// UpgradeRequiredError reports an exhausted credit counter for a gated feature.
type UpgradeRequiredError struct {
	Feature   Feature
	Remaining int
}

func (e *UpgradeRequiredError) Error() string {
	return fmt.Sprintf("upgrade required for %s", e.Feature)
}

func (e *UpgradeRequiredError) Unwrap() error { return ErrUpgradeRequired }

// UpstreamError wraps a provider failure with the provider's message for
// diagnostics. Summary, when set, is the client-facing error text.
type UpstreamError struct {
	Provider string
	Summary  string
	Err      error
}

// NarrativeFailed is the client-facing summary for failed report generation.
const NarrativeFailed = "narrative generation failed"

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *UpstreamError) Unwrap() []error { return []error{ErrUpstream, e.Err} }
