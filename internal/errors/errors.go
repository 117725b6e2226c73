package errors

import (
	stderrors "errors"
	"fmt"
)

// RAGError is the structured error type for docrag.
// It provides context for error handling, logging, and user presentation.
type RAGError struct {
	// Code is the unique error code (e.g., "ERR_204_SNAPSHOT_SCHEMA").
	Code string

	// Message is the human-readable error message.
	Message string

	// Category is the error category (Config, IO, Network, etc.).
	Category Category

	// Severity is the error severity level.
	Severity Severity

	// Details contains additional context as key-value pairs.
	Details map[string]string

	// Cause is the underlying error that caused this error.
	Cause error

	// Retryable indicates if the operation can be retried.
	Retryable bool

	// Suggestion is an actionable suggestion for the user.
	Suggestion string
}

// Error implements the error interface.
func (e *RAGError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error chain support.
func (e *RAGError) Unwrap() error {
	return e.Cause
}

// Is matches errors by code so errors.Is works across wrapping.
func (e *RAGError) Is(target error) bool {
	if t, ok := target.(*RAGError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithDetail adds a key-value detail to the error.
func (e *RAGError) WithDetail(key, value string) *RAGError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[key] = value
	return e
}

// WithSuggestion adds an actionable suggestion for the user.
func (e *RAGError) WithSuggestion(suggestion string) *RAGError {
	e.Suggestion = suggestion
	return e
}

// New creates a RAGError with the given code and message.
// Category, severity, and retryable flag are derived from the code.
func New(code string, message string, cause error) *RAGError {
	return &RAGError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap creates a RAGError from an existing error.
func Wrap(code string, err error) *RAGError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// IsRetryable reports whether err carries a RAGError with the Retryable flag
// set anywhere in its chain.
func IsRetryable(err error) bool {
	var re *RAGError
	if stderrors.As(err, &re) {
		return re.Retryable
	}
	return false
}

// IsFatal reports whether err has fatal severity. Fatal errors abort the
// current operation and leave previous state untouched.
func IsFatal(err error) bool {
	var re *RAGError
	if stderrors.As(err, &re) {
		return re.Severity == SeverityFatal
	}
	return false
}

// GetCode extracts the error code from err's chain, or "" if no RAGError is
// present.
func GetCode(err error) string {
	var re *RAGError
	if stderrors.As(err, &re) {
		return re.Code
	}
	return ""
}
