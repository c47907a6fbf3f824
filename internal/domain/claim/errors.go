package claim

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation is returned when a command carries missing or malformed input
	ErrValidation = errors.New("validation failed")

	// ErrPrecondition is returned when a command is not allowed in the claim's current state
	ErrPrecondition = errors.New("precondition failed")

	// ErrNoPlatformFigure is returned when accepting a platform figure that does not exist
	ErrNoPlatformFigure = errors.New("no platform figure")

	// ErrNoVerifierAmount is returned when admission has neither a verifier nor a platform figure to build on
	ErrNoVerifierAmount = errors.New("no verifier amount")

	// ErrAccountMismatch is returned when a bank account and its confirmation differ
	ErrAccountMismatch = errors.New("account number mismatch")

	// ErrAdvisorUnavailable is returned when the reconciliation advisor cannot run for a claim
	ErrAdvisorUnavailable = errors.New("advisor unavailable")

	// ErrNotFound is returned for unknown claim or assignment row identifiers
	ErrNotFound = errors.New("not found")

	// ErrConcurrentUpdate is returned when a save is based on an outdated version
	ErrConcurrentUpdate = errors.New("concurrent update")
)

// ValidationError lists the offending fields of a rejected command
type ValidationError struct {
	Fields []string
}

// NewValidationError builds a ValidationError for fields
func NewValidationError(fields ...string) *ValidationError {
	return &ValidationError{Fields: fields}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", ErrValidation, strings.Join(e.Fields, ", "))
}

// Unwrap lets errors.Is(err, ErrValidation) match
func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

// Preconditionf wraps ErrPrecondition with a formatted reason
func Preconditionf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrPrecondition, fmt.Sprintf(format, args...))
}

// Kind names the error kind of err for logs, metrics and transport mapping.
// Unclassified errors report "internal".
func Kind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrAccountMismatch):
		return "account_mismatch"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNoPlatformFigure):
		return "no_platform_figure"
	case errors.Is(err, ErrNoVerifierAmount):
		return "no_verifier_amount"
	case errors.Is(err, ErrAdvisorUnavailable):
		return "advisor_unavailable"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConcurrentUpdate):
		return "concurrent_update"
	case errors.Is(err, ErrPrecondition):
		return "precondition"
	default:
		return "internal"
	}
}
