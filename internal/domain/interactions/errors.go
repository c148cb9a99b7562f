package interactions

import (
	"errors"
	"fmt"
)

var (
	// ErrSchemaViolation indicates a malformed analysis. Not retryable.
	ErrSchemaViolation = errors.New("schema violation")
	// ErrStorageCorruption indicates an unreadable persisted log. Recovered as an empty log.
	ErrStorageCorruption = errors.New("storage corruption")
	// ErrExportFailure indicates report production failed (I/O or encoding).
	ErrExportFailure = errors.New("export failure")
	// ErrEmptySelection is the "nothing to export" signal, distinct from failure.
	ErrEmptySelection = errors.New("nothing to export")
	// ErrServiceFailure indicates the classification call failed; the caller may retry.
	ErrServiceFailure = errors.New("classification service failure")

	ErrNotFound             = errors.New("interaction not found")
	ErrBusy                 = errors.New("a submission is already in progress")
	ErrAbandoned            = errors.New("submission abandoned before the result arrived")
	ErrConfirmationRequired = errors.New("explicit confirmation required")
	ErrInvalidInput         = errors.New("invalid input")
)

// SchemaError describes which field of an analysis failed validation.
type SchemaError struct {
	Field  string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema violation: %s: %s", e.Field, e.Reason)
}

func (e *SchemaError) Is(target error) bool { return target == ErrSchemaViolation }

// AbandonedError is returned when the caller stopped waiting for a
// classification. A result that arrives later is parked under Ticket and
// only reaches the log after explicit confirmation.
type AbandonedError struct {
	Ticket string
}

func (e *AbandonedError) Error() string {
	return fmt.Sprintf("%s (ticket %s)", ErrAbandoned, e.Ticket)
}

func (e *AbandonedError) Is(target error) bool { return target == ErrAbandoned }
