// Package taxonomy defines the engine's coded error taxonomy. Only
// validation failures and persistence conflicts that outlive their retry
// budget surface to callers as hard failures; every other condition is
// absorbed with degraded-mode continuation and logged.
package taxonomy

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Category represents the category of error
type Category string

const (
	// Availability errors (1xxx), recovered locally, never fatal
	CodeSourcingUnavailable = "ORC-1001" // A tier's data source failed
	CodeScorerUnavailable   = "ORC-1002" // Ranking capability failed
	CodeTimeout             = "ORC-1003" // Operation timeout
	CodePublishFailed       = "ORC-1004" // Notification topic unreachable

	// Validation errors (3xxx), fatal at creation time
	CodeInvalidInput   = "ORC-3001" // Invalid parameters
	CodeMissingField   = "ORC-3002" // Missing required field
	CodeUnknownUrgency = "ORC-3003" // Urgency level not configured

	// State errors (4xxx)
	CodeCampaignNotFound    = "ORC-4001" // Unknown campaign identity
	CodeStateConflict       = "ORC-4002" // Transition not allowed from state
	CodePersistenceConflict = "ORC-4003" // Concurrent write on a ledger
	CodeAttemptImmutable    = "ORC-4004" // permanently_declined never changes

	// System errors (5xxx)
	CodeInternal = "ORC-5001" // Unexpected internal error
)

// Severity represents how urgently an error needs attention.
type Severity int

const (
	SeverityCritical Severity = iota // Engine failure, immediate action
	SeverityHigh                     // Campaign degraded, urgent
	SeverityMedium                   // Single operation impacted
	SeverityLow                      // Informational
)

// Error is a coded error with enough context to audit a campaign's
// degraded-mode history.
type Error struct {
	Code          string         `json:"code"`
	Category      Category       `json:"category"`
	Message       string         `json:"message"`
	Severity      Severity       `json:"severity"`
	Context       map[string]any `json:"context,omitempty"`
	Timestamp     time.Time      `json:"timestamp"`
	Retryable     bool           `json:"retryable"`
	CorrelationID string         `json:"correlation_id"`

	cause error
}

// Error implements the error interface
func (e *Error) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap exposes the wrapped cause for errors.Is/As.
func (e *Error) Unwrap() error {
	return e.cause
}

// ShouldRetry determines if the error is retryable
func (e *Error) ShouldRetry() bool {
	return e.Retryable && e.Severity > SeverityCritical
}

// WithContext adds context to the error
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// ToJSON serializes the error for audit records.
func (e *Error) ToJSON() string {
	b, _ := json.Marshal(e)
	return string(b)
}

// New creates a new coded error.
func New(code, message string) *Error {
	return &Error{
		Code:          code,
		Category:      categoryFromCode(code),
		Message:       message,
		Severity:      severityFromCode(code),
		Retryable:     retryableCode(code),
		Timestamp:     time.Now(),
		CorrelationID: uuid.New().String(),
	}
}

// Newf creates a new coded error with a formatted message.
func Newf(code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap wraps an existing error under a taxonomy code. Wrapping an *Error
// re-codes a copy; the instance the caller holds keeps its code.
func Wrap(err error, code string) *Error {
	if err == nil {
		return nil
	}
	var coded *Error
	if errors.As(err, &coded) {
		recoded := *coded
		recoded.Code = code
		recoded.Category = categoryFromCode(code)
		if len(coded.Context) > 0 {
			recoded.Context = make(map[string]any, len(coded.Context))
			for k, v := range coded.Context {
				recoded.Context[k] = v
			}
		}
		return &recoded
	}
	e := New(code, err.Error())
	e.cause = err
	return e
}

// Is reports whether err carries the given taxonomy code.
func Is(err error, code string) bool {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code == code
	}
	return false
}

// IsValidation reports whether err is a creation-time validation failure.
func IsValidation(err error) bool {
	var coded *Error
	if errors.As(err, &coded) {
		return coded.Category == "validation"
	}
	return false
}

// categoryFromCode determines category from error code
func categoryFromCode(code string) Category {
	if len(code) < 6 {
		return Category("unknown")
	}
	switch code[4:5] {
	case "1":
		return Category("availability")
	case "3":
		return Category("validation")
	case "4":
		return Category("state")
	case "5":
		return Category("system")
	default:
		return Category("unknown")
	}
}

// severityFromCode determines severity from error code
func severityFromCode(code string) Severity {
	switch code {
	case CodeInternal:
		return SeverityCritical
	case CodeSourcingUnavailable, CodePublishFailed:
		return SeverityHigh
	case CodeScorerUnavailable, CodePersistenceConflict, CodeTimeout:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// retryableCode determines if an error code is retryable
func retryableCode(code string) bool {
	switch code {
	case CodePersistenceConflict, CodeTimeout, CodePublishFailed:
		return true
	default:
		return false
	}
}
