// Package errors provides standardized error handling for the pipeline and its BPMN workers.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeUpstreamUnavailable    ErrorCode = "UPSTREAM_UNAVAILABLE"
	ErrCodeUpstreamTimeout        ErrorCode = "UPSTREAM_TIMEOUT"
	ErrCodeUpstreamBlocked        ErrorCode = "UPSTREAM_BLOCKED"
	ErrCodeUpstreamRejected       ErrorCode = "UPSTREAM_REJECTED"
	ErrCodeUpstreamPayloadInvalid ErrorCode = "UPSTREAM_PAYLOAD_INVALID"

	ErrCodeGenerationFailed  ErrorCode = "GENERATION_FAILED"
	ErrCodeGenerationTimeout ErrorCode = "GENERATION_TIMEOUT"

	ErrCodeInvalidQuery    ErrorCode = "INVALID_QUERY"
	ErrCodeInvalidJobInput ErrorCode = "INVALID_JOB_INPUT"

	ErrCodeInteractionRecordFailed ErrorCode = "INTERACTION_RECORD_FAILED"
	ErrCodeInternal                ErrorCode = "INTERNAL_ERROR"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`

	cause error
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

func (e *StandardError) Unwrap() error {
	return e.cause
}

func newError(code ErrorCode, message string, cause error, retryable bool) *StandardError {
	se := &StandardError{
		Code:      code,
		Message:   message,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		cause:     cause,
	}
	if cause != nil {
		se.Details = cause.Error()
	}
	return se
}

// ==========================
// 2. BPMN Error Integration
// ==========================

// BPMNError represents an error that can be thrown to the workflow engine.
type BPMNError struct {
	Code           string                 `json:"code"`
	Message        string                 `json:"message"`
	Details        string                 `json:"details,omitempty"`
	Retryable      bool                   `json:"retryable"`
	Retries        int                    `json:"retries"`
	ErrorVariables map[string]interface{} `json:"errorVariables,omitempty"`
}

func (e *BPMNError) Error() string {
	return fmt.Sprintf("BPMNError[%s]: %s", e.Code, e.Message)
}

// ToErrorVariables returns a map suitable for job fail variables.
func (e *BPMNError) ToErrorVariables() map[string]interface{} {
	vars := map[string]interface{}{
		"errorCode":    e.Code,
		"errorMessage": e.Message,
		"errorDetails": e.Details,
		"retryable":    e.Retryable,
	}
	for k, v := range e.ErrorVariables {
		vars[k] = v
	}
	return vars
}

// ==========================
// 3. Error Constructors
// ==========================

// NewUpstreamStatusError classifies a non-2xx upstream response.
// 403 is blocking, 408/429/5xx are transient, any other 4xx is a permanent rejection.
func NewUpstreamStatusError(source string, status int) *StandardError {
	var se *StandardError
	switch {
	case status == http.StatusForbidden:
		se = newError(ErrCodeUpstreamBlocked, fmt.Sprintf("Upstream '%s' blocked the request", source), nil, true)
	case status == http.StatusRequestTimeout, status == http.StatusTooManyRequests, status >= 500:
		se = newError(ErrCodeUpstreamUnavailable, fmt.Sprintf("Upstream '%s' unavailable", source), nil, true)
	default:
		se = newError(ErrCodeUpstreamRejected, fmt.Sprintf("Upstream '%s' rejected the request", source), nil, false)
	}
	se.Details = fmt.Sprintf("status %d", status)
	se.Metadata = map[string]interface{}{"source": source, "statusCode": status}
	return se
}

// NewUpstreamUnavailableError wraps a connection-level failure.
func NewUpstreamUnavailableError(source string, err error) *StandardError {
	se := newError(ErrCodeUpstreamUnavailable, fmt.Sprintf("Upstream '%s' unavailable", source), err, true)
	se.Metadata = map[string]interface{}{"source": source}
	return se
}

// NewUpstreamTimeoutError marks an attempt that exceeded its deadline.
func NewUpstreamTimeoutError(source string, err error) *StandardError {
	se := newError(ErrCodeUpstreamTimeout, fmt.Sprintf("Upstream '%s' timeout", source), err, true)
	se.Metadata = map[string]interface{}{"source": source}
	return se
}

// NewUpstreamPayloadError reports a body that could not be decoded at all.
func NewUpstreamPayloadError(source, details string) *StandardError {
	se := newError(ErrCodeUpstreamPayloadInvalid, fmt.Sprintf("Upstream '%s' returned an invalid payload", source), nil, false)
	se.Details = details
	se.Metadata = map[string]interface{}{"source": source}
	return se
}

func NewGenerationFailedError(err error) *StandardError {
	return newError(ErrCodeGenerationFailed, "Generation service error", err, true)
}

func NewGenerationTimeoutError(err error) *StandardError {
	return newError(ErrCodeGenerationTimeout, "Generation service timeout", err, true)
}

func NewInvalidQueryError(details string) *StandardError {
	se := newError(ErrCodeInvalidQuery, "Query is not valid", nil, false)
	se.Details = details
	return se
}

func NewInvalidJobInputError(details string) *StandardError {
	se := newError(ErrCodeInvalidJobInput, "Job input failed validation", nil, false)
	se.Details = details
	return se
}

func NewInteractionRecordFailedError(err error) *StandardError {
	return newError(ErrCodeInteractionRecordFailed, "Interaction record could not be stored", err, true)
}

func NewInternalError(err error) *StandardError {
	return newError(ErrCodeInternal, "Unexpected error", err, false)
}

// ==========================
// 4. Error Conversion to BPMN
// ==========================

// GetRetryCount returns the job retry budget for a code.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeUpstreamUnavailable,
		ErrCodeUpstreamBlocked,
		ErrCodeGenerationFailed,
		ErrCodeInteractionRecordFailed:
		return 3

	case ErrCodeUpstreamTimeout:
		return 2

	case ErrCodeGenerationTimeout:
		return 1

	default:
		return 0
	}
}

// ConvertToBPMNError converts a StandardError to a BPMNError.
func ConvertToBPMNError(stdErr *StandardError) *BPMNError {
	retries := GetRetryCount(stdErr.Code)
	if !stdErr.Retryable {
		retries = 0
	}

	return &BPMNError{
		Code:      string(stdErr.Code),
		Message:   stdErr.Message,
		Details:   stdErr.Details,
		Retryable: stdErr.Retryable,
		Retries:   retries,
		ErrorVariables: map[string]interface{}{
			"originalErrorCode": string(stdErr.Code),
			"timestamp":         stdErr.Timestamp.Format(time.RFC3339),
		},
	}
}

// ==========================
// 5. Utility Functions
// ==========================

// AsStandard extracts a StandardError from an error chain.
func AsStandard(err error) (*StandardError, bool) {
	var se *StandardError
	if stderrors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// IsRetryable reports whether err carries a retryable StandardError.
// Errors without a code are treated as not retryable.
func IsRetryable(err error) bool {
	if se, ok := AsStandard(err); ok {
		return se.Retryable
	}
	return false
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code ErrorCode) bool {
	se, ok := AsStandard(err)
	return ok && se.Code == code
}

// StatusCode returns the upstream HTTP status recorded on err, or 0.
func StatusCode(err error) int {
	se, ok := AsStandard(err)
	if !ok || se.Metadata == nil {
		return 0
	}
	if code, ok := se.Metadata["statusCode"].(int); ok {
		return code
	}
	return 0
}

// GetErrorCategory returns the category of the error code.
func GetErrorCategory(code ErrorCode) string {
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "UPSTREAM"):
		return "UPSTREAM"
	case strings.HasPrefix(codeStr, "GENERATION"):
		return "GENERATION"
	case strings.HasPrefix(codeStr, "INTERACTION"):
		return "PERSISTENCE"
	case strings.HasPrefix(codeStr, "INVALID"):
		return "VALIDATION"
	default:
		return "OTHER"
	}
}
