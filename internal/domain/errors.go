package domain

import "fmt"

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{Code: code, Message: message, Err: err}
}

// Common domain error codes
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeInternalError = "INTERNAL_ERROR"
	ErrCodeProvider      = "PROVIDER_ERROR"
	ErrCodeEvaluation    = "EVALUATION_ERROR"
)

// Not found errors
var (
	ErrUploadNotFound        = NewDomainError(ErrCodeNotFound, "uploaded document not found")
	ErrEvaluationJobNotFound = NewDomainError(ErrCodeNotFound, "evaluation job not found")
)

// ProviderErrorKind classifies a provider failure.
type ProviderErrorKind string

const (
	ProviderErrorTimeout   ProviderErrorKind = "timeout"
	ProviderErrorRateLimit ProviderErrorKind = "rate_limit"
	ProviderErrorAuth      ProviderErrorKind = "auth"
	ProviderErrorNetwork   ProviderErrorKind = "network"
	ProviderErrorResponse  ProviderErrorKind = "bad_response"
)

// ProviderError is a failure from an external model provider (embedding or
// generation). Transient kinds are retried with bounded backoff before being
// surfaced; the rest surface immediately.
type ProviderError struct {
	Op       string // "embed" or "generate"
	Kind     ProviderErrorKind
	Attempts int
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("provider %s failed (%s, %d attempts): %v", e.Op, e.Kind, e.Attempts, e.Err)
	}
	return fmt.Sprintf("provider %s failed (%s, %d attempts)", e.Op, e.Kind, e.Attempts)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Transient reports whether the failure is worth retrying.
func (e *ProviderError) Transient() bool {
	switch e.Kind {
	case ProviderErrorTimeout, ProviderErrorRateLimit, ProviderErrorNetwork:
		return true
	}
	return false
}

// Evaluation failure reasons
const (
	EvaluationReasonUnparseableOutput = "unparseable_model_output"
	EvaluationReasonMissingDocument   = "missing_document"
)

// EvaluationError is a structural failure of the evaluation pipeline. The raw
// model output is retained so callers can diagnose what the model produced.
type EvaluationError struct {
	Reason         string
	RawModelOutput string
	Err            error
}

func (e *EvaluationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("evaluation failed (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("evaluation failed (%s)", e.Reason)
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}

// IngestError is a per-document ingestion failure. It records the stage that
// failed so batch reports can point at the broken step.
type IngestError struct {
	SourceID string
	Stage    string // "extract", "resolve_type", "chunk", "embed", "upsert"
	Err      error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("ingest %s failed at %s: %v", e.SourceID, e.Stage, e.Err)
}

func (e *IngestError) Unwrap() error {
	return e.Err
}
