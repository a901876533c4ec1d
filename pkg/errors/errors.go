package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// Error codes
const (
	CodeValidation  = "VALIDATION_ERROR"
	CodeCache       = "CACHE_ERROR"
	CodeExtraction  = "EXTRACTION_ERROR"
	CodeEmptyResult = "EMPTY_RESULT"
)

type AppError struct {
	Message    string
	Code       string
	StatusCode int
	Context    map[string]any
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func (e *AppError) appError() *AppError {
	return e
}

type ValidationError struct {
	*AppError
	Field string
	Value interface{}
}

func NewValidationError(message, field string, value interface{}) *ValidationError {
	return &ValidationError{
		AppError: &AppError{
			Message:    message,
			Code:       CodeValidation,
			StatusCode: http.StatusBadRequest,
			Context: map[string]any{
				"field": field,
				"value": value,
			},
		},
		Field: field,
		Value: value,
	}
}

// CacheError reports a store read or write that the backend rejected.
type CacheError struct {
	*AppError
	Operation string
	Key       string
}

func NewCacheError(message, operation, key string, cause error) *CacheError {
	return &CacheError{
		AppError: &AppError{
			Message:    message,
			Code:       CodeCache,
			StatusCode: http.StatusInternalServerError,
			Context: map[string]any{
				"operation": operation,
				"key":       key,
			},
			Cause: cause,
		},
		Operation: operation,
		Key:       key,
	}
}

// ExtractionCause classifies why rendering or parsing a source page failed.
type ExtractionCause string

const (
	CauseTimeout     ExtractionCause = "timeout"
	CauseNavigation  ExtractionCause = "navigation"
	CauseRender      ExtractionCause = "render"
	CauseParse       ExtractionCause = "parse"
	CauseCircuitOpen ExtractionCause = "circuit-open"
)

// ExtractionError is returned when the page extractor could not produce a result.
type ExtractionError struct {
	*AppError
	URL    string
	Reason ExtractionCause
}

func NewExtractionError(url string, reason ExtractionCause, cause error) *ExtractionError {
	return &ExtractionError{
		AppError: &AppError{
			Message:    fmt.Sprintf("extraction failed (%s)", reason),
			Code:       CodeExtraction,
			StatusCode: http.StatusBadGateway,
			Context: map[string]any{
				"url":    url,
				"reason": string(reason),
			},
			Cause: cause,
		},
		URL:    url,
		Reason: reason,
	}
}

// EmptyResultError means extraction worked but the role or hero matched nothing.
type EmptyResultError struct {
	*AppError
	Namespace string
	ID        string
}

func NewEmptyResultError(message, namespace, id string) *EmptyResultError {
	return &EmptyResultError{
		AppError: &AppError{
			Message:    message,
			Code:       CodeEmptyResult,
			StatusCode: http.StatusNotFound,
			Context: map[string]any{
				"namespace": namespace,
				"id":        id,
			},
		},
		Namespace: namespace,
		ID:        id,
	}
}

func IsEmptyResult(err error) bool {
	var target *EmptyResultError
	return stderrors.As(err, &target)
}

func IsExtraction(err error) bool {
	var target *ExtractionError
	return stderrors.As(err, &target)
}

func IsCache(err error) bool {
	var target *CacheError
	return stderrors.As(err, &target)
}

// AsAppError returns the AppError behind the first typed error in the chain.
func AsAppError(err error) (*AppError, bool) {
	var carrier interface{ appError() *AppError }
	if stderrors.As(err, &carrier) {
		return carrier.appError(), true
	}
	return nil, false
}

// StatusCode returns the HTTP status carried by the first typed error in the chain,
// or 500 when there is none.
func StatusCode(err error) int {
	if app, ok := AsAppError(err); ok && app.StatusCode != 0 {
		return app.StatusCode
	}
	return http.StatusInternalServerError
}
