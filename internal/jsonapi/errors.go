package jsonapi

import (
	"errors"
	"fmt"
)

// ValidationError reports a payload that cannot be ingested.
//
// Validation errors are terminal for the call that produced them and are
// never swallowed by the normalizer.
type ValidationError struct {
	// Code identifies the error category.
	Code ValidationErrorCode

	// Field is the path of the offending member, e.g. "id" or
	// "relationships.author.data.type".
	Field string

	// Message is a human-readable description naming the missing field.
	Message string

	// Index is the position of the resource in the flattened batch
	// (primary resources first, then included). -1 when not applicable.
	Index int
}

// ValidationErrorCode categorizes validation errors.
type ValidationErrorCode string

const (
	// ErrCodeMissingType indicates a resource without a type.
	ErrCodeMissingType ValidationErrorCode = "MISSING_TYPE"

	// ErrCodeMissingID indicates a resource without an id.
	ErrCodeMissingID ValidationErrorCode = "MISSING_ID"

	// ErrCodeInvalidPayload indicates input that is not a JSON:API shape
	// accepted by the operation.
	ErrCodeInvalidPayload ValidationErrorCode = "INVALID_PAYLOAD"

	// ErrCodeInvalidMeta indicates a whole-meta replacement with a value
	// that is not an object.
	ErrCodeInvalidMeta ValidationErrorCode = "INVALID_META"
)

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("%s: %s (resource %d)", e.Code, e.Message, e.Index)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewMissingTypeError creates a ValidationError for a resource without a type.
func NewMissingTypeError(field string, index int) *ValidationError {
	return &ValidationError{
		Code:    ErrCodeMissingType,
		Field:   field,
		Message: fmt.Sprintf("resource is missing %q", field),
		Index:   index,
	}
}

// NewMissingIDError creates a ValidationError for a resource without an id.
func NewMissingIDError(field string, index int) *ValidationError {
	return &ValidationError{
		Code:    ErrCodeMissingID,
		Field:   field,
		Message: fmt.Sprintf("resource is missing %q", field),
		Index:   index,
	}
}

// NewInvalidPayloadError creates a ValidationError for a malformed payload.
func NewInvalidPayloadError(field, format string, args ...any) *ValidationError {
	return &ValidationError{
		Code:    ErrCodeInvalidPayload,
		Field:   field,
		Message: fmt.Sprintf(format, args...),
		Index:   -1,
	}
}

// NewInvalidMetaError creates a ValidationError for a bad meta replacement.
func NewInvalidMetaError(got any) *ValidationError {
	return &ValidationError{
		Code:    ErrCodeInvalidMeta,
		Field:   "meta",
		Message: fmt.Sprintf("replacing meta requires an object, got %T", got),
		Index:   -1,
	}
}

// IsValidationError reports whether err is (or wraps) a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsMissingType reports whether err is a MISSING_TYPE validation error.
// Uses errors.As to handle wrapped errors.
func IsMissingType(err error) bool {
	return hasCode(err, ErrCodeMissingType)
}

// IsMissingID reports whether err is a MISSING_ID validation error.
// Uses errors.As to handle wrapped errors.
func IsMissingID(err error) bool {
	return hasCode(err, ErrCodeMissingID)
}

func hasCode(err error, code ValidationErrorCode) bool {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve.Code == code
	}
	return false
}
