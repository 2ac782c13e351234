package errors

import (
	"errors"
	"fmt"
)

// FieldErrorKind classifies a user-input validation failure.
type FieldErrorKind string

const (
	// KindRequiredFieldMissing means the field was empty or whitespace-only.
	KindRequiredFieldMissing FieldErrorKind = "required_field_missing"
	// KindInvalidFormat means the field had content of the wrong shape.
	KindInvalidFormat FieldErrorKind = "invalid_format"
)

// FieldError is a validation failure for one named form field.
type FieldError struct {
	Field   string
	Kind    FieldErrorKind
	Message string
}

// Error implements the error interface.
func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Is matches another FieldError with the same field and kind.
func (e *FieldError) Is(target error) bool {
	var t *FieldError
	if errors.As(target, &t) {
		return e.Field == t.Field && e.Kind == t.Kind
	}

	return false
}

// RequiredFieldMissing builds the error reported for an empty field.
func RequiredFieldMissing(field, message string) *FieldError {
	return &FieldError{Field: field, Kind: KindRequiredFieldMissing, Message: message}
}

// InvalidFormat builds the error reported for a malformed field.
func InvalidFormat(field, message string) *FieldError {
	return &FieldError{Field: field, Kind: KindInvalidFormat, Message: message}
}

// AsFieldError extracts a FieldError from err.
func AsFieldError(err error) (*FieldError, bool) {
	var fe *FieldError
	if errors.As(err, &fe) {
		return fe, true
	}

	return nil, false
}
