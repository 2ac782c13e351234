// Package errors defines the structured error types used across the contact
// form service.
//
// Two families live here. FormError carries operational failures (bad
// configuration, transport problems, internal faults) with a type, a code and
// a recoverability hint. FieldError carries a single user-input validation
// failure; those are always recovered by showing the message beside the field
// and never leave the form.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorType represents different categories of errors.
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeTransport  ErrorType = "transport"
	ErrorTypeSession    ErrorType = "session"
	ErrorTypeInternal   ErrorType = "internal"
)

// FormError is a structured error type with context.
type FormError struct {
	Type        ErrorType
	Code        string
	Message     string
	Cause       error
	Context     map[string]interface{}
	Component   string
	Recoverable bool
}

// Error implements the error interface.
func (e *FormError) Error() string {
	var parts []string

	if e.Code != "" {
		parts = append(parts, fmt.Sprintf("[%s]", e.Code))
	}

	if e.Component != "" {
		parts = append(parts, "component:"+e.Component)
	}

	parts = append(parts, e.Message)

	result := strings.Join(parts, " ")

	if e.Cause != nil {
		result += fmt.Sprintf(": %v", e.Cause)
	}

	return result
}

// Unwrap returns the underlying cause error.
func (e *FormError) Unwrap() error {
	return e.Cause
}

// Is implements error comparison.
func (e *FormError) Is(target error) bool {
	var t *FormError
	if errors.As(target, &t) {
		return e.Type == t.Type && e.Code == t.Code
	}

	return false
}

// WithContext adds context information to the error.
func (e *FormError) WithContext(key string, value interface{}) *FormError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value

	return e
}

// WithComponent adds component context.
func (e *FormError) WithComponent(component string) *FormError {
	e.Component = component

	return e
}

// NewConfigError creates a configuration error.
func NewConfigError(code, message string) *FormError {
	return &FormError{
		Type:        ErrorTypeConfig,
		Code:        code,
		Message:     message,
		Recoverable: false,
	}
}

// NewTransportError creates an error for a failed HTTP or websocket exchange.
func NewTransportError(code, message string, cause error) *FormError {
	return &FormError{
		Type:        ErrorTypeTransport,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: true,
	}
}

// NewSessionError creates a session lifecycle error.
func NewSessionError(code, message string) *FormError {
	return &FormError{
		Type:        ErrorTypeSession,
		Code:        code,
		Message:     message,
		Recoverable: true,
	}
}

// NewInternalError creates an internal error.
func NewInternalError(code, message string, cause error) *FormError {
	return &FormError{
		Type:        ErrorTypeInternal,
		Code:        code,
		Message:     message,
		Cause:       cause,
		Recoverable: false,
	}
}

// IsRecoverable checks if an error is recoverable.
func IsRecoverable(err error) bool {
	var fe *FieldError
	if errors.As(err, &fe) {
		return true
	}

	var te *FormError
	if errors.As(err, &te) {
		return te.Recoverable
	}

	return false
}

// IsConfigError checks if an error is configuration-related.
func IsConfigError(err error) bool {
	var te *FormError
	if errors.As(err, &te) {
		return te.Type == ErrorTypeConfig
	}

	return false
}

// WrapConfig wraps an error as a configuration error.
func WrapConfig(err error, code, message string) *FormError {
	if err == nil {
		return nil
	}

	return &FormError{
		Type:    ErrorTypeConfig,
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// WrapTransport wraps an error as a transport error.
func WrapTransport(err error, code, message string) *FormError {
	if err == nil {
		return nil
	}

	return NewTransportError(code, message, err)
}

// Common error codes.
const (
	ErrCodeInvalidPort     = "ERR_INVALID_PORT"
	ErrCodeInvalidHost     = "ERR_INVALID_HOST"
	ErrCodeInvalidDuration = "ERR_INVALID_DURATION"
	ErrCodeInvalidLimit    = "ERR_INVALID_LIMIT"
	ErrCodeInvalidLogLevel = "ERR_INVALID_LOG_LEVEL"
	ErrCodeConfigLoad      = "ERR_CONFIG_LOAD"
	ErrCodeOriginRejected  = "ERR_ORIGIN_REJECTED"
	ErrCodeBadMessage      = "ERR_BAD_MESSAGE"
	ErrCodeUnknownField    = "ERR_UNKNOWN_FIELD"
	ErrCodeSessionLimit    = "ERR_SESSION_LIMIT"
	ErrCodeShutdown        = "ERR_SHUTDOWN"
	ErrCodeRender          = "ERR_RENDER"
)
