package core

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. Every *Error matches exactly one of them via errors.Is.
var (
	// ErrUnknownDriver indicates the factory has no mailer registered for a driver name.
	ErrUnknownDriver = errors.New("unknown driver")

	// ErrUnsupportedProtocol indicates the resolver was given an unrecognized protocol.
	ErrUnsupportedProtocol = errors.New("unsupported protocol")

	// ErrTransportConfig indicates the underlying transport could not be constructed.
	ErrTransportConfig = errors.New("transport configuration error")

	// ErrInvalidMessage indicates a message of the wrong kind was passed to Dispatch.
	ErrInvalidMessage = errors.New("invalid message")

	// ErrDispatch indicates the underlying send operation failed at the transport level.
	ErrDispatch = errors.New("dispatch error")

	// ErrCompose indicates the message library rejected a composed value.
	ErrCompose = errors.New("compose error")

	// ErrInvalidConfiguration indicates invalid mailer options.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// Code is a stable numeric error identifier.
type Code int

const (
	CodeUnknownDriver          Code = 1120101
	CodeUnknownSingletonDriver Code = 1120201
	CodeTransportConfig        Code = 1130301
	CodeUnsupportedProtocol    Code = 1130302
	CodeDispatch               Code = 1130501
	CodeInvalidRichMessage     Code = 1130502
	CodeCompose                Code = 1130601
	CodeInvalidSimpleMessage   Code = 1230301
)

// Kind returns the sentinel error this code belongs to.
func (c Code) Kind() error {
	switch c {
	case CodeUnknownDriver, CodeUnknownSingletonDriver:
		return ErrUnknownDriver
	case CodeTransportConfig:
		return ErrTransportConfig
	case CodeUnsupportedProtocol:
		return ErrUnsupportedProtocol
	case CodeDispatch:
		return ErrDispatch
	case CodeInvalidRichMessage, CodeInvalidSimpleMessage:
		return ErrInvalidMessage
	case CodeCompose:
		return ErrCompose
	default:
		return nil
	}
}

// Error is the error type returned by factories, resolvers and mailers.
type Error struct {
	// Code is the stable numeric identifier.
	Code Code

	// Message is the human-readable message.
	Message string

	// Cause is the underlying error, if any.
	Cause error
}

// NewError creates a new error with the given code and message.
func NewError(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError creates a new error with the given code carrying cause's message.
func WrapError(code Code, format string, cause error) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, cause), Cause: cause}
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("mailer error %d: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is the sentinel kind of this error's code.
func (e *Error) Is(target error) bool {
	kind := e.Code.Kind()
	return kind != nil && kind == target
}

// ValidationError represents a validation error with specific field information.
type ValidationError struct {
	// Field is the name of the field that failed validation.
	Field string

	// Message is the validation error message.
	Message string

	// Value is the invalid value (optional).
	Value interface{}
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("validation error in %s: %s (value: %v)", e.Field, e.Message, e.Value)
	}
	return fmt.Sprintf("validation error in %s: %s", e.Field, e.Message)
}

// Is implements error matching for errors.Is.
func (e *ValidationError) Is(target error) bool {
	if target == ErrInvalidConfiguration {
		return true
	}
	_, ok := target.(*ValidationError)
	return ok
}

// ProviderError represents an error from a transport or API provider.
type ProviderError struct {
	// Provider is the name of the provider that generated the error.
	Provider string

	// Code is the provider-specific error code.
	Code string

	// Message is the error message from the provider.
	Message string

	// StatusCode is the SMTP reply code or HTTP status code, when known.
	StatusCode int

	// Cause is the underlying error that caused this provider error.
	Cause error
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider %s error [%s] (status: %d): %s",
			e.Provider, e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("provider %s error [%s]: %s", e.Provider, e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// Is implements error matching for errors.Is.
func (e *ProviderError) Is(target error) bool {
	pe, ok := target.(*ProviderError)
	if !ok {
		return false
	}
	return e.Provider == pe.Provider && e.Code == pe.Code
}

// NewProviderError creates a new provider error.
func NewProviderError(provider, code, message string) *ProviderError {
	return &ProviderError{
		Provider: provider,
		Code:     code,
		Message:  message,
	}
}

// WrapProviderError creates a new provider error wrapping cause.
func WrapProviderError(provider, code string, statusCode int, cause error) *ProviderError {
	return &ProviderError{
		Provider:   provider,
		Code:       code,
		Message:    cause.Error(),
		StatusCode: statusCode,
		Cause:      cause,
	}
}

// NewValidationError creates a new validation error.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// NewValidationErrorWithValue creates a new validation error with a value.
func NewValidationErrorWithValue(field, message string, value interface{}) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
		Value:   value,
	}
}
