package mailer

import (
	"errors"
	"fmt"

	"github.com/lattiq/maildispatch/internal/core"
)

// Sentinel error kinds. Use errors.Is to classify any error returned by the package.
var (
	ErrUnknownDriver        = core.ErrUnknownDriver
	ErrUnsupportedProtocol  = core.ErrUnsupportedProtocol
	ErrTransportConfig      = core.ErrTransportConfig
	ErrInvalidMessage       = core.ErrInvalidMessage
	ErrDispatch             = core.ErrDispatch
	ErrCompose              = core.ErrCompose
	ErrInvalidConfiguration = core.ErrInvalidConfiguration

	// ErrTemplateNotFound indicates a requested template was not found.
	ErrTemplateNotFound = errors.New("template not found")
)

// Error codes.
const (
	CodeUnknownDriver          = core.CodeUnknownDriver
	CodeUnknownSingletonDriver = core.CodeUnknownSingletonDriver
	CodeTransportConfig        = core.CodeTransportConfig
	CodeUnsupportedProtocol    = core.CodeUnsupportedProtocol
	CodeDispatch               = core.CodeDispatch
	CodeInvalidRichMessage     = core.CodeInvalidRichMessage
	CodeCompose                = core.CodeCompose
	CodeInvalidSimpleMessage   = core.CodeInvalidSimpleMessage
)

// CodeOf returns the code of the first *Error in err's chain, or 0.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return 0
}

// TemplateError represents an error in template processing.
type TemplateError struct {
	// Template is the name of the template that caused the error.
	Template string

	// Operation is the operation that failed (e.g., "parse", "render").
	Operation string

	// Message is the error message.
	Message string

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *TemplateError) Error() string {
	return fmt.Sprintf("template error in %s during %s: %s", e.Template, e.Operation, e.Message)
}

// Unwrap returns the underlying error.
func (e *TemplateError) Unwrap() error {
	return e.Cause
}

// NewTemplateError creates a new template error.
func NewTemplateError(template, operation, message string, cause error) *TemplateError {
	return &TemplateError{
		Template:  template,
		Operation: operation,
		Message:   message,
		Cause:     cause,
	}
}
