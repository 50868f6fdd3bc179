package mailer

import (
	"context"

	"github.com/lattiq/maildispatch/internal/core"
)

// Type aliases to re-export core types for the public API.
type (
	Transport        = core.Transport
	TransportSource  = core.TransportSource
	Prebuilt         = core.Prebuilt
	CommandParams    = core.CommandParams
	SMTPParams       = core.SMTPParams
	Protocol         = core.Protocol
	Priority         = core.Priority
	Header           = core.Header
	RichMessage      = core.RichMessage
	DispatchResult   = core.Result
	ProviderSettings = core.ProviderSettings
	Error            = core.Error
	Code             = core.Code
	ValidationError  = core.ValidationError
	ProviderError    = core.ProviderError
)

// Protocol constants
const (
	ProtocolSimple   = core.ProtocolSimple
	ProtocolSMTP     = core.ProtocolSMTP
	ProtocolSendmail = core.ProtocolSendmail
	ProtocolPostfix  = core.ProtocolPostfix
)

// Priority constants
const (
	PriorityHighest = core.PriorityHighest
	PriorityHigh    = core.PriorityHigh
	PriorityNormal  = core.PriorityNormal
	PriorityLow     = core.PriorityLow
	PriorityLowest  = core.PriorityLowest
)

// ParseHeader parses a "Name: value" header line.
var ParseHeader = core.ParseHeader

// Public interfaces for the mailer library
type (
	// Mailer composes messages and dispatches them through one transport
	// resolved at construction. A Mailer is not reconfigurable.
	Mailer interface {
		// Compose builds a message from the draft. It never sends and
		// never reads the clock.
		Compose(d Draft) (Message, error)

		// Dispatch sends a message composed by the same driver kind.
		// Per-recipient failures are reported in the result, not as an error.
		Dispatch(ctx context.Context, msg Message) (DispatchResult, error)

		// Driver returns the driver this mailer implements.
		Driver() Driver
	}

	// Message is a composed, immutable message. Accessors return copies.
	Message interface {
		Subject() string
		Body() string
		To() []string
		From() string
		Priority() Priority
		Headers() []Header
	}

	// Submitter is the local mail-submission primitive used by the mail driver.
	// It is invoked once per recipient with the rendered header block.
	Submitter interface {
		Submit(ctx context.Context, recipient, subject, body, headers, params string) error
	}

	// CharsetSource supplies the process-wide default charset.
	CharsetSource interface {
		DefaultCharset() string
	}

	// TemplateEngine defines the interface for template rendering.
	TemplateEngine interface {
		// Render renders a template with the provided data.
		Render(templateName string, data interface{}) (string, error)

		// RegisterTemplate registers a template with the given name and content.
		RegisterTemplate(name string, content string) error

		// LoadTemplatesFromDir loads all templates from the specified directory.
		// Templates follow the naming convention <name>.<type><ext>
		// where type is 'subject', 'html', or 'text'.
		LoadTemplatesFromDir(dir string) error
	}
)

// Draft is the input to Compose.
type Draft struct {
	Body    string
	Subject string

	// To is the ordered recipient list. A nil list lets the swift driver
	// substitute its configured default recipients.
	To []string

	// From is optional; the transport default applies when empty.
	From string

	// Priority defaults to PriorityNormal.
	Priority Priority

	// Headers are appended after the synthesized and configured headers.
	Headers []Header
}

// SubmitterFunc adapts a function to the Submitter interface.
type SubmitterFunc func(ctx context.Context, recipient, subject, body, headers, params string) error

// Submit calls f.
func (f SubmitterFunc) Submit(ctx context.Context, recipient, subject, body, headers, params string) error {
	return f(ctx, recipient, subject, body, headers, params)
}

// CharsetFunc adapts a function to the CharsetSource interface.
type CharsetFunc func() string

// DefaultCharset calls f.
func (f CharsetFunc) DefaultCharset() string {
	return f()
}
