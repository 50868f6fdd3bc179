package mailer

import (
	"log/slog"
	"mime"
	"strings"
	"time"

	"golang.org/x/text/encoding/htmlindex"

	"github.com/lattiq/maildispatch/internal/core"
)

// Config holds the mailer configuration. Zero fields take their defaults
// at construction; unknown settings have no representation here.
type Config struct {
	// Charset is the message charset. Empty selects the driver default:
	// "utf-8" for the mail driver, the process charset for swift.
	Charset string

	// ContentType is the body content type without parameters (default: "text/plain").
	ContentType string

	// Headers are default header lines ("Name: value") added to every message.
	Headers []string

	// AdditionalParameters are passed to the Submitter by the mail driver.
	AdditionalParameters string

	// Transport selects the swift driver's transport.
	Transport TransportSource

	// Host is the default SMTP host (default: "localhost").
	Host string

	// Port is the default SMTP port (default: 25).
	Port int

	// Timeout is the default SMTP timeout (default: 30s).
	Timeout time.Duration

	// Encryption is the default SMTP encryption: "", "ssl" or "tls".
	Encryption string

	// DefaultRecipients replace a nil recipient list at swift compose time.
	DefaultRecipients []string

	// Submitter is the mail driver's submission primitive (default: SendmailSubmitter).
	Submitter Submitter

	// CharsetSource supplies the process charset for the swift driver.
	CharsetSource CharsetSource

	// Logger receives diagnostic output (default: slog.Default()).
	Logger *slog.Logger
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ContentType: "text/plain",
		Host:        "localhost",
		Port:        25,
		Timeout:     30 * time.Second,
	}
}

// withDefaults fills zero fields from DefaultConfig.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ContentType == "" {
		c.ContentType = d.ContentType
	}
	if c.Host == "" {
		c.Host = d.Host
	}
	if c.Port == 0 {
		c.Port = d.Port
	}
	if c.Timeout == 0 {
		c.Timeout = d.Timeout
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Charset != "" {
		if _, err := htmlindex.Get(c.Charset); err != nil {
			return &ValidationError{
				Field:   "charset",
				Message: "unknown charset",
				Value:   c.Charset,
			}
		}
	}

	if c.ContentType != "" {
		mediaType, params, err := mime.ParseMediaType(c.ContentType)
		if err != nil || len(params) > 0 || !strings.Contains(mediaType, "/") {
			return &ValidationError{
				Field:   "content_type",
				Message: "content type must be a bare media type such as text/plain",
				Value:   c.ContentType,
			}
		}
	}

	if c.Port < 0 || c.Port > 65535 {
		return transportSettingError("port", "port must be between 1 and 65535", c.Port)
	}

	if c.Timeout < 0 {
		return transportSettingError("timeout", "timeout must not be negative", c.Timeout)
	}

	switch strings.ToLower(c.Encryption) {
	case "", "ssl", "tls":
	default:
		return transportSettingError("encryption", "encryption must be empty, ssl or tls", c.Encryption)
	}

	if _, err := c.parsedHeaders(); err != nil {
		return err
	}

	for _, rcpt := range c.DefaultRecipients {
		if strings.TrimSpace(rcpt) == "" {
			return &ValidationError{
				Field:   "default_recipients",
				Message: "recipient must not be empty",
			}
		}
	}

	return nil
}

// transportSettingError classifies a bad SMTP default the way the resolver
// classifies the same value in SMTPParams: a transport configuration error
// wrapping a ValidationError, so both kinds match.
func transportSettingError(field, message string, value any) error {
	return core.WrapError(core.CodeTransportConfig, "transport configuration: %v",
		core.NewValidationErrorWithValue(field, message, value))
}

func (c *Config) parsedHeaders() ([]Header, error) {
	headers := make([]Header, 0, len(c.Headers))
	for _, line := range c.Headers {
		h, err := ParseHeader(line)
		if err != nil {
			return nil, err
		}
		headers = append(headers, h)
	}
	return headers, nil
}
