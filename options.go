package mailer

import (
	"log/slog"
	"time"
)

// Option is a functional option for configuring a mailer.
type Option func(*Config)

// WithCharset sets the message charset.
func WithCharset(charset string) Option {
	return func(c *Config) {
		c.Charset = charset
	}
}

// WithContentType sets the body content type.
func WithContentType(contentType string) Option {
	return func(c *Config) {
		c.ContentType = contentType
	}
}

// WithHeaders appends default header lines of the form "Name: value".
func WithHeaders(lines ...string) Option {
	return func(c *Config) {
		c.Headers = append(c.Headers, lines...)
	}
}

// WithAdditionalParameters sets the parameters passed to the Submitter.
func WithAdditionalParameters(params string) Option {
	return func(c *Config) {
		c.AdditionalParameters = params
	}
}

// WithTransport uses an already constructed transport verbatim.
func WithTransport(t Transport) Option {
	return func(c *Config) {
		c.Transport = Prebuilt{Transport: t}
	}
}

// WithCommand sets the local submission command for the simple and sendmail protocols.
func WithCommand(command string) Option {
	return func(c *Config) {
		c.Transport = CommandParams{Command: command}
	}
}

// WithSMTP sets the SMTP host and port for the smtp and postfix protocols.
func WithSMTP(host string, port int) Option {
	return func(c *Config) {
		params := smtpParams(c)
		params.Host = host
		params.Port = port
		c.Transport = params
	}
}

// WithSMTPAuth sets the SMTP PLAIN credentials.
func WithSMTPAuth(username, password string) Option {
	return func(c *Config) {
		params := smtpParams(c)
		params.Username = username
		params.Password = password
		c.Transport = params
	}
}

// WithEncryption sets the default SMTP encryption ("", "ssl" or "tls").
func WithEncryption(encryption string) Option {
	return func(c *Config) {
		c.Encryption = encryption
	}
}

// WithTimeout sets the default SMTP timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

// WithDefaultRecipients sets the recipients used when a draft has none.
func WithDefaultRecipients(recipients ...string) Option {
	return func(c *Config) {
		c.DefaultRecipients = append([]string(nil), recipients...)
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithSubmitter sets the mail driver's submission primitive.
func WithSubmitter(s Submitter) Option {
	return func(c *Config) {
		c.Submitter = s
	}
}

// WithCharsetSource sets the process charset source.
func WithCharsetSource(src CharsetSource) Option {
	return func(c *Config) {
		c.CharsetSource = src
	}
}

func smtpParams(c *Config) SMTPParams {
	switch p := c.Transport.(type) {
	case SMTPParams:
		return p
	case *SMTPParams:
		if p != nil {
			return *p
		}
	}
	return SMTPParams{}
}
