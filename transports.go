package mailer

import (
	"context"

	"github.com/lattiq/maildispatch/internal/transport/mailgun"
	"github.com/lattiq/maildispatch/internal/transport/sendgrid"
	"github.com/lattiq/maildispatch/internal/transport/sendmail"
	"github.com/lattiq/maildispatch/internal/transport/ses"
	"github.com/lattiq/maildispatch/internal/transport/smtp"
)

// Prebuilt transports. Pass one to WithTransport (or as Prebuilt in
// Config.Transport) to bypass protocol resolution.

// NewSESTransport creates an AWS SES transport.
// Settings: region (required), access_key, secret_key, session_token,
// configuration_set, from.
func NewSESTransport(ctx context.Context, settings ProviderSettings) (Transport, error) {
	t, err := ses.New(ctx, settings)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// NewSendGridTransport creates a SendGrid transport.
// Settings: api_key (required), from.
func NewSendGridTransport(settings ProviderSettings) (Transport, error) {
	t, err := sendgrid.New(settings)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// NewMailgunTransport creates a Mailgun transport.
// Settings: api_key and domain (required), base_url, from.
func NewMailgunTransport(settings ProviderSettings) (Transport, error) {
	t, err := mailgun.New(settings)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// NewSMTPTransport creates an SMTP transport from explicit parameters.
// Zero fields fall back to DefaultConfig values.
func NewSMTPTransport(p SMTPParams) (Transport, error) {
	d := DefaultConfig()
	host, port := p.Host, p.Port
	if host == "" {
		host = d.Host
	}
	if port == 0 {
		port = d.Port
	}

	t, err := smtp.New(host, port, p.Encryption)
	if err != nil {
		return nil, err
	}

	timeout := p.Timeout
	if timeout == 0 {
		timeout = d.Timeout
	}
	t.SetTimeout(timeout)
	t.SetUsername(p.Username)
	t.SetPassword(p.Password)

	return t, nil
}

// NewSendmailTransport creates a transport piping to a sendmail-compatible
// command line. An empty command selects the default sendmail path.
func NewSendmailTransport(command string) (Transport, error) {
	t, err := sendmail.New(command)
	if err != nil {
		return nil, err
	}
	return t, nil
}
