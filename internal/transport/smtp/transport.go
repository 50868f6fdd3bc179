package smtp

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"

	"github.com/lattiq/maildispatch/internal/core"
)

// Encryption modes understood by the transport.
const (
	// EncryptionNone sends in plain text.
	EncryptionNone = ""

	// EncryptionSSL uses implicit TLS from the first byte.
	EncryptionSSL = "ssl"

	// EncryptionTLS upgrades a plain connection with STARTTLS.
	EncryptionTLS = "tls"
)

// localName is announced in EHLO.
const localName = "localhost"

// Transport implements core.Transport over SMTP.
// It issues one RCPT per recipient, collects the rejected ones and sends
// the message data once if at least one recipient was accepted.
type Transport struct {
	host       string
	port       int
	encryption string
	timeout    time.Duration
	username   string
	password   string
	tlsConfig  *tls.Config
}

// New creates a new SMTP transport.
func New(host string, port int, encryption string) (*Transport, error) {
	host = strings.TrimSpace(host)
	if host == "" {
		return nil, core.NewValidationError("host", "SMTP host is required")
	}

	if port <= 0 || port > 65535 {
		return nil, core.NewValidationErrorWithValue("port", "invalid port number", port)
	}

	encryption = strings.ToLower(strings.TrimSpace(encryption))
	switch encryption {
	case EncryptionNone, EncryptionSSL, EncryptionTLS:
	default:
		return nil, core.NewValidationErrorWithValue("encryption", "unsupported encryption", encryption)
	}

	return &Transport{
		host:       host,
		port:       port,
		encryption: encryption,
		tlsConfig: &tls.Config{
			ServerName: host,
			MinVersion: tls.VersionTLS12,
		},
	}, nil
}

// SetTimeout sets the dial and per-command timeout. Zero disables it.
func (t *Transport) SetTimeout(timeout time.Duration) {
	t.timeout = timeout
}

// SetUsername sets the PLAIN authentication username.
func (t *Transport) SetUsername(username string) {
	t.username = username
}

// SetPassword sets the PLAIN authentication password.
func (t *Transport) SetPassword(password string) {
	t.password = password
}

// Host returns the configured host.
func (t *Transport) Host() string { return t.host }

// Port returns the configured port.
func (t *Transport) Port() int { return t.port }

// Encryption returns the configured encryption mode.
func (t *Transport) Encryption() string { return t.encryption }

// Timeout returns the configured timeout.
func (t *Transport) Timeout() time.Duration { return t.timeout }

// Username returns the configured username.
func (t *Transport) Username() string { return t.username }

// Send delivers the message to every recipient in one SMTP transaction.
func (t *Transport) Send(ctx context.Context, msg *core.RichMessage) (core.Result, error) {
	from, err := msg.Msg().GetSender(false)
	if err != nil {
		return core.Result{}, core.WrapProviderError(t.Name(), "no_sender", 0, err)
	}

	rcpts, err := msg.Msg().GetRecipients()
	if err != nil {
		return core.Result{}, core.WrapProviderError(t.Name(), "no_recipients", 0, err)
	}

	client, err := t.dial(ctx)
	if err != nil {
		return core.Result{}, core.WrapProviderError(t.Name(), "connect_error", 0, err)
	}
	defer client.Close()

	if err := client.Hello(localName); err != nil {
		return core.Result{}, t.replyError("hello_error", err)
	}

	if t.username != "" {
		auth := sasl.NewPlainClient("", t.username, t.password)
		if err := client.Auth(auth); err != nil {
			return core.Result{}, t.replyError("auth_error", err)
		}
	}

	if err := client.Mail(from, nil); err != nil {
		return core.Result{}, t.replyError("mail_from_error", err)
	}

	var result core.Result
	for _, rcpt := range rcpts {
		if err := client.Rcpt(rcpt, nil); err != nil {
			var smtpErr *smtp.SMTPError
			if !errors.As(err, &smtpErr) {
				return core.Result{}, t.replyError("rcpt_error", err)
			}
			result.Failed = append(result.Failed, rcpt)
			continue
		}
		result.Sent++
	}

	if result.Sent == 0 {
		_ = client.Reset()
		_ = client.Quit()
		return result, nil
	}

	w, err := client.Data()
	if err != nil {
		return core.Result{}, t.replyError("data_error", err)
	}
	if _, err := msg.WriteTo(w); err != nil {
		_ = w.Close()
		return core.Result{}, core.WrapProviderError(t.Name(), "write_error", 0, err)
	}
	if err := w.Close(); err != nil {
		return core.Result{}, t.replyError("data_error", err)
	}

	_ = client.Quit()

	return result, nil
}

// Name returns the transport name.
func (t *Transport) Name() string {
	return "smtp"
}

func (t *Transport) addr() string {
	return net.JoinHostPort(t.host, strconv.Itoa(t.port))
}

func (t *Transport) dial(ctx context.Context) (*smtp.Client, error) {
	dialer := &net.Dialer{Timeout: t.timeout}

	var (
		client *smtp.Client
		conn   net.Conn
		err    error
	)
	switch t.encryption {
	case EncryptionSSL:
		tlsDialer := &tls.Dialer{NetDialer: dialer, Config: t.tlsConfig}
		if conn, err = tlsDialer.DialContext(ctx, "tcp", t.addr()); err != nil {
			return nil, err
		}
		client = smtp.NewClient(conn)
	case EncryptionTLS:
		if conn, err = dialer.DialContext(ctx, "tcp", t.addr()); err != nil {
			return nil, err
		}
		if client, err = smtp.NewClientStartTLS(conn, t.tlsConfig); err != nil {
			_ = conn.Close()
			return nil, err
		}
	default:
		if conn, err = dialer.DialContext(ctx, "tcp", t.addr()); err != nil {
			return nil, err
		}
		client = smtp.NewClient(conn)
	}

	if t.timeout > 0 {
		client.CommandTimeout = t.timeout
		client.SubmissionTimeout = t.timeout
	}

	return client, nil
}

func (t *Transport) replyError(code string, err error) *core.ProviderError {
	var smtpErr *smtp.SMTPError
	if errors.As(err, &smtpErr) {
		return core.WrapProviderError(t.Name(), code, smtpErr.Code, err)
	}
	return core.WrapProviderError(t.Name(), code, 0, err)
}
