// Package transport selects and constructs the delivery transport of a mailer.
package transport

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/lattiq/maildispatch/internal/core"
	"github.com/lattiq/maildispatch/internal/transport/sendmail"
	"github.com/lattiq/maildispatch/internal/transport/smtp"
)

// Defaults fills the SMTP fields a source leaves at their zero value.
type Defaults struct {
	Host       string
	Port       int
	Timeout    time.Duration
	Encryption string
	Logger     *slog.Logger
}

// Resolve returns the transport for protocol built from src.
// A Prebuilt source is returned unchanged whatever the protocol.
func Resolve(protocol core.Protocol, src core.TransportSource, d Defaults) (core.Transport, error) {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if pb, ok := src.(core.Prebuilt); ok && pb.Transport != nil {
		logger.Debug("using prebuilt transport", "transport", pb.Transport.Name())
		return pb.Transport, nil
	}

	var (
		t   core.Transport
		err error
	)
	p := protocol.Normalize()
	if !p.Valid() {
		return nil, core.NewError(core.CodeUnsupportedProtocol, fmt.Sprintf("unsupported protocol %q", string(protocol)))
	}
	switch p {
	case core.ProtocolSimple, core.ProtocolSendmail:
		t, err = resolveCommand(src)
	default:
		t, err = resolveSMTP(src, d)
	}
	if err != nil {
		return nil, core.WrapError(core.CodeTransportConfig, "transport configuration: %v", err)
	}

	logger.Debug("resolved transport", "protocol", p.String(), "transport", t.Name())
	return t, nil
}

func resolveCommand(src core.TransportSource) (core.Transport, error) {
	var command string
	switch s := src.(type) {
	case nil, core.Prebuilt:
	case core.CommandParams:
		command = s.Command
	case *core.CommandParams:
		if s != nil {
			command = s.Command
		}
	default:
		return nil, core.NewValidationErrorWithValue("transport", "command protocols take a command string", fmt.Sprintf("%T", src))
	}

	return sendmail.New(command)
}

func resolveSMTP(src core.TransportSource, d Defaults) (core.Transport, error) {
	var params core.SMTPParams
	switch s := src.(type) {
	case nil, core.Prebuilt:
	case core.SMTPParams:
		params = s
	case *core.SMTPParams:
		if s != nil {
			params = *s
		}
	default:
		return nil, core.NewValidationErrorWithValue("transport", "smtp protocols take host parameters", fmt.Sprintf("%T", src))
	}

	host := params.Host
	if host == "" {
		host = d.Host
	}
	port := params.Port
	if port == 0 {
		port = d.Port
	}
	encryption := params.Encryption
	if encryption == "" {
		encryption = d.Encryption
	}

	t, err := smtp.New(host, port, encryption)
	if err != nil {
		return nil, err
	}

	timeout := params.Timeout
	if timeout == 0 {
		timeout = d.Timeout
	}
	t.SetTimeout(timeout)

	if params.Username != "" {
		t.SetUsername(params.Username)
	}
	if params.Password != "" {
		t.SetPassword(params.Password)
	}

	return t, nil
}
