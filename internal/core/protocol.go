package core

import (
	"strings"
	"time"
)

// Protocol is the transport sub-mode of the swift driver.
type Protocol string

const (
	// ProtocolSimple submits through a local command.
	ProtocolSimple Protocol = "simple"

	// ProtocolSMTP relays over SMTP.
	ProtocolSMTP Protocol = "smtp"

	// ProtocolSendmail submits through a sendmail-compatible binary.
	ProtocolSendmail Protocol = "sendmail"

	// ProtocolPostfix relays over SMTP to a postfix-style relay.
	ProtocolPostfix Protocol = "postfix"

	// protocolMail is the historical name of ProtocolSimple.
	protocolMail Protocol = "mail"
)

// Normalize lower-cases and trims the protocol, mapping "" and "mail" to ProtocolSimple.
func (p Protocol) Normalize() Protocol {
	n := Protocol(strings.ToLower(strings.TrimSpace(string(p))))
	if n == "" || n == protocolMail {
		return ProtocolSimple
	}
	return n
}

// String returns the string representation of the protocol.
func (p Protocol) String() string {
	return string(p)
}

// Valid checks if the protocol is supported.
func (p Protocol) Valid() bool {
	switch p.Normalize() {
	case ProtocolSimple, ProtocolSMTP, ProtocolSendmail, ProtocolPostfix:
		return true
	default:
		return false
	}
}

// TransportSource selects how the active transport is obtained.
// It is one of Prebuilt, CommandParams or SMTPParams.
type TransportSource interface {
	transportSource()
}

// Prebuilt supplies an already constructed transport. It is used verbatim.
type Prebuilt struct {
	Transport Transport
}

// CommandParams configures the simple and sendmail protocols.
type CommandParams struct {
	// Command is the local submission command line; "" selects the default sendmail path.
	Command string
}

// SMTPParams configures the smtp and postfix protocols. Zero fields fall back to defaults.
type SMTPParams struct {
	Host       string
	Port       int
	Encryption string
	Timeout    time.Duration
	Username   string
	Password   string
}

func (Prebuilt) transportSource()      {}
func (CommandParams) transportSource() {}
func (SMTPParams) transportSource()    {}
