package transport

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lattiq/maildispatch/internal/core"
	"github.com/lattiq/maildispatch/internal/transport/sendmail"
	"github.com/lattiq/maildispatch/internal/transport/smtp"
)

type stubTransport struct{}

func (stubTransport) Send(context.Context, *core.RichMessage) (core.Result, error) {
	return core.Result{}, nil
}

func (stubTransport) Name() string { return "stub" }

var defaults = Defaults{Host: "localhost", Port: 25, Timeout: 30 * time.Second}

func TestResolvePrebuiltIsVerbatim(t *testing.T) {
	stub := stubTransport{}
	for _, p := range []core.Protocol{"smtp", "sendmail", "ftp"} {
		got, err := Resolve(p, core.Prebuilt{Transport: stub}, defaults)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", p, err)
		}
		if got != core.Transport(stub) {
			t.Fatalf("%s: prebuilt transport not returned verbatim", p)
		}
	}
}

func TestResolveCommandProtocols(t *testing.T) {
	tests := []struct {
		protocol core.Protocol
		src      core.TransportSource
		path     string
		args     []string
	}{
		{"simple", nil, "/usr/sbin/sendmail", nil},
		{"mail", core.CommandParams{}, "/usr/sbin/sendmail", nil},
		{"sendmail", core.CommandParams{Command: "/opt/bin/sendmail -f bounce@x.com"}, "/opt/bin/sendmail", []string{"-f", "bounce@x.com"}},
	}
	for _, tt := range tests {
		got, err := Resolve(tt.protocol, tt.src, defaults)
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.protocol, err)
		}
		sm, ok := got.(*sendmail.Transport)
		if !ok {
			t.Fatalf("%s: got %T, want *sendmail.Transport", tt.protocol, got)
		}
		path, args := sm.Command()
		if path != tt.path || len(args) != len(tt.args) {
			t.Fatalf("%s: command = %q %v", tt.protocol, path, args)
		}
		for i := range args {
			if args[i] != tt.args[i] {
				t.Fatalf("%s: args = %v, want %v", tt.protocol, args, tt.args)
			}
		}
	}
}

func TestResolveSMTPFillsDefaults(t *testing.T) {
	got, err := Resolve("postfix", nil, defaults)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	st, ok := got.(*smtp.Transport)
	if !ok {
		t.Fatalf("got %T, want *smtp.Transport", got)
	}
	if st.Host() != "localhost" || st.Port() != 25 || st.Timeout() != 30*time.Second || st.Encryption() != "" {
		t.Fatalf("defaults not applied: %s:%d %v %q", st.Host(), st.Port(), st.Timeout(), st.Encryption())
	}
}

func TestResolveSMTPParams(t *testing.T) {
	src := core.SMTPParams{
		Host:       "relay.example.com",
		Port:       587,
		Encryption: "tls",
		Timeout:    5 * time.Second,
		Username:   "user",
		Password:   "secret",
	}
	got, err := Resolve("smtp", src, defaults)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	st := got.(*smtp.Transport)
	if st.Host() != "relay.example.com" || st.Port() != 587 || st.Encryption() != "tls" ||
		st.Timeout() != 5*time.Second || st.Username() != "user" {
		t.Fatalf("params not applied: %+v", st)
	}
}

func TestResolveUnsupportedProtocol(t *testing.T) {
	_, err := Resolve("ftp", core.SMTPParams{Host: "x"}, defaults)
	if !errors.Is(err, core.ErrUnsupportedProtocol) {
		t.Fatalf("expected unsupported protocol, got %v", err)
	}
	var e *core.Error
	if !errors.As(err, &e) || e.Code != core.CodeUnsupportedProtocol {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestResolveTransportConfigErrors(t *testing.T) {
	tests := []struct {
		name     string
		protocol core.Protocol
		src      core.TransportSource
	}{
		{"bad port", "smtp", core.SMTPParams{Port: 70000}},
		{"bad encryption", "smtp", core.SMTPParams{Encryption: "starttls"}},
		{"smtp params for sendmail", "sendmail", core.SMTPParams{Host: "x"}},
		{"command for smtp", "smtp", core.CommandParams{Command: "/usr/sbin/sendmail"}},
		{"shell metacharacters", "sendmail", core.CommandParams{Command: "sendmail;rm"}},
	}
	for _, tt := range tests {
		_, err := Resolve(tt.protocol, tt.src, defaults)
		if !errors.Is(err, core.ErrTransportConfig) {
			t.Fatalf("%s: expected transport config error, got %v", tt.name, err)
		}
		if !errors.Is(err, core.ErrInvalidConfiguration) {
			t.Fatalf("%s: cause should be a validation error, got %v", tt.name, err)
		}
	}
}
