package core

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/wneessen/go-mail"
)

func TestProtocolNormalize(t *testing.T) {
	tests := []struct {
		in    Protocol
		want  Protocol
		valid bool
	}{
		{"", ProtocolSimple, true},
		{"mail", ProtocolSimple, true},
		{" SMTP ", ProtocolSMTP, true},
		{"Sendmail", ProtocolSendmail, true},
		{"postfix", ProtocolPostfix, true},
		{"ftp", "ftp", false},
	}
	for _, tt := range tests {
		if got := tt.in.Normalize(); got != tt.want {
			t.Fatalf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
		if got := tt.in.Valid(); got != tt.valid {
			t.Fatalf("Valid(%q) = %v, want %v", tt.in, got, tt.valid)
		}
	}
}

func TestParseHeader(t *testing.T) {
	h, err := ParseHeader("X-Tag:  welcome ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if h.Name != "X-Tag" || h.Value != "welcome" || h.String() != "X-Tag: welcome" {
		t.Fatalf("unexpected header: %+v", h)
	}

	for _, line := range []string{"", "no colon", ": value", "Bad Name: x"} {
		_, err := ParseHeader(line)
		if !errors.Is(err, ErrInvalidConfiguration) {
			t.Fatalf("ParseHeader(%q) error = %v", line, err)
		}
	}
}

func TestPriorityOrDefault(t *testing.T) {
	if got := Priority(0).OrDefault(); got != PriorityNormal {
		t.Fatalf("zero priority = %v", got)
	}
	if got := PriorityHighest.OrDefault(); got != PriorityHighest {
		t.Fatalf("highest priority = %v", got)
	}
}

func TestExtraHeaders(t *testing.T) {
	in := []Header{
		{Name: "MIME-Version", Value: "1.0"},
		{Name: "Content-Type", Value: "text/plain; charset=UTF-8"},
		{Name: "X-Mailer", Value: "maildispatch/dev"},
		{Name: "from", Value: "a@x.com"},
		{Name: "X-Priority", Value: "1 (Highest)"},
	}
	got := ExtraHeaders(in)
	if len(got) != 2 || got[0].Name != "X-Mailer" || got[1].Name != "X-Priority" {
		t.Fatalf("unexpected extra headers: %+v", got)
	}
}

func TestEnvelopeClone(t *testing.T) {
	env := Envelope{To: []string{"a@x.com"}, Headers: []Header{{Name: "X-A", Value: "1"}}}
	c := env.Clone()
	c.To[0] = "b@x.com"
	c.Headers[0].Value = "2"
	if env.To[0] != "a@x.com" || env.Headers[0].Value != "1" {
		t.Fatalf("clone shares storage with original")
	}
}

func TestSingleLine(t *testing.T) {
	if got := SingleLine("a\r\nb\tc\x00d"); got != "a  b c d" {
		t.Fatalf("SingleLine = %q", got)
	}
}

func TestRichMessageWriteTo(t *testing.T) {
	m := mail.NewMsg()
	_ = m.To("a@x.com")
	m.SetBodyString(mail.TypeTextPlain, "body")
	rm := NewRichMessage(Envelope{Headers: []Header{
		{Name: "Content-Type", Value: "text/plain; charset=UTF-8"},
		{Name: "X-B", Value: "1"},
		{Name: "X-A", Value: "héllo"},
		{Name: "X-B", Value: "2"},
	}}, m)

	var buf bytes.Buffer
	if _, err := rm.WriteTo(&buf); err != nil {
		t.Fatalf("write: %v", err)
	}
	head, body, ok := strings.Cut(buf.String(), "\r\n\r\n")
	if !ok || !strings.Contains(body, "body") {
		t.Fatalf("unexpected rendering: %q", buf.String())
	}
	want := "X-B: 1\r\nX-A: =?UTF-8?q?h=C3=A9llo?=\r\nX-B: 2"
	if !strings.HasSuffix(head, want) {
		t.Fatalf("header block %q does not end with %q", head, want)
	}
	if strings.Count(head, "Content-Type:") != 1 {
		t.Fatalf("structural header written twice: %q", head)
	}
}
