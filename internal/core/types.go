package core

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/wneessen/go-mail"
)

// Transport delivers a composed rich message.
// Implementations report per-recipient accounting in the returned Result;
// an error is returned only when the transport itself failed.
type Transport interface {
	// Send hands the whole message, all recipients at once, to the transport.
	Send(ctx context.Context, msg *RichMessage) (Result, error)

	// Name returns the transport's name for identification and logging.
	Name() string
}

// Result is the accounting of a single dispatch call.
type Result struct {
	// Sent is the number of recipients the transport accepted.
	Sent int

	// Failed lists the recipients that were rejected, in dispatch order.
	Failed []string
}

// ProviderSettings represents configuration settings for API-based transports.
type ProviderSettings map[string]string

// Get retrieves a configuration value by key.
func (ps ProviderSettings) Get(key string) string {
	return ps[key]
}

// Priority defines the priority level of a message, 1 (highest) to 5 (lowest).
type Priority int

const (
	// PriorityHighest is the only priority surfaced as headers.
	PriorityHighest Priority = iota + 1

	// PriorityHigh indicates high priority.
	PriorityHigh

	// PriorityNormal is the default priority.
	PriorityNormal

	// PriorityLow indicates low priority.
	PriorityLow

	// PriorityLowest indicates lowest priority.
	PriorityLowest
)

// String returns the string representation of the priority.
func (p Priority) String() string {
	switch p {
	case PriorityHighest:
		return "highest"
	case PriorityHigh:
		return "high"
	case PriorityNormal:
		return "normal"
	case PriorityLow:
		return "low"
	case PriorityLowest:
		return "lowest"
	default:
		return "normal"
	}
}

// OrDefault maps the zero value to PriorityNormal.
func (p Priority) OrDefault() Priority {
	if p == 0 {
		return PriorityNormal
	}
	return p
}

// SingleLine replaces control characters, line breaks included, with spaces.
func SingleLine(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return ' '
		}
		return r
	}, s)
}

// Header is a single message header line.
type Header struct {
	Name  string
	Value string
}

// String renders the header as "Name: value".
func (h Header) String() string {
	return h.Name + ": " + h.Value
}

// ParseHeader parses a "Name: value" line.
func ParseHeader(line string) (Header, error) {
	name, value, ok := strings.Cut(line, ":")
	name = strings.TrimSpace(name)
	if !ok || name == "" || strings.ContainsAny(name, " \t\r\n") {
		return Header{}, NewValidationErrorWithValue("headers", "header must have the form \"Name: value\"", line)
	}
	return Header{Name: name, Value: strings.TrimSpace(value)}, nil
}

// IsStructuralHeader reports whether name is a header the message library
// derives from the message fields rather than carrying verbatim.
func IsStructuralHeader(name string) bool {
	switch strings.ToLower(name) {
	case "mime-version", "content-type", "content-transfer-encoding", "from", "to", "subject":
		return true
	default:
		return false
	}
}

// ExtraHeaders returns the headers a transport must carry verbatim, in order.
func ExtraHeaders(headers []Header) []Header {
	var out []Header
	for _, h := range headers {
		if !IsStructuralHeader(h.Name) {
			out = append(out, h)
		}
	}
	return out
}

// Envelope holds the composed fields shared by both message kinds.
type Envelope struct {
	Subject     string
	Body        string
	To          []string
	From        string
	Priority    Priority
	ContentType string
	Charset     string
	Headers     []Header
}

// Clone returns a deep copy of the envelope.
func (e Envelope) Clone() Envelope {
	c := e
	c.To = append([]string(nil), e.To...)
	c.Headers = append([]Header(nil), e.Headers...)
	return c
}

// RichMessage is the message kind produced by the swift driver.
// It pairs the composed envelope with the go-mail message built from it.
// go-mail carries the structural headers; the extra headers are spliced
// into the rendered output by WriteTo so their order and duplicates survive.
type RichMessage struct {
	env Envelope
	msg *mail.Msg

	// go-mail updates its header map while writing a message
	mu sync.Mutex
}

// NewRichMessage wraps an envelope and its go-mail message.
func NewRichMessage(env Envelope, msg *mail.Msg) *RichMessage {
	return &RichMessage{env: env.Clone(), msg: msg}
}

// Subject returns the trimmed subject.
func (m *RichMessage) Subject() string { return m.env.Subject }

// Body returns the trimmed body.
func (m *RichMessage) Body() string { return m.env.Body }

// To returns a copy of the recipient list.
func (m *RichMessage) To() []string { return append([]string(nil), m.env.To...) }

// From returns the sender, or "" when the transport default applies.
func (m *RichMessage) From() string { return m.env.From }

// Priority returns the message priority.
func (m *RichMessage) Priority() Priority { return m.env.Priority }

// ContentType returns the body content type without charset.
func (m *RichMessage) ContentType() string { return m.env.ContentType }

// Charset returns the message charset.
func (m *RichMessage) Charset() string { return m.env.Charset }

// Headers returns a copy of the ordered header list.
func (m *RichMessage) Headers() []Header { return append([]Header(nil), m.env.Headers...) }

// Msg returns the underlying go-mail message for reading its addresses.
// It does not carry the extra headers; render the message with WriteTo.
func (m *RichMessage) Msg() *mail.Msg { return m.msg }

var errNoHeaderEnd = errors.New("rendered message has no header terminator")

// WriteTo renders the message: the go-mail headers, then the extra headers
// in composed order, then the body. Concurrent calls are serialized.
func (m *RichMessage) WriteTo(w io.Writer) (int64, error) {
	var rendered bytes.Buffer
	m.mu.Lock()
	_, err := m.msg.WriteTo(&rendered)
	m.mu.Unlock()
	if err != nil {
		return 0, err
	}

	raw := rendered.Bytes()
	end := bytes.Index(raw, []byte("\r\n\r\n"))
	if end < 0 {
		return 0, errNoHeaderEnd
	}
	end += 2

	var out bytes.Buffer
	out.Grow(len(raw) + 64*len(m.env.Headers))
	out.Write(raw[:end])
	for _, h := range ExtraHeaders(m.env.Headers) {
		out.WriteString(h.Name)
		out.WriteString(": ")
		out.WriteString(encodeHeaderValue(h.Value))
		out.WriteString("\r\n")
	}
	out.Write(raw[end:])

	return out.WriteTo(w)
}

func encodeHeaderValue(v string) string {
	v = SingleLine(v)
	for i := 0; i < len(v); i++ {
		if v[i] >= utf8.RuneSelf {
			return mime.QEncoding.Encode("UTF-8", v)
		}
	}
	return v
}
