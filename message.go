package mailer

import (
	"strings"

	"github.com/lattiq/maildispatch/internal/core"
)

// SimpleMessage is the message kind produced by the mail driver.
type SimpleMessage struct {
	env core.Envelope
}

// Subject returns the trimmed subject.
func (m *SimpleMessage) Subject() string { return m.env.Subject }

// Body returns the trimmed body.
func (m *SimpleMessage) Body() string { return m.env.Body }

// To returns a copy of the recipient list.
func (m *SimpleMessage) To() []string { return append([]string(nil), m.env.To...) }

// From returns the sender, or "".
func (m *SimpleMessage) From() string { return m.env.From }

// Priority returns the message priority.
func (m *SimpleMessage) Priority() Priority { return m.env.Priority }

// Headers returns a copy of the ordered header list.
func (m *SimpleMessage) Headers() []Header { return append([]Header(nil), m.env.Headers...) }

// HeaderBlock renders the headers as CRLF-separated lines.
func (m *SimpleMessage) HeaderBlock() string {
	return headerBlock(m.env.Headers)
}

func headerBlock(headers []Header) string {
	lines := make([]string, len(headers))
	for i, h := range headers {
		lines[i] = h.String()
	}
	return strings.TrimSpace(strings.Join(lines, "\r\n"))
}

// priorityHeaders are added only for PriorityHighest.
var priorityHeaders = []Header{
	{Name: "X-Priority", Value: "1 (Highest)"},
	{Name: "X-MSMail-Priority", Value: "High"},
	{Name: "Importance", Value: "High"},
}

// envelopeSpec is the driver state compose needs.
type envelopeSpec struct {
	charset     string
	contentType string
	headers     []Header
}

// compose builds the envelope shared by both message kinds. Header order:
// MIME-Version, Content-Type, X-Mailer, From, priority, defaults, caller.
// Control characters in the subject, sender and header fields become
// spaces so no value can start a header line of its own.
func (s envelopeSpec) compose(d Draft, to []string) core.Envelope {
	from := strings.TrimSpace(core.SingleLine(d.From))
	priority := d.Priority.OrDefault()

	headers := make([]Header, 0, 6+len(s.headers)+len(d.Headers))
	headers = append(headers,
		Header{Name: "MIME-Version", Value: "1.0"},
		Header{Name: "Content-Type", Value: s.contentType + "; charset=" + s.charset},
		Header{Name: "X-Mailer", Value: xMailer()},
	)
	if from != "" {
		headers = append(headers, Header{Name: "From", Value: from})
	}
	if priority == PriorityHighest {
		headers = append(headers, priorityHeaders...)
	}
	for _, h := range s.headers {
		headers = append(headers, singleLineHeader(h))
	}
	for _, h := range d.Headers {
		headers = append(headers, singleLineHeader(h))
	}

	return core.Envelope{
		Subject:     strings.TrimSpace(core.SingleLine(d.Subject)),
		Body:        strings.TrimSpace(d.Body),
		To:          append([]string(nil), to...),
		From:        from,
		Priority:    priority,
		ContentType: s.contentType,
		Charset:     s.charset,
		Headers:     headers,
	}
}

func singleLineHeader(h Header) Header {
	return Header{Name: core.SingleLine(h.Name), Value: core.SingleLine(h.Value)}
}
