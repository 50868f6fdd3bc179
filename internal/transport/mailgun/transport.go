package mailgun

import (
	"context"
	"strings"

	"github.com/mailgun/mailgun-go/v4"

	"github.com/lattiq/maildispatch/internal/core"
)

type sendFunc func(ctx context.Context, m *mailgun.Message) (string, string, error)

// Transport implements core.Transport for Mailgun.
type Transport struct {
	send   sendFunc
	config core.ProviderSettings
}

// New creates a new Mailgun transport.
func New(settings core.ProviderSettings) (*Transport, error) {
	apiKey := settings.Get("api_key")
	if apiKey == "" {
		return nil, core.NewValidationError("api_key", "Mailgun API key is required")
	}

	domain := settings.Get("domain")
	if domain == "" {
		return nil, core.NewValidationError("domain", "Mailgun domain is required")
	}

	client := mailgun.NewMailgun(domain, apiKey)

	// EU accounts use a different API base
	if baseURL := settings.Get("base_url"); baseURL != "" {
		client.SetAPIBase(baseURL)
	}

	return &Transport{
		send: func(ctx context.Context, m *mailgun.Message) (string, string, error) {
			return client.Send(ctx, m)
		},
		config: settings,
	}, nil
}

// Send submits the message once for all recipients.
func (t *Transport) Send(ctx context.Context, msg *core.RichMessage) (core.Result, error) {
	message, err := t.buildMessage(msg)
	if err != nil {
		return core.Result{}, err
	}

	if _, _, err := t.send(ctx, message); err != nil {
		return core.Result{}, core.WrapProviderError(t.Name(), "send_failed", 0, err)
	}

	return core.Result{Sent: len(msg.To())}, nil
}

func (t *Transport) buildMessage(msg *core.RichMessage) (*mailgun.Message, error) {
	from := msg.From()
	if from == "" {
		from = t.config.Get("from")
	}
	if from == "" {
		return nil, core.NewProviderError(t.Name(), "no_sender", "a sender address is required")
	}

	to := msg.To()
	if len(to) == 0 {
		return nil, core.NewProviderError(t.Name(), "no_recipients", "at least one recipient is required")
	}

	html := strings.EqualFold(msg.ContentType(), "text/html")

	text := msg.Body()
	if html {
		text = ""
	}
	message := mailgun.NewMessage(from, msg.Subject(), text, to[0])
	for _, rcpt := range to[1:] {
		if err := message.AddRecipient(rcpt); err != nil {
			return nil, core.WrapProviderError(t.Name(), "recipient_add_failed", 0, err)
		}
	}

	if html {
		message.SetHTML(msg.Body())
	}

	for _, h := range core.ExtraHeaders(msg.Headers()) {
		message.AddHeader(h.Name, h.Value)
	}

	return message, nil
}

// Name returns the transport name.
func (t *Transport) Name() string {
	return "mailgun"
}
