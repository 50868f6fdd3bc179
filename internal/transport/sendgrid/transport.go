package sendgrid

import (
	"context"
	"strings"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/lattiq/maildispatch/internal/core"
)

// API is the subset of the SendGrid client used by the transport.
type API interface {
	SendWithContext(ctx context.Context, email *sgmail.SGMailV3) (*rest.Response, error)
}

// Transport implements core.Transport for SendGrid.
type Transport struct {
	client API
	config core.ProviderSettings
}

// New creates a new SendGrid transport.
func New(settings core.ProviderSettings) (*Transport, error) {
	apiKey := settings.Get("api_key")
	if apiKey == "" {
		return nil, core.NewValidationError("api_key", "SendGrid API key is required")
	}

	return NewWithClient(sendgrid.NewSendClient(apiKey), settings), nil
}

// NewWithClient creates a transport around an existing SendGrid client.
func NewWithClient(client API, settings core.ProviderSettings) *Transport {
	if settings == nil {
		settings = core.ProviderSettings{}
	}
	return &Transport{client: client, config: settings}
}

// Send submits the message as one v3 request with a single personalization.
func (t *Transport) Send(ctx context.Context, msg *core.RichMessage) (core.Result, error) {
	message, err := t.buildV3Mail(msg)
	if err != nil {
		return core.Result{}, err
	}

	response, err := t.client.SendWithContext(ctx, message)
	if err != nil {
		return core.Result{}, core.WrapProviderError(t.Name(), "send_error", 0, err)
	}

	if response.StatusCode >= 400 {
		pe := core.NewProviderError(t.Name(), "api_error", "SendGrid API error: "+response.Body)
		pe.StatusCode = response.StatusCode
		return core.Result{}, pe
	}

	return core.Result{Sent: len(message.Personalizations[0].To)}, nil
}

func (t *Transport) buildV3Mail(msg *core.RichMessage) (*sgmail.SGMailV3, error) {
	fromAddr := msg.From()
	if fromAddr == "" {
		fromAddr = t.config.Get("from")
	}
	if fromAddr == "" {
		return nil, core.NewProviderError(t.Name(), "no_sender", "a sender address is required")
	}
	from, err := sgmail.ParseEmail(fromAddr)
	if err != nil {
		return nil, core.WrapProviderError(t.Name(), "invalid_sender", 0, err)
	}

	to := msg.To()
	if len(to) == 0 {
		return nil, core.NewProviderError(t.Name(), "no_recipients", "at least one recipient is required")
	}

	personalization := sgmail.NewPersonalization()
	for _, rcpt := range to {
		addr, err := sgmail.ParseEmail(rcpt)
		if err != nil {
			return nil, core.WrapProviderError(t.Name(), "invalid_recipient", 0, err)
		}
		personalization.AddTos(addr)
	}

	contentType := msg.ContentType()
	if contentType == "" {
		contentType = "text/plain"
	}

	message := sgmail.NewV3Mail()
	message.SetFrom(from)
	message.Subject = msg.Subject()
	message.AddContent(sgmail.NewContent(strings.ToLower(contentType), msg.Body()))
	message.AddPersonalizations(personalization)

	// SendGrid keeps one value per header name; the last one wins.
	for _, h := range core.ExtraHeaders(msg.Headers()) {
		message.SetHeader(h.Name, h.Value)
	}

	return message, nil
}

// Name returns the transport name.
func (t *Transport) Name() string {
	return "sendgrid"
}
