package mailer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wneessen/go-mail"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/lattiq/maildispatch/internal/core"
	"github.com/lattiq/maildispatch/internal/transport"
)

// Swift is the "swift" driver. It composes go-mail messages and hands each
// one, with all of its recipients, to a single transport resolved at
// construction.
type Swift struct {
	protocol          Protocol
	transport         Transport
	spec              envelopeSpec
	defaultRecipients []string
	logger            *slog.Logger
	tracer            trace.Tracer
}

// NewSwift creates a swift driver for protocol. The transport is resolved
// once here and kept for the mailer's lifetime.
func NewSwift(protocol Protocol, cfg Config, opts ...Option) (*Swift, error) {
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg = cfg.withDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	headers, _ := cfg.parsedHeaders()

	t, err := transport.Resolve(protocol, cfg.Transport, transport.Defaults{
		Host:       cfg.Host,
		Port:       cfg.Port,
		Timeout:    cfg.Timeout,
		Encryption: cfg.Encryption,
		Logger:     cfg.Logger,
	})
	if err != nil {
		return nil, err
	}

	return &Swift{
		protocol:  protocol.Normalize(),
		transport: t,
		spec: envelopeSpec{
			charset:     swiftCharset(cfg),
			contentType: cfg.ContentType,
			headers:     headers,
		},
		defaultRecipients: append([]string(nil), cfg.DefaultRecipients...),
		logger:            cfg.Logger,
		tracer:            otel.Tracer(tracerName),
	}, nil
}

// swiftCharset returns the configured charset, else the process charset
// upper-cased, else UTF-8.
func swiftCharset(cfg Config) string {
	if cfg.Charset != "" {
		return cfg.Charset
	}
	if cfg.CharsetSource != nil {
		if cs := cfg.CharsetSource.DefaultCharset(); cs != "" {
			return cases.Upper(language.Und).String(cs)
		}
	}
	return "UTF-8"
}

// Compose builds a RichMessage. A nil recipient list is replaced by the
// configured default recipients; an empty non-nil list is kept.
func (m *Swift) Compose(d Draft) (Message, error) {
	to := d.To
	if to == nil && len(m.defaultRecipients) > 0 {
		to = m.defaultRecipients
	}
	env := m.spec.compose(d, to)

	msg := mail.NewMsg(
		mail.WithCharset(mail.Charset(env.Charset)),
		mail.WithNoDefaultUserAgent(),
	)

	if env.From != "" {
		if err := msg.From(env.From); err != nil {
			return nil, core.WrapError(core.CodeCompose, "invalid sender: %v", err)
		}
	}
	if len(env.To) > 0 {
		if err := msg.To(env.To...); err != nil {
			return nil, core.WrapError(core.CodeCompose, "invalid recipient: %v", err)
		}
	}
	msg.Subject(env.Subject)
	msg.SetBodyString(mail.ContentType(env.ContentType), env.Body)

	// stamped once so every rendering of the message is identical
	msg.SetDate()
	msg.SetMessageID()

	return core.NewRichMessage(env, msg), nil
}

// Dispatch hands the message to the transport and returns its accounting.
// A transport failure is returned as a dispatch error wrapping the cause.
func (m *Swift) Dispatch(ctx context.Context, msg Message) (DispatchResult, error) {
	rm, ok := msg.(*RichMessage)
	if !ok || rm == nil || rm.Msg() == nil {
		return DispatchResult{}, core.NewError(core.CodeInvalidRichMessage,
			fmt.Sprintf("swift driver cannot dispatch a %T", msg))
	}

	ctx, span := m.tracer.Start(ctx, "mailer.Swift.Dispatch")
	defer span.End()

	span.SetAttributes(
		attribute.String("mailer.driver", string(DriverSwift)),
		attribute.String("mailer.protocol", m.Protocol().String()),
		attribute.String("mailer.transport", m.transport.Name()),
		attribute.String("mailer.priority", rm.Priority().String()),
		attribute.Int("mailer.recipients", len(rm.To())),
	)

	result, err := m.transport.Send(ctx, rm)
	if err != nil {
		m.logger.ErrorContext(ctx, "transport send failed",
			"protocol", m.Protocol(),
			"transport", m.transport.Name(),
			"error", err,
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, "send failed")
		return DispatchResult{}, core.WrapError(core.CodeDispatch, "dispatch failed: %v", err)
	}

	m.logger.DebugContext(ctx, "message dispatched",
		"protocol", m.Protocol(),
		"transport", m.transport.Name(),
		"sent", result.Sent,
		"failed", len(result.Failed),
	)
	span.SetAttributes(
		attribute.Int("mailer.sent", result.Sent),
		attribute.Int("mailer.failed", len(result.Failed)),
	)
	span.SetStatus(codes.Ok, "dispatched")

	return result, nil
}

// Driver returns DriverSwift.
func (m *Swift) Driver() Driver {
	return DriverSwift
}

// Protocol returns the normalized protocol the mailer was created with.
func (m *Swift) Protocol() Protocol {
	return m.protocol
}

// Transport returns the resolved transport.
func (m *Swift) Transport() Transport {
	return m.transport
}
