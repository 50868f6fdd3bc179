package mailer

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/lattiq/maildispatch/internal/core"
)

const tracerName = "github.com/lattiq/maildispatch"

// Simple is the "mail" driver. It submits a message once per recipient
// through a Submitter and has no transport.
type Simple struct {
	spec      envelopeSpec
	params    string
	submitter Submitter
	logger    *slog.Logger
	tracer    trace.Tracer
}

// NewSimple creates a mail driver.
func NewSimple(cfg Config, opts ...Option) (*Simple, error) {
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg = cfg.withDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	headers, _ := cfg.parsedHeaders()

	charset := cfg.Charset
	if charset == "" {
		charset = "utf-8"
	}

	submitter := cfg.Submitter
	if submitter == nil {
		submitter = SendmailSubmitter{}
	}

	return &Simple{
		spec: envelopeSpec{
			charset:     charset,
			contentType: cfg.ContentType,
			headers:     headers,
		},
		params:    cfg.AdditionalParameters,
		submitter: submitter,
		logger:    cfg.Logger,
		tracer:    otel.Tracer(tracerName),
	}, nil
}

// Compose builds a SimpleMessage. It never fails.
func (m *Simple) Compose(d Draft) (Message, error) {
	return &SimpleMessage{env: m.spec.compose(d, d.To)}, nil
}

// Dispatch submits the message to each recipient in order. A failed
// submission is recorded in the result and the loop continues.
func (m *Simple) Dispatch(ctx context.Context, msg Message) (DispatchResult, error) {
	sm, ok := msg.(*SimpleMessage)
	if !ok || sm == nil {
		return DispatchResult{}, core.NewError(core.CodeInvalidSimpleMessage,
			fmt.Sprintf("mail driver cannot dispatch a %T", msg))
	}

	ctx, span := m.tracer.Start(ctx, "mailer.Simple.Dispatch")
	defer span.End()

	span.SetAttributes(
		attribute.String("mailer.driver", string(DriverMail)),
		attribute.String("mailer.priority", sm.Priority().String()),
		attribute.Int("mailer.recipients", len(sm.env.To)),
	)

	block := sm.HeaderBlock()

	var result DispatchResult
	for _, rcpt := range sm.env.To {
		if err := m.submitter.Submit(ctx, rcpt, sm.env.Subject, sm.env.Body, block, m.params); err != nil {
			m.logger.WarnContext(ctx, "mail submission failed", "recipient", rcpt, "error", err)
			result.Failed = append(result.Failed, rcpt)
			continue
		}
		result.Sent++
	}

	span.SetAttributes(
		attribute.Int("mailer.sent", result.Sent),
		attribute.Int("mailer.failed", len(result.Failed)),
	)
	if len(result.Failed) > 0 {
		span.SetStatus(codes.Error, fmt.Sprintf("%d/%d recipients failed", len(result.Failed), len(sm.env.To)))
	} else {
		span.SetStatus(codes.Ok, "dispatched")
	}

	return result, nil
}

// Driver returns DriverMail.
func (m *Simple) Driver() Driver {
	return DriverMail
}
