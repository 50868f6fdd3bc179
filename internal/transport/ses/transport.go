package ses

import (
	"bytes"
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"github.com/lattiq/maildispatch/internal/core"
)

// API is the subset of the SES client used by the transport.
type API interface {
	SendRawEmail(ctx context.Context, params *ses.SendRawEmailInput, optFns ...func(*ses.Options)) (*ses.SendRawEmailOutput, error)
}

// Transport implements core.Transport for AWS SES.
// The rendered MIME message is submitted as-is through SendRawEmail.
type Transport struct {
	client API
	config core.ProviderSettings
}

// New creates a new AWS SES transport.
func New(ctx context.Context, settings core.ProviderSettings) (*Transport, error) {
	region := settings.Get("region")
	if region == "" {
		return nil, core.NewValidationError("region", "AWS region is required")
	}

	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(region))
	if err != nil {
		return nil, core.WrapProviderError("aws_ses", "config_error", 0, err)
	}

	// Static credentials take precedence over the default chain.
	if accessKey := settings.Get("access_key"); accessKey != "" {
		secretKey := settings.Get("secret_key")
		if secretKey == "" {
			return nil, core.NewValidationError("secret_key", "secret key is required when access key is provided")
		}

		cfg.Credentials = aws.NewCredentialsCache(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, settings.Get("session_token")),
		)
	}

	return NewWithClient(ses.NewFromConfig(cfg), settings), nil
}

// NewWithClient creates a transport around an existing SES client.
func NewWithClient(client API, settings core.ProviderSettings) *Transport {
	if settings == nil {
		settings = core.ProviderSettings{}
	}
	return &Transport{client: client, config: settings}
}

// Send submits the message once for all recipients. SES accepts or rejects
// the whole request, so a rejection is a transport error.
func (t *Transport) Send(ctx context.Context, msg *core.RichMessage) (core.Result, error) {
	input, err := t.buildInput(msg)
	if err != nil {
		return core.Result{}, err
	}

	if _, err := t.client.SendRawEmail(ctx, input); err != nil {
		return core.Result{}, core.WrapProviderError(t.Name(), "send_error", 0, err)
	}

	return core.Result{Sent: len(input.Destinations)}, nil
}

func (t *Transport) buildInput(msg *core.RichMessage) (*ses.SendRawEmailInput, error) {
	rcpts, err := msg.Msg().GetRecipients()
	if err != nil {
		return nil, core.WrapProviderError(t.Name(), "no_recipients", 0, err)
	}

	var raw bytes.Buffer
	if _, err := msg.WriteTo(&raw); err != nil {
		return nil, core.WrapProviderError(t.Name(), "render_error", 0, err)
	}

	input := &ses.SendRawEmailInput{
		Destinations: rcpts,
		RawMessage:   &types.RawMessage{Data: raw.Bytes()},
	}

	if from := msg.From(); from != "" {
		input.Source = aws.String(from)
	} else if from := t.config.Get("from"); from != "" {
		input.Source = aws.String(from)
	}

	if configSet := t.config.Get("configuration_set"); configSet != "" {
		input.ConfigurationSetName = aws.String(configSet)
	}

	return input, nil
}

// Name returns the transport name.
func (t *Transport) Name() string {
	return "aws_ses"
}
