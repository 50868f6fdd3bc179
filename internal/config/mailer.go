package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"

	mailer "github.com/lattiq/maildispatch"
	"github.com/lattiq/maildispatch/internal/core"
)

// Keys read by LoadMailer. Other keys are ignored.
const (
	KeyDriver               = "mailer.driver"
	KeyProtocol             = "mailer.protocol"
	KeyCharset              = "mailer.charset"
	KeyContentType          = "mailer.content_type"
	KeyHeaders              = "mailer.headers"
	KeyAdditionalParameters = "mailer.additional_parameters"
	KeyTransport            = "mailer.transport"
	KeyHost                 = "mailer.host"
	KeyPort                 = "mailer.port"
	KeyTimeout              = "mailer.timeout"
	KeyEncryption           = "mailer.encryption"
	KeyDefaultRecipients    = "mailer.default_recipients"
	KeyRelayType            = "mailer.relay.type"
	KeyRelaySettings        = "mailer.relay.settings"
)

// Mailer is the loaded mailer section.
type Mailer struct {
	Driver   mailer.Driver
	Protocol mailer.Protocol
	Config   mailer.Config
}

// LoadMailer reads the mailer section. Known keys are type-checked; a
// relay section builds a prebuilt API transport that takes precedence
// over mailer.transport.
func LoadMailer(ctx context.Context, vc *Viper) (Mailer, error) {
	out := Mailer{
		Driver:   mailer.Driver(vc.GetString(KeyDriver)),
		Protocol: mailer.Protocol(vc.GetString(KeyProtocol)),
		Config:   mailer.DefaultConfig(),
	}
	if out.Driver == "" {
		out.Driver = mailer.DriverMail
	}
	cfg := &out.Config
	cfg.CharsetSource = vc

	var err error
	if cfg.Charset, err = optString(vc, KeyCharset); err != nil {
		return Mailer{}, err
	}
	if ct, err := optString(vc, KeyContentType); err != nil {
		return Mailer{}, err
	} else if ct != "" {
		cfg.ContentType = ct
	}
	if cfg.AdditionalParameters, err = optString(vc, KeyAdditionalParameters); err != nil {
		return Mailer{}, err
	}
	if host, err := optString(vc, KeyHost); err != nil {
		return Mailer{}, err
	} else if host != "" {
		cfg.Host = host
	}
	if cfg.Encryption, err = optString(vc, KeyEncryption); err != nil {
		return Mailer{}, err
	}

	if vc.IsSet(KeyPort) {
		port, err := cast.ToIntE(vc.Get(KeyPort))
		if err != nil {
			return Mailer{}, invalid(KeyPort, "must be an integer", vc.Get(KeyPort))
		}
		cfg.Port = port
	}

	if vc.IsSet(KeyTimeout) {
		timeout, err := secondsValue(vc.Get(KeyTimeout))
		if err != nil {
			return Mailer{}, invalid(KeyTimeout, "must be a number of seconds", vc.Get(KeyTimeout))
		}
		cfg.Timeout = timeout
	}

	if vc.IsSet(KeyHeaders) {
		headers, err := cast.ToStringSliceE(vc.Get(KeyHeaders))
		if err != nil {
			return Mailer{}, invalid(KeyHeaders, "must be a list of header lines", vc.Get(KeyHeaders))
		}
		cfg.Headers = headers
	}

	if vc.IsSet(KeyDefaultRecipients) {
		rcpts, err := cast.ToStringSliceE(vc.Get(KeyDefaultRecipients))
		if err != nil {
			return Mailer{}, invalid(KeyDefaultRecipients, "must be a list of addresses", vc.Get(KeyDefaultRecipients))
		}
		cfg.DefaultRecipients = rcpts
	}

	if vc.IsSet(KeyTransport) {
		src, err := TransportSourceFromValue(vc.Get(KeyTransport))
		if err != nil {
			return Mailer{}, err
		}
		cfg.Transport = src
	}

	if relay := vc.GetString(KeyRelayType); relay != "" {
		settings := map[string]string{}
		if vc.IsSet(KeyRelaySettings) {
			if settings, err = cast.ToStringMapStringE(vc.Get(KeyRelaySettings)); err != nil {
				return Mailer{}, invalid(KeyRelaySettings, "must be a map of strings", vc.Get(KeyRelaySettings))
			}
		}
		t, err := NewRelay(ctx, relay, mailer.ProviderSettings(settings))
		if err != nil {
			return Mailer{}, err
		}
		cfg.Transport = mailer.Prebuilt{Transport: t}
	}

	return out, nil
}

// NewRelay builds a prebuilt API transport by name: ses, sendgrid or mailgun.
func NewRelay(ctx context.Context, name string, settings mailer.ProviderSettings) (mailer.Transport, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "ses", "aws_ses":
		return mailer.NewSESTransport(ctx, settings)
	case "sendgrid":
		return mailer.NewSendGridTransport(settings)
	case "mailgun":
		return mailer.NewMailgunTransport(settings)
	default:
		return nil, invalid(KeyRelayType, "unknown relay", name)
	}
}

// TransportSourceFromValue coerces a loosely typed transport value: a
// string is a command line, a list contributes its first element as the
// command line, and a map holds SMTP parameters.
func TransportSourceFromValue(value any) (core.TransportSource, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case string:
		return core.CommandParams{Command: v}, nil
	case []any, []string:
		items, err := cast.ToStringSliceE(v)
		if err != nil {
			return nil, invalid(KeyTransport, "list must hold strings", value)
		}
		if len(items) == 0 {
			return core.CommandParams{}, nil
		}
		return core.CommandParams{Command: items[0]}, nil
	case map[string]any, map[string]string:
		m, err := cast.ToStringMapE(v)
		if err != nil {
			return nil, invalid(KeyTransport, "map is not readable", value)
		}
		return smtpParamsFromMap(m)
	default:
		return nil, invalid(KeyTransport, "must be a string, list or map", fmt.Sprintf("%T", value))
	}
}

func smtpParamsFromMap(m map[string]any) (core.SMTPParams, error) {
	var p core.SMTPParams
	var err error

	for key, raw := range m {
		switch strings.ToLower(key) {
		case "host":
			p.Host, err = cast.ToStringE(raw)
		case "port":
			p.Port, err = cast.ToIntE(raw)
		case "encryption":
			p.Encryption, err = cast.ToStringE(raw)
		case "timeout":
			p.Timeout, err = secondsValue(raw)
		case "username":
			p.Username, err = cast.ToStringE(raw)
		case "password":
			p.Password, err = cast.ToStringE(raw)
		default:
			continue
		}
		if err != nil {
			return core.SMTPParams{}, invalid(KeyTransport+"."+strings.ToLower(key), "has the wrong type", raw)
		}
	}

	return p, nil
}

// secondsValue accepts a number of seconds or a duration string such as "1m".
func secondsValue(raw any) (time.Duration, error) {
	if s, ok := raw.(string); ok && strings.ContainsAny(s, "hms") {
		return cast.ToDurationE(s)
	}
	secs, err := cast.ToFloat64E(raw)
	if err != nil {
		return 0, err
	}
	return time.Duration(secs * float64(time.Second)), nil
}

func optString(vc *Viper, key string) (string, error) {
	if !vc.IsSet(key) {
		return "", nil
	}
	switch v := vc.Get(key).(type) {
	case string:
		return strings.TrimSpace(v), nil
	case nil:
		return "", nil
	default:
		return "", invalid(key, "must be a string", v)
	}
}

func invalid(key, message string, value any) error {
	return core.NewValidationErrorWithValue(key, message, value)
}
