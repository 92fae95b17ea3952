package sms

import (
	"context"
	"errors"
	"strings"

	"github.com/smallbiznis/kinesio/internal/config"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrNoRecipient = errors.New("sms: no recipient")

type Provider interface {
	Send(ctx context.Context, to, body string) error
}

var Module = fx.Module("providers.sms",
	fx.Provide(NewFromConfig),
)

func NewFromConfig(cfg config.Config, log *zap.Logger) Provider {
	if !cfg.Twilio.Enabled() {
		return NewLogProvider(log)
	}
	return NewTwilio(cfg.Twilio)
}

type TwilioProvider struct {
	client *twilio.RestClient
	from   string
}

func NewTwilio(cfg config.TwilioConfig) *TwilioProvider {
	return &TwilioProvider{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.AccountSID,
			Password: cfg.AuthToken,
		}),
		from: cfg.FromNumber,
	}
}

// Send posts one message. The Twilio client has no context support, so ctx is only
// checked before the call.
func (p *TwilioProvider) Send(ctx context.Context, to, body string) error {
	to = strings.TrimSpace(to)
	if to == "" {
		return ErrNoRecipient
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(p.from)
	params.SetBody(body)
	_, err := p.client.Api.CreateMessage(params)
	return err
}

type LogProvider struct {
	log *zap.Logger
}

func NewLogProvider(log *zap.Logger) *LogProvider {
	return &LogProvider{log: log.Named("sms.log_provider")}
}

func (p *LogProvider) Send(_ context.Context, to, body string) error {
	if strings.TrimSpace(to) == "" {
		return ErrNoRecipient
	}
	p.log.Info("sms not sent, twilio disabled", zap.Int("length", len(body)))
	return nil
}
