package email

import (
	"context"
	"errors"

	"go.uber.org/zap"
)

var ErrNoRecipients = errors.New("email: no recipients")

type Message struct {
	To       []string
	Subject  string
	HTMLBody string
}

type Provider interface {
	Send(ctx context.Context, msg Message) error
}

// LogProvider is used when SMTP is not configured; it only logs what would be sent.
type LogProvider struct {
	log *zap.Logger
}

func NewLogProvider(log *zap.Logger) *LogProvider {
	return &LogProvider{log: log.Named("email.log_provider")}
}

func (p *LogProvider) Send(_ context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return ErrNoRecipients
	}
	p.log.Info("email not sent, smtp disabled",
		zap.Int("recipients", len(msg.To)),
		zap.String("subject", msg.Subject),
	)
	return nil
}
