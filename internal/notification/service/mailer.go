package service

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/smallbiznis/kinesio/internal/config"
	"github.com/smallbiznis/kinesio/internal/notification/domain"
	"github.com/smallbiznis/kinesio/internal/providers/email"
	"github.com/smallbiznis/kinesio/internal/providers/sms"
	"github.com/smallbiznis/kinesio/pkg/clp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.New("").Funcs(template.FuncMap{
	"clp":  clp.Format,
	"date": formatDate,
}).ParseFS(templateFS, "templates/*.html"))

type MailerParams struct {
	fx.In

	Log     *zap.Logger
	Email   email.Provider
	SMS     sms.Provider
	Billing *config.BillingConfigHolder
}

// Mailer renders notifications and delivers them with bounded retries.
type Mailer struct {
	log        *zap.Logger
	email      email.Provider
	sms        sms.Provider
	billing    *config.BillingConfigHolder
	newBackOff func() backoff.BackOff
}

func NewMailer(p MailerParams) *Mailer {
	return &Mailer{
		log:     p.Log.Named("notification.mailer"),
		email:   p.Email,
		sms:     p.SMS,
		billing: p.Billing,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 5 * time.Second
			return b
		},
	}
}

type templateData struct {
	Clinic config.ClinicProfile
	Msg    any
}

func (m *Mailer) SendInvoiceEmail(ctx context.Context, msg domain.InvoiceEmail) error {
	clinic := m.billing.Get().Clinic
	body, err := render("invoice.html", templateData{Clinic: clinic, Msg: msg})
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("%s %s - %s", msg.DocumentLabel, msg.InvoiceNumber, clinic.Name)
	return m.deliverEmail(ctx, email.Message{To: []string{msg.To}, Subject: subject, HTMLBody: body})
}

func (m *Mailer) SendPaymentConfirmationEmail(ctx context.Context, msg domain.PaymentConfirmationEmail) error {
	clinic := m.billing.Get().Clinic
	body, err := render("payment_confirmation.html", templateData{Clinic: clinic, Msg: msg})
	if err != nil {
		return err
	}
	subject := fmt.Sprintf("Pago recibido %s - %s", msg.InvoiceNumber, clinic.Name)
	return m.deliverEmail(ctx, email.Message{To: []string{msg.To}, Subject: subject, HTMLBody: body})
}

func (m *Mailer) SendPaymentSMS(ctx context.Context, msg domain.PaymentSMS) error {
	clinic := m.billing.Get().Clinic
	body := fmt.Sprintf("%s: recibimos su pago de %s para %s. Saldo: %s.",
		clinic.Name, clp.Format(msg.Amount), msg.InvoiceNumber, clp.Format(msg.Balance))
	return m.retry(ctx, func(attemptCtx context.Context) error {
		return m.sms.Send(attemptCtx, msg.To, body)
	})
}

func (m *Mailer) deliverEmail(ctx context.Context, msg email.Message) error {
	if len(msg.To) == 0 || strings.TrimSpace(msg.To[0]) == "" {
		return email.ErrNoRecipients
	}
	return m.retry(ctx, func(attemptCtx context.Context) error {
		return m.email.Send(attemptCtx, msg)
	})
}

// retry runs send with a per-attempt timeout until it succeeds, the retry budget is
// spent or ctx is done.
func (m *Mailer) retry(ctx context.Context, send func(context.Context) error) error {
	settings := m.billing.Get().Notification
	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		attemptCtx, cancel := context.WithTimeout(ctx, settings.AttemptTimeout)
		defer cancel()

		err := send(attemptCtx)
		switch {
		case err == nil:
			return struct{}{}, nil
		case errors.Is(err, email.ErrNoRecipients), errors.Is(err, sms.ErrNoRecipient):
			return struct{}{}, backoff.Permanent(err)
		}
		m.log.Warn("delivery attempt failed", zap.Int("attempt", attempt), zap.Error(err))
		return struct{}{}, err
	}, backoff.WithBackOff(m.newBackOff()), backoff.WithMaxTries(max(settings.MaxRetries, 1)))
	return err
}

func render(name string, data templateData) (string, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

func formatDate(v any) string {
	switch t := v.(type) {
	case time.Time:
		return t.Format("02-01-2006")
	case *time.Time:
		if t == nil {
			return ""
		}
		return t.Format("02-01-2006")
	}
	return ""
}
