package service

import (
	"context"
	"strings"

	"github.com/samber/lo"
	"github.com/smallbiznis/kinesio/internal/invoice/domain"
	notificationdomain "github.com/smallbiznis/kinesio/internal/notification/domain"
	paymentdomain "github.com/smallbiznis/kinesio/internal/payment/domain"
)

// notifyInvoice queues the invoice email when the client has an address.
func (s *Service) notifyInvoice(ctx context.Context, inv *domain.Invoice) {
	msg, ok := invoiceEmail(inv)
	if !ok {
		return
	}
	s.publisher.Publish(ctx, notificationdomain.Notification{
		Kind:         notificationdomain.KindInvoiceEmail,
		InvoiceEmail: &msg,
	})
}

// notifyPayment sends the settled invoice once fully paid and a payment confirmation
// otherwise. The SMS receipt is independent of the email.
func (s *Service) notifyPayment(ctx context.Context, inv *domain.Invoice, p paymentdomain.Payment) {
	if inv.PaymentStatus == domain.StatusPaid {
		s.notifyInvoice(ctx, inv)
	} else if to := inv.RecipientEmail(); to != "" {
		s.publisher.Publish(ctx, notificationdomain.Notification{
			Kind: notificationdomain.KindPaymentConfirmation,
			PaymentConfirmation: &notificationdomain.PaymentConfirmationEmail{
				To:            to,
				ClientName:    lo.FromPtr(inv.ClientName),
				InvoiceNumber: inv.Number,
				Amount:        p.Amount,
				Method:        p.Method.Label(),
				Reference:     lo.FromPtr(p.Reference),
				PaidAt:        p.PaidAt,
				PaidAmount:    inv.PaidAmount,
				Total:         inv.Total,
				Balance:       inv.Balance(),
				Status:        string(inv.PaymentStatus),
			},
		})
	}

	phone := strings.TrimSpace(lo.FromPtr(inv.ClientPhone))
	if phone == "" || !s.billing.Get().Notification.SMSEnabled {
		return
	}
	s.publisher.Publish(ctx, notificationdomain.Notification{
		Kind: notificationdomain.KindPaymentSMS,
		PaymentSMS: &notificationdomain.PaymentSMS{
			To:            phone,
			ClientName:    lo.FromPtr(inv.ClientName),
			InvoiceNumber: inv.Number,
			Amount:        p.Amount,
			Balance:       inv.Balance(),
		},
	})
}

func invoiceEmail(inv *domain.Invoice) (notificationdomain.InvoiceEmail, bool) {
	to := inv.RecipientEmail()
	if to == "" {
		return notificationdomain.InvoiceEmail{}, false
	}
	return notificationdomain.InvoiceEmail{
		To:            to,
		ClientName:    lo.FromPtr(inv.ClientName),
		DocumentLabel: inv.DocumentType.Label(),
		InvoiceNumber: inv.Number,
		IssuedAt:      inv.IssuedAt,
		DueDate:       inv.DueDate,
		Items: lo.Map(inv.Items, func(item domain.InvoiceItem, _ int) notificationdomain.LineItem {
			return notificationdomain.LineItem{
				Description: item.Description,
				Quantity:    item.Quantity.String(),
				UnitPrice:   item.UnitPrice,
				Discount:    item.Discount,
				Subtotal:    item.Subtotal,
			}
		}),
		Subtotal:   inv.Subtotal,
		Tax:        inv.Tax,
		Total:      inv.Total,
		PaidAmount: inv.PaidAmount,
		Balance:    inv.Balance(),
		Status:     string(inv.PaymentStatus),
	}, true
}
