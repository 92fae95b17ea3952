// Package domain defines the notifications sent after ledger mutations. Payloads are
// fully resolved display data; delivering them never touches the database.
package domain

import (
	"context"
	"time"
)

type Kind string

const (
	KindInvoiceEmail        Kind = "invoice_email"
	KindPaymentConfirmation Kind = "payment_confirmation_email"
	KindPaymentSMS          Kind = "payment_sms"
)

type LineItem struct {
	Description string
	Quantity    string
	UnitPrice   int64
	Discount    int64
	Subtotal    int64
}

type InvoiceEmail struct {
	To            string
	ClientName    string
	DocumentLabel string
	InvoiceNumber string
	IssuedAt      time.Time
	DueDate       *time.Time
	Items         []LineItem
	Subtotal      int64
	Tax           int64
	Total         int64
	PaidAmount    int64
	Balance       int64
	Status        string
}

type PaymentConfirmationEmail struct {
	To            string
	ClientName    string
	InvoiceNumber string
	Amount        int64
	Method        string
	Reference     string
	PaidAt        time.Time
	PaidAmount    int64
	Total         int64
	Balance       int64
	Status        string
}

type PaymentSMS struct {
	To            string
	ClientName    string
	InvoiceNumber string
	Amount        int64
	Balance       int64
}

// Dispatcher delivers a single notification and reports the outcome.
type Dispatcher interface {
	SendInvoiceEmail(ctx context.Context, msg InvoiceEmail) error
	SendPaymentConfirmationEmail(ctx context.Context, msg PaymentConfirmationEmail) error
	SendPaymentSMS(ctx context.Context, msg PaymentSMS) error
}

// Notification is one queued delivery. Exactly one payload is set, matching Kind.
type Notification struct {
	Kind                Kind
	InvoiceEmail        *InvoiceEmail
	PaymentConfirmation *PaymentConfirmationEmail
	PaymentSMS          *PaymentSMS
}

// Publisher schedules notifications after a transaction commits. Publish never
// blocks on delivery and never reports delivery errors.
type Publisher interface {
	Publish(ctx context.Context, n Notification)
}
