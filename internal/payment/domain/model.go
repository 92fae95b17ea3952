// Package domain holds the payment records registered against invoices.
package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Method string

const (
	MethodCash        Method = "CASH"
	MethodCard        Method = "CARD"
	MethodTransfer    Method = "TRANSFER"
	MethodMercadoPago Method = "MERCADOPAGO"
	MethodCheck       Method = "CHECK"
)

var ErrInvalidMethod = errors.New("invalid_payment_method")

func ParseMethod(raw string) (Method, error) {
	m := Method(strings.ToUpper(strings.TrimSpace(raw)))
	switch m {
	case MethodCash, MethodCard, MethodTransfer, MethodMercadoPago, MethodCheck:
		return m, nil
	}
	return "", ErrInvalidMethod
}

// Label is the Spanish display name used in receipts.
func (m Method) Label() string {
	switch m {
	case MethodCash:
		return "Efectivo"
	case MethodCard:
		return "Tarjeta"
	case MethodTransfer:
		return "Transferencia"
	case MethodMercadoPago:
		return "Mercado Pago"
	case MethodCheck:
		return "Cheque"
	}
	return string(m)
}

// Payment is append-only. The invoice paid amount is always the sum of its payments.
type Payment struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	InvoiceID  snowflake.ID `gorm:"not null;index" json:"invoiceId"`
	Amount     int64        `gorm:"not null" json:"amount"`
	Method     Method       `gorm:"type:text;not null" json:"method"`
	Reference  *string      `gorm:"type:text" json:"reference,omitempty"`
	Notes      *string      `gorm:"type:text" json:"notes,omitempty"`
	RecordedBy *string      `gorm:"type:text" json:"recordedBy,omitempty"`
	PaidAt     time.Time    `gorm:"not null" json:"paidAt"`
	CreatedAt  time.Time    `gorm:"not null" json:"createdAt"`
}

func (Payment) TableName() string { return "payments" }
