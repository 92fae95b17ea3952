// Package domain contains persistence models and contracts for invoicing.
package domain

import (
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	paymentdomain "github.com/smallbiznis/kinesio/internal/payment/domain"
)

type DocumentType string

const (
	DocumentBoleta      DocumentType = "BOLETA"
	DocumentFactura     DocumentType = "FACTURA"
	DocumentNotaCredito DocumentType = "NOTA_CREDITO"
	DocumentNotaDebito  DocumentType = "NOTA_DEBITO"
)

func ParseDocumentType(raw string) (DocumentType, error) {
	dt := DocumentType(strings.ToUpper(strings.TrimSpace(raw)))
	switch dt {
	case DocumentBoleta, DocumentFactura, DocumentNotaCredito, DocumentNotaDebito:
		return dt, nil
	}
	return "", ErrInvalidDocumentType
}

// Label is the Spanish document name printed on PDFs and emails.
func (d DocumentType) Label() string {
	switch d {
	case DocumentBoleta:
		return "Boleta"
	case DocumentFactura:
		return "Factura"
	case DocumentNotaCredito:
		return "Nota de crédito"
	case DocumentNotaDebito:
		return "Nota de débito"
	}
	return string(d)
}

type PaymentStatus string

const (
	StatusPending   PaymentStatus = "PENDING"
	StatusPartial   PaymentStatus = "PARTIAL"
	StatusPaid      PaymentStatus = "PAID"
	StatusOverdue   PaymentStatus = "OVERDUE"
	StatusCancelled PaymentStatus = "CANCELLED"
)

func ParsePaymentStatus(raw string) (PaymentStatus, error) {
	st := PaymentStatus(strings.ToUpper(strings.TrimSpace(raw)))
	switch st {
	case StatusPending, StatusPartial, StatusPaid, StatusOverdue, StatusCancelled:
		return st, nil
	}
	return "", ErrInvalidPaymentStatus
}

// Invoice is a tax document. Subtotal, Tax and Total are fixed at creation; only
// payment registration and cancellation mutate it afterwards.
type Invoice struct {
	ID            snowflake.ID            `gorm:"primaryKey" json:"id"`
	Number        string                  `gorm:"type:text;not null;uniqueIndex:ux_invoices_type_number,priority:2" json:"number"`
	DocumentType  DocumentType            `gorm:"type:text;not null;uniqueIndex:ux_invoices_type_number,priority:1" json:"invoiceType"`
	PatientID     *snowflake.ID           `gorm:"index" json:"patientId,omitempty"`
	ClientRUT     *string                 `gorm:"type:text" json:"clientRut,omitempty"`
	ClientName    *string                 `gorm:"type:text" json:"clientName,omitempty"`
	ClientEmail   *string                 `gorm:"type:text" json:"clientEmail,omitempty"`
	ClientAddress *string                 `gorm:"type:text" json:"clientAddress,omitempty"`
	ClientPhone   *string                 `gorm:"type:text" json:"clientPhone,omitempty"`
	Subtotal      int64                   `gorm:"not null" json:"subtotal"`
	TaxRate       float64                 `gorm:"not null" json:"taxRate"`
	Tax           int64                   `gorm:"not null" json:"tax"`
	Total         int64                   `gorm:"not null" json:"total"`
	PaidAmount    int64                   `gorm:"not null;default:0" json:"paidAmount"`
	PaymentStatus PaymentStatus           `gorm:"type:text;not null;index" json:"paymentStatus"`
	IssuedAt      time.Time               `gorm:"not null;index" json:"issuedAt"`
	DueDate       *time.Time              `json:"dueDate,omitempty"`
	PaidAt        *time.Time              `json:"paidAt,omitempty"`
	CancelledAt   *time.Time              `json:"cancelledAt,omitempty"`
	Notes         *string                 `gorm:"type:text" json:"notes,omitempty"`
	MPPaymentID   *string                 `gorm:"type:text;index" json:"mpPaymentId,omitempty"`
	CreatedBy     *string                 `gorm:"type:text" json:"createdBy,omitempty"`
	CreatedAt     time.Time               `gorm:"not null" json:"createdAt"`
	UpdatedAt     time.Time               `gorm:"not null" json:"updatedAt"`
	Items         []InvoiceItem           `gorm:"foreignKey:InvoiceID" json:"items"`
	Payments      []paymentdomain.Payment `gorm:"foreignKey:InvoiceID" json:"payments"`
}

func (Invoice) TableName() string { return "invoices" }

// Balance is the amount still owed.
func (i Invoice) Balance() int64 {
	if i.PaidAmount >= i.Total {
		return 0
	}
	return i.Total - i.PaidAmount
}

// RecipientEmail prefers the client email typed on the document.
func (i Invoice) RecipientEmail() string {
	if i.ClientEmail != nil {
		return strings.TrimSpace(*i.ClientEmail)
	}
	return ""
}

type InvoiceItem struct {
	ID             snowflake.ID    `gorm:"primaryKey" json:"id"`
	InvoiceID      snowflake.ID    `gorm:"not null;index" json:"invoiceId"`
	Position       int             `gorm:"not null" json:"position"`
	Description    string          `gorm:"type:text;not null" json:"description"`
	Quantity       decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"quantity"`
	UnitPrice      int64           `gorm:"not null" json:"unitPrice"`
	Discount       int64           `gorm:"not null;default:0" json:"discount"`
	Subtotal       int64           `gorm:"not null" json:"subtotal"`
	ServicePriceID *snowflake.ID   `gorm:"index" json:"servicePriceId,omitempty"`
	CreatedAt      time.Time       `gorm:"not null" json:"createdAt"`
}

func (InvoiceItem) TableName() string { return "invoice_items" }

// Sequence stores the last number issued per document type.
type Sequence struct {
	DocumentType DocumentType `gorm:"primaryKey;type:text"`
	LastValue    int64        `gorm:"not null;default:0"`
	UpdatedAt    time.Time    `gorm:"not null"`
}

func (Sequence) TableName() string { return "invoice_sequences" }
