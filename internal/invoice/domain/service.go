package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	paymentdomain "github.com/smallbiznis/kinesio/internal/payment/domain"
)

type CreateItemRequest struct {
	Description    string          `json:"description"`
	Quantity       decimal.Decimal `json:"quantity"`
	UnitPrice      int64           `json:"unitPrice"`
	Discount       int64           `json:"discount"`
	ServicePriceID *snowflake.ID   `json:"servicePriceId,omitempty"`
}

type CreateInvoiceRequest struct {
	DocumentType  string              `json:"invoiceType"`
	PatientID     *snowflake.ID       `json:"patientId,omitempty"`
	ClientName    string              `json:"clientName"`
	ClientRUT     string              `json:"clientRut"`
	ClientEmail   string              `json:"clientEmail"`
	ClientAddress string              `json:"clientAddress"`
	ClientPhone   string              `json:"clientPhone"`
	Items         []CreateItemRequest `json:"items"`
	DueDate       *Day                `json:"dueDate,omitempty"`
	Notes         string              `json:"notes"`
	MPPaymentID   string              `json:"mpPaymentId"`
}

type ListInvoicesRequest struct {
	PatientID     *snowflake.ID
	PaymentStatus string
	MPPaymentID   string
	IssuedFrom    *time.Time
	IssuedTo      *time.Time
	Limit         int
}

type RegisterPaymentRequest struct {
	InvoiceID snowflake.ID
	Amount    int64  `json:"amount"`
	Method    string `json:"method"`
	Reference string `json:"reference"`
	Notes     string `json:"notes"`
}

type StatsRequest struct {
	IssuedFrom *time.Time
	IssuedTo   *time.Time
}

type Bucket struct {
	Count  int64 `json:"count"`
	Amount int64 `json:"amount"`
}

// Stats aggregates non-cancelled invoices. Pending includes PARTIAL invoices and
// its amount is the outstanding balance.
type Stats struct {
	Total   Bucket `json:"total"`
	Pending Bucket `json:"pending"`
	Paid    Bucket `json:"paid"`
	Overdue Bucket `json:"overdue"`
}

// PaymentResult carries the updated invoice and the payment just recorded.
type PaymentResult struct {
	Invoice Invoice               `json:"invoice"`
	Payment paymentdomain.Payment `json:"payment"`
}

type Service interface {
	CreateInvoice(ctx context.Context, req CreateInvoiceRequest) (*Invoice, error)
	GetInvoice(ctx context.Context, id snowflake.ID) (*Invoice, error)
	ListInvoices(ctx context.Context, req ListInvoicesRequest) ([]Invoice, error)
	RegisterPayment(ctx context.Context, req RegisterPaymentRequest) (*PaymentResult, error)
	CancelInvoice(ctx context.Context, id snowflake.ID, reason string) (*Invoice, error)
	GetInvoiceStats(ctx context.Context, req StatsRequest) (Stats, error)
	SweepOverdue(ctx context.Context, now time.Time) (int64, error)
	RenderInvoicePDF(ctx context.Context, id snowflake.ID) ([]byte, error)
}
