// Package report builds the monthly IVA summary declared to the tax authority: debit
// from sales documents, credit from purchase expenses.
package report

import (
	"context"
	"errors"
	"fmt"
	"time"

	auditdomain "github.com/smallbiznis/kinesio/internal/audit/domain"
	expensedomain "github.com/smallbiznis/kinesio/internal/expense/domain"
	"github.com/smallbiznis/kinesio/internal/config"
	invoicedomain "github.com/smallbiznis/kinesio/internal/invoice/domain"
	"github.com/smallbiznis/kinesio/internal/observability/logger"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrInvalidMonth = errors.New("invalid_month")

type Status string

const (
	StatusToPay    Status = "A_PAGAR"
	StatusCarry    Status = "REMANENTE"
	StatusNoChange Status = "SIN_MOVIMIENTO"
)

type IVASummary struct {
	Month            string    `json:"month"`
	From             time.Time `json:"from"`
	To               time.Time `json:"to"`
	SalesCount       int64     `json:"salesCount"`
	CreditNotesCount int64     `json:"creditNotesCount"`
	SalesNet         int64     `json:"salesNet"`
	Debit            int64     `json:"debit"`
	PurchasesCount   int64     `json:"purchasesCount"`
	PurchasesNet     int64     `json:"purchasesNet"`
	Credit           int64     `json:"credit"`
	NetIVA           int64     `json:"netIva"`
	Status           Status    `json:"status"`
}

// Detail is the summary plus the documents behind it.
type Detail struct {
	Summary  IVASummary
	Invoices []invoicedomain.Invoice
	Expenses []expensedomain.Expense
}

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	ExpenseSvc expensedomain.Service
	AuditSvc   auditdomain.Service
	Billing    *config.BillingConfigHolder `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	expenseSvc expensedomain.Service
	auditSvc   auditdomain.Service
	billing    *config.BillingConfigHolder
}

func New(p Params) *Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("report.service"),
		expenseSvc: p.ExpenseSvc,
		auditSvc:   p.AuditSvc,
		billing:    p.Billing,
	}
}

// Location is the clinic time zone months are cut in. Without billing config it is UTC.
func (s *Service) Location() *time.Location {
	if s.billing == nil {
		return time.UTC
	}
	return s.billing.Get().Location()
}

// ParseMonth returns the bounds [from, to) of a "YYYY-MM" month in loc, as UTC instants.
func ParseMonth(month string, loc *time.Location) (time.Time, time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	from, err := time.ParseInLocation("2006-01", month, loc)
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidMonth
	}
	return from.UTC(), from.AddDate(0, 1, 0).UTC(), nil
}

type salesRow struct {
	DocumentType invoicedomain.DocumentType
	Count        int64
	Net          int64
	Tax          int64
}

func (s *Service) MonthlyIVA(ctx context.Context, month string) (IVASummary, error) {
	from, to, err := ParseMonth(month, s.Location())
	if err != nil {
		return IVASummary{}, err
	}

	var rows []salesRow
	err = s.db.WithContext(ctx).Model(&invoicedomain.Invoice{}).
		Select("document_type, COUNT(*) AS count, COALESCE(SUM(subtotal), 0) AS net, COALESCE(SUM(tax), 0) AS tax").
		Where("payment_status <> ?", invoicedomain.StatusCancelled).
		Where("issued_at >= ? AND issued_at < ?", from, to).
		Group("document_type").
		Scan(&rows).Error
	if err != nil {
		return IVASummary{}, fmt.Errorf("aggregate sales: %w", err)
	}

	expenses, err := s.expenseSvc.List(ctx, expensedomain.ListRequest{From: &from, To: &to})
	if err != nil {
		return IVASummary{}, fmt.Errorf("list expenses: %w", err)
	}

	summary := IVASummary{Month: month, From: from, To: to}
	for _, row := range rows {
		if row.DocumentType == invoicedomain.DocumentNotaCredito {
			summary.CreditNotesCount += row.Count
			summary.SalesNet -= row.Net
			summary.Debit -= row.Tax
			continue
		}
		summary.SalesCount += row.Count
		summary.SalesNet += row.Net
		summary.Debit += row.Tax
	}
	for _, e := range expenses {
		summary.PurchasesCount++
		summary.PurchasesNet += e.NetAmount
		summary.Credit += e.TaxAmount
	}
	summary.NetIVA = summary.Debit - summary.Credit
	summary.Status = statusFor(summary.NetIVA)
	return summary, nil
}

func (s *Service) MonthlyDetail(ctx context.Context, month string) (Detail, error) {
	summary, err := s.MonthlyIVA(ctx, month)
	if err != nil {
		return Detail{}, err
	}

	var invoices []invoicedomain.Invoice
	err = s.db.WithContext(ctx).Model(&invoicedomain.Invoice{}).
		Where("issued_at >= ? AND issued_at < ?", summary.From, summary.To).
		Order("issued_at asc, id asc").
		Find(&invoices).Error
	if err != nil {
		return Detail{}, err
	}
	expenses, err := s.expenseSvc.List(ctx, expensedomain.ListRequest{From: &summary.From, To: &summary.To})
	if err != nil {
		return Detail{}, err
	}
	return Detail{Summary: summary, Invoices: invoices, Expenses: expenses}, nil
}

// ExportMonthlyIVA renders the month as an xlsx workbook and audits the export.
func (s *Service) ExportMonthlyIVA(ctx context.Context, month string) ([]byte, string, error) {
	detail, err := s.MonthlyDetail(ctx, month)
	if err != nil {
		return nil, "", err
	}
	data, err := ExportExcel(detail)
	if err != nil {
		logger.WithContext(ctx, s.log).Error("failed to build iva workbook", zap.String("month", month), zap.Error(err))
		return nil, "", err
	}

	s.auditSvc.Record(ctx, auditdomain.Entry{
		Action:   auditdomain.ActionExport,
		Resource: "iva_report",
		Details: map[string]any{
			"month":  month,
			"format": "xlsx",
			"netIva": detail.Summary.NetIVA,
		},
	})
	return data, fmt.Sprintf("iva-%s.xlsx", month), nil
}

func statusFor(net int64) Status {
	switch {
	case net > 0:
		return StatusToPay
	case net < 0:
		return StatusCarry
	default:
		return StatusNoChange
	}
}
