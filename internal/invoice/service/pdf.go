package service

import (
	"context"
	"fmt"

	"github.com/bwmarrin/snowflake"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	auditdomain "github.com/smallbiznis/kinesio/internal/audit/domain"
	"github.com/smallbiznis/kinesio/internal/config"
	"github.com/smallbiznis/kinesio/internal/invoice/domain"
	paymentdomain "github.com/smallbiznis/kinesio/internal/payment/domain"
	"github.com/smallbiznis/kinesio/internal/providers/pdf"
	"github.com/smallbiznis/kinesio/pkg/clp"
	"github.com/smallbiznis/kinesio/pkg/rut"
)

const pdfDateLayout = "02-01-2006"

func (s *Service) RenderInvoicePDF(ctx context.Context, id snowflake.ID) ([]byte, error) {
	inv, err := s.GetInvoice(ctx, id)
	if err != nil {
		return nil, err
	}

	doc, err := s.renderer.RenderInvoice(ctx, pdfData(*inv, s.billing.Get().Clinic))
	if err != nil {
		return nil, fmt.Errorf("render invoice %s: %w", inv.Number, err)
	}

	s.auditSvc.Record(ctx, auditdomain.Entry{
		Action:     auditdomain.ActionExport,
		Resource:   auditInvoice,
		ResourceID: inv.ID.String(),
		PatientID:  inv.PatientID,
		Details:    map[string]any{"number": inv.Number, "format": "pdf"},
	})
	return doc, nil
}

func pdfData(inv domain.Invoice, clinic config.ClinicProfile) pdf.InvoiceData {
	data := pdf.InvoiceData{
		ClinicName:    clinic.Name,
		ClinicRUT:     clinic.RUT,
		ClinicAddress: clinic.Address,
		ClinicEmail:   clinic.Email,
		ClinicPhone:   clinic.Phone,
		DocumentLabel: inv.DocumentType.Label(),
		InvoiceNumber: inv.Number,
		IssueDate:     inv.IssuedAt.Format(pdfDateLayout),
		DueDate:       "-",
		Status:        string(inv.PaymentStatus),
		ClientName:    lo.FromPtr(inv.ClientName),
		ClientAddress: lo.FromPtr(inv.ClientAddress),
		ClientEmail:   lo.FromPtr(inv.ClientEmail),
		Subtotal:      clp.Format(inv.Subtotal),
		TaxLabel:      "IVA " + decimal.NewFromFloat(inv.TaxRate).Shift(2).String() + "%",
		Tax:           clp.Format(inv.Tax),
		Total:         clp.Format(inv.Total),
		PaidAmount:    clp.Format(inv.PaidAmount),
		Balance:       clp.Format(inv.Balance()),
		Notes:         lo.FromPtr(inv.Notes),
	}
	if inv.DueDate != nil {
		data.DueDate = inv.DueDate.Format(pdfDateLayout)
	}
	if inv.ClientRUT != nil {
		data.ClientRUT = rut.Format(*inv.ClientRUT)
	}
	data.Items = lo.Map(inv.Items, func(item domain.InvoiceItem, _ int) pdf.InvoiceItem {
		return pdf.InvoiceItem{
			Description: item.Description,
			Quantity:    item.Quantity.String(),
			UnitPrice:   clp.Format(item.UnitPrice),
			Discount:    clp.Format(item.Discount),
			Subtotal:    clp.Format(item.Subtotal),
		}
	})
	data.Payments = lo.Map(inv.Payments, func(p paymentdomain.Payment, _ int) pdf.PaymentLine {
		return pdf.PaymentLine{
			Date:      p.PaidAt.Format(pdfDateLayout),
			Method:    p.Method.Label(),
			Reference: lo.FromPtr(p.Reference),
			Amount:    clp.Format(p.Amount),
		}
	})
	return data
}
