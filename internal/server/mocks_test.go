package server

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	invoicedomain "github.com/smallbiznis/kinesio/internal/invoice/domain"
	patientdomain "github.com/smallbiznis/kinesio/internal/patient/domain"
	"github.com/stretchr/testify/mock"
)

type mockInvoiceService struct {
	mock.Mock
}

func (m *mockInvoiceService) CreateInvoice(ctx context.Context, req invoicedomain.CreateInvoiceRequest) (*invoicedomain.Invoice, error) {
	args := m.Called(ctx, req)
	inv, _ := args.Get(0).(*invoicedomain.Invoice)
	return inv, args.Error(1)
}

func (m *mockInvoiceService) GetInvoice(ctx context.Context, id snowflake.ID) (*invoicedomain.Invoice, error) {
	args := m.Called(ctx, id)
	inv, _ := args.Get(0).(*invoicedomain.Invoice)
	return inv, args.Error(1)
}

func (m *mockInvoiceService) ListInvoices(ctx context.Context, req invoicedomain.ListInvoicesRequest) ([]invoicedomain.Invoice, error) {
	args := m.Called(ctx, req)
	invs, _ := args.Get(0).([]invoicedomain.Invoice)
	return invs, args.Error(1)
}

func (m *mockInvoiceService) RegisterPayment(ctx context.Context, req invoicedomain.RegisterPaymentRequest) (*invoicedomain.PaymentResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*invoicedomain.PaymentResult)
	return res, args.Error(1)
}

func (m *mockInvoiceService) CancelInvoice(ctx context.Context, id snowflake.ID, reason string) (*invoicedomain.Invoice, error) {
	args := m.Called(ctx, id, reason)
	inv, _ := args.Get(0).(*invoicedomain.Invoice)
	return inv, args.Error(1)
}

func (m *mockInvoiceService) GetInvoiceStats(ctx context.Context, req invoicedomain.StatsRequest) (invoicedomain.Stats, error) {
	args := m.Called(ctx, req)
	stats, _ := args.Get(0).(invoicedomain.Stats)
	return stats, args.Error(1)
}

func (m *mockInvoiceService) SweepOverdue(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockInvoiceService) RenderInvoicePDF(ctx context.Context, id snowflake.ID) ([]byte, error) {
	args := m.Called(ctx, id)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}

type mockPatientService struct {
	mock.Mock
}

func (m *mockPatientService) Create(ctx context.Context, req patientdomain.CreateRequest) (*patientdomain.Patient, error) {
	args := m.Called(ctx, req)
	p, _ := args.Get(0).(*patientdomain.Patient)
	return p, args.Error(1)
}

func (m *mockPatientService) Get(ctx context.Context, req patientdomain.GetRequest) (*patientdomain.Patient, error) {
	args := m.Called(ctx, req)
	p, _ := args.Get(0).(*patientdomain.Patient)
	return p, args.Error(1)
}

func (m *mockPatientService) List(ctx context.Context, req patientdomain.ListRequest) (patientdomain.ListResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(patientdomain.ListResponse)
	return resp, args.Error(1)
}

func (m *mockPatientService) SoftDelete(ctx context.Context, id string) (*patientdomain.Patient, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*patientdomain.Patient)
	return p, args.Error(1)
}

func (m *mockPatientService) Restore(ctx context.Context, id string) (*patientdomain.Patient, error) {
	args := m.Called(ctx, id)
	p, _ := args.Get(0).(*patientdomain.Patient)
	return p, args.Error(1)
}

func (m *mockPatientService) HardDelete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockPatientService) RetentionUnlockAt(p patientdomain.Patient) (time.Time, bool) {
	args := m.Called(p)
	return args.Get(0).(time.Time), args.Bool(1)
}

func (m *mockPatientService) AddClinicalRecord(ctx context.Context, req patientdomain.AddRecordRequest) (*patientdomain.ClinicalRecord, error) {
	args := m.Called(ctx, req)
	r, _ := args.Get(0).(*patientdomain.ClinicalRecord)
	return r, args.Error(1)
}

func (m *mockPatientService) ListClinicalRecords(ctx context.Context, patientID string) ([]patientdomain.ClinicalRecord, error) {
	args := m.Called(ctx, patientID)
	records, _ := args.Get(0).([]patientdomain.ClinicalRecord)
	return records, args.Error(1)
}
