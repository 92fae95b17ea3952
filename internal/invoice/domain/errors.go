package domain

import "errors"

var (
	ErrNotFound             = errors.New("invoice_not_found")
	ErrInvalidDocumentType  = errors.New("invalid_document_type")
	ErrInvalidPaymentStatus = errors.New("invalid_payment_status")
	ErrEmptyItems           = errors.New("empty_items")
	ErrInvalidDescription   = errors.New("invalid_item_description")
	ErrMissingClient        = errors.New("missing_client")
	ErrInvalidClientRUT     = errors.New("invalid_client_rut")
	ErrInvalidDueDate       = errors.New("invalid_due_date")
	ErrInvalidAmount        = errors.New("invalid_amount")
	ErrZeroTotal            = errors.New("invalid_total")
	ErrOverpayment          = errors.New("overpayment")
	ErrInvoiceCancelled     = errors.New("invoice_cancelled")
	ErrInvoiceAlreadyPaid   = errors.New("invoice_already_paid")
	ErrInvalidDateRange     = errors.New("invalid_date_range")
	ErrNumberAllocation     = errors.New("invoice_number_allocation_failed")
	ErrPatientNotFound      = errors.New("patient_not_found")
	ErrServicePriceNotFound = errors.New("service_price_not_found")
)
