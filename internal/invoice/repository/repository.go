package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/kinesio/internal/invoice/domain"
	paymentdomain "github.com/smallbiznis/kinesio/internal/payment/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Filter struct {
	PatientID     *snowflake.ID
	PaymentStatus domain.PaymentStatus
	MPPaymentID   string
	IssuedFrom    *time.Time
	IssuedTo      *time.Time
	Limit         int
}

// StatusTotals is one row of the per-status aggregate.
type StatusTotals struct {
	PaymentStatus domain.PaymentStatus
	Count         int64
	Total         int64
	Paid          int64
}

type Repository interface {
	Insert(ctx context.Context, tx *gorm.DB, inv *domain.Invoice) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID, forUpdate bool) (*domain.Invoice, error)
	List(ctx context.Context, db *gorm.DB, filter Filter) ([]domain.Invoice, error)
	InsertPayment(ctx context.Context, tx *gorm.DB, p *paymentdomain.Payment) error
	SumPayments(ctx context.Context, tx *gorm.DB, invoiceID snowflake.ID) (int64, error)
	UpdatePaymentState(ctx context.Context, tx *gorm.DB, inv *domain.Invoice) error
	Cancel(ctx context.Context, tx *gorm.DB, inv *domain.Invoice) error
	TotalsByStatus(ctx context.Context, db *gorm.DB, from, to *time.Time) ([]StatusTotals, error)
	MarkOverdue(ctx context.Context, db *gorm.DB, now time.Time) (int64, error)
}

type repo struct{}

func Provide() Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, tx *gorm.DB, inv *domain.Invoice) error {
	if err := tx.WithContext(ctx).Omit(clause.Associations).Create(inv).Error; err != nil {
		return err
	}
	if len(inv.Items) == 0 {
		return nil
	}
	return tx.WithContext(ctx).Create(&inv.Items).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID, forUpdate bool) (*domain.Invoice, error) {
	stmt := db.WithContext(ctx)
	if forUpdate {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var inv domain.Invoice
	err := stmt.Where("id = ?", id).Take(&inv).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := loadRelations(ctx, db, []*domain.Invoice{&inv}); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter Filter) ([]domain.Invoice, error) {
	stmt := db.WithContext(ctx).Model(&domain.Invoice{})
	if filter.PatientID != nil {
		stmt = stmt.Where("patient_id = ?", *filter.PatientID)
	}
	if filter.PaymentStatus != "" {
		stmt = stmt.Where("payment_status = ?", filter.PaymentStatus)
	}
	if filter.MPPaymentID != "" {
		stmt = stmt.Where("mp_payment_id = ?", filter.MPPaymentID)
	}
	stmt = issuedBetween(stmt, filter.IssuedFrom, filter.IssuedTo)

	var invoices []domain.Invoice
	if err := stmt.Order("issued_at desc, id desc").Limit(filter.Limit).Find(&invoices).Error; err != nil {
		return nil, err
	}

	ptrs := make([]*domain.Invoice, len(invoices))
	for i := range invoices {
		ptrs[i] = &invoices[i]
	}
	if err := loadRelations(ctx, db, ptrs); err != nil {
		return nil, err
	}
	return invoices, nil
}

// loadRelations attaches items and payments with two queries for the whole page.
func loadRelations(ctx context.Context, db *gorm.DB, invoices []*domain.Invoice) error {
	if len(invoices) == 0 {
		return nil
	}
	ids := make([]snowflake.ID, len(invoices))
	byID := make(map[snowflake.ID]*domain.Invoice, len(invoices))
	for i, inv := range invoices {
		ids[i] = inv.ID
		byID[inv.ID] = inv
		inv.Items = []domain.InvoiceItem{}
		inv.Payments = []paymentdomain.Payment{}
	}

	var items []domain.InvoiceItem
	if err := db.WithContext(ctx).Where("invoice_id IN ?", ids).Order("invoice_id, position").Find(&items).Error; err != nil {
		return err
	}
	for _, item := range items {
		if inv := byID[item.InvoiceID]; inv != nil {
			inv.Items = append(inv.Items, item)
		}
	}

	var payments []paymentdomain.Payment
	if err := db.WithContext(ctx).Where("invoice_id IN ?", ids).Order("paid_at, id").Find(&payments).Error; err != nil {
		return err
	}
	for _, p := range payments {
		if inv := byID[p.InvoiceID]; inv != nil {
			inv.Payments = append(inv.Payments, p)
		}
	}
	return nil
}

func (r *repo) InsertPayment(ctx context.Context, tx *gorm.DB, p *paymentdomain.Payment) error {
	return tx.WithContext(ctx).Create(p).Error
}

func (r *repo) SumPayments(ctx context.Context, tx *gorm.DB, invoiceID snowflake.ID) (int64, error) {
	var sum int64
	err := tx.WithContext(ctx).Model(&paymentdomain.Payment{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("invoice_id = ?", invoiceID).
		Scan(&sum).Error
	return sum, err
}

func (r *repo) UpdatePaymentState(ctx context.Context, tx *gorm.DB, inv *domain.Invoice) error {
	return tx.WithContext(ctx).Model(&domain.Invoice{}).
		Where("id = ?", inv.ID).
		Updates(map[string]any{
			"paid_amount":    inv.PaidAmount,
			"payment_status": inv.PaymentStatus,
			"paid_at":        inv.PaidAt,
			"updated_at":     inv.UpdatedAt,
		}).Error
}

func (r *repo) Cancel(ctx context.Context, tx *gorm.DB, inv *domain.Invoice) error {
	return tx.WithContext(ctx).Model(&domain.Invoice{}).
		Where("id = ?", inv.ID).
		Updates(map[string]any{
			"payment_status": domain.StatusCancelled,
			"cancelled_at":   inv.CancelledAt,
			"notes":          inv.Notes,
			"updated_at":     inv.UpdatedAt,
		}).Error
}

func (r *repo) TotalsByStatus(ctx context.Context, db *gorm.DB, from, to *time.Time) ([]StatusTotals, error) {
	stmt := db.WithContext(ctx).Model(&domain.Invoice{}).
		Select("payment_status, COUNT(*) AS count, COALESCE(SUM(total), 0) AS total, COALESCE(SUM(paid_amount), 0) AS paid").
		Where("payment_status <> ?", domain.StatusCancelled)
	stmt = issuedBetween(stmt, from, to)

	var rows []StatusTotals
	if err := stmt.Group("payment_status").Order("payment_status").Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repo) MarkOverdue(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).Model(&domain.Invoice{}).
		Where("payment_status IN ?", []domain.PaymentStatus{domain.StatusPending, domain.StatusPartial}).
		Where("due_date IS NOT NULL AND due_date < ?", now).
		Updates(map[string]any{
			"payment_status": domain.StatusOverdue,
			"updated_at":     now,
		})
	return res.RowsAffected, res.Error
}

func issuedBetween(stmt *gorm.DB, from, to *time.Time) *gorm.DB {
	if from != nil {
		stmt = stmt.Where("issued_at >= ?", from.UTC())
	}
	if to != nil {
		stmt = stmt.Where("issued_at < ?", to.UTC())
	}
	return stmt
}
