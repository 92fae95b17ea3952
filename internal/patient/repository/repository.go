package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/kinesio/internal/patient/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, p *domain.Patient) error {
	return db.WithContext(ctx).Create(p).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Patient, error) {
	var p domain.Patient
	err := db.WithContext(ctx).Where("id = ?", id).Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repo) FindByRUT(ctx context.Context, db *gorm.DB, rut string) (*domain.Patient, error) {
	var p domain.Patient
	err := db.WithContext(ctx).Where("rut = ?", rut).Take(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.Patient, error) {
	stmt := db.WithContext(ctx).Model(&domain.Patient{})
	if !filter.IncludeDeleted {
		stmt = stmt.Where("deleted_at IS NULL")
	}
	if q := strings.TrimSpace(filter.Query); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		stmt = stmt.Where("LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR rut LIKE ?", like, like, like)
	}
	if filter.Cursor != nil {
		stmt = stmt.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			filter.Cursor.CreatedAt,
			filter.Cursor.CreatedAt,
			filter.Cursor.ID,
		)
	}
	stmt = stmt.Order("created_at desc, id desc")
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit + 1)
	}

	var items []domain.Patient
	if err := stmt.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) SetDeleted(ctx context.Context, db *gorm.DB, id snowflake.ID, deletedAt *time.Time, deletedBy *string, now time.Time) error {
	return db.WithContext(ctx).Model(&domain.Patient{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"deleted_at": deletedAt,
			"deleted_by": deletedBy,
			"updated_at": now,
		}).Error
}

// Purge removes the patient and its clinical records. Invoices are tax documents and
// are kept with their client snapshot; only the link is cleared.
func (r *repo) Purge(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (domain.PurgeResult, error) {
	var result domain.PurgeResult

	records := db.WithContext(ctx).Where("patient_id = ?", id).Delete(&domain.ClinicalRecord{})
	if records.Error != nil {
		return result, records.Error
	}
	result.ClinicalRecords = records.RowsAffected

	invoices := db.WithContext(ctx).Exec(
		`UPDATE invoices SET patient_id = NULL, updated_at = ? WHERE patient_id = ?`,
		now, id,
	)
	if invoices.Error != nil {
		return result, invoices.Error
	}
	result.DetachedInvoices = invoices.RowsAffected

	if err := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Patient{}).Error; err != nil {
		return result, err
	}
	return result, nil
}

func (r *repo) InsertRecord(ctx context.Context, db *gorm.DB, rec *domain.ClinicalRecord) error {
	return db.WithContext(ctx).Create(rec).Error
}

func (r *repo) ListRecords(ctx context.Context, db *gorm.DB, patientID snowflake.ID) ([]domain.ClinicalRecord, error) {
	var items []domain.ClinicalRecord
	err := db.WithContext(ctx).
		Where("patient_id = ?", patientID).
		Order("recorded_at desc, id desc").
		Find(&items).Error
	return items, err
}
