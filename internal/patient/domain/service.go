package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/kinesio/pkg/db/pagination"
	"gorm.io/gorm"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Patient, error)
	Get(ctx context.Context, req GetRequest) (*Patient, error)
	List(ctx context.Context, req ListRequest) (ListResponse, error)
	SoftDelete(ctx context.Context, id string) (*Patient, error)
	Restore(ctx context.Context, id string) (*Patient, error)
	HardDelete(ctx context.Context, id string) error
	RetentionUnlockAt(p Patient) (time.Time, bool)
	AddClinicalRecord(ctx context.Context, req AddRecordRequest) (*ClinicalRecord, error)
	ListClinicalRecords(ctx context.Context, patientID string) ([]ClinicalRecord, error)
}

type CreateRequest struct {
	RUT       string     `json:"rut"`
	FirstName string     `json:"firstName"`
	LastName  string     `json:"lastName"`
	Email     string     `json:"email"`
	Phone     string     `json:"phone"`
	Address   string     `json:"address"`
	BirthDate *time.Time `json:"birthDate"`
}

type GetRequest struct {
	ID             string
	IncludeDeleted bool
}

type ListRequest struct {
	Query          string
	IncludeDeleted bool
	pagination.Pagination
}

type ListResponse struct {
	Patients []Patient           `json:"patients"`
	PageInfo pagination.PageInfo `json:"page_info"`
}

type AddRecordRequest struct {
	PatientID  string     `json:"-"`
	Kind       string     `json:"kind"`
	Notes      string     `json:"notes"`
	RecordedAt *time.Time `json:"recordedAt"`
}

type ListFilter struct {
	Query          string
	IncludeDeleted bool
	Cursor         *pagination.Cursor
	Limit          int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, p *Patient) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Patient, error)
	FindByRUT(ctx context.Context, db *gorm.DB, rut string) (*Patient, error)
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]Patient, error)
	SetDeleted(ctx context.Context, db *gorm.DB, id snowflake.ID, deletedAt *time.Time, deletedBy *string, now time.Time) error
	Purge(ctx context.Context, db *gorm.DB, id snowflake.ID, now time.Time) (PurgeResult, error)
	InsertRecord(ctx context.Context, db *gorm.DB, r *ClinicalRecord) error
	ListRecords(ctx context.Context, db *gorm.DB, patientID snowflake.ID) ([]ClinicalRecord, error)
}

type PurgeResult struct {
	ClinicalRecords  int64
	DetachedInvoices int64
}
