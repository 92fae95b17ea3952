package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	auditdomain "github.com/smallbiznis/kinesio/internal/audit/domain"
	"github.com/smallbiznis/kinesio/internal/clock"
	"github.com/smallbiznis/kinesio/internal/config"
	"github.com/smallbiznis/kinesio/internal/crypto/fieldcrypt"
	"github.com/smallbiznis/kinesio/internal/observability/logger"
	"github.com/smallbiznis/kinesio/internal/patient/domain"
	"github.com/smallbiznis/kinesio/internal/requestctx"
	dbpkg "github.com/smallbiznis/kinesio/pkg/db"
	"github.com/smallbiznis/kinesio/pkg/db/pagination"
	"github.com/smallbiznis/kinesio/pkg/rut"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	auditPatient = "patient"
	auditRecord  = "clinical_record"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Cipher   *fieldcrypt.Cipher
	Billing  *config.BillingConfigHolder
	AuditSvc auditdomain.Service
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	cipher   *fieldcrypt.Cipher
	billing  *config.BillingConfigHolder
	auditSvc auditdomain.Service
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("patient.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		cipher:   p.Cipher,
		billing:  p.Billing,
		auditSvc: p.AuditSvc,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (*domain.Patient, error) {
	firstName := strings.TrimSpace(req.FirstName)
	if firstName == "" {
		return nil, domain.ErrInvalidName
	}

	var rutPtr *string
	if raw := strings.TrimSpace(req.RUT); raw != "" {
		normalized, err := rut.Normalize(raw)
		if err != nil {
			return nil, domain.ErrInvalidRUT
		}
		existing, err := s.repo.FindByRUT(ctx, s.db, normalized)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return nil, domain.ErrConflict
		}
		rutPtr = &normalized
	}

	now := s.clock.Now()
	p := &domain.Patient{
		ID:        s.genID.Generate(),
		RUT:       rutPtr,
		FirstName: firstName,
		LastName:  strings.TrimSpace(req.LastName),
		Email:     optional(strings.ToLower(req.Email)),
		Phone:     optional(req.Phone),
		Address:   optional(req.Address),
		BirthDate: req.BirthDate,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.Insert(ctx, s.db, p); err != nil {
		if dbpkg.IsDuplicateKeyErr(err) {
			return nil, domain.ErrConflict
		}
		return nil, err
	}

	s.auditSvc.Record(ctx, auditdomain.Entry{
		Action:     auditdomain.ActionCreate,
		Resource:   auditPatient,
		ResourceID: p.ID.String(),
		PatientID:  &p.ID,
	})
	return p, nil
}

func (s *Service) Get(ctx context.Context, req domain.GetRequest) (*domain.Patient, error) {
	id, err := parseID(req.ID)
	if err != nil {
		return nil, err
	}
	p, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if p == nil || (p.IsDeleted() && !req.IncludeDeleted) {
		return nil, domain.ErrNotFound
	}

	s.auditSvc.Record(ctx, auditdomain.Entry{
		Action:     auditdomain.ActionView,
		Resource:   auditPatient,
		ResourceID: p.ID.String(),
		PatientID:  &p.ID,
	})
	return p, nil
}

func (s *Service) List(ctx context.Context, req domain.ListRequest) (domain.ListResponse, error) {
	var cursor *pagination.Cursor
	if token := strings.TrimSpace(req.PageToken); token != "" {
		decoded, err := pagination.DecodeCursor(token)
		if err != nil {
			return domain.ListResponse{}, err
		}
		cursor = decoded
	}

	limit := pagination.NormalizePageSize(req.PageSize)
	items, err := s.repo.List(ctx, s.db, domain.ListFilter{
		Query:          req.Query,
		IncludeDeleted: req.IncludeDeleted,
		Cursor:         cursor,
		Limit:          limit,
	})
	if err != nil {
		return domain.ListResponse{}, err
	}

	page, info := pagination.Trim(items, limit, func(p domain.Patient) pagination.Cursor {
		return pagination.Cursor{ID: p.ID.Int64(), CreatedAt: p.CreatedAt}
	})
	return domain.ListResponse{Patients: page, PageInfo: info}, nil
}

func (s *Service) SoftDelete(ctx context.Context, id string) (*domain.Patient, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.IsDeleted() {
		return nil, domain.ErrAlreadyDeleted
	}

	now := s.clock.Now()
	deletedBy := "system"
	if actor, ok := requestctx.ActorFromContext(ctx); ok {
		deletedBy = actor.UserID
	}
	if err := s.repo.SetDeleted(ctx, s.db, p.ID, &now, &deletedBy, now); err != nil {
		return nil, err
	}
	p.DeletedAt = &now
	p.DeletedBy = &deletedBy
	p.UpdatedAt = now

	unlockAt, _ := s.RetentionUnlockAt(*p)
	s.auditSvc.Record(ctx, auditdomain.Entry{
		Action:     auditdomain.ActionDelete,
		Resource:   auditPatient,
		ResourceID: p.ID.String(),
		PatientID:  &p.ID,
		Details:    map[string]any{"soft": true, "retentionUntil": unlockAt.Format(time.DateOnly)},
	})
	return p, nil
}

func (s *Service) Restore(ctx context.Context, id string) (*domain.Patient, error) {
	p, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !p.IsDeleted() {
		return nil, &domain.NotSoftDeletedError{PatientID: p.ID}
	}

	now := s.clock.Now()
	if err := s.repo.SetDeleted(ctx, s.db, p.ID, nil, nil, now); err != nil {
		return nil, err
	}
	p.DeletedAt = nil
	p.DeletedBy = nil
	p.UpdatedAt = now

	s.auditSvc.Record(ctx, auditdomain.Entry{
		Action:     auditdomain.ActionUpdate,
		Resource:   auditPatient,
		ResourceID: p.ID.String(),
		PatientID:  &p.ID,
		Details:    map[string]any{"restored": true},
	})
	return p, nil
}

// RetentionUnlockAt reports when a soft-deleted patient may be purged.
func (s *Service) RetentionUnlockAt(p domain.Patient) (time.Time, bool) {
	if p.DeletedAt == nil {
		return time.Time{}, false
	}
	return p.DeletedAt.AddDate(s.billing.Get().RetentionYears, 0, 0), true
}

func (s *Service) HardDelete(ctx context.Context, id string) error {
	patientID, err := parseID(id)
	if err != nil {
		return err
	}

	var result domain.PurgeResult
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		p, err := s.repo.FindByID(ctx, tx, patientID)
		if err != nil {
			return err
		}
		if p == nil {
			return domain.ErrNotFound
		}
		unlockAt, deleted := s.RetentionUnlockAt(*p)
		if !deleted {
			return &domain.NotSoftDeletedError{PatientID: p.ID}
		}
		now := s.clock.Now()
		if now.Before(unlockAt) {
			return &domain.RetentionPeriodError{PatientID: p.ID, DeletedAt: *p.DeletedAt, UnlockAt: unlockAt}
		}

		result, err = s.repo.Purge(ctx, tx, p.ID, now)
		return err
	})
	if err != nil {
		return err
	}

	logger.WithContext(ctx, s.log).Info("patient purged",
		zap.String("patient_id", patientID.String()),
		zap.Int64("clinical_records", result.ClinicalRecords),
		zap.Int64("detached_invoices", result.DetachedInvoices),
	)
	s.auditSvc.Record(ctx, auditdomain.Entry{
		Action:     auditdomain.ActionDelete,
		Resource:   auditPatient,
		ResourceID: patientID.String(),
		PatientID:  &patientID,
		Details: map[string]any{
			"hard":             true,
			"clinicalRecords":  result.ClinicalRecords,
			"detachedInvoices": result.DetachedInvoices,
		},
	})
	return nil
}

func (s *Service) AddClinicalRecord(ctx context.Context, req domain.AddRecordRequest) (*domain.ClinicalRecord, error) {
	p, err := s.load(ctx, req.PatientID)
	if err != nil {
		return nil, err
	}
	if p.IsDeleted() {
		return nil, domain.ErrPatientDeleted
	}
	kind, ok := domain.ParseRecordKind(strings.ToUpper(strings.TrimSpace(req.Kind)))
	if !ok {
		return nil, domain.ErrInvalidKind
	}
	notes := strings.TrimSpace(req.Notes)
	if notes == "" {
		return nil, domain.ErrEmptyNotes
	}

	sealed, err := s.cipher.Seal(notes)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	recordedAt := now
	if req.RecordedAt != nil {
		recordedAt = req.RecordedAt.UTC()
	}
	rec := &domain.ClinicalRecord{
		ID:             s.genID.Generate(),
		PatientID:      p.ID,
		Kind:           kind,
		NotesEncrypted: sealed,
		RecordedAt:     recordedAt,
		CreatedAt:      now,
	}
	if actor, ok := requestctx.ActorFromContext(ctx); ok {
		rec.CreatedBy = &actor.UserID
	}
	if err := s.repo.InsertRecord(ctx, s.db, rec); err != nil {
		return nil, err
	}
	rec.Notes = notes

	s.auditSvc.Record(ctx, auditdomain.Entry{
		Action:     auditdomain.ActionCreate,
		Resource:   auditRecord,
		ResourceID: rec.ID.String(),
		PatientID:  &p.ID,
		Details:    map[string]any{"kind": string(kind)},
	})
	return rec, nil
}

func (s *Service) ListClinicalRecords(ctx context.Context, patientID string) ([]domain.ClinicalRecord, error) {
	p, err := s.load(ctx, patientID)
	if err != nil {
		return nil, err
	}
	if p.IsDeleted() {
		return nil, domain.ErrPatientDeleted
	}

	records, err := s.repo.ListRecords(ctx, s.db, p.ID)
	if err != nil {
		return nil, err
	}
	for i := range records {
		plain, err := s.cipher.Open(records[i].NotesEncrypted)
		if err != nil {
			logger.WithContext(ctx, s.log).Error("failed to open clinical record",
				zap.String("record_id", records[i].ID.String()),
				zap.Error(err),
			)
			return nil, err
		}
		records[i].Notes = plain
	}

	s.auditSvc.Record(ctx, auditdomain.Entry{
		Action:    auditdomain.ActionView,
		Resource:  auditRecord,
		PatientID: &p.ID,
		Details:   map[string]any{"count": len(records)},
	})
	return records, nil
}

func (s *Service) load(ctx context.Context, id string) (*domain.Patient, error) {
	patientID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	p, err := s.repo.FindByID(ctx, s.db, patientID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id <= 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}

func optional(value string) *string {
	v := strings.TrimSpace(value)
	if v == "" {
		return nil
	}
	return &v
}
