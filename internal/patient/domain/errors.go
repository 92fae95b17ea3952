package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
)

var (
	ErrNotFound       = errors.New("patient_not_found")
	ErrInvalidID      = errors.New("invalid_id")
	ErrInvalidName    = errors.New("invalid_name")
	ErrInvalidRUT     = errors.New("invalid_rut")
	ErrInvalidKind    = errors.New("invalid_record_kind")
	ErrEmptyNotes     = errors.New("empty_notes")
	ErrConflict       = errors.New("patient_rut_conflict")
	ErrAlreadyDeleted = errors.New("patient_already_deleted")
	ErrPatientDeleted = errors.New("patient_deleted")
)

// RetentionPeriodError is returned when a hard delete is attempted before the
// statutory retention window has elapsed.
type RetentionPeriodError struct {
	PatientID snowflake.ID
	DeletedAt time.Time
	UnlockAt  time.Time
}

func (e *RetentionPeriodError) Error() string {
	return fmt.Sprintf("patient %s is under retention until %s", e.PatientID, e.UnlockAt.Format("2006-01-02"))
}

// NotSoftDeletedError is returned when a hard delete or restore targets a patient that
// was never soft-deleted.
type NotSoftDeletedError struct {
	PatientID snowflake.ID
}

func (e *NotSoftDeletedError) Error() string {
	return fmt.Sprintf("patient %s has not been soft-deleted", e.PatientID)
}
