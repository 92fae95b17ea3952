package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Patient carries an explicit tombstone instead of gorm.DeletedAt so that soft-deleted
// rows stay visible to retention checks.
type Patient struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	RUT       *string      `json:"rut,omitempty" gorm:"type:text;uniqueIndex:ux_patients_rut"`
	FirstName string       `json:"firstName" gorm:"type:text;not null"`
	LastName  string       `json:"lastName" gorm:"type:text;not null"`
	Email     *string      `json:"email,omitempty" gorm:"type:text"`
	Phone     *string      `json:"phone,omitempty" gorm:"type:text"`
	Address   *string      `json:"address,omitempty" gorm:"type:text"`
	BirthDate *time.Time   `json:"birthDate,omitempty" gorm:"type:date"`
	DeletedAt *time.Time   `json:"deletedAt,omitempty" gorm:"index"`
	DeletedBy *string      `json:"deletedBy,omitempty" gorm:"type:text"`
	CreatedAt time.Time    `json:"createdAt" gorm:"not null"`
	UpdatedAt time.Time    `json:"updatedAt" gorm:"not null"`
}

func (Patient) TableName() string { return "patients" }

func (p Patient) FullName() string {
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}

func (p Patient) IsDeleted() bool { return p.DeletedAt != nil }

type RecordKind string

const (
	RecordEvaluation RecordKind = "EVALUATION"
	RecordSession    RecordKind = "SESSION"
	RecordNote       RecordKind = "NOTE"
)

func ParseRecordKind(value string) (RecordKind, bool) {
	switch RecordKind(value) {
	case RecordEvaluation, RecordSession, RecordNote:
		return RecordKind(value), true
	}
	return "", false
}

// ClinicalRecord stores notes sealed with fieldcrypt. Notes holds the plaintext only
// after the service opens it.
type ClinicalRecord struct {
	ID             snowflake.ID `json:"id" gorm:"primaryKey"`
	PatientID      snowflake.ID `json:"patientId" gorm:"not null;index"`
	Kind           RecordKind   `json:"kind" gorm:"type:text;not null"`
	NotesEncrypted string       `json:"-" gorm:"column:notes_encrypted;type:text;not null"`
	Notes          string       `json:"notes" gorm:"-"`
	RecordedAt     time.Time    `json:"recordedAt" gorm:"not null"`
	CreatedBy      *string      `json:"createdBy,omitempty" gorm:"type:text"`
	CreatedAt      time.Time    `json:"createdAt" gorm:"not null"`
}

func (ClinicalRecord) TableName() string { return "clinical_records" }
