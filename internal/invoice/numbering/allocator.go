package numbering

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/kinesio/internal/invoice/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Allocator hands out the next number for a document type. Next must run inside the
// transaction that inserts the invoice: the sequence row stays locked until commit,
// so concurrent creations of the same type are serialized.
type Allocator struct{}

func NewAllocator() *Allocator {
	return &Allocator{}
}

func (a *Allocator) Next(ctx context.Context, tx *gorm.DB, docType domain.DocumentType, now time.Time) (string, error) {
	tx = tx.WithContext(ctx)

	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&domain.Sequence{DocumentType: docType, LastValue: 0, UpdatedAt: now}).Error; err != nil {
		return "", err
	}

	var seq domain.Sequence
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("document_type = ?", docType).
		Take(&seq).Error; err != nil {
		return "", err
	}

	last, err := lastIssued(tx, docType)
	if err != nil {
		return "", err
	}

	next := max(seq.LastValue, last) + 1
	res := tx.Model(&domain.Sequence{}).
		Where("document_type = ?", docType).
		Updates(map[string]any{"last_value": next, "updated_at": now})
	if res.Error != nil {
		return "", res.Error
	}
	if res.RowsAffected != 1 {
		return "", domain.ErrNumberAllocation
	}
	return Format(docType, next), nil
}

// lastIssued parses the number of the most recently created invoice of docType, so a
// sequence table seeded after invoices already exist continues from them.
func lastIssued(tx *gorm.DB, docType domain.DocumentType) (int64, error) {
	var number string
	err := tx.Model(&domain.Invoice{}).
		Select("number").
		Where("document_type = ?", docType).
		Order("created_at desc, id desc").
		Limit(1).
		Scan(&number).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, err
	}
	return ParseSequence(number), nil
}
