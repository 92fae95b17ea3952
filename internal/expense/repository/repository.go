package repository

import (
	"github.com/smallbiznis/kinesio/internal/expense/domain"
	"github.com/smallbiznis/kinesio/pkg/repository"
	"gorm.io/gorm"
)

func Provide(db *gorm.DB) repository.Repository[domain.Expense] {
	return repository.ProvideStore[domain.Expense](db)
}
