package repository

import (
	"github.com/smallbiznis/kinesio/internal/serviceprice/domain"
	"github.com/smallbiznis/kinesio/pkg/repository"
	"gorm.io/gorm"
)

func Provide(db *gorm.DB) repository.Repository[domain.ServicePrice] {
	return repository.ProvideStore[domain.ServicePrice](db)
}
