package invoice

import (
	"github.com/smallbiznis/kinesio/internal/invoice/numbering"
	"github.com/smallbiznis/kinesio/internal/invoice/repository"
	"github.com/smallbiznis/kinesio/internal/invoice/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invoice.service",
	fx.Provide(repository.Provide),
	fx.Provide(numbering.NewAllocator),
	fx.Provide(service.New),
)
