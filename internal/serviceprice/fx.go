package serviceprice

import (
	"github.com/smallbiznis/kinesio/internal/serviceprice/repository"
	"github.com/smallbiznis/kinesio/internal/serviceprice/service"
	"go.uber.org/fx"
)

var Module = fx.Module("serviceprice.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
