package audit

import (
	"github.com/smallbiznis/kinesio/internal/audit/repository"
	"github.com/smallbiznis/kinesio/internal/audit/service"
	"go.uber.org/fx"
)

var Module = fx.Module("audit.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.NewService),
)
