package notification

import (
	"context"

	"github.com/smallbiznis/kinesio/internal/notification/domain"
	"github.com/smallbiznis/kinesio/internal/notification/service"
	"go.uber.org/fx"
)

var Module = fx.Module("notification",
	fx.Provide(
		service.NewMailer,
		func(m *service.Mailer) domain.Dispatcher { return m },
		service.NewQueue,
		func(q *service.Queue) domain.Publisher { return q },
	),
	fx.Invoke(registerQueue),
)

func registerQueue(lc fx.Lifecycle, q *service.Queue) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			q.Start()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return q.Stop(ctx)
		},
	})
}
