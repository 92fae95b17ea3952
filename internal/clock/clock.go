package clock

import (
	"time"

	"go.uber.org/fx"
)

// Clock abstracts wall time so due-date and retention checks can be tested.
type Clock interface {
	Now() time.Time
}

type System struct{}

func (System) Now() time.Time { return time.Now().UTC() }

var Module = fx.Module("clock",
	fx.Provide(func() Clock { return System{} }),
)
