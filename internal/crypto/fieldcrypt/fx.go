package fieldcrypt

import "go.uber.org/fx"

var Module = fx.Module("fieldcrypt",
	fx.Provide(NewEnvKeyProvider, NewCipher),
)
