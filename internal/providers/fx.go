package providers

import (
	"github.com/smallbiznis/kinesio/internal/providers/email"
	"github.com/smallbiznis/kinesio/internal/providers/pdf"
	"github.com/smallbiznis/kinesio/internal/providers/sms"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	email.Module,
	sms.Module,
	pdf.Module,
)
