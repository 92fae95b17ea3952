package pdf

import (
	"context"

	"go.uber.org/fx"
)

// Renderer turns a resolved invoice into a PDF document.
type Renderer interface {
	RenderInvoice(ctx context.Context, data InvoiceData) ([]byte, error)
}

var Module = fx.Module("providers.pdf",
	fx.Provide(func() Renderer { return New() }),
)
