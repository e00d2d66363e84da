package pdf

import (
	"github.com/smallbiznis/innkeeper/internal/invoice/domain"
	"go.uber.org/fx"
)

var Module = fx.Module("providers.pdf",
	fx.Provide(
		fx.Annotate(
			New,
			fx.As(new(domain.Renderer)),
			fx.ResultTags(`group:"document_renderers"`),
		),
	),
)
