package invoice

import (
	"github.com/smallbiznis/innkeeper/internal/invoice/domain"
	"github.com/smallbiznis/innkeeper/internal/invoice/render"
	"github.com/smallbiznis/innkeeper/internal/invoice/repository"
	"github.com/smallbiznis/innkeeper/internal/invoice/service"
	"go.uber.org/fx"
)

var Module = fx.Module("invoice.service",
	fx.Provide(repository.Provide),
	fx.Provide(
		fx.Annotate(
			render.NewHTMLRenderer,
			fx.As(new(domain.Renderer)),
			fx.ResultTags(`group:"document_renderers"`),
		),
	),
	fx.Provide(service.NewService),
)
