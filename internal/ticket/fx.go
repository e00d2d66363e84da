package ticket

import (
	invoicedomain "github.com/smallbiznis/innkeeper/internal/invoice/domain"
	"github.com/smallbiznis/innkeeper/internal/ticket/repository"
	"github.com/smallbiznis/innkeeper/internal/ticket/service"
	"go.uber.org/fx"
)

var Module = fx.Module("ticket.service",
	fx.Provide(repository.Provide),
	fx.Provide(
		fx.Annotate(
			service.NewCloseHook,
			fx.As(new(invoicedomain.CloseHook)),
			fx.ResultTags(`group:"invoice_close_hooks"`),
		),
	),
	fx.Provide(service.New),
)
