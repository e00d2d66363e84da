package reservation

import (
	"github.com/smallbiznis/innkeeper/internal/reservation/repository"
	"github.com/smallbiznis/innkeeper/internal/reservation/service"
	"go.uber.org/fx"
)

var Module = fx.Module("reservation.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
