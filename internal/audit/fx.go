package audit

import (
	"github.com/smallbiznis/innkeeper/internal/audit/repository"
	"github.com/smallbiznis/innkeeper/internal/audit/service"
	"go.uber.org/fx"
)

// Module provides the audit trail writer used by every mutating service.
var Module = fx.Module("audit",
	fx.Provide(repository.Provide, service.NewService),
)
