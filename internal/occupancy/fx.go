package occupancy

import "go.uber.org/fx"

var Module = fx.Module("occupancy.ledger",
	fx.Provide(NewLedger),
)
