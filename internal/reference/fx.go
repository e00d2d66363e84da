package reference

import "go.uber.org/fx"

// Module exposes the read-only lookup tables.
var Module = fx.Module("reference", fx.Provide(NewRepository))
