package ratelimit

import "go.uber.org/fx"

var Module = fx.Module("render.limit", fx.Provide(NewRenderLimiter))
