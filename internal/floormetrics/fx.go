package floormetrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/smallbiznis/innkeeper/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("floor.metrics",
	fx.Provide(NewPusher),
	fx.Invoke(startWorker),
)

func startWorker(lc fx.Lifecycle, cfg config.Config, pusher Pusher, log *zap.Logger, db *gorm.DB) {
	if pusher == nil {
		return
	}

	registry := prometheus.NewRegistry()
	gauges := NewGauges(registry)
	every := interval(cfg.PushMetrics.IntervalSeconds)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			log.Info("starting floor metrics worker", zap.Duration("interval", every))
			go func() {
				defer close(done)
				ticker := time.NewTicker(every)
				defer ticker.Stop()

				for {
					sample(ctx, db, gauges, pusher, registry, log)
					select {
					case <-ticker.C:
					case <-ctx.Done():
						log.Info("stopping floor metrics worker")
						return
					}
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-stopCtx.Done():
				return stopCtx.Err()
			}
		},
	})
}

func sample(ctx context.Context, db *gorm.DB, gauges *Gauges, pusher Pusher, registry *prometheus.Registry, log *zap.Logger) {
	snap, err := Collect(ctx, db)
	if err != nil {
		log.Warn("floor metrics sample failed", zap.Error(err))
		return
	}
	gauges.Set(snap)

	pushCtx, cancel := context.WithTimeout(ctx, pushTimeout)
	defer cancel()
	if err := pusher.Push(pushCtx, registry); err != nil {
		log.Warn("floor metrics push failed", zap.Error(err))
	}
}
