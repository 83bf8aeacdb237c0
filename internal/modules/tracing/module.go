package tracing

import (
	"context"

	"go.uber.org/fx"

	"auto_trader/internal/modules/config"
	"auto_trader/pkg/tracing"
)

func Module() fx.Option {
	return fx.Module("tracing",
		fx.Invoke(func(lc fx.Lifecycle, cfg *config.Config) error {
			if cfg.Jaeger.Host == "" {
				return nil // без агента живём на noop-трейсере
			}
			_, closer, err := tracing.InitTracer(tracing.Config{
				Host: cfg.Jaeger.Host,
				Port: cfg.Jaeger.Port,
			})
			if err != nil {
				return err
			}
			lc.Append(fx.Hook{
				OnStop: func(_ context.Context) error {
					closer()
					return nil
				},
			})
			return nil
		}),
	)
}
