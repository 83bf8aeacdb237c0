package httpapi

import (
	"context"
	"fmt"

	"go.uber.org/fx"

	"auto_trader/internal/engine"
	"auto_trader/internal/modules/config"
	httptransport "auto_trader/internal/transport/http"
	"auto_trader/pkg/logger"
)

func Module() fx.Option {
	return fx.Module("httpapi",
		fx.Provide(
			func(e *engine.Engine) *httptransport.Handler {
				return httptransport.NewHandler(e)
			},
		),
		fx.Invoke(func(
			lc fx.Lifecycle,
			h *httptransport.Handler,
			cfg *config.Config,
			ctx context.Context,
		) {
			addr := fmt.Sprintf("%s:%d", cfg.Service.Host, cfg.Service.AdminPort)
			lc.Append(fx.Hook{
				OnStart: func(_ context.Context) error {
					go func() {
						if err := httptransport.Serve(ctx, addr, h); err != nil {
							logger.Error("admin http: %v", err)
						}
					}()
					return nil
				},
			})
		}),
	)
}
