// Package scheduler собирает движок из сторов и биржевого клиента
// и гоняет батч-проходы по таймеру.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/fx"

	"auto_trader/internal/engine"
	"auto_trader/internal/exchange"
	"auto_trader/internal/models"
	"auto_trader/internal/modules/config"
	"auto_trader/internal/notify"
	"auto_trader/internal/store"
	"auto_trader/pkg/logger"
)

func Module() fx.Option {
	return fx.Module("scheduler",
		fx.Provide(
			store.NewUsers,
			store.NewStrategies,
			store.NewTrades,
			func(cfg *config.Config) *exchange.Client {
				return exchange.NewClient(cfg.Exchange.BaseURL, cfg.Exchange.WSURL)
			},
			newEngine,
		),
		fx.Invoke(run),
	)
}

func newEngine(
	users *store.Users,
	strategies *store.Strategies,
	trades *store.Trades,
	client *exchange.Client,
	notifier notify.Notifier,
	cfg *config.Config,
) *engine.Engine {
	return engine.New(
		users,
		strategies,
		trades,
		client,
		func(keys models.APIKeys) engine.OrderGateway {
			return client.WithCreds(keys.APIKey, keys.SecretKey)
		},
		notifier,
		engine.Config{
			CandleLimit: cfg.CandleLimit,
			CallTimeout: cfg.CallTimeout,
			NotionalUSD: cfg.OrderNotionalUSD,
		},
	)
}

func run(
	lc fx.Lifecycle,
	e *engine.Engine,
	strategies *store.Strategies,
	client *exchange.Client,
	cfg *config.Config,
	ctx context.Context,
) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			if cfg.StreamPrices {
				go warmStreams(ctx, strategies, client)
			}
			go loop(ctx, e, cfg.PassInterval)
			return nil
		},
	})
}

func loop(ctx context.Context, e *engine.Engine, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	logger.Info("scheduler started, pass every %s", interval)

	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("scheduler stopped")
			return
		case <-t.C:
			e.RunPass(ctx)
		}
	}
}

// warmStreams поднимает WS-стрим цены по каждому активному символу,
// чтобы проходы брали свежую цену из кеша вместо REST.
func warmStreams(ctx context.Context, strategies *store.Strategies, client *exchange.Client) {
	symbols, err := strategies.ActiveSymbols(ctx)
	if err != nil {
		logger.Warn("price streams: %v", err)
		return
	}
	for _, sym := range symbols {
		go client.StreamPrices(ctx, sym)
	}
	logger.Info("price streams warmed for %d symbols", len(symbols))
}
