package telegram

import (
	"go.uber.org/fx"

	"auto_trader/internal/modules/config"
	"auto_trader/internal/notify"
	"auto_trader/pkg/logger"
)

func Module() fx.Option {
	return fx.Module("telegram",
		fx.Provide(
			func(cfg *config.Config) (notify.Notifier, error) {
				if cfg.Telegram.Token == "" {
					logger.Info("telegram token empty, notifications go to log")
					return notify.NewStdout(), nil
				}
				return notify.NewTelegram(cfg.Telegram.Token)
			},
		),
	)
}
