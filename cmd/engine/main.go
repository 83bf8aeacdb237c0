package main

import (
	"context"
	"log"

	"go.uber.org/fx"

	"auto_trader/internal/modules/config"
	"auto_trader/internal/modules/httpapi"
	"auto_trader/internal/modules/postgres"
	"auto_trader/internal/modules/scheduler"
	"auto_trader/internal/modules/telegram"
	"auto_trader/internal/modules/tracing"
	"auto_trader/pkg/logger"
	pkgtracing "auto_trader/pkg/tracing"
)

func main() {
	logger.SetServiceName("auto_trader")
	pkgtracing.SetServiceName("auto_trader")
	if err := logger.Init(); err != nil {
		log.Fatal(err)
	}

	app := fx.New(
		fx.Provide(
			func() context.Context {
				return context.Background()
			},
		),
		config.Module(),
		postgres.Module(),
		telegram.Module(),
		tracing.Module(),
		scheduler.Module(),
		httpapi.Module(),
	)
	app.Run()
}
