package main

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	appkg "github.com/xenking/atelier-api/internal/app"
)

// api-server runs the Atelier HTTP API.
func main() {
	app.Run(func(ctx context.Context, lg *zap.Logger, m *app.Telemetry) error {
		cfg, err := appkg.LoadConfig()
		if err != nil {
			return errors.Wrap(err, "load config")
		}
		lg.Info("starting api-server", zap.String("addr", cfg.Addr))
		return appkg.Run(ctx, lg, m, cfg)
	})
}
