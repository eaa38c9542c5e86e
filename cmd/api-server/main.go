// Command api-server runs the order management HTTP API.
package main

import (
	"context"

	sdk "github.com/go-faster/sdk/app"
	"go.uber.org/zap"

	"github.com/xenking/orders-service/internal/app"
)

func main() {
	sdk.Run(func(ctx context.Context, lg *zap.Logger, m *sdk.Telemetry) error {
		cfg, err := app.LoadConfig()
		if err != nil {
			return err
		}
		return app.Run(ctx, lg, m, cfg)
	})
}
