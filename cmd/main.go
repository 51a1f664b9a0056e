package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"club-site/internal/app"
	"club-site/internal/logging"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	cfg, err := app.LoadConfig(os.Getenv)
	if err != nil {
		slog.Error("invalid configuration", "err", err)
		os.Exit(1)
	}
	logging.Setup(cfg.LogLevel)

	// ---- Clients and handler ----
	h, cleanup, err := app.New(ctx, cfg)
	if err != nil {
		slog.Error("failed to build handler", "err", err)
		os.Exit(1)
	}
	defer func() {
		if err := cleanup(); err != nil {
			slog.Warn("cleanup failed", "err", err)
		}
	}()

	slog.Info("starting lambda", "store_backend", cfg.StoreBackend)
	lambda.Start(h.Handle)
}
