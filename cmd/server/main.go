// FieldServe - multi-tenant field service platform backend
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fieldserve/fieldserve/internal/config"
	"github.com/fieldserve/fieldserve/internal/logging"
	"github.com/fieldserve/fieldserve/internal/server"
)

// Build info - set by ldflags
var (
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	logger := logging.New("info", "text")

	logger.Info("starting fieldserve",
		"version", Version,
		"commit", Commit,
		"build_time", BuildTime,
	)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger = logging.New(cfg.LogLevel, "text")

	logger.Info("configuration loaded",
		"env", cfg.Env,
		"public_schema", cfg.PublicSchema,
		"tenant_header", cfg.TenantHeader,
	)

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
