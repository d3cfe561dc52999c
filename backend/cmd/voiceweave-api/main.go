package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/voiceweave/voiceweave/backend/internal/router"
	"github.com/voiceweave/voiceweave/backend/internal/setup"
	"github.com/voiceweave/voiceweave/shared/config"
	"github.com/voiceweave/voiceweave/shared/logger"
)

const shutdownTimeout = 15 * time.Second

func main() {
	var configFolder string
	flag.StringVar(&configFolder, "config_folder", "backend/config", "path to folder with configs")
	flag.Parse()

	cfg := config.MustLoad(configFolder)
	logger.Initialize(cfg.Public.LogLevel, cfg.Public.LogJSON)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Log.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	deps, err := setup.SetupDependencies(ctx, cfg)
	if err != nil {
		return fmt.Errorf("setup: %w", err)
	}
	defer deps.Close()

	deps.Retention.StartBackgroundCleanup(ctx, cfg.Public.Retention.Interval)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Public.HTTPPort),
		Handler:           router.New(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Log.Info("server started", "port", cfg.Public.HTTPPort, "storage", cfg.Public.Storage)
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	// live views are hijacked connections; Shutdown does not wait for them
	return srv.Shutdown(shutdownCtx)
}
