// Command mfds-matcher serves the MFDS record-linkage API: it keeps the reference catalog
// loaded and fresh, and links source lists against it on request.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/giygas/mfds-matcher/catalog"
	"github.com/giygas/mfds-matcher/config"
	"github.com/giygas/mfds-matcher/data"
	"github.com/giygas/mfds-matcher/handlers"
	"github.com/giygas/mfds-matcher/health"
	"github.com/giygas/mfds-matcher/interfaces"
	"github.com/giygas/mfds-matcher/logging"
	"github.com/giygas/mfds-matcher/pipeline"
	"github.com/giygas/mfds-matcher/scheduler"
	"github.com/giygas/mfds-matcher/server"
	"github.com/giygas/mfds-matcher/validation"
)

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		logging.Error("Server exited with error", "error", err)
		_ = logging.Close()
		os.Exit(1)
	}
}

// loadEnv reads .env from the working directory, then from the executable's directory
func loadEnv() error {
	if err := godotenv.Load(); err == nil {
		return nil
	}

	ex, err := os.Executable()
	if err != nil {
		return fmt.Errorf("failed to get executable path: %w", err)
	}
	if err := os.Chdir(filepath.Dir(ex)); err != nil {
		return fmt.Errorf("failed to change directory: %w", err)
	}
	// A missing .env is fine, the environment may carry everything
	_ = godotenv.Load()
	return nil
}

func run() error {
	if err := loadEnv(); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if err := logging.InitLogger(logging.Settings{
		Dir:            cfg.LogDir,
		Env:            cfg.Env,
		Level:          cfg.LogLevel,
		RetentionWeeks: cfg.LogRetentionWeeks,
		MaxFileSize:    cfg.MaxLogFileSize,
	}); err != nil {
		logging.Warn("File logging disabled", "error", err)
	}
	defer func() { _ = logging.Close() }()

	opts, err := pipeline.OptionsFromConfig(cfg.Match)
	if err != nil {
		return fmt.Errorf("invalid matching options: %w", err)
	}

	dataContainer := data.NewDataContainer()
	dataContainer.SetServerStartTime(time.Now())
	validator := validation.NewDataValidator()

	var loader interfaces.CatalogLoader = catalog.NewFileLoader(cfg.CatalogPath)
	if cfg.CatalogURL != "" {
		loader = catalog.NewHTTPLoader(cfg.CatalogURL, cfg.CatalogPath)
	}

	sched := scheduler.NewScheduler(dataContainer, loader, validator, cfg.ReloadTimes)
	if err := sched.Start(); err != nil {
		return err
	}
	defer sched.Stop()

	handler := handlers.NewHTTPHandler(
		dataContainer,
		validator,
		health.NewHealthChecker(dataContainer, cfg.ReloadTimes),
		pipeline.NewProcessor(cfg.MatchWorkers, nil),
		opts,
	)
	srv := server.NewServer(cfg, handler)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logging.Info("Received signal", "signal", sig.String())
	case err := <-errCh:
		return fmt.Errorf("server failed to start: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(ctx)
}
