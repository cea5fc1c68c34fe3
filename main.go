package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/giygas/omeq-api/catalog"
	"github.com/giygas/omeq-api/config"
	"github.com/giygas/omeq-api/data"
	"github.com/giygas/omeq-api/logging"
	"github.com/giygas/omeq-api/scheduler"
	"github.com/giygas/omeq-api/server"
	"github.com/giygas/omeq-api/validation"
	"github.com/joho/godotenv"
)

func init() {
	// Read the env file from the working directory, or from the executable directory
	if err := godotenv.Load(); err != nil {
		ex, err := os.Executable()
		if err != nil {
			slog.Error("Failed to get executable path", "error", err)
			os.Exit(1)
		}

		if err := os.Chdir(filepath.Dir(ex)); err != nil {
			slog.Error("Failed to change directory", "error", err)
			os.Exit(1)
		}

		_ = godotenv.Load()
	}
}

func main() {
	if err := run(); err != nil {
		slog.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logging.InitLoggerWithOptions(logging.Options{
		Dir:            cfg.LogDir,
		Env:            cfg.Env,
		Level:          cfg.LogLevel,
		RetentionWeeks: cfg.LogRetentionWeeks,
		MaxFileSize:    cfg.MaxLogFileSize,
	})
	defer func() {
		if err := logging.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to close log file: %v\n", err)
		}
	}()

	dataContainer := data.NewDataContainer()
	dataContainer.SetServerStartTime(time.Now())

	sched := scheduler.NewScheduler(
		dataContainer,
		catalog.NewLoader(cfg.CatalogFile, cfg.OpioidsFile),
		validation.NewCatalogValidator(),
		time.Duration(cfg.CatalogReloadMinutes)*time.Minute,
	)
	if err := sched.Start(); err != nil {
		return err
	}
	defer sched.Stop()

	srv := server.NewServer(cfg, dataContainer)

	// Channel to listen for interrupt signals
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server failed to start: %w", err)
	case sig := <-quit:
		logging.Info("Received shutdown signal", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return srv.Shutdown(ctx)
}
