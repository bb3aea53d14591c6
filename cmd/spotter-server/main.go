package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/mikepea/spotter/pkg/spotter/config"
	"github.com/mikepea/spotter/pkg/spotter/database"
	"github.com/mikepea/spotter/pkg/spotter/logging"
	"github.com/mikepea/spotter/pkg/spotter/models"
	"github.com/mikepea/spotter/pkg/spotter/server"

	_ "github.com/mikepea/spotter/api/swagger"
)

// @title Spotter API
// @version 1.0
// @description Gym management backend: members, events with capacity-limited sign-ups, and workout progress.

// @contact.name Spotter Support
// @contact.url https://github.com/mikepea/spotter

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /api

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT token. Format: "Bearer {token}"

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger := logging.New(os.Stdout, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Connect to database
	db, err := database.Connect(cfg.DBDriver, cfg.DBDSN, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	// Run auto-migrations
	if err := models.AutoMigrate(db); err != nil {
		return err
	}
	logger.Info("database migrations completed", slog.String("driver", cfg.DBDriver))

	if cfg.InsecureSecret() {
		logger.Warn("JWT_SECRET is not set; using the development secret")
	}

	app := server.New(db, cfg, logger)

	// Create default admin user if no admin exists
	if err := app.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		return err
	}

	srv := app.HTTPServer(cfg.Addr())
	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting spotter server", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down", slog.Duration("timeout", cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
