// Command server runs cauth: migrations, bootstrap, then the HTTP adapter.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cauth/cauth/internal/bootstrap"
	"github.com/cauth/cauth/internal/config"
	"github.com/cauth/cauth/internal/event"
	"github.com/cauth/cauth/internal/service"
	"github.com/cauth/cauth/internal/storage/postgres"
	httptransport "github.com/cauth/cauth/internal/transport/http"
)

func main() {
	cfg := config.Load()

	logLevel := slog.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = slog.LevelDebug
	}
	var handler slog.Handler
	if cfg.LogFormat == "text" {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("connecting to database")
	db, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	logger.Info("database connected")

	if err := postgres.RunMigrations(ctx, cfg.DatabaseURL, logger); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	repos := db.Repositories()

	if err := bootstrap.Run(ctx, repos, cfg.BootstrapPolicy, logger); err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}

	var publisher event.Publisher
	if cfg.IsDevelopment() {
		publisher = event.NewLoggingPublisher(logger)
	} else {
		publisher = event.NewLoggingPublisher(logger)
	}
	defer publisher.Close()

	permissionService := service.NewPermissionService(repos.Permissions, publisher)
	groupService := service.NewGroupService(repos.Groups, publisher)
	userService := service.NewUserService(repos.Users, publisher)
	sessionService := service.NewSessionService(repos.Sessions, publisher, cfg.SessionTTL)
	eventEngine := service.NewEventEngine(repos, db, publisher, cfg.SessionTTL, cfg.RequireDistinctCommitter)

	server := httptransport.NewServer(
		permissionService,
		groupService,
		userService,
		sessionService,
		eventEngine,
		cfg.RequestTimeout,
		logger,
	)

	errChan := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		logger.Info("starting HTTP server", "addr", addr)
		if err := server.ListenAndServe(addr); err != nil && err != http.ErrServerClosed {
			errChan <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	case err := <-errChan:
		logger.Error("server error", "error", err)
		return err
	}

	logger.Info("initiating graceful shutdown")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown error", "error", err)
	}

	cancel()
	logger.Info("shutdown complete")
	return nil
}
