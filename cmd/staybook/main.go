package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"staybook/internal/infra/config"
	ginserver "staybook/internal/infra/http/gin"
	"staybook/internal/infra/obs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := obs.NewLogger(getenv("APP_ENV", "dev"))

	cfg, err := config.Load()
	if err != nil {
		logger.Error("configuration invalid", "error", err)
		os.Exit(1)
	}
	if cfg.JWTSecret == "" {
		logger.Warn("JWT_SECRET not set, every authenticated route will answer 401")
	}

	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("application wiring failed", "error", err, "storage", cfg.StorageMode)
		os.Exit(1)
	}

	if cfg.SeedFixtures {
		fixturesPath := getenv("LISTINGS_FIXTURES", defaultListingFixturesPath())
		if _, err := loadListingFixtures(ctx, app.factory, fixturesPath, cfg.Currency, logger); err != nil {
			logger.Warn("listing fixtures load failed", "error", err, "path", fixturesPath)
		}
	}

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger, Metrics: app.metrics}, obs.HealthHandlers{
		Ready:   app.ready,
		Timeout: 2 * time.Second,
	}, app.handlers)

	var wg sync.WaitGroup
	for _, r := range app.runners {
		wg.Add(1)
		go func(r runner) {
			defer wg.Done()
			logger.Info("background worker started", "worker", r.name)
			if err := r.run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("background worker stopped", "worker", r.name, "error", err)
			}
		}(r)
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", cfg.StorageMode)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		stop()
	}

	wg.Wait()
	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	app.close(closeCtx, logger)
	logger.Info("HTTP server stopped")
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
