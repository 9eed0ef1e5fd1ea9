// Command server runs the orders ingestion and reporting HTTP API.
//
// @title          Orders Backend API
// @version        1.0
// @description    Batch ingestion of user/product/order records and a top-orders report.
// @BasePath       /api
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-orders-backend/internal/cache"
	"github.com/tbourn/go-orders-backend/internal/config"
	httpapi "github.com/tbourn/go-orders-backend/internal/http"
	"github.com/tbourn/go-orders-backend/internal/observability"
	"github.com/tbourn/go-orders-backend/internal/repo"
	"github.com/tbourn/go-orders-backend/internal/services"
	"github.com/tbourn/go-orders-backend/internal/sysutil"
)

// version is overridden at build time with -ldflags "-X main.version=...".
var version = ""

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	ver := sysutil.FirstNonEmpty(version, os.Getenv("APP_VERSION"), "dev")

	sysutil.SetLogLevel(cfg.LogLevel)
	log.Logger = sysutil.NewLogger(os.Stdout, cfg.LogPretty, cfg.OTEL.ServiceName, ver)
	zerolog.DefaultContextLogger = &log.Logger
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, ver)
	if err != nil {
		return fmt.Errorf("setup otel: %w", err)
	}
	defer func() {
		if err := shutdownOTel(context.Background()); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := repo.Open(cfg.DB, repo.Options{Tracing: cfg.OTEL.Enabled})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer func() {
		if err := repo.Close(db); err != nil {
			log.Warn().Err(err).Msg("close database")
		}
	}()
	if err := repo.AutoMigrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	log.Info().Str("driver", cfg.DB.Driver).Msg("database ready")

	rc := cache.New(cfg.Redis, log.Logger)
	defer func() {
		if err := rc.Close(); err != nil {
			log.Warn().Err(err).Msg("close redis")
		}
	}()
	if rc.Enabled() {
		if err := rc.Ping(ctx); err != nil {
			log.Warn().Err(err).Msg("redis ping failed; report cache will miss")
		}
	}

	// Stopped and drained before the database defer above runs.
	janitor := &services.IdempotencyService{DB: db, TTL: cfg.IdempotencyTTL}
	stopJanitor := janitor.StartJanitor(log.Logger.WithContext(ctx), cfg.IdempotencySweepEvery)
	defer stopJanitor()

	r := gin.New()
	httpapi.RegisterRoutes(r, db, rc, cfg)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("base_path", cfg.APIBasePath).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http server shutdown")
	}
	return nil
}
