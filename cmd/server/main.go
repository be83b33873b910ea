package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/DevLucasCarvalhoCosta/patrimoniouegFrontend-sub001/internal/config"
	"github.com/DevLucasCarvalhoCosta/patrimoniouegFrontend-sub001/internal/core"
	"github.com/DevLucasCarvalhoCosta/patrimoniouegFrontend-sub001/internal/logging"
	"github.com/DevLucasCarvalhoCosta/patrimoniouegFrontend-sub001/internal/store"
	"github.com/DevLucasCarvalhoCosta/patrimoniouegFrontend-sub001/internal/web"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"db_max_conns", cfg.Database.MaxConns,
		"import_max_concurrent", cfg.Import.MaxConcurrent,
		"match_threshold", cfg.Import.MatchThreshold,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	// Parse and configure connection pool
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		slog.Error("failed to parse database URL", "error", err)
		os.Exit(1)
	}

	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	// Connect to database
	ctx := context.Background()
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		slog.Error("failed to ping database", "error", err)
		os.Exit(1)
	}

	// Log which database we connected to
	if u, err := url.Parse(cfg.Database.URL); err == nil {
		dbName := strings.TrimPrefix(u.Path, "/")
		slog.Info("connected to database", "name", dbName)
	} else {
		slog.Info("connected to database")
	}

	// Ensure schema exists (idempotent DDL, no external migration tool)
	st := store.New(pool)
	if err := st.EnsureSchema(ctx); err != nil {
		slog.Error("failed to ensure database schema", "error", err)
		os.Exit(1)
	}

	// Create service and server with config
	service := core.NewService(st, cfg)
	server := web.NewServer(service, cfg)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Wait for active imports to finish (with timeout)
		if active := service.Limiter().ActiveCount(); active > 0 {
			slog.Info("waiting for imports to complete", "active", active)
			if err := service.Limiter().WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("imports did not complete in time", "error", err)
			} else {
				slog.Info("all imports completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	// Start server (uses addr from config internally)
	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil {
		slog.Info("server stopped", "error", err)
	}
}
