package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/JonMunkholm/qbank/internal/config"
	"github.com/JonMunkholm/qbank/internal/core"
	"github.com/JonMunkholm/qbank/internal/logging"
	"github.com/JonMunkholm/qbank/internal/store"
	"github.com/JonMunkholm/qbank/internal/web"
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
		"bank_backend", cfg.Bank.Backend,
		"import_max_concurrent", cfg.Import.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	ctx := context.Background()

	bankStore, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to open bank store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	// Create service with config
	service, err := core.NewService(ctx, bankStore, core.ServiceConfig{
		MaxConcurrentImports: cfg.Import.MaxConcurrent,
		MaxWaitTime:          cfg.Import.MaxWaitTime,
		ImportTimeout:        cfg.Import.Timeout,
		ResultTTL:            cfg.Import.ResultTTL,
		CleanupInterval:      cfg.Import.CleanupInterval,
		HistoryLimit:         cfg.Import.HistoryLimit,
	})
	if err != nil {
		slog.Error("failed to create service", "error", err)
		os.Exit(1)
	}

	slog.Info("bank loaded", "questions", service.Stats().Total)

	// Create server with config
	server := web.NewServer(service, cfg)

	// Background jobs get their own cancellable context
	jobCtx, cancelJobs := context.WithCancel(context.Background())
	go service.StartJanitor(jobCtx)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		// Stop background jobs
		cancelJobs()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Wait for active imports to complete (with timeout)
		status := service.LimiterStatus()
		if status.Active > 0 {
			slog.Info("waiting for imports to complete", "active", status.Active)
			if err := service.WaitForImports(shutdownCtx); err != nil {
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

// openStore builds the configured bank store. The returned close function
// releases any held resources and is safe to call once.
func openStore(ctx context.Context, cfg *config.Config) (core.BankStore, func(), error) {
	switch cfg.Bank.Backend {
	case config.BackendPostgres:
		// Parse and configure connection pool
		poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("parse database URL: %w", err)
		}

		poolConfig.MaxConns = int32(cfg.Database.MaxConns)
		poolConfig.MinConns = int32(cfg.Database.MinConns)
		poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
		poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to database: %w", err)
		}

		// Verify connection
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("ping database: %w", err)
		}

		// Log which database we connected to
		if u, err := url.Parse(cfg.Database.URL); err == nil {
			slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
		}

		st, err := store.NewPostgres(ctx, pool, cfg.Bank.Key)
		if err != nil {
			pool.Close()
			return nil, nil, err
		}
		return st, pool.Close, nil

	default:
		slog.Info("using bank file", "path", cfg.Bank.Path)
		return store.NewFile(cfg.Bank.Path), func() {}, nil
	}
}
