package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/fileforge/fileforge/internal/api"
	"github.com/fileforge/fileforge/internal/config"
	"github.com/fileforge/fileforge/internal/registry"
	"github.com/fileforge/fileforge/internal/server"
	"github.com/fileforge/fileforge/internal/storage"
	"github.com/fileforge/fileforge/internal/tools"
	"github.com/fileforge/fileforge/pkg/logging"
)

func main() {
	if err := run(); err != nil {
		slog.Error("service failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load config: %w", err)
		}
		if cfg, err = config.Default(); err != nil {
			return fmt.Errorf("default config: %w", err)
		}
	}

	logger := logging.New(&cfg.Logging)
	logger.Info("starting fileforge", "version", api.Version, "addr", cfg.Server.Addr())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	paths, err := storage.New(&cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("init storage: %w", err)
	}
	if err := paths.Start(); err != nil {
		return fmt.Errorf("start storage: %w", err)
	}

	store, closeStore, err := buildStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("init registry: %w", err)
	}
	defer closeStore()

	runner := tools.NewRunner(logger)
	for _, t := range tools.All() {
		if !runner.Available(t) {
			logger.Warn("external tool unavailable", "tool", t.Name, "download_url", t.DownloadURL)
		}
	}

	sweeper := storage.NewSweeper(paths, store,
		cfg.Cleanup.TTLDuration(), cfg.Cleanup.IntervalDuration(), logger)
	go sweeper.Run(ctx)

	handler := api.New(api.Options{
		Config:  cfg,
		Paths:   paths,
		Store:   store,
		Sweeper: sweeper,
		Runner:  runner,
		Logger:  logger,
	})

	return server.New(&cfg.Server, handler, logger).Run(ctx)
}

func buildStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (registry.Store, func(), error) {
	switch cfg.Registry.Backend {
	case config.RegistryBackendPostgres:
		db, err := sql.Open("pgx", cfg.Registry.Database.Dsn())
		if err != nil {
			return nil, nil, fmt.Errorf("open database: %w", err)
		}
		db.SetMaxOpenConns(cfg.Registry.Database.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Registry.Database.MaxIdleConns)

		pingCtx, cancel := context.WithTimeout(ctx, cfg.Registry.Database.ConnTimeoutDuration())
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("ping database: %w", err)
		}
		if err := registry.Migrate(db); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("migrate database: %w", err)
		}

		logger.Info("registry backend ready", "backend", "postgres")
		return registry.NewPostgres(db), func() { db.Close() }, nil
	default:
		logger.Info("registry backend ready", "backend", "memory")
		return registry.NewMemory(), func() {}, nil
	}
}
