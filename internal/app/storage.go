package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/abgdnv/inventory/internal/kv"
	"github.com/abgdnv/inventory/internal/kv/natskv"
	"github.com/abgdnv/inventory/internal/kv/pgkv"
	"github.com/abgdnv/inventory/pkg/bootstrap"
	"github.com/abgdnv/inventory/pkg/config"
	pnats "github.com/abgdnv/inventory/pkg/nats"
	"github.com/sony/gobreaker/v2"
)

// NewStorage opens the backend selected by cfg.Driver. Remote backends run
// their calls through a timeout, retries and a circuit breaker.
// The returned function releases the backend's connections.
func NewStorage(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (kv.Store, func(), error) {
	noop := func() {}
	switch cfg.Driver {
	case config.DriverMemory, "":
		logger.Warn("Using in-memory storage, products will not survive a restart")
		return kv.NewMemoryStore(), noop, nil

	case config.DriverFile:
		store, err := kv.NewFileStore(cfg.File.Path)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Using file storage", "path", cfg.File.Path)
		return kv.WithTimeout(store, cfg.Timeout), noop, nil

	case config.DriverPostgres:
		if err := pgkv.Migrate(cfg.Database.URL); err != nil {
			return nil, nil, fmt.Errorf("failed to migrate database: %w", err)
		}
		dbPool, err := bootstrap.NewDbPool(ctx, cfg.Database.URL, cfg.Database.Timeout)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("Successfully connected to the database!")
		return resilient(pgkv.NewPgStore(dbPool), cfg, logger), dbPool.Close, nil

	case config.DriverNATS:
		nc, err := pnats.NewClient(cfg.NATS.Url, cfg.NATS.Timeout, pnats.LoggingHandlers("inventory", logger)...)
		if err != nil {
			return nil, nil, err
		}
		js, err := pnats.NewJetStreamContext(nc)
		if err != nil {
			return nil, nil, err
		}
		bucketCtx, cancel := context.WithTimeout(ctx, cfg.NATS.Timeout)
		defer cancel()
		store, err := natskv.NewNatsStore(bucketCtx, js, cfg.NATS.Bucket)
		if err != nil {
			nc.Close()
			return nil, nil, err
		}
		logger.Info("Successfully connected to NATS!", "bucket", cfg.NATS.Bucket)
		return resilient(store, cfg, logger), nc.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func resilient(store kv.Store, cfg config.StorageConfig, logger *slog.Logger) kv.Store {
	cb := cfg.Resilience.CircuitBreaker
	retry := cfg.Resilience.Retry
	return kv.WithCircuitBreaker(
		kv.WithRetry(kv.WithTimeout(store, cfg.Timeout), retry.MaxAttempts, retry.InitialBackoff),
		kv.BreakerSettings{
			Name:                "storage-" + string(cfg.Driver),
			ConsecutiveFailures: cb.ConsecutiveFailures,
			ErrorRatePercent:    cb.ErrorRatePercent,
			OpenTimeout:         cb.OpenTimeout,
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("Storage circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
			},
		},
	)
}
