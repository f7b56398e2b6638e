// Package bootstrap creates the process-wide collaborators shared by the binaries.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/abgdnv/inventory/pkg/logger"
	"github.com/jackc/pgx/v5/pgxpool"
)

// NewLogger creates a JSON slog.Logger writing to stdout with the specified log level.
func NewLogger(level string) *slog.Logger {
	return NewLoggerTo(os.Stdout, level)
}

// NewLoggerTo creates a JSON slog.Logger writing to w. Records carry the
// trace and request ids found in their context.
func NewLoggerTo(w io.Writer, level string) *slog.Logger {
	logLevel := toLevel(level)
	loggerOpts := &slog.HandlerOptions{
		AddSource: logLevel == slog.LevelDebug,
		Level:     logLevel,
	}
	return slog.New(logger.NewContextHandler(slog.NewJSONHandler(w, loggerOpts)))
}

// NewDbPool creates a new database connection pool and pings it within connectTimeout.
func NewDbPool(ctx context.Context, url string, connectTimeout time.Duration) (*pgxpool.Pool, error) {
	poolCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	dbPool, errPool := pgxpool.New(poolCtx, url)
	if errPool != nil {
		return nil, fmt.Errorf("failed to create database connection pool: %w", errPool)
	}
	// fail early if the database is unreachable
	if err := dbPool.Ping(poolCtx); err != nil {
		dbPool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return dbPool, nil
}

// toLevel converts a string representation of a log level to slog.Level.
func toLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
