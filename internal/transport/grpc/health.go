// Package grpc exposes the standard gRPC health service, driven by periodic storage checks.
package grpc

import (
	"context"
	"errors"
	"log/slog"
	"time"

	ierrors "github.com/abgdnv/inventory/internal/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Checker reports whether a dependency is usable.
type Checker func(ctx context.Context) error

// Getter is the read side of the key-value storage.
type Getter interface {
	Get(ctx context.Context, key string) (string, error)
}

// StorageChecker reads key from storage. A missing key still means the storage answered.
func StorageChecker(storage Getter, key string) Checker {
	return func(ctx context.Context) error {
		_, err := storage.Get(ctx, key)
		if errors.Is(err, ierrors.ErrKeyNotFound) {
			return nil
		}
		return err
	}
}

// HealthMonitor updates a health.Server with the result of a Checker.
// The overall status ("") and every named service share the result.
type HealthMonitor struct {
	server   *health.Server
	check    Checker
	interval time.Duration
	timeout  time.Duration
	services []string
	logger   *slog.Logger
}

// NewHealthMonitor creates a monitor that runs check every interval, each run bounded by interval.
func NewHealthMonitor(check Checker, interval time.Duration, logger *slog.Logger, services ...string) *HealthMonitor {
	return &HealthMonitor{
		server:   health.NewServer(),
		check:    check,
		interval: interval,
		timeout:  interval,
		services: append([]string{""}, services...),
		logger:   logger.With("component", "health"),
	}
}

// Register adds the health service to s.
func (m *HealthMonitor) Register(s *grpc.Server) {
	healthpb.RegisterHealthServer(s, m.server)
}

// Run checks immediately and then on every tick until ctx is done.
// Every service is reported NOT_SERVING once Run returns.
func (m *HealthMonitor) Run(ctx context.Context) {
	defer m.Shutdown()
	m.CheckOnce(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.CheckOnce(ctx)
		}
	}
}

// CheckOnce runs the checker and publishes the resulting status.
func (m *HealthMonitor) CheckOnce(ctx context.Context) healthpb.HealthCheckResponse_ServingStatus {
	checkCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	status := healthpb.HealthCheckResponse_SERVING
	if err := m.check(checkCtx); err != nil {
		if ctx.Err() != nil {
			return healthpb.HealthCheckResponse_NOT_SERVING
		}
		m.logger.WarnContext(ctx, "Health check failed", "error", err)
		status = healthpb.HealthCheckResponse_NOT_SERVING
	}
	for _, svc := range m.services {
		m.server.SetServingStatus(svc, status)
	}
	return status
}

// Shutdown reports NOT_SERVING for every service and ignores later updates.
func (m *HealthMonitor) Shutdown() {
	m.server.Shutdown()
}
