// Package main runs the inventory service: the product catalog over HTTP, a gRPC health service and metrics.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "net/http/pprof"

	"github.com/abgdnv/inventory/internal/app"
	"github.com/abgdnv/inventory/internal/config"
	"github.com/abgdnv/inventory/pkg/bootstrap"
	"github.com/abgdnv/inventory/pkg/config/configloader"
	"github.com/abgdnv/inventory/pkg/telemetry"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
)

const serviceName = "inventory"

func main() {

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Printf("application run failed: %v", err)
		os.Exit(1)
	}
	log.Println("application stopped gracefully")
}

// run loads the configuration, opens storage, loads the catalog and starts the HTTP, gRPC and pprof servers.
func run(ctx context.Context) error {
	cfg, cfgErr := configloader.Load[*config.Config](serviceName)
	if cfgErr != nil {
		return fmt.Errorf("failed to load configuration: %w", cfgErr)
	}
	log.Printf("Configuration loaded: %v", cfg)

	logger := bootstrap.NewLogger(cfg.Log.Level)
	slog.SetDefault(logger)

	if cfg.Telemetry.Enabled {
		tp, err := telemetry.NewTracerProvider(ctx, serviceName, cfg.Telemetry)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
			defer cancel()
			if err := tp.Shutdown(shutdownCtx); err != nil {
				logger.Error("Failed to shut down tracer provider", "error", err)
			}
		}()
	}

	// the meter provider must be installed before the catalog creates its instruments
	mp, metricsHandler, err := telemetry.NewMeterProvider(serviceName)
	if err != nil {
		return err
	}
	defer func() {
		if err := mp.Shutdown(context.Background()); err != nil {
			logger.Error("Failed to shut down meter provider", "error", err)
		}
	}()

	storage, closeStorage, err := app.NewStorage(ctx, cfg.Storage, logger)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer closeStorage()

	deps, err := app.SetupDependencies(ctx, storage, cfg, metricsHandler, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := deps.Catalog.Close(); err != nil {
			logger.Error("Failed to release catalog metrics", "error", err)
		}
	}()
	logger.Info("Catalog loaded", slog.Int("products", len(deps.Catalog.Products())))

	httpServer, pprofServer, grpcServer := setupServers(deps, cfg)

	g, gCtx := errgroup.WithContext(ctx)

	// Start the HTTP server
	g.Go(func() error {
		logger.Info("HTTP server listening", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server failed: %w", err)
		}
		return nil
	})
	// gracefully shutdown HTTP server on context cancellation
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	// Keep the health status in sync with storage
	g.Go(func() error {
		deps.HealthMonitor.Run(gCtx)
		return nil
	})

	// Start the gRPC server
	g.Go(func() error {
		grpcAddr := ":" + cfg.GRPC.Port
		lis, err := net.Listen("tcp", grpcAddr)
		if err != nil {
			return fmt.Errorf("failed to listen on gRPC port: %w", err)
		}
		logger.Info("gRPC server listening", slog.String("addr", grpcAddr))
		return grpcServer.Serve(lis)
	})
	// gracefully shutdown gRPC server on context cancellation
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutting down gRPC server...")
		stopped := make(chan struct{})
		go func() {
			grpcServer.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
			logger.Info("gRPC server stopped gracefully.")
			return nil
		case <-time.After(cfg.Shutdown.Timeout):
			logger.Warn("gRPC server graceful stop timed out. Forcing stop.")
			grpcServer.Stop()
			return fmt.Errorf("grpc server graceful stop timed out")
		}
	})

	// Start the pprof server if enabled
	if cfg.PProf.Enabled {
		g.Go(func() error {
			logger.Info("Pprof server listening", slog.String("addr", pprofServer.Addr))
			if err := pprofServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("pprof server failed: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gCtx.Done()
			logger.Info("Shutting down pprof server...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Shutdown.Timeout)
			defer cancel()
			return pprofServer.Shutdown(shutdownCtx)
		})
	}
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("errgroup encountered an error: %w", err)
	}
	return nil
}

func setupServers(deps *app.Dependencies, cfg *config.Config) (*http.Server, *http.Server, *grpc.Server) {
	httpServer := app.SetupHttpServer(deps, cfg)
	grpcServer := app.SetupGrpcServer(deps, cfg.GRPC.ReflectionEnabled)
	pprofServer := &http.Server{
		Addr:              cfg.PProf.Addr,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return httpServer, pprofServer, grpcServer
}
