// Package app wires the inventory service together.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/abgdnv/inventory/internal/catalog"
	"github.com/abgdnv/inventory/internal/config"
	"github.com/abgdnv/inventory/internal/kv"
	grpcImpl "github.com/abgdnv/inventory/internal/transport/grpc"
	"github.com/abgdnv/inventory/internal/transport/rest"
	"github.com/abgdnv/inventory/pkg/server"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"google.golang.org/grpc"
)

// HealthServiceName is the service name reported by the gRPC health service.
const HealthServiceName = "inventory.v1.Inventory"

type Dependencies struct {
	Catalog        *catalog.Store
	Storage        kv.Store
	HealthMonitor  *grpcImpl.HealthMonitor
	MetricsHandler http.Handler
	Logger         *slog.Logger
}

// SetupDependencies builds the catalog over storage and loads the persisted products.
// metricsHandler may be nil, in which case /metrics is not served.
func SetupDependencies(ctx context.Context, storage kv.Store, cfg *config.Config, metricsHandler http.Handler, logger *slog.Logger) (*Dependencies, error) {
	store := catalog.NewStore(storage, logger,
		catalog.WithKey(cfg.Storage.Key),
		catalog.WithPageSize(cfg.Catalog.PageSize),
		catalog.WithSeed(cfg.Catalog.SeedProducts()),
	)
	if err := store.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	monitor := grpcImpl.NewHealthMonitor(
		grpcImpl.StorageChecker(storage, cfg.Storage.Key),
		cfg.GRPC.HealthInterval,
		logger,
		HealthServiceName,
	)
	return &Dependencies{
		Catalog:        store,
		Storage:        storage,
		HealthMonitor:  monitor,
		MetricsHandler: metricsHandler,
		Logger:         logger,
	}, nil
}

// SetupHttpHandler initializes the routes and middleware of the inventory API.
// Used by E2E tests to set up the HTTP server with the necessary routes and middleware.
func SetupHttpHandler(deps *Dependencies) http.Handler {
	mux := server.NewChiRouter(deps.Logger)
	wireRoutes(mux, deps)
	return otelhttp.NewHandler(mux, "inventory-http",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}

// wireRoutes sets up the HTTP routes for the inventory application.
func wireRoutes(mux *chi.Mux, deps *Dependencies) {
	rest.NewHandler(deps.Catalog, deps.Logger).RegisterRoutes(mux)
	if deps.MetricsHandler != nil {
		mux.Method(http.MethodGet, "/metrics", deps.MetricsHandler)
	}
}

// SetupHttpServer creates and configures the HTTP server of the inventory application.
func SetupHttpServer(deps *Dependencies, cfg *config.Config) *http.Server {
	handler := SetupHttpHandler(deps)

	httpCfg := server.HTTPConfig{
		Port:           cfg.HTTPServer.Port,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		ReadTimeout:    cfg.HTTPServer.Timeout.Read,
		WriteTimeout:   cfg.HTTPServer.Timeout.Write,
		IdleTimeout:    cfg.HTTPServer.Timeout.Idle,
		ReadHeader:     cfg.HTTPServer.Timeout.ReadHeader,
	}

	return server.NewHTTPServer(httpCfg, handler)
}

// SetupGrpcServer creates the gRPC server exposing the health service.
func SetupGrpcServer(deps *Dependencies, reflectionEnabled bool) *grpc.Server {
	return server.NewGRPCServer(deps.Logger, reflectionEnabled, deps.HealthMonitor.Register)
}
