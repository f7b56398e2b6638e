// Package e2e provides end-to-end tests for the inventory service.
// The suite starts a PostgreSQL container with testcontainers-go, opens it through the same
// storage wiring the service uses (migrations, retries, circuit breaker) and serves the real
// HTTP handler from an httptest.Server. Every test starts from an empty kv_entries table and a
// freshly loaded catalog.
package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/abgdnv/inventory/internal/app"
	"github.com/abgdnv/inventory/internal/catalog"
	"github.com/abgdnv/inventory/internal/config"
	"github.com/abgdnv/inventory/internal/kv"
	"github.com/abgdnv/inventory/pkg/bootstrap"
	pkgconfig "github.com/abgdnv/inventory/pkg/config"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// skipE2ETests is the environment variable that can be set to skip E2E tests.
const skipE2ETests = "INVENTORY_SKIP_E2E_TESTS"

const (
	productsURL = "/api/v1/products"
	pageURL     = "/api/v1/page"
	pageSizeURL = "/api/v1/page-size"
)

type InventoryE2ESuite struct {
	suite.Suite
	pgContainer  *postgres.PostgresContainer
	dbPool       *pgxpool.Pool
	storage      kv.Store
	closeStorage func()
	server       *httptest.Server
	httpClient   *http.Client
	appCfg       *config.Config
	logger       *slog.Logger
	ctx          context.Context
}

func testConfig(databaseURL string) *config.Config {
	var cfg config.Config

	cfg.HTTPServer.Port = 8080
	cfg.HTTPServer.Timeout.Read = time.Minute
	cfg.HTTPServer.Timeout.Write = time.Minute
	cfg.HTTPServer.Timeout.Idle = time.Minute
	cfg.HTTPServer.Timeout.ReadHeader = time.Minute
	cfg.GRPC.Port = "0"

	cfg.Storage.Driver = pkgconfig.DriverPostgres
	cfg.Storage.Database.URL = databaseURL
	cfg.Storage.Database.Timeout = 10 * time.Second
	cfg.Storage.Resilience.Retry.MaxAttempts = 3
	cfg.Storage.Resilience.Retry.InitialBackoff = 50 * time.Millisecond
	cfg.Storage.Resilience.CircuitBreaker.ConsecutiveFailures = 5
	cfg.Storage.Resilience.CircuitBreaker.ErrorRatePercent = 60
	cfg.Storage.Resilience.CircuitBreaker.OpenTimeout = time.Second

	return &cfg
}

func (s *InventoryE2ESuite) SetupSuite() {
	s.ctx = context.Background()
	var err error
	s.logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))

	s.pgContainer, err = postgres.Run(s.ctx,
		"postgres:17.5-alpine",
		postgres.WithDatabase("inventory"),
		postgres.WithUsername("user"),
		postgres.WithPassword("password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Minute),
		),
	)
	require.NoError(s.T(), err, "Failed to run PostgreSQL container")

	connStr, err := s.pgContainer.ConnectionString(s.ctx, "sslmode=disable")
	require.NoError(s.T(), err, "Failed to get connection string from container")

	s.appCfg = testConfig(connStr)
	require.NoError(s.T(), s.appCfg.Validate())

	// NewStorage applies the migrations
	s.storage, s.closeStorage, err = app.NewStorage(s.ctx, s.appCfg.Storage, s.logger)
	require.NoError(s.T(), err, "Failed to open postgres storage")

	s.dbPool, err = bootstrap.NewDbPool(s.ctx, connStr, 10*time.Second)
	require.NoError(s.T(), err, "Failed to create pgx pool")
}

func (s *InventoryE2ESuite) TearDownSuite() {
	if s.server != nil {
		s.server.Close()
	}
	if s.dbPool != nil {
		s.dbPool.Close()
	}
	if s.closeStorage != nil {
		s.closeStorage()
	}
	if s.pgContainer != nil {
		if err := s.pgContainer.Terminate(s.ctx); err != nil {
			s.logger.Warn("Failed to terminate E2E PostgreSQL container", "error", err)
		}
	}
}

// SetupTest empties storage and serves a freshly loaded catalog.
func (s *InventoryE2ESuite) SetupTest() {
	_, err := s.dbPool.Exec(s.ctx, "TRUNCATE TABLE kv_entries")
	require.NoError(s.T(), err, "Failed to truncate kv_entries table")
	s.startServer()
}

func (s *InventoryE2ESuite) TearDownTest() {
	if s.server != nil {
		s.server.Close()
		s.server = nil
	}
}

// startServer loads the catalog from storage and serves it, replacing any running server.
func (s *InventoryE2ESuite) startServer() {
	if s.server != nil {
		s.server.Close()
	}
	deps, err := app.SetupDependencies(s.ctx, s.storage, s.appCfg, nil, s.logger)
	require.NoError(s.T(), err, "Failed to setup application for E2E")
	s.server = httptest.NewServer(app.SetupHttpHandler(deps))
	s.httpClient = s.server.Client()
}

func TestInventoryE2E(t *testing.T) {
	if os.Getenv(skipE2ETests) == "1" {
		t.Skip("Skipping E2E tests based on " + skipE2ETests + " env var")
	}
	suite.Run(t, new(InventoryE2ESuite))
}

// --------------------------------------------------------------------------
// ---------- Payload structures and Helper methods for E2E tests -----------
// --------------------------------------------------------------------------

type createProductPayload struct {
	Name    string `json:"name"`
	Price   any    `json:"price"`
	InStock *bool  `json:"inStock,omitempty"`
}

func (s *InventoryE2ESuite) createProduct(payload createProductPayload) (catalog.Product, int) {
	s.T().Helper()
	body, status := s.doRequest(http.MethodPost, productsURL, payload)
	var p catalog.Product
	if status == http.StatusCreated {
		require.NoError(s.T(), json.Unmarshal(body, &p))
	}
	return p, status
}

func (s *InventoryE2ESuite) view() catalog.View {
	s.T().Helper()
	body, status := s.doRequest(http.MethodGet, productsURL, nil)
	require.Equal(s.T(), http.StatusOK, status)
	return s.decodeView(body)
}

func (s *InventoryE2ESuite) decodeView(body []byte) catalog.View {
	s.T().Helper()
	var v catalog.View
	require.NoError(s.T(), json.Unmarshal(body, &v), "Failed to decode view: %s", body)
	return v
}

func (s *InventoryE2ESuite) doRequest(method, path string, payload any) ([]byte, int) {
	s.T().Helper()
	var body io.Reader
	if payload != nil {
		payloadBytes, err := json.Marshal(payload)
		require.NoError(s.T(), err)
		body = bytes.NewBuffer(payloadBytes)
	}

	req, err := http.NewRequestWithContext(s.ctx, method, s.server.URL+path, body)
	require.NoError(s.T(), err, "Failed to create HTTP request")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	require.NoError(s.T(), err, "HTTP request failed")
	defer func() {
		require.NoError(s.T(), resp.Body.Close(), "Failed to close response body")
	}()

	bodyBytes, err := io.ReadAll(resp.Body)
	require.NoError(s.T(), err, "Failed to read response body")
	return bodyBytes, resp.StatusCode
}

// --------------------------------------------------------------------------
// --------------------------------- Tests ----------------------------------
// --------------------------------------------------------------------------

func (s *InventoryE2ESuite) TestCreateProduct() {
	outOfStock := false
	testCases := []struct {
		name           string
		payload        createProductPayload
		expectedStatus int
		expectedPrice  int64
		expectedStock  bool
	}{
		{name: "numeric price", payload: createProductPayload{Name: "Milk", Price: 25000}, expectedStatus: http.StatusCreated, expectedPrice: 25000, expectedStock: true},
		{name: "grouped string price", payload: createProductPayload{Name: "Bread", Price: "1.500 đ"}, expectedStatus: http.StatusCreated, expectedPrice: 1500, expectedStock: true},
		{name: "out of stock", payload: createProductPayload{Name: "Eggs", Price: "3000", InStock: &outOfStock}, expectedStatus: http.StatusCreated, expectedPrice: 3000},
		{name: "blank name", payload: createProductPayload{Name: "   ", Price: 1000}, expectedStatus: http.StatusBadRequest},
		{name: "zero price", payload: createProductPayload{Name: "Air", Price: "0"}, expectedStatus: http.StatusBadRequest},
		{name: "price without digits", payload: createProductPayload{Name: "Air", Price: "free"}, expectedStatus: http.StatusBadRequest},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			p, status := s.createProduct(tc.payload)

			s.Require().Equal(tc.expectedStatus, status)
			if status != http.StatusCreated {
				return
			}
			s.NotEmpty(p.ID)
			s.Equal(tc.expectedPrice, p.Price)
			s.Equal(tc.expectedStock, p.InStock)
			s.False(p.Marked)
		})
	}

	v := s.view()
	s.Equal(3, v.Total)
	s.Equal("Eggs", v.Items[0].Name, "newest product comes first")
}

func (s *InventoryE2ESuite) TestToggleMarkDelete() {
	p, status := s.createProduct(createProductPayload{Name: "Milk", Price: 25000})
	s.Require().Equal(http.StatusCreated, status)

	_, status = s.doRequest(http.MethodPut, productsURL+"/"+p.ID+"/stock", nil)
	s.Equal(http.StatusNoContent, status)
	_, status = s.doRequest(http.MethodPut, productsURL+"/"+p.ID+"/mark", nil)
	s.Equal(http.StatusNoContent, status)

	v := s.view()
	s.Require().Len(v.Items, 1)
	s.False(v.Items[0].InStock)
	s.True(v.Items[0].Marked)

	_, status = s.doRequest(http.MethodPut, productsURL+"/unknown/stock", nil)
	s.Equal(http.StatusNoContent, status, "unknown ids are ignored")

	_, status = s.doRequest(http.MethodDelete, productsURL+"/"+p.ID, nil)
	s.Equal(http.StatusNoContent, status)
	v = s.view()
	s.Equal(0, v.Total)
	s.Equal(1, v.TotalPages)
	s.Empty(v.Items)
}

func (s *InventoryE2ESuite) TestPagination() {
	for i := range 12 {
		_, status := s.createProduct(createProductPayload{Name: fmt.Sprintf("Product %02d", i), Price: 1000 + i})
		s.Require().Equal(http.StatusCreated, status)
	}

	body, status := s.doRequest(http.MethodPut, pageURL, map[string]int{"page": 3})
	s.Require().Equal(http.StatusOK, status)
	v := s.decodeView(body)
	s.Equal(3, v.Page)
	s.Equal(3, v.TotalPages)
	s.Len(v.Items, 2)
	s.Equal("Product 01", v.Items[0].Name)

	body, status = s.doRequest(http.MethodPut, pageSizeURL, map[string]int{"pageSize": 10})
	s.Require().Equal(http.StatusOK, status)
	v = s.decodeView(body)
	s.Equal(1, v.Page, "changing the page size returns to the first page")
	s.Equal(10, v.PageSize)
	s.Equal(2, v.TotalPages)
	s.Len(v.Items, 10)
	s.Equal("Product 11", v.Items[0].Name)

	_, status = s.doRequest(http.MethodPut, pageSizeURL, map[string]int{"pageSize": 7})
	s.Equal(http.StatusBadRequest, status)

	_, status = s.createProduct(createProductPayload{Name: "Newest", Price: 500})
	s.Require().Equal(http.StatusCreated, status)
	v = s.view()
	s.Equal(1, v.Page, "adding a product returns to the first page")
	s.Equal("Newest", v.Items[0].Name)
}

func (s *InventoryE2ESuite) TestProductsSurviveRestart() {
	for _, name := range []string{"Milk", "Bread"} {
		_, status := s.createProduct(createProductPayload{Name: name, Price: 1000})
		s.Require().Equal(http.StatusCreated, status)
	}
	before := s.view()

	s.startServer()

	after := s.view()
	s.Equal(before.Items, after.Items)
	s.Equal(1, after.Page)
}

func (s *InventoryE2ESuite) TestRequestIDIsEchoed() {
	req, err := http.NewRequestWithContext(s.ctx, http.MethodGet, s.server.URL+"/healthz", nil)
	s.Require().NoError(err)
	req.Header.Set("X-Request-Id", "e2e-request")

	resp, err := s.httpClient.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal("e2e-request", resp.Header.Get("X-Request-Id"))
}
