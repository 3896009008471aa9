package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dashboardhandler "github.com/FACorreiaa/smart-sales-tracker/internal/domain/dashboard/handler"
	storesvc "github.com/FACorreiaa/smart-sales-tracker/internal/domain/dataset/service"
	importsvc "github.com/FACorreiaa/smart-sales-tracker/internal/domain/import/service"
	"github.com/FACorreiaa/smart-sales-tracker/internal/domain/insight"
	"github.com/FACorreiaa/smart-sales-tracker/pkg/config"
)

func newTestDeps(t *testing.T) *Dependencies {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := &config.Config{
		Server:        config.ServerConfig{RateLimitPerSecond: 100, RateLimitBurst: 100, MaxBodyBytes: 1 << 20},
		Observability: config.ObservabilityConfig{MetricsEnabled: true},
		Snapshot:      config.SnapshotConfig{Backend: config.BackendMemory},
	}

	store := storesvc.NewStore(nil, logger)
	importer := importsvc.NewImportService(store, logger)
	insights := insight.NewService(nil, "Hebrew", 0, logger)

	return &Dependencies{
		Config:           cfg,
		Logger:           logger,
		Store:            store,
		ImportService:    importer,
		InsightService:   insights,
		DashboardHandler: dashboardhandler.NewDashboardHandler(store, importer, insights, logger),
	}
}

func TestUtilityRoutes(t *testing.T) {
	server := httptest.NewServer(SetupRouter(newTestDeps(t)))
	defer server.Close()

	for _, path := range []string{"/health", "/ready", "/metrics"} {
		resp, err := http.Get(server.URL + path)
		require.NoError(t, err)
		_ = resp.Body.Close()
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
	}

	resp, err := http.Get(server.URL + "/health/details")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var details map[string]struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&details))
	assert.Equal(t, "ok", details["store"].Status)
	assert.Equal(t, "warn", details["insight"].Status)
}

func TestDashboardRoute_ConnectJSON(t *testing.T) {
	server := httptest.NewServer(SetupRouter(newTestDeps(t)))
	defer server.Close()

	body := `{"files":[{"name":"rows","rows":[{"תיאור":"כיסא","סה\"כ סכום":"120"}]}]}`
	req, err := http.NewRequest(http.MethodPost, server.URL+dashboardhandler.ImportDocumentsProcedure, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(requestIDHeader, "test-request")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "test-request", resp.Header.Get(requestIDHeader))

	var out dashboardhandler.ImportDocumentsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, 1, out.Result.Imported)
	assert.Equal(t, 1, out.Status.SalesRecords)
}

func TestDashboardRoute_InsightUnavailable(t *testing.T) {
	server := httptest.NewServer(SetupRouter(newTestDeps(t)))
	defer server.Close()

	resp, err := http.Post(server.URL+dashboardhandler.RequestInsightProcedure, "application/json",
		strings.NewReader(`{"dataset":"sales"}`))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}
