package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/FerDeNetlab/auramarket/internal/adapters/logger"
	"github.com/FerDeNetlab/auramarket/internal/adapters/remote"
	"github.com/FerDeNetlab/auramarket/internal/adapters/storage"
	"github.com/FerDeNetlab/auramarket/internal/domain/models"
	"github.com/FerDeNetlab/auramarket/internal/domain/services"
	"github.com/FerDeNetlab/auramarket/internal/metrics"
	"github.com/FerDeNetlab/auramarket/internal/security"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Meta    json.RawMessage `json:"meta"`
	Error   string          `json:"error"`
	Code    int             `json:"code"`
}

type testServer struct {
	handler http.Handler
	remote  *remote.Static
	store   *storage.MemoryStore
}

func newTestServer(t *testing.T, mutate func(*Deps)) *testServer {
	t.Helper()
	ctx := context.Background()
	log := logger.NewNop()

	store := storage.NewMemoryStore()
	require.NoError(t, storage.SeedDemoData(ctx, store, log))

	static := remote.NewStatic(remote.FetchResult{
		Count: 3,
		Products: []models.Product{
			{SKU: "cva-1", Name: "Filtro", Price: 10, Stock: 2},
			{SKU: "cva-2", Name: "Balata", Price: 20, Stock: 1},
			{SKU: "cva-3", Name: "Bujía", Price: 5, Stock: 9},
		},
	})
	orch := services.NewOrchestrator(store, static, static, services.NewState(100), log)
	require.NoError(t, orch.Load(ctx))

	reg := prometheus.NewRegistry()
	deps := Deps{
		Hub:                orch,
		Logger:             log,
		Health:             store,
		CORSAllowedOrigins: []string{"*"},
		RequestTimeout:     5 * time.Second,
		HTTPMetrics:        metrics.NewHTTPMetrics(reg),
		MetricsHandler:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	}
	if mutate != nil {
		mutate(&deps)
	}

	return &testServer{handler: SetupRouter(deps), remote: static, store: store}
}

func (s *testServer) do(t *testing.T, method, path, token string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var env envelope
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func TestRouter_HealthAndReady(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, nil)

	rec, _ := s.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())

	rec, _ = s.do(t, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	require.NoError(t, s.store.Close())
	rec, _ = s.do(t, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRouter_ReadEndpoints(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, nil)

	rec, env := s.do(t, http.MethodGet, "/api/v1/providers", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var providers []models.Provider
	require.NoError(t, json.Unmarshal(env.Data, &providers))
	require.Len(t, providers, 3)
	assert.Equal(t, "cva", providers[0].ID)

	rec, env = s.do(t, http.MethodGet, "/api/v1/providers/fulfil", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var p models.Provider
	require.NoError(t, json.Unmarshal(env.Data, &p))
	assert.Equal(t, "FulFil", p.Name)

	rec, env = s.do(t, http.MethodGet, "/api/v1/providers/nope", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", env.Error)

	rec, env = s.do(t, http.MethodGet, "/api/v1/marketplaces", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var marketplaces []models.Marketplace
	require.NoError(t, json.Unmarshal(env.Data, &marketplaces))
	assert.Len(t, marketplaces, 3)

	rec, env = s.do(t, http.MethodGet, "/api/v1/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats models.DashboardStats
	require.NoError(t, json.Unmarshal(env.Data, &stats))
	assert.Equal(t, 24170, stats.TotalProducts)
	assert.Equal(t, 26100, stats.SyncedProducts)
	assert.Equal(t, -1930, stats.PendingSync)
	assert.True(t, stats.Inconsistent)

	rec, env = s.do(t, http.MethodGet, "/api/v1/hub", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var hub models.HubConnection
	require.NoError(t, json.Unmarshal(env.Data, &hub))
	assert.Equal(t, services.DefaultHubName, hub.Name)
}

func TestRouter_SyncThenUpload(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, nil)

	rec, env := s.do(t, http.MethodPost, "/api/v1/providers/cva/sync", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var p models.Provider
	require.NoError(t, json.Unmarshal(env.Data, &p))
	assert.Equal(t, models.StatusConnected, p.Status)
	assert.Equal(t, 15423, p.ProductCount)

	rec, env = s.do(t, http.MethodGet, "/api/v1/providers/cva/products?page=1&page_size=2&published=false", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var products []models.Product
	require.NoError(t, json.Unmarshal(env.Data, &products))
	assert.Len(t, products, 2)
	var meta struct {
		Pagination struct {
			TotalItems int  `json:"total_items"`
			HasNext    bool `json:"has_next"`
		} `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(env.Meta, &meta))
	assert.Equal(t, 3, meta.Pagination.TotalItems)
	assert.True(t, meta.Pagination.HasNext)

	rec, _ = s.do(t, http.MethodPost, "/api/v1/providers/cva/upload", "")
	require.Equal(t, http.StatusOK, rec.Code)
	calls := s.remote.PublishCalls()
	require.Len(t, calls, 1)
	assert.Len(t, calls[0].Products, 3)

	rec, env = s.do(t, http.MethodGet, "/api/v1/activity?limit=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var entries []models.SyncLogEntry
	require.NoError(t, json.Unmarshal(env.Data, &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, models.ActionUpload, entries[0].Action)
	assert.Equal(t, models.OutcomeSuccess, entries[0].Outcome)
}

func TestRouter_SyncFailureStillReturnsEntity(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, nil)
	s.remote.FailFetch(errors.New("connection reset"))

	rec, env := s.do(t, http.MethodPost, "/api/v1/providers/fulfil/sync", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var p models.Provider
	require.NoError(t, json.Unmarshal(env.Data, &p))
	assert.Equal(t, models.StatusError, p.Status)
	assert.Equal(t, 8750, p.ProductCount)
}

func TestRouter_BadQuery(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, nil)

	for _, path := range []string{
		"/api/v1/providers/cva/products?page=0",
		"/api/v1/providers/cva/products?page_size=1000",
		"/api/v1/providers/cva/products?published=maybe",
		"/api/v1/activity?limit=-1",
	} {
		rec, env := s.do(t, http.MethodGet, path, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
		assert.Equal(t, "bad_request", env.Error, path)
	}
}

func TestRouter_BulkAndRefresh(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, nil)

	rec, env := s.do(t, http.MethodPost, "/api/v1/sync-all", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var bulk services.BulkResult
	require.NoError(t, json.Unmarshal(env.Data, &bulk))
	assert.Equal(t, 2, bulk.Succeeded)
	assert.Equal(t, []string{"cva", "fulfil"}, s.remote.FetchCalls())

	rec, _ = s.do(t, http.MethodPost, "/api/v1/publish-all", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, s.remote.PublishCalls(), 2)

	rec, _ = s.do(t, http.MethodPost, "/api/v1/refresh", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	s.store.FailNext(storage.OpListProviders, models.StoreUnavailable)
	rec, env = s.do(t, http.MethodPost, "/api/v1/refresh", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "store_unavailable", env.Error)
}

func TestRouter_JWTAuth(t *testing.T) {
	t.Parallel()

	jwtManager, err := security.NewJWTManager("test-secret", time.Hour, "aura")
	require.NoError(t, err)
	s := newTestServer(t, func(d *Deps) { d.Auth = jwtManager })

	viewer, err := jwtManager.Generate("v", []string{"viewer"})
	require.NoError(t, err)
	operator, err := jwtManager.Generate("o", []string{"operator"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		want   int
	}{
		{"no token", http.MethodGet, "/api/v1/providers", "", http.StatusUnauthorized},
		{"garbage token", http.MethodGet, "/api/v1/providers", "garbage", http.StatusUnauthorized},
		{"viewer reads", http.MethodGet, "/api/v1/providers", viewer, http.StatusOK},
		{"viewer cannot sync", http.MethodPost, "/api/v1/providers/cva/sync", viewer, http.StatusForbidden},
		{"operator syncs", http.MethodPost, "/api/v1/providers/cva/sync", operator, http.StatusOK},
		{"health is public", http.MethodGet, "/health", "", http.StatusOK},
	}

	for _, tt := range tests {
		rec, _ := s.do(t, tt.method, tt.path, tt.token)
		assert.Equal(t, tt.want, rec.Code, tt.name)
	}
}

func TestRouter_MetricsUseRoutePattern(t *testing.T) {
	t.Parallel()
	s := newTestServer(t, nil)

	s.do(t, http.MethodGet, "/api/v1/providers/cva", "")

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, `path="/api/v1/providers/{id}`)
	assert.NotContains(t, body, `path="/api/v1/providers/cva"`)
}
