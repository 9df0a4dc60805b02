// internal/app/routes_test.go

package app_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apppkg "dca-oilgas/internal/app"
	"dca-oilgas/internal/config"
	"dca-oilgas/internal/services"
)

func newRouter(t *testing.T, mutate func(*config.Config)) *mux.Router {
	t.Helper()
	cfg := config.Load()
	cfg.APIKey = ""
	if mutate != nil {
		mutate(cfg)
	}
	log := logrus.New()
	log.SetOutput(io.Discard)

	r := mux.NewRouter()
	apppkg.RegisterRoutes(r, cfg, log)
	return r
}

func do(r http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	var rd io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		rd = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, rd)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

// Pastikan /admin/* diproteksi (tanpa auth tidak boleh 200)
func TestAdminRoutesProtected(t *testing.T) {
	r := newRouter(t, nil)
	rec := do(r, http.MethodPost, "/admin/batch/run", nil)
	assert.NotEqual(t, http.StatusOK, rec.Code)
}

// Sanity check: public endpoints tetap 200
func TestPublicRoutesHealthy(t *testing.T) {
	r := newRouter(t, nil)
	for _, p := range []string{"/healthz", "/readyz", "/metrics", "/api/healthz"} {
		rec := do(r, http.MethodGet, p, nil)
		assert.Equal(t, http.StatusOK, rec.Code, p)
		assert.NotEmpty(t, rec.Header().Get("X-Request-ID"), p)
	}
}

func TestAPIKeyRequiredWhenConfigured(t *testing.T) {
	r := newRouter(t, func(c *config.Config) { c.APIKey = "k" })
	rec := do(r, http.MethodPost, "/api/decline/fit", map[string]any{})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestForecastRouteViaChi(t *testing.T) {
	r := newRouter(t, nil)
	qe := services.ArpsRate(1000, 0.05, 0.8, 12)
	rec := do(r, http.MethodPost, "/forecast/estimate-b", map[string]any{
		"rows": []map[string]any{{"well_name": "W1", "qi": 1000, "qe": qe, "t_months": 12, "di": 0.05, "start_date": "2024-01-01"}},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"well_name":"W1"`)

	rec = do(r, http.MethodGet, "/forecast/schema", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, json.Valid(rec.Body.Bytes()))
}

func TestDeclineRouteRateLimited(t *testing.T) {
	r := newRouter(t, func(c *config.Config) {
		c.Decline.RateLimitRPS = 0.001
		c.Decline.RateLimitBurst = 1
	})
	first := do(r, http.MethodPost, "/api/decline/fit", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, first.Code) // lolos limiter, ditolak validasi
	second := do(r, http.MethodPost, "/api/decline/fit", map[string]any{})
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
}
