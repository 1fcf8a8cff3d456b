package http

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xiaot623/gogo/supportdesk/internal/adapter/llm"
	"github.com/xiaot623/gogo/supportdesk/internal/config"
	"github.com/xiaot623/gogo/supportdesk/internal/metrics"
	"github.com/xiaot623/gogo/supportdesk/internal/ratelimit"
	"github.com/xiaot623/gogo/supportdesk/internal/service"
	"github.com/xiaot623/gogo/supportdesk/policy"
	"github.com/xiaot623/gogo/supportdesk/tests/helpers"
)

func newTestServer(t *testing.T, maxRequests int) *httptest.Server {
	t.Helper()
	db := helpers.NewSeededSQLiteStore(t)
	engine, err := policy.NewEngine(context.Background(), policy.DefaultPolicy)
	require.NoError(t, err)

	cfg := config.Defaults()
	cfg.AppEnv = "production"
	m := metrics.New()
	svc := service.New(db, llm.NewMockClient(), cfg, engine, nil, m)

	limiter, err := ratelimit.New(ratelimit.DriverMemory, time.Minute, maxRequests)
	require.NoError(t, err)

	srv := httptest.NewServer(NewServer(svc, limiter, m))
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestRateLimit(t *testing.T) {
	srv := newTestServer(t, 2)

	for i := 0; i < 2; i++ {
		resp, _ := get(t, srv.URL+"/agents")
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	}
	resp, body := get(t, srv.URL+"/agents")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.JSONEq(t, `{"success":false,"error":{"message":"Rate limit exceeded","code":429}}`, body)

	resp, _ = get(t, srv.URL+"/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = get(t, srv.URL+"/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "supportdesk_rate_limited_requests_total 1")
}

func TestErrorHandler(t *testing.T) {
	srv := newTestServer(t, 100)

	resp, body := get(t, srv.URL+"/nope")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.JSONEq(t, `{"success":false,"error":{"message":"Not Found","code":404}}`, body)
}

func TestCORSAndRequestID(t *testing.T) {
	srv := newTestServer(t, 100)

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/agents", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "http://localhost:5173", resp.Header.Get("Access-Control-Allow-Origin"))
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))
}

type failingLimiter struct{}

func (failingLimiter) Allow(ctx context.Context, key string) (bool, error) {
	return false, assert.AnError
}

func TestLimiterStoreFailsOpen(t *testing.T) {
	ok, err := (&limiterStore{limiter: failingLimiter{}}).Allow("1.2.3.4")
	assert.NoError(t, err)
	assert.True(t, ok)
}
