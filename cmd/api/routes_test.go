package main

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"healthline-api/internal/auth"
	"healthline-api/internal/config"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(vapiURL string) config.Config {
	cfg := config.Config{
		App:  config.AppConfig{Env: "local", Port: 8080},
		Auth: config.AuthConfig{JWTSecret: "secret", AdminEmails: []string{"ops@example.com"}},
		Vapi: config.VapiConfig{APIKey: "key", AssistantID: "asst", PhoneNumberID: "pn", BaseURL: vapiURL},
	}
	if err := cfg.Validate(); err != nil {
		panic(err)
	}
	return cfg
}

func newTestRouter(t *testing.T) (*gin.Engine, *auth.Manager) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	vapi := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"call_123"}`))
	}))
	t.Cleanup(vapi.Close)

	log := slog.New(slog.NewJSONHandler(io.Discard, nil))
	d, err := buildDeps(testConfig(vapi.URL), nil, nil, prometheus.NewRegistry(), log)
	require.NoError(t, err)
	require.NotNil(t, d.Sessions)
	return newRouter(log, d), d.Sessions
}

func do(r *gin.Engine, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestPreflight(t *testing.T) {
	r, _ := newTestRouter(t)
	for _, path := range []string{"/functions/v1/vapi-call", "/functions/v1/verify-paystack", "/v1/me"} {
		w := do(r, http.MethodOptions, path, "", map[string]string{"Origin": "https://app.example.com"})
		require.Equal(t, http.StatusOK, w.Code, path)
		assert.Equal(t, "ok", w.Body.String())
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "authorization, x-client-info, apikey, content-type", w.Header().Get("Access-Control-Allow-Headers"))
	}
}

func TestHealthz(t *testing.T) {
	r, _ := newTestRouter(t)
	w := do(r, http.MethodGet, "/healthz", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestHealthzReportsUnreachableDB(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectPing().WillReturnError(assert.AnError)

	r := gin.New()
	r.GET("/healthz", healthz(db))
	w := do(r, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestEmergencyCallRoutes(t *testing.T) {
	r, _ := newTestRouter(t)
	for _, path := range []string{"/functions/v1/vapi-call", "/v1/calls/emergency"} {
		w := do(r, http.MethodPost, path, `{"customerNumber":"+2348000000000"}`, map[string]string{"Content-Type": "application/json"})
		require.Equal(t, http.StatusOK, w.Code, path)
		assert.JSONEq(t, `{"success":true,"data":{"id":"call_123"}}`, w.Body.String())
		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestPaymentRouteWithoutSecret(t *testing.T) {
	r, _ := newTestRouter(t)
	w := do(r, http.MethodPost, "/functions/v1/verify-paystack", `{"consultationId":"CID-1","reference":"REF-1"}`, nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Missing PAYSTACK_SECRET_KEY"}`, w.Body.String())
}

func TestProtectedRoutes(t *testing.T) {
	r, sessions := newTestRouter(t)

	w := do(r, http.MethodGet, "/v1/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	tok, err := sessions.Issue(time.Now(), "user-1", "pat@example.com", "authenticated", time.Hour)
	require.NoError(t, err)
	w = do(r, http.MethodGet, "/v1/me", "", map[string]string{"Authorization": "Bearer " + tok})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user_id":"user-1","email":"pat@example.com","role":"authenticated"}`, w.Body.String())

	w = do(r, http.MethodGet, "/v1/admin/emergency-calls", "", map[string]string{"Authorization": "Bearer " + tok})
	assert.Equal(t, http.StatusForbidden, w.Code)

	admin, err := sessions.Issue(time.Now(), "user-2", "ops@example.com", "authenticated", time.Hour)
	require.NoError(t, err)
	w = do(r, http.MethodGet, "/v1/admin/emergency-calls", "", map[string]string{"Authorization": "Bearer " + admin})
	// No store in this wiring, so the admin gate passes and the read fails.
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	r, _ := newTestRouter(t)
	_ = do(r, http.MethodPost, "/v1/calls/emergency", `{}`, nil)

	w := do(r, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `healthline_calls_initiated_total{outcome="invalid"} 1`)
}
