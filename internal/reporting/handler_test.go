package reporting

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"healthline-api/internal/audit"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReportingRouter(t *testing.T, repo *audit.MemoryRepo) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := NewHandler(NewService(repo, nil))
	r := gin.New()
	r.GET("/v1/admin/emergency-calls", h.List)
	r.GET("/v1/admin/emergency-calls/summary", h.Summary)
	return r
}

func get(r *gin.Engine, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func TestHandler_ListParsesQuery(t *testing.T) {
	repo := seed(t,
		rec("+2348000000001", "app", now, false),
		rec("+2348000000002", "web", now.AddDate(0, 0, -5), false),
	)
	r := newReportingRouter(t, repo)

	w := get(r, "/v1/admin/emergency-calls?from=2025-03-09&page_size=10&number=%2B234")
	require.Equal(t, http.StatusOK, w.Code)

	var out ListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	assert.Equal(t, 1, out.Total)
	assert.Equal(t, 10, out.PageSize)
}

func TestHandler_ListRejectsBadInput(t *testing.T) {
	r := newReportingRouter(t, audit.NewMemoryRepo())

	for _, target := range []string{
		"/v1/admin/emergency-calls?page_size=25",
		"/v1/admin/emergency-calls?page=abc",
		"/v1/admin/emergency-calls?from=yesterday",
		"/v1/admin/emergency-calls/summary?from=2025-03-10&to=2025-03-01",
	} {
		w := get(r, target)
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
	}
}

func TestHandler_SummaryStoreFailure(t *testing.T) {
	repo := audit.NewMemoryRepo()
	repo.Fail = assert.AnError
	r := newReportingRouter(t, repo)

	w := get(r, "/v1/admin/emergency-calls/summary")
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "Unexpected error")
}

func TestHandler_NoStoreIsUnavailable(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewHandler(NewService(nil, nil))
	r := gin.New()
	r.GET("/v1/admin/emergency-calls", h.List)
	r.GET("/v1/admin/emergency-calls/summary", h.Summary)

	for _, target := range []string{"/v1/admin/emergency-calls", "/v1/admin/emergency-calls/summary"} {
		w := get(r, target)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, target)
	}
}
