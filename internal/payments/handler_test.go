package payments

import (
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(t *testing.T, gatewayStatus int, gatewayBody string) (*gin.Engine, sqlmock.Sqlmock, *int32) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(gatewayStatus)
		_, _ = w.Write([]byte(gatewayBody))
	}))
	t.Cleanup(srv.Close)

	gw, err := NewPaystackClient(PaystackConfig{SecretKey: "sk_test", BaseURL: srv.URL, HTTPClient: srv.Client()})
	require.NoError(t, err)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	svc := NewService(Options{Gateway: gw, Repository: NewPostgresRepo(db), Clock: func() time.Time { return fixedNow }})
	r := gin.New()
	r.POST("/functions/v1/verify-paystack", NewHandler(svc).Verify)
	return r, mock, &hits
}

func post(r *gin.Engine, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/functions/v1/verify-paystack", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestHandler_VerifySuccess(t *testing.T) {
	r, mock, _ := newRouter(t, http.StatusOK, `{"status":true,"data":{"status":"success","amount":500000,"currency":"NGN"}}`)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM consultations")).
		WithArgs("CID-1").
		WillReturnRows(sqlmock.NewRows([]string{"payment_status"}).AddRow("pending"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE consultations")).
		WithArgs("CID-1", "paid", "REF-1", "paystack", int64(500000), "NGN", fixedNow, "confirmed").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	w := post(r, `{"consultationId":"CID-1","reference":"REF-1"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_AbandonedPayment(t *testing.T) {
	r, mock, _ := newRouter(t, http.StatusOK, `{"status":true,"data":{"status":"abandoned","amount":500000,"currency":"NGN"}}`)

	w := post(r, `{"consultationId":"CID-1","reference":"REF-1"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Payment not successful","status":"abandoned"}`, w.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet(), "no statement may run")
}

func TestHandler_GatewayFailure(t *testing.T) {
	r, _, _ := newRouter(t, http.StatusBadRequest, `{"status":false,"message":"Invalid transaction reference"}`)

	w := post(r, `{"consultationId":"CID-1","reference":"bad"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Invalid transaction reference","details":{"status":false,"message":"Invalid transaction reference"}}`, w.Body.String())
}

func TestHandler_MalformedBody(t *testing.T) {
	r, _, hits := newRouter(t, http.StatusOK, `{}`)

	w := post(r, `{"consultationId":`)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Missing consultationId or reference"}`, w.Body.String())
	assert.Equal(t, int32(0), atomic.LoadInt32(hits))
}
