package payments

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"healthline-api/internal/httpapi"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	tx    Transaction
	err   error
	calls int
}

func (g *fakeGateway) VerifyTransaction(ctx context.Context, reference string) (Transaction, error) {
	g.calls++
	return g.tx, g.err
}

type fakeRepo struct {
	rows    map[string]ConsultationPayment
	status  map[string]string
	err     error
	updates int
}

func newFakeRepo(ids ...string) *fakeRepo {
	r := &fakeRepo{rows: map[string]ConsultationPayment{}, status: map[string]string{}}
	for _, id := range ids {
		r.status[id] = "pending"
	}
	return r
}

func (r *fakeRepo) MarkPaid(ctx context.Context, p ConsultationPayment) (MarkResult, error) {
	if r.err != nil {
		return MarkResult{}, r.err
	}
	prev, ok := r.status[p.ConsultationID]
	if !ok {
		return MarkResult{}, nil
	}
	r.updates++
	r.rows[p.ConsultationID] = p
	r.status[p.ConsultationID] = PaymentStatusPaid
	return MarkResult{Found: true, PreviousStatus: prev}, nil
}

var fixedNow = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func successGateway() *fakeGateway {
	return &fakeGateway{tx: Transaction{Reference: "REF-1", Status: "success", Amount: 500000, Currency: "NGN"}}
}

func newTestService(g Gateway, r Repository) *Service {
	return NewService(Options{Gateway: g, Repository: r, Clock: func() time.Time { return fixedNow }})
}

func httpErr(t *testing.T, err error) *httpapi.Error {
	t.Helper()
	var he *httpapi.Error
	require.True(t, errors.As(err, &he), "expected *httpapi.Error, got %v", err)
	return he
}

func TestVerify_MarksConsultationPaid(t *testing.T) {
	repo := newFakeRepo("CID-1")
	svc := newTestService(successGateway(), repo)

	require.NoError(t, svc.Verify(context.Background(), "CID-1", "REF-1"))
	assert.Equal(t, ConsultationPayment{
		ConsultationID: "CID-1",
		Reference:      "REF-1",
		Provider:       "paystack",
		AmountKobo:     500000,
		Currency:       "NGN",
		VerifiedAt:     fixedNow,
	}, repo.rows["CID-1"])
	assert.Equal(t, PaymentStatusPaid, repo.status["CID-1"])
}

func TestVerify_RepeatIsIdempotent(t *testing.T) {
	g := successGateway()
	repo := newFakeRepo("CID-1")
	svc := newTestService(g, repo)

	require.NoError(t, svc.Verify(context.Background(), "CID-1", "REF-1"))
	first := repo.rows["CID-1"]
	require.NoError(t, svc.Verify(context.Background(), "CID-1", "REF-1"))

	assert.Equal(t, 2, g.calls, "gateway is re-checked every time")
	assert.Equal(t, first, repo.rows["CID-1"])
}

func TestVerify_MissingFields(t *testing.T) {
	g := successGateway()
	svc := newTestService(g, newFakeRepo())

	for _, tc := range [][2]string{{"", "REF-1"}, {"CID-1", ""}, {"", ""}} {
		he := httpErr(t, svc.Verify(context.Background(), tc[0], tc[1]))
		assert.Equal(t, http.StatusBadRequest, he.Status)
		assert.Equal(t, "Missing consultationId or reference", he.Message)
	}
	assert.Zero(t, g.calls)
}

func TestVerify_MissingSecretFailsBeforeGateway(t *testing.T) {
	repo := newFakeRepo("CID-1")
	svc := newTestService(nil, repo)

	he := httpErr(t, svc.Verify(context.Background(), "CID-1", "REF-1"))
	assert.Equal(t, http.StatusInternalServerError, he.Status)
	assert.Equal(t, "Missing PAYSTACK_SECRET_KEY", he.Message)
	assert.Zero(t, repo.updates)
}

func TestVerify_NonSuccessStatusNeverUpdates(t *testing.T) {
	for _, status := range []string{"abandoned", "failed", "pending", "ongoing", ""} {
		repo := newFakeRepo("CID-1")
		g := &fakeGateway{tx: Transaction{Status: status, Amount: 500000, Currency: "NGN"}}
		svc := newTestService(g, repo)

		he := httpErr(t, svc.Verify(context.Background(), "CID-1", "REF-1"))
		assert.Equal(t, http.StatusBadRequest, he.Status)
		assert.Equal(t, map[string]any{"error": "Payment not successful", "status": status}, he.Body())
		assert.Zero(t, repo.updates, "status %q", status)
	}
}

func TestVerify_GatewayErrorIsBadRequest(t *testing.T) {
	repo := newFakeRepo("CID-1")
	g := &fakeGateway{err: &GatewayError{StatusCode: http.StatusUnauthorized, Message: "Invalid key", Body: []byte(`{"status":false,"message":"Invalid key"}`)}}
	svc := newTestService(g, repo)

	he := httpErr(t, svc.Verify(context.Background(), "CID-1", "REF-1"))
	assert.Equal(t, http.StatusBadRequest, he.Status)
	assert.Equal(t, "Invalid key", he.Message)
	assert.NotNil(t, he.Details)
	assert.Zero(t, repo.updates)
}

func TestVerify_TransportErrorIsUnexpected(t *testing.T) {
	g := &fakeGateway{err: errors.New("dial tcp: connection refused")}
	svc := newTestService(g, newFakeRepo("CID-1"))

	err := svc.Verify(context.Background(), "CID-1", "REF-1")
	require.Error(t, err)
	var he *httpapi.Error
	assert.False(t, errors.As(err, &he), "transport errors render as the generic 500")
}

func TestVerify_MissingStore(t *testing.T) {
	svc := newTestService(successGateway(), nil)

	he := httpErr(t, svc.Verify(context.Background(), "CID-1", "REF-1"))
	assert.Equal(t, http.StatusInternalServerError, he.Status)
}

func TestVerify_StoreErrorSurfacesMessage(t *testing.T) {
	repo := newFakeRepo("CID-1")
	repo.err = errors.New("permission denied for table consultations")
	svc := newTestService(successGateway(), repo)

	he := httpErr(t, svc.Verify(context.Background(), "CID-1", "REF-1"))
	assert.Equal(t, http.StatusInternalServerError, he.Status)
	assert.Equal(t, "permission denied for table consultations", he.Message)
}

func TestVerify_UnknownConsultationStillSucceeds(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(successGateway(), repo)

	require.NoError(t, svc.Verify(context.Background(), "CID-404", "REF-1"))
	assert.Zero(t, repo.updates)
}
