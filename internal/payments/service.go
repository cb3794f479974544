package payments

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"healthline-api/internal/httpapi"
	"healthline-api/internal/observability/metrics"
	"healthline-api/pkg/logger"
)

var (
	errMissingFields = httpapi.BadRequest("Missing consultationId or reference")
	errMissingSecret = httpapi.Internal("Missing PAYSTACK_SECRET_KEY")
	errMissingStore  = httpapi.Internal("Missing service role store credential (set DB_HOST)")
)

// Options wires a Service. A nil Gateway means no secret is configured and a
// nil Repository means no elevated store; both fail at request time.
type Options struct {
	Gateway    Gateway
	Repository Repository
	Metrics    *metrics.HandlerMetrics
	Clock      func() time.Time
}

// Service verifies gateway payments and marks consultations paid.
//
// Invariant: a consultation is marked paid only after the gateway itself
// reports the transaction as "success". Client-supplied data is never trusted.
type Service struct {
	gateway Gateway
	repo    Repository
	metrics *metrics.HandlerMetrics
	clock   func() time.Time
}

func NewService(opts Options) *Service {
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	return &Service{gateway: opts.Gateway, repo: opts.Repository, metrics: opts.Metrics, clock: clock}
}

// Verify runs, in order: field check, secret check, gateway verification,
// status check, store check, update. Repeating a verified reference re-runs
// every step and rewrites the same values.
func (s *Service) Verify(ctx context.Context, consultationID, reference string) error {
	log := logger.From(ctx).With("consultation_id", consultationID, "reference", reference)

	if strings.TrimSpace(consultationID) == "" || strings.TrimSpace(reference) == "" {
		s.metrics.ObservePayment(metrics.OutcomeInvalid)
		return errMissingFields
	}
	if s.gateway == nil {
		s.metrics.ObservePayment(metrics.OutcomeConfig)
		return errMissingSecret
	}

	tx, err := s.gateway.VerifyTransaction(ctx, reference)
	if err != nil {
		var ge *GatewayError
		if errors.As(err, &ge) {
			log.Warn("gateway verification failed", "status", ge.StatusCode, "message", ge.Message)
			s.metrics.ObservePayment(metrics.OutcomeUpstreamError)
			return httpapi.Upstream(http.StatusBadRequest, ge.Message, ge.Body)
		}
		s.metrics.ObservePayment(metrics.OutcomeUnexpectedError)
		return err
	}

	if tx.Status != TransactionStatusSuccess {
		log.Info("payment not successful", "status", tx.Status)
		s.metrics.ObservePayment(metrics.OutcomeNotSuccessful)
		return &httpapi.Error{
			Status:  http.StatusBadRequest,
			Message: "Payment not successful",
			Fields:  map[string]any{"status": tx.Status},
		}
	}

	if s.repo == nil {
		s.metrics.ObservePayment(metrics.OutcomeConfig)
		return errMissingStore
	}

	res, err := s.repo.MarkPaid(ctx, ConsultationPayment{
		ConsultationID: consultationID,
		Reference:      reference,
		Provider:       ProviderPaystack,
		AmountKobo:     tx.Amount,
		Currency:       tx.Currency,
		VerifiedAt:     s.clock().UTC(),
	})
	if err != nil {
		log.Error("mark consultation paid failed", "err", err)
		s.metrics.ObservePayment(metrics.OutcomeStoreError)
		return httpapi.Internal(err.Error())
	}

	switch {
	case !res.Found:
		// Matches update-by-filter semantics: nothing to update is not an error.
		log.Warn("verified payment matched no consultation")
	case res.PreviousStatus == PaymentStatusPaid:
		log.Info("consultation payment re-verified")
	default:
		log.Info("consultation marked paid", "amount_kobo", tx.Amount, "currency", tx.Currency)
	}
	s.metrics.ObservePayment(metrics.OutcomeSuccess)
	return nil
}
