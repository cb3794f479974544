package calls

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"healthline-api/internal/audit"
	"healthline-api/internal/config"
	"healthline-api/internal/httpapi"
	"healthline-api/internal/observability/metrics"
	"healthline-api/internal/telephony"
	"healthline-api/pkg/logger"
)

const minNumberLength = 8

var (
	errMissingAPIKey      = httpapi.Internal("Missing VAPI_API_KEY in server configuration")
	errMissingNumber      = httpapi.BadRequest("customerNumber is required (E.164, e.g., +234... )")
	errMalformedNumber    = httpapi.BadRequest("customerNumber must be E.164 format with country code, e.g., +234...")
	errMissingAssistant   = httpapi.BadRequest("assistantId not provided and VAPI_ASSISTANT_ID not set")
	errMissingPhoneNumber = httpapi.BadRequest("phoneNumberId not provided and VAPI_PHONE_NUMBER_ID not set")
	errTooManyRequests    = httpapi.TooManyRequests("Too many requests. Please wait a few minutes and try again.")
)

// Options wires a Service. Provider, Limiter and Recorder may be nil:
// a nil Provider is a configuration error at request time, a nil Limiter
// skips throttling, and a nil Recorder skips audit logging.
type Options struct {
	Vapi     config.VapiConfig
	Provider telephony.VoiceProvider
	Limiter  Limiter
	Recorder *audit.Recorder
	Metrics  *metrics.HandlerMetrics
}

// Service places outbound emergency calls.
type Service struct {
	defaults config.VapiConfig
	provider telephony.VoiceProvider
	limiter  Limiter
	recorder *audit.Recorder
	metrics  *metrics.HandlerMetrics
}

func NewService(opts Options) *Service {
	return &Service{
		defaults: opts.Vapi,
		provider: opts.Provider,
		limiter:  opts.Limiter,
		recorder: opts.Recorder,
		metrics:  opts.Metrics,
	}
}

// Initiate validates the request, applies the rate limit, places the call and
// records it. It returns the provider's response body.
//
// Validation order:
//  1. provider API key configured (500)
//  2. customerNumber present and a string (400)
//  3. customerNumber starts with + and has at least 8 characters (400)
//  4. assistant resolvable (400)
//  5. originating number resolvable (400)
func (s *Service) Initiate(ctx context.Context, req Request, caller Caller) (json.RawMessage, error) {
	log := logger.From(ctx)

	if s.defaults.APIKey == "" || s.provider == nil {
		s.metrics.ObserveCall(metrics.OutcomeConfig)
		return nil, errMissingAPIKey
	}

	call, err := s.resolve(req)
	if err != nil {
		s.metrics.ObserveCall(metrics.OutcomeInvalid)
		return nil, err
	}

	if s.limiter != nil {
		d, err := s.limiter.Allow(ctx, caller.IP, call.CustomerNumber)
		if err != nil {
			log.Warn("rate limit lookup failed; allowing call", "err", err)
			s.metrics.ObserveBestEffortFailure(metrics.OperationRateLimitLookup)
		} else if !d.Allowed {
			log.Info("emergency call rate limited", "ip", caller.IP, "recent", d.Count)
			s.metrics.ObserveCall(metrics.OutcomeRateLimited)
			return nil, errTooManyRequests
		}
	}

	res, err := s.provider.PlaceCall(ctx, call)
	if err != nil {
		var pe *telephony.ProviderError
		if errors.As(err, &pe) {
			log.Warn("provider rejected call", "provider", pe.Provider, "status", pe.StatusCode, "message", pe.Message)
			s.metrics.ObserveCall(metrics.OutcomeUpstreamError)
			return nil, httpapi.Upstream(pe.StatusCode, pe.Message, pe.Body)
		}
		s.metrics.ObserveCall(metrics.OutcomeUnexpectedError)
		return nil, err
	}
	s.metrics.ObserveCall(metrics.OutcomeSuccess)

	s.record(ctx, req, call, res, caller)
	return res.Body, nil
}

func (s *Service) resolve(req Request) (telephony.OutboundCall, error) {
	if req.CustomerNumber == nil || *req.CustomerNumber == "" {
		return telephony.OutboundCall{}, errMissingNumber
	}
	number := *req.CustomerNumber
	if !strings.HasPrefix(number, "+") || len(number) < minNumberLength {
		return telephony.OutboundCall{}, errMalformedNumber
	}

	assistantID := req.AssistantID
	if assistantID == "" {
		assistantID = s.defaults.AssistantID
	}
	if assistantID == "" {
		return telephony.OutboundCall{}, errMissingAssistant
	}

	call := telephony.OutboundCall{
		CustomerNumber:     number,
		AssistantID:        assistantID,
		AssistantOverrides: req.AssistantOverrides,
		Metadata:           req.Metadata,
	}
	switch {
	case req.PhoneNumberID != "":
		call.PhoneNumberID = req.PhoneNumberID
	case len(req.PhoneNumber) > 0:
		call.PhoneNumber = req.PhoneNumber
	case s.defaults.PhoneNumberID != "":
		call.PhoneNumberID = s.defaults.PhoneNumberID
	case s.defaults.PhoneNumber != "":
		call.PhoneNumber = literalNumber(s.defaults.PhoneNumber)
	default:
		return telephony.OutboundCall{}, errMissingPhoneNumber
	}
	return call, nil
}

// record writes the audit row. The call is already placed, so failures are
// logged and counted, never returned.
func (s *Service) record(ctx context.Context, req Request, call telephony.OutboundCall, res telephony.CallResult, caller Caller) {
	if s.recorder == nil {
		return
	}
	out := s.recorder.Record(ctx, audit.EmergencyCallRecord{
		ToNumber:  call.CustomerNumber,
		CallID:    audit.StringPtr(res.ID),
		Source:    audit.StringPtr(req.Source()),
		Coords:    req.Coords(),
		IP:        audit.StringPtr(caller.IP),
		UserID:    audit.StringPtr(caller.UserID),
		UserAgent: audit.StringPtr(caller.UserAgent),
	})
	log := logger.From(ctx)
	switch {
	case out.Err != nil:
		log.Warn("emergency call audit failed", "call_id", res.ID, "err", out.Err)
		s.metrics.ObserveBestEffortFailure(metrics.OperationAuditInsert)
	case out.Skipped:
		log.Debug("emergency call audit skipped; no store configured", "call_id", res.ID)
	default:
		log.Info("emergency call placed", "call_id", res.ID, "audit_id", out.ID)
	}
}
