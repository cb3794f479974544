package telephony

import (
	"context"
	"encoding/json"
	"fmt"
)

// VoiceProvider places outbound calls through a voice-AI calling provider.
//
// Rules:
// - No provider HTTP calls outside telephony adapters.
// - Keep request/response types provider-agnostic; keep the provider's raw payload in Body.
type VoiceProvider interface {
	Name() string
	PlaceCall(ctx context.Context, call OutboundCall) (CallResult, error)
}

// OutboundCall is one outbound phone call to a destination number.
type OutboundCall struct {
	// CustomerNumber is the destination, E.164.
	CustomerNumber string

	AssistantID string

	// The originating number is identified either by provider id or by a
	// literal phone-number object. PhoneNumberID wins when both are set.
	PhoneNumberID string
	PhoneNumber   json.RawMessage

	// Optional free-form objects forwarded verbatim.
	AssistantOverrides json.RawMessage
	Metadata           json.RawMessage
}

// CallResult is the provider's success response.
type CallResult struct {
	// ID is the provider-assigned call identifier, empty if absent.
	ID string
	// Body is the provider's JSON response, {} when not parseable.
	Body json.RawMessage
}

// ProviderError is a non-2xx provider response.
// It is propagated verbatim: same status code, provider body as details.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	Body       json.RawMessage
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: status %d: %s", e.Provider, e.StatusCode, e.Message)
}
