package telephony

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultVapiBaseURL = "https://api.vapi.ai"
	vapiCallPath       = "/call"
)

var emptyObject = json.RawMessage(`{}`)

// VapiConfig controls how the Vapi client behaves.
type VapiConfig struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// VapiClient places outbound calls via the Vapi REST API.
// Requests are never retried: a retried call could ring the destination twice.
type VapiClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewVapiClient(cfg VapiConfig) (*VapiClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("telephony: vapi API key is required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultVapiBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &VapiClient{apiKey: cfg.APIKey, baseURL: baseURL, httpClient: httpClient}, nil
}

func (c *VapiClient) Name() string { return "vapi" }

type vapiCustomer struct {
	Number string `json:"number"`
}

type vapiCallRequest struct {
	Type               string          `json:"type"`
	AssistantID        string          `json:"assistantId"`
	PhoneNumberID      string          `json:"phoneNumberId,omitempty"`
	PhoneNumber        json.RawMessage `json:"phoneNumber,omitempty"`
	Customer           vapiCustomer    `json:"customer"`
	AssistantOverrides json.RawMessage `json:"assistantOverrides,omitempty"`
	Metadata           json.RawMessage `json:"metadata,omitempty"`
}

func (c *VapiClient) PlaceCall(ctx context.Context, call OutboundCall) (CallResult, error) {
	payload := vapiCallRequest{
		Type:               "outboundPhoneCall",
		AssistantID:        call.AssistantID,
		Customer:           vapiCustomer{Number: call.CustomerNumber},
		AssistantOverrides: call.AssistantOverrides,
		Metadata:           call.Metadata,
	}
	if call.PhoneNumberID != "" {
		payload.PhoneNumberID = call.PhoneNumberID
	} else {
		payload.PhoneNumber = call.PhoneNumber
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return CallResult{}, fmt.Errorf("telephony: marshal vapi call: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+vapiCallPath, bytes.NewReader(body))
	if err != nil {
		return CallResult{}, fmt.Errorf("telephony: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return CallResult{}, fmt.Errorf("telephony: vapi http error: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return CallResult{}, fmt.Errorf("telephony: read vapi response: %w", err)
	}
	result := jsonOrEmpty(data)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return CallResult{}, &ProviderError{
			Provider:   c.Name(),
			StatusCode: resp.StatusCode,
			Message:    providerMessage(result, "Vapi API error"),
			Body:       result,
		}
	}

	var ident struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(result, &ident)
	return CallResult{ID: ident.ID, Body: result}, nil
}

func jsonOrEmpty(data []byte) json.RawMessage {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || !json.Valid(trimmed) {
		return emptyObject
	}
	return json.RawMessage(trimmed)
}

// providerMessage extracts "message" from an error body. Vapi sends either a
// string or a list of validation strings.
func providerMessage(body json.RawMessage, fallback string) string {
	var env struct {
		Message json.RawMessage `json:"message"`
	}
	if err := json.Unmarshal(body, &env); err != nil || len(env.Message) == 0 {
		return fallback
	}
	var s string
	if err := json.Unmarshal(env.Message, &s); err == nil {
		if s != "" {
			return s
		}
		return fallback
	}
	var list []string
	if err := json.Unmarshal(env.Message, &list); err == nil && len(list) > 0 {
		return strings.Join(list, "; ")
	}
	return fallback
}
