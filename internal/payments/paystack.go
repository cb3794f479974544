package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultPaystackBaseURL = "https://api.paystack.co"

// Gateway verifies transaction references.
type Gateway interface {
	VerifyTransaction(ctx context.Context, reference string) (Transaction, error)
}

// GatewayError is a non-2xx gateway response.
type GatewayError struct {
	StatusCode int
	Message    string
	Body       json.RawMessage
}

func (e *GatewayError) Error() string {
	return fmt.Sprintf("paystack: status %d: %s", e.StatusCode, e.Message)
}

type PaystackConfig struct {
	SecretKey  string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// PaystackClient calls the Paystack transaction API. It never retries.
type PaystackClient struct {
	secretKey  string
	baseURL    string
	httpClient *http.Client
}

func NewPaystackClient(cfg PaystackConfig) (*PaystackClient, error) {
	if strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, errors.New("payments: paystack secret key is required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultPaystackBaseURL
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &PaystackClient{secretKey: cfg.SecretKey, baseURL: baseURL, httpClient: httpClient}, nil
}

type verifyEnvelope struct {
	Message string `json:"message"`
	Data    struct {
		Reference string      `json:"reference"`
		Status    string      `json:"status"`
		Amount    json.Number `json:"amount"`
		Currency  string      `json:"currency"`
	} `json:"data"`
}

// VerifyTransaction calls GET /transaction/verify/{reference}.
func (c *PaystackClient) VerifyTransaction(ctx context.Context, reference string) (Transaction, error) {
	endpoint := c.baseURL + "/transaction/verify/" + url.PathEscape(reference)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Transaction{}, fmt.Errorf("paystack: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Transaction{}, fmt.Errorf("paystack: http error: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Transaction{}, fmt.Errorf("paystack: read response: %w", err)
	}
	raw := json.RawMessage(bytes.TrimSpace(data))
	if len(raw) == 0 || !json.Valid(raw) {
		raw = json.RawMessage(`{}`)
	}

	var env verifyEnvelope
	_ = json.Unmarshal(raw, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := env.Message
		if msg == "" {
			msg = "Verification failed"
		}
		return Transaction{}, &GatewayError{StatusCode: resp.StatusCode, Message: msg, Body: raw}
	}

	amount, err := env.Data.Amount.Int64()
	if err != nil {
		f, _ := env.Data.Amount.Float64()
		amount = int64(f)
	}
	return Transaction{
		Reference: env.Data.Reference,
		Status:    env.Data.Status,
		Amount:    amount,
		Currency:  env.Data.Currency,
		Raw:       raw,
	}, nil
}
