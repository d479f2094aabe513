package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"BeatStudio/config"

	"github.com/google/uuid"
)

// Provider is the name stored on purchase and recording rows.
const Provider = "yookassa"

// ErrGatewayNotConfigured is returned when shop credentials are absent.
var ErrGatewayNotConfigured = errors.New("payment gateway credentials are not configured")

// CreatePaymentRequest describes one redirect payment to create.
type CreatePaymentRequest struct {
	Amount      int64
	Description string
	Metadata    map[string]string
}

// Payment is the gateway's view of a created payment.
type Payment struct {
	ID              string
	Status          string
	ConfirmationURL string
}

// PaymentCreator is what the checkout orchestrators need from the gateway.
type PaymentCreator interface {
	CreateRedirectPayment(ctx context.Context, req CreatePaymentRequest) (*Payment, error)
}

// Gateway talks to the provider's redirect-payment API.
type Gateway struct {
	shopID    string
	secretKey string
	apiURL    string
	returnURL string
	currency  string
	client    *http.Client
}

func NewGateway(cfg *config.Config) *Gateway {
	return &Gateway{
		shopID:    cfg.GatewayShopID,
		secretKey: cfg.GatewaySecretKey,
		apiURL:    cfg.GatewayAPIURL,
		returnURL: cfg.GatewayReturnURL,
		currency:  cfg.GatewayCurrency,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Wire shapes of the provider API.
type gatewayAmount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

type gatewayConfirmation struct {
	Type      string `json:"type"`
	ReturnURL string `json:"return_url,omitempty"`
}

type gatewayCreateRequest struct {
	Amount       gatewayAmount       `json:"amount"`
	Confirmation gatewayConfirmation `json:"confirmation"`
	Capture      bool                `json:"capture"`
	Description  string              `json:"description"`
	Metadata     map[string]string   `json:"metadata,omitempty"`
}

type gatewayCreateResponse struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	Confirmation struct {
		ConfirmationURL string `json:"confirmation_url"`
	} `json:"confirmation"`
}

// CreateRedirectPayment creates a new payment attempt and returns the URL the
// client must be redirected to. The idempotence key is freshly generated per
// call: every invocation intentionally creates a distinct gateway payment,
// the key only dedupes transport-level retries of this one HTTP exchange.
func (g *Gateway) CreateRedirectPayment(ctx context.Context, req CreatePaymentRequest) (*Payment, error) {
	if g.shopID == "" || g.secretKey == "" {
		return nil, ErrGatewayNotConfigured
	}

	body := gatewayCreateRequest{
		Amount: gatewayAmount{
			Value:    fmt.Sprintf("%d.00", req.Amount),
			Currency: g.currency,
		},
		Confirmation: gatewayConfirmation{
			Type:      "redirect",
			ReturnURL: g.returnURL,
		},
		Capture:     true,
		Description: req.Description,
		Metadata:    req.Metadata,
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payment request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.apiURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build payment request: %w", err)
	}
	httpReq.SetBasicAuth(g.shopID, g.secretKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Idempotence-Key", newIdempotenceKey())

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("payment gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read gateway response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("payment gateway returned %d: %s", resp.StatusCode, string(respBody))
	}

	var created gatewayCreateResponse
	if err := json.Unmarshal(respBody, &created); err != nil {
		return nil, fmt.Errorf("failed to decode gateway response: %w", err)
	}

	return &Payment{
		ID:              created.ID,
		Status:          created.Status,
		ConfirmationURL: created.Confirmation.ConfirmationURL,
	}, nil
}

// newIdempotenceKey returns a UUID, or a timestamp+random fallback if UUID
// generation fails.
func newIdempotenceKey() string {
	if id, err := uuid.NewRandom(); err == nil {
		return id.String()
	}
	return fmt.Sprintf("%d-%06d", time.Now().UnixNano(), rand.Intn(1000000))
}
