package payment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"BeatStudio/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGateway(t *testing.T, handler http.HandlerFunc) (*Gateway, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	gw := NewGateway(&config.Config{
		GatewayShopID:    "shop-1",
		GatewaySecretKey: "sk-test",
		GatewayAPIURL:    srv.URL,
		GatewayReturnURL: "https://studio.test/payment/result",
		GatewayCurrency:  "RUB",
	})
	return gw, srv
}

func TestCreateRedirectPayment(t *testing.T) {
	var captured gatewayCreateRequest
	var idemKey, authUser, authPass string

	gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		idemKey = r.Header.Get("Idempotence-Key")
		authUser, authPass, _ = r.BasicAuth()
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		json.NewEncoder(w).Encode(map[string]interface{}{
			"id":           "pay_abc",
			"status":       "pending",
			"confirmation": map[string]string{"confirmation_url": "https://gw.test/confirm"},
		})
	})

	pmt, err := gw.CreateRedirectPayment(context.Background(), CreatePaymentRequest{
		Amount:      1200,
		Description: "Beat purchase, 2 item(s)",
		Metadata:    map[string]string{"type": "beat_cart", "user_id": "1"},
	})
	require.NoError(t, err)

	assert.Equal(t, "pay_abc", pmt.ID)
	assert.Equal(t, "pending", pmt.Status)
	assert.Equal(t, "https://gw.test/confirm", pmt.ConfirmationURL)

	assert.Equal(t, "1200.00", captured.Amount.Value)
	assert.Equal(t, "RUB", captured.Amount.Currency)
	assert.Equal(t, "redirect", captured.Confirmation.Type)
	assert.Equal(t, "https://studio.test/payment/result", captured.Confirmation.ReturnURL)
	assert.True(t, captured.Capture)
	assert.Equal(t, "beat_cart", captured.Metadata["type"])

	assert.NotEmpty(t, idemKey)
	assert.Equal(t, "shop-1", authUser)
	assert.Equal(t, "sk-test", authPass)
}

func TestIdempotenceKeyFreshPerCall(t *testing.T) {
	var keys []string
	gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		keys = append(keys, r.Header.Get("Idempotence-Key"))
		json.NewEncoder(w).Encode(map[string]interface{}{"id": "p", "status": "pending"})
	})

	for i := 0; i < 3; i++ {
		_, err := gw.CreateRedirectPayment(context.Background(), CreatePaymentRequest{Amount: 100})
		require.NoError(t, err)
	}

	require.Len(t, keys, 3)
	// Each orchestrator invocation is a deliberately distinct payment.
	assert.NotEqual(t, keys[0], keys[1])
	assert.NotEqual(t, keys[1], keys[2])
}

func TestCreateRedirectPaymentMissingCredentials(t *testing.T) {
	gw := NewGateway(&config.Config{GatewayAPIURL: "https://gw.test"})

	_, err := gw.CreateRedirectPayment(context.Background(), CreatePaymentRequest{Amount: 100})
	assert.ErrorIs(t, err, ErrGatewayNotConfigured)
}

func TestCreateRedirectPaymentGatewayError(t *testing.T) {
	gw, _ := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"description":"invalid credentials"}`))
	})

	_, err := gw.CreateRedirectPayment(context.Background(), CreatePaymentRequest{Amount: 100})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "invalid credentials")
}
