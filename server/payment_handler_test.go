package server

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"BeatStudio/core/payment"
	"BeatStudio/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPurchaseStore struct {
	gatewayCalls []string
	paidCalls    []string
	failWith     error
}

func (s *stubPurchaseStore) GetByUserAndBeat(context.Context, int64, int64) (*model.BeatPurchase, error) {
	return nil, nil
}
func (s *stubPurchaseStore) UpsertPending(context.Context, int64, int64, string, string, string) error {
	return nil
}
func (s *stubPurchaseStore) UpsertPaid(context.Context, int64, int64, string, time.Time) error {
	return nil
}
func (s *stubPurchaseStore) SetGatewayStatusByPaymentID(_ context.Context, paymentID, status string) (int64, error) {
	if s.failWith != nil {
		return 0, s.failWith
	}
	s.gatewayCalls = append(s.gatewayCalls, paymentID+":"+status)
	return 1, nil
}
func (s *stubPurchaseStore) MarkPaidByPaymentID(_ context.Context, paymentID string, _ time.Time) (int64, error) {
	if s.failWith != nil {
		return 0, s.failWith
	}
	s.paidCalls = append(s.paidCalls, paymentID)
	return 1, nil
}

type stubRecordingStore struct{}

func (stubRecordingStore) GetByID(context.Context, int64) (*model.Recording, error) { return nil, nil }
func (stubRecordingStore) Create(context.Context, *model.Recording) (int64, error)  { return 0, nil }
func (stubRecordingStore) SetPaymentInfo(context.Context, int64, string, string, string) error {
	return nil
}
func (stubRecordingStore) SetGatewayStatusByPaymentID(context.Context, string, string) (int64, error) {
	return 0, nil
}
func (stubRecordingStore) MarkPaidByPaymentID(context.Context, string, time.Time) (int64, error) {
	return 0, nil
}
func (stubRecordingStore) CountPaidByUser(context.Context, int64) (int, error) { return 0, nil }

type stubCartStore struct{}

func (stubCartStore) ListByUser(context.Context, int64) ([]*model.CartItem, error) { return nil, nil }
func (stubCartStore) Clear(context.Context, int64) error                           { return nil }

func newWebhookHandler(purchases *stubPurchaseStore) *APIHandler {
	return &APIHandler{
		reconciler: payment.NewReconciler(purchases, stubRecordingStore{}, stubCartStore{}),
	}
}

func postWebhook(t *testing.T, h *APIHandler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/payments/provider/webhook", bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	h.PaymentWebhookHandler(rec, req)
	return rec
}

func TestPaymentWebhookSucceeded(t *testing.T) {
	purchases := &stubPurchaseStore{}
	h := newWebhookHandler(purchases)

	rec := postWebhook(t, h, `{
		"event": "payment.succeeded",
		"object": {"id": "pay_1", "status": "succeeded", "metadata": {"type": "beat", "user_id": "7"}}
	}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
	assert.Equal(t, []string{"pay_1:succeeded"}, purchases.gatewayCalls)
	assert.Equal(t, []string{"pay_1"}, purchases.paidCalls)
}

func TestPaymentWebhookCanceledDoesNotMarkPaid(t *testing.T) {
	purchases := &stubPurchaseStore{}
	h := newWebhookHandler(purchases)

	rec := postWebhook(t, h, `{
		"event": "payment.canceled",
		"object": {"id": "pay_2", "status": "canceled", "metadata": {}}
	}`)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"pay_2:canceled"}, purchases.gatewayCalls)
	assert.Empty(t, purchases.paidCalls)
}

func TestPaymentWebhookMissingPaymentID(t *testing.T) {
	h := newWebhookHandler(&stubPurchaseStore{})

	rec := postWebhook(t, h, `{"event": "payment.succeeded", "object": {"status": "succeeded"}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPaymentWebhookMalformedBody(t *testing.T) {
	h := newWebhookHandler(&stubPurchaseStore{})

	rec := postWebhook(t, h, `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPaymentWebhookStoreFailure(t *testing.T) {
	h := newWebhookHandler(&stubPurchaseStore{failWith: errors.New("db down")})

	rec := postWebhook(t, h, `{
		"event": "payment.succeeded",
		"object": {"id": "pay_3", "status": "succeeded", "metadata": {}}
	}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
