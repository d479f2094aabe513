package payment

import (
	"context"
	"testing"
	"time"

	"BeatStudio/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cartCheckout(t *testing.T, userID int64, beats map[int64]int64) (*fakePurchases, *fakeCart, *fakeRecordings, *CheckoutResult) {
	t.Helper()
	gw := &fakeGateway{}
	purchases := newFakePurchases()
	cart := newFakeCart()
	recs := newFakeRecordings()
	for beatID, price := range beats {
		cart.add(userID, beatID, price)
	}
	svc := newTestService(gw, newFakeBeats(), purchases, cart, recs)
	res, err := svc.CheckoutCart(context.Background(), userID)
	require.NoError(t, err)
	return purchases, cart, recs, res
}

func TestReconcileFanOut(t *testing.T) {
	purchases, cart, recs, res := cartCheckout(t, 1, map[int64]int64{10: 500, 11: 700, 12: 300})
	rec := NewReconciler(purchases, recs, cart)

	err := rec.Reconcile(context.Background(), WebhookEvent{
		PaymentID: res.PaymentID,
		Status:    StatusSucceeded,
		Metadata:  map[string]interface{}{"type": "beat_cart", "user_id": "1"},
	})
	require.NoError(t, err)

	var paidAts []time.Time
	for _, beatID := range []int64{10, 11, 12} {
		p, _ := purchases.GetByUserAndBeat(context.Background(), 1, beatID)
		require.NotNil(t, p)
		assert.Equal(t, model.PurchasePaid, p.Status)
		assert.Equal(t, StatusSucceeded, p.PaymentStatus)
		require.NotNil(t, p.PaidAt)
		paidAts = append(paidAts, *p.PaidAt)
	}
	// One settlement, one timestamp shared across the fan-out.
	assert.Equal(t, paidAts[0], paidAts[1])
	assert.Equal(t, paidAts[1], paidAts[2])

	items, _ := cart.ListByUser(context.Background(), 1)
	assert.Empty(t, items, "successful cart settlement empties the cart")
}

func TestReconcileIdempotent(t *testing.T) {
	purchases, cart, recs, res := cartCheckout(t, 1, map[int64]int64{10: 500, 11: 700})
	rec := NewReconciler(purchases, recs, cart)

	event := WebhookEvent{
		PaymentID: res.PaymentID,
		Status:    StatusSucceeded,
		Metadata:  map[string]interface{}{"type": "beat_cart", "user_id": "1"},
	}

	require.NoError(t, rec.Reconcile(context.Background(), event))

	first := make(map[int64]model.BeatPurchase)
	for _, beatID := range []int64{10, 11} {
		p, _ := purchases.GetByUserAndBeat(context.Background(), 1, beatID)
		first[beatID] = *p
	}

	// The gateway redelivers; reapplying must land on the same final state,
	// including the settlement timestamp of the first delivery.
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, rec.Reconcile(context.Background(), event))

	for _, beatID := range []int64{10, 11} {
		p, _ := purchases.GetByUserAndBeat(context.Background(), 1, beatID)
		assert.Equal(t, first[beatID].Status, p.Status)
		assert.Equal(t, first[beatID].PaymentStatus, p.PaymentStatus)
		require.NotNil(t, p.PaidAt)
		assert.Equal(t, *first[beatID].PaidAt, *p.PaidAt)
	}
	items, _ := cart.ListByUser(context.Background(), 1)
	assert.Empty(t, items)
}

func TestReconcileNoDowngrade(t *testing.T) {
	purchases, cart, recs, res := cartCheckout(t, 1, map[int64]int64{10: 500})
	rec := NewReconciler(purchases, recs, cart)

	require.NoError(t, rec.Reconcile(context.Background(), WebhookEvent{
		PaymentID: res.PaymentID,
		Status:    StatusSucceeded,
		Metadata:  map[string]interface{}{"type": "beat_cart", "user_id": "1"},
	}))

	p, _ := purchases.GetByUserAndBeat(context.Background(), 1, 10)
	require.Equal(t, model.PurchasePaid, p.Status)
	paidAt := *p.PaidAt

	// A late non-succeeded delivery for the same payment id updates the
	// gateway status but never reverts internal state.
	require.NoError(t, rec.Reconcile(context.Background(), WebhookEvent{
		PaymentID: res.PaymentID,
		Status:    "canceled",
	}))

	p, _ = purchases.GetByUserAndBeat(context.Background(), 1, 10)
	assert.Equal(t, model.PurchasePaid, p.Status)
	assert.Equal(t, "canceled", p.PaymentStatus)
	assert.Equal(t, paidAt, *p.PaidAt)
}

func TestReconcileRecordingPayment(t *testing.T) {
	gw := &fakeGateway{}
	purchases := newFakePurchases()
	cart := newFakeCart()
	recs := newFakeRecordings()
	svc := newTestService(gw, newFakeBeats(), purchases, cart, recs)

	res, err := svc.PayRecording(context.Background(), 1, PayRecordingRequest{
		RecordingType: model.RecordingHomeRecording,
	})
	require.NoError(t, err)

	rec := NewReconciler(purchases, recs, cart)
	require.NoError(t, rec.Reconcile(context.Background(), WebhookEvent{
		PaymentID: res.PaymentID,
		Status:    StatusSucceeded,
	}))

	stored, _ := recs.GetByID(context.Background(), 1)
	assert.Equal(t, model.RecordingPaid, stored.Status)
	assert.Equal(t, StatusSucceeded, stored.PaymentStatus)
	assert.NotNil(t, stored.PaidAt)
}

func TestReconcileUnknownPaymentIDIsNoOp(t *testing.T) {
	rec := NewReconciler(newFakePurchases(), newFakeRecordings(), newFakeCart())

	// Out-of-band/test payments are expected; the gateway must not be told
	// to retry.
	err := rec.Reconcile(context.Background(), WebhookEvent{
		PaymentID: "pay_unknown",
		Status:    StatusSucceeded,
	})
	assert.NoError(t, err)
}

func TestReconcileMissingPaymentID(t *testing.T) {
	rec := NewReconciler(newFakePurchases(), newFakeRecordings(), newFakeCart())

	err := rec.Reconcile(context.Background(), WebhookEvent{Status: StatusSucceeded})
	assert.ErrorIs(t, err, ErrBadEvent)
}

func TestReconcileNumericUserIDMetadata(t *testing.T) {
	// JSON decoding turns numbers into float64; the cart clear must still fire.
	purchases, cart, recs, res := cartCheckout(t, 7, map[int64]int64{10: 500})
	rec := NewReconciler(purchases, recs, cart)

	require.NoError(t, rec.Reconcile(context.Background(), WebhookEvent{
		PaymentID: res.PaymentID,
		Status:    StatusSucceeded,
		Metadata:  map[string]interface{}{"type": "beat_cart", "user_id": float64(7)},
	}))

	items, _ := cart.ListByUser(context.Background(), 7)
	assert.Empty(t, items)
}
