package payment

import (
	"context"
	"testing"
	"time"

	"BeatStudio/core/pricing"
	"BeatStudio/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(gw *fakeGateway, beats *fakeBeats, purchases *fakePurchases, cart *fakeCart, recs *fakeRecordings) *CheckoutService {
	policy := pricing.NewPolicy(recs, 5, 50)
	return NewCheckoutService(gw, beats, purchases, cart, recs, policy, 15*time.Minute)
}

func TestCheckoutCartFreeOnly(t *testing.T) {
	gw := &fakeGateway{}
	purchases := newFakePurchases()
	cart := newFakeCart()
	cart.add(1, 10, 0)
	cart.add(1, 11, 0)

	svc := newTestService(gw, newFakeBeats(), purchases, cart, newFakeRecordings())

	res, err := svc.CheckoutCart(context.Background(), 1)
	require.NoError(t, err)

	assert.True(t, res.Free)
	assert.Zero(t, gw.calls, "free carts must never reach the gateway")

	for _, beatID := range []int64{10, 11} {
		p, _ := purchases.GetByUserAndBeat(context.Background(), 1, beatID)
		require.NotNil(t, p)
		assert.Equal(t, model.PurchasePaid, p.Status)
		assert.NotNil(t, p.PaidAt)
	}

	items, _ := cart.ListByUser(context.Background(), 1)
	assert.Empty(t, items, "free checkout clears the cart immediately")
}

func TestCheckoutCartExcludesOwnedBeats(t *testing.T) {
	gw := &fakeGateway{}
	purchases := newFakePurchases()
	cart := newFakeCart()
	cart.add(1, 10, 500)
	cart.add(1, 11, 700)

	// Beat 10 is already owned but still sits in the cart table.
	require.NoError(t, purchases.UpsertPaid(context.Background(), 1, 10, Provider, time.Now()))

	svc := newTestService(gw, newFakeBeats(), purchases, cart, newFakeRecordings())

	res, err := svc.CheckoutCart(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, 1, gw.calls)
	assert.Equal(t, int64(700), gw.payments[0].Amount, "owned beat must not count toward the total")
	assert.NotEmpty(t, res.ConfirmationURL)
}

func TestCheckoutCartNothingToPay(t *testing.T) {
	gw := &fakeGateway{}
	purchases := newFakePurchases()
	cart := newFakeCart()

	svc := newTestService(gw, newFakeBeats(), purchases, cart, newFakeRecordings())

	_, err := svc.CheckoutCart(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNothingToPay)

	// Fully-owned cart behaves the same as an empty one.
	cart.add(1, 10, 500)
	require.NoError(t, purchases.UpsertPaid(context.Background(), 1, 10, Provider, time.Now()))

	_, err = svc.CheckoutCart(context.Background(), 1)
	assert.ErrorIs(t, err, ErrNothingToPay)
	assert.Zero(t, gw.calls)
}

func TestCheckoutCartSharesOnePaymentID(t *testing.T) {
	gw := &fakeGateway{}
	purchases := newFakePurchases()
	cart := newFakeCart()
	cart.add(1, 10, 500)
	cart.add(1, 11, 700)
	cart.add(1, 12, 300)

	svc := newTestService(gw, newFakeBeats(), purchases, cart, newFakeRecordings())

	res, err := svc.CheckoutCart(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, 1, gw.calls, "one aggregate payment for the whole cart")
	assert.Equal(t, int64(1500), gw.payments[0].Amount)

	for _, beatID := range []int64{10, 11, 12} {
		p, _ := purchases.GetByUserAndBeat(context.Background(), 1, beatID)
		require.NotNil(t, p)
		assert.Equal(t, model.PurchasePending, p.Status)
		assert.Equal(t, res.PaymentID, p.PaymentID)
	}

	// Cart survives until the webhook confirms settlement.
	items, _ := cart.ListByUser(context.Background(), 1)
	assert.Len(t, items, 3)
}

func TestCheckoutCartRejectsWhilePaymentPending(t *testing.T) {
	gw := &fakeGateway{}
	purchases := newFakePurchases()
	cart := newFakeCart()
	cart.add(1, 10, 500)

	svc := newTestService(gw, newFakeBeats(), purchases, cart, newFakeRecordings())

	_, err := svc.CheckoutCart(context.Background(), 1)
	require.NoError(t, err)

	// A second attempt before the webhook lands must not overwrite the
	// first payment id.
	_, err = svc.CheckoutCart(context.Background(), 1)
	assert.ErrorIs(t, err, ErrPaymentPending)
	assert.Equal(t, 1, gw.calls)
}

func TestCheckoutCartAllowsRetryAfterWindow(t *testing.T) {
	gw := &fakeGateway{}
	purchases := newFakePurchases()
	cart := newFakeCart()
	cart.add(1, 10, 500)

	svc := newTestService(gw, newFakeBeats(), purchases, cart, newFakeRecordings())

	_, err := svc.CheckoutCart(context.Background(), 1)
	require.NoError(t, err)

	// Abandoned attempt: once the pending window has elapsed the user may
	// start over.
	svc.now = func() time.Time { return time.Now().Add(16 * time.Minute) }

	res, err := svc.CheckoutCart(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 2, gw.calls)
	assert.Equal(t, "pay_2", res.PaymentID)
}

func TestPayBeatFreeShortcut(t *testing.T) {
	gw := &fakeGateway{}
	purchases := newFakePurchases()
	beats := newFakeBeats(&model.Beat{ID: 10, Title: "Night Drive", Price: 0})

	svc := newTestService(gw, beats, purchases, newFakeCart(), newFakeRecordings())

	res, err := svc.PayBeat(context.Background(), 1, 10)
	require.NoError(t, err)

	assert.True(t, res.Free)
	assert.Zero(t, gw.calls)

	p, _ := purchases.GetByUserAndBeat(context.Background(), 1, 10)
	require.NotNil(t, p)
	assert.Equal(t, model.PurchasePaid, p.Status)
}

func TestPayBeatAlreadyOwned(t *testing.T) {
	gw := &fakeGateway{}
	purchases := newFakePurchases()
	beats := newFakeBeats(&model.Beat{ID: 10, Title: "Night Drive", Price: 500})
	require.NoError(t, purchases.UpsertPaid(context.Background(), 1, 10, Provider, time.Now()))

	svc := newTestService(gw, beats, purchases, newFakeCart(), newFakeRecordings())

	_, err := svc.PayBeat(context.Background(), 1, 10)
	assert.ErrorIs(t, err, ErrAlreadyOwned)
	assert.Zero(t, gw.calls)
}

func TestPayBeatNotFound(t *testing.T) {
	svc := newTestService(&fakeGateway{}, newFakeBeats(), newFakePurchases(), newFakeCart(), newFakeRecordings())

	_, err := svc.PayBeat(context.Background(), 1, 99)
	assert.ErrorIs(t, err, ErrBeatNotFound)
}

func TestPayRecordingExistingReusesStoredPrice(t *testing.T) {
	gw := &fakeGateway{}
	recs := newFakeRecordings()
	id, err := recs.Create(context.Background(), &model.Recording{
		UserID:        1,
		RecordingType: model.RecordingWithMusic,
		Price:         7000,
		Status:        model.RecordingPending,
	})
	require.NoError(t, err)

	svc := newTestService(gw, newFakeBeats(), newFakePurchases(), newFakeCart(), recs)

	res, err := svc.PayRecording(context.Background(), 1, PayRecordingRequest{RecordingID: &id})
	require.NoError(t, err)

	assert.Equal(t, int64(7000), res.Amount)
	rec, _ := recs.GetByID(context.Background(), id)
	assert.Equal(t, Provider, rec.Provider)
	assert.Equal(t, res.PaymentID, rec.PaymentID)
	assert.Equal(t, model.RecordingPending, rec.Status, "checkout leaves status pending; only the webhook pays")
}

func TestPayRecordingForeignRecordingConcealed(t *testing.T) {
	recs := newFakeRecordings()
	id, _ := recs.Create(context.Background(), &model.Recording{
		UserID: 2, RecordingType: model.RecordingOwnMusic, Price: 5000, Status: model.RecordingPending,
	})

	svc := newTestService(&fakeGateway{}, newFakeBeats(), newFakePurchases(), newFakeCart(), recs)

	_, err := svc.PayRecording(context.Background(), 1, PayRecordingRequest{RecordingID: &id})
	assert.ErrorIs(t, err, ErrRecordingNotFound)
}

func TestPayRecordingOnTheFlyAppliesDiscount(t *testing.T) {
	gw := &fakeGateway{}
	recs := newFakeRecordings()
	// Five historically paid recordings put the user at the loyalty threshold.
	for i := 0; i < 5; i++ {
		_, err := recs.Create(context.Background(), &model.Recording{
			UserID: 1, RecordingType: model.RecordingOwnMusic, Price: 5000, Status: model.RecordingCompleted,
		})
		require.NoError(t, err)
	}

	svc := newTestService(gw, newFakeBeats(), newFakePurchases(), newFakeCart(), recs)

	res, err := svc.PayRecording(context.Background(), 1, PayRecordingRequest{
		RecordingType: model.RecordingWithMusic,
		MusicStyle:    "hip-hop",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(3500), res.Amount, "7000 base with the 50% loyalty discount")
	assert.Equal(t, int64(3500), gw.payments[0].Amount)
}

func TestPayRecordingNoFreeShortcut(t *testing.T) {
	gw := &fakeGateway{}
	recs := newFakeRecordings()

	svc := newTestService(gw, newFakeBeats(), newFakePurchases(), newFakeCart(), recs)

	// Even the cheapest recording type always goes through the gateway;
	// the free shortcut exists only for beats.
	res, err := svc.PayRecording(context.Background(), 1, PayRecordingRequest{
		RecordingType: model.RecordingBuyMusic,
	})
	require.NoError(t, err)
	assert.False(t, res.Free)
	assert.Equal(t, 1, gw.calls)
}
