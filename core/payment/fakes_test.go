package payment

import (
	"context"
	"fmt"
	"time"

	"BeatStudio/model"
)

// In-memory stores mirroring the MySQL repositories closely enough for the
// orchestrator and reconciler semantics.

type fakeGateway struct {
	calls    int
	payments []CreatePaymentRequest
	fail     error
}

func (g *fakeGateway) CreateRedirectPayment(ctx context.Context, req CreatePaymentRequest) (*Payment, error) {
	g.calls++
	if g.fail != nil {
		return nil, g.fail
	}
	g.payments = append(g.payments, req)
	return &Payment{
		ID:              fmt.Sprintf("pay_%d", g.calls),
		Status:          "pending",
		ConfirmationURL: fmt.Sprintf("https://gateway.test/confirm/%d", g.calls),
	}, nil
}

type fakeBeats struct {
	beats map[int64]*model.Beat
}

func newFakeBeats(beats ...*model.Beat) *fakeBeats {
	m := make(map[int64]*model.Beat)
	for _, b := range beats {
		m[b.ID] = b
	}
	return &fakeBeats{beats: m}
}

func (f *fakeBeats) GetBeatByID(ctx context.Context, id int64) (*model.Beat, error) {
	return f.beats[id], nil
}

type fakePurchases struct {
	rows map[string]*model.BeatPurchase
	now  func() time.Time
}

func newFakePurchases() *fakePurchases {
	return &fakePurchases{rows: make(map[string]*model.BeatPurchase), now: time.Now}
}

func purchaseKey(userID, beatID int64) string {
	return fmt.Sprintf("%d:%d", userID, beatID)
}

func (f *fakePurchases) GetByUserAndBeat(ctx context.Context, userID, beatID int64) (*model.BeatPurchase, error) {
	return f.rows[purchaseKey(userID, beatID)], nil
}

func (f *fakePurchases) UpsertPending(ctx context.Context, userID, beatID int64, provider, paymentID, paymentStatus string) error {
	key := purchaseKey(userID, beatID)
	row, ok := f.rows[key]
	if !ok {
		row = &model.BeatPurchase{UserID: userID, BeatID: beatID, CreatedAt: f.now()}
		f.rows[key] = row
	}
	row.Provider = provider
	row.PaymentID = paymentID
	row.PaymentStatus = paymentStatus
	row.Status = model.PurchasePending
	row.UpdatedAt = f.now()
	return nil
}

func (f *fakePurchases) UpsertPaid(ctx context.Context, userID, beatID int64, provider string, paidAt time.Time) error {
	key := purchaseKey(userID, beatID)
	row, ok := f.rows[key]
	if !ok {
		row = &model.BeatPurchase{UserID: userID, BeatID: beatID, CreatedAt: paidAt}
		f.rows[key] = row
	}
	row.Provider = provider
	row.Status = model.PurchasePaid
	row.PaidAt = &paidAt
	row.UpdatedAt = paidAt
	return nil
}

func (f *fakePurchases) SetGatewayStatusByPaymentID(ctx context.Context, paymentID, status string) (int64, error) {
	var n int64
	for _, row := range f.rows {
		if row.PaymentID == paymentID {
			row.PaymentStatus = status
			n++
		}
	}
	return n, nil
}

func (f *fakePurchases) MarkPaidByPaymentID(ctx context.Context, paymentID string, paidAt time.Time) (int64, error) {
	var n int64
	for _, row := range f.rows {
		if row.PaymentID == paymentID && row.Status == model.PurchasePending {
			row.Status = model.PurchasePaid
			t := paidAt
			row.PaidAt = &t
			n++
		}
	}
	return n, nil
}

type fakeCart struct {
	items map[int64][]*model.CartItem
}

func newFakeCart() *fakeCart {
	return &fakeCart{items: make(map[int64][]*model.CartItem)}
}

func (f *fakeCart) add(userID, beatID int64, price int64) {
	f.items[userID] = append(f.items[userID], &model.CartItem{
		UserID: userID, BeatID: beatID, Price: price,
	})
}

func (f *fakeCart) ListByUser(ctx context.Context, userID int64) ([]*model.CartItem, error) {
	return f.items[userID], nil
}

func (f *fakeCart) Clear(ctx context.Context, userID int64) error {
	delete(f.items, userID)
	return nil
}

type fakeRecordings struct {
	rows   map[int64]*model.Recording
	nextID int64
}

func newFakeRecordings() *fakeRecordings {
	return &fakeRecordings{rows: make(map[int64]*model.Recording), nextID: 1}
}

func (f *fakeRecordings) GetByID(ctx context.Context, id int64) (*model.Recording, error) {
	return f.rows[id], nil
}

func (f *fakeRecordings) Create(ctx context.Context, rec *model.Recording) (int64, error) {
	id := f.nextID
	f.nextID++
	stored := *rec
	stored.ID = id
	f.rows[id] = &stored
	return id, nil
}

func (f *fakeRecordings) SetPaymentInfo(ctx context.Context, id int64, provider, paymentID, paymentStatus string) error {
	rec, ok := f.rows[id]
	if !ok {
		return fmt.Errorf("recording %d not found", id)
	}
	rec.Provider = provider
	rec.PaymentID = paymentID
	rec.PaymentStatus = paymentStatus
	rec.UpdatedAt = time.Now()
	return nil
}

func (f *fakeRecordings) SetGatewayStatusByPaymentID(ctx context.Context, paymentID, status string) (int64, error) {
	var n int64
	for _, rec := range f.rows {
		if rec.PaymentID == paymentID {
			rec.PaymentStatus = status
			n++
		}
	}
	return n, nil
}

func (f *fakeRecordings) MarkPaidByPaymentID(ctx context.Context, paymentID string, paidAt time.Time) (int64, error) {
	var n int64
	for _, rec := range f.rows {
		if rec.PaymentID == paymentID && rec.Status == model.RecordingPending {
			rec.Status = model.RecordingPaid
			t := paidAt
			rec.PaidAt = &t
			n++
		}
	}
	return n, nil
}

func (f *fakeRecordings) CountPaidByUser(ctx context.Context, userID int64) (int, error) {
	count := 0
	for _, rec := range f.rows {
		if rec.UserID != userID {
			continue
		}
		switch rec.Status {
		case model.RecordingPaid, model.RecordingInProgress, model.RecordingCompleted:
			count++
		}
	}
	return count, nil
}
