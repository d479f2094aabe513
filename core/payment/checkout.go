// Package payment holds the purchase pipeline: the gateway adapter, the
// three checkout orchestrators, and the webhook reconciler that advances
// pending rows to paid.
package payment

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"BeatStudio/core/pricing"
	"BeatStudio/logger"
	"BeatStudio/model"
)

// Payment metadata types carried to the gateway and back through the webhook.
const (
	metaTypeBeatCart  = "beat_cart"
	metaTypeBeat      = "beat"
	metaTypeRecording = "recording"
)

var (
	// ErrNothingToPay means the cart is empty or every item is already owned.
	ErrNothingToPay = errors.New("cart is empty or already owned")
	// ErrAlreadyOwned rejects paying for a beat the user already owns.
	ErrAlreadyOwned = errors.New("beat already owned")
	// ErrPaymentPending rejects a new checkout while an earlier payment
	// attempt is still inside the pending window.
	ErrPaymentPending = errors.New("a pending payment already exists for this item")
	// ErrBeatNotFound and ErrRecordingNotFound cover missing or foreign rows.
	ErrBeatNotFound      = errors.New("beat not found")
	ErrRecordingNotFound = errors.New("recording not found")
)

// BeatStore is the slice of the beat repository checkout needs.
type BeatStore interface {
	GetBeatByID(ctx context.Context, id int64) (*model.Beat, error)
}

// PurchaseStore persists beat purchase rows. Upserts never touch a row whose
// status is already paid; only MarkPaidByPaymentID (driven by the webhook)
// and UpsertPaid (free beats) set paid.
type PurchaseStore interface {
	GetByUserAndBeat(ctx context.Context, userID, beatID int64) (*model.BeatPurchase, error)
	UpsertPending(ctx context.Context, userID, beatID int64, provider, paymentID, paymentStatus string) error
	UpsertPaid(ctx context.Context, userID, beatID int64, provider string, paidAt time.Time) error
	SetGatewayStatusByPaymentID(ctx context.Context, paymentID, status string) (int64, error)
	MarkPaidByPaymentID(ctx context.Context, paymentID string, paidAt time.Time) (int64, error)
}

// CartStore reads and clears a user's cart. ListByUser joins live beat
// prices; prices are not frozen at add-to-cart time.
type CartStore interface {
	ListByUser(ctx context.Context, userID int64) ([]*model.CartItem, error)
	Clear(ctx context.Context, userID int64) error
}

// RecordingStore persists studio recordings and their payment fields.
type RecordingStore interface {
	GetByID(ctx context.Context, id int64) (*model.Recording, error)
	Create(ctx context.Context, rec *model.Recording) (int64, error)
	SetPaymentInfo(ctx context.Context, id int64, provider, paymentID, paymentStatus string) error
	SetGatewayStatusByPaymentID(ctx context.Context, paymentID, status string) (int64, error)
	MarkPaidByPaymentID(ctx context.Context, paymentID string, paidAt time.Time) (int64, error)
	CountPaidByUser(ctx context.Context, userID int64) (int, error)
}

// CheckoutResult is what the HTTP layer returns to the client: either a
// redirect URL or a free-completion signal.
type CheckoutResult struct {
	Free            bool   `json:"free,omitempty"`
	ConfirmationURL string `json:"confirmation_url,omitempty"`
	PaymentID       string `json:"-"`
	Amount          int64  `json:"-"`
}

// PayRecordingRequest covers both payment of an existing recording and
// on-the-fly creation from a type + style.
type PayRecordingRequest struct {
	RecordingID   *int64 `json:"recordingId,omitempty"`
	RecordingType string `json:"recordingType,omitempty"`
	MusicStyle    string `json:"musicStyle,omitempty"`
	BeatID        *int64 `json:"beatId,omitempty"`
	BookingID     *int64 `json:"bookingId,omitempty"`
}

// CheckoutService runs the three checkout flows. All three share the same
// shape: validate, compute amount, persist pending state, call the gateway,
// return the redirect URL.
type CheckoutService struct {
	gateway       PaymentCreator
	beats         BeatStore
	purchases     PurchaseStore
	cart          CartStore
	recordings    RecordingStore
	policy        *pricing.Policy
	pendingWindow time.Duration
	now           func() time.Time
}

func NewCheckoutService(
	gateway PaymentCreator,
	beats BeatStore,
	purchases PurchaseStore,
	cart CartStore,
	recordings RecordingStore,
	policy *pricing.Policy,
	pendingWindow time.Duration,
) *CheckoutService {
	if pendingWindow <= 0 {
		pendingWindow = 15 * time.Minute
	}
	return &CheckoutService{
		gateway:       gateway,
		beats:         beats,
		purchases:     purchases,
		cart:          cart,
		recordings:    recordings,
		policy:        policy,
		pendingWindow: pendingWindow,
		now:           time.Now,
	}
}

// pendingLocked reports whether an earlier payment attempt for this purchase
// row is still awaiting its webhook inside the pending window. Overwriting
// such a row would orphan the earlier gateway payment from reconciliation.
func (s *CheckoutService) pendingLocked(p *model.BeatPurchase) bool {
	if p == nil || p.Status != model.PurchasePending || p.PaymentID == "" {
		return false
	}
	return s.now().Sub(p.UpdatedAt) < s.pendingWindow
}

// CheckoutCart pays for every payable item in the user's cart with a single
// aggregate gateway payment. Already-owned beats are excluded; a fully free
// cart completes immediately without a gateway call. The cart itself is only
// cleared by the webhook on success, so an abandoned checkout keeps its
// pending state.
func (s *CheckoutService) CheckoutCart(ctx context.Context, userID int64) (*CheckoutResult, error) {
	items, err := s.cart.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load cart for user %d: %w", userID, err)
	}

	payable := make([]*model.CartItem, 0, len(items))
	for _, item := range items {
		p, err := s.purchases.GetByUserAndBeat(ctx, userID, item.BeatID)
		if err != nil {
			return nil, fmt.Errorf("failed to check purchase state for beat %d: %w", item.BeatID, err)
		}
		if p != nil && p.Owned() {
			continue // re-purchase protection
		}
		if s.pendingLocked(p) {
			return nil, ErrPaymentPending
		}
		payable = append(payable, item)
	}

	if len(payable) == 0 {
		return nil, ErrNothingToPay
	}

	var total int64
	for _, item := range payable {
		total += item.Price
	}

	if total == 0 {
		// All-free cart: no gateway involvement at all.
		paidAt := s.now()
		for _, item := range payable {
			if err := s.purchases.UpsertPaid(ctx, userID, item.BeatID, Provider, paidAt); err != nil {
				return nil, fmt.Errorf("failed to record free beat %d: %w", item.BeatID, err)
			}
		}
		if err := s.cart.Clear(ctx, userID); err != nil {
			return nil, fmt.Errorf("failed to clear cart for user %d: %w", userID, err)
		}
		logger.Info("free cart completed without gateway",
			logger.Int64("userID", userID), logger.Int("items", len(payable)))
		return &CheckoutResult{Free: true}, nil
	}

	pmt, err := s.gateway.CreateRedirectPayment(ctx, CreatePaymentRequest{
		Amount:      total,
		Description: fmt.Sprintf("Beat purchase, %d item(s)", len(payable)),
		Metadata: map[string]string{
			"type":    metaTypeBeatCart,
			"user_id": strconv.FormatInt(userID, 10),
		},
	})
	if err != nil {
		return nil, err
	}

	// Every item shares the one payment id; the webhook fans the status
	// update out across all of them.
	for _, item := range payable {
		if err := s.purchases.UpsertPending(ctx, userID, item.BeatID, Provider, pmt.ID, pmt.Status); err != nil {
			return nil, fmt.Errorf("failed to persist pending purchase for beat %d: %w", item.BeatID, err)
		}
	}

	logger.Info("cart checkout created",
		logger.Int64("userID", userID),
		logger.String("paymentID", pmt.ID),
		logger.Int64("amount", total),
		logger.Int("items", len(payable)))

	return &CheckoutResult{ConfirmationURL: pmt.ConfirmationURL, PaymentID: pmt.ID, Amount: total}, nil
}

// PayRecording pays for a single studio recording. An existing recording
// must belong to the caller and reuses its stored price; otherwise one is
// created on the fly with the policy price and the caller's current loyalty
// discount applied. Recordings have no free shortcut.
func (s *CheckoutService) PayRecording(ctx context.Context, userID int64, req PayRecordingRequest) (*CheckoutResult, error) {
	var rec *model.Recording

	if req.RecordingID != nil {
		existing, err := s.recordings.GetByID(ctx, *req.RecordingID)
		if err != nil {
			return nil, fmt.Errorf("failed to load recording %d: %w", *req.RecordingID, err)
		}
		if existing == nil || existing.UserID != userID {
			return nil, ErrRecordingNotFound
		}
		if existing.Status != model.RecordingPending {
			// Checkout never touches a row past pending; paid and later
			// transitions belong to the reconciler and the studio workflow.
			return nil, ErrPaymentPending
		}
		if existing.PaymentID != "" && s.now().Sub(existing.UpdatedAt) < s.pendingWindow {
			return nil, ErrPaymentPending
		}
		rec = existing
	} else {
		base := pricing.BasePrice(req.RecordingType)
		quote, err := s.policy.Quote(ctx, userID)
		if err != nil {
			return nil, err
		}
		rec = &model.Recording{
			UserID:        userID,
			RecordingType: req.RecordingType,
			MusicStyle:    req.MusicStyle,
			Price:         pricing.Apply(base, quote.Percent),
			Status:        model.RecordingPending,
			BeatID:        req.BeatID,
			BookingID:     req.BookingID,
		}
		id, err := s.recordings.Create(ctx, rec)
		if err != nil {
			return nil, fmt.Errorf("failed to create recording: %w", err)
		}
		rec.ID = id
	}

	pmt, err := s.gateway.CreateRedirectPayment(ctx, CreatePaymentRequest{
		Amount:      rec.Price,
		Description: fmt.Sprintf("Studio recording #%d (%s)", rec.ID, rec.RecordingType),
		Metadata: map[string]string{
			"type":         metaTypeRecording,
			"user_id":      strconv.FormatInt(userID, 10),
			"recording_id": strconv.FormatInt(rec.ID, 10),
		},
	})
	if err != nil {
		return nil, err
	}

	if err := s.recordings.SetPaymentInfo(ctx, rec.ID, Provider, pmt.ID, pmt.Status); err != nil {
		return nil, fmt.Errorf("failed to persist payment info for recording %d: %w", rec.ID, err)
	}

	logger.Info("recording payment created",
		logger.Int64("userID", userID),
		logger.Int64("recordingID", rec.ID),
		logger.String("paymentID", pmt.ID),
		logger.Int64("amount", rec.Price))

	return &CheckoutResult{ConfirmationURL: pmt.ConfirmationURL, PaymentID: pmt.ID, Amount: rec.Price}, nil
}

// PayBeat pays for one beat outside the cart, e.g. from the profile's unpaid
// list. Mirrors the cart flow including the free shortcut.
func (s *CheckoutService) PayBeat(ctx context.Context, userID, beatID int64) (*CheckoutResult, error) {
	beat, err := s.beats.GetBeatByID(ctx, beatID)
	if err != nil {
		return nil, fmt.Errorf("failed to load beat %d: %w", beatID, err)
	}
	if beat == nil {
		return nil, ErrBeatNotFound
	}

	p, err := s.purchases.GetByUserAndBeat(ctx, userID, beatID)
	if err != nil {
		return nil, fmt.Errorf("failed to check purchase state for beat %d: %w", beatID, err)
	}
	if p != nil && p.Owned() {
		return nil, ErrAlreadyOwned
	}
	if s.pendingLocked(p) {
		return nil, ErrPaymentPending
	}

	if beat.Price == 0 {
		if err := s.purchases.UpsertPaid(ctx, userID, beatID, Provider, s.now()); err != nil {
			return nil, fmt.Errorf("failed to record free beat %d: %w", beatID, err)
		}
		return &CheckoutResult{Free: true}, nil
	}

	pmt, err := s.gateway.CreateRedirectPayment(ctx, CreatePaymentRequest{
		Amount:      beat.Price,
		Description: fmt.Sprintf("Beat purchase: %s", beat.Title),
		Metadata: map[string]string{
			"type":    metaTypeBeat,
			"user_id": strconv.FormatInt(userID, 10),
			"beat_id": strconv.FormatInt(beatID, 10),
		},
	})
	if err != nil {
		return nil, err
	}

	if err := s.purchases.UpsertPending(ctx, userID, beatID, Provider, pmt.ID, pmt.Status); err != nil {
		return nil, fmt.Errorf("failed to persist pending purchase for beat %d: %w", beatID, err)
	}

	logger.Info("beat payment created",
		logger.Int64("userID", userID),
		logger.Int64("beatID", beatID),
		logger.String("paymentID", pmt.ID),
		logger.Int64("amount", beat.Price))

	return &CheckoutResult{ConfirmationURL: pmt.ConfirmationURL, PaymentID: pmt.ID, Amount: beat.Price}, nil
}
