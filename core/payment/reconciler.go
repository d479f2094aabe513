package payment

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"BeatStudio/logger"
)

// StatusSucceeded is the gateway's settled status. Everything else leaves
// internal statuses untouched.
const StatusSucceeded = "succeeded"

// ErrBadEvent marks a webhook payload with no payment id; the handler
// answers 400 and the gateway may retry with a corrected payload.
var ErrBadEvent = errors.New("webhook event has no payment id")

// WebhookEvent is the normalized asynchronous callback from the gateway.
type WebhookEvent struct {
	PaymentID string
	Status    string
	Metadata  map[string]interface{}
}

// Reconciler applies gateway status callbacks to every matching row. A
// single payment id can cover several purchase rows (one cart checkout), so
// updates fan out rather than stopping at the first match. Reapplying the
// same event is idempotent: everything is a pure SET keyed by payment id.
type Reconciler struct {
	purchases  PurchaseStore
	recordings RecordingStore
	cart       CartStore
	now        func() time.Time
}

func NewReconciler(purchases PurchaseStore, recordings RecordingStore, cart CartStore) *Reconciler {
	return &Reconciler{purchases: purchases, recordings: recordings, cart: cart, now: time.Now}
}

// Reconcile processes one webhook delivery. Unknown payment ids are a
// successful no-op: the gateway must not be told to retry a webhook whose
// payload simply doesn't map to a known row.
func (r *Reconciler) Reconcile(ctx context.Context, event WebhookEvent) error {
	if event.PaymentID == "" {
		return ErrBadEvent
	}

	recRows, err := r.recordings.SetGatewayStatusByPaymentID(ctx, event.PaymentID, event.Status)
	if err != nil {
		return fmt.Errorf("failed to update recording payment status: %w", err)
	}
	purchaseRows, err := r.purchases.SetGatewayStatusByPaymentID(ctx, event.PaymentID, event.Status)
	if err != nil {
		return fmt.Errorf("failed to update purchase payment status: %w", err)
	}

	if event.Status == StatusSucceeded {
		// Forward-only: internal status moves to paid here and nowhere else.
		// Non-succeeded deliveries never touch internal status, so a row
		// that reached paid cannot regress.
		paidAt := r.now()
		if _, err := r.recordings.MarkPaidByPaymentID(ctx, event.PaymentID, paidAt); err != nil {
			return fmt.Errorf("failed to mark recordings paid: %w", err)
		}
		if _, err := r.purchases.MarkPaidByPaymentID(ctx, event.PaymentID, paidAt); err != nil {
			return fmt.Errorf("failed to mark purchases paid: %w", err)
		}

		// Deferred cart cleanup for cart checkouts.
		if metaString(event.Metadata, "type") == metaTypeBeatCart {
			if userID, ok := metaInt64(event.Metadata, "user_id"); ok {
				if err := r.cart.Clear(ctx, userID); err != nil {
					return fmt.Errorf("failed to clear cart for user %d: %w", userID, err)
				}
			}
		}
	}

	logger.Info("webhook reconciled",
		logger.String("paymentID", event.PaymentID),
		logger.String("status", event.Status),
		logger.Int64("recordingRows", recRows),
		logger.Int64("purchaseRows", purchaseRows))

	return nil
}

func metaString(meta map[string]interface{}, key string) string {
	if meta == nil {
		return ""
	}
	if s, ok := meta[key].(string); ok {
		return s
	}
	return ""
}

// metaInt64 tolerates both string and JSON-number metadata values.
func metaInt64(meta map[string]interface{}, key string) (int64, bool) {
	if meta == nil {
		return 0, false
	}
	switch v := meta[key].(type) {
	case string:
		n, err := strconv.ParseInt(v, 10, 64)
		return n, err == nil
	case float64:
		return int64(v), true
	case int64:
		return v, true
	}
	return 0, false
}
