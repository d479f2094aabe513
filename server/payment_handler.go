package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"BeatStudio/core/payment"
	"BeatStudio/logger"
)

// CheckoutCartHandler starts an aggregate payment for the whole cart and
// returns the gateway redirect URL, or completes immediately for a free cart.
func (h *APIHandler) CheckoutCartHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	result, err := h.checkout.CheckoutCart(r.Context(), userID)
	if err != nil {
		h.respondCheckoutError(w, userID, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// PayBeatHandler starts a payment for a single beat outside the cart.
func (h *APIHandler) PayBeatHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		BeatID int64 `json:"beatId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.BeatID <= 0 {
		respondError(w, "Invalid beat ID", http.StatusBadRequest)
		return
	}

	result, err := h.checkout.PayBeat(r.Context(), userID, req.BeatID)
	if err != nil {
		h.respondCheckoutError(w, userID, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// PayRecordingHandler starts a payment for a studio recording, either an
// existing pending one or one created on the fly from type + style.
func (h *APIHandler) PayRecordingHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req payment.PayRecordingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.RecordingID == nil && req.RecordingType == "" {
		respondError(w, "Either recordingId or recordingType is required", http.StatusBadRequest)
		return
	}

	result, err := h.checkout.PayRecording(r.Context(), userID, req)
	if err != nil {
		h.respondCheckoutError(w, userID, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *APIHandler) respondCheckoutError(w http.ResponseWriter, userID int64, err error) {
	switch {
	case errors.Is(err, payment.ErrNothingToPay):
		respondError(w, "Nothing to pay", http.StatusBadRequest)
	case errors.Is(err, payment.ErrAlreadyOwned):
		respondError(w, "Beat already purchased", http.StatusConflict)
	case errors.Is(err, payment.ErrPaymentPending):
		respondError(w, "A payment for this item is already being processed", http.StatusConflict)
	case errors.Is(err, payment.ErrBeatNotFound):
		respondError(w, "Beat not found", http.StatusNotFound)
	case errors.Is(err, payment.ErrRecordingNotFound):
		respondError(w, "Recording not found", http.StatusNotFound)
	case errors.Is(err, payment.ErrGatewayNotConfigured):
		logger.Error("Checkout attempted without gateway credentials", logger.Int64("userId", userID))
		respondError(w, "Payments are not configured", http.StatusServiceUnavailable)
	default:
		logger.Error("Checkout failed", logger.Int64("userId", userID), logger.ErrorField(err))
		respondError(w, "Internal server error", http.StatusInternalServerError)
	}
}

// DiscountInfoHandler reports the caller's loyalty discount progress.
func (h *APIHandler) DiscountInfoHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	info, err := h.policy.Quote(r.Context(), userID)
	if err != nil {
		logger.Error("Failed to compute discount", logger.Int64("userId", userID), logger.ErrorField(err))
		respondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// webhookNotification mirrors the gateway's notification envelope.
type webhookNotification struct {
	Event  string `json:"event"`
	Object struct {
		ID       string                 `json:"id"`
		Status   string                 `json:"status"`
		Metadata map[string]interface{} `json:"metadata"`
	} `json:"object"`
}

// PaymentWebhookHandler receives gateway notifications and hands them to the
// reconciler. The gateway retries on any non-2xx response, so transient
// failures answer 500 and malformed events 400.
func (h *APIHandler) PaymentWebhookHandler(w http.ResponseWriter, r *http.Request) {
	var notif webhookNotification
	if err := json.NewDecoder(r.Body).Decode(&notif); err != nil {
		respondError(w, "Invalid notification body", http.StatusBadRequest)
		return
	}

	event := payment.WebhookEvent{
		PaymentID: notif.Object.ID,
		Status:    notif.Object.Status,
		Metadata:  notif.Object.Metadata,
	}

	if err := h.reconciler.Reconcile(r.Context(), event); err != nil {
		if errors.Is(err, payment.ErrBadEvent) {
			respondError(w, "Malformed event", http.StatusBadRequest)
			return
		}
		logger.Error("Webhook reconciliation failed",
			logger.String("paymentId", event.PaymentID),
			logger.String("status", event.Status),
			logger.ErrorField(err))
		respondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	logger.Info("Webhook processed",
		logger.String("paymentId", event.PaymentID),
		logger.String("status", event.Status),
		logger.String("event", notif.Event))
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
