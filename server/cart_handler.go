package server

import (
	"encoding/json"
	"net/http"

	"BeatStudio/logger"
)

// GetCartHandler returns the caller's cart with live prices joined in.
func (h *APIHandler) GetCartHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	items, err := h.cartRepo.ListByUser(r.Context(), userID)
	if err != nil {
		logger.Error("Failed to list cart", logger.Int64("userId", userID), logger.ErrorField(err))
		respondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var total int64
	for _, item := range items {
		total += item.Price
	}
	writeJSON(w, http.StatusOK, struct {
		Items interface{} `json:"items"`
		Total int64       `json:"total"`
	}{Items: items, Total: total})
}

// AddToCartHandler queues a beat for purchase. Duplicates are ignored.
func (h *APIHandler) AddToCartHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		BeatID int64 `json:"beatId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.BeatID <= 0 {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	beat, err := h.beatRepo.GetBeatByID(r.Context(), req.BeatID)
	if err != nil {
		respondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if beat == nil {
		respondError(w, "Beat not found", http.StatusNotFound)
		return
	}

	if err := h.cartRepo.Add(r.Context(), userID, req.BeatID); err != nil {
		logger.Error("Failed to add to cart", logger.Int64("beatId", req.BeatID), logger.ErrorField(err))
		respondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// RemoveFromCartHandler takes one beat out of the cart.
func (h *APIHandler) RemoveFromCartHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	beatID, err := pathID(r, "beat_id")
	if err != nil {
		respondError(w, "Invalid beat ID", http.StatusBadRequest)
		return
	}

	if err := h.cartRepo.Remove(r.Context(), userID, beatID); err != nil {
		logger.Error("Failed to remove from cart", logger.Int64("beatId", beatID), logger.ErrorField(err))
		respondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// ListPurchasesHandler returns the caller's purchase history.
func (h *APIHandler) ListPurchasesHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	purchases, err := h.purchaseRepo.ListByUser(r.Context(), userID)
	if err != nil {
		logger.Error("Failed to list purchases", logger.Int64("userId", userID), logger.ErrorField(err))
		respondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, purchases)
}

// ListOwnedBeatsHandler returns the beats the caller has fully paid for.
func (h *APIHandler) ListOwnedBeatsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	beats, err := h.purchaseRepo.ListOwnedBeats(r.Context(), userID)
	if err != nil {
		logger.Error("Failed to list owned beats", logger.Int64("userId", userID), logger.ErrorField(err))
		respondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, beats)
}
