package server

import (
	"encoding/json"
	"net/http"

	"BeatStudio/core/access"
	"BeatStudio/core/pricing"
	"BeatStudio/logger"
	"BeatStudio/model"
)

// CreateRecordingHandler registers a studio service request in pending
// state. Payment happens separately through the checkout endpoints.
func (h *APIHandler) CreateRecordingHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		RecordingType string `json:"recordingType"`
		MusicStyle    string `json:"musicStyle"`
		BeatID        *int64 `json:"beatId"`
		BookingID     *int64 `json:"bookingId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RecordingType == "" {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	quote, err := h.policy.Quote(r.Context(), userID)
	if err != nil {
		logger.Error("Failed to compute discount", logger.Int64("userId", userID), logger.ErrorField(err))
		respondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	rec := &model.Recording{
		UserID:        userID,
		RecordingType: req.RecordingType,
		MusicStyle:    req.MusicStyle,
		Price:         pricing.Apply(pricing.BasePrice(req.RecordingType), quote.Percent),
		Status:        model.RecordingPending,
		BeatID:        req.BeatID,
		BookingID:     req.BookingID,
	}

	id, err := h.recordingRepo.Create(r.Context(), rec)
	if err != nil {
		logger.Error("Failed to create recording", logger.Int64("userId", userID), logger.ErrorField(err))
		respondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	rec.ID = id

	logger.Info("Recording requested",
		logger.Int64("recordingId", id),
		logger.Int64("userId", userID),
		logger.String("type", req.RecordingType))
	writeJSON(w, http.StatusCreated, rec)
}

// ListMyRecordingsHandler returns the caller's recordings.
func (h *APIHandler) ListMyRecordingsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	recordings, err := h.recordingRepo.ListByUser(r.Context(), userID)
	if err != nil {
		logger.Error("Failed to list recordings", logger.Int64("userId", userID), logger.ErrorField(err))
		respondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, recordings)
}

// GetRecordingHandler returns a single recording. Regular users only see
// their own; staff can open any of them.
func (h *APIHandler) GetRecordingHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	recordingID, err := pathID(r, "id")
	if err != nil {
		respondError(w, "Invalid recording ID", http.StatusBadRequest)
		return
	}

	rec, err := h.recordingRepo.GetByID(r.Context(), recordingID)
	if err != nil {
		respondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	role, _ := GetRoleFromContext(r.Context())
	if rec == nil || (rec.UserID != userID && !access.Can(role, access.ManageRecordings)) {
		respondError(w, "Recording not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// CancelRecordingHandler lets the owner cancel a recording that has not
// been paid yet. Paid recordings go through the staff pipeline instead.
func (h *APIHandler) CancelRecordingHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	recordingID, err := pathID(r, "id")
	if err != nil {
		respondError(w, "Invalid recording ID", http.StatusBadRequest)
		return
	}

	rec, err := h.recordingRepo.GetByID(r.Context(), recordingID)
	if err != nil {
		respondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if rec == nil || rec.UserID != userID {
		respondError(w, "Recording not found", http.StatusNotFound)
		return
	}
	if rec.Status != model.RecordingPending {
		respondError(w, "Only pending recordings can be cancelled", http.StatusConflict)
		return
	}

	if err := h.recordingRepo.UpdateStatus(r.Context(), recordingID, model.RecordingCancelled); err != nil {
		logger.Error("Failed to cancel recording",
			logger.Int64("recordingId", recordingID),
			logger.ErrorField(err))
		respondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	logger.Info("Recording cancelled", logger.Int64("recordingId", recordingID), logger.Int64("userId", userID))
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// ListAllRecordingsHandler returns every recording for the staff workboard.
func (h *APIHandler) ListAllRecordingsHandler(w http.ResponseWriter, r *http.Request) {
	recordings, err := h.recordingRepo.ListAll(r.Context())
	if err != nil {
		logger.Error("Failed to list all recordings", logger.ErrorField(err))
		respondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, recordings)
}

// UpdateRecordingStatusHandler lets staff move a paid recording through the
// production pipeline. Payment statuses are owned by the webhook reconciler
// and cannot be set here.
func (h *APIHandler) UpdateRecordingStatusHandler(w http.ResponseWriter, r *http.Request) {
	recordingID, err := pathID(r, "id")
	if err != nil {
		respondError(w, "Invalid recording ID", http.StatusBadRequest)
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	switch req.Status {
	case model.RecordingInProgress, model.RecordingCompleted, model.RecordingCancelled:
	default:
		respondError(w, "Invalid status", http.StatusBadRequest)
		return
	}

	rec, err := h.recordingRepo.GetByID(r.Context(), recordingID)
	if err != nil {
		respondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if rec == nil {
		respondError(w, "Recording not found", http.StatusNotFound)
		return
	}

	if err := h.recordingRepo.UpdateStatus(r.Context(), recordingID, req.Status); err != nil {
		logger.Error("Failed to update recording status",
			logger.Int64("recordingId", recordingID),
			logger.ErrorField(err))
		respondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	logger.Info("Recording status updated",
		logger.Int64("recordingId", recordingID),
		logger.String("status", req.Status))
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

// DownloadRecordingHandler streams the delivered track to its owner.
func (h *APIHandler) DownloadRecordingHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	recordingID, err := pathID(r, "id")
	if err != nil {
		respondError(w, "Invalid recording ID", http.StatusBadRequest)
		return
	}

	rec, err := h.recordingRepo.GetByID(r.Context(), recordingID)
	if err != nil {
		respondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	// Hide other users' recordings entirely.
	if rec == nil || rec.UserID != userID {
		respondError(w, "Recording not found", http.StatusNotFound)
		return
	}
	if rec.TrackPath == "" {
		respondError(w, "Track not delivered yet", http.StatusNotFound)
		return
	}

	h.streamObject(w, r, rec.TrackPath, "application/octet-stream")
}
