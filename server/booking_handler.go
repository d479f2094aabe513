package server

import (
	"encoding/json"
	"net/http"

	"BeatStudio/logger"
	"BeatStudio/model"
)

// CreateBookingHandler accepts a studio session intake form. The endpoint is
// public: visitors book by phone contact, logged-in users additionally get
// the booking attached to their account.
func (h *APIHandler) CreateBookingHandler(w http.ResponseWriter, r *http.Request) {
	var userID *int64
	if id := optionalUserID(r); id > 0 {
		userID = &id
	}

	var req model.CreateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.Phone == "" || req.Date == "" {
		respondError(w, "Name, phone and date are required", http.StatusBadRequest)
		return
	}

	booking := &model.StudioBooking{
		UserID:       userID,
		Name:         req.Name,
		Phone:        req.Phone,
		Email:        req.Email,
		Date:         req.Date,
		TimeSlot:     req.TimeSlot,
		ServiceType:  req.ServiceType,
		WithEngineer: req.WithEngineer,
		NeedMixing:   req.NeedMixing,
		Comment:      req.Comment,
		Status:       model.BookingNew,
	}

	id, err := h.bookingRepo.Create(r.Context(), booking)
	if err != nil {
		logger.Error("Failed to create booking", logger.String("phone", req.Phone), logger.ErrorField(err))
		respondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	booking.ID = id

	logger.Info("Booking created",
		logger.Int64("bookingId", id),
		logger.String("date", req.Date))
	writeJSON(w, http.StatusCreated, booking)
}

// ListMyBookingsHandler returns the caller's bookings.
func (h *APIHandler) ListMyBookingsHandler(w http.ResponseWriter, r *http.Request) {
	userID, err := GetUserIDFromContext(r.Context())
	if err != nil {
		respondError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	bookings, err := h.bookingRepo.ListByUser(r.Context(), userID)
	if err != nil {
		logger.Error("Failed to list bookings", logger.Int64("userId", userID), logger.ErrorField(err))
		respondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}

// ListAllBookingsHandler returns every booking for the staff workboard.
func (h *APIHandler) ListAllBookingsHandler(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.bookingRepo.ListAll(r.Context())
	if err != nil {
		logger.Error("Failed to list all bookings", logger.ErrorField(err))
		respondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}

// UpdateBookingHandler lets staff move a booking through its workflow and
// optionally link the recording that realized it.
func (h *APIHandler) UpdateBookingHandler(w http.ResponseWriter, r *http.Request) {
	bookingID, err := pathID(r, "id")
	if err != nil {
		respondError(w, "Invalid booking ID", http.StatusBadRequest)
		return
	}

	var req struct {
		Status      string `json:"status"`
		RecordingID *int64 `json:"recordingId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	booking, err := h.bookingRepo.GetByID(r.Context(), bookingID)
	if err != nil {
		respondError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if booking == nil {
		respondError(w, "Booking not found", http.StatusNotFound)
		return
	}

	if req.Status != "" {
		switch req.Status {
		case model.BookingNew, model.BookingInWork, model.BookingCompleted, model.BookingRejected:
		default:
			respondError(w, "Invalid status", http.StatusBadRequest)
			return
		}
		if err := h.bookingRepo.UpdateStatus(r.Context(), bookingID, req.Status); err != nil {
			logger.Error("Failed to update booking status", logger.Int64("bookingId", bookingID), logger.ErrorField(err))
			respondError(w, "Internal server error", http.StatusInternalServerError)
			return
		}
	}

	if req.RecordingID != nil {
		rec, err := h.recordingRepo.GetByID(r.Context(), *req.RecordingID)
		if err != nil {
			respondError(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		if rec == nil {
			respondError(w, "Recording not found", http.StatusNotFound)
			return
		}
		if err := h.bookingRepo.LinkRecording(r.Context(), bookingID, *req.RecordingID); err != nil {
			logger.Error("Failed to link recording", logger.Int64("bookingId", bookingID), logger.ErrorField(err))
			respondError(w, "Internal server error", http.StatusInternalServerError)
			return
		}
	}

	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
