package model

import "time"

// Booking workflow statuses, independent of payment.
const (
	BookingNew       = "new"
	BookingInWork    = "in_work"
	BookingCompleted = "completed"
	BookingRejected  = "rejected"
)

// StudioBooking is the intake form for scheduling a studio session. It has
// its own approval workflow and may later be linked to the paid Recording
// that realized it via RecordingID.
type StudioBooking struct {
	ID           int64     `json:"id"`
	UserID       *int64    `json:"userId,omitempty"` // nil for anonymous intake
	Name         string    `json:"name"`
	Phone        string    `json:"phone"`
	Email        string    `json:"email,omitempty"`
	Date         string    `json:"date"` // requested day, YYYY-MM-DD
	TimeSlot     string    `json:"timeSlot"`
	ServiceType  string    `json:"serviceType"`
	WithEngineer bool      `json:"withEngineer"`
	NeedMixing   bool      `json:"needMixing"`
	Comment      string    `json:"comment,omitempty"`
	Status       string    `json:"status"`
	RecordingID  *int64    `json:"recordingId,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// CreateBookingRequest is the request body for the booking intake endpoint.
type CreateBookingRequest struct {
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Email        string `json:"email"`
	Date         string `json:"date"`
	TimeSlot     string `json:"timeSlot"`
	ServiceType  string `json:"serviceType"`
	WithEngineer bool   `json:"withEngineer"`
	NeedMixing   bool   `json:"needMixing"`
	Comment      string `json:"comment"`
}
