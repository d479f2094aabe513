package model

import "time"

// Recording types offered by the studio.
const (
	RecordingOwnMusic      = "own-music"
	RecordingWithMusic     = "with-music"
	RecordingHomeRecording = "home-recording"
	RecordingVideoClip     = "video-clip"
	RecordingBuyMusic      = "buy-music"
)

// Recording lifecycle statuses.
const (
	RecordingPending    = "pending"
	RecordingPaid       = "paid"
	RecordingInProgress = "in-progress"
	RecordingCompleted  = "completed"
	RecordingCancelled  = "cancelled"
)

// Recording is a studio service request (vocal session, mixing, ...) tied to
// a price and a fulfillment status. Payment fields are filled by checkout and
// advanced by the webhook reconciler; TrackPath is set when the finished
// track is delivered.
type Recording struct {
	ID            int64      `json:"id"`
	UserID        int64      `json:"userId"`
	RecordingType string     `json:"recordingType"`
	MusicStyle    string     `json:"musicStyle"`
	Price         int64      `json:"price"`
	Status        string     `json:"status"`
	Provider      string     `json:"provider,omitempty"`
	PaymentID     string     `json:"paymentId,omitempty"`
	PaymentStatus string     `json:"paymentStatus,omitempty"`
	PaidAt        *time.Time `json:"paidAt,omitempty"`
	BeatID        *int64     `json:"beatId,omitempty"`    // purchased beat used in the session
	BookingID     *int64     `json:"bookingId,omitempty"` // studio booking realized by this recording
	TrackPath     string     `json:"trackPath,omitempty"` // delivered track object key
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}
