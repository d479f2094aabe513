package model

import "time"

// Beat represents a purchasable instrumental in the catalog.
// Price is in whole currency units; a price of 0 marks a free beat that
// needs no purchase record to be downloadable.
type Beat struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"` // creator
	Title     string    `json:"title"`
	Genre     string    `json:"genre"`
	BPM       int       `json:"bpm"`
	Price     int64     `json:"price"`
	FilePath  string    `json:"-"` // object key in MinIO, not exposed directly
	CoverPath string    `json:"coverPath"`
	PlayCount int64     `json:"playCount"`
	State     int8      `json:"state"` // 0=soft deleted, 1=normal
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Purchase statuses internal to this system. The gateway's own vocabulary
// ("succeeded" etc.) is kept separately in PaymentStatus.
const (
	PurchasePending = "pending"
	PurchasePaid    = "paid"
)

// BeatPurchase ties a user to a beat they are buying or own.
// At most one row exists per (user, beat); re-checkout upserts it.
type BeatPurchase struct {
	ID            int64      `json:"id"`
	UserID        int64      `json:"userId"`
	BeatID        int64      `json:"beatId"`
	Provider      string     `json:"provider"`
	PaymentID     string     `json:"paymentId"`
	PaymentStatus string     `json:"paymentStatus"` // gateway status string
	Status        string     `json:"status"`        // pending | paid
	PaidAt        *time.Time `json:"paidAt,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// Owned reports whether this purchase entitles the user to the beat.
func (p *BeatPurchase) Owned() bool {
	return p.Status == PurchasePaid || p.PaymentStatus == "succeeded"
}

// CartItem is one beat queued for purchase. Unique per (user, beat).
type CartItem struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	BeatID    int64     `json:"beatId"`
	CreatedAt time.Time `json:"createdAt"`

	// Joined from beats at read time; prices are live, not frozen at add time.
	Title string `json:"title,omitempty"`
	Price int64  `json:"price,omitempty"`
}

// BeatFavorite marks a beat starred by a user.
type BeatFavorite struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	BeatID    int64     `json:"beatId"`
	CreatedAt time.Time `json:"createdAt"`
}
