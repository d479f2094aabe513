// Package pricing maps recording types to base prices and computes the
// loyalty discount from a user's paid-recording history.
package pricing

import (
	"context"
	"fmt"
	"math"

	"BeatStudio/model"
)

// DefaultPrice is the own-music price, also the silent fallback for unknown
// recording types.
const DefaultPrice int64 = 5000

var basePrices = map[string]int64{
	model.RecordingBuyMusic:      3000,
	model.RecordingHomeRecording: 3500,
	model.RecordingOwnMusic:      5000,
	model.RecordingWithMusic:     7000,
	model.RecordingVideoClip:     15000,
}

// BasePrice returns the base price for a recording type. Unknown types fall
// back to the own-music default rather than erroring.
func BasePrice(recordingType string) int64 {
	if price, ok := basePrices[recordingType]; ok {
		return price
	}
	return DefaultPrice
}

// Apply returns the price after the discount percentage, rounded to the
// nearest whole unit.
func Apply(base int64, percent int) int64 {
	if percent <= 0 {
		return base
	}
	return int64(math.Round(float64(base) * (1 - float64(percent)/100)))
}

// DiscountInfo is the loyalty quote returned to the client and consumed by
// checkout.
type DiscountInfo struct {
	Percent        int `json:"discount_percent"`
	PaidRecordings int `json:"paid_recordings_count"`
	Remaining      int `json:"records_needed_for_discount"`
}

// PaidRecordingCounter is the slice of the recording repository the policy
// needs: how many of the user's recordings ever reached a paid state.
type PaidRecordingCounter interface {
	CountPaidByUser(ctx context.Context, userID int64) (int, error)
}

// Policy computes the loyalty discount. The quote is recomputed from the
// current paid count on every call; nothing is cached or stored per
// transaction.
type Policy struct {
	recordings PaidRecordingCounter
	threshold  int
	percent    int
}

func NewPolicy(recordings PaidRecordingCounter, threshold, percent int) *Policy {
	if threshold <= 0 {
		threshold = 5
	}
	if percent <= 0 {
		percent = 50
	}
	return &Policy{recordings: recordings, threshold: threshold, percent: percent}
}

// Quote returns the discount the user is entitled to right now.
func (p *Policy) Quote(ctx context.Context, userID int64) (DiscountInfo, error) {
	count, err := p.recordings.CountPaidByUser(ctx, userID)
	if err != nil {
		return DiscountInfo{}, fmt.Errorf("failed to count paid recordings for user %d: %w", userID, err)
	}
	info := DiscountInfo{PaidRecordings: count}
	if count >= p.threshold {
		info.Percent = p.percent
	} else {
		info.Remaining = p.threshold - count
	}
	return info, nil
}
