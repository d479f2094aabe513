package pricing

import (
	"context"
	"testing"

	"BeatStudio/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedCounter struct {
	count int
}

func (f fixedCounter) CountPaidByUser(ctx context.Context, userID int64) (int, error) {
	return f.count, nil
}

func TestBasePrice(t *testing.T) {
	assert.Equal(t, int64(3000), BasePrice(model.RecordingBuyMusic))
	assert.Equal(t, int64(3500), BasePrice(model.RecordingHomeRecording))
	assert.Equal(t, int64(5000), BasePrice(model.RecordingOwnMusic))
	assert.Equal(t, int64(7000), BasePrice(model.RecordingWithMusic))
	assert.Equal(t, int64(15000), BasePrice(model.RecordingVideoClip))
}

func TestBasePriceUnknownTypeFallsBack(t *testing.T) {
	// Unknown types silently get the own-music default; they are not errors.
	assert.Equal(t, DefaultPrice, BasePrice("nonexistent-type"))
	assert.Equal(t, DefaultPrice, BasePrice(""))
}

func TestApply(t *testing.T) {
	assert.Equal(t, int64(2500), Apply(5000, 50))
	assert.Equal(t, int64(5000), Apply(5000, 0))
	assert.Equal(t, int64(4950), Apply(5000, 1))
	// Rounds to nearest instead of truncating.
	assert.Equal(t, int64(3333), Apply(3333, 0))
	assert.Equal(t, int64(1667), Apply(3333, 50))
}

func TestQuoteBelowThreshold(t *testing.T) {
	policy := NewPolicy(fixedCounter{count: 4}, 5, 50)

	info, err := policy.Quote(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, 0, info.Percent)
	assert.Equal(t, 4, info.PaidRecordings)
	assert.Equal(t, 1, info.Remaining)
}

func TestQuoteAtThreshold(t *testing.T) {
	policy := NewPolicy(fixedCounter{count: 5}, 5, 50)

	info, err := policy.Quote(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, 50, info.Percent)
	assert.Equal(t, 5, info.PaidRecordings)
	assert.Equal(t, 0, info.Remaining)
}

func TestQuoteAboveThreshold(t *testing.T) {
	policy := NewPolicy(fixedCounter{count: 12}, 5, 50)

	info, err := policy.Quote(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, 50, info.Percent)
	assert.Equal(t, 12, info.PaidRecordings)
}
