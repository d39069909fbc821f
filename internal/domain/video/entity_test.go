package video

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vinib1903/cineus-api/internal/domain/room"
)

func TestNewVideoValidation(t *testing.T) {
	_, err := NewVideo(ID("v1"), room.ID("r1"), "  ", "title", "", "user-1", 0)
	assert.ErrorIs(t, err, ErrExternalIDEmpty)

	_, err = NewVideo(ID("v1"), room.ID("r1"), "yt-1", "   ", "", "user-1", 0)
	assert.ErrorIs(t, err, ErrTitleEmpty)
}

func TestNewVideoTruncatesLongTitle(t *testing.T) {
	longTitle := strings.Repeat("a", MaxTitleLength+50)
	v, err := NewVideo(ID("v1"), room.ID("r1"), "yt-1", longTitle, "", "user-1", 0)
	require.NoError(t, err)
	assert.Len(t, v.Title, MaxTitleLength)
}

func TestNewVideoTrimsFields(t *testing.T) {
	v, err := NewVideo(ID("v1"), room.ID("r1"), "  yt-1  ", "  My Video  ", "", "user-1", 3)
	require.NoError(t, err)
	assert.Equal(t, "yt-1", v.ExternalID)
	assert.Equal(t, "My Video", v.Title)
	assert.Equal(t, 3, v.Order)
	assert.False(t, v.IsPlayed)
}

func TestVideoBeforeOrdersByOrderThenCreatedAtThenID(t *testing.T) {
	now := time.Now()

	a := &Video{ID: "b-id", Order: 0, CreatedAt: now}
	b := &Video{ID: "a-id", Order: 1, CreatedAt: now}
	assert.True(t, a.Before(b), "lower Order must sort first")
	assert.False(t, b.Before(a))

	earlier := &Video{ID: "z-id", Order: 1, CreatedAt: now.Add(-time.Second)}
	later := &Video{ID: "a-id", Order: 1, CreatedAt: now}
	assert.True(t, earlier.Before(later), "same Order falls back to CreatedAt")

	tie1 := &Video{ID: "a-id", Order: 1, CreatedAt: now}
	tie2 := &Video{ID: "b-id", Order: 1, CreatedAt: now}
	assert.True(t, tie1.Before(tie2), "same Order and CreatedAt falls back to ID")
	assert.False(t, tie2.Before(tie1))
}
