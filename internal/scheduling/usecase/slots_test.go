package usecase

import (
	"testing"
	"time"

	calendardomain "nexus-backend/internal/calendar/domain"
	"nexus-backend/internal/scheduling/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindAvailableSlots_SkipsShortGaps(t *testing.T) {
	slots := DaySlots(at(19, 9, 0), at(19, 17, 0),
		[]*calendardomain.Event{event("Standup", at(19, 10, 0), at(19, 10, 30))},
		15*time.Minute)

	offers := FindAvailableSlots(slots, time.Hour, 1)
	require.Len(t, offers, 1)
	assert.Equal(t, domain.Offer{Start: at(19, 10, 45), End: at(19, 11, 45)}, offers[0])
}

func TestFindAvailableSlots_OnePerSlotUpToCount(t *testing.T) {
	slots := []domain.Slot{
		{Start: at(19, 9, 0), End: at(19, 10, 0)},
		{Start: at(19, 10, 0), End: at(19, 11, 0), IsBusy: true},
		{Start: at(19, 11, 0), End: at(19, 13, 0)},
		{Start: at(19, 14, 0), End: at(19, 15, 0)},
	}

	offers := FindAvailableSlots(slots, 30*time.Minute, 2)
	require.Len(t, offers, 2)
	assert.Equal(t, at(19, 9, 0), offers[0].Start)
	assert.Equal(t, at(19, 11, 0), offers[1].Start)
	for _, o := range offers {
		assert.Equal(t, 30*time.Minute, o.End.Sub(o.Start))
	}
}

func TestFindAvailableSlots_InvalidInput(t *testing.T) {
	slots := []domain.Slot{{Start: at(19, 9, 0), End: at(19, 17, 0)}}
	assert.Empty(t, FindAvailableSlots(slots, 0, 3))
	assert.Empty(t, FindAvailableSlots(slots, time.Hour, 0))
}

func TestClipSlots(t *testing.T) {
	slots := []domain.Slot{
		{Start: at(19, 9, 0), End: at(19, 9, 45)},
		{Start: at(19, 10, 0), End: at(19, 10, 30), IsBusy: true},
		{Start: at(19, 10, 45), End: at(19, 17, 0)},
	}

	clipped := ClipSlots(slots, at(19, 11, 0), at(19, 16, 0))
	require.Len(t, clipped, 2)
	assert.True(t, clipped[0].IsBusy)
	assert.Equal(t, domain.Slot{Start: at(19, 11, 0), End: at(19, 16, 0)}, clipped[1])
}
