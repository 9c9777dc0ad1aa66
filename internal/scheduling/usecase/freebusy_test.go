package usecase

import (
	"testing"
	"time"

	calendardomain "nexus-backend/internal/calendar/domain"
	"nexus-backend/internal/scheduling/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2026-10-19 is a Monday
func at(day, hour, min int) time.Time {
	return time.Date(2026, time.October, day, hour, min, 0, 0, time.UTC)
}

func event(title string, start, end time.Time) *calendardomain.Event {
	return &calendardomain.Event{Title: title, StartTime: start, EndTime: end}
}

type fakeEvents struct {
	events []*calendardomain.Event
}

func (f *fakeEvents) ListByStart(userID string, from, to time.Time) ([]*calendardomain.Event, error) {
	var out []*calendardomain.Event
	for _, e := range f.events {
		if !e.StartTime.Before(from) && e.StartTime.Before(to) {
			out = append(out, e)
		}
	}
	return out, nil
}

func officeRules() domain.Rules {
	return domain.Rules{
		BufferMinutes:                 15,
		WorkingHoursStart:             "09:00",
		WorkingHoursEnd:               "17:00",
		DefaultMeetingDurationMinutes: 30,
		Timezone:                      "UTC",
	}
}

func TestDaySlots_BufferAroundEvent(t *testing.T) {
	slots := DaySlots(at(19, 9, 0), at(19, 17, 0),
		[]*calendardomain.Event{event("Standup", at(19, 10, 0), at(19, 10, 30))},
		15*time.Minute)

	require.Len(t, slots, 3)
	assert.Equal(t, domain.Slot{Start: at(19, 9, 0), End: at(19, 9, 45)}, slots[0])
	assert.Equal(t, domain.Slot{Start: at(19, 10, 0), End: at(19, 10, 30), IsBusy: true, EventTitle: "Standup"}, slots[1])
	assert.Equal(t, domain.Slot{Start: at(19, 10, 45), End: at(19, 17, 0)}, slots[2])
}

func TestDaySlots_EmptyDayIsOneFreeSlot(t *testing.T) {
	slots := DaySlots(at(19, 9, 0), at(19, 17, 0), nil, 15*time.Minute)
	require.Len(t, slots, 1)
	assert.False(t, slots[0].IsBusy)
	assert.Equal(t, 8*time.Hour, slots[0].Duration())
}

func TestDaySlots_OverlappingEvents(t *testing.T) {
	slots := DaySlots(at(19, 9, 0), at(19, 17, 0), []*calendardomain.Event{
		event("B", at(19, 10, 30), at(19, 11, 30)),
		event("A", at(19, 10, 0), at(19, 11, 0)),
	}, 0)

	require.Len(t, slots, 4)
	assert.Equal(t, at(19, 10, 0), slots[0].End)
	assert.Equal(t, domain.Slot{Start: at(19, 10, 0), End: at(19, 11, 0), IsBusy: true, EventTitle: "A"}, slots[1])
	assert.Equal(t, domain.Slot{Start: at(19, 11, 0), End: at(19, 11, 30), IsBusy: true, EventTitle: "B"}, slots[2])
	assert.Equal(t, domain.Slot{Start: at(19, 11, 30), End: at(19, 17, 0)}, slots[3])
}

func TestDaySlots_ContainedEventDropped(t *testing.T) {
	slots := DaySlots(at(19, 9, 0), at(19, 17, 0), []*calendardomain.Event{
		event("Workshop", at(19, 10, 0), at(19, 12, 0)),
		event("Call", at(19, 10, 30), at(19, 11, 0)),
	}, 0)

	require.Len(t, slots, 3)
	assert.Equal(t, "Workshop", slots[1].EventTitle)
	assert.Equal(t, at(19, 12, 0), slots[2].Start)
}

func TestDaySlots_EventRunningPastWindowEnd(t *testing.T) {
	slots := DaySlots(at(19, 9, 0), at(19, 17, 0),
		[]*calendardomain.Event{event("Dinner", at(19, 16, 30), at(19, 18, 0))},
		15*time.Minute)

	require.Len(t, slots, 2)
	assert.Equal(t, at(19, 16, 15), slots[0].End)
	assert.Equal(t, at(19, 17, 0), slots[1].End)
	assert.True(t, slots[1].IsBusy)
}

func TestDaySlots_SlotsAreOrderedAndDisjoint(t *testing.T) {
	slots := DaySlots(at(19, 9, 0), at(19, 17, 0), []*calendardomain.Event{
		event("1", at(19, 9, 0), at(19, 9, 30)),
		event("2", at(19, 9, 40), at(19, 10, 10)),
		event("3", at(19, 13, 0), at(19, 14, 0)),
		event("4", at(19, 13, 30), at(19, 13, 45)),
	}, 10*time.Minute)

	for i := 1; i < len(slots); i++ {
		assert.False(t, slots[i].Start.Before(slots[i-1].End), "slot %d overlaps previous", i)
	}
	for _, s := range slots {
		assert.True(t, s.End.After(s.Start))
		assert.False(t, s.Start.Before(at(19, 9, 0)))
		assert.False(t, s.End.After(at(19, 17, 0)))
	}
}

func TestCalculator_SkipsNoMeetingDays(t *testing.T) {
	rules := officeRules()
	rules.NoMeetingDays = []int{0, 6}
	calc := NewCalculator(&fakeEvents{})

	// Saturday through Monday
	slots, err := calc.FreeBusy("u1", at(17, 0, 0), at(20, 0, 0), rules)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, time.Monday, slots[0].Start.Weekday())
}

func TestCalculator_UsesRulesTimezone(t *testing.T) {
	rules := officeRules()
	rules.Timezone = "America/New_York"
	calc := NewCalculator(&fakeEvents{})

	slots, err := calc.FreeBusy("u1", at(19, 12, 0), at(19, 23, 0), rules)
	require.NoError(t, err)
	require.Len(t, slots, 1)
	assert.Equal(t, at(19, 13, 0), slots[0].Start.UTC())
	assert.Equal(t, at(19, 21, 0), slots[0].End.UTC())
}
