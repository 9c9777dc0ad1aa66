package usecase

import (
	"sort"
	"time"

	calendardomain "nexus-backend/internal/calendar/domain"
	"nexus-backend/internal/scheduling/domain"
)

// EventSource lists events whose start falls in [from, to), sorted by start
type EventSource interface {
	ListByStart(userID string, from, to time.Time) ([]*calendardomain.Event, error)
}

// Calculator turns calendar events into a per-day free/busy timeline
type Calculator struct {
	events EventSource
}

func NewCalculator(events EventSource) *Calculator {
	return &Calculator{events: events}
}

// FreeBusy computes the timeline for every calendar day in [start, end), in the
// rules' timezone. Days listed in NoMeetingDays are skipped entirely.
func (c *Calculator) FreeBusy(userID string, start, end time.Time, rules domain.Rules) ([]domain.Slot, error) {
	loc := rules.Location()
	var slots []domain.Slot

	s := start.In(loc)
	for day := time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, loc); day.Before(end); day = day.AddDate(0, 0, 1) {
		if rules.IsNoMeetingDay(day.Weekday()) {
			continue
		}
		windowStart, windowEnd, err := rules.WorkingWindow(day)
		if err != nil {
			return nil, err
		}

		events, err := c.events.ListByStart(userID, windowStart, windowEnd)
		if err != nil {
			return nil, err
		}
		slots = append(slots, DaySlots(windowStart, windowEnd, events, rules.Buffer())...)
	}
	return slots, nil
}

// DaySlots walks one day's events with a cursor starting at the window start.
// The buffer before and after each event belongs to neither a free nor a busy slot.
// Overlapping events are reported as adjacent busy slots; events fully covered by an
// earlier one are dropped. Busy time never extends past the window end.
func DaySlots(windowStart, windowEnd time.Time, events []*calendardomain.Event, buffer time.Duration) []domain.Slot {
	sorted := make([]*calendardomain.Event, 0, len(events))
	for _, e := range events {
		if e.StartTime.Before(windowStart) || !e.StartTime.Before(windowEnd) || !e.EndTime.After(e.StartTime) {
			continue
		}
		sorted = append(sorted, e)
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].StartTime.Before(sorted[j].StartTime)
	})

	var slots []domain.Slot
	cursor := windowStart
	busyEnd := windowStart

	for _, e := range sorted {
		if freeEnd := e.StartTime.Add(-buffer); cursor.Before(freeEnd) {
			slots = append(slots, domain.Slot{Start: cursor, End: freeEnd})
		}

		start := e.StartTime
		if start.Before(busyEnd) {
			start = busyEnd
		}
		end := e.EndTime
		if end.After(windowEnd) {
			end = windowEnd
		}
		if end.After(start) {
			slots = append(slots, domain.Slot{Start: start, End: end, IsBusy: true, EventTitle: e.Title})
			busyEnd = end
		}

		if next := e.EndTime.Add(buffer); next.After(cursor) {
			cursor = next
		}
	}

	if cursor.Before(windowEnd) {
		slots = append(slots, domain.Slot{Start: cursor, End: windowEnd})
	}
	return slots
}
