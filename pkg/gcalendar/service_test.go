package gcalendar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/api/calendar/v3"
)

func TestConvertEvent(t *testing.T) {
	e, ok := convertEvent(&calendar.Event{
		Id:          "ev1",
		Summary:     "Design review",
		HangoutLink: "https://meet.google.com/abc",
		Start:       &calendar.EventDateTime{DateTime: "2026-10-19T10:00:00+02:00"},
		End:         &calendar.EventDateTime{DateTime: "2026-10-19T11:00:00+02:00"},
		Attendees: []*calendar.EventAttendee{
			{Email: "me@example.com", Self: true},
			{Email: "Ana@Example.com"},
			{Email: "room-1@resource.calendar.google.com", Resource: true},
		},
	})
	assert.True(t, ok)
	assert.Equal(t, "Design review", e.Title)
	assert.Equal(t, 8, e.Start.UTC().Hour())
	assert.Equal(t, []string{"ana@example.com"}, e.Attendees)
	assert.Equal(t, "https://meet.google.com/abc", e.ConferenceLink)
}

func TestConvertEventSkipsAllDayAndCancelled(t *testing.T) {
	_, ok := convertEvent(&calendar.Event{
		Start: &calendar.EventDateTime{Date: "2026-10-19"},
		End:   &calendar.EventDateTime{Date: "2026-10-20"},
	})
	assert.False(t, ok)

	_, ok = convertEvent(&calendar.Event{
		Status: "cancelled",
		Start:  &calendar.EventDateTime{DateTime: "2026-10-19T10:00:00Z"},
		End:    &calendar.EventDateTime{DateTime: "2026-10-19T11:00:00Z"},
	})
	assert.False(t, ok)
}
