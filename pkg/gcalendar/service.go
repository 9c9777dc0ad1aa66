package gcalendar

import (
	"context"
	"fmt"
	"strings"
	"time"

	"nexus-backend/pkg/googleauth"

	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// Event is a timed event read from Google Calendar
type Event struct {
	ExternalID     string
	Title          string
	Description    string
	Start          time.Time
	End            time.Time
	Location       string
	ConferenceLink string
	Attendees      []string
}

// Service reads a user's primary Google calendar
type Service struct {
	auth googleauth.Config
}

func NewService(clientID, clientSecret string) *Service {
	return &Service{auth: googleauth.Config{ClientID: clientID, ClientSecret: clientSecret}}
}

func (s *Service) GetCalendarService(ctx context.Context, accessToken, refreshToken string, onTokenRefresh googleauth.TokenUpdateFunc) (*calendar.Service, error) {
	client := s.auth.HTTPClient(ctx, accessToken, refreshToken, onTokenRefresh)
	srv, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Calendar service: %v", err)
	}
	return srv, nil
}

// ListEvents returns timed, non-cancelled events in [from, to) ordered by start.
// All-day events are skipped.
func (s *Service) ListEvents(ctx context.Context, accessToken, refreshToken string, from, to time.Time, limit int, onTokenRefresh googleauth.TokenUpdateFunc) ([]Event, error) {
	srv, err := s.GetCalendarService(ctx, accessToken, refreshToken, onTokenRefresh)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 250
	}

	resp, err := srv.Events.List("primary").
		TimeMin(from.Format(time.RFC3339)).
		TimeMax(to.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(int64(limit)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("unable to list events: %v", err)
	}

	events := make([]Event, 0, len(resp.Items))
	for _, item := range resp.Items {
		if e, ok := convertEvent(item); ok {
			events = append(events, e)
		}
	}
	return events, nil
}

func convertEvent(item *calendar.Event) (Event, bool) {
	if item.Status == "cancelled" || item.Start == nil || item.End == nil || item.Start.DateTime == "" {
		return Event{}, false
	}
	start, err := time.Parse(time.RFC3339, item.Start.DateTime)
	if err != nil {
		return Event{}, false
	}
	end, err := time.Parse(time.RFC3339, item.End.DateTime)
	if err != nil || !end.After(start) {
		return Event{}, false
	}

	var attendees []string
	for _, a := range item.Attendees {
		if a.Self || a.Resource || a.Email == "" {
			continue
		}
		attendees = append(attendees, strings.ToLower(a.Email))
	}

	title := item.Summary
	if title == "" {
		title = "(no title)"
	}
	return Event{
		ExternalID:     item.Id,
		Title:          title,
		Description:    item.Description,
		Start:          start,
		End:            end,
		Location:       item.Location,
		ConferenceLink: item.HangoutLink,
		Attendees:      attendees,
	}, true
}
