package usecase

import (
	"fmt"
	"math"
	"strings"
	"time"

	"nexus-backend/internal/briefing/domain"
	calendardomain "nexus-backend/internal/calendar/domain"
	inboxdomain "nexus-backend/internal/inbox/domain"
	schedulingdomain "nexus-backend/internal/scheduling/domain"
)

const (
	maxMeetingPreps  = 5
	maxTriageActions = 5
)

type EventSource interface {
	ListByStart(userID string, from, to time.Time) ([]*calendardomain.Event, error)
}

type ThreadSource interface {
	ListThreads(userID string, filter inboxdomain.ThreadFilter) ([]*inboxdomain.Thread, error)
}

type RulesSource interface {
	RulesFor(userID string) (schedulingdomain.Rules, error)
}

// Generator aggregates today's calendar and inbox. It performs no writes.
type Generator struct {
	events  EventSource
	threads ThreadSource
	rules   RulesSource
	now     func() time.Time
}

func NewGenerator(events EventSource, threads ThreadSource, rules RulesSource) *Generator {
	return &Generator{events: events, threads: threads, rules: rules, now: time.Now}
}

// Generate builds the briefing for "today" in timezone, or in the user's rules timezone when blank
func (g *Generator) Generate(userID, timezone string) (*domain.DailyBriefing, error) {
	rules, err := g.rules.RulesFor(userID)
	if err != nil {
		return nil, err
	}
	if timezone != "" {
		if _, err := time.LoadLocation(timezone); err == nil {
			rules.Timezone = timezone
		}
	}
	loc := rules.Location()

	now := g.now().In(loc)
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)

	events, err := g.events.ListByStart(userID, midnight, midnight.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	threads, err := g.threads.ListThreads(userID, inboxdomain.ThreadFilter{Since: &midnight})
	if err != nil {
		return nil, err
	}

	return &domain.DailyBriefing{
		Date:            midnight.Format("2006-01-02"),
		Timezone:        loc.String(),
		MeetingPreps:    meetingPreps(events, threads),
		TriageActions:   triageActions(threads),
		CalendarDensity: calendarDensity(events, rules.WorkdayHours()),
		InboxSummary:    inboxSummary(threads),
	}, nil
}

func calendarDensity(events []*calendardomain.Event, workday float64) domain.CalendarDensity {
	var busy time.Duration
	for _, e := range events {
		if e.EndTime.After(e.StartTime) {
			busy += e.EndTime.Sub(e.StartTime)
		}
	}
	total := roundTenth(busy.Hours())
	return domain.CalendarDensity{
		TotalMeetings: len(events),
		TotalHours:    total,
		FreeHours:     roundTenth(math.Max(0, workday-total)),
		WorkdayHours:  workday,
	}
}

func inboxSummary(threads []*inboxdomain.Thread) domain.InboxSummary {
	var s domain.InboxSummary
	for _, t := range threads {
		if t.Status == inboxdomain.ThreadStatusArchived {
			continue
		}
		if t.IsUnread {
			s.Unread++
			if !t.HasDraft {
				s.NeedsReply++
			}
		}
		if t.Priority.IsElevated() {
			s.Urgent++
		}
		if t.HasDraft {
			s.AutoHandled++
		}
	}
	return s
}

func triageActions(threads []*inboxdomain.Thread) []domain.TriageAction {
	actions := []domain.TriageAction{}
	for _, t := range threads {
		if t.Status == inboxdomain.ThreadStatusArchived || !t.IsUnread || !t.Priority.IsElevated() {
			continue
		}
		actions = append(actions, domain.TriageAction{
			ThreadID: t.ID,
			Subject:  t.Subject,
			Priority: string(t.Priority),
			Reason:   fmt.Sprintf("Unread %s-priority thread, last activity %s", t.Priority, t.LastMessageAt.Format("15:04")),
		})
		if len(actions) == maxTriageActions {
			break
		}
	}
	return actions
}

func meetingPreps(events []*calendardomain.Event, threads []*inboxdomain.Thread) []domain.MeetingPrep {
	byEmail := map[string][]*inboxdomain.Thread{}
	for _, t := range threads {
		if t.Status == inboxdomain.ThreadStatusArchived {
			continue
		}
		seen := map[string]bool{}
		for _, p := range t.Participants {
			email := normalizeEmail(p)
			if email == "" || seen[email] {
				continue
			}
			seen[email] = true
			byEmail[email] = append(byEmail[email], t)
		}
	}

	preps := []domain.MeetingPrep{}
	for i, e := range events {
		if i == maxMeetingPreps {
			break
		}
		var related []string
		var subjects []string
		seen := map[string]bool{}
		for _, a := range e.Attendees {
			for _, t := range byEmail[normalizeEmail(a)] {
				if seen[t.ID] {
					continue
				}
				seen[t.ID] = true
				related = append(related, t.ID)
				subjects = append(subjects, t.Subject)
			}
		}

		summary := "No recent threads with these attendees"
		if len(related) > 0 {
			summary = fmt.Sprintf("%d related thread(s): %s", len(related), strings.Join(subjects, "; "))
		}
		preps = append(preps, domain.MeetingPrep{
			EventID:          e.ID,
			Title:            e.Title,
			Start:            e.StartTime,
			End:              e.EndTime,
			Attendees:        append([]string{}, e.Attendees...),
			RelatedThreadIDs: append([]string{}, related...),
			Context:          summary,
		})
	}
	return preps
}

// normalizeEmail accepts "Name <addr>" or a bare address
func normalizeEmail(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.LastIndex(s, "<"); i >= 0 {
		if j := strings.LastIndex(s, ">"); j > i {
			s = s[i+1 : j]
		}
	}
	return strings.ToLower(strings.TrimSpace(s))
}

func roundTenth(v float64) float64 {
	return math.Round(v*10) / 10
}
