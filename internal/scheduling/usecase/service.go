package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	actiondomain "nexus-backend/internal/action/domain"
	authdomain "nexus-backend/internal/auth/domain"
	"nexus-backend/internal/scheduling/domain"
)

const (
	defaultSearchDays      = 7
	defaultOfferCount      = 5
	defaultTimeboxDeadline = 3 * 24 * time.Hour
	defaultFocusMinutes    = 60
	focusReminderMinutes   = 15
)

// UserLookup resolves the workspace a user belongs to
type UserLookup interface {
	FindByID(id string) (*authdomain.User, error)
}

// Stager stages an action for approval
type Stager interface {
	Stage(ctx context.Context, userID string, req actiondomain.StageRequest) (*actiondomain.PendingAction, error)
}

// Service answers availability questions and stages scheduling actions
type Service struct {
	users    UserLookup
	resolver *Resolver
	calc     *Calculator
	stager   Stager
	now      func() time.Time
}

func NewService(users UserLookup, resolver *Resolver, calc *Calculator, stager Stager) *Service {
	return &Service{users: users, resolver: resolver, calc: calc, stager: stager, now: time.Now}
}

// RulesFor resolves the rules in force for a user
func (s *Service) RulesFor(userID string) (domain.Rules, error) {
	workspaceID := ""
	if s.users != nil {
		user, err := s.users.FindByID(userID)
		if err != nil {
			return domain.Rules{}, err
		}
		if user != nil {
			workspaceID = user.WorkspaceID
		}
	}
	return s.resolver.Resolve(userID, workspaceID)
}

func (s *Service) SaveUserRules(userID string, rules domain.Rules) (domain.Rules, error) {
	return s.resolver.SaveUserRules(userID, rules)
}

// FreeBusy computes the timeline for [start, end) with the user's rules
func (s *Service) FreeBusy(userID string, start, end time.Time) ([]domain.Slot, domain.Rules, error) {
	rules, err := s.RulesFor(userID)
	if err != nil {
		return nil, rules, err
	}
	slots, err := s.calc.FreeBusy(userID, start, end, rules)
	if err != nil {
		return nil, rules, err
	}
	return windowSlots(slots, start, end), rules, nil
}

// windowSlots keeps slots overlapping [from, to). Free slots are trimmed to the window;
// busy slots keep the event's real times.
func windowSlots(slots []domain.Slot, from, to time.Time) []domain.Slot {
	overlapping := make([]domain.Slot, 0, len(slots))
	for _, sl := range slots {
		if sl.End.After(from) && sl.Start.Before(to) {
			overlapping = append(overlapping, sl)
		}
	}
	return ClipSlots(overlapping, from, to)
}

// AvailabilityQuery describes a slot search. Zero fields take defaults.
type AvailabilityQuery struct {
	Start           *time.Time
	End             *time.Time
	DurationMinutes int
	Count           int
}

// AvailableTimes returns earliest-first offers that are not in the past
func (s *Service) AvailableTimes(userID string, q AvailabilityQuery) ([]domain.Offer, domain.Rules, error) {
	rules, err := s.RulesFor(userID)
	if err != nil {
		return nil, rules, err
	}
	now := s.now()
	start, end := s.searchWindow(q.Start, q.End, rules.Location(), now, defaultSearchDays*24*time.Hour)

	duration := time.Duration(q.DurationMinutes) * time.Minute
	if duration <= 0 {
		duration = rules.DefaultDuration()
	}
	count := q.Count
	if count <= 0 {
		count = defaultOfferCount
	}

	slots, err := s.calc.FreeBusy(userID, start, end, rules)
	if err != nil {
		return nil, rules, err
	}
	from := start
	if now.After(from) {
		from = now
	}
	return FindAvailableSlots(ClipSlots(slots, from, end), duration, count), rules, nil
}

// MeetingRequest asks for a meeting to be staged
type MeetingRequest struct {
	Title           string
	Description     string
	Attendees       []string
	DurationMinutes int
	Start           *time.Time
	End             *time.Time
	Location        string
	SourceThreadID  string
	Reason          string
}

// Proposal is the structured outcome of staging a scheduling action
type Proposal struct {
	Success      bool           `json:"success"`
	Error        string         `json:"error,omitempty"`
	ActionID     string         `json:"actionId,omitempty"`
	Summary      string         `json:"summary,omitempty"`
	Chosen       *domain.Offer  `json:"chosenSlot,omitempty"`
	Alternatives []domain.Offer `json:"alternatives,omitempty"`
}

// ProposeMeeting picks the earliest available slot and stages a calendar event for it.
// No slot is a structured failure, not an error.
func (s *Service) ProposeMeeting(ctx context.Context, userID string, req MeetingRequest) (*Proposal, error) {
	offers, rules, err := s.AvailableTimes(userID, AvailabilityQuery{
		Start:           req.Start,
		End:             req.End,
		DurationMinutes: req.DurationMinutes,
		Count:           defaultOfferCount,
	})
	if err != nil {
		return nil, err
	}
	if len(offers) == 0 {
		return &Proposal{Error: "No available slots found in the requested range. Try a wider date range."}, nil
	}

	chosen := offers[0]
	title := req.Title
	if title == "" {
		title = "Meeting"
	}
	loc := rules.Location()
	summary := fmt.Sprintf("Schedule %q on %s", title, chosen.Start.In(loc).Format("Mon Jan 2 15:04"))
	if len(req.Attendees) > 0 {
		summary += " with " + strings.Join(req.Attendees, ", ")
	}
	reason := req.Reason
	if reason == "" {
		reason = "Earliest slot that fits the requested duration within working hours"
	}

	action, err := s.stager.Stage(ctx, userID, actiondomain.StageRequest{
		Type:    actiondomain.ActionCreateCalendarEvent,
		Summary: summary,
		Details: actiondomain.CalendarEventDetails{
			Event: actiondomain.ProposedEvent{
				Title:          title,
				Description:    req.Description,
				Start:          chosen.Start,
				End:            chosen.End,
				Attendees:      req.Attendees,
				Location:       req.Location,
				ConferenceLink: rules.ConferenceLink,
			},
			Alternatives: offers,
		},
		SourceThreadID: req.SourceThreadID,
		AuditReason:    reason,
	})
	if err != nil {
		return nil, err
	}

	return &Proposal{
		Success:      true,
		ActionID:     action.ID,
		Summary:      summary,
		Chosen:       &chosen,
		Alternatives: offers,
	}, nil
}

// TimeboxRequest asks for focus time to be reserved for a task
type TimeboxRequest struct {
	Title           string
	Description     string
	SourceThreadID  string
	Deadline        *time.Time
	DurationMinutes int
	Priority        string
	Reason          string
}

// ProposeTimebox reserves the earliest slot before the deadline and stages a task plus
// its focus block as one action
func (s *Service) ProposeTimebox(ctx context.Context, userID string, req TimeboxRequest) (*Proposal, error) {
	now := s.now()
	deadline := now.Add(defaultTimeboxDeadline)
	if req.Deadline != nil && req.Deadline.After(now) {
		deadline = *req.Deadline
	}
	minutes := req.DurationMinutes
	if minutes <= 0 {
		minutes = defaultFocusMinutes
	}

	rules, err := s.RulesFor(userID)
	if err != nil {
		return nil, err
	}
	start, _ := s.searchWindow(nil, nil, rules.Location(), now, 0)
	slots, err := s.calc.FreeBusy(userID, start, deadline, rules)
	if err != nil {
		return nil, err
	}
	offers := FindAvailableSlots(ClipSlots(slots, now, deadline), time.Duration(minutes)*time.Minute, 1)
	if len(offers) == 0 {
		return &Proposal{Error: "No free time before the deadline. Try a later deadline or a shorter block."}, nil
	}

	chosen := offers[0]
	title := req.Title
	if title == "" {
		title = "Focus time"
	}
	summary := fmt.Sprintf("Block %d min for %q on %s", minutes, title, chosen.Start.In(rules.Location()).Format("Mon Jan 2 15:04"))
	reason := req.Reason
	if reason == "" {
		reason = "Task needs dedicated time before its deadline"
	}
	due := deadline

	action, err := s.stager.Stage(ctx, userID, actiondomain.StageRequest{
		Type:    actiondomain.ActionTimeboxTask,
		Summary: summary,
		Details: actiondomain.TimeboxDetails{
			Task: actiondomain.ProposedTask{
				Title:       title,
				Description: req.Description,
				DueDate:     &due,
				Priority:    req.Priority,
			},
			FocusBlock: actiondomain.ProposedEvent{
				Title:       "Focus: " + title,
				Description: req.Description,
				Start:       chosen.Start,
				End:         chosen.End,
			},
			ReminderMinutes: focusReminderMinutes,
		},
		SourceThreadID: req.SourceThreadID,
		AuditReason:    reason,
	})
	if err != nil {
		return nil, err
	}

	return &Proposal{Success: true, ActionID: action.ID, Summary: summary, Chosen: &chosen}, nil
}

// searchWindow defaults the start to today's midnight and the end to start+span
func (s *Service) searchWindow(start, end *time.Time, loc *time.Location, now time.Time, span time.Duration) (time.Time, time.Time) {
	var from time.Time
	if start != nil {
		from = *start
	} else {
		n := now.In(loc)
		from = time.Date(n.Year(), n.Month(), n.Day(), 0, 0, 0, 0, loc)
	}
	to := from.Add(span)
	if end != nil && end.After(from) {
		to = *end
	}
	return from, to
}
