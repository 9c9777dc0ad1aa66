package usecase

import (
	"context"
	"testing"
	"time"

	actiondomain "nexus-backend/internal/action/domain"
	authdomain "nexus-backend/internal/auth/domain"
	calendardomain "nexus-backend/internal/calendar/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeUsers map[string]*authdomain.User

func (f fakeUsers) FindByID(id string) (*authdomain.User, error) {
	return f[id], nil
}

type fakeStager struct {
	staged []actiondomain.StageRequest
}

func (f *fakeStager) Stage(ctx context.Context, userID string, req actiondomain.StageRequest) (*actiondomain.PendingAction, error) {
	f.staged = append(f.staged, req)
	return &actiondomain.PendingAction{ID: "act-1", UserID: userID, Type: req.Type, Status: actiondomain.StatusPending}, nil
}

func newTestService(now time.Time, events ...*calendardomain.Event) (*Service, *fakeStager) {
	stager := &fakeStager{}
	users := fakeUsers{"u1": {ID: "u1", WorkspaceID: "w1"}}
	svc := NewService(users, NewResolver(newFakeRules(), testDefaults()), NewCalculator(&fakeEvents{events: events}), stager)
	svc.now = func() time.Time { return now }
	return svc, stager
}

func TestProposeMeeting_PicksEarliestFittingSlot(t *testing.T) {
	svc, stager := newTestService(at(19, 8, 0), event("Standup", at(19, 10, 0), at(19, 10, 30)))

	proposal, err := svc.ProposeMeeting(context.Background(), "u1", MeetingRequest{
		Title:           "Intro call",
		Attendees:       []string{"ana@example.com"},
		DurationMinutes: 60,
	})
	require.NoError(t, err)
	require.True(t, proposal.Success)
	assert.Equal(t, "act-1", proposal.ActionID)
	assert.Equal(t, at(19, 10, 45), proposal.Chosen.Start)
	assert.Equal(t, at(19, 11, 45), proposal.Chosen.End)
	assert.Len(t, proposal.Alternatives, 5)

	require.Len(t, stager.staged, 1)
	req := stager.staged[0]
	assert.Equal(t, actiondomain.ActionCreateCalendarEvent, req.Type)
	details, ok := req.Details.(actiondomain.CalendarEventDetails)
	require.True(t, ok)
	assert.Equal(t, "Intro call", details.Event.Title)
	assert.Equal(t, []string{"ana@example.com"}, details.Event.Attendees)
	assert.NotEmpty(t, req.AuditReason)
}

func TestProposeMeeting_NeverOffersPastTime(t *testing.T) {
	svc, _ := newTestService(at(19, 9, 20), event("Standup", at(19, 10, 0), at(19, 10, 30)))

	proposal, err := svc.ProposeMeeting(context.Background(), "u1", MeetingRequest{DurationMinutes: 30})
	require.NoError(t, err)
	require.True(t, proposal.Success)
	assert.Equal(t, at(19, 10, 45), proposal.Chosen.Start)
	for _, o := range proposal.Alternatives {
		assert.False(t, o.Start.Before(at(19, 9, 20)))
	}
}

func TestProposeMeeting_NoSlotsIsStructuredFailure(t *testing.T) {
	svc, stager := newTestService(at(19, 8, 0))
	start, end := at(19, 18, 0), at(19, 23, 0)

	proposal, err := svc.ProposeMeeting(context.Background(), "u1", MeetingRequest{Start: &start, End: &end})
	require.NoError(t, err)
	assert.False(t, proposal.Success)
	assert.Contains(t, proposal.Error, "wider date range")
	assert.Empty(t, stager.staged)
}

func TestProposeTimebox_ReservesSlotBeforeDeadline(t *testing.T) {
	svc, stager := newTestService(at(19, 16, 30))
	deadline := at(20, 12, 0)

	proposal, err := svc.ProposeTimebox(context.Background(), "u1", TimeboxRequest{
		Title:          "Prepare quote",
		SourceThreadID: "t1",
		Deadline:       &deadline,
		Priority:       "high",
	})
	require.NoError(t, err)
	require.True(t, proposal.Success)
	assert.Equal(t, at(20, 9, 0), proposal.Chosen.Start)
	assert.Equal(t, at(20, 10, 0), proposal.Chosen.End)

	require.Len(t, stager.staged, 1)
	details, ok := stager.staged[0].Details.(actiondomain.TimeboxDetails)
	require.True(t, ok)
	assert.Equal(t, "Prepare quote", details.Task.Title)
	assert.Equal(t, deadline, *details.Task.DueDate)
	assert.Equal(t, "Focus: Prepare quote", details.FocusBlock.Title)
	assert.Equal(t, 15, details.ReminderMinutes)
	assert.Equal(t, "t1", stager.staged[0].SourceThreadID)
}

func TestProposeTimebox_DeadlineTooSoon(t *testing.T) {
	svc, stager := newTestService(at(19, 16, 30))
	deadline := at(19, 16, 50)

	proposal, err := svc.ProposeTimebox(context.Background(), "u1", TimeboxRequest{Title: "x", Deadline: &deadline})
	require.NoError(t, err)
	assert.False(t, proposal.Success)
	assert.Empty(t, stager.staged)
}

func TestAvailableTimes_DefaultsToRuleDuration(t *testing.T) {
	svc, _ := newTestService(at(19, 8, 0))

	offers, rules, err := svc.AvailableTimes("u1", AvailabilityQuery{Count: 2})
	require.NoError(t, err)
	require.Len(t, offers, 2)
	assert.Equal(t, rules.DefaultDuration(), offers[0].End.Sub(offers[0].Start))
	assert.Equal(t, at(19, 9, 0), offers[0].Start)
	assert.Equal(t, at(20, 9, 0), offers[1].Start)
}

func TestFreeBusy_ClipsToRequestedWindow(t *testing.T) {
	svc, _ := newTestService(at(19, 8, 0), event("Standup", at(19, 10, 0), at(19, 10, 30)))

	slots, _, err := svc.FreeBusy("u1", at(19, 10, 15), at(19, 16, 0))
	require.NoError(t, err)

	require.Len(t, slots, 2)
	assert.True(t, slots[0].IsBusy)
	assert.Equal(t, at(19, 10, 0), slots[0].Start)
	assert.Equal(t, at(19, 10, 30), slots[0].End)
	assert.False(t, slots[1].IsBusy)
	assert.Equal(t, at(19, 10, 45), slots[1].Start)
	assert.Equal(t, at(19, 16, 0), slots[1].End)
}
