package usecase

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	actiondomain "nexus-backend/internal/action/domain"
	authdomain "nexus-backend/internal/auth/domain"
	briefingdomain "nexus-backend/internal/briefing/domain"
	calendardomain "nexus-backend/internal/calendar/domain"
	classifierdomain "nexus-backend/internal/classifier/domain"
	inboxdomain "nexus-backend/internal/inbox/domain"
	inboxusecase "nexus-backend/internal/inbox/usecase"
	schedulingdomain "nexus-backend/internal/scheduling/domain"
	schedulingusecase "nexus-backend/internal/scheduling/usecase"
	taskdomain "nexus-backend/internal/task/domain"
	"nexus-backend/pkg/ai"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeInbox struct {
	latest *inboxdomain.Message
	query  string
}

func (f *fakeInbox) SearchThreads(userID, query string, unreadOnly bool, limit int) ([]inboxusecase.SearchHit, error) {
	f.query = query
	return []inboxusecase.SearchHit{{Thread: &inboxdomain.Thread{ID: "t1", Subject: "Invoice #1001", IsUnread: true}, Score: 0.9}}, nil
}

func (f *fakeInbox) GetThreadDetail(userID, threadID string) (*inboxusecase.ThreadDetail, error) {
	if threadID != "t1" {
		return nil, inboxusecase.ErrThreadNotFound
	}
	return &inboxusecase.ThreadDetail{
		Thread:   &inboxdomain.Thread{ID: "t1", Subject: "Invoice #1001"},
		Messages: []*inboxdomain.Message{{ID: "m1", FromEmail: "dana@acme.io", Body: "Please resend the invoice."}},
	}, nil
}

func (f *fakeInbox) LatestInbound(userID, threadID string) (*inboxdomain.Message, error) {
	return f.latest, nil
}

func (f *fakeInbox) FindContact(userID, emailOrName string) ([]*inboxdomain.Contact, error) {
	return nil, nil
}

func (f *fakeInbox) ListOrders(userID, customerEmail, orderNumber string, limit int) ([]*inboxdomain.Order, error) {
	return []*inboxdomain.Order{{OrderNumber: "1001", CustomerEmail: customerEmail}}, nil
}

type fakeTasks struct{ status *string }

func (f *fakeTasks) GetUserTasks(userID string, status *string, limit, offset int) ([]*taskdomain.Task, int64, error) {
	f.status = status
	return []*taskdomain.Task{{ID: "task-1", Title: "Send invoice"}}, 1, nil
}

type fakeEventList struct{ from, to time.Time }

func (f *fakeEventList) ListByStart(userID string, from, to time.Time) ([]*calendardomain.Event, error) {
	f.from, f.to = from, to
	return nil, nil
}

type fakeClassifier struct{ sender string }

func (f *fakeClassifier) Classify(ctx context.Context, subject, body, sender string) classifierdomain.Classification {
	f.sender = sender
	return classifierdomain.Classification{Intent: classifierdomain.IntentMeetingRequest, Confidence: 0.9}
}

type fakeScheduler struct {
	rules   schedulingdomain.Rules
	meeting schedulingusecase.MeetingRequest
	query   schedulingusecase.AvailabilityQuery
}

func (f *fakeScheduler) RulesFor(userID string) (schedulingdomain.Rules, error) {
	return f.rules, nil
}

func (f *fakeScheduler) AvailableTimes(userID string, q schedulingusecase.AvailabilityQuery) ([]schedulingdomain.Offer, schedulingdomain.Rules, error) {
	f.query = q
	return nil, f.rules, nil
}

func (f *fakeScheduler) ProposeMeeting(ctx context.Context, userID string, req schedulingusecase.MeetingRequest) (*schedulingusecase.Proposal, error) {
	f.meeting = req
	return &schedulingusecase.Proposal{Success: true, ActionID: "act-9"}, nil
}

func (f *fakeScheduler) ProposeTimebox(ctx context.Context, userID string, req schedulingusecase.TimeboxRequest) (*schedulingusecase.Proposal, error) {
	return &schedulingusecase.Proposal{Success: false, Error: "No free time before the deadline"}, nil
}

type fakeBriefer struct{ timezone string }

func (f *fakeBriefer) Generate(userID, timezone string) (*briefingdomain.DailyBriefing, error) {
	f.timezone = timezone
	return &briefingdomain.DailyBriefing{Date: "2026-10-19", Timezone: timezone}, nil
}

type fakeActions struct{ staged []actiondomain.StageRequest }

func (f *fakeActions) Stage(ctx context.Context, userID string, req actiondomain.StageRequest) (*actiondomain.PendingAction, error) {
	f.staged = append(f.staged, req)
	return &actiondomain.PendingAction{ID: "act-1", UserID: userID, Type: req.Type, Status: actiondomain.StatusPending, Summary: req.Summary}, nil
}

type toolFixture struct {
	inbox      *fakeInbox
	tasks      *fakeTasks
	events     *fakeEventList
	classifier *fakeClassifier
	scheduler  *fakeScheduler
	briefings  *fakeBriefer
	actions    *fakeActions
	executor   *Executor
}

func newToolFixture() *toolFixture {
	f := &toolFixture{
		inbox:      &fakeInbox{},
		tasks:      &fakeTasks{},
		events:     &fakeEventList{},
		classifier: &fakeClassifier{},
		scheduler:  &fakeScheduler{rules: schedulingdomain.Rules{Timezone: "Europe/Berlin", ConferenceLink: "https://meet.example/dana"}},
		briefings:  &fakeBriefer{},
		actions:    &fakeActions{},
	}
	box := NewToolbox(f.inbox, f.tasks, f.events, f.classifier, f.scheduler, f.briefings, f.actions)
	box.now = func() time.Time { return time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC) }
	f.executor = NewExecutor(box.Handlers())
	return f
}

func (f *toolFixture) run(t *testing.T, ctx context.Context, name ToolName, args string) map[string]any {
	t.Helper()
	out := f.executor.Execute(ctx, ai.ToolCall{ID: "c1", Name: string(name), Arguments: json.RawMessage(args)})
	var payload map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &payload), out)
	return payload
}

func userCtx() context.Context {
	return authdomain.WithUserID(context.Background(), "u1")
}

func TestSearchInboxTool(t *testing.T) {
	f := newToolFixture()
	out := f.run(t, userCtx(), ToolSearchInbox, `{"query":"invoce"}`)
	assert.Equal(t, "invoce", f.inbox.query)
	assert.EqualValues(t, 1, out["count"])
}

func TestThreadDetailTool(t *testing.T) {
	f := newToolFixture()
	out := f.run(t, userCtx(), ToolGetThreadDetail, `{"threadId":"t1"}`)
	assert.Len(t, out["messages"], 1)

	out = f.run(t, userCtx(), ToolGetThreadDetail, `{"threadId":"nope"}`)
	assert.Equal(t, "Thread not found", out["error"])

	out = f.run(t, userCtx(), ToolGetThreadDetail, `{}`)
	assert.Equal(t, "threadId is required", out["error"])
}

func TestOrdersAndContactsTools(t *testing.T) {
	f := newToolFixture()
	out := f.run(t, userCtx(), ToolGetShopifyOrders, `{}`)
	assert.Contains(t, out, "error")

	out = f.run(t, userCtx(), ToolGetShopifyOrders, `{"customerEmail":"dana@acme.io"}`)
	assert.EqualValues(t, 1, out["count"])

	out = f.run(t, userCtx(), ToolGetContactInfo, `{"query":"nobody"}`)
	assert.Equal(t, "No matching contact", out["message"])
}

func TestListTasksValidatesStatus(t *testing.T) {
	f := newToolFixture()
	out := f.run(t, userCtx(), ToolListTasks, `{"status":"done-ish"}`)
	assert.Contains(t, out["error"], "unknown status")

	out = f.run(t, userCtx(), ToolListTasks, `{"status":"pending"}`)
	require.NotNil(t, f.tasks.status)
	assert.Equal(t, "pending", *f.tasks.status)
	assert.EqualValues(t, 1, out["total"])
}

func TestCreateTaskStagesInsteadOfWriting(t *testing.T) {
	f := newToolFixture()
	out := f.run(t, userCtx(), ToolCreateTask, `{"title":"Send invoice","dueDate":"2026-10-23 17:00","priority":"HIGH","threadId":"t1"}`)

	assert.Equal(t, true, out["success"])
	assert.Equal(t, "pending", out["status"])
	require.Len(t, f.actions.staged, 1)
	req := f.actions.staged[0]
	assert.Equal(t, actiondomain.ActionCreateTask, req.Type)
	assert.Equal(t, "t1", req.SourceThreadID)

	details := req.Details.(actiondomain.TaskDetails)
	assert.Equal(t, "high", details.Task.Priority)
	berlin, _ := time.LoadLocation("Europe/Berlin")
	require.NotNil(t, details.Task.DueDate)
	assert.True(t, time.Date(2026, 10, 23, 17, 0, 0, 0, berlin).Equal(*details.Task.DueDate))
}

func TestCalendarEventsDefaultsToNextWeek(t *testing.T) {
	f := newToolFixture()
	ctx := WithTimezone(userCtx(), "America/New_York")
	out := f.run(t, ctx, ToolGetCalendarEvents, `{}`)

	ny, _ := time.LoadLocation("America/New_York")
	assert.True(t, time.Date(2026, 10, 19, 0, 0, 0, 0, ny).Equal(f.events.from))
	assert.True(t, time.Date(2026, 10, 26, 0, 0, 0, 0, ny).Equal(f.events.to))
	assert.Equal(t, "America/New_York", out["timezone"])
}

func TestClassifyEmailIntentUsesLatestInbound(t *testing.T) {
	f := newToolFixture()
	out := f.run(t, userCtx(), ToolClassifyEmailIntent, `{"threadId":"t1"}`)
	assert.Equal(t, "No inbound message in thread", out["error"])

	f.inbox.latest = &inboxdomain.Message{FromName: "Dana", FromEmail: "dana@acme.io", Subject: "Meet?", Body: "Can we meet Tuesday?"}
	out = f.run(t, userCtx(), ToolClassifyEmailIntent, `{"threadId":"t1"}`)
	assert.Equal(t, "Dana <dana@acme.io>", f.classifier.sender)
	assert.Equal(t, true, out["surface"])
}

func TestFindAvailableTimesReportsEmptyResult(t *testing.T) {
	f := newToolFixture()
	out := f.run(t, userCtx(), ToolFindAvailableTimes, `{"durationMinutes":45,"endDate":"2026-10-21"}`)

	assert.Equal(t, 45, f.scheduler.query.DurationMinutes)
	require.NotNil(t, f.scheduler.query.End)
	berlin, _ := time.LoadLocation("Europe/Berlin")
	assert.True(t, time.Date(2026, 10, 22, 0, 0, 0, 0, berlin).Equal(*f.scheduler.query.End))
	assert.Contains(t, out["message"], "wider date range")
}

func TestScheduleMeetingPassesRequest(t *testing.T) {
	f := newToolFixture()
	out := f.run(t, userCtx(), ToolScheduleMeeting, `{"title":"Renewal call","attendees":"dana@acme.io","durationMinutes":60,"threadId":"t1"}`)

	assert.Equal(t, "act-9", out["actionId"])
	assert.Equal(t, []string{"dana@acme.io"}, f.scheduler.meeting.Attendees)
	assert.Equal(t, 60, f.scheduler.meeting.DurationMinutes)
	assert.Nil(t, f.scheduler.meeting.Start)

	out = f.run(t, userCtx(), ToolScheduleMeeting, `{"startDate":"2026-10-20"}`)
	assert.Equal(t, "title is required", out["error"])
}

func TestTimeboxFailureIsStructured(t *testing.T) {
	f := newToolFixture()
	out := f.run(t, userCtx(), ToolTimeboxEmailTask, `{"title":"Q3 report","deadline":"2026-10-20"}`)
	assert.Equal(t, false, out["success"])
	assert.Equal(t, "No free time before the deadline", out["error"])
}

func TestCreateCalendarEventStagesWithDefaults(t *testing.T) {
	f := newToolFixture()
	out := f.run(t, userCtx(), ToolCreateCalendarEvent, `{"title":"Lunch","start":"2026-10-20T12:00:00Z"}`)
	assert.Equal(t, "act-1", out["actionId"])

	require.Len(t, f.actions.staged, 1)
	details := f.actions.staged[0].Details.(actiondomain.CalendarEventDetails)
	assert.Equal(t, 30*time.Minute, details.Event.End.Sub(details.Event.Start))
	assert.Equal(t, "https://meet.example/dana", details.Event.ConferenceLink)

	out = f.run(t, userCtx(), ToolCreateCalendarEvent, `{"title":"Lunch","start":"2026-10-20T12:00:00Z","end":"2026-10-20T11:00:00Z"}`)
	assert.Equal(t, "end must be after start", out["error"])
	assert.Len(t, f.actions.staged, 1)
}

func TestDailyBriefingTimezone(t *testing.T) {
	f := newToolFixture()
	f.run(t, WithTimezone(userCtx(), "Asia/Tokyo"), ToolGetDailyBriefing, `{}`)
	assert.Equal(t, "Asia/Tokyo", f.briefings.timezone)

	f.run(t, userCtx(), ToolGetDailyBriefing, `{"timezone":"UTC"}`)
	assert.Equal(t, "UTC", f.briefings.timezone)
}
