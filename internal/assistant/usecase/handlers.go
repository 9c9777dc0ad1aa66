package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
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
)

type InboxReader interface {
	SearchThreads(userID, query string, unreadOnly bool, limit int) ([]inboxusecase.SearchHit, error)
	GetThreadDetail(userID, threadID string) (*inboxusecase.ThreadDetail, error)
	LatestInbound(userID, threadID string) (*inboxdomain.Message, error)
	FindContact(userID, emailOrName string) ([]*inboxdomain.Contact, error)
	ListOrders(userID, customerEmail, orderNumber string, limit int) ([]*inboxdomain.Order, error)
}

type TaskLister interface {
	GetUserTasks(userID string, status *string, limit, offset int) ([]*taskdomain.Task, int64, error)
}

type EventLister interface {
	ListByStart(userID string, from, to time.Time) ([]*calendardomain.Event, error)
}

type IntentClassifier interface {
	Classify(ctx context.Context, subject, body, sender string) classifierdomain.Classification
}

type Scheduler interface {
	RulesFor(userID string) (schedulingdomain.Rules, error)
	AvailableTimes(userID string, q schedulingusecase.AvailabilityQuery) ([]schedulingdomain.Offer, schedulingdomain.Rules, error)
	ProposeMeeting(ctx context.Context, userID string, req schedulingusecase.MeetingRequest) (*schedulingusecase.Proposal, error)
	ProposeTimebox(ctx context.Context, userID string, req schedulingusecase.TimeboxRequest) (*schedulingusecase.Proposal, error)
}

type Briefer interface {
	Generate(userID, timezone string) (*briefingdomain.DailyBriefing, error)
}

type Stager interface {
	Stage(ctx context.Context, userID string, req actiondomain.StageRequest) (*actiondomain.PendingAction, error)
}

const (
	maxBodyRunes        = 4000
	defaultEventMinutes = 30
)

// Toolbox holds the collaborators behind every tool handler
type Toolbox struct {
	inbox      InboxReader
	tasks      TaskLister
	events     EventLister
	classifier IntentClassifier
	scheduler  Scheduler
	briefings  Briefer
	actions    Stager
	now        func() time.Time
}

func NewToolbox(inbox InboxReader, tasks TaskLister, events EventLister, classifier IntentClassifier, scheduler Scheduler, briefings Briefer, actions Stager) *Toolbox {
	return &Toolbox{
		inbox:      inbox,
		tasks:      tasks,
		events:     events,
		classifier: classifier,
		scheduler:  scheduler,
		briefings:  briefings,
		actions:    actions,
		now:        time.Now,
	}
}

// Handlers binds every catalog entry to its implementation
func (t *Toolbox) Handlers() map[ToolName]Handler {
	return map[ToolName]Handler{
		ToolSearchInbox:         authed(t.searchInbox),
		ToolGetThreadDetail:     authed(t.getThreadDetail),
		ToolGetShopifyOrders:    authed(t.getShopifyOrders),
		ToolGetContactInfo:      authed(t.getContactInfo),
		ToolListTasks:           authed(t.listTasks),
		ToolCreateTask:          authed(t.createTask),
		ToolGetCalendarEvents:   authed(t.getCalendarEvents),
		ToolClassifyEmailIntent: authed(t.classifyEmailIntent),
		ToolFindAvailableTimes:  authed(t.findAvailableTimes),
		ToolScheduleMeeting:     authed(t.scheduleMeeting),
		ToolTimeboxEmailTask:    authed(t.timeboxEmailTask),
		ToolCreateCalendarEvent: authed(t.createCalendarEvent),
		ToolGetDailyBriefing:    authed(t.getDailyBriefing),
	}
}

type userHandler func(ctx context.Context, userID string, args Args) string

// authed resolves the caller from ctx on every invocation
func authed(h userHandler) Handler {
	return func(ctx context.Context, args Args) string {
		userID, ok := authdomain.UserIDFromContext(ctx)
		if !ok {
			return errorPayload("Not authenticated")
		}
		return h(ctx, userID, args)
	}
}

func failure(tool string, err error) string {
	log.Printf("[Assistant] %s failed: %v", tool, err)
	return errorPayload(err.Error())
}

// location prefers the request timezone, then the user's scheduling rules
func (t *Toolbox) location(ctx context.Context, userID string) (*time.Location, schedulingdomain.Rules) {
	rules, err := t.scheduler.RulesFor(userID)
	if err != nil {
		log.Printf("[Assistant] Failed to load scheduling rules for %s: %v", userID, err)
	}
	if tz, ok := TimezoneFromContext(ctx); ok {
		if loc, err := time.LoadLocation(tz); err == nil {
			return loc, rules
		}
	}
	return rules.Location(), rules
}

// timeRange parses startDate/endDate. A date-only end covers that whole day.
func timeRange(args Args, loc *time.Location) (*time.Time, *time.Time, error) {
	start, err := args.Time("startDate", loc)
	if err != nil {
		return nil, nil, err
	}
	end, err := args.Time("endDate", loc)
	if err != nil {
		return nil, nil, err
	}
	if end != nil && isDateOnly(args.String("endDate")) {
		next := end.AddDate(0, 0, 1)
		end = &next
	}
	if start != nil && end != nil && !end.After(*start) {
		return nil, nil, errors.New("endDate must be after startDate")
	}
	return start, end, nil
}

func isDateOnly(s string) bool {
	return len(s) == len("2006-01-02") && !strings.ContainsAny(s, "T ")
}

type threadView struct {
	ID            string    `json:"id"`
	Subject       string    `json:"subject"`
	Snippet       string    `json:"snippet"`
	Participants  []string  `json:"participants"`
	Priority      string    `json:"priority"`
	IsUnread      bool      `json:"isUnread"`
	HasDraft      bool      `json:"hasDraft"`
	LastMessageAt time.Time `json:"lastMessageAt"`
}

func toThreadView(th *inboxdomain.Thread) threadView {
	return threadView{
		ID:            th.ID,
		Subject:       th.Subject,
		Snippet:       th.Snippet,
		Participants:  th.Participants,
		Priority:      string(th.Priority),
		IsUnread:      th.IsUnread,
		HasDraft:      th.HasDraft,
		LastMessageAt: th.LastMessageAt,
	}
}

func (t *Toolbox) searchInbox(ctx context.Context, userID string, args Args) string {
	limit := clamp(args.Int("limit"), 10, 50)
	hits, err := t.inbox.SearchThreads(userID, args.String("query"), args.Bool("unreadOnly"), limit)
	if err != nil {
		return failure("search_inbox", err)
	}
	threads := make([]threadView, 0, len(hits))
	for _, h := range hits {
		threads = append(threads, toThreadView(h.Thread))
	}
	return encode(map[string]any{"threads": threads, "count": len(threads)})
}

type messageView struct {
	ID        string    `json:"id"`
	From      string    `json:"from"`
	To        []string  `json:"to"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	Direction string    `json:"direction"`
	SentAt    time.Time `json:"sentAt"`
}

func (t *Toolbox) getThreadDetail(ctx context.Context, userID string, args Args) string {
	threadID := args.String("threadId")
	if threadID == "" {
		return errorPayload("threadId is required")
	}
	detail, err := t.inbox.GetThreadDetail(userID, threadID)
	if errors.Is(err, inboxusecase.ErrThreadNotFound) {
		return errorPayload("Thread not found")
	}
	if err != nil {
		return failure("get_thread_detail", err)
	}

	messages := make([]messageView, 0, len(detail.Messages))
	for _, m := range detail.Messages {
		messages = append(messages, messageView{
			ID:        m.ID,
			From:      sender(m),
			To:        m.To,
			Subject:   m.Subject,
			Body:      truncate(m.Body, maxBodyRunes),
			Direction: string(m.Direction),
			SentAt:    m.SentAt,
		})
	}
	return encode(map[string]any{
		"thread":   toThreadView(detail.Thread),
		"messages": messages,
		"drafts":   detail.Drafts,
		"contact":  detail.Contact,
	})
}

func (t *Toolbox) getShopifyOrders(ctx context.Context, userID string, args Args) string {
	email, number := args.String("customerEmail"), args.String("orderNumber")
	if email == "" && number == "" {
		return errorPayload("customerEmail or orderNumber is required")
	}
	orders, err := t.inbox.ListOrders(userID, email, number, clamp(args.Int("limit"), 10, 50))
	if err != nil {
		return failure("get_shopify_orders", err)
	}
	return encode(map[string]any{"orders": orders, "count": len(orders)})
}

func (t *Toolbox) getContactInfo(ctx context.Context, userID string, args Args) string {
	query := args.String("query")
	if query == "" {
		return errorPayload("query is required")
	}
	contacts, err := t.inbox.FindContact(userID, query)
	if err != nil {
		return failure("get_contact_info", err)
	}
	if len(contacts) == 0 {
		return encode(map[string]any{"contacts": []any{}, "message": "No matching contact"})
	}
	return encode(map[string]any{"contacts": contacts})
}

func (t *Toolbox) listTasks(ctx context.Context, userID string, args Args) string {
	var status *string
	if s := args.String("status"); s != "" {
		switch taskdomain.TaskStatus(s) {
		case taskdomain.TaskStatusPending, taskdomain.TaskStatusInProgress, taskdomain.TaskStatusCompleted:
			status = &s
		default:
			return errorPayload(fmt.Sprintf("unknown status %q", s))
		}
	}
	tasks, total, err := t.tasks.GetUserTasks(userID, status, clamp(args.Int("limit"), 20, 100), 0)
	if err != nil {
		return failure("list_tasks", err)
	}
	return encode(map[string]any{"tasks": tasks, "total": total})
}

func (t *Toolbox) createTask(ctx context.Context, userID string, args Args) string {
	title := args.String("title")
	if title == "" {
		return errorPayload("title is required")
	}
	loc, _ := t.location(ctx, userID)
	due, err := args.Time("dueDate", loc)
	if err != nil {
		return errorPayload(err.Error())
	}
	reminder, err := args.Time("reminderAt", loc)
	if err != nil {
		return errorPayload(err.Error())
	}

	summary := "Create task: " + title
	if due != nil {
		summary += " (due " + due.In(loc).Format("Mon Jan 2 15:04") + ")"
	}
	action, err := t.actions.Stage(ctx, userID, actiondomain.StageRequest{
		Type:    actiondomain.ActionCreateTask,
		Summary: summary,
		Details: actiondomain.TaskDetails{
			Task: actiondomain.ProposedTask{
				Title:       title,
				Description: args.String("description"),
				DueDate:     due,
				Priority:    string(taskdomain.ParsePriority(strings.ToLower(args.String("priority")))),
			},
			ReminderAt: reminder,
		},
		SourceThreadID: args.String("threadId"),
		AuditReason:    "Requested in conversation",
	})
	if err != nil {
		return failure("create_task", err)
	}
	return staged(action, "The task will be created once you approve it.")
}

type eventView struct {
	ID             string    `json:"id"`
	Title          string    `json:"title"`
	Start          time.Time `json:"start"`
	End            time.Time `json:"end"`
	Location       string    `json:"location,omitempty"`
	ConferenceLink string    `json:"conferenceLink,omitempty"`
	Attendees      []string  `json:"attendees,omitempty"`
	TaskID         string    `json:"taskId,omitempty"`
}

func (t *Toolbox) getCalendarEvents(ctx context.Context, userID string, args Args) string {
	loc, _ := t.location(ctx, userID)
	start, end, err := timeRange(args, loc)
	if err != nil {
		return errorPayload(err.Error())
	}
	if start == nil {
		now := t.now().In(loc)
		midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
		start = &midnight
	}
	if end == nil {
		week := start.AddDate(0, 0, 7)
		end = &week
	}

	events, err := t.events.ListByStart(userID, *start, *end)
	if err != nil {
		return failure("get_calendar_events", err)
	}
	views := make([]eventView, 0, len(events))
	for _, e := range events {
		views = append(views, eventView{
			ID:             e.ID,
			Title:          e.Title,
			Start:          e.StartTime.In(loc),
			End:            e.EndTime.In(loc),
			Location:       e.Location,
			ConferenceLink: e.ConferenceLink,
			Attendees:      e.Attendees,
			TaskID:         e.TaskID,
		})
	}
	return encode(map[string]any{"events": views, "timezone": loc.String()})
}

func (t *Toolbox) classifyEmailIntent(ctx context.Context, userID string, args Args) string {
	threadID := args.String("threadId")
	if threadID == "" {
		return errorPayload("threadId is required")
	}
	msg, err := t.inbox.LatestInbound(userID, threadID)
	if err != nil {
		return failure("classify_email_intent", err)
	}
	if msg == nil {
		return errorPayload("No inbound message in thread")
	}
	c := t.classifier.Classify(ctx, msg.Subject, msg.Body, sender(msg))
	return encode(map[string]any{
		"threadId":       threadID,
		"classification": c,
		"surface":        c.ShouldSurface(),
	})
}

func (t *Toolbox) findAvailableTimes(ctx context.Context, userID string, args Args) string {
	loc, _ := t.location(ctx, userID)
	start, end, err := timeRange(args, loc)
	if err != nil {
		return errorPayload(err.Error())
	}
	offers, rules, err := t.scheduler.AvailableTimes(userID, schedulingusecase.AvailabilityQuery{
		Start:           start,
		End:             end,
		DurationMinutes: args.Int("durationMinutes"),
		Count:           clamp(args.Int("count"), 0, 20),
	})
	if err != nil {
		return failure("find_available_times", err)
	}

	slots := make([]schedulingdomain.Offer, 0, len(offers))
	for _, o := range offers {
		slots = append(slots, schedulingdomain.Offer{Start: o.Start.In(loc), End: o.End.In(loc)})
	}
	result := map[string]any{"slots": slots, "timezone": loc.String(), "rulesTimezone": rules.Timezone}
	if len(slots) == 0 {
		result["message"] = "No available slots found in the requested range. Try a wider date range."
	}
	return encode(result)
}

func (t *Toolbox) scheduleMeeting(ctx context.Context, userID string, args Args) string {
	title := args.String("title")
	if title == "" {
		return errorPayload("title is required")
	}
	loc, _ := t.location(ctx, userID)
	start, end, err := timeRange(args, loc)
	if err != nil {
		return errorPayload(err.Error())
	}
	proposal, err := t.scheduler.ProposeMeeting(ctx, userID, schedulingusecase.MeetingRequest{
		Title:           title,
		Description:     args.String("description"),
		Attendees:       args.Strings("attendees"),
		DurationMinutes: args.Int("durationMinutes"),
		Start:           start,
		End:             end,
		Location:        args.String("location"),
		SourceThreadID:  args.String("threadId"),
		Reason:          args.String("reason"),
	})
	if err != nil {
		return failure("schedule_meeting", err)
	}
	return encode(proposal)
}

func (t *Toolbox) timeboxEmailTask(ctx context.Context, userID string, args Args) string {
	title := args.String("title")
	if title == "" {
		return errorPayload("title is required")
	}
	loc, _ := t.location(ctx, userID)
	deadline, err := args.Time("deadline", loc)
	if err != nil {
		return errorPayload(err.Error())
	}
	if deadline != nil && isDateOnly(args.String("deadline")) {
		eod := deadline.AddDate(0, 0, 1)
		deadline = &eod
	}
	proposal, err := t.scheduler.ProposeTimebox(ctx, userID, schedulingusecase.TimeboxRequest{
		Title:           title,
		Description:     args.String("description"),
		SourceThreadID:  args.String("threadId"),
		Deadline:        deadline,
		DurationMinutes: args.Int("durationMinutes"),
		Priority:        args.String("priority"),
		Reason:          args.String("reason"),
	})
	if err != nil {
		return failure("timebox_email_task", err)
	}
	return encode(proposal)
}

func (t *Toolbox) createCalendarEvent(ctx context.Context, userID string, args Args) string {
	title := args.String("title")
	if title == "" {
		return errorPayload("title is required")
	}
	loc, rules := t.location(ctx, userID)
	start, err := args.Time("start", loc)
	if err != nil {
		return errorPayload(err.Error())
	}
	if start == nil {
		return errorPayload("start is required")
	}
	end, err := args.Time("end", loc)
	if err != nil {
		return errorPayload(err.Error())
	}
	if end == nil {
		minutes := args.Int("durationMinutes")
		if minutes <= 0 {
			minutes = defaultEventMinutes
		}
		e := start.Add(time.Duration(minutes) * time.Minute)
		end = &e
	}
	if !end.After(*start) {
		return errorPayload("end must be after start")
	}

	link := args.String("conferenceLink")
	if link == "" {
		link = rules.ConferenceLink
	}
	action, err := t.actions.Stage(ctx, userID, actiondomain.StageRequest{
		Type:    actiondomain.ActionCreateCalendarEvent,
		Summary: fmt.Sprintf("Create event %q on %s", title, start.In(loc).Format("Mon Jan 2 15:04")),
		Details: actiondomain.CalendarEventDetails{
			Event: actiondomain.ProposedEvent{
				Title:          title,
				Description:    args.String("description"),
				Start:          *start,
				End:            *end,
				Attendees:      args.Strings("attendees"),
				Location:       args.String("location"),
				ConferenceLink: link,
			},
		},
		SourceThreadID: args.String("threadId"),
		AuditReason:    "Requested in conversation",
	})
	if err != nil {
		return failure("create_calendar_event", err)
	}
	return staged(action, "The event will be added once you approve it.")
}

func (t *Toolbox) getDailyBriefing(ctx context.Context, userID string, args Args) string {
	tz := args.String("timezone")
	if tz == "" {
		tz, _ = TimezoneFromContext(ctx)
	}
	briefing, err := t.briefings.Generate(userID, tz)
	if err != nil {
		return failure("get_daily_briefing", err)
	}
	return encode(briefing)
}

func staged(action *actiondomain.PendingAction, message string) string {
	return encode(map[string]any{
		"success":  true,
		"actionId": action.ID,
		"status":   action.Status,
		"summary":  action.Summary,
		"message":  message,
	})
}

func sender(m *inboxdomain.Message) string {
	if m.FromName != "" && m.FromEmail != "" {
		return fmt.Sprintf("%s <%s>", m.FromName, m.FromEmail)
	}
	return m.FromEmail
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "…"
}

// clamp returns def for non-positive n and caps n at ceiling
func clamp(n, def, ceiling int) int {
	if n <= 0 {
		return def
	}
	if n > ceiling {
		return ceiling
	}
	return n
}
