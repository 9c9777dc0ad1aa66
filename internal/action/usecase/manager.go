package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	actiondomain "nexus-backend/internal/action/domain"
	"nexus-backend/internal/action/repository"
	calendardomain "nexus-backend/internal/calendar/domain"
	inboxdomain "nexus-backend/internal/inbox/domain"
	taskdomain "nexus-backend/internal/task/domain"
	"nexus-backend/pkg/fcm"
	"nexus-backend/pkg/metrics"

	"github.com/google/uuid"
)

// draftConfidence marks drafts produced from an approved scheduling email
const draftConfidence = 0.95

// Notifier pushes a notification to all devices of a user
type Notifier interface {
	NotifyUser(ctx context.Context, userID string, notification fcm.NotificationData) (int, error)
}

// Manager owns the pending -> approved | rejected state machine. Nothing the assistant
// proposes is applied until Execute is called for it.
type Manager struct {
	repo     repository.ActionRepository
	notifier Notifier
	metrics  *metrics.Metrics
}

func NewManager(repo repository.ActionRepository) *Manager {
	return &Manager{repo: repo}
}

func (m *Manager) SetNotifier(n Notifier) {
	m.notifier = n
}

func (m *Manager) SetMetrics(mt *metrics.Metrics) {
	m.metrics = mt
}

// Stage persists a new pending action
func (m *Manager) Stage(ctx context.Context, userID string, req actiondomain.StageRequest) (*actiondomain.PendingAction, error) {
	if req.Details == nil || req.Details.ActionType() != req.Type {
		return nil, actiondomain.ErrDetailsMismatch
	}

	action := &actiondomain.PendingAction{
		ID:             uuid.New().String(),
		UserID:         userID,
		Type:           req.Type,
		Status:         actiondomain.StatusPending,
		Summary:        req.Summary,
		Details:        actiondomain.ActionDetails{Details: req.Details},
		SourceThreadID: req.SourceThreadID,
		AuditReason:    req.AuditReason,
	}
	if err := m.repo.Create(action); err != nil {
		return nil, fmt.Errorf("stage action: %w", err)
	}
	log.Printf("[PendingAction] Staged %s %s for user %s", action.Type, action.ID, userID)
	m.metrics.IncActionTransition(string(action.Type), string(actiondomain.StatusPending))

	if m.notifier != nil {
		_, err := m.notifier.NotifyUser(ctx, userID, fcm.NotificationData{
			Title: "Approval needed",
			Body:  action.Summary,
			Data: map[string]string{
				"type":      "pending_action",
				"action_id": action.ID,
			},
			ClickAction: "/actions/" + action.ID,
		})
		if err != nil {
			log.Printf("[PendingAction] Push for %s failed: %v", action.ID, err)
		}
	}
	return action, nil
}

// Execute approves a pending action and applies its effect. A failure while applying
// leaves the action pending so it can be retried.
func (m *Manager) Execute(ctx context.Context, userID, actionID string) (*actiondomain.ExecuteResult, error) {
	action, err := m.load(userID, actionID)
	if err != nil {
		return nil, err
	}
	if action.Status != actiondomain.StatusPending {
		return alreadyProcessed(action), nil
	}

	created := map[string]string{}
	apply, err := buildEffect(action, created)
	if err != nil {
		return &actiondomain.ExecuteResult{ActionID: action.ID, Status: action.Status, Error: err.Error()}, nil
	}

	entry := &actiondomain.ActionLog{
		UserID:         userID,
		ActionID:       action.ID,
		Actor:          actiondomain.ActorUser,
		ActionType:     action.Type,
		Outcome:        actiondomain.StatusApproved,
		Summary:        action.Summary,
		Details:        action.Details,
		SourceThreadID: action.SourceThreadID,
	}

	err = m.repo.Transition(userID, action.ID, actiondomain.StatusApproved, apply, entry)
	if errors.Is(err, actiondomain.ErrAlreadyProcessed) {
		return alreadyProcessed(action), nil
	}
	if err != nil {
		log.Printf("[PendingAction] Execute %s failed, left pending: %v", action.ID, err)
		m.metrics.IncActionTransition(string(action.Type), "failed")
		return &actiondomain.ExecuteResult{
			ActionID: action.ID,
			Status:   actiondomain.StatusPending,
			Error:    err.Error(),
		}, nil
	}

	log.Printf("[PendingAction] Executed %s %s", action.Type, action.ID)
	m.metrics.IncActionTransition(string(action.Type), string(actiondomain.StatusApproved))
	return &actiondomain.ExecuteResult{
		Success:  true,
		ActionID: action.ID,
		Status:   actiondomain.StatusApproved,
		Created:  created,
	}, nil
}

// Reject closes a pending action without applying it
func (m *Manager) Reject(ctx context.Context, userID, actionID, reason string) (*actiondomain.ExecuteResult, error) {
	action, err := m.load(userID, actionID)
	if err != nil {
		return nil, err
	}
	if action.Status != actiondomain.StatusPending {
		return alreadyProcessed(action), nil
	}

	summary := action.Summary
	if reason != "" {
		summary = fmt.Sprintf("%s (rejected: %s)", summary, reason)
	}
	entry := &actiondomain.ActionLog{
		UserID:         userID,
		ActionID:       action.ID,
		Actor:          actiondomain.ActorUser,
		ActionType:     action.Type,
		Outcome:        actiondomain.StatusRejected,
		Summary:        summary,
		Details:        action.Details,
		SourceThreadID: action.SourceThreadID,
	}

	err = m.repo.Transition(userID, action.ID, actiondomain.StatusRejected, nil, entry)
	if errors.Is(err, actiondomain.ErrAlreadyProcessed) {
		return alreadyProcessed(action), nil
	}
	if err != nil {
		return nil, err
	}

	m.metrics.IncActionTransition(string(action.Type), string(actiondomain.StatusRejected))
	return &actiondomain.ExecuteResult{Success: true, ActionID: action.ID, Status: actiondomain.StatusRejected}, nil
}

func (m *Manager) List(userID string, status *actiondomain.ActionStatus, limit int) ([]*actiondomain.PendingAction, error) {
	return m.repo.ListByUser(userID, status, limit)
}

func (m *Manager) Log(userID string, limit int) ([]*actiondomain.ActionLog, error) {
	return m.repo.ListLogs(userID, limit)
}

func (m *Manager) load(userID, actionID string) (*actiondomain.PendingAction, error) {
	action, err := m.repo.FindByID(actionID)
	if err != nil {
		return nil, err
	}
	if action == nil || action.UserID != userID {
		return nil, actiondomain.ErrActionNotFound
	}
	return action, nil
}

func alreadyProcessed(action *actiondomain.PendingAction) *actiondomain.ExecuteResult {
	return &actiondomain.ExecuteResult{
		ActionID: action.ID,
		Status:   action.Status,
		Error:    actiondomain.ErrAlreadyProcessed.Error(),
	}
}

// buildEffect maps the action's details to the writes approval performs.
// IDs of created rows are reported through created.
func buildEffect(action *actiondomain.PendingAction, created map[string]string) (func(repository.EffectWriter) error, error) {
	switch d := action.Details.Details.(type) {
	case actiondomain.CalendarEventDetails:
		return func(w repository.EffectWriter) error {
			event := toEvent(action.UserID, d.Event)
			if err := w.CreateCalendarEvent(event); err != nil {
				return fmt.Errorf("create calendar event: %w", err)
			}
			created["event"] = event.ID
			return nil
		}, nil

	case actiondomain.TimeboxDetails:
		return func(w repository.EffectWriter) error {
			event := toEvent(action.UserID, d.FocusBlock)
			event.ID = uuid.New().String()

			focusStart := d.FocusBlock.Start
			task := &taskdomain.Task{
				ID:             uuid.New().String(),
				UserID:         action.UserID,
				SourceThreadID: action.SourceThreadID,
				Title:          d.Task.Title,
				Description:    d.Task.Description,
				DueDate:        d.Task.DueDate,
				Priority:       taskdomain.ParsePriority(d.Task.Priority),
				Status:         taskdomain.TaskStatusPending,
				FocusEventID:   event.ID,
				FocusStart:     &focusStart,
			}
			if d.ReminderMinutes > 0 {
				reminder := focusStart.Add(-time.Duration(d.ReminderMinutes) * time.Minute)
				task.ReminderAt = &reminder
			}
			event.TaskID = task.ID

			if err := w.CreateTask(task); err != nil {
				return fmt.Errorf("create task: %w", err)
			}
			if err := w.CreateCalendarEvent(event); err != nil {
				return fmt.Errorf("create focus block: %w", err)
			}
			created["task"] = task.ID
			created["event"] = event.ID
			return nil
		}, nil

	case actiondomain.TaskDetails:
		return func(w repository.EffectWriter) error {
			task := &taskdomain.Task{
				ID:             uuid.New().String(),
				UserID:         action.UserID,
				SourceThreadID: action.SourceThreadID,
				Title:          d.Task.Title,
				Description:    d.Task.Description,
				DueDate:        d.Task.DueDate,
				ReminderAt:     d.ReminderAt,
				Priority:       taskdomain.ParsePriority(d.Task.Priority),
				Status:         taskdomain.TaskStatusPending,
			}
			if err := w.CreateTask(task); err != nil {
				return fmt.Errorf("create task: %w", err)
			}
			created["task"] = task.ID
			return nil
		}, nil

	case actiondomain.SchedulingEmailDetails:
		return func(w repository.EffectWriter) error {
			threadID := d.ThreadID
			if threadID == "" {
				threadID = action.SourceThreadID
			}
			draft := &inboxdomain.Draft{
				UserID:     action.UserID,
				ThreadID:   threadID,
				To:         d.To,
				Subject:    d.Subject,
				Body:       d.Body,
				Confidence: draftConfidence,
				Source:     actiondomain.ActorAssistant,
			}
			if err := w.CreateDraft(draft); err != nil {
				return fmt.Errorf("create draft: %w", err)
			}
			created["draft"] = draft.ID
			return nil
		}, nil

	default:
		return nil, fmt.Errorf("unsupported action type %q", action.Type)
	}
}

func toEvent(userID string, p actiondomain.ProposedEvent) *calendardomain.Event {
	return &calendardomain.Event{
		UserID:         userID,
		Title:          p.Title,
		Description:    p.Description,
		StartTime:      p.Start,
		EndTime:        p.End,
		Location:       p.Location,
		ConferenceLink: p.ConferenceLink,
		Attendees:      p.Attendees,
		Source:         calendardomain.SourceAssistant,
	}
}
