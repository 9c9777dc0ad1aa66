package repository

import (
	actiondomain "nexus-backend/internal/action/domain"
	calendardomain "nexus-backend/internal/calendar/domain"
	inboxdomain "nexus-backend/internal/inbox/domain"
	taskdomain "nexus-backend/internal/task/domain"
)

// EffectWriter applies the side effects of an approved action. All writes share the
// transaction of the status transition.
type EffectWriter interface {
	CreateCalendarEvent(event *calendardomain.Event) error
	CreateTask(task *taskdomain.Task) error
	CreateDraft(draft *inboxdomain.Draft) error
}

// ActionRepository defines data access for pending actions and their audit log
type ActionRepository interface {
	Create(action *actiondomain.PendingAction) error
	// FindByID returns nil, nil when the action does not exist
	FindByID(id string) (*actiondomain.PendingAction, error)
	ListByUser(userID string, status *actiondomain.ActionStatus, limit int) ([]*actiondomain.PendingAction, error)

	// Transition moves a pending action to status `to`, runs apply inside the same
	// transaction, and appends entry to the log. It returns ErrAlreadyProcessed when the
	// action is no longer pending. If apply fails nothing is written.
	Transition(userID, actionID string, to actiondomain.ActionStatus, apply func(EffectWriter) error, entry *actiondomain.ActionLog) error

	ListLogs(userID string, limit int) ([]*actiondomain.ActionLog, error)
}
