package repository

import (
	"time"

	calendardomain "nexus-backend/internal/calendar/domain"
)

// EventRepository defines data access for calendar events
type EventRepository interface {
	// ListByStart returns events whose start falls in [from, to), sorted by start
	ListByStart(userID string, from, to time.Time) ([]*calendardomain.Event, error)
	Create(event *calendardomain.Event) error
	// Upsert inserts or refreshes an imported event keyed by external id
	Upsert(event *calendardomain.Event) error
}

// RuleRepository defines data access for scheduling rule overrides
type RuleRepository interface {
	FindRule(owner calendardomain.RuleOwner, ownerID string) (*calendardomain.SchedulingRule, error)
	SaveRule(rule *calendardomain.SchedulingRule) error
}
