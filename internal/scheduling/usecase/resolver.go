package usecase

import (
	calendardomain "nexus-backend/internal/calendar/domain"
	calendarrepo "nexus-backend/internal/calendar/repository"
	"nexus-backend/internal/scheduling/domain"
	"nexus-backend/pkg/config"
)

// Resolver merges user and workspace overrides with the configured defaults.
// The first override found wins as a whole; overrides are not merged field by field.
type Resolver struct {
	rules    calendarrepo.RuleRepository
	defaults config.SchedulingDefaults
}

func NewResolver(rules calendarrepo.RuleRepository, defaults config.SchedulingDefaults) *Resolver {
	return &Resolver{rules: rules, defaults: defaults}
}

// Resolve loads the user override, then the workspace override, then the defaults
func (r *Resolver) Resolve(userID, workspaceID string) (domain.Rules, error) {
	rule, err := r.rules.FindRule(calendardomain.RuleOwnerUser, userID)
	if err != nil {
		return domain.Rules{}, err
	}
	if rule != nil {
		return r.fromStored(rule, domain.RulesFromUser), nil
	}

	rule, err = r.rules.FindRule(calendardomain.RuleOwnerWorkspace, workspaceID)
	if err != nil {
		return domain.Rules{}, err
	}
	if rule != nil {
		return r.fromStored(rule, domain.RulesFromWorkspace), nil
	}

	return r.Defaults(), nil
}

// Defaults returns the configured fallback rules
func (r *Resolver) Defaults() domain.Rules {
	return domain.Rules{
		BufferMinutes:                 r.defaults.BufferMinutes,
		WorkingHoursStart:             r.defaults.WorkingHoursStart,
		WorkingHoursEnd:               r.defaults.WorkingHoursEnd,
		NoMeetingDays:                 append([]int(nil), r.defaults.NoMeetingDays...),
		DefaultMeetingDurationMinutes: r.defaults.DefaultMeetingDurationMinutes,
		Timezone:                      r.defaults.Timezone,
		Source:                        domain.RulesFromDefaults,
	}
}

// SaveUserRules stores a user-level override
func (r *Resolver) SaveUserRules(userID string, rules domain.Rules) (domain.Rules, error) {
	if err := rules.Validate(); err != nil {
		return domain.Rules{}, err
	}
	stored := &calendardomain.SchedulingRule{
		OwnerType:                     calendardomain.RuleOwnerUser,
		OwnerID:                       userID,
		BufferMinutes:                 rules.BufferMinutes,
		WorkingHoursStart:             rules.WorkingHoursStart,
		WorkingHoursEnd:               rules.WorkingHoursEnd,
		NoMeetingDays:                 rules.NoMeetingDays,
		DefaultMeetingDurationMinutes: rules.DefaultMeetingDurationMinutes,
		Timezone:                      rules.Timezone,
		ConferenceLink:                rules.ConferenceLink,
	}
	if existing, err := r.rules.FindRule(calendardomain.RuleOwnerUser, userID); err != nil {
		return domain.Rules{}, err
	} else if existing != nil {
		stored.ID = existing.ID
	}
	if err := r.rules.SaveRule(stored); err != nil {
		return domain.Rules{}, err
	}
	return r.fromStored(stored, domain.RulesFromUser), nil
}

// fromStored fills blank stored fields from the defaults
func (r *Resolver) fromStored(rule *calendardomain.SchedulingRule, source string) domain.Rules {
	out := domain.Rules{
		BufferMinutes:                 rule.BufferMinutes,
		WorkingHoursStart:             rule.WorkingHoursStart,
		WorkingHoursEnd:               rule.WorkingHoursEnd,
		NoMeetingDays:                 append([]int(nil), rule.NoMeetingDays...),
		DefaultMeetingDurationMinutes: rule.DefaultMeetingDurationMinutes,
		Timezone:                      rule.Timezone,
		ConferenceLink:                rule.ConferenceLink,
		Source:                        source,
	}
	if out.WorkingHoursStart == "" {
		out.WorkingHoursStart = r.defaults.WorkingHoursStart
	}
	if out.WorkingHoursEnd == "" {
		out.WorkingHoursEnd = r.defaults.WorkingHoursEnd
	}
	if out.DefaultMeetingDurationMinutes <= 0 {
		out.DefaultMeetingDurationMinutes = r.defaults.DefaultMeetingDurationMinutes
	}
	if out.Timezone == "" {
		out.Timezone = r.defaults.Timezone
	}
	return out
}
