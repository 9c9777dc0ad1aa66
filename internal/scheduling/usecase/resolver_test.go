package usecase

import (
	"testing"

	calendardomain "nexus-backend/internal/calendar/domain"
	"nexus-backend/internal/scheduling/domain"
	"nexus-backend/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRules struct {
	rules map[string]*calendardomain.SchedulingRule
}

func newFakeRules() *fakeRules {
	return &fakeRules{rules: map[string]*calendardomain.SchedulingRule{}}
}

func (f *fakeRules) FindRule(owner calendardomain.RuleOwner, ownerID string) (*calendardomain.SchedulingRule, error) {
	if ownerID == "" {
		return nil, nil
	}
	return f.rules[string(owner)+"/"+ownerID], nil
}

func (f *fakeRules) SaveRule(rule *calendardomain.SchedulingRule) error {
	cp := *rule
	f.rules[string(rule.OwnerType)+"/"+rule.OwnerID] = &cp
	return nil
}

func testDefaults() config.SchedulingDefaults {
	return config.SchedulingDefaults{
		BufferMinutes:                 15,
		WorkingHoursStart:             "09:00",
		WorkingHoursEnd:               "17:00",
		DefaultMeetingDurationMinutes: 30,
		Timezone:                      "UTC",
	}
}

func TestResolver_FallsBackToDefaults(t *testing.T) {
	r := NewResolver(newFakeRules(), testDefaults())

	rules, err := r.Resolve("u1", "w1")
	require.NoError(t, err)
	assert.Equal(t, domain.RulesFromDefaults, rules.Source)
	assert.Equal(t, 15, rules.BufferMinutes)
	assert.Equal(t, "09:00", rules.WorkingHoursStart)
}

func TestResolver_WorkspaceOverride(t *testing.T) {
	repo := newFakeRules()
	require.NoError(t, repo.SaveRule(&calendardomain.SchedulingRule{
		OwnerType:     calendardomain.RuleOwnerWorkspace,
		OwnerID:       "w1",
		BufferMinutes: 5,
		Timezone:      "Europe/Berlin",
	}))
	r := NewResolver(repo, testDefaults())

	rules, err := r.Resolve("u1", "w1")
	require.NoError(t, err)
	assert.Equal(t, domain.RulesFromWorkspace, rules.Source)
	assert.Equal(t, 5, rules.BufferMinutes)
	assert.Equal(t, "Europe/Berlin", rules.Timezone)
	// blank fields come from defaults
	assert.Equal(t, "17:00", rules.WorkingHoursEnd)
	assert.Equal(t, 30, rules.DefaultMeetingDurationMinutes)
}

func TestResolver_UserOverrideWinsWhole(t *testing.T) {
	repo := newFakeRules()
	require.NoError(t, repo.SaveRule(&calendardomain.SchedulingRule{
		OwnerType: calendardomain.RuleOwnerWorkspace, OwnerID: "w1", BufferMinutes: 5, ConferenceLink: "https://meet/ws",
	}))
	require.NoError(t, repo.SaveRule(&calendardomain.SchedulingRule{
		OwnerType: calendardomain.RuleOwnerUser, OwnerID: "u1", BufferMinutes: 0, WorkingHoursStart: "08:00",
	}))
	r := NewResolver(repo, testDefaults())

	rules, err := r.Resolve("u1", "w1")
	require.NoError(t, err)
	assert.Equal(t, domain.RulesFromUser, rules.Source)
	assert.Equal(t, 0, rules.BufferMinutes)
	assert.Equal(t, "08:00", rules.WorkingHoursStart)
	assert.Empty(t, rules.ConferenceLink)
}

func TestResolver_SaveUserRulesValidates(t *testing.T) {
	r := NewResolver(newFakeRules(), testDefaults())

	_, err := r.SaveUserRules("u1", domain.Rules{
		WorkingHoursStart:             "17:00",
		WorkingHoursEnd:               "09:00",
		DefaultMeetingDurationMinutes: 30,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidRules)

	saved, err := r.SaveUserRules("u1", domain.Rules{
		BufferMinutes:                 10,
		WorkingHoursStart:             "10:00",
		WorkingHoursEnd:               "18:00",
		NoMeetingDays:                 []int{5},
		DefaultMeetingDurationMinutes: 45,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.RulesFromUser, saved.Source)

	resolved, err := r.Resolve("u1", "")
	require.NoError(t, err)
	assert.Equal(t, []int{5}, resolved.NoMeetingDays)
	assert.Equal(t, 45, resolved.DefaultMeetingDurationMinutes)
}
