package domain

import (
	"errors"
	"fmt"
	"time"
)

var ErrInvalidRules = errors.New("invalid scheduling rules")

const (
	RulesFromUser      = "user"
	RulesFromWorkspace = "workspace"
	RulesFromDefaults  = "defaults"
)

// Rules is one resolved rule set. It is immutable per resolution.
type Rules struct {
	BufferMinutes                 int    `json:"bufferMinutes"`
	WorkingHoursStart             string `json:"workingHoursStart"`
	WorkingHoursEnd               string `json:"workingHoursEnd"`
	NoMeetingDays                 []int  `json:"noMeetingDays"`
	DefaultMeetingDurationMinutes int    `json:"defaultMeetingDurationMinutes"`
	Timezone                      string `json:"timezone"`
	ConferenceLink                string `json:"conferenceLink,omitempty"`
	Source                        string `json:"source"`
}

// Location loads the rules' timezone, falling back to UTC
func (r Rules) Location() *time.Location {
	if r.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (r Rules) Buffer() time.Duration {
	return time.Duration(r.BufferMinutes) * time.Minute
}

func (r Rules) DefaultDuration() time.Duration {
	return time.Duration(r.DefaultMeetingDurationMinutes) * time.Minute
}

// IsNoMeetingDay reports whether meetings are excluded on wd
func (r Rules) IsNoMeetingDay(wd time.Weekday) bool {
	for _, d := range r.NoMeetingDays {
		if time.Weekday(d) == wd {
			return true
		}
	}
	return false
}

// WorkingWindow returns the working-hour window of the calendar day containing day,
// evaluated in the rules' timezone
func (r Rules) WorkingWindow(day time.Time) (time.Time, time.Time, error) {
	sh, sm, err := ParseClock(r.WorkingHoursStart)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	eh, em, err := ParseClock(r.WorkingHoursEnd)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	loc := r.Location()
	d := day.In(loc)
	start := time.Date(d.Year(), d.Month(), d.Day(), sh, sm, 0, 0, loc)
	end := time.Date(d.Year(), d.Month(), d.Day(), eh, em, 0, 0, loc)
	return start, end, nil
}

// WorkdayHours is the length of the configured working day
func (r Rules) WorkdayHours() float64 {
	sh, sm, err1 := ParseClock(r.WorkingHoursStart)
	eh, em, err2 := ParseClock(r.WorkingHoursEnd)
	if err1 != nil || err2 != nil {
		return 8
	}
	minutes := (eh*60 + em) - (sh*60 + sm)
	if minutes <= 0 {
		return 8
	}
	return float64(minutes) / 60
}

// Validate checks that the rules describe a usable working window
func (r Rules) Validate() error {
	sh, sm, err := ParseClock(r.WorkingHoursStart)
	if err != nil {
		return err
	}
	eh, em, err := ParseClock(r.WorkingHoursEnd)
	if err != nil {
		return err
	}
	if eh*60+em <= sh*60+sm {
		return fmt.Errorf("%w: working hours end must be after start", ErrInvalidRules)
	}
	if r.BufferMinutes < 0 {
		return fmt.Errorf("%w: buffer must not be negative", ErrInvalidRules)
	}
	if r.DefaultMeetingDurationMinutes <= 0 {
		return fmt.Errorf("%w: default meeting duration must be positive", ErrInvalidRules)
	}
	for _, d := range r.NoMeetingDays {
		if d < 0 || d > 6 {
			return fmt.Errorf("%w: weekday %d out of range", ErrInvalidRules, d)
		}
	}
	if r.Timezone != "" {
		if _, err := time.LoadLocation(r.Timezone); err != nil {
			return fmt.Errorf("%w: unknown timezone %q", ErrInvalidRules, r.Timezone)
		}
	}
	return nil
}

// ParseClock parses "HH:MM"
func ParseClock(s string) (int, int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: bad clock value %q", ErrInvalidRules, s)
	}
	return t.Hour(), t.Minute(), nil
}
