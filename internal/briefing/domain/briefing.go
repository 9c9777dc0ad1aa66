package domain

import "time"

// DailyBriefing is derived on demand and never stored
type DailyBriefing struct {
	Date            string          `json:"date"`
	Timezone        string          `json:"timezone"`
	MeetingPreps    []MeetingPrep   `json:"meetingPreps"`
	TriageActions   []TriageAction  `json:"triageActions"`
	CalendarDensity CalendarDensity `json:"calendarDensity"`
	InboxSummary    InboxSummary    `json:"inboxSummary"`
}

type MeetingPrep struct {
	EventID          string    `json:"eventId"`
	Title            string    `json:"title"`
	Start            time.Time `json:"start"`
	End              time.Time `json:"end"`
	Attendees        []string  `json:"attendees"`
	RelatedThreadIDs []string  `json:"relatedThreadIds"`
	Context          string    `json:"context"`
}

type TriageAction struct {
	ThreadID string `json:"threadId"`
	Subject  string `json:"subject"`
	Priority string `json:"priority"`
	Reason   string `json:"reason"`
}

type CalendarDensity struct {
	TotalMeetings int     `json:"totalMeetings"`
	TotalHours    float64 `json:"totalHours"`
	FreeHours     float64 `json:"freeHours"`
	WorkdayHours  float64 `json:"workdayHours"`
}

type InboxSummary struct {
	Unread      int `json:"unread"`
	Urgent      int `json:"urgent"`
	NeedsReply  int `json:"needsReply"`
	AutoHandled int `json:"autoHandled"`
}
