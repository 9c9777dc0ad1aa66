package domain

// Intent is the closed set of message intents
type Intent string

const (
	IntentMeetingRequest         Intent = "meeting_request"
	IntentTaskAction             Intent = "task_action"
	IntentNewsletter             Intent = "newsletter"
	IntentGeneralInquiry         Intent = "general_inquiry"
	IntentSchedulingConfirmation Intent = "scheduling_confirmation"
	IntentRescheduleRequest      Intent = "reschedule_request"
)

var intents = []Intent{
	IntentMeetingRequest,
	IntentTaskAction,
	IntentNewsletter,
	IntentGeneralInquiry,
	IntentSchedulingConfirmation,
	IntentRescheduleRequest,
}

func (i Intent) Valid() bool {
	for _, v := range intents {
		if v == i {
			return true
		}
	}
	return false
}

// SuggestedActionType is the closed set of follow-ups a classification may suggest
type SuggestedActionType string

const (
	SuggestScheduleMeeting SuggestedActionType = "schedule_meeting"
	SuggestCreateTask      SuggestedActionType = "create_task"
	SuggestDraftReply      SuggestedActionType = "draft_reply"
	SuggestArchive         SuggestedActionType = "archive"
	SuggestUpdateEvent     SuggestedActionType = "update_event"
)

func (s SuggestedActionType) Valid() bool {
	switch s {
	case SuggestScheduleMeeting, SuggestCreateTask, SuggestDraftReply, SuggestArchive, SuggestUpdateEvent:
		return true
	}
	return false
}

// SurfaceThreshold is the confidence below which consumers hide action affordances
const SurfaceThreshold = 0.3

type MeetingEntities struct {
	Topic           string   `json:"topic,omitempty"`
	ProposedTimes   []string `json:"proposedTimes,omitempty"`
	DurationMinutes int      `json:"durationMinutes,omitempty"`
	Attendees       []string `json:"attendees,omitempty"`
	Location        string   `json:"location,omitempty"`
}

type TaskEntities struct {
	Title    string `json:"title,omitempty"`
	Deadline string `json:"deadline,omitempty"`
	Priority string `json:"priority,omitempty"`
}

type SuggestedAction struct {
	Type        SuggestedActionType `json:"type"`
	Description string              `json:"description,omitempty"`
}

// Classification is the structured result of classifying one message.
// Confidence is informational; callers apply SurfaceThreshold themselves.
type Classification struct {
	Intent           Intent            `json:"intent"`
	Confidence       float64           `json:"confidence"`
	MeetingEntities  *MeetingEntities  `json:"meetingEntities,omitempty"`
	TaskEntities     *TaskEntities     `json:"taskEntities,omitempty"`
	SuggestedActions []SuggestedAction `json:"suggestedActions"`
}

// Default is returned whenever the model output cannot be used
func Default() Classification {
	return Classification{
		Intent:           IntentGeneralInquiry,
		Confidence:       0.5,
		SuggestedActions: []SuggestedAction{},
	}
}

// ShouldSurface reports whether a consumer may offer actions for this result
func (c Classification) ShouldSurface() bool {
	return c.Confidence >= SurfaceThreshold
}

// Normalize coerces model output into the closed vocabulary
func (c *Classification) Normalize() {
	if !c.Intent.Valid() {
		c.Intent = IntentGeneralInquiry
	}
	if c.Confidence < 0 {
		c.Confidence = 0
	}
	if c.Confidence > 1 {
		c.Confidence = 1
	}
	actions := make([]SuggestedAction, 0, len(c.SuggestedActions))
	for _, a := range c.SuggestedActions {
		if a.Type.Valid() {
			actions = append(actions, a)
		}
	}
	c.SuggestedActions = actions
}
