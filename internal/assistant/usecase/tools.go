package usecase

import (
	"nexus-backend/pkg/ai"
)

// ToolName is the closed set of capabilities the model may call
type ToolName string

const (
	ToolSearchInbox         ToolName = "search_inbox"
	ToolGetThreadDetail     ToolName = "get_thread_detail"
	ToolGetShopifyOrders    ToolName = "get_shopify_orders"
	ToolGetContactInfo      ToolName = "get_contact_info"
	ToolListTasks           ToolName = "list_tasks"
	ToolCreateTask          ToolName = "create_task"
	ToolGetCalendarEvents   ToolName = "get_calendar_events"
	ToolClassifyEmailIntent ToolName = "classify_email_intent"
	ToolFindAvailableTimes  ToolName = "find_available_times"
	ToolScheduleMeeting     ToolName = "schedule_meeting"
	ToolTimeboxEmailTask    ToolName = "timebox_email_task"
	ToolCreateCalendarEvent ToolName = "create_calendar_event"
	ToolGetDailyBriefing    ToolName = "get_daily_briefing"
)

// ToolNames lists the catalog in the order it is offered to the model
var ToolNames = []ToolName{
	ToolSearchInbox,
	ToolGetThreadDetail,
	ToolGetShopifyOrders,
	ToolGetContactInfo,
	ToolListTasks,
	ToolCreateTask,
	ToolGetCalendarEvents,
	ToolClassifyEmailIntent,
	ToolFindAvailableTimes,
	ToolScheduleMeeting,
	ToolTimeboxEmailTask,
	ToolCreateCalendarEvent,
	ToolGetDailyBriefing,
}

func object(props map[string]any, required ...string) map[string]any {
	schema := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func str(desc string) map[string]any {
	return map[string]any{"type": "string", "description": desc}
}

func enum(desc string, values ...string) map[string]any {
	return map[string]any{"type": "string", "description": desc, "enum": values}
}

func integer(desc string) map[string]any {
	return map[string]any{"type": "integer", "description": desc}
}

func boolean(desc string) map[string]any {
	return map[string]any{"type": "boolean", "description": desc}
}

func strList(desc string) map[string]any {
	return map[string]any{"type": "array", "description": desc, "items": map[string]any{"type": "string"}}
}

const dateHint = "ISO 8601 date or date-time; times without an offset are read in the user's timezone"

var definitions = map[ToolName]ai.ToolDefinition{
	ToolSearchInbox: {
		Description: "Search the user's email threads by keywords, sender or subject. Tolerates typos. An empty query returns the most recent threads.",
		Parameters: object(map[string]any{
			"query":      str("Keywords, a sender name or address, or subject words"),
			"unreadOnly": boolean("Only return unread threads"),
			"limit":      integer("Maximum number of threads, default 10"),
		}),
	},
	ToolGetThreadDetail: {
		Description: "Get every message of one email thread, any drafts, and the sender's contact record.",
		Parameters: object(map[string]any{
			"threadId": str("Thread ID from search_inbox"),
		}, "threadId"),
	},
	ToolGetShopifyOrders: {
		Description: "Look up store orders by customer email or order number.",
		Parameters: object(map[string]any{
			"customerEmail": str("Customer email address"),
			"orderNumber":   str("Order number, with or without #"),
			"limit":         integer("Maximum number of orders, default 10"),
		}),
	},
	ToolGetContactInfo: {
		Description: "Find a contact by email address or name.",
		Parameters: object(map[string]any{
			"query": str("Email address or name"),
		}, "query"),
	},
	ToolListTasks: {
		Description: "List the user's tasks, optionally filtered by status.",
		Parameters: object(map[string]any{
			"status": enum("Task status filter", "pending", "in_progress", "completed"),
			"limit":  integer("Maximum number of tasks, default 20"),
		}),
	},
	ToolCreateTask: {
		Description: "Propose a new task. The task is created only after the user approves it.",
		Parameters: object(map[string]any{
			"title":       str("Short task title"),
			"description": str("Task details"),
			"dueDate":     str("Due date. " + dateHint),
			"reminderAt":  str("When to remind the user. " + dateHint),
			"priority":    enum("Task priority", "low", "medium", "high"),
			"threadId":    str("Email thread the task came from"),
		}, "title"),
	},
	ToolGetCalendarEvents: {
		Description: "List calendar events in a date range. Defaults to the next 7 days.",
		Parameters: object(map[string]any{
			"startDate": str("Range start. " + dateHint),
			"endDate":   str("Range end. " + dateHint),
		}),
	},
	ToolClassifyEmailIntent: {
		Description: "Classify the intent of an email thread's latest inbound message (meeting request, task, question, and so on) and extract meeting or task details.",
		Parameters: object(map[string]any{
			"threadId": str("Thread to classify"),
		}, "threadId"),
	},
	ToolFindAvailableTimes: {
		Description: "Find open meeting slots on the user's calendar that respect their working hours and buffers.",
		Parameters: object(map[string]any{
			"startDate":       str("Search window start, default today. " + dateHint),
			"endDate":         str("Search window end, default 7 days out. " + dateHint),
			"durationMinutes": integer("Meeting length in minutes, default from the user's scheduling rules"),
			"count":           integer("Number of slots to return, default 5"),
		}),
	},
	ToolScheduleMeeting: {
		Description: "Pick the first open slot and propose a meeting. The event is created only after the user approves it.",
		Parameters: object(map[string]any{
			"title":           str("Meeting title"),
			"description":     str("Meeting agenda"),
			"attendees":       strList("Attendee email addresses"),
			"durationMinutes": integer("Meeting length in minutes"),
			"startDate":       str("Earliest acceptable time. " + dateHint),
			"endDate":         str("Latest acceptable time. " + dateHint),
			"location":        str("Meeting location"),
			"threadId":        str("Email thread that asked for the meeting"),
			"reason":          str("Why this meeting is warranted"),
		}, "title"),
	},
	ToolTimeboxEmailTask: {
		Description: "Propose a task plus a focus block on the calendar before its deadline. Both are created only after the user approves.",
		Parameters: object(map[string]any{
			"title":           str("Task title"),
			"description":     str("Task details"),
			"deadline":        str("Deadline, default 3 days out. " + dateHint),
			"durationMinutes": integer("Focus block length in minutes, default 60"),
			"priority":        enum("Task priority", "low", "medium", "high"),
			"threadId":        str("Email thread the task came from"),
			"reason":          str("Why this task is warranted"),
		}, "title"),
	},
	ToolCreateCalendarEvent: {
		Description: "Propose a calendar event at a specific time. The event is created only after the user approves it.",
		Parameters: object(map[string]any{
			"title":           str("Event title"),
			"start":           str("Event start. " + dateHint),
			"end":             str("Event end. " + dateHint),
			"durationMinutes": integer("Used when end is omitted, default 30"),
			"description":     str("Event details"),
			"attendees":       strList("Attendee email addresses"),
			"location":        str("Event location"),
			"conferenceLink":  str("Video call link"),
			"threadId":        str("Related email thread"),
		}, "title", "start"),
	},
	ToolGetDailyBriefing: {
		Description: "Summarize today: meetings with context from related threads, urgent unread mail, and how busy the calendar is.",
		Parameters: object(map[string]any{
			"timezone": str("IANA timezone, default the user's"),
		}),
	},
}

// Catalog returns the tool definitions offered to the model
func Catalog() []ai.ToolDefinition {
	defs := make([]ai.ToolDefinition, 0, len(ToolNames))
	for _, name := range ToolNames {
		def := definitions[name]
		def.Name = string(name)
		defs = append(defs, def)
	}
	return defs
}
