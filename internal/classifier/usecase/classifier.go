package usecase

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"nexus-backend/internal/classifier/domain"
	taskdomain "nexus-backend/internal/task/domain"
	"nexus-backend/pkg/ai"
)

const maxBodyChars = 4000

// acknowledgementConfidence is what a bare one-line acknowledgement scores without a model call
const acknowledgementConfidence = 0.1

var acknowledgements = []string{
	"sounds good", "thanks", "thank you", "thx", "ok", "okay", "great", "perfect", "got it",
	"noted", "will do", "awesome", "cool", "sure", "yes", "yep", "works for me", "cheers",
	"much appreciated", "appreciate it", "looks good", "lgtm",
}

var trailingPunct = regexp.MustCompile(`[\s!.,:;)(\-]+$`)

// Classifier asks the language model for an intent classification
type Classifier struct {
	chat ai.ChatService
	now  func() time.Time
}

func NewClassifier(chat ai.ChatService) *Classifier {
	return &Classifier{chat: chat, now: time.Now}
}

// Classify never fails: anything unusable becomes domain.Default()
func (c *Classifier) Classify(ctx context.Context, subject, body, sender string) domain.Classification {
	text := replyText(body)
	if isAcknowledgement(text) {
		return domain.Classification{
			Intent:           domain.IntentGeneralInquiry,
			Confidence:       acknowledgementConfidence,
			SuggestedActions: []domain.SuggestedAction{},
		}
	}

	resp, err := c.chat.Chat(ctx, ai.ChatRequest{
		Messages: []ai.Message{
			{Role: ai.RoleSystem, Content: classifySystemPrompt},
			{Role: ai.RoleUser, Content: formatMessage(subject, text, sender)},
		},
		Temperature:  0.1,
		MaxTokens:    600,
		JSONResponse: true,
	})
	if err != nil {
		log.Printf("[Classifier] Model call failed, using default: %v", err)
		return domain.Default()
	}

	var out domain.Classification
	if err := ai.DecodeJSON(resp.Content, &out); err != nil || out.Intent == "" {
		log.Printf("[Classifier] Unparseable classification, using default")
		return domain.Default()
	}
	out.Normalize()
	return out
}

// ExtractTasks lists the actionable tasks in a message
func (c *Classifier) ExtractTasks(ctx context.Context, subject, body, sender string) ([]taskdomain.TaskExtraction, error) {
	resp, err := c.chat.Chat(ctx, ai.ChatRequest{
		Messages: []ai.Message{
			{Role: ai.RoleSystem, Content: fmt.Sprintf(extractSystemPrompt, c.now().Format("2006-01-02"))},
			{Role: ai.RoleUser, Content: formatMessage(subject, replyText(body), sender)},
		},
		Temperature:  0.2,
		MaxTokens:    800,
		JSONResponse: true,
	})
	if err != nil {
		return nil, fmt.Errorf("task extraction failed: %w", err)
	}

	var raw struct {
		Tasks []struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			DueDate     string `json:"due_date"`
			Priority    string `json:"priority"`
		} `json:"tasks"`
	}
	if err := ai.DecodeJSON(resp.Content, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse task JSON: %w", err)
	}

	var tasks []taskdomain.TaskExtraction
	for _, rt := range raw.Tasks {
		if strings.TrimSpace(rt.Title) == "" {
			continue
		}
		task := taskdomain.TaskExtraction{
			Title:       rt.Title,
			Description: rt.Description,
			Priority:    taskdomain.ParsePriority(rt.Priority),
		}
		if rt.DueDate != "" {
			if due, err := parseDue(rt.DueDate); err == nil {
				task.DueDate = &due
			}
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

func parseDue(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("bad due date %q", s)
}

func formatMessage(subject, body, sender string) string {
	if runes := []rune(body); len(runes) > maxBodyChars {
		body = string(runes[:maxBodyChars])
	}
	return fmt.Sprintf("From: %s\nSubject: %s\n\n%s", sender, subject, body)
}

// replyText drops quoted lines and everything after an "On ... wrote:" header
func replyText(body string) string {
	var kept []string
	for _, line := range strings.Split(body, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, ">") {
			continue
		}
		if strings.HasPrefix(trimmed, "On ") && strings.HasSuffix(trimmed, "wrote:") {
			break
		}
		if trimmed == "--" || strings.HasPrefix(trimmed, "-----Original Message") {
			break
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

func isAcknowledgement(text string) bool {
	if text == "" || strings.Contains(text, "\n") || len(text) > 40 {
		return false
	}
	normalized := strings.ToLower(trailingPunct.ReplaceAllString(text, ""))
	short := !strings.Contains(normalized, "?") && len(strings.Fields(normalized)) <= 4
	for _, ack := range acknowledgements {
		if normalized == ack {
			return true
		}
		if short && (strings.HasPrefix(normalized, ack+",") || strings.HasPrefix(normalized, ack+" ")) {
			return true
		}
	}
	return false
}

const classifySystemPrompt = `You classify a single email for a personal assistant.

Return ONLY a JSON object with this shape:
{
  "intent": "meeting_request" | "task_action" | "newsletter" | "general_inquiry" | "scheduling_confirmation" | "reschedule_request",
  "confidence": number between 0 and 1,
  "meetingEntities": {"topic": string, "proposedTimes": [string], "durationMinutes": number, "attendees": [string], "location": string} or null,
  "taskEntities": {"title": string, "deadline": string, "priority": "high" | "medium" | "low"} or null,
  "suggestedActions": [{"type": "schedule_meeting" | "create_task" | "draft_reply" | "archive" | "update_event", "description": string}]
}

Guidelines:
- Short acknowledgements and pleasantries get low confidence (below 0.3) and no suggested actions.
- Newsletters and automated mail suggest "archive" at most.
- Only fill meetingEntities for meeting_request, scheduling_confirmation or reschedule_request.
- Only fill taskEntities when the sender asks the user to do something.`

const extractSystemPrompt = `You extract actionable tasks from an email.

TODAY: %s

Return ONLY a JSON object: {"tasks": [{"title": string, "description": string, "due_date": ISO 8601 or "", "priority": "high" | "medium" | "low"}]}
- high: due within 24h or marked urgent
- medium: due within a few days
- low: no deadline, FYI
If the email has no tasks, return {"tasks": []}.`
