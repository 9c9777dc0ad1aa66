package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"nexus-backend/internal/assistant/domain"
	"nexus-backend/internal/assistant/repository"
	authdomain "nexus-backend/internal/auth/domain"
	"nexus-backend/pkg/ai"
	"nexus-backend/pkg/metrics"
)

const (
	defaultMaxIterations = 5
	defaultHistoryLimit  = 20
	sessionMessagesMax   = 200
	titleMaxRunes        = 60
)

var (
	ErrEmptyQuery      = errors.New("query is required")
	ErrSessionNotFound = errors.New("session not found")
)

// ToolRunner executes one tool call and returns its payload
type ToolRunner interface {
	Execute(ctx context.Context, call ai.ToolCall) string
}

type Query struct {
	Query     string `json:"query" binding:"required"`
	SessionID string `json:"sessionId"`
	Timezone  string `json:"timezone"`
}

type Response struct {
	domain.Answer
	SessionID string   `json:"sessionId"`
	ToolsUsed []string `json:"toolsUsed"`
}

// Orchestrator runs one bounded tool-calling turn per user query
type Orchestrator struct {
	chat     ai.ChatService
	tools    ToolRunner
	sessions repository.SessionRepository
	catalog  []ai.ToolDefinition
	metrics  *metrics.Metrics
	now      func() time.Time

	maxIterations int
	historyLimit  int
}

func NewOrchestrator(chat ai.ChatService, tools ToolRunner, sessions repository.SessionRepository) *Orchestrator {
	return &Orchestrator{
		chat:     chat,
		tools:    tools,
		sessions: sessions,
		catalog:  Catalog(),
		now:      time.Now,

		maxIterations: defaultMaxIterations,
		historyLimit:  defaultHistoryLimit,
	}
}

// SetLimits overrides the iteration budget and loaded history size. Non-positive values keep the defaults.
func (o *Orchestrator) SetLimits(maxIterations, historyLimit int) {
	if maxIterations > 0 {
		o.maxIterations = maxIterations
	}
	if historyLimit > 0 {
		o.historyLimit = historyLimit
	}
}

func (o *Orchestrator) SetMetrics(m *metrics.Metrics) {
	o.metrics = m
}

// Ask answers query within the caller's session, creating one when none is given.
// Model and storage errors fail the whole turn.
func (o *Orchestrator) Ask(ctx context.Context, userID string, q Query) (*Response, error) {
	started := time.Now()
	outcome := "error"
	defer func() { o.metrics.ObserveTurn(outcome, time.Since(started)) }()

	query := strings.TrimSpace(q.Query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	ctx = authdomain.WithUserID(ctx, userID)
	if q.Timezone != "" {
		ctx = WithTimezone(ctx, q.Timezone)
	}

	session, created, err := o.openSession(userID, q.SessionID)
	if err != nil {
		return nil, err
	}
	if err := o.sessions.AppendMessages(domain.NewUserMessage(session.ID, userID, query)); err != nil {
		return nil, err
	}
	rows, err := o.sessions.RecentMessages(session.ID, o.historyLimit)
	if err != nil {
		return nil, err
	}

	messages := make([]ai.Message, 0, len(rows)+1)
	messages = append(messages, ai.Message{Role: ai.RoleSystem, Content: o.systemPrompt(q.Timezone)})
	messages = append(messages, domain.ToChatMessages(rows)...)

	toolsUsed := []string{}
	final, answered := "", false
	for i := 0; i < o.maxIterations; i++ {
		resp, err := o.chat.Chat(ctx, ai.ChatRequest{
			Messages:    messages,
			Tools:       o.catalog,
			Temperature: 0.2,
		})
		if err != nil {
			return nil, fmt.Errorf("model call: %w", err)
		}
		if len(resp.ToolCalls) == 0 {
			final, answered = resp.Content, true
			break
		}

		calls := withCallIDs(resp.ToolCalls, i)
		messages = append(messages, ai.Message{Role: ai.RoleAssistant, Content: resp.Content, ToolCalls: calls})

		results := make([]domain.ToolResult, 0, len(calls))
		for _, call := range calls {
			log.Printf("[Assistant] Session %s: calling %s", session.ID, call.Name)
			out := o.tools.Execute(ctx, call)
			results = append(results, domain.ToolResult{ToolCallID: call.ID, Name: call.Name, Content: out})
			messages = append(messages, ai.Message{Role: ai.RoleTool, Content: out, ToolCallID: call.ID, Name: call.Name})
			toolsUsed = appendUnique(toolsUsed, call.Name)
		}

		err = o.sessions.AppendMessages(
			domain.NewAssistantMessage(session.ID, userID, resp.Content, calls),
			domain.NewToolResultsMessage(session.ID, userID, results),
		)
		if err != nil {
			return nil, err
		}
	}

	if answered {
		outcome = "answered"
	} else {
		log.Printf("[Assistant] Session %s: no answer after %d iterations", session.ID, o.maxIterations)
		outcome = "exhausted"
		final = domain.ExhaustedMessage
	}
	answer := domain.ParseAnswer(final)

	if err := o.sessions.AppendMessages(domain.NewAssistantMessage(session.ID, userID, final, nil)); err != nil {
		return nil, err
	}
	if err := o.sessions.TouchSession(session.ID); err != nil {
		log.Printf("[Assistant] Failed to touch session %s: %v", session.ID, err)
	}
	if created {
		o.generateTitle(ctx, session.ID, query)
	}

	return &Response{Answer: answer, SessionID: session.ID, ToolsUsed: toolsUsed}, nil
}

func (o *Orchestrator) openSession(userID, sessionID string) (*domain.Session, bool, error) {
	if sessionID != "" {
		session, err := o.sessions.FindSession(userID, sessionID)
		if err != nil {
			return nil, false, err
		}
		if session == nil {
			return nil, false, ErrSessionNotFound
		}
		return session, false, nil
	}
	session := &domain.Session{UserID: userID, Title: domain.DefaultTitle}
	if err := o.sessions.CreateSession(session); err != nil {
		return nil, false, err
	}
	return session, true, nil
}

const policy = `You are Nexus, an assistant for the user's email, calendar and tasks.

Rules:
- Always call a tool to look up emails, contacts, orders, tasks or calendar events. Never invent them.
- Keep context across turns. Resolve references such as "that thread" or "her" from earlier messages.
- Creating tasks, meetings or events only proposes them. Tell the user the proposal is waiting for their approval.
- Resolve relative dates ("tomorrow", "next Tuesday") against the current date and timezone below.

Reply with one JSON object and nothing else:
{"textSummary": "<plain-language answer>", "widgets": [<structured items to display, such as threads, events, slots or actions>], "citations": [<ids of the threads, events or actions you used>]}`

func (o *Orchestrator) systemPrompt(timezone string) string {
	loc := time.UTC
	if timezone != "" {
		if l, err := time.LoadLocation(timezone); err == nil {
			loc = l
		}
	}
	now := o.now().In(loc)
	return fmt.Sprintf("%s\n\nCurrent date and time: %s (%s)", policy, now.Format("Monday, January 2, 2006 15:04"), loc.String())
}

// generateTitle names a new session. Failures leave the default title.
func (o *Orchestrator) generateTitle(ctx context.Context, sessionID, query string) {
	resp, err := o.chat.Chat(ctx, ai.ChatRequest{
		Messages: []ai.Message{
			{Role: ai.RoleSystem, Content: "Write a title of at most six words for a conversation that starts with the user's message. Reply with the title only."},
			{Role: ai.RoleUser, Content: query},
		},
		Temperature: 0.3,
		MaxTokens:   20,
	})
	if err != nil {
		log.Printf("[Assistant] Title generation failed for session %s: %v", sessionID, err)
		return
	}
	title := cleanTitle(resp.Content)
	if title == "" {
		return
	}
	if err := o.sessions.UpdateTitle(sessionID, title); err != nil {
		log.Printf("[Assistant] Failed to save title for session %s: %v", sessionID, err)
	}
}

func cleanTitle(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	s = strings.Trim(s, "\"'` *#.")
	s = strings.TrimPrefix(s, "Title: ")
	return truncate(strings.TrimSpace(s), titleMaxRunes)
}

// withCallIDs fills IDs some providers leave empty so results can be matched
func withCallIDs(calls []ai.ToolCall, iteration int) []ai.ToolCall {
	out := make([]ai.ToolCall, len(calls))
	for i, c := range calls {
		if c.ID == "" {
			c.ID = fmt.Sprintf("call_%d_%d", iteration, i)
		}
		out[i] = c
	}
	return out
}

func appendUnique(list []string, name string) []string {
	for _, n := range list {
		if n == name {
			return list
		}
	}
	return append(list, name)
}

// ListSessions returns the caller's sessions, most recently active first
func (o *Orchestrator) ListSessions(userID string, limit int) ([]*domain.Session, error) {
	return o.sessions.ListSessions(userID, limit)
}

// SessionMessages returns a session's stored rows after an ownership check
func (o *Orchestrator) SessionMessages(userID, sessionID string) ([]*domain.StoredMessage, error) {
	session, err := o.sessions.FindSession(userID, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	return o.sessions.RecentMessages(sessionID, sessionMessagesMax)
}

type timezoneKey struct{}

// WithTimezone carries the caller's IANA timezone to tool handlers
func WithTimezone(ctx context.Context, tz string) context.Context {
	return context.WithValue(ctx, timezoneKey{}, tz)
}

func TimezoneFromContext(ctx context.Context) (string, bool) {
	tz, ok := ctx.Value(timezoneKey{}).(string)
	return tz, ok && tz != ""
}
