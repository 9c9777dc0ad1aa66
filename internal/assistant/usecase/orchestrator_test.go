package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"nexus-backend/internal/assistant/domain"
	authdomain "nexus-backend/internal/auth/domain"
	"nexus-backend/pkg/ai"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSessions struct {
	sessions map[string]*domain.Session
	rows     []*domain.StoredMessage
	titles   map[string]string
	touched  int
	next     int
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{sessions: map[string]*domain.Session{}, titles: map[string]string{}}
}

func (f *fakeSessions) CreateSession(s *domain.Session) error {
	f.next++
	s.ID = fmt.Sprintf("s%d", f.next)
	f.sessions[s.ID] = s
	return nil
}

func (f *fakeSessions) FindSession(userID, id string) (*domain.Session, error) {
	s, ok := f.sessions[id]
	if !ok || s.UserID != userID {
		return nil, nil
	}
	return s, nil
}

func (f *fakeSessions) ListSessions(userID string, limit int) ([]*domain.Session, error) {
	var out []*domain.Session
	for _, s := range f.sessions {
		if s.UserID == userID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakeSessions) UpdateTitle(id, title string) error {
	f.titles[id] = title
	return nil
}

func (f *fakeSessions) TouchSession(id string) error {
	f.touched++
	return nil
}

func (f *fakeSessions) AppendMessages(rows ...*domain.StoredMessage) error {
	f.rows = append(f.rows, rows...)
	return nil
}

func (f *fakeSessions) RecentMessages(sessionID string, limit int) ([]*domain.StoredMessage, error) {
	var out []*domain.StoredMessage
	for _, r := range f.rows {
		if r.SessionID == sessionID {
			out = append(out, r)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

// scriptedChat replays turns for tool-enabled requests and answers title requests separately
type scriptedChat struct {
	turns    []*ai.ChatResponse
	err      error
	titleErr error
	requests []ai.ChatRequest
	titles   int
	i        int
}

func (s *scriptedChat) Chat(ctx context.Context, req ai.ChatRequest) (*ai.ChatResponse, error) {
	if len(req.Tools) == 0 {
		s.titles++
		if s.titleErr != nil {
			return nil, s.titleErr
		}
		return &ai.ChatResponse{Content: "\"Invoice follow-up\"\n"}, nil
	}
	req.Messages = append([]ai.Message(nil), req.Messages...)
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	if s.i >= len(s.turns) {
		return s.turns[len(s.turns)-1], nil
	}
	r := s.turns[s.i]
	s.i++
	return r, nil
}

func toolTurn(calls ...ai.ToolCall) *ai.ChatResponse {
	return &ai.ChatResponse{ToolCalls: calls}
}

func call(id string, name ToolName, args string) ai.ToolCall {
	return ai.ToolCall{ID: id, Name: string(name), Arguments: json.RawMessage(args)}
}

func newTestOrchestrator(chat *scriptedChat, handlers map[ToolName]Handler) (*Orchestrator, *fakeSessions) {
	sessions := newFakeSessions()
	o := NewOrchestrator(chat, NewExecutor(handlers), sessions)
	o.now = func() time.Time { return time.Date(2026, 10, 19, 9, 30, 0, 0, time.UTC) }
	return o, sessions
}

func TestAskRunsToolCallsSequentiallyAndBatchesResults(t *testing.T) {
	var order []string
	var searchArgs Args
	handlers := map[ToolName]Handler{
		ToolListTasks: func(ctx context.Context, args Args) string {
			uid, _ := authdomain.UserIDFromContext(ctx)
			order = append(order, "list_tasks:"+uid)
			return `{"tasks":[],"total":0}`
		},
		ToolSearchInbox: func(ctx context.Context, args Args) string {
			order = append(order, "search_inbox")
			searchArgs = args
			return `{"threads":[]}`
		},
	}
	chat := &scriptedChat{turns: []*ai.ChatResponse{
		toolTurn(call("c1", ToolListTasks, `{}`), call("c2", ToolSearchInbox, `[1,2]`)),
		{Content: `{"textSummary":"Nothing is waiting on you.","widgets":[],"citations":["t1"]}`},
	}}
	o, sessions := newTestOrchestrator(chat, handlers)

	resp, err := o.Ask(context.Background(), "u1", Query{Query: "anything pending?", Timezone: "America/New_York"})
	require.NoError(t, err)

	assert.Equal(t, []string{"list_tasks:u1", "search_inbox"}, order)
	assert.Equal(t, Args{}, searchArgs)
	assert.Equal(t, "Nothing is waiting on you.", resp.TextSummary)
	require.Len(t, resp.Citations, 1)
	assert.Equal(t, []string{"list_tasks", "search_inbox"}, resp.ToolsUsed)
	assert.Equal(t, "s1", resp.SessionID)

	// user, assistant tool calls, one batched tool row, final answer
	require.Len(t, sessions.rows, 4)
	assert.Equal(t, ai.RoleUser, sessions.rows[0].Role)
	assert.Len(t, sessions.rows[1].ToolCalls, 2)
	assert.Equal(t, ai.RoleTool, sessions.rows[2].Role)
	require.Len(t, sessions.rows[2].ToolResults, 2)
	assert.Equal(t, "c2", sessions.rows[2].ToolResults[1].ToolCallID)

	// second model call saw both tool results as separate messages
	require.Len(t, chat.requests, 2)
	second := chat.requests[1].Messages
	assert.Equal(t, ai.RoleTool, second[len(second)-1].Role)
	assert.Equal(t, "c2", second[len(second)-1].ToolCallID)
	assert.Equal(t, "c1", second[len(second)-2].ToolCallID)

	assert.Contains(t, chat.requests[0].Messages[0].Content, "Monday, October 19, 2026 05:30")
	assert.Contains(t, chat.requests[0].Messages[0].Content, "America/New_York")
	assert.Equal(t, "Invoice follow-up", sessions.titles["s1"])
	assert.Equal(t, 1, sessions.touched)
}

func TestAskFallsBackWhenIterationsRunOut(t *testing.T) {
	calls := 0
	handlers := map[ToolName]Handler{
		ToolListTasks: func(ctx context.Context, args Args) string { calls++; return `{}` },
	}
	chat := &scriptedChat{turns: []*ai.ChatResponse{toolTurn(call("", ToolListTasks, `{}`))}}
	o, sessions := newTestOrchestrator(chat, handlers)

	resp, err := o.Ask(context.Background(), "u1", Query{Query: "loop forever"})
	require.NoError(t, err)

	assert.Equal(t, defaultMaxIterations, calls)
	assert.Len(t, chat.requests, defaultMaxIterations)
	assert.Equal(t, domain.ExhaustedMessage, resp.TextSummary)
	assert.NotNil(t, resp.Widgets)

	last := sessions.rows[len(sessions.rows)-1]
	assert.Equal(t, ai.RoleAssistant, last.Role)
	assert.Equal(t, domain.ExhaustedMessage, last.Content)
	// generated ids keep calls and results paired
	assert.Equal(t, "call_0_0", sessions.rows[1].ToolCalls[0].ID)
	assert.Equal(t, "call_0_0", sessions.rows[2].ToolResults[0].ToolCallID)
}

func TestSetLimitsBoundsTheLoop(t *testing.T) {
	handlers := map[ToolName]Handler{
		ToolListTasks: func(ctx context.Context, args Args) string { return `{}` },
	}
	chat := &scriptedChat{turns: []*ai.ChatResponse{toolTurn(call("c1", ToolListTasks, `{}`))}}
	o, _ := newTestOrchestrator(chat, handlers)
	o.SetLimits(2, 0)

	_, err := o.Ask(context.Background(), "u1", Query{Query: "loop"})
	require.NoError(t, err)
	assert.Len(t, chat.requests, 2)
	assert.Equal(t, defaultHistoryLimit, o.historyLimit)
}

func TestAskKeepsPlainTextAnswer(t *testing.T) {
	chat := &scriptedChat{turns: []*ai.ChatResponse{{Content: "You have two meetings today."}}}
	o, _ := newTestOrchestrator(chat, nil)

	resp, err := o.Ask(context.Background(), "u1", Query{Query: "what's today like?"})
	require.NoError(t, err)
	assert.Equal(t, "You have two meetings today.", resp.TextSummary)
	assert.Empty(t, resp.Widgets)
	assert.Empty(t, resp.ToolsUsed)
	assert.NotNil(t, resp.ToolsUsed)
}

func TestAskFailsOnModelError(t *testing.T) {
	chat := &scriptedChat{err: errors.New("upstream 503")}
	o, sessions := newTestOrchestrator(chat, nil)

	_, err := o.Ask(context.Background(), "u1", Query{Query: "hello"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream 503")
	assert.Equal(t, 0, chat.titles)
	// only the user message was stored
	assert.Len(t, sessions.rows, 1)
}

func TestAskTitleFailureIsNotFatal(t *testing.T) {
	chat := &scriptedChat{
		turns:    []*ai.ChatResponse{{Content: `{"textSummary":"Hi!"}`}},
		titleErr: errors.New("quota"),
	}
	o, sessions := newTestOrchestrator(chat, nil)

	resp, err := o.Ask(context.Background(), "u1", Query{Query: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "Hi!", resp.TextSummary)
	assert.Empty(t, sessions.titles)
}

func TestAskContinuesExistingSession(t *testing.T) {
	handlers := map[ToolName]Handler{
		ToolSearchInbox: func(ctx context.Context, args Args) string { return `{"threads":[{"id":"t1"}]}` },
	}
	chat := &scriptedChat{turns: []*ai.ChatResponse{
		toolTurn(call("c1", ToolSearchInbox, `{"query":"dana"}`)),
		{Content: `{"textSummary":"Found Dana's thread."}`},
		{Content: `{"textSummary":"It was about the renewal."}`},
	}}
	o, _ := newTestOrchestrator(chat, handlers)

	first, err := o.Ask(context.Background(), "u1", Query{Query: "find dana's email"})
	require.NoError(t, err)

	second, err := o.Ask(context.Background(), "u1", Query{Query: "what was it about?", SessionID: first.SessionID})
	require.NoError(t, err)
	assert.Equal(t, first.SessionID, second.SessionID)
	assert.Equal(t, 1, chat.titles)

	history := chat.requests[2].Messages
	var roles []string
	for _, m := range history[1:] {
		roles = append(roles, string(m.Role))
	}
	assert.Equal(t, "user,assistant,tool,assistant,user", strings.Join(roles, ","))
}

func TestAskRejectsForeignSession(t *testing.T) {
	chat := &scriptedChat{turns: []*ai.ChatResponse{{Content: "ok"}}}
	o, sessions := newTestOrchestrator(chat, nil)
	sessions.sessions["s9"] = &domain.Session{ID: "s9", UserID: "someone-else"}

	_, err := o.Ask(context.Background(), "u1", Query{Query: "hi", SessionID: "s9"})
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = o.SessionMessages("u1", "s9")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = o.Ask(context.Background(), "u1", Query{Query: "   "})
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestCleanTitle(t *testing.T) {
	assert.Equal(t, "Invoice follow-up", cleanTitle("\"Invoice follow-up.\"\nextra"))
	assert.Equal(t, "Q3 planning", cleanTitle("Title: Q3 planning"))
	assert.Equal(t, "", cleanTitle("  "))
}
