package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	schedulingdomain "nexus-backend/internal/scheduling/domain"
	"nexus-backend/pkg/ai"
	"nexus-backend/pkg/metrics"
)

// Handler runs one tool and returns its serialized result. Failures are
// reported inside the payload, never as a Go error.
type Handler func(ctx context.Context, args Args) string

// Executor dispatches tool calls by name
type Executor struct {
	handlers map[ToolName]Handler
	metrics  *metrics.Metrics
}

func NewExecutor(handlers map[ToolName]Handler) *Executor {
	return &Executor{handlers: handlers}
}

func (e *Executor) SetMetrics(m *metrics.Metrics) {
	e.metrics = m
}

// Execute runs call and always returns a payload for the model
func (e *Executor) Execute(ctx context.Context, call ai.ToolCall) (out string) {
	handler, ok := e.handlers[ToolName(call.Name)]
	if !ok {
		log.Printf("[Assistant] Unknown tool requested: %q", call.Name)
		e.metrics.IncToolCall(call.Name, "unknown")
		return errorPayload("Unknown tool")
	}

	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Assistant] Tool %s panicked: %v", call.Name, r)
			out = errorPayload("Tool failed")
		}
		outcome := "ok"
		if strings.HasPrefix(out, `{"error"`) {
			outcome = "error"
		}
		e.metrics.IncToolCall(call.Name, outcome)
	}()

	return handler(ctx, Args(ai.ParseArguments(call.Arguments)))
}

func errorPayload(msg string) string {
	b, _ := json.Marshal(map[string]string{"error": msg})
	return string(b)
}

func encode(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return errorPayload(fmt.Sprintf("encode result: %v", err))
	}
	return string(b)
}

// Args is a decoded tool argument object. Accessors tolerate missing keys and
// loosely typed values.
type Args map[string]any

func (a Args) String(key string) string {
	switch v := a[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		return fmt.Sprintf("%g", v)
	case nil:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

func (a Args) Int(key string) int {
	switch v := a[key].(type) {
	case float64:
		return int(v)
	case string:
		var n int
		if _, err := fmt.Sscanf(strings.TrimSpace(v), "%d", &n); err == nil {
			return n
		}
	}
	return 0
}

func (a Args) Bool(key string) bool {
	switch v := a[key].(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(v, "true")
	}
	return false
}

// Strings accepts a JSON array or a comma separated string
func (a Args) Strings(key string) []string {
	var out []string
	switch v := a[key].(type) {
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	case string:
		for _, s := range strings.Split(v, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// Time parses key in loc. A missing value is nil; an unparseable one is an error.
func (a Args) Time(key string, loc *time.Location) (*time.Time, error) {
	raw := a.String(key)
	if raw == "" {
		return nil, nil
	}
	t, err := schedulingdomain.ParseDateTime(raw, loc)
	if err != nil {
		return nil, fmt.Errorf("invalid %s %q", key, raw)
	}
	return &t, nil
}
