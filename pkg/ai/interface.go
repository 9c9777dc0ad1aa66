package ai

import (
	"context"
	"encoding/json"
)

// Role is the author of a chat message
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a model request to invoke a named tool.
// Arguments stays opaque until the tool handler parses it.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// Message is the canonical chat message shared by every provider
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}

// ToolDefinition describes a callable capability to the model.
// Parameters is a JSON schema object.
type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ChatRequest carries the message list, optional tool catalog and generation controls
type ChatRequest struct {
	Messages    []Message
	Tools       []ToolDefinition
	Temperature float64
	MaxTokens   int
	// JSONResponse asks the provider to emit a JSON object only
	JSONResponse bool
}

// ChatResponse is either final text content, tool call requests, or both
type ChatResponse struct {
	Content   string
	ToolCalls []ToolCall
}

// ChatService is the interface every language-model provider implements
// (Gemini, Ollama, or a routing wrapper around both).
type ChatService interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// Embedder turns text into an embedding vector
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ProviderType represents the AI provider type
type ProviderType string

const (
	ProviderGemini ProviderType = "gemini"
	ProviderOllama ProviderType = "ollama"
	ProviderAuto   ProviderType = "auto"
)
