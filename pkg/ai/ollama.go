package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OllamaService implements ChatService and Embedder using an Ollama server
type OllamaService struct {
	getBaseURL     func() string // Dynamic getter for BaseURL
	getModel       func() string // Dynamic getter for Model
	embeddingModel string
	httpClient     *http.Client
}

// NewOllamaService creates a new Ollama service
func NewOllamaService(baseURL, model string) *OllamaService {
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	if model == "" {
		model = "llama3.1"
	}
	return NewOllamaServiceWithGetters(
		func() string { return baseURL },
		func() string { return model },
	)
}

// NewOllamaServiceWithGetters creates a new Ollama service whose endpoint and model
// can be changed at runtime through the settings API
func NewOllamaServiceWithGetters(getBaseURL, getModel func() string) *OllamaService {
	return &OllamaService{
		getBaseURL:     getBaseURL,
		getModel:       getModel,
		embeddingModel: "nomic-embed-text",
		httpClient:     &http.Client{Timeout: 120 * time.Second},
	}
}

// SetEmbeddingModel overrides the model used by Embed
func (o *OllamaService) SetEmbeddingModel(model string) {
	if model != "" {
		o.embeddingModel = model
	}
}

type ollamaToolCall struct {
	ID       string `json:"id,omitempty"`
	Function struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	} `json:"function"`
}

type ollamaChatMessage struct {
	Role      string           `json:"role"`
	Content   string           `json:"content"`
	ToolCalls []ollamaToolCall `json:"tool_calls,omitempty"`
	ToolName  string           `json:"tool_name,omitempty"`
}

type ollamaTool struct {
	Type     string         `json:"type"`
	Function ToolDefinition `json:"function"`
}

type ollamaChatRequest struct {
	Model    string              `json:"model"`
	Messages []ollamaChatMessage `json:"messages"`
	Tools    []ollamaTool        `json:"tools,omitempty"`
	Stream   bool                `json:"stream"`
	Format   string              `json:"format,omitempty"`
	Options  map[string]any      `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Message ollamaChatMessage `json:"message"`
	Done    bool              `json:"done"`
	Error   string            `json:"error"`
}

// Chat implements ChatService against /api/chat
func (o *OllamaService) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	payload := ollamaChatRequest{
		Model:    o.getModel(),
		Messages: toOllamaMessages(req.Messages),
		Stream:   false,
	}
	for _, tool := range req.Tools {
		payload.Tools = append(payload.Tools, ollamaTool{Type: "function", Function: tool})
	}
	if req.JSONResponse {
		payload.Format = "json"
	}
	options := map[string]any{}
	if req.Temperature > 0 {
		options["temperature"] = req.Temperature
	}
	if req.MaxTokens > 0 {
		options["num_predict"] = req.MaxTokens
	}
	if len(options) > 0 {
		payload.Options = options
	}

	var result ollamaChatResponse
	if err := o.post(ctx, "/api/chat", payload, &result); err != nil {
		return nil, err
	}
	if result.Error != "" {
		return nil, fmt.Errorf("ollama error: %s", result.Error)
	}

	resp := &ChatResponse{Content: result.Message.Content}
	for i, tc := range result.Message.ToolCalls {
		id := tc.ID
		if id == "" {
			id = fmt.Sprintf("call_%d_%d", time.Now().UnixNano(), i)
		}
		resp.ToolCalls = append(resp.ToolCalls, ToolCall{
			ID:        id,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return resp, nil
}

// Embed implements Embedder against /api/embed
func (o *OllamaService) Embed(ctx context.Context, text string) ([]float32, error) {
	payload := map[string]any{
		"model": o.embeddingModel,
		"input": text,
	}
	var result struct {
		Embeddings [][]float32 `json:"embeddings"`
		Error      string      `json:"error"`
	}
	if err := o.post(ctx, "/api/embed", payload, &result); err != nil {
		return nil, err
	}
	if result.Error != "" {
		return nil, fmt.Errorf("ollama error: %s", result.Error)
	}
	if len(result.Embeddings) == 0 {
		return nil, fmt.Errorf("ollama returned no embeddings")
	}
	return result.Embeddings[0], nil
}

func (o *OllamaService) post(ctx context.Context, path string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	url := strings.TrimRight(o.getBaseURL(), "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ollama request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama API error (%d): %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

func toOllamaMessages(msgs []Message) []ollamaChatMessage {
	out := make([]ollamaChatMessage, 0, len(msgs))
	for _, m := range msgs {
		om := ollamaChatMessage{
			Role:    string(m.Role),
			Content: m.Content,
		}
		if m.Role == RoleTool {
			om.ToolName = m.Name
		}
		for _, tc := range m.ToolCalls {
			var call ollamaToolCall
			call.ID = tc.ID
			call.Function.Name = tc.Name
			call.Function.Arguments = tc.Arguments
			if len(call.Function.Arguments) == 0 {
				call.Function.Arguments = json.RawMessage(`{}`)
			}
			om.ToolCalls = append(om.ToolCalls, call)
		}
		out = append(out, om)
	}
	return out
}
