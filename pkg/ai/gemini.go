package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"nexus-backend/pkg/gemini"
)

// GeminiChat adapts the Gemini REST client to ChatService and Embedder
type GeminiChat struct {
	client *gemini.GeminiService
}

func NewGeminiChat(client *gemini.GeminiService) *GeminiChat {
	return &GeminiChat{client: client}
}

func (g *GeminiChat) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	greq := gemini.GenerateRequest{}

	var system []string
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			system = append(system, m.Content)
		case RoleUser:
			greq.Contents = append(greq.Contents, gemini.Content{Role: "user", Parts: []gemini.Part{{Text: m.Content}}})
		case RoleAssistant:
			content := gemini.Content{Role: "model"}
			if m.Content != "" {
				content.Parts = append(content.Parts, gemini.Part{Text: m.Content})
			}
			for _, tc := range m.ToolCalls {
				args := tc.Arguments
				if len(args) == 0 {
					args = json.RawMessage(`{}`)
				}
				content.Parts = append(content.Parts, gemini.Part{FunctionCall: &gemini.FunctionCall{Name: tc.Name, Args: args}})
			}
			if len(content.Parts) > 0 {
				greq.Contents = append(greq.Contents, content)
			}
		case RoleTool:
			part := gemini.Part{FunctionResponse: &gemini.FunctionResponse{Name: m.Name, Response: toolResponseObject(m.Content)}}
			// Consecutive tool results answer one model turn and must share a content block
			if n := len(greq.Contents); n > 0 && greq.Contents[n-1].Role == "user" && greq.Contents[n-1].Parts[0].FunctionResponse != nil {
				greq.Contents[n-1].Parts = append(greq.Contents[n-1].Parts, part)
			} else {
				greq.Contents = append(greq.Contents, gemini.Content{Role: "user", Parts: []gemini.Part{part}})
			}
		}
	}
	if len(system) > 0 {
		greq.SystemInstruction = &gemini.Content{Parts: []gemini.Part{{Text: strings.Join(system, "\n\n")}}}
	}

	if len(req.Tools) > 0 {
		decls := make([]gemini.FunctionDeclaration, 0, len(req.Tools))
		for _, t := range req.Tools {
			decls = append(decls, gemini.FunctionDeclaration{Name: t.Name, Description: t.Description, Parameters: t.Parameters})
		}
		greq.Tools = []gemini.Tool{{FunctionDeclarations: decls}}
	}

	cfg := &gemini.GenerationConfig{Temperature: req.Temperature, MaxOutputTokens: req.MaxTokens}
	if req.JSONResponse {
		cfg.ResponseMimeType = "application/json"
	}
	greq.GenerationConfig = cfg

	result, err := g.client.GenerateContent(ctx, greq)
	if err != nil {
		return nil, err
	}

	resp := &ChatResponse{}
	var text []string
	for i, part := range result.Candidates[0].Content.Parts {
		if part.FunctionCall != nil {
			resp.ToolCalls = append(resp.ToolCalls, ToolCall{
				ID:        fmt.Sprintf("call_%d_%d", time.Now().UnixNano(), i),
				Name:      part.FunctionCall.Name,
				Arguments: part.FunctionCall.Args,
			})
			continue
		}
		if part.Text != "" {
			text = append(text, part.Text)
		}
	}
	resp.Content = strings.Join(text, "")
	return resp, nil
}

func (g *GeminiChat) Embed(ctx context.Context, text string) ([]float32, error) {
	return g.client.EmbedContent(ctx, text)
}

// toolResponseObject wraps a serialized tool result into the object Gemini expects
func toolResponseObject(content string) map[string]any {
	var obj map[string]any
	if err := json.Unmarshal([]byte(content), &obj); err == nil && obj != nil {
		return obj
	}
	return map[string]any{"content": content}
}
