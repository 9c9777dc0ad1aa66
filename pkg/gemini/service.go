package gemini

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

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// FunctionCall is a model-issued call in a "model" turn
type FunctionCall struct {
	Name string          `json:"name"`
	Args json.RawMessage `json:"args,omitempty"`
}

// FunctionResponse carries a tool result back to the model
type FunctionResponse struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

type Part struct {
	Text             string            `json:"text,omitempty"`
	FunctionCall     *FunctionCall     `json:"functionCall,omitempty"`
	FunctionResponse *FunctionResponse `json:"functionResponse,omitempty"`
}

type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

type FunctionDeclaration struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type Tool struct {
	FunctionDeclarations []FunctionDeclaration `json:"functionDeclarations"`
}

type GenerationConfig struct {
	Temperature      float64 `json:"temperature,omitempty"`
	MaxOutputTokens  int     `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
}

type GenerateRequest struct {
	SystemInstruction *Content          `json:"systemInstruction,omitempty"`
	Contents          []Content         `json:"contents"`
	Tools             []Tool            `json:"tools,omitempty"`
	GenerationConfig  *GenerationConfig `json:"generationConfig,omitempty"`
}

type GenerateResponse struct {
	Candidates []struct {
		Content      Content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
}

type GeminiService struct {
	ApiKey         string
	Model          string
	EmbeddingModel string
	BaseURL        string
	httpClient     *http.Client
}

func NewGeminiService(apiKey string) *GeminiService {
	return &GeminiService{
		ApiKey:         apiKey,
		Model:          "gemini-2.5-flash",
		EmbeddingModel: "text-embedding-004",
		BaseURL:        defaultBaseURL,
		httpClient:     &http.Client{Timeout: 90 * time.Second},
	}
}

// GenerateContent calls models/{model}:generateContent
func (g *GeminiService) GenerateContent(ctx context.Context, req GenerateRequest) (*GenerateResponse, error) {
	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", strings.TrimRight(g.BaseURL, "/"), g.Model, g.ApiKey)

	var result GenerateResponse
	if err := g.post(ctx, url, req, &result); err != nil {
		return nil, err
	}
	if len(result.Candidates) == 0 {
		return nil, fmt.Errorf("no candidates returned")
	}
	return &result, nil
}

// EmbedContent calls models/{model}:embedContent and returns the embedding values
func (g *GeminiService) EmbedContent(ctx context.Context, text string) ([]float32, error) {
	url := fmt.Sprintf("%s/models/%s:embedContent?key=%s", strings.TrimRight(g.BaseURL, "/"), g.EmbeddingModel, g.ApiKey)

	payload := map[string]any{
		"model":   "models/" + g.EmbeddingModel,
		"content": Content{Parts: []Part{{Text: text}}},
	}
	var result struct {
		Embedding struct {
			Values []float32 `json:"values"`
		} `json:"embedding"`
	}
	if err := g.post(ctx, url, payload, &result); err != nil {
		return nil, err
	}
	if len(result.Embedding.Values) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}
	return result.Embedding.Values, nil
}

func (g *GeminiService) post(ctx context.Context, url string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("Gemini API error (%d): %s", resp.StatusCode, string(respBody))
	}

	return json.Unmarshal(respBody, out)
}
