package ai

import (
	"fmt"

	"nexus-backend/pkg/gemini"
)

// DynamicConfig holds AI provider configuration. The Ollama endpoint and model are read
// through getters so the settings API can change them without a restart.
type DynamicConfig struct {
	Provider ProviderType // "gemini", "ollama" or "auto"

	GeminiAPIKey         string
	GeminiModel          string
	GeminiEmbeddingModel string

	GetOllamaBaseURL     func() string
	GetOllamaModel       func() string
	OllamaEmbeddingModel string
}

// Provider is what the rest of the backend depends on: chat plus embeddings
type Provider interface {
	ChatService
	Embedder
}

// NewProvider creates a Provider based on the config.
// Switch AI provider by changing config.Provider.
func NewProvider(cfg DynamicConfig) (Provider, error) {
	var geminiChat *GeminiChat
	if cfg.GeminiAPIKey != "" {
		client := gemini.NewGeminiService(cfg.GeminiAPIKey)
		if cfg.GeminiModel != "" {
			client.Model = cfg.GeminiModel
		}
		if cfg.GeminiEmbeddingModel != "" {
			client.EmbeddingModel = cfg.GeminiEmbeddingModel
		}
		geminiChat = NewGeminiChat(client)
	}

	var ollama *OllamaService
	if cfg.GetOllamaBaseURL != nil && cfg.GetOllamaModel != nil {
		ollama = NewOllamaServiceWithGetters(cfg.GetOllamaBaseURL, cfg.GetOllamaModel)
		ollama.SetEmbeddingModel(cfg.OllamaEmbeddingModel)
	}

	switch cfg.Provider {
	case ProviderGemini:
		if geminiChat == nil {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for Gemini provider")
		}
		return geminiChat, nil

	case ProviderOllama:
		if ollama == nil {
			return nil, fmt.Errorf("ollama endpoint is not configured")
		}
		return ollama, nil

	default:
		// Auto: route between both providers when possible
		if geminiChat != nil && ollama != nil {
			return NewFallbackService(geminiChat, ollama), nil
		}
		if geminiChat != nil {
			return geminiChat, nil
		}
		if ollama != nil {
			return ollama, nil
		}
		return nil, fmt.Errorf("no AI provider configured")
	}
}
