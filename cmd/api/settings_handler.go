package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

const ollamaProbeTimeout = 5 * time.Second

var errInvalidEndpoint = errors.New("endpoint must be an absolute http(s) URL")

// RuntimeConfig holds the LLM settings that can change while the server runs
type RuntimeConfig struct {
	OllamaBaseURL string `json:"ollama_base_url"`
	OllamaModel   string `json:"ollama_model,omitempty"`
}

var (
	runtimeConfig     RuntimeConfig
	runtimeConfigLock sync.RWMutex
)

func InitRuntimeConfig(ollamaBaseURL, ollamaModel string) {
	runtimeConfigLock.Lock()
	defer runtimeConfigLock.Unlock()
	runtimeConfig = RuntimeConfig{
		OllamaBaseURL: strings.TrimRight(ollamaBaseURL, "/"),
		OllamaModel:   ollamaModel,
	}
}

func currentRuntimeConfig() RuntimeConfig {
	runtimeConfigLock.RLock()
	defer runtimeConfigLock.RUnlock()
	return runtimeConfig
}

// GetRuntimeOllamaBaseURL is read by the Ollama client on every request
func GetRuntimeOllamaBaseURL() string {
	return currentRuntimeConfig().OllamaBaseURL
}

func GetRuntimeOllamaModel() string {
	return currentRuntimeConfig().OllamaModel
}

type UpdateOllamaSettingsRequest struct {
	OllamaBaseURL string `json:"ollama_base_url" binding:"required"`
	OllamaModel   string `json:"ollama_model,omitempty"`
}

// GET /api/settings/ollama
func GetOllamaSettings(c *gin.Context) {
	c.JSON(http.StatusOK, currentRuntimeConfig())
}

// PUT /api/settings/ollama
func UpdateOllamaSettings(c *gin.Context) {
	var req UpdateOllamaSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	baseURL, err := normalizeBaseURL(req.OllamaBaseURL)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	runtimeConfigLock.Lock()
	runtimeConfig.OllamaBaseURL = baseURL
	if req.OllamaModel != "" {
		runtimeConfig.OllamaModel = req.OllamaModel
	}
	updated := runtimeConfig
	runtimeConfigLock.Unlock()

	log.Printf("[Settings] Ollama endpoint set to %s (model %q) by user %s", updated.OllamaBaseURL, updated.OllamaModel, c.GetString("userID"))
	c.JSON(http.StatusOK, gin.H{
		"message":         "Ollama settings updated successfully",
		"ollama_base_url": updated.OllamaBaseURL,
		"ollama_model":    updated.OllamaModel,
	})
}

// TestOllamaConnection checks the endpoint is reachable and serves the configured model
// POST /api/settings/ollama/test
func TestOllamaConnection(c *gin.Context) {
	var req struct {
		OllamaBaseURL string `json:"ollama_base_url"`
	}
	// An empty body probes the current settings
	_ = c.ShouldBindJSON(&req)

	current := currentRuntimeConfig()
	target := current.OllamaBaseURL
	if req.OllamaBaseURL != "" {
		target = req.OllamaBaseURL
	}
	baseURL, err := normalizeBaseURL(target)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"connected": false, "error": err.Error()})
		return
	}

	models, status, err := listOllamaModels(c.Request.Context(), baseURL)
	if err != nil {
		body := gin.H{"connected": false, "error": err.Error()}
		if status != 0 {
			body["status_code"] = status
		}
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}

	modelAvailable := current.OllamaModel == ""
	for _, m := range models {
		if m == current.OllamaModel || strings.TrimSuffix(m, ":latest") == current.OllamaModel {
			modelAvailable = true
			break
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"connected":       true,
		"ollama_base_url": baseURL,
		"models":          models,
		"model_available": modelAvailable,
	})
}

func normalizeBaseURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return "", errInvalidEndpoint
	}
	return strings.TrimRight(u.String(), "/"), nil
}

// listOllamaModels calls /api/tags and returns the model names
func listOllamaModels(ctx context.Context, baseURL string) ([]string, int, error) {
	ctx, cancel := context.WithTimeout(ctx, ollamaProbeTimeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/api/tags", nil)
	if err != nil {
		return nil, 0, err
	}
	resp, err := http.DefaultClient.Do(httpReq)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, resp.StatusCode, fmt.Errorf("ollama returned %s", resp.Status)
	}

	var tags struct {
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, resp.StatusCode, err
	}
	names := make([]string, 0, len(tags.Models))
	for _, m := range tags.Models {
		names = append(names, m.Name)
	}
	return names, resp.StatusCode, nil
}
