package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func settingsRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/settings", GetOllamaSettings)
	r.PUT("/settings", UpdateOllamaSettings)
	r.POST("/settings/test", TestOllamaConnection)
	return r
}

func TestUpdateOllamaSettingsValidatesEndpoint(t *testing.T) {
	InitRuntimeConfig("http://localhost:11434/", "llama3")
	r := settingsRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/settings", strings.NewReader(`{"ollama_base_url":"localhost:11434"}`)))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "http://localhost:11434", GetRuntimeOllamaBaseURL())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/settings", strings.NewReader(`{"ollama_base_url":"http://gpu-box:11434/","ollama_model":"qwen2.5"}`)))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "http://gpu-box:11434", GetRuntimeOllamaBaseURL())
	assert.Equal(t, "qwen2.5", GetRuntimeOllamaModel())

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/settings", nil))
	var got RuntimeConfig
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, RuntimeConfig{OllamaBaseURL: "http://gpu-box:11434", OllamaModel: "qwen2.5"}, got)
}

func TestOllamaConnectionReportsModelAvailability(t *testing.T) {
	ollama := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/tags", r.URL.Path)
		_, _ = w.Write([]byte(`{"models":[{"name":"llama3:latest"},{"name":"nomic-embed-text:latest"}]}`))
	}))
	defer ollama.Close()

	InitRuntimeConfig(ollama.URL, "llama3")
	r := settingsRouter()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/settings/test", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Connected      bool     `json:"connected"`
		Models         []string `json:"models"`
		ModelAvailable bool     `json:"model_available"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.Connected)
	assert.True(t, body.ModelAvailable)
	assert.Len(t, body.Models, 2)
}

func TestOllamaConnectionUnreachable(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer down.Close()

	InitRuntimeConfig(down.URL, "")
	w := httptest.NewRecorder()
	settingsRouter().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/settings/test", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"status_code":502`)
}
