package delivery

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"nexus-backend/internal/assistant/domain"
	"nexus-backend/internal/assistant/usecase"

	"github.com/gin-gonic/gin"
)

type AssistantHandler struct {
	orchestrator *usecase.Orchestrator
}

func NewAssistantHandler(orchestrator *usecase.Orchestrator) *AssistantHandler {
	return &AssistantHandler{orchestrator: orchestrator}
}

// Query runs one conversation turn
// POST /api/assistant/query
func (h *AssistantHandler) Query(c *gin.Context) {
	var req usecase.Query
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Timezone == "" {
		req.Timezone = c.GetHeader("X-Timezone")
	}

	userID := c.GetString("userID")
	resp, err := h.orchestrator.Ask(c.Request.Context(), userID, req)
	if err != nil {
		switch {
		case errors.Is(err, usecase.ErrEmptyQuery):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, usecase.ErrSessionNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		default:
			log.Printf("[Assistant] Query failed for user %s: %v", userID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": domain.RetryMessage})
		}
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListSessions returns the caller's conversations
// GET /api/assistant/sessions
func (h *AssistantHandler) ListSessions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	sessions, err := h.orchestrator.ListSessions(c.GetString("userID"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// GetMessages returns the stored rows of one session
// GET /api/assistant/sessions/:id/messages
func (h *AssistantHandler) GetMessages(c *gin.Context) {
	messages, err := h.orchestrator.SessionMessages(c.GetString("userID"), c.Param("id"))
	if errors.Is(err, usecase.ErrSessionNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": messages})
}
