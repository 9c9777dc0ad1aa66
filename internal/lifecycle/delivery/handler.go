package delivery

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"nexus-backend/internal/lifecycle/domain"

	"github.com/gin-gonic/gin"
)

type EventRequest struct {
	Type     domain.EventType `json:"type" binding:"required"`
	Channel  string           `json:"channel"`
	ThreadID string           `json:"threadId"`
	Draft    string           `json:"draft"`
	Final    string           `json:"final"`
}

// LifecycleHandler accepts events for the authenticated caller. Processing is
// detached from the request.
type LifecycleHandler struct {
	handler EventHandler
}

func NewLifecycleHandler(handler EventHandler) *LifecycleHandler {
	return &LifecycleHandler{handler: handler}
}

// PostEvent queues a lifecycle event
// POST /api/lifecycle/events
func (h *LifecycleHandler) PostEvent(c *gin.Context) {
	var req EventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	e := domain.Event{
		Type:       req.Type,
		UserID:     c.GetString("userID"),
		Channel:    req.Channel,
		ThreadID:   req.ThreadID,
		Draft:      req.Draft,
		Final:      req.Final,
		OccurredAt: time.Now(),
	}
	if err := e.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	go func() {
		if err := h.handler.Handle(context.Background(), e); err != nil && !errors.Is(err, domain.ErrInvalidEvent) {
			log.Printf("[Lifecycle] Failed to handle %s for user %s: %v", e.Type, e.UserID, err)
		}
	}()
	c.JSON(http.StatusAccepted, gin.H{"message": "Event accepted"})
}
