package delivery

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strconv"

	"nexus-backend/internal/tone/usecase"

	"github.com/gin-gonic/gin"
)

type ToneHandler struct {
	engine *usecase.Engine
}

func NewToneHandler(engine *usecase.Engine) *ToneHandler {
	return &ToneHandler{engine: engine}
}

type FeedbackRequest struct {
	Draft   string `json:"draft" binding:"required"`
	Final   string `json:"final" binding:"required"`
	Channel string `json:"channel"`
}

// GetProfile returns the caller's tone profile
// GET /api/tone/profile
func (h *ToneHandler) GetProfile(c *gin.Context) {
	profile, err := h.engine.GetProfile(c.GetString("userID"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, profile)
}

// Sync starts a historical sync in the background
// POST /api/tone/sync
func (h *ToneHandler) Sync(c *gin.Context) {
	userID := c.GetString("userID")
	go func() {
		if _, err := h.engine.SyncFromSentMail(context.Background(), userID); err != nil {
			log.Printf("[ToneSync] Sync failed for user %s: %v", userID, err)
		}
	}()
	c.JSON(http.StatusAccepted, gin.H{"message": "Tone sync started"})
}

// Feedback learns from an edited draft
// POST /api/tone/feedback
func (h *ToneHandler) Feedback(c *gin.Context) {
	var req FeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.engine.ApplyFeedback(c.Request.Context(), c.GetString("userID"), req.Draft, req.Final, req.Channel)
	if err != nil {
		if errors.Is(err, usecase.ErrEmptyFeedback) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to process feedback, please retry"})
		return
	}
	c.JSON(http.StatusOK, result)
}

// SimilarExemplars returns writing samples closest to the query text
// GET /api/tone/exemplars?q=...&k=3
func (h *ToneHandler) SimilarExemplars(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "q is required"})
		return
	}
	k, _ := strconv.Atoi(c.DefaultQuery("k", "3"))

	exemplars, err := h.engine.SimilarExemplars(c.Request.Context(), c.GetString("userID"), query, k)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"exemplars": exemplars})
}
