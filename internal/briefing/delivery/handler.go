package delivery

import (
	"net/http"

	"nexus-backend/internal/briefing/usecase"

	"github.com/gin-gonic/gin"
)

type BriefingHandler struct {
	generator *usecase.Generator
}

func NewBriefingHandler(generator *usecase.Generator) *BriefingHandler {
	return &BriefingHandler{generator: generator}
}

// GetBriefing returns today's briefing
// GET /api/briefing?timezone=Europe/Berlin
func (h *BriefingHandler) GetBriefing(c *gin.Context) {
	briefing, err := h.generator.Generate(c.GetString("userID"), c.Query("timezone"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, briefing)
}
