package delivery

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"nexus-backend/internal/scheduling/domain"
	"nexus-backend/internal/scheduling/usecase"

	"github.com/gin-gonic/gin"
)

// SchedulingHandler exposes rules and availability
type SchedulingHandler struct {
	service *usecase.Service
}

func NewSchedulingHandler(service *usecase.Service) *SchedulingHandler {
	return &SchedulingHandler{service: service}
}

// GetRules returns the rules in force for the caller
// GET /api/scheduling/rules
func (h *SchedulingHandler) GetRules(c *gin.Context) {
	rules, err := h.service.RulesFor(c.GetString("userID"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rules)
}

// UpdateRules stores a user-level override
// PUT /api/scheduling/rules
func (h *SchedulingHandler) UpdateRules(c *gin.Context) {
	var req domain.Rules
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rules, err := h.service.SaveUserRules(c.GetString("userID"), req)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidRules) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, rules)
}

// GetFreeBusy returns the free/busy timeline
// GET /api/scheduling/free-busy?start=2026-10-19&end=2026-10-24
func (h *SchedulingHandler) GetFreeBusy(c *gin.Context) {
	userID := c.GetString("userID")
	rules, err := h.service.RulesFor(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	loc := rules.Location()
	start, end, ok := parseRange(c, loc)
	if !ok {
		return
	}
	if start == nil {
		now := time.Now().In(loc)
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
		start = &today
	}
	if end == nil {
		e := start.AddDate(0, 0, 7)
		end = &e
	}
	if !end.After(*start) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end must be after start"})
		return
	}

	slots, rules, err := h.service.FreeBusy(userID, *start, *end)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if slots == nil {
		slots = []domain.Slot{}
	}
	c.JSON(http.StatusOK, gin.H{"slots": slots, "rules": rules})
}

// GetAvailableTimes proposes meeting times
// GET /api/scheduling/available?duration=30&count=5
func (h *SchedulingHandler) GetAvailableTimes(c *gin.Context) {
	userID := c.GetString("userID")
	rules, err := h.service.RulesFor(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	start, end, ok := parseRange(c, rules.Location())
	if !ok {
		return
	}
	duration, _ := strconv.Atoi(c.Query("duration"))
	count, _ := strconv.Atoi(c.DefaultQuery("count", "5"))

	offers, rules, err := h.service.AvailableTimes(userID, usecase.AvailabilityQuery{
		Start:           start,
		End:             end,
		DurationMinutes: duration,
		Count:           count,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if offers == nil {
		offers = []domain.Offer{}
	}
	c.JSON(http.StatusOK, gin.H{"slots": offers, "timezone": rules.Timezone})
}

func parseRange(c *gin.Context, loc *time.Location) (*time.Time, *time.Time, bool) {
	var start, end *time.Time
	if s := c.Query("start"); s != "" {
		t, err := domain.ParseDateTime(s, loc)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return nil, nil, false
		}
		start = &t
	}
	if s := c.Query("end"); s != "" {
		t, err := domain.ParseDateTime(s, loc)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return nil, nil, false
		}
		end = &t
	}
	return start, end, true
}
