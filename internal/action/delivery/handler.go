package delivery

import (
	"errors"
	"net/http"
	"strconv"

	actiondomain "nexus-backend/internal/action/domain"
	"nexus-backend/internal/action/usecase"

	"github.com/gin-gonic/gin"
)

// ActionHandler exposes the pending action approval flow
type ActionHandler struct {
	manager *usecase.Manager
}

func NewActionHandler(manager *usecase.Manager) *ActionHandler {
	return &ActionHandler{manager: manager}
}

// ListActions returns the user's actions, pending by default
// GET /api/actions?status=pending&limit=50
func (h *ActionHandler) ListActions(c *gin.Context) {
	userID := c.GetString("userID")
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	var status *actiondomain.ActionStatus
	if s := c.DefaultQuery("status", string(actiondomain.StatusPending)); s != "all" {
		st := actiondomain.ActionStatus(s)
		status = &st
	}

	actions, err := h.manager.List(userID, status, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if actions == nil {
		actions = []*actiondomain.PendingAction{}
	}
	c.JSON(http.StatusOK, gin.H{"actions": actions, "count": len(actions)})
}

// ApproveAction executes a pending action
// POST /api/actions/:id/approve
func (h *ActionHandler) ApproveAction(c *gin.Context) {
	result, err := h.manager.Execute(c.Request.Context(), c.GetString("userID"), c.Param("id"))
	h.writeResult(c, result, err)
}

// RejectAction closes a pending action without applying it
// POST /api/actions/:id/reject
func (h *ActionHandler) RejectAction(c *gin.Context) {
	var req struct {
		Reason string `json:"reason"`
	}
	_ = c.ShouldBindJSON(&req)

	result, err := h.manager.Reject(c.Request.Context(), c.GetString("userID"), c.Param("id"), req.Reason)
	h.writeResult(c, result, err)
}

// GetActionLog returns the audit trail
// GET /api/actions/log?limit=50
func (h *ActionHandler) GetActionLog(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	logs, err := h.manager.Log(c.GetString("userID"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if logs == nil {
		logs = []*actiondomain.ActionLog{}
	}
	c.JSON(http.StatusOK, gin.H{"entries": logs})
}

func (h *ActionHandler) writeResult(c *gin.Context, result *actiondomain.ExecuteResult, err error) {
	switch {
	case errors.Is(err, actiondomain.ErrActionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Action not found"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	case !result.Success && result.Error == actiondomain.ErrAlreadyProcessed.Error():
		c.JSON(http.StatusConflict, result)
	case !result.Success:
		c.JSON(http.StatusUnprocessableEntity, result)
	default:
		c.JSON(http.StatusOK, result)
	}
}
