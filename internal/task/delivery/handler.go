package delivery

import (
	"errors"
	"net/http"
	"strconv"

	"nexus-backend/internal/task/domain"
	"nexus-backend/internal/task/usecase"

	"github.com/gin-gonic/gin"
)

const maxPageSize = 100

type TaskHandler struct {
	taskUsecase usecase.TaskUsecase
}

func NewTaskHandler(taskUsecase usecase.TaskUsecase) *TaskHandler {
	return &TaskHandler{taskUsecase: taskUsecase}
}

type CreateTaskRequest struct {
	Title       string  `json:"title" binding:"required"`
	Description string  `json:"description"`
	DueDate     *string `json:"due_date"`
	Priority    string  `json:"priority"`
	ReminderAt  *string `json:"reminder_at"`
}

type StatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// page reads limit/offset, clamping limit to [1, maxPageSize]
func page(c *gin.Context) (int, int) {
	limit, err := strconv.Atoi(c.Query("limit"))
	if err != nil || limit <= 0 {
		limit = 50
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	offset, err := strconv.Atoi(c.Query("offset"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}

// GET /api/tasks?status=pending&limit=50&offset=0
func (h *TaskHandler) GetTasks(c *gin.Context) {
	var status *string
	if s := c.Query("status"); s != "" {
		status = &s
	}
	limit, offset := page(c)

	tasks, total, err := h.taskUsecase.GetUserTasks(c.GetString("userID"), status, limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	if tasks == nil {
		tasks = []*domain.Task{}
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks, "total": total, "limit": limit, "offset": offset})
}

// GET /api/tasks/:id
func (h *TaskHandler) GetTaskByID(c *gin.Context) {
	task, err := h.taskUsecase.GetTaskByID(c.GetString("userID"), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// POST /api/tasks
func (h *TaskHandler) CreateTask(c *gin.Context) {
	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	task, err := h.taskUsecase.CreateTask(c.GetString("userID"), req.Title, req.Description, req.DueDate, req.ReminderAt, req.Priority)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, task)
}

// PUT /api/tasks/:id
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	var req usecase.TaskUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.applyUpdate(c, req)
}

// PATCH /api/tasks/:id/status
func (h *TaskHandler) UpdateTaskStatus(c *gin.Context) {
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.applyUpdate(c, usecase.TaskUpdateRequest{Status: &req.Status})
}

func (h *TaskHandler) applyUpdate(c *gin.Context, req usecase.TaskUpdateRequest) {
	task, err := h.taskUsecase.UpdateTask(c.GetString("userID"), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, task)
}

// DELETE /api/tasks/:id
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	if err := h.taskUsecase.DeleteTask(c.GetString("userID"), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// POST /api/tasks/extract/:threadId
func (h *TaskHandler) ExtractTasksFromThread(c *gin.Context) {
	tasks, err := h.taskUsecase.ExtractTasksFromThread(c.Request.Context(), c.GetString("userID"), c.Param("threadId"))
	if err != nil {
		respondError(c, err)
		return
	}
	if tasks == nil {
		tasks = []*domain.Task{}
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks, "count": len(tasks)})
}

func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, usecase.ErrTaskNotFound), errors.Is(err, usecase.ErrSourceNotFound):
		status = http.StatusNotFound
	case errors.Is(err, usecase.ErrUnauthorized):
		status = http.StatusForbidden
	case errors.Is(err, usecase.ErrInvalidStatus), errors.Is(err, usecase.ErrTitleRequired):
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
