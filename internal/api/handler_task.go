package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taskmate/internal/model"
	"taskmate/internal/repository"
	"taskmate/pkg/rbac"
)

// TaskStore 任务读写，所有操作按 userID 限定
type TaskStore interface {
	Insert(ctx context.Context, t *model.Task) error
	ListByUser(ctx context.Context, userID, limit int) ([]model.Task, error)
	ToggleStatus(ctx context.Context, userID, taskID int) (*model.Task, error)
	Delete(ctx context.Context, userID, taskID int) error
}

type TaskHandler struct {
	tasks  TaskStore
	teams  RoleLookup
	logger *zap.Logger
}

func NewTaskHandler(tasks TaskStore, teams RoleLookup, logger *zap.Logger) *TaskHandler {
	return &TaskHandler{tasks: tasks, teams: teams, logger: logger}
}

// List handles GET /tasks
func (h *TaskHandler) List(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	tasks, err := h.tasks.ListByUser(c.Request.Context(), userID, queryLimit(c, 100, 500))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list tasks"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

// Create handles POST /tasks
func (h *TaskHandler) Create(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	var req struct {
		Title    string     `json:"title" binding:"required"`
		Priority string     `json:"priority"`
		DueDate  *time.Time `json:"due_date"`
		TeamID   *int       `json:"team_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Title) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if req.Priority == "" {
		req.Priority = model.PriorityMedium
	}
	if !model.ValidPriority(req.Priority) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid priority"})
		return
	}

	if req.TeamID != nil {
		role, err := h.teams.GetRole(c.Request.Context(), *req.TeamID, userID)
		if errors.Is(err, repository.ErrNotFound) {
			c.JSON(http.StatusForbidden, gin.H{"error": "not a member of this team"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check team"})
			return
		}
		if err := rbac.CheckPermission(role, rbac.PermissionAssignTask); err != nil {
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
			return
		}
	}

	task := &model.Task{
		UserID:   userID,
		TeamID:   req.TeamID,
		Title:    strings.TrimSpace(req.Title),
		Status:   model.TaskStatusTodo,
		Priority: req.Priority,
		DueDate:  req.DueDate,
	}
	if err := h.tasks.Insert(c.Request.Context(), task); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create task"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"task": task})
}

// Toggle handles POST /tasks/:id/toggle
func (h *TaskHandler) Toggle(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	task, err := h.tasks.ToggleStatus(c.Request.Context(), userID, taskID)
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update task"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": task})
}

// Delete handles DELETE /tasks/:id
func (h *TaskHandler) Delete(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	err := h.tasks.Delete(c.Request.Context(), userID, taskID)
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete task"})
		return
	}
	c.Status(http.StatusNoContent)
}
