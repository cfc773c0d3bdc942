package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"taskmate/internal/model"
	"taskmate/internal/repository"
)

type NoteStore interface {
	Insert(ctx context.Context, n *model.Note) error
	ListRecent(ctx context.Context, userID, limit int) ([]model.Note, error)
}

type NotificationStore interface {
	ListByUser(ctx context.Context, userID, limit int) ([]model.Notification, error)
	MarkRead(ctx context.Context, userID, notificationID int) error
}

// NoteHandler 笔记和通知
type NoteHandler struct {
	notes         NoteStore
	notifications NotificationStore
}

func NewNoteHandler(notes NoteStore, notifications NotificationStore) *NoteHandler {
	return &NoteHandler{notes: notes, notifications: notifications}
}

// ListNotes handles GET /notes
func (h *NoteHandler) ListNotes(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	notes, err := h.notes.ListRecent(c.Request.Context(), userID, queryLimit(c, 50, 200))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list notes"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"notes": notes})
}

// CreateNote handles POST /notes
func (h *NoteHandler) CreateNote(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	var req struct {
		Title       string `json:"title"`
		Content     string `json:"content" binding:"required"`
		IsImportant bool   `json:"is_important"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Content) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	note := &model.Note{
		UserID:      userID,
		Title:       strings.TrimSpace(req.Title),
		Content:     req.Content,
		IsImportant: req.IsImportant,
	}
	if err := h.notes.Insert(c.Request.Context(), note); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create note"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"note": note})
}

// ListNotifications handles GET /notifications
func (h *NoteHandler) ListNotifications(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	items, err := h.notifications.ListByUser(c.Request.Context(), userID, queryLimit(c, 50, 200))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list notifications"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": items})
}

// MarkNotificationRead handles POST /notifications/:id/read
func (h *NoteHandler) MarkNotificationRead(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	err := h.notifications.MarkRead(c.Request.Context(), userID, id)
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "notification not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update notification"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "read"})
}
