package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taskmate/internal/model"
	"taskmate/internal/service/chat"
	"taskmate/internal/service/llm"
	"taskmate/pkg/logger"
)

// ChatService 对话服务
type ChatService interface {
	HandleTurn(ctx context.Context, sess chat.Session, turn chat.Turn) (*chat.TurnResult, error)
	History(ctx context.Context, sess chat.Session, limit int) ([]model.ChatMessage, error)
}

type ChatHandler struct {
	chatService ChatService
	logger      *zap.Logger
}

func NewChatHandler(chatService ChatService, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{chatService: chatService, logger: logger}
}

func session(c *gin.Context, userID int) chat.Session {
	return chat.Session{UserID: userID, TraceID: c.GetString(ctxTraceID)}
}

// Chat handles POST /chat
func (h *ChatHandler) Chat(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	var req struct {
		Message string `json:"message"`
		Audio   string `json:"audio"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	ctx := c.Request.Context()
	res, err := h.chatService.HandleTurn(ctx, session(c, userID), chat.Turn{Message: req.Message, Audio: req.Audio})
	switch {
	case errors.Is(err, chat.ErrEmptyTurn), errors.Is(err, llm.ErrInvalidAudio):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	case errors.Is(err, chat.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
		return
	case errors.Is(err, llm.ErrNotConfigured):
		// 缺少模型凭据属于前置条件不满足，不进入任何读写
		c.JSON(http.StatusPreconditionFailed, gin.H{"error": "assistant is not configured"})
		return
	case err != nil:
		logger.WithTrace(ctx, h.logger).Error("Chat turn failed", zap.Int("user_id", userID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to handle message"})
		return
	}

	if res.Actions == nil {
		res.Actions = []chat.Record{}
	}
	c.JSON(http.StatusOK, res)
}

// History handles GET /chat/history
func (h *ChatHandler) History(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		return
	}

	msgs, err := h.chatService.History(c.Request.Context(), session(c, userID), queryLimit(c, 50, 100))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load history"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}
