package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"taskmate/pkg/otel"
)

// Pinger 就绪检查
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handlers 路由依赖的全部 handler
type Handlers struct {
	Auth   *AuthHandler
	Chat   *ChatHandler
	Tasks  *TaskHandler
	Notes  *NoteHandler
	Teams  *TeamHandler
	Import *ImportHandler
}

type Router struct {
	Engine *gin.Engine
}

func NewRouter(h Handlers, verifier TokenVerifier, db Pinger, logger *zap.Logger) *Router {
	r := gin.New()
	r.Use(gin.Recovery(), TraceMiddleware(), otel.GinMiddleware(), LoggingMiddleware(logger))

	// Health endpoints
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 1*time.Second)
		defer cancel()

		if db == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db_not_ready"})
			return
		}
		if err := db.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db_not_ready", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Public
	r.POST("/register", h.Auth.Register)
	r.POST("/login", h.Auth.Login)
	r.POST("/logout", h.Auth.Logout)

	// Protected
	auth := r.Group("/")
	auth.Use(AuthMiddleware(verifier))
	{
		auth.POST("/chat", h.Chat.Chat)
		auth.GET("/chat/history", h.Chat.History)

		auth.GET("/tasks", h.Tasks.List)
		auth.POST("/tasks", h.Tasks.Create)
		auth.POST("/tasks/:id/toggle", h.Tasks.Toggle)
		auth.DELETE("/tasks/:id", h.Tasks.Delete)

		auth.GET("/notes", h.Notes.ListNotes)
		auth.POST("/notes", h.Notes.CreateNote)
		auth.GET("/notifications", h.Notes.ListNotifications)
		auth.POST("/notifications/:id/read", h.Notes.MarkNotificationRead)

		auth.GET("/teams", h.Teams.List)
		auth.POST("/teams", h.Teams.Create)
		auth.POST("/teams/:id/members", h.Teams.AddMember)

		auth.POST("/import", h.Import.Import)
	}

	return &Router{Engine: r}
}

// Server 返回带超时设置的 http.Server
func (r *Router) Server(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           r.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
