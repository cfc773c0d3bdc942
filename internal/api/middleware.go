package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"taskmate/pkg/metrics"
	"taskmate/pkg/trace"
	"taskmate/pkg/util"
)

const (
	ctxUserID  = "user_id"
	ctxTraceID = "trace_id"
)

// TokenVerifier 校验会话 token
type TokenVerifier interface {
	Authenticate(token string) (int, error)
}

// TraceMiddleware 读取或生成 X-Trace-ID，并写入请求 context 和响应头
func TraceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(trace.HeaderName())
		if traceID == "" {
			traceID = trace.GenerateTraceID()
		}
		c.Set(ctxTraceID, traceID)
		c.Request = c.Request.WithContext(trace.WithContext(c.Request.Context(), traceID))
		c.Header(trace.HeaderName(), traceID)
		c.Next()
	}
}

// LoggingMiddleware 请求日志和 HTTP 延迟指标
func LoggingMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		duration := time.Since(start)
		metrics.RecordHTTPRequestDuration(c.Request.Method, route, strconv.Itoa(status), duration)

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Duration("duration", duration),
			zap.String("trace_id", c.GetString(ctxTraceID)),
		}
		if uid, ok := c.Get(ctxUserID); ok {
			fields = append(fields, zap.Int("user_id", uid.(int)))
		}
		switch {
		case status >= 500:
			logger.Error("HTTP request", fields...)
		case status >= 400:
			logger.Warn("HTTP request", fields...)
		default:
			logger.Info("HTTP request", fields...)
		}
	}
}

// AuthMiddleware 接受 session cookie 或 Authorization: Bearer
func AuthMiddleware(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := util.ExtractToken(c.Request)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		userID, err := verifier.Authenticate(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		// store user_id in context so handlers can use it
		c.Set(ctxUserID, userID)
		c.Next()
	}
}

// getUserID 统一的 userID 读取工具
func getUserID(c *gin.Context) (int, bool) {
	userID, ok := c.Get(ctxUserID)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return 0, false
	}
	return userID.(int), true
}

// pathID 解析路径中的正整数 id
func pathID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

// queryLimit 解析 ?limit=，超出范围时使用默认值
func queryLimit(c *gin.Context, def, max int) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil || n <= 0 || n > max {
		return def
	}
	return n
}
