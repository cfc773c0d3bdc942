package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"go.uber.org/zap"

	"taskmate/pkg/circuitbreaker"
)

// StatusError 模型服务返回了非 2xx 状态码
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("model API returned status %d", e.Code)
}

func statusLabel(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code == 429:
		return "429"
	case code == 401 || code == 403:
		return "auth"
	default:
		return "4xx"
	}
}

// classifyError 把错误归类为低基数标签，用于日志和指标
func classifyError(err error) string {
	if err == nil {
		return "success"
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusLabel(statusErr.Code)
	}
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return "circuit_open"
	}
	if errors.Is(err, ErrNotConfigured) {
		return "not_configured"
	}
	if errors.Is(err, ErrEmptyReply) {
		return "empty_reply"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return "decode_error"
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return "timeout"
		}
		return "network_error"
	}
	return "unknown_error"
}

// newBreaker 连续失败 3 次后熔断 30 秒，期间请求直接降级
func newBreaker(provider string, logger *zap.Logger) *circuitbreaker.CircuitBreaker {
	return circuitbreaker.NewCircuitBreaker(circuitbreaker.Config{
		FailureThreshold:    3,
		SuccessThreshold:    1,
		Timeout:             30 * time.Second,
		HalfOpenMaxRequests: 1,
		OnStateChange: func(from, to circuitbreaker.State) {
			logger.Warn("Model circuit breaker state changed",
				zap.String("provider", provider),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
}
