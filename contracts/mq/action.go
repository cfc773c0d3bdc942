package mq

import "time"

// ActionAppliedPayload 对话动作成功落库后发布，routing key 为 action.<type>
type ActionAppliedPayload struct {
	UserID    int       `json:"user_id"`
	TraceID   string    `json:"trace_id,omitempty"`
	Type      string    `json:"type"`
	ID        int       `json:"id,omitempty"`
	Task      any       `json:"task,omitempty"`
	Team      any       `json:"team,omitempty"`
	AppliedAt time.Time `json:"applied_at"`
}

// RoutingKey 返回动作事件的 routing key
func RoutingKey(actionType string) string {
	return "action." + actionType
}
