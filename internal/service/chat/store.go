package chat

import (
	"context"

	"taskmate/internal/model"
)

// TaskStore 所有方法都按 userID 限定范围
type TaskStore interface {
	Insert(ctx context.Context, t *model.Task) error
	ListByUser(ctx context.Context, userID, limit int) ([]model.Task, error)
	// Update / Delete 未匹配到行时返回 repository.ErrNotFound
	Update(ctx context.Context, userID, taskID int, u model.TaskUpdate) (*model.Task, error)
	Delete(ctx context.Context, userID, taskID int) error
}

type NoteStore interface {
	Insert(ctx context.Context, n *model.Note) error
	ListRecent(ctx context.Context, userID, limit int) ([]model.Note, error)
}

type NotificationStore interface {
	Insert(ctx context.Context, n *model.Notification) error
}

type TeamStore interface {
	// CreateWithOwner 在同一事务中创建团队和 owner 成员关系
	CreateWithOwner(ctx context.Context, userID int, name string) (*model.Team, error)
	ListMemberships(ctx context.Context, userID int) ([]model.Membership, error)
	GetRole(ctx context.Context, teamID, userID int) (string, error)
}

type HistoryStore interface {
	Append(ctx context.Context, msgs ...model.ChatMessage) error
	// Recent 按时间正序返回最近 limit 条
	Recent(ctx context.Context, userID, limit int) ([]model.ChatMessage, error)
}

// Store 对话流程用到的全部数据访问
type Store struct {
	Tasks         TaskStore
	Notes         NoteStore
	Notifications NotificationStore
	Teams         TeamStore
	History       HistoryStore
}

// EventPublisher 动作事件发布，nil 表示不发布
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// RateLimiter 返回 false 表示超过限额
type RateLimiter interface {
	Allow(ctx context.Context, scope string, userID int) bool
}
