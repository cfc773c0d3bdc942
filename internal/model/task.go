package model

import "time"

const (
	TaskStatusTodo = "todo"
	TaskStatusDone = "done"
)

const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

type Task struct {
	ID        int        `json:"id"`
	UserID    int        `json:"user_id"`
	TeamID    *int       `json:"team_id,omitempty"`
	Title     string     `json:"title"`
	Status    string     `json:"status"`
	Priority  string     `json:"priority"`
	DueDate   *time.Time `json:"due_date,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// TaskUpdate 只包含允许修改的字段，nil 表示不修改
type TaskUpdate struct {
	Title    *string
	Status   *string
	Priority *string
	DueDate  *time.Time
	// ClearDueDate 为 true 时把 due_date 置空
	ClearDueDate bool
}

// Empty 判断是否没有任何字段需要修改
func (u TaskUpdate) Empty() bool {
	return u.Title == nil && u.Status == nil && u.Priority == nil && u.DueDate == nil && !u.ClearDueDate
}

func ValidStatus(s string) bool {
	return s == TaskStatusTodo || s == TaskStatusDone
}

func ValidPriority(p string) bool {
	return p == PriorityLow || p == PriorityMedium || p == PriorityHigh
}
