package model

import "time"

const (
	NotificationTypeInfo        = "info"
	NotificationTypeAlert       = "alert"
	NotificationTypeReminder    = "reminder"
	NotificationTypeTaskCreated = "task_created"
)

type Notification struct {
	ID          int       `json:"id"`
	UserID      int       `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Type        string    `json:"type"`
	IsRead      bool      `json:"is_read"`
	CreatedAt   time.Time `json:"created_at"`
}
