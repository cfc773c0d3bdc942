package model

import "time"

type Team struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	CreatedBy int       `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

// Membership 用户与团队的关联
type Membership struct {
	TeamID   int       `json:"team_id"`
	TeamName string    `json:"team_name"`
	UserID   int       `json:"user_id"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}
