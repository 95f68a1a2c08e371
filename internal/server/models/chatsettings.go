package models

import "time"

// ChatSettings holds a user's LLM configuration. One row per user.
type ChatSettings struct {
	ID        string
	UserID    string
	APIKey    string
	IsEnabled bool
	CreatedAt time.Time
	UpdatedAt time.Time
}
