package chatsettings

import (
	"context"

	"github.com/dsavelev/snowchat/internal/server/models"
)

// Repository persists per-user LLM settings (one row per user).
type Repository interface {
	GetByUser(ctx context.Context, userID string) (*models.ChatSettings, error)
	Upsert(ctx context.Context, s *models.ChatSettings) (*models.ChatSettings, error)
}
