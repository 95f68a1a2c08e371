package conversations

import (
	"context"

	"github.com/dsavelev/snowchat/internal/server/models"
)

// Repository persists chat conversations. Reads and mutations are scoped by
// the owning user id.
type Repository interface {
	Insert(ctx context.Context, conv *models.Conversation) (*models.Conversation, error)
	Get(ctx context.Context, id, userID string) (*models.Conversation, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Conversation, error)
	UpdateTitle(ctx context.Context, id, userID, title string) error
	Touch(ctx context.Context, id string) error
	Delete(ctx context.Context, id, userID string) error
}
