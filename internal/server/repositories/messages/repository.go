package messages

import (
	"context"

	"github.com/dsavelev/snowchat/internal/server/models"
)

// Repository persists chat messages. Messages are append-only; the only
// destructive operation is the cascade delete of a whole conversation.
type Repository interface {
	BulkInsert(ctx context.Context, msgs []*models.Message) error
	ListByConversation(ctx context.Context, conversationID string) ([]*models.Message, error)
	DeleteByConversation(ctx context.Context, conversationID string) error
}
