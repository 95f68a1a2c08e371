package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dsavelev/snowchat/internal/common"
	"github.com/dsavelev/snowchat/internal/dbx"
	"github.com/dsavelev/snowchat/internal/logging"
	"github.com/dsavelev/snowchat/internal/server/models"
	"github.com/dsavelev/snowchat/internal/server/repositories/repomanager"
)

// ChatService persists conversations and their messages.
//
// Multi-step writes run inside a single transaction, so a failed message
// insert never leaves an orphaned conversation row behind.
type ChatService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	log         logging.Logger
}

// NewChatService constructs a ChatService over the given repositories.
func NewChatService(db *sql.DB, m repomanager.RepositoryManager, log logging.Logger) *ChatService {
	return &ChatService{db: db, repomanager: m, log: log}
}

// SaveConversation inserts one conversation row and all provided messages,
// atomically. Message order and supplied timestamps are preserved.
func (s *ChatService) SaveConversation(ctx context.Context, userID, title string, msgs []*models.Message) (*models.Conversation, error) {
	conv := &models.Conversation{UserID: userID, Title: title}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		saved, err := s.repomanager.Conversations(tx).Insert(ctx, conv)
		if err != nil {
			return err
		}
		for _, msg := range msgs {
			msg.ConversationID = saved.ID
		}
		return s.repomanager.Messages(tx).BulkInsert(ctx, msgs)
	})
	if err != nil {
		return nil, fmt.Errorf("error saving conversation: %w", err)
	}

	return conv, nil
}

// GetConversations returns the user's conversations, most recently updated
// first. Lookup failures degrade to an empty list.
func (s *ChatService) GetConversations(ctx context.Context, userID string) []*models.Conversation {
	convs, err := s.repomanager.Conversations(s.db).ListByUser(ctx, userID)
	if err != nil {
		s.log.Error(ctx, "error listing conversations", "error", err)
		return nil
	}
	return convs
}

// GetConversationWithMessages returns one conversation and its messages in
// creation order. A missing conversation yields (nil, nil, nil), so callers
// can branch on absence without exception handling.
func (s *ChatService) GetConversationWithMessages(ctx context.Context, id, userID string) (*models.Conversation, []*models.Message, error) {
	conv, err := s.repomanager.Conversations(s.db).Get(ctx, id, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("error loading conversation: %w", err)
	}

	msgs, err := s.repomanager.Messages(s.db).ListByConversation(ctx, id)
	if err != nil {
		return nil, nil, fmt.Errorf("error loading messages: %w", err)
	}

	return conv, msgs, nil
}

// AppendMessages adds messages to an existing conversation and bumps its
// updated_at, atomically. The conversation must belong to userID.
func (s *ChatService) AppendMessages(ctx context.Context, conversationID, userID string, msgs []*models.Message) error {
	if _, err := s.repomanager.Conversations(s.db).Get(ctx, conversationID, userID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("error loading conversation: %w", err)
	}

	for _, msg := range msgs {
		msg.ConversationID = conversationID
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Messages(tx).BulkInsert(ctx, msgs); err != nil {
			return err
		}
		return s.repomanager.Conversations(tx).Touch(ctx, conversationID)
	})
	if err != nil {
		return fmt.Errorf("error appending messages: %w", err)
	}
	return nil
}

// UpdateConversationTitle renames the conversation scoped by (id, userID).
func (s *ChatService) UpdateConversationTitle(ctx context.Context, id, userID, title string) error {
	err := s.repomanager.Conversations(s.db).UpdateTitle(ctx, id, userID, title)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("error updating conversation title: %w", err)
	}
	return nil
}

// DeleteConversation removes the messages and then the conversation row in
// one transaction. The explicit message delete mirrors the FK cascade.
func (s *ChatService) DeleteConversation(ctx context.Context, id, userID string) error {
	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Messages(tx).DeleteByConversation(ctx, id); err != nil {
			return err
		}
		return s.repomanager.Conversations(tx).Delete(ctx, id, userID)
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("error deleting conversation: %w", err)
	}
	return nil
}
