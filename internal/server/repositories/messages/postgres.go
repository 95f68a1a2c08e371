// Package messages provides the PostgreSQL-backed repository for chat
// message rows, including their JSONB metadata payload.
package messages

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dsavelev/snowchat/internal/dbx"
	"github.com/dsavelev/snowchat/internal/server/models"
)

// PostgresRepository implements message storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// metadata is the stored JSONB shape of a message's structured payload.
type metadata struct {
	CodeBlocks []models.CodeBlock `json:"codeBlocks"`
}

func encodeMetadata(blocks []models.CodeBlock) (any, error) {
	if len(blocks) == 0 {
		return nil, nil
	}
	raw, err := json.Marshal(metadata{CodeBlocks: blocks})
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	return raw, nil
}

func decodeMetadata(raw []byte) ([]models.CodeBlock, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var m metadata
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	return m.CodeBlocks, nil
}

// BulkInsert appends msgs in the given order. Supplied CreatedAt values are
// preserved; zero values default to the database clock. Run inside a
// transaction when atomicity with the conversation row matters.
func (r *PostgresRepository) BulkInsert(ctx context.Context, msgs []*models.Message) error {
	query :=
		`INSERT INTO messages (conversation_id, content, sender, created_at, metadata)
		 VALUES ($1, $2, $3, COALESCE($4, now()), $5)
		 RETURNING id
		 `

	for _, msg := range msgs {
		meta, err := encodeMetadata(msg.CodeBlocks)
		if err != nil {
			return err
		}

		var createdAt any
		if !msg.CreatedAt.IsZero() {
			createdAt = msg.CreatedAt
		}

		err = r.db.QueryRowContext(ctx, query,
			msg.ConversationID, msg.Content, msg.Sender, createdAt, meta).
			Scan(&msg.ID)
		if err != nil {
			return fmt.Errorf("db error: %w", err)
		}
	}
	return nil
}

// ListByConversation returns all messages of a conversation ordered by
// creation time ascending.
func (r *PostgresRepository) ListByConversation(ctx context.Context, conversationID string) ([]*models.Message, error) {
	query :=
		`SELECT id, conversation_id, content, sender, created_at, metadata
		 FROM messages
		 WHERE conversation_id = $1
		 ORDER BY created_at ASC
		 `

	rows, err := r.db.QueryContext(ctx, query, conversationID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Message
	for rows.Next() {
		var item models.Message
		var metaBuf []byte
		if err := rows.Scan(
			&item.ID, &item.ConversationID, &item.Content, &item.Sender,
			&item.CreatedAt, &metaBuf,
		); err != nil {
			return nil, err
		}
		blocks, err := decodeMetadata(metaBuf)
		if err != nil {
			return nil, err
		}
		item.CodeBlocks = blocks
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// DeleteByConversation removes every message owned by the conversation.
func (r *PostgresRepository) DeleteByConversation(ctx context.Context, conversationID string) error {
	query := `DELETE FROM messages WHERE conversation_id = $1`

	if _, err := r.db.ExecContext(ctx, query, conversationID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
