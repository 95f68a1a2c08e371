// Package conversations provides the PostgreSQL-backed repository for chat
// conversation rows.
package conversations

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dsavelev/snowchat/internal/common"
	"github.com/dsavelev/snowchat/internal/dbx"
	"github.com/dsavelev/snowchat/internal/server/models"
)

// PostgresRepository implements conversation storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Insert creates a conversation row and fills in the generated id and
// timestamps.
func (r *PostgresRepository) Insert(ctx context.Context, conv *models.Conversation) (*models.Conversation, error) {
	query :=
		`INSERT INTO conversations (user_id, title)
		 VALUES ($1, $2)
		 RETURNING id, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query, conv.UserID, conv.Title).
		Scan(&conv.ID, &conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return conv, nil
}

// Get returns the conversation matching (id, userID) or common.ErrorNotFound.
func (r *PostgresRepository) Get(ctx context.Context, id, userID string) (*models.Conversation, error) {
	query :=
		`SELECT id, user_id, title, created_at, updated_at
		 FROM conversations
		 WHERE id = $1 AND user_id = $2
		 `

	conv := &models.Conversation{}
	err := r.db.QueryRowContext(ctx, query, id, userID).
		Scan(&conv.ID, &conv.UserID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return conv, nil
}

// ListByUser returns the user's conversations, most recently updated first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.Conversation, error) {
	query :=
		`SELECT id, user_id, title, created_at, updated_at
		 FROM conversations
		 WHERE user_id = $1
		 ORDER BY updated_at DESC
		 `

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Conversation
	for rows.Next() {
		var item models.Conversation
		if err := rows.Scan(&item.ID, &item.UserID, &item.Title, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateTitle renames the conversation and bumps updated_at. Returns
// common.ErrorNotFound when no row matches (id, userID).
func (r *PostgresRepository) UpdateTitle(ctx context.Context, id, userID, title string) error {
	query :=
		`UPDATE conversations SET title = $1, updated_at = now()
		 WHERE id = $2 AND user_id = $3
		 `

	res, err := r.db.ExecContext(ctx, query, title, id, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

// Touch bumps updated_at, e.g. after messages are appended.
func (r *PostgresRepository) Touch(ctx context.Context, id string) error {
	query := `UPDATE conversations SET updated_at = now() WHERE id = $1`

	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

// Delete removes the conversation scoped by (id, userID).
func (r *PostgresRepository) Delete(ctx context.Context, id, userID string) error {
	query := `DELETE FROM conversations WHERE id = $1 AND user_id = $2`

	res, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
