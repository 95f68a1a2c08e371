// Package chatsettings provides the PostgreSQL-backed repository for per-user
// LLM configuration.
package chatsettings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dsavelev/snowchat/internal/common"
	"github.com/dsavelev/snowchat/internal/dbx"
	"github.com/dsavelev/snowchat/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByUser returns the user's settings row or common.ErrorNotFound.
func (r *PostgresRepository) GetByUser(ctx context.Context, userID string) (*models.ChatSettings, error) {
	query :=
		`SELECT id, user_id, api_key, is_enabled, created_at, updated_at
		 FROM chatgpt_settings
		 WHERE user_id = $1
		 `

	s := &models.ChatSettings{}
	err := r.db.QueryRowContext(ctx, query, userID).
		Scan(&s.ID, &s.UserID, &s.APIKey, &s.IsEnabled, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return s, nil
}

// Upsert inserts or replaces the user's settings; chatgpt_settings is unique
// on user_id.
func (r *PostgresRepository) Upsert(ctx context.Context, s *models.ChatSettings) (*models.ChatSettings, error) {
	query :=
		`INSERT INTO chatgpt_settings (user_id, api_key, is_enabled)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (user_id)
		 DO UPDATE SET api_key = EXCLUDED.api_key, is_enabled = EXCLUDED.is_enabled, updated_at = now()
		 RETURNING id, created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query, s.UserID, s.APIKey, s.IsEnabled).
		Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return s, nil
}
