// Package credentials provides the PostgreSQL-backed repository for stored
// ServiceNow connection records.
package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dsavelev/snowchat/internal/common"
	"github.com/dsavelev/snowchat/internal/dbx"
	"github.com/dsavelev/snowchat/internal/server/models"
)

// PostgresRepository implements credential storage over a dbx.DBTX
// (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Get returns the credential matching (id, userID) or common.ErrorNotFound.
func (r *PostgresRepository) Get(ctx context.Context, id, userID string) (*models.Credential, error) {
	query :=
		`SELECT id, user_id, name, instance_url, username, password, created_at
		 FROM servicenow_credentials
		 WHERE id = $1 AND user_id = $2
		 `

	cred := &models.Credential{}
	err := r.db.QueryRowContext(ctx, query, id, userID).Scan(
		&cred.ID, &cred.UserID, &cred.Name, &cred.InstanceURL,
		&cred.Username, &cred.Password, &cred.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return cred, nil
}

// ListByUser returns all credentials owned by userID, newest first.
func (r *PostgresRepository) ListByUser(ctx context.Context, userID string) ([]*models.Credential, error) {
	query :=
		`SELECT id, user_id, name, instance_url, username, password, created_at
		 FROM servicenow_credentials
		 WHERE user_id = $1
		 ORDER BY created_at DESC
		 `

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.Credential
	for rows.Next() {
		var item models.Credential
		if err := rows.Scan(
			&item.ID, &item.UserID, &item.Name, &item.InstanceURL,
			&item.Username, &item.Password, &item.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Insert creates a credential row under the caller's own permissions.
func (r *PostgresRepository) Insert(ctx context.Context, cred *models.Credential) (*models.Credential, error) {
	query :=
		`INSERT INTO servicenow_credentials (user_id, name, instance_url, username, password)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		cred.UserID, cred.Name, cred.InstanceURL, cred.Username, cred.Password).
		Scan(&cred.ID, &cred.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return cred, nil
}

// InsertPrivileged creates the row through the SECURITY DEFINER function,
// bypassing row-level restrictions for first-time setup flows.
func (r *PostgresRepository) InsertPrivileged(ctx context.Context, cred *models.Credential) (*models.Credential, error) {
	query := `SELECT save_servicenow_credential($1, $2, $3, $4, $5)`

	err := r.db.QueryRowContext(ctx, query,
		cred.UserID, cred.Name, cred.InstanceURL, cred.Username, cred.Password).
		Scan(&cred.ID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return cred, nil
}

// Update applies a partial update scoped by (id, userID). Nil fields in upd
// keep their stored values via COALESCE; explicit empty strings are written
// as-is. Returns the updated row or common.ErrorNotFound.
func (r *PostgresRepository) Update(ctx context.Context, id, userID string, upd models.CredentialUpdate) (*models.Credential, error) {
	query :=
		`UPDATE servicenow_credentials SET
			name = COALESCE($1, name),
			instance_url = COALESCE($2, instance_url),
			username = COALESCE($3, username),
			password = COALESCE($4, password)
		 WHERE id = $5 AND user_id = $6
		 RETURNING id, user_id, name, instance_url, username, password, created_at
		 `

	cred := &models.Credential{}
	err := r.db.QueryRowContext(ctx, query,
		upd.Name, upd.InstanceURL, upd.Username, upd.Password, id, userID).
		Scan(&cred.ID, &cred.UserID, &cred.Name, &cred.InstanceURL,
			&cred.Username, &cred.Password, &cred.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return cred, nil
}

// Delete removes the credential scoped by (id, userID). Deleting a row that
// does not exist for that owner returns common.ErrorNotFound.
func (r *PostgresRepository) Delete(ctx context.Context, id, userID string) error {
	query := `DELETE FROM servicenow_credentials WHERE id = $1 AND user_id = $2`

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
