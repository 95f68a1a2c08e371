package credentials

import (
	"context"

	"github.com/dsavelev/snowchat/internal/server/models"
)

// Repository persists per-user ServiceNow connection records. Every lookup
// and mutation is scoped by user id in addition to row id, mirroring the
// database row-security policy.
type Repository interface {
	Get(ctx context.Context, id, userID string) (*models.Credential, error)
	ListByUser(ctx context.Context, userID string) ([]*models.Credential, error)
	Insert(ctx context.Context, cred *models.Credential) (*models.Credential, error)
	InsertPrivileged(ctx context.Context, cred *models.Credential) (*models.Credential, error)
	Update(ctx context.Context, id, userID string, upd models.CredentialUpdate) (*models.Credential, error)
	Delete(ctx context.Context, id, userID string) error
}
