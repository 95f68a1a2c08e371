package services

import (
	"context"
	"database/sql"

	"github.com/dsavelev/snowchat/internal/common"
	"github.com/dsavelev/snowchat/internal/dbx"
	"github.com/dsavelev/snowchat/internal/server/models"
	"github.com/dsavelev/snowchat/internal/server/repositories/chatsettings"
	"github.com/dsavelev/snowchat/internal/server/repositories/conversations"
	"github.com/dsavelev/snowchat/internal/server/repositories/credentials"
	"github.com/dsavelev/snowchat/internal/server/repositories/messages"
)

// fakeRepoManager vends the configured fakes regardless of the DBTX handle.
type fakeRepoManager struct {
	creds    credentials.Repository
	convs    conversations.Repository
	msgs     messages.Repository
	settings chatsettings.Repository
}

func (m *fakeRepoManager) RunMigrations(ctx context.Context, db *sql.DB) error { return nil }
func (m *fakeRepoManager) Credentials(db dbx.DBTX) credentials.Repository     { return m.creds }
func (m *fakeRepoManager) Conversations(db dbx.DBTX) conversations.Repository { return m.convs }
func (m *fakeRepoManager) Messages(db dbx.DBTX) messages.Repository           { return m.msgs }
func (m *fakeRepoManager) ChatSettings(db dbx.DBTX) chatsettings.Repository   { return m.settings }

// fakeCredRepo implements credentials.Repository with overridable behaviour.
type fakeCredRepo struct {
	getFn        func(ctx context.Context, id, userID string) (*models.Credential, error)
	listFn       func(ctx context.Context, userID string) ([]*models.Credential, error)
	insertFn     func(ctx context.Context, cred *models.Credential) (*models.Credential, error)
	insertPrivFn func(ctx context.Context, cred *models.Credential) (*models.Credential, error)
	updateFn     func(ctx context.Context, id, userID string, upd models.CredentialUpdate) (*models.Credential, error)
	deleteFn     func(ctx context.Context, id, userID string) error
}

func (f *fakeCredRepo) Get(ctx context.Context, id, userID string) (*models.Credential, error) {
	if f.getFn == nil {
		return nil, common.ErrorNotFound
	}
	return f.getFn(ctx, id, userID)
}

func (f *fakeCredRepo) ListByUser(ctx context.Context, userID string) ([]*models.Credential, error) {
	if f.listFn == nil {
		return nil, nil
	}
	return f.listFn(ctx, userID)
}

func (f *fakeCredRepo) Insert(ctx context.Context, cred *models.Credential) (*models.Credential, error) {
	if f.insertFn == nil {
		return cred, nil
	}
	return f.insertFn(ctx, cred)
}

func (f *fakeCredRepo) InsertPrivileged(ctx context.Context, cred *models.Credential) (*models.Credential, error) {
	if f.insertPrivFn == nil {
		return cred, nil
	}
	return f.insertPrivFn(ctx, cred)
}

func (f *fakeCredRepo) Update(ctx context.Context, id, userID string, upd models.CredentialUpdate) (*models.Credential, error) {
	if f.updateFn == nil {
		return nil, common.ErrorNotFound
	}
	return f.updateFn(ctx, id, userID, upd)
}

func (f *fakeCredRepo) Delete(ctx context.Context, id, userID string) error {
	if f.deleteFn == nil {
		return common.ErrorNotFound
	}
	return f.deleteFn(ctx, id, userID)
}

// fakeSettingsRepo implements chatsettings.Repository.
type fakeSettingsRepo struct {
	getFn    func(ctx context.Context, userID string) (*models.ChatSettings, error)
	upsertFn func(ctx context.Context, s *models.ChatSettings) (*models.ChatSettings, error)
}

func (f *fakeSettingsRepo) GetByUser(ctx context.Context, userID string) (*models.ChatSettings, error) {
	if f.getFn == nil {
		return nil, common.ErrorNotFound
	}
	return f.getFn(ctx, userID)
}

func (f *fakeSettingsRepo) Upsert(ctx context.Context, s *models.ChatSettings) (*models.ChatSettings, error) {
	if f.upsertFn == nil {
		return s, nil
	}
	return f.upsertFn(ctx, s)
}
