// Package services contains server-side business logic on top of the
// repositories: credential management and client construction, conversation
// persistence, and LLM orchestration.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dsavelev/snowchat/internal/common"
	"github.com/dsavelev/snowchat/internal/cryptox"
	"github.com/dsavelev/snowchat/internal/logging"
	"github.com/dsavelev/snowchat/internal/server/config"
	"github.com/dsavelev/snowchat/internal/server/models"
	"github.com/dsavelev/snowchat/internal/server/repositories/repomanager"
	"github.com/dsavelev/snowchat/internal/servicenow"
)

// credentialKeySalt is the static KDF salt for the at-rest credential key.
// Changing it invalidates every stored password.
var credentialKeySalt = []byte("snowchat.credentials.v1")

// CredentialService owns stored ServiceNow credentials and acts as the
// factory for API clients bound to them.
//
// Read paths degrade gracefully (nil / empty results, logged internally);
// write paths surface their errors.
type CredentialService struct {
	db             *sql.DB
	repomanager    repomanager.RepositoryManager
	log            logging.Logger
	encryptionKey  []byte
	tokenTTL       time.Duration
	requestTimeout time.Duration

	// newClient is a seam for tests.
	newClient func(instanceURL, username, password string) *servicenow.Client
}

// NewCredentialService constructs a CredentialService using repositories and
// server config.
func NewCredentialService(db *sql.DB, m repomanager.RepositoryManager, cfg *config.Config, log logging.Logger) *CredentialService {
	s := &CredentialService{
		db:             db,
		repomanager:    m,
		log:            log,
		encryptionKey:  cryptox.DeriveKey([]byte(cfg.EncryptionSecret), credentialKeySalt),
		tokenTTL:       cfg.TokenTTL,
		requestTimeout: cfg.RequestTimeout,
	}
	s.newClient = func(instanceURL, username, password string) *servicenow.Client {
		return servicenow.NewClient(instanceURL, username, password,
			servicenow.WithTokenTTL(s.tokenTTL),
			servicenow.WithHTTPClient(&http.Client{Timeout: s.requestTimeout}),
			servicenow.WithLogger(log),
		)
	}
	return s
}

// SaveCredential stores a new credential for callerID. The privileged insert
// path is attempted first; when it fails, a direct insert under the caller's
// own permissions is tried. A credential naming an owner other than the
// caller is rejected with common.ErrOwnershipMismatch before touching the
// database.
func (s *CredentialService) SaveCredential(ctx context.Context, callerID string, cred *models.Credential) (*models.Credential, error) {
	if cred.UserID == "" {
		cred.UserID = callerID
	}
	if cred.UserID != callerID {
		return nil, fmt.Errorf("%w: credential owner %q does not match caller %q",
			common.ErrOwnershipMismatch, cred.UserID, callerID)
	}

	encrypted, err := cryptox.EncryptString(cred.Password, s.encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("error encrypting credential: %w", err)
	}

	stored := *cred
	stored.Password = encrypted

	repo := s.repomanager.Credentials(s.db)
	saved, err := repo.InsertPrivileged(ctx, &stored)
	if err != nil {
		s.log.Warn(ctx, "privileged credential insert failed, falling back to direct insert", "error", err)
		saved, err = repo.Insert(ctx, &stored)
		if err != nil {
			return nil, fmt.Errorf("error saving credential: %w", err)
		}
	}

	result := *saved
	result.Password = ""
	return &result, nil
}

// UpdateCredential applies a partial update scoped by (id, callerID). A nil
// Password keeps the stored value; an explicit value (including empty) is
// encrypted and written.
func (s *CredentialService) UpdateCredential(ctx context.Context, id, callerID string, upd models.CredentialUpdate) (*models.Credential, error) {
	if upd.Password != nil {
		encrypted, err := cryptox.EncryptString(*upd.Password, s.encryptionKey)
		if err != nil {
			return nil, fmt.Errorf("error encrypting credential: %w", err)
		}
		upd.Password = &encrypted
	}

	cred, err := s.repomanager.Credentials(s.db).Update(ctx, id, callerID, upd)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("error updating credential: %w", err)
	}

	result := *cred
	result.Password = ""
	return &result, nil
}

// DeleteCredential removes the credential scoped by (id, callerID).
func (s *CredentialService) DeleteCredential(ctx context.Context, id, callerID string) error {
	err := s.repomanager.Credentials(s.db).Delete(ctx, id, callerID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("error deleting credential: %w", err)
	}
	return nil
}

// ListCredentials returns the caller's credentials with passwords blanked.
// Lookup failures degrade to an empty list.
func (s *CredentialService) ListCredentials(ctx context.Context, userID string) []*models.Credential {
	creds, err := s.repomanager.Credentials(s.db).ListByUser(ctx, userID)
	if err != nil {
		s.log.Error(ctx, "error listing credentials", "error", err)
		return nil
	}

	result := make([]*models.Credential, 0, len(creds))
	for _, c := range creds {
		item := *c
		item.Password = ""
		result = append(result, &item)
	}
	return result
}

// GetClient loads the credential scoped to (credentialID, ownerID) and
// constructs an unauthenticated API client for it. It returns nil when no
// matching row exists or the lookup fails; callers must treat nil as
// "cannot connect", not as a crash.
func (s *CredentialService) GetClient(ctx context.Context, credentialID, ownerID string) *servicenow.Client {
	cred, err := s.repomanager.Credentials(s.db).Get(ctx, credentialID, ownerID)
	if err != nil {
		if !errors.Is(err, common.ErrorNotFound) {
			s.log.Error(ctx, "error loading credential", "credential_id", credentialID, "error", err)
		}
		return nil
	}

	password, err := cryptox.DecryptString(cred.Password, s.encryptionKey)
	if err != nil {
		s.log.Error(ctx, "error decrypting credential", "credential_id", credentialID, "error", err)
		return nil
	}

	return s.newClient(cred.InstanceURL, cred.Username, password)
}

// GetAllClients returns a client per stored credential, keyed by credential
// id. None of the clients is authenticated yet. Lookup failures degrade to an
// empty map.
func (s *CredentialService) GetAllClients(ctx context.Context, ownerID string) map[string]*servicenow.Client {
	creds, err := s.repomanager.Credentials(s.db).ListByUser(ctx, ownerID)
	if err != nil {
		s.log.Error(ctx, "error listing credentials", "error", err)
		return map[string]*servicenow.Client{}
	}

	clients := make(map[string]*servicenow.Client, len(creds))
	for _, cred := range creds {
		password, err := cryptox.DecryptString(cred.Password, s.encryptionKey)
		if err != nil {
			s.log.Error(ctx, "error decrypting credential", "credential_id", cred.ID, "error", err)
			continue
		}
		clients[cred.ID] = s.newClient(cred.InstanceURL, cred.Username, password)
	}
	return clients
}

// TestConnection loads the credential, builds a client and probes the
// instance. It never returns an error; any failure yields false.
func (s *CredentialService) TestConnection(ctx context.Context, credentialID, ownerID string) bool {
	client := s.GetClient(ctx, credentialID, ownerID)
	if client == nil {
		return false
	}
	return client.TestConnection(ctx)
}
