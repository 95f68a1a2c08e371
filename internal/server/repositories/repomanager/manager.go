package repomanager

import (
	"context"
	"database/sql"

	"github.com/dsavelev/snowchat/internal/dbx"
	"github.com/dsavelev/snowchat/internal/server/repositories/chatsettings"
	"github.com/dsavelev/snowchat/internal/server/repositories/conversations"
	"github.com/dsavelev/snowchat/internal/server/repositories/credentials"
	"github.com/dsavelev/snowchat/internal/server/repositories/messages"
)

// RepositoryManager vends repositories bound to a DBTX, so services can use
// the same constructors with a plain connection or inside a transaction.
type RepositoryManager interface {
	RunMigrations(ctx context.Context, db *sql.DB) error
	Credentials(db dbx.DBTX) credentials.Repository
	Conversations(db dbx.DBTX) conversations.Repository
	Messages(db dbx.DBTX) messages.Repository
	ChatSettings(db dbx.DBTX) chatsettings.Repository
}
