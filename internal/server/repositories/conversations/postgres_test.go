package conversations

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dsavelev/snowchat/internal/common"
	"github.com/dsavelev/snowchat/internal/server/models"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

func TestInsert_FillsGeneratedFields(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^INSERT\s+INTO\s+conversations\s*\(user_id,\s*title\)\s*VALUES\s*\(\$1,\s*\$2\)\s*RETURNING\s+id,\s*created_at,\s*updated_at\s*$`

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow("conv-1", now, now)
	mock.ExpectQuery(q).WithArgs("u-1", "Reset MFA for a user").WillReturnRows(rows)

	conv := &models.Conversation{UserID: "u-1", Title: "Reset MFA for a user"}
	got, err := repo.Insert(context.Background(), conv)
	if err != nil {
		t.Fatalf("Insert error: %v", err)
	}
	if got.ID != "conv-1" || got.CreatedAt.IsZero() {
		t.Fatalf("unexpected conversation: %+v", got)
	}
}

func TestGet_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`SELECT .* FROM conversations`).
		WithArgs("conv-1", "u-2").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "conv-1", "u-2")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestListByUser_OrderedByUpdatedAtDesc(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+.*FROM\s+conversations\s+WHERE\s+user_id\s*=\s*\$1\s+ORDER\s+BY\s+updated_at\s+DESC\s*$`

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "user_id", "title", "created_at", "updated_at"}).
		AddRow("conv-2", "u-1", "newer", now.Add(-time.Hour), now).
		AddRow("conv-1", "u-1", "older", now.Add(-2*time.Hour), now.Add(-time.Hour))
	mock.ExpectQuery(q).WithArgs("u-1").WillReturnRows(rows)

	got, err := repo.ListByUser(context.Background(), "u-1")
	if err != nil {
		t.Fatalf("ListByUser error: %v", err)
	}
	if len(got) != 2 || got[0].ID != "conv-2" || got[1].ID != "conv-1" {
		t.Fatalf("unexpected order: %+v", got)
	}
}

func TestUpdateTitle_BumpsUpdatedAt(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^UPDATE\s+conversations\s+SET\s+title\s*=\s*\$1,\s*updated_at\s*=\s*now\(\)\s+WHERE\s+id\s*=\s*\$2\s+AND\s+user_id\s*=\s*\$3\s*$`

	mock.ExpectExec(q).WithArgs("New Title", "conv-1", "u-1").WillReturnResult(sqlmock.NewResult(0, 1))
	if err := repo.UpdateTitle(context.Background(), "conv-1", "u-1", "New Title"); err != nil {
		t.Fatalf("UpdateTitle error: %v", err)
	}

	mock.ExpectExec(q).WithArgs("New Title", "conv-1", "u-2").WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.UpdateTitle(context.Background(), "conv-1", "u-2", "New Title")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}

func TestDelete_Scoped(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^DELETE\s+FROM\s+conversations\s+WHERE\s+id\s*=\s*\$1\s+AND\s+user_id\s*=\s*\$2\s*$`

	mock.ExpectExec(q).WithArgs("conv-1", "u-1").WillReturnResult(sqlmock.NewResult(0, 1))
	if err := repo.Delete(context.Background(), "conv-1", "u-1"); err != nil {
		t.Fatalf("Delete error: %v", err)
	}

	mock.ExpectExec(q).WithArgs("conv-1", "u-1").WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.Delete(context.Background(), "conv-1", "u-1")
	if !errors.Is(err, common.ErrorNotFound) {
		t.Fatalf("want common.ErrorNotFound, got %v", err)
	}
}
