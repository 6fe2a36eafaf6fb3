package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/contactsbook/apiserver/types"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var userRowColumns = []string{
	"id", "email", "password_hash", "token", "subscription", "avatar_url",
	"verify", "verification_token", "created_at", "updated_at",
}

func newUserRepoWithMock(t *testing.T) (*UserRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewUserRepository(db), mock
}

func TestUserRepository_GetByEmail_Found(t *testing.T) {
	repo, mock := newUserRepoWithMock(t)
	now := time.Now()

	rows := sqlmock.NewRows(userRowColumns).
		AddRow("u-1", "a@b.com", "hash", "tok", "starter", "//avatar", false, nil, now, now)
	mock.ExpectQuery(`SELECT .* FROM users WHERE email = \$1`).
		WithArgs("a@b.com").
		WillReturnRows(rows)

	user, err := repo.GetByEmail(context.Background(), "a@b.com")
	require.NoError(t, err)
	assert.Equal(t, "u-1", user.ID)
	assert.Equal(t, "hash", user.PasswordHash)
	require.NotNil(t, user.Token)
	assert.Equal(t, "tok", *user.Token)
	assert.Nil(t, user.VerificationToken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByID_NotFound(t *testing.T) {
	repo, mock := newUserRepoWithMock(t)

	mock.ExpectQuery(`SELECT .* FROM users WHERE id = \$1`).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepository_GetByID_MalformedID(t *testing.T) {
	repo, mock := newUserRepoWithMock(t)

	mock.ExpectQuery(`SELECT .* FROM users WHERE id = \$1`).
		WithArgs("not-a-uuid").
		WillReturnError(&pq.Error{Code: pqInvalidTextRepr})

	_, err := repo.GetByID(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepository_Create(t *testing.T) {
	repo, mock := newUserRepoWithMock(t)
	verification := "verify-me"

	mock.ExpectQuery(`INSERT INTO users .* RETURNING id`).
		WithArgs("a@b.com", "hash", nil, "starter", "//avatar", false, "verify-me", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("u-42"))

	created, err := repo.Create(context.Background(), types.User{
		Email:             "a@b.com",
		PasswordHash:      "hash",
		Subscription:      "starter",
		AvatarURL:         "//avatar",
		VerificationToken: &verification,
	})
	require.NoError(t, err)
	assert.Equal(t, "u-42", created.ID)
	assert.False(t, created.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Create_Duplicate(t *testing.T) {
	repo, mock := newUserRepoWithMock(t)

	mock.ExpectQuery(`INSERT INTO users`).
		WillReturnError(&pq.Error{Code: pqUniqueViolation})

	_, err := repo.Create(context.Background(), types.User{Email: "a@b.com"})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestUserRepository_UpdateToken(t *testing.T) {
	repo, mock := newUserRepoWithMock(t)
	token := "new-token"

	mock.ExpectExec(`UPDATE users SET token = \$1, updated_at = \$2 WHERE id = \$3`).
		WithArgs("new-token", sqlmock.AnyArg(), "u-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE users SET token = \$1, updated_at = \$2 WHERE id = \$3`).
		WithArgs(nil, sqlmock.AnyArg(), "u-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateToken(context.Background(), "u-1", &token))
	require.NoError(t, repo.UpdateToken(context.Background(), "u-1", nil))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_UpdateAvatar_NoRows(t *testing.T) {
	repo, mock := newUserRepoWithMock(t)

	mock.ExpectExec(`UPDATE users SET avatar_url = \$1`).
		WithArgs("/avatars/x.png", sqlmock.AnyArg(), "u-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateAvatar(context.Background(), "u-1", "/avatars/x.png")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUserRepository_MarkVerified_DBError(t *testing.T) {
	repo, mock := newUserRepoWithMock(t)

	mock.ExpectExec(`UPDATE users SET verify = TRUE, verification_token = NULL`).
		WithArgs(sqlmock.AnyArg(), "u-1").
		WillReturnError(errors.New("db down"))

	err := repo.MarkVerified(context.Background(), "u-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}
