package store

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/contactsbook/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var contactRowColumns = []string{"id", "name", "email", "phone", "favorite", "created_at", "updated_at"}

func newContactRepoWithMock(t *testing.T) (*ContactRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewContactRepository(db), mock
}

func TestContactRepository_List_FavoriteFilter(t *testing.T) {
	repo, mock := newContactRepoWithMock(t)
	now := time.Now()
	favorite := true

	mock.ExpectQuery(`SELECT COUNT\(1\) FROM contacts WHERE favorite = \$1`).
		WithArgs(true).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(`SELECT .* FROM contacts WHERE favorite = \$1 ORDER BY created_at, id OFFSET \$2 LIMIT \$3`).
		WithArgs(true, 2, 2).
		WillReturnRows(sqlmock.NewRows(contactRowColumns).
			AddRow("c-3", "Carol", "c@x.com", "333", true, now, now))

	items, total, err := repo.List(context.Background(), types.ContactFilter{Favorite: &favorite}, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, items, 1)
	assert.Equal(t, "Carol", items[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContactRepository_Get_NotFound(t *testing.T) {
	repo, mock := newContactRepoWithMock(t)

	mock.ExpectQuery(`SELECT .* FROM contacts WHERE id = \$1`).
		WithArgs("c-1").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.Get(context.Background(), "c-1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestContactRepository_UpdateFavorite(t *testing.T) {
	repo, mock := newContactRepoWithMock(t)
	now := time.Now()

	mock.ExpectQuery(`UPDATE contacts SET favorite = \$1, updated_at = \$2 WHERE id = \$3 RETURNING`).
		WithArgs(true, sqlmock.AnyArg(), "c-1").
		WillReturnRows(sqlmock.NewRows(contactRowColumns).
			AddRow("c-1", "Ann", "a@x.com", "111", true, now, now))

	contact, err := repo.UpdateFavorite(context.Background(), "c-1", true)
	require.NoError(t, err)
	assert.True(t, contact.Favorite)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestContactRepository_Delete(t *testing.T) {
	repo, mock := newContactRepoWithMock(t)

	mock.ExpectExec(`DELETE FROM contacts WHERE id = \$1`).
		WithArgs("c-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM contacts WHERE id = \$1`).
		WithArgs("c-2").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.Delete(context.Background(), "c-1"))
	assert.ErrorIs(t, repo.Delete(context.Background(), "c-2"), ErrNotFound)
}
