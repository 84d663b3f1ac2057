package database

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/znwiqn/anidao/internal/apperr"
)

var userCols = []string{"id", "username", "email", "password_hash", "telegram_id", "is_admin", "created_at", "updated_at"}

func hashFor(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestAuthenticate(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewUserStore(db)
	hash := hashFor(t, "swordfish")

	mock.ExpectQuery(`FROM users WHERE username = \$1`).
		WithArgs("spike").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(1, "spike", "spike@bebop.io", hash, nil, false, fixedTime, fixedTime))
	mock.ExpectQuery(`FROM users WHERE username = \$1`).
		WithArgs("spike").
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(1, "spike", "spike@bebop.io", hash, nil, false, fixedTime, fixedTime))
	mock.ExpectQuery(`FROM users WHERE username = \$1`).
		WithArgs("faye").
		WillReturnRows(sqlmock.NewRows(userCols))

	u, err := store.Authenticate(context.Background(), "spike", "swordfish")
	require.NoError(t, err)
	assert.Equal(t, int64(1), u.ID)

	_, err = store.Authenticate(context.Background(), "spike", "wrong")
	assert.True(t, errors.Is(err, apperr.ErrUnauthorized))

	_, err = store.Authenticate(context.Background(), "faye", "whatever")
	assert.True(t, errors.Is(err, apperr.ErrUnauthorized))
}

func TestCreateUserDuplicateIsConflict(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewUserStore(db)

	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs("spike", "spike@bebop.io", sqlmock.AnyArg(), nil).
		WillReturnError(&pq.Error{Code: pqUniqueViolation})

	_, err := store.Create(context.Background(), "spike", "spike@bebop.io", "pw", nil)
	assert.True(t, errors.Is(err, apperr.ErrConflict))
}

func TestUsernameOrEmailTakenExcludesSelf(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewUserStore(db)

	mock.ExpectQuery(`\(username = \$1 OR email = \$2\) AND id != \$3`).
		WithArgs("spike", "spike@bebop.io", int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	taken, err := store.UsernameOrEmailTaken(context.Background(), "spike", "spike@bebop.io", 1)
	require.NoError(t, err)
	assert.False(t, taken)
}

func TestUpdatePasswordChecksCurrent(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewUserStore(db)
	hash := hashFor(t, "old")

	mock.ExpectQuery(`FROM users WHERE id = \$1`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(1, "spike", "s@b.io", hash, nil, false, fixedTime, fixedTime))

	err := store.UpdatePassword(context.Background(), 1, "nope", "new")
	assert.True(t, errors.Is(err, apperr.ErrUnauthorized))

	mock.ExpectQuery(`FROM users WHERE id = \$1`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows(userCols).AddRow(1, "spike", "s@b.io", hash, nil, false, fixedTime, fixedTime))
	mock.ExpectExec(`UPDATE users SET password_hash = \$1`).
		WithArgs(sqlmock.AnyArg(), int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	assert.NoError(t, store.UpdatePassword(context.Background(), 1, "old", "new"))
}

func TestAdminStore(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewAdminStore(db)

	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM admins WHERE telegram_id = \$1\)`).
		WithArgs("12345").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectExec(`ON CONFLICT \(telegram_id\) DO NOTHING`).
		WithArgs("777").
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := store.IsAdmin(context.Background(), "12345")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, store.Add(context.Background(), "777"))
}

func TestSetAdmin(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewUserStore(db)

	mock.ExpectExec(`UPDATE users SET is_admin = \$1`).
		WithArgs(true, "jet").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE users SET is_admin = \$1`).
		WithArgs(true, "nobody").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.SetAdmin(context.Background(), "jet", true))

	err := store.SetAdmin(context.Background(), "nobody", true)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}
