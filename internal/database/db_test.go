package database

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedTime = time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)

// newMockDB returns a sqlmock-backed pool whose expectations are verified on cleanup.
func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

func TestPQCodeClassification(t *testing.T) {
	unique := &pq.Error{Code: pqUniqueViolation}
	fk := &pq.Error{Code: pqForeignKeyViolation}

	assert.True(t, isUniqueViolation(unique))
	assert.True(t, isUniqueViolation(errors.Wrap(unique, "insert")))
	assert.False(t, isUniqueViolation(fk))
	assert.True(t, isForeignKeyViolation(fk))
	assert.False(t, isUniqueViolation(nil))
	assert.Equal(t, "", pqCode(errors.New("plain")))
}
