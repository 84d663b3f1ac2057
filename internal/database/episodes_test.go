package database

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/znwiqn/anidao/internal/apperr"
	"github.com/znwiqn/anidao/internal/models"
)

var episodeCols = []string{
	"id", "anime_id", "episode_number", "title", "video_url", "thumbnail", "duration", "created_at", "updated_at",
}

func TestEpisodeCreateDuplicateNumberIsConflict(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewEpisodeStore(db)

	mock.ExpectQuery(`INSERT INTO episodes`).
		WithArgs(int64(1), 3, nil, "https://anidao.b-cdn.net/ep3.m3u8", nil, nil).
		WillReturnError(&pq.Error{Code: pqUniqueViolation})

	_, err := store.Create(context.Background(), models.EpisodeInput{
		AnimeID: 1, EpisodeNumber: 3, VideoURL: "https://anidao.b-cdn.net/ep3.m3u8",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperr.ErrConflict))
}

func TestEpisodeCreateMissingAnimeIsNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewEpisodeStore(db)

	mock.ExpectQuery(`INSERT INTO episodes`).
		WillReturnError(&pq.Error{Code: pqForeignKeyViolation})

	_, err := store.Create(context.Background(), models.EpisodeInput{AnimeID: 9, EpisodeNumber: 1, VideoURL: "x"})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestEpisodeCreateReturnsRow(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewEpisodeStore(db)

	title := "Asteroid Blues"
	duration := 1440
	mock.ExpectQuery(`INSERT INTO episodes`).
		WithArgs(int64(1), 1, title, "https://anidao.b-cdn.net/1.mp4", nil, duration).
		WillReturnRows(sqlmock.NewRows(episodeCols).
			AddRow(10, 1, 1, title, "https://anidao.b-cdn.net/1.mp4", nil, duration, fixedTime, fixedTime))

	ep, err := store.Create(context.Background(), models.EpisodeInput{
		AnimeID: 1, EpisodeNumber: 1, Title: &title, VideoURL: "https://anidao.b-cdn.net/1.mp4", Duration: &duration,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(10), ep.ID)
	require.NotNil(t, ep.Title)
	assert.Equal(t, title, *ep.Title)
	assert.Nil(t, ep.Thumbnail)
}

func TestEpisodeExists(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewEpisodeStore(db)

	mock.ExpectQuery(`SELECT EXISTS\(SELECT 1 FROM episodes WHERE anime_id = \$1 AND episode_number = \$2\)`).
		WithArgs(int64(1), 2).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := store.Exists(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEpisodeNeighbors(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewEpisodeStore(db)

	mock.ExpectQuery(`episode_number < \$2`).
		WithArgs(int64(1), 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "episode_number"}))
	mock.ExpectQuery(`episode_number > \$2`).
		WithArgs(int64(1), 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "episode_number"}).AddRow(11, 2))

	prev, next, err := store.Neighbors(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.Nil(t, prev)
	require.NotNil(t, next)
	assert.Equal(t, 2, next.EpisodeNumber)
}

func TestEpisodeGetInAnimeMismatch(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewEpisodeStore(db)

	mock.ExpectQuery(`WHERE e.id = \$1 AND a.id = \$2`).
		WithArgs(int64(10), int64(2)).
		WillReturnRows(sqlmock.NewRows(append(episodeCols, "anime_title")))

	_, err := store.GetInAnime(context.Background(), 2, 10)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestEpisodeDelete(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewEpisodeStore(db)

	mock.ExpectExec(`DELETE FROM episodes`).WithArgs(int64(3)).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`DELETE FROM episodes`).WithArgs(int64(4)).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.Delete(context.Background(), 3))
	assert.True(t, errors.Is(store.Delete(context.Background(), 4), apperr.ErrNotFound))
}
