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
)

func TestRatingUpsertRejectsOutOfRangeBeforeWrite(t *testing.T) {
	db, _ := newMockDB(t)
	store := NewRatingStore(db)

	for _, v := range []int{0, 11, -3} {
		_, err := store.Upsert(context.Background(), 1, 1, v)
		assert.True(t, errors.Is(err, apperr.ErrValidation), "value %d", v)
	}
}

func TestRatingUpsertUsesOnConflict(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewRatingStore(db)

	cols := []string{"id", "user_id", "anime_id", "rating", "created_at", "updated_at"}
	mock.ExpectQuery(`ON CONFLICT \(user_id, anime_id\)\s+DO UPDATE SET rating = EXCLUDED.rating`).
		WithArgs(int64(2), int64(5), 7).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(1, 2, 5, 7, fixedTime, fixedTime))
	mock.ExpectQuery(`ON CONFLICT \(user_id, anime_id\)`).
		WithArgs(int64(2), int64(5), 9).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(1, 2, 5, 9, fixedTime, fixedTime))

	first, err := store.Upsert(context.Background(), 2, 5, 7)
	require.NoError(t, err)
	second, err := store.Upsert(context.Background(), 2, 5, 9)
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 9, second.Rating)
}

func TestRatingGetMissingIsNil(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewRatingStore(db)

	mock.ExpectQuery(`FROM ratings WHERE user_id = \$1 AND anime_id = \$2`).
		WithArgs(int64(1), int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	r, err := store.Get(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.Nil(t, r)
}

func TestFavoriteAddTwiceIsConflict(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewFavoriteStore(db)

	mock.ExpectExec(`INSERT INTO favorites`).WithArgs(int64(1), int64(2)).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(`INSERT INTO favorites`).WithArgs(int64(1), int64(2)).WillReturnError(&pq.Error{Code: pqUniqueViolation})

	require.NoError(t, store.Add(context.Background(), 1, 2))
	err := store.Add(context.Background(), 1, 2)
	assert.True(t, errors.Is(err, apperr.ErrConflict))
}

func TestFavoriteRemoveMissingIsNoop(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewFavoriteStore(db)

	mock.ExpectExec(`DELETE FROM favorites WHERE user_id = \$1 AND anime_id = \$2`).
		WithArgs(int64(1), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	assert.NoError(t, store.Remove(context.Background(), 1, 2))
}

func TestFavoriteList(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewFavoriteStore(db)

	mock.ExpectQuery(`FROM favorites f\s+JOIN anime a`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "anime_id", "created_at", "title", "cover_image", "year", "genres", "episode_count", "average_rating",
		}).AddRow(3, 1, 2, fixedTime, "Akira", nil, 1988, "{Sci-Fi}", 1, nil))

	favs, err := store.List(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, favs, 1)
	assert.Equal(t, []string{"Sci-Fi"}, favs[0].Genres)
	assert.Nil(t, favs[0].AverageRating)
}

func TestWatchHistoryRecordOverwrites(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewWatchHistoryStore(db)

	mock.ExpectExec(`ON CONFLICT \(user_id, episode_id\)`).
		WithArgs(int64(1), int64(4), 42.5).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.Record(context.Background(), 1, 4, 42.5))

	err := store.Record(context.Background(), 1, 4, 120)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestWatchHistoryRecordMissingEpisode(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewWatchHistoryStore(db)

	mock.ExpectExec(`INSERT INTO watch_history`).WillReturnError(&pq.Error{Code: pqForeignKeyViolation})

	err := store.Record(context.Background(), 1, 99, 10)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestWatchHistoryListFiltersByAnime(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewWatchHistoryStore(db)

	animeID := int64(8)
	mock.ExpectQuery(`WHERE wh.user_id = \$1 AND e.anime_id = \$2 ORDER BY wh.last_watched_at DESC, wh.id DESC LIMIT \$3`).
		WithArgs(int64(1), animeID, 5).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "episode_id", "watched_percentage", "last_watched_at",
			"anime_id", "anime_title", "episode_number", "episode_title", "thumbnail",
		}).AddRow(1, 1, 40, 75.0, fixedTime, 8, "Akira", 1, nil, nil))

	entries, err := store.List(context.Background(), 1, &animeID, 5)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 75.0, entries[0].WatchedPercentage)
	assert.Nil(t, entries[0].EpisodeTitle)
}

func TestCommentCreateMissingParent(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewCommentStore(db)

	mock.ExpectQuery(`INSERT INTO comments`).
		WithArgs(int64(1), int64(2), nil, "great").
		WillReturnError(&pq.Error{Code: pqForeignKeyViolation})

	_, err := store.Create(context.Background(), 1, 2, nil, "great")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestCommentListForAnimeExcludesEpisodeComments(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewCommentStore(db)

	mock.ExpectQuery(`WHERE c.anime_id = \$1 AND c.episode_id IS NULL`).
		WithArgs(int64(2)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "anime_id", "episode_id", "content", "created_at", "username"}).
			AddRow(1, 1, 2, nil, "great", fixedTime, "spike"))

	comments, err := store.ListForAnime(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Nil(t, comments[0].EpisodeID)
	assert.Equal(t, "spike", comments[0].Username)
}
