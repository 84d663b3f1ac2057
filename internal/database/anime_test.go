package database

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/znwiqn/anidao/internal/apperr"
	"github.com/znwiqn/anidao/internal/models"
)

var summaryCols = []string{
	"id", "title", "description", "year", "genres", "cover_image", "created_at", "updated_at",
	"episode_count", "average_rating", "favorite_count",
}

func TestAnimeListAppliesFilters(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewAnimeStore(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM anime a WHERE a.title ILIKE $1 AND $2 = ANY(a.genres) AND a.year = $3`)).
		WithArgs("%bebop%", "Action", 1998).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(21))

	mock.ExpectQuery(`FROM anime a WHERE .+ ORDER BY average_rating DESC NULLS LAST, a.id DESC LIMIT \$4 OFFSET \$5`).
		WithArgs("%bebop%", "Action", 1998, 10, 10).
		WillReturnRows(sqlmock.NewRows(summaryCols).
			AddRow(1, "Cowboy Bebop", "space", 1998, "{Action,Drama}", nil, fixedTime, fixedTime, 26, 9.5, 3))

	list, total, err := store.List(context.Background(), models.AnimeFilter{
		Search: "bebop", Genre: "Action", Year: 1998, Sort: models.SortRating, Page: 2, Limit: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, 21, total)
	require.Len(t, list, 1)

	a := list[0]
	assert.Equal(t, "Cowboy Bebop", a.Title)
	assert.Equal(t, []string{"Action", "Drama"}, a.Genres)
	require.NotNil(t, a.Year)
	assert.Equal(t, 1998, *a.Year)
	assert.Nil(t, a.CoverImage)
	assert.Equal(t, 26, a.EpisodeCount)
	require.NotNil(t, a.AverageRating)
	assert.InDelta(t, 9.5, *a.AverageRating, 0.001)
}

func TestAnimeListDefaultsWithoutFilters(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewAnimeStore(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM anime a`)).
		WithArgs().
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`ORDER BY a.created_at DESC, a.id DESC LIMIT \$1 OFFSET \$2`).
		WithArgs(20, 0).
		WillReturnRows(sqlmock.NewRows(summaryCols))

	list, total, err := store.List(context.Background(), models.AnimeFilter{Sort: "bogus"})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.NotNil(t, list)
	assert.Empty(t, list)
}

func TestAnimeGetNotFound(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewAnimeStore(db)

	mock.ExpectQuery(`FROM anime a WHERE a.id = \$1`).
		WithArgs(int64(42)).
		WillReturnRows(sqlmock.NewRows(summaryCols))

	_, err := store.Get(context.Background(), 42)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestAnimeCreateStoresEmptyGenres(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewAnimeStore(db)

	mock.ExpectQuery(`INSERT INTO anime`).
		WithArgs("Trigun", nil, nil, "{}", nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "description", "year", "genres", "cover_image", "created_at", "updated_at"}).
			AddRow(7, "Trigun", nil, nil, "{}", nil, fixedTime, fixedTime))

	a, err := store.Create(context.Background(), models.AnimeInput{Title: "Trigun"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), a.ID)
	assert.Equal(t, []string{}, a.Genres)
	assert.Nil(t, a.Description)
}

func TestAnimeUpdateAndDeleteMissing(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewAnimeStore(db)

	mock.ExpectQuery(`UPDATE anime`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec(`DELETE FROM anime WHERE id = \$1`).
		WithArgs(int64(5)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := store.Update(context.Background(), 5, models.AnimeInput{Title: "x"})
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	err = store.Delete(context.Background(), 5)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestAnimeListTitlesOrderedByName(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewAnimeStore(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, title, year FROM anime ORDER BY title, id`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "year"}).
			AddRow(2, "Akira", 1988).
			AddRow(1, "Cowboy Bebop", nil))

	titles, err := store.ListTitles(context.Background())
	require.NoError(t, err)
	require.Len(t, titles, 2)
	assert.Equal(t, "Akira", titles[0].Title)
	assert.Nil(t, titles[1].Year)
}

func TestAnimeGenres(t *testing.T) {
	db, mock := newMockDB(t)
	store := NewAnimeStore(db)

	mock.ExpectQuery(`SELECT DISTINCT unnest\(genres\)`).
		WillReturnRows(sqlmock.NewRows([]string{"genre"}).AddRow("Action").AddRow("Drama"))

	genres, err := store.Genres(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Action", "Drama"}, genres)
}
