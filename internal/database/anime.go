package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/znwiqn/anidao/internal/apperr"
	"github.com/znwiqn/anidao/internal/models"
)

// Aggregates use correlated subqueries; joining the child tables would multiply counts.
const animeSummaryColumns = `
	a.id, a.title, a.description, a.year, a.genres, a.cover_image, a.created_at, a.updated_at,
	(SELECT COUNT(*) FROM episodes e WHERE e.anime_id = a.id) AS episode_count,
	(SELECT AVG(r.rating)::float8 FROM ratings r WHERE r.anime_id = a.id) AS average_rating,
	(SELECT COUNT(*) FROM favorites f WHERE f.anime_id = a.id) AS favorite_count`

const animeColumns = `id, title, description, year, genres, cover_image, created_at, updated_at`

var animeOrder = map[string]string{
	models.SortNewest:  "a.created_at DESC, a.id DESC",
	models.SortOldest:  "a.created_at ASC, a.id ASC",
	models.SortRating:  "average_rating DESC NULLS LAST, a.id DESC",
	models.SortPopular: "favorite_count DESC, average_rating DESC NULLS LAST, a.id DESC",
}

type AnimeStore struct {
	db *sql.DB
}

func NewAnimeStore(db *sql.DB) *AnimeStore {
	return &AnimeStore{db: db}
}

// List returns one page of titles matching the filter and the total match count.
func (s *AnimeStore) List(ctx context.Context, filter models.AnimeFilter) ([]models.AnimeSummary, int, error) {
	filter.Normalize()
	where, args := animeWhere(filter)

	var total int
	countQuery := `SELECT COUNT(*) FROM anime a` + where
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "failed to count anime")
	}

	list, err := s.summaries(ctx, where, args, animeOrder[filter.Sort], filter.Limit, filter.Offset())
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// Recent returns the n most recently added titles.
func (s *AnimeStore) Recent(ctx context.Context, n int) ([]models.AnimeSummary, error) {
	return s.summaries(ctx, "", nil, animeOrder[models.SortNewest], n, 0)
}

// Popular returns the n most favorited titles, ties broken by rating.
func (s *AnimeStore) Popular(ctx context.Context, n int) ([]models.AnimeSummary, error) {
	return s.summaries(ctx, "", nil, animeOrder[models.SortPopular], n, 0)
}

func (s *AnimeStore) summaries(ctx context.Context, where string, args []interface{}, order string, limit, offset int) ([]models.AnimeSummary, error) {
	n := len(args)
	query := fmt.Sprintf(`SELECT %s FROM anime a%s ORDER BY %s LIMIT $%d OFFSET $%d`,
		animeSummaryColumns, where, order, n+1, n+2)
	args = append(append([]interface{}{}, args...), limit, offset)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list anime")
	}
	defer rows.Close()

	list := []models.AnimeSummary{}
	for rows.Next() {
		a, err := scanAnimeSummary(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan anime")
		}
		list = append(list, *a)
	}
	return list, rows.Err()
}

func animeWhere(f models.AnimeFilter) (string, []interface{}) {
	var clauses []string
	var args []interface{}

	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		clauses = append(clauses, fmt.Sprintf("a.title ILIKE $%d", len(args)))
	}
	if f.Genre != "" {
		args = append(args, f.Genre)
		clauses = append(clauses, fmt.Sprintf("$%d = ANY(a.genres)", len(args)))
	}
	if f.Year != 0 {
		args = append(args, f.Year)
		clauses = append(clauses, fmt.Sprintf("a.year = $%d", len(args)))
	}

	if len(clauses) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

// Get returns a single title with its aggregates.
func (s *AnimeStore) Get(ctx context.Context, id int64) (*models.AnimeSummary, error) {
	query := `SELECT ` + animeSummaryColumns + ` FROM anime a WHERE a.id = $1`
	a, err := scanAnimeSummary(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("Anime not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get anime")
	}
	return a, nil
}

func (s *AnimeStore) Exists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM anime WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, errors.Wrap(err, "failed to check anime")
	}
	return exists, nil
}

func (s *AnimeStore) Create(ctx context.Context, in models.AnimeInput) (*models.Anime, error) {
	query := `
		INSERT INTO anime (title, description, year, genres, cover_image)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + animeColumns

	a, err := scanAnime(s.db.QueryRowContext(ctx, query,
		in.Title, in.Description, in.Year, pq.Array(genresOrEmpty(in.Genres)), in.CoverImage))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create anime")
	}
	return a, nil
}

func (s *AnimeStore) Update(ctx context.Context, id int64, in models.AnimeInput) (*models.Anime, error) {
	query := `
		UPDATE anime
		SET title = $1, description = $2, year = $3, genres = $4, cover_image = $5, updated_at = CURRENT_TIMESTAMP
		WHERE id = $6
		RETURNING ` + animeColumns

	a, err := scanAnime(s.db.QueryRowContext(ctx, query,
		in.Title, in.Description, in.Year, pq.Array(genresOrEmpty(in.Genres)), in.CoverImage, id))
	if err == sql.ErrNoRows {
		return nil, apperr.NotFound("Anime not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to update anime")
	}
	return a, nil
}

// Delete removes a title; episodes, comments, ratings and favorites cascade.
func (s *AnimeStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM anime WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "failed to delete anime")
	}

	return expectOne(result, "Anime not found")
}

// Genres returns every distinct genre tag in use, sorted.
func (s *AnimeStore) Genres(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT unnest(genres) AS genre FROM anime ORDER BY genre`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list genres")
	}
	defer rows.Close()

	genres := []string{}
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, err
		}
		genres = append(genres, g)
	}
	return genres, rows.Err()
}

// Years returns the distinct release years, newest first.
func (s *AnimeStore) Years(ctx context.Context) ([]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT year FROM anime WHERE year IS NOT NULL ORDER BY year DESC`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list years")
	}
	defer rows.Close()

	years := []int{}
	for rows.Next() {
		var y int
		if err := rows.Scan(&y); err != nil {
			return nil, err
		}
		years = append(years, y)
	}
	return years, rows.Err()
}

// ListTitles returns the slim title list ordered by name, as shown to bot operators.
func (s *AnimeStore) ListTitles(ctx context.Context) ([]models.AnimeTitle, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, title, year FROM anime ORDER BY title, id`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list anime titles")
	}
	defer rows.Close()

	titles := []models.AnimeTitle{}
	for rows.Next() {
		var t models.AnimeTitle
		if err := rows.Scan(&t.ID, &t.Title, &t.Year); err != nil {
			return nil, errors.Wrap(err, "failed to scan anime title")
		}
		titles = append(titles, t)
	}
	return titles, rows.Err()
}

func scanAnime(row scanner) (*models.Anime, error) {
	var a models.Anime
	err := row.Scan(&a.ID, &a.Title, &a.Description, &a.Year, pq.Array(&a.Genres),
		&a.CoverImage, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.Genres = genresOrEmpty(a.Genres)
	return &a, nil
}

func scanAnimeSummary(row scanner) (*models.AnimeSummary, error) {
	var a models.AnimeSummary
	err := row.Scan(&a.ID, &a.Title, &a.Description, &a.Year, pq.Array(&a.Genres),
		&a.CoverImage, &a.CreatedAt, &a.UpdatedAt,
		&a.EpisodeCount, &a.AverageRating, &a.FavoriteCount)
	if err != nil {
		return nil, err
	}
	a.Genres = genresOrEmpty(a.Genres)
	return &a, nil
}

func genresOrEmpty(g []string) []string {
	if g == nil {
		return []string{}
	}
	return g
}
