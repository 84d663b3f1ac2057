package database

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/znwiqn/anidao/internal/apperr"
	"github.com/znwiqn/anidao/internal/models"
)

type FavoriteStore struct {
	db *sql.DB
}

func NewFavoriteStore(db *sql.DB) *FavoriteStore {
	return &FavoriteStore{db: db}
}

func (s *FavoriteStore) IsFavorite(ctx context.Context, userID, animeID int64) (bool, error) {
	var ok bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM favorites WHERE user_id = $1 AND anime_id = $2)`,
		userID, animeID).Scan(&ok)
	if err != nil {
		return false, errors.Wrap(err, "failed to check favorite")
	}
	return ok, nil
}

// List returns the account's favorites with card data, most recent first.
func (s *FavoriteStore) List(ctx context.Context, userID int64) ([]models.Favorite, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT f.id, f.user_id, f.anime_id, f.created_at,
		       a.title, a.cover_image, a.year, a.genres,
		       (SELECT COUNT(*) FROM episodes e WHERE e.anime_id = a.id) AS episode_count,
		       (SELECT AVG(r.rating)::float8 FROM ratings r WHERE r.anime_id = a.id) AS average_rating
		FROM favorites f
		JOIN anime a ON f.anime_id = a.id
		WHERE f.user_id = $1
		ORDER BY f.created_at DESC, f.id DESC`, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list favorites")
	}
	defer rows.Close()

	favorites := []models.Favorite{}
	for rows.Next() {
		var f models.Favorite
		if err := rows.Scan(&f.ID, &f.UserID, &f.AnimeID, &f.CreatedAt,
			&f.Title, &f.CoverImage, &f.Year, pq.Array(&f.Genres),
			&f.EpisodeCount, &f.AverageRating); err != nil {
			return nil, errors.Wrap(err, "failed to scan favorite")
		}
		f.Genres = genresOrEmpty(f.Genres)
		favorites = append(favorites, f)
	}
	return favorites, rows.Err()
}

// Add favorites a title. A second add for the same pair is a conflict.
func (s *FavoriteStore) Add(ctx context.Context, userID, animeID int64) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO favorites (user_id, anime_id) VALUES ($1, $2)`, userID, animeID)
	switch {
	case isUniqueViolation(err):
		return apperr.Conflict("Anime is already in favorites")
	case isForeignKeyViolation(err):
		return apperr.NotFound("Anime not found")
	case err != nil:
		return errors.Wrap(err, "failed to add favorite")
	}
	return nil
}

// Remove deletes the favorite if present; removing a missing one succeeds.
func (s *FavoriteStore) Remove(ctx context.Context, userID, animeID int64) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM favorites WHERE user_id = $1 AND anime_id = $2`, userID, animeID)
	if err != nil {
		return errors.Wrap(err, "failed to remove favorite")
	}
	return nil
}
