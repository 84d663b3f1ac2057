package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pkg/errors"

	"github.com/znwiqn/anidao/internal/apperr"
	"github.com/znwiqn/anidao/internal/models"
)

type RatingStore struct {
	db *sql.DB
}

func NewRatingStore(db *sql.DB) *RatingStore {
	return &RatingStore{db: db}
}

// Get returns the account's rating for a title, or nil when it has none.
func (s *RatingStore) Get(ctx context.Context, userID, animeID int64) (*models.Rating, error) {
	var r models.Rating
	err := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, anime_id, rating, created_at, updated_at
		FROM ratings WHERE user_id = $1 AND anime_id = $2`, userID, animeID).
		Scan(&r.ID, &r.UserID, &r.AnimeID, &r.Rating, &r.CreatedAt, &r.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to get rating")
	}
	return &r, nil
}

// Upsert stores value as the account's single rating for the title. Values
// outside [MinRating, MaxRating] are rejected before touching the database.
func (s *RatingStore) Upsert(ctx context.Context, userID, animeID int64, value int) (*models.Rating, error) {
	if value < models.MinRating || value > models.MaxRating {
		return nil, apperr.Validation(fmt.Sprintf("Rating must be between %d and %d", models.MinRating, models.MaxRating))
	}

	var r models.Rating
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO ratings (user_id, anime_id, rating)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, anime_id)
		DO UPDATE SET rating = EXCLUDED.rating, updated_at = CURRENT_TIMESTAMP
		RETURNING id, user_id, anime_id, rating, created_at, updated_at`,
		userID, animeID, value).
		Scan(&r.ID, &r.UserID, &r.AnimeID, &r.Rating, &r.CreatedAt, &r.UpdatedAt)
	if isForeignKeyViolation(err) {
		return nil, apperr.NotFound("Anime not found")
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to save rating")
	}
	return &r, nil
}
