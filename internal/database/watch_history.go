package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pkg/errors"

	"github.com/znwiqn/anidao/internal/apperr"
	"github.com/znwiqn/anidao/internal/models"
)

type WatchHistoryStore struct {
	db *sql.DB
}

func NewWatchHistoryStore(db *sql.DB) *WatchHistoryStore {
	return &WatchHistoryStore{db: db}
}

// Record overwrites the progress for (user, episode) and touches last_watched_at.
func (s *WatchHistoryStore) Record(ctx context.Context, userID, episodeID int64, percentage float64) error {
	if percentage < 0 || percentage > 100 {
		return apperr.Validation("Watched percentage must be between 0 and 100")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO watch_history (user_id, episode_id, watched_percentage)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, episode_id)
		DO UPDATE SET watched_percentage = EXCLUDED.watched_percentage, last_watched_at = CURRENT_TIMESTAMP`,
		userID, episodeID, percentage)
	if isForeignKeyViolation(err) {
		return apperr.NotFound("Episode not found")
	}
	if err != nil {
		return errors.Wrap(err, "failed to record watch history")
	}
	return nil
}

// List returns the account's progress rows, most recently watched first. A
// non-nil animeID restricts to one title; limit <= 0 means no limit.
func (s *WatchHistoryStore) List(ctx context.Context, userID int64, animeID *int64, limit int) ([]models.WatchHistoryEntry, error) {
	query := `
		SELECT wh.id, wh.user_id, wh.episode_id, wh.watched_percentage::float8, wh.last_watched_at,
		       e.anime_id, a.title, e.episode_number, e.title, e.thumbnail
		FROM watch_history wh
		JOIN episodes e ON wh.episode_id = e.id
		JOIN anime a ON e.anime_id = a.id
		WHERE wh.user_id = $1`
	args := []interface{}{userID}

	if animeID != nil {
		args = append(args, *animeID)
		query += fmt.Sprintf(` AND e.anime_id = $%d`, len(args))
	}
	query += ` ORDER BY wh.last_watched_at DESC, wh.id DESC`
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list watch history")
	}
	defer rows.Close()

	entries := []models.WatchHistoryEntry{}
	for rows.Next() {
		var h models.WatchHistoryEntry
		if err := rows.Scan(&h.ID, &h.UserID, &h.EpisodeID, &h.WatchedPercentage, &h.LastWatchedAt,
			&h.AnimeID, &h.AnimeTitle, &h.EpisodeNumber, &h.EpisodeTitle, &h.Thumbnail); err != nil {
			return nil, errors.Wrap(err, "failed to scan watch history")
		}
		entries = append(entries, h)
	}
	return entries, rows.Err()
}

// Progress maps episode id to watched percentage for one title, for episode lists.
func (s *WatchHistoryStore) Progress(ctx context.Context, userID, animeID int64) (map[int64]float64, error) {
	entries, err := s.List(ctx, userID, &animeID, 0)
	if err != nil {
		return nil, err
	}
	progress := make(map[int64]float64, len(entries))
	for _, h := range entries {
		progress[h.EpisodeID] = h.WatchedPercentage
	}
	return progress, nil
}
